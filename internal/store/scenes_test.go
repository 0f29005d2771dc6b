package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestPutScene_CreatesAndReads(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sc := putTestScene(t, s, "", "Main", []byte("payload"), false)
	if sc.ID == "" || sc.Kind != KindScene || sc.Revision != 1 {
		t.Errorf("PutScene() = %+v", sc)
	}
	if sc.Size != len("payload") || sc.Records != len("payload") || sc.Digest != "digest-payload" {
		t.Errorf("PutScene() metadata = %+v", sc.PayloadMeta)
	}

	got, data, err := s.ReadScene(ctx, sc.ID)
	if err != nil {
		t.Fatalf("ReadScene() failed: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("ReadScene() data = %q", data)
	}
	if got != sc {
		t.Errorf("ReadScene() = %+v, want %+v", got, sc)
	}
}

func TestPutScene_SameNameNeedsOverwrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := putTestScene(t, s, "", "Main", []byte("v1"), false)

	_, err := s.PutScene(ctx, "", "MAIN", []byte("v2"), PayloadMeta{Digest: "d"}, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("PutScene() error = %v, want ErrExists", err)
	}

	second := putTestScene(t, s, "", "MAIN", []byte("v2"), true)
	if second.ID != first.ID {
		t.Errorf("overwrite created a new item: %s != %s", second.ID, first.ID)
	}
	if second.Name != "Main" {
		t.Errorf("overwrite renamed the scene to %q", second.Name)
	}
	if second.Revision != 2 {
		t.Errorf("Revision = %d, want 2", second.Revision)
	}

	_, data, err := s.ReadScene(ctx, first.ID)
	if err != nil {
		t.Fatalf("ReadScene() failed: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("ReadScene() data = %q, want v2", data)
	}
}

func TestPutScene_UnknownFolder(t *testing.T) {
	s := createTestStore(t)

	_, err := s.PutScene(context.Background(), "missing", "x", nil, PayloadMeta{}, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("PutScene() error = %v, want ErrNotFound", err)
	}
}

func TestReadScene_FolderIsNotAScene(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "", "Levels")
	if err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	if _, _, err := s.ReadScene(ctx, folder.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadScene(folder) error = %v, want ErrNotFound", err)
	}
}

func TestFindByDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	putTestScene(t, s, "", "b", []byte("same"), false)
	putTestScene(t, s, "", "a", []byte("same"), false)
	putTestScene(t, s, "", "c", []byte("other"), false)

	items, err := s.FindByDigest(ctx, "digest-same")
	if err != nil {
		t.Fatalf("FindByDigest() failed: %v", err)
	}
	got := itemNames(items)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("FindByDigest() = %v, want [a b]", got)
	}
}
