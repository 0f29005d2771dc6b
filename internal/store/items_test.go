package store

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestNameKey_FoldsCaseAndNormalizes(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Level1", "level1"},
		{"STRASSE", "strasse"},
		{"Café", "café"},
	}
	for _, tt := range tests {
		if NameKey(tt.a) != NameKey(tt.b) {
			t.Errorf("NameKey(%q) = %q, NameKey(%q) = %q, want equal", tt.a, NameKey(tt.a), tt.b, NameKey(tt.b))
		}
	}
	if NameKey("a") == NameKey("b") {
		t.Error("different names share a key")
	}
}

func TestCreateFolder_RejectsDuplicateIgnoringCase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFolder(ctx, "", "Levels"); err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	_, err := s.CreateFolder(ctx, "", "levels")
	if !errors.Is(err, ErrExists) {
		t.Errorf("CreateFolder() error = %v, want ErrExists", err)
	}
}

func TestCreateFolder_UnknownParent(t *testing.T) {
	s := createTestStore(t)

	_, err := s.CreateFolder(context.Background(), "missing", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateFolder() error = %v, want ErrNotFound", err)
	}
}

func TestCreateFolder_SceneIsNotAParent(t *testing.T) {
	s := createTestStore(t)
	sc := putTestScene(t, s, "", "Main", []byte("x"), false)

	_, err := s.CreateFolder(context.Background(), sc.ID, "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateFolder() under a scene error = %v, want ErrNotFound", err)
	}
}

func TestList_FoldersFirstThenByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	putTestScene(t, s, "", "beta", []byte("b"), false)
	putTestScene(t, s, "", "Alpha", []byte("a"), false)
	for _, name := range []string{"zoo", "Assets"} {
		if _, err := s.CreateFolder(ctx, "", name); err != nil {
			t.Fatalf("CreateFolder(%q) failed: %v", name, err)
		}
	}

	items, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	want := []string{"Assets", "zoo", "Alpha", "beta"}
	if got := itemNames(items); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if items[0].Kind != KindFolder || items[3].Kind != KindScene {
		t.Errorf("unexpected kinds: %+v", items)
	}
}

func TestList_EmptyFolderReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)

	items, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", items)
	}
}

func TestFolderAndSceneMayShareAName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFolder(ctx, "", "Main"); err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	putTestScene(t, s, "", "Main", []byte("x"), false)

	items, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("List() returned %d items, want 2", len(items))
	}
}

func TestMkdirAllAndResolveFolder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	made, err := s.MkdirAll(ctx, "Levels/World1/")
	if err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	again, err := s.MkdirAll(ctx, "levels/world1")
	if err != nil {
		t.Fatalf("second MkdirAll() failed: %v", err)
	}
	if made.ID != again.ID {
		t.Errorf("MkdirAll() created a second folder: %s != %s", made.ID, again.ID)
	}

	got, err := s.ResolveFolder(ctx, "/LEVELS/world1")
	if err != nil {
		t.Fatalf("ResolveFolder() failed: %v", err)
	}
	if got.ID != made.ID || got.Name != "World1" {
		t.Errorf("ResolveFolder() = %+v, want %+v", got, made)
	}

	root, err := s.ResolveFolder(ctx, "/")
	if err != nil || root.ID != "" {
		t.Errorf("ResolveFolder(/) = %+v, %v, want root", root, err)
	}

	if _, err := s.ResolveFolder(ctx, "Levels/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveFolder() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_CascadesToContents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	folder, err := s.MkdirAll(ctx, "a/b")
	if err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	sc := putTestScene(t, s, folder.ID, "Deep", []byte("x"), false)

	top, err := s.ResolveFolder(ctx, "a")
	if err != nil {
		t.Fatalf("ResolveFolder() failed: %v", err)
	}
	if err := s.Delete(ctx, top.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := s.Get(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after cascade error = %v, want ErrNotFound", err)
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scene_payloads").Scan(&n); err != nil {
		t.Fatalf("count payloads: %v", err)
	}
	if n != 0 {
		t.Errorf("%d payloads left after cascade, want 0", n)
	}

	if err := s.Delete(ctx, top.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
