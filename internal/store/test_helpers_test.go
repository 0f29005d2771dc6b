package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putTestScene saves a scene with placeholder metadata.
func putTestScene(t *testing.T, s *Store, parentID, name string, data []byte, overwrite bool) Scene {
	t.Helper()
	sc, err := s.PutScene(context.Background(), parentID, name, data, PayloadMeta{
		Digest:        "digest-" + string(data),
		FormatVersion: 1,
		Records:       len(data),
	}, overwrite)
	if err != nil {
		t.Fatalf("PutScene(%q) failed: %v", name, err)
	}
	return sc
}

func itemNames(items []Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}
