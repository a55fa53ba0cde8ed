package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, ok, err := s.Get(ctx, "transactions"); ok || err != nil {
		t.Fatalf("expected missing slot, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "transactions", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "transactions", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.Get(ctx, "transactions")
	if err != nil || !ok || string(got) != `[{"id":1}]` {
		t.Fatalf("unexpected get: %q ok=%v err=%v", got, ok, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "transactions.json" {
		t.Fatalf("expected only the slot file, got %v", entries)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", ""} {
		if err := s.Set(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("key %q: expected error", key)
		}
	}
}
