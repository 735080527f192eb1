package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-omr/internal/storage"
)

func TestFSStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(ctx, "/batch-1//sheet-7/p1.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "batch-1/sheet-7/p1.png" {
		t.Fatalf("canonical key = %q", key)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "png-bytes" {
		t.Fatalf("read %q", b)
	}
}

func TestFSStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "missing.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	for _, k := range []string{"", "  ", "../etc/passwd", "a/../../b", "/"} {
		if _, err := s.Put(ctx, k, strings.NewReader("x")); !errors.Is(err, storage.ErrInvalidKey) {
			t.Errorf("Put(%q): want ErrInvalidKey, got %v", k, err)
		}
	}
}
