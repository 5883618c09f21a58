package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocalPutAndGet(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	const data = "First sentence.\nSecond sentence.\n"
	if err := s.Put(ctx, "sessions/s1/turns/t1/transcript.txt", strings.NewReader(data)); err != nil {
		t.Fatal(err)
	}

	r, err := s.Get(ctx, "sessions/s1/turns/t1/transcript.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != data {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLocalGetNotExist(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "no-such-file")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLocalExists(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false for missing file")
	}

	if err := s.Put(ctx, "present", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	ok, err = s.Exists(ctx, "present")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected true for existing file")
	}
}

func TestLocalDeleteIdempotent(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	// Deleting a missing file succeeds.
	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}

	if err := s.Put(ctx, "tmp", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Exists(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("file should be gone after delete")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
}

func TestLocalPutOverwrites(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if err := s.Put(ctx, "f", strings.NewReader("long content here")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "f", strings.NewReader("short")); err != nil {
		t.Fatal(err)
	}

	r, err := s.Get(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "short" {
		t.Fatalf("got %q, want %q", got, "short")
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.root)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}
