package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local implements Store on top of the local filesystem.
// All keys are resolved relative to the configured root directory.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// resolve turns an archive key into an absolute filesystem path.
func (l *Local) resolve(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Put writes r to the named file, creating parent directories as needed.
// If the file already exists it is truncated.
func (l *Local) Put(_ context.Context, key string, r io.Reader) error {
	full := l.resolve(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Get opens the named file for reading.
func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(key))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the named file. If the file does not exist, Delete
// returns nil (idempotent).
func (l *Local) Delete(_ context.Context, key string) error {
	err := os.Remove(l.resolve(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the named file exists.
func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.resolve(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Compile-time interface check.
var _ Store = (*Local)(nil)
