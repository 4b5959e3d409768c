package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"rctrack/pkg/platform/sentinel"
)

// LocalStore keeps attachments as files in one directory. All access goes through
// an os.Root so names cannot escape the directory.
type LocalStore struct {
	root *os.Root
}

// NewLocalStore creates dir if needed and opens it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open attachment dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Put writes to a temporary file and renames it into place so readers never see
// a partial document.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, _ int64) error {
	if !ValidName(name) {
		return fmt.Errorf("attachment name %q: %w", name, sentinel.ErrInvalidState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := "." + name + ".part"
	f, err := s.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.root.Remove(tmp)
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(tmp)
		return fmt.Errorf("close attachment: %w", err)
	}
	if err := s.root.Rename(tmp, name); err != nil {
		_ = s.root.Remove(tmp)
		return fmt.Errorf("publish attachment: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	if !ValidName(name) {
		return nil, sentinel.ErrNotFound
	}
	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	if !ValidName(name) {
		return nil
	}
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// Close releases the directory handle.
func (s *LocalStore) Close() error {
	return s.root.Close()
}
