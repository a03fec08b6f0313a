package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PhotoStore durably writes named photo content to a content directory.
type PhotoStore interface {
	Save(ctx context.Context, name string, content io.Reader) error
	Remove(ctx context.Context, name string) error
}

type diskPhotoStore struct {
	dir string
}

// NewDiskPhotoStore creates a PhotoStore writing into dir, creating it if
// needed.
func NewDiskPhotoStore(dir string) (PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &diskPhotoStore{dir: dir}, nil
}

// Save writes the full content under name. A partial write is reported as an
// error; nothing is retried here.
func (s *diskPhotoStore) Save(ctx context.Context, name string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create photo file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write photo file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close photo file: %w", err)
	}
	return nil
}

// Remove deletes a previously saved photo. Used to compensate when the
// record persist fails after the file was already written.
func (s *diskPhotoStore) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to remove photo file: %w", err)
	}
	return nil
}

var filenameSanitizer = strings.NewReplacer(" ", "-", ":", "", "\\", "")

// PhotoName builds a unique, collision-resistant storage name for an
// uploaded file: a random token plus the sanitized original filename. The
// result never contains spaces, colons, backslashes or path separators, so
// it cannot escape the content directory.
func PhotoName(original string) string {
	base := filepath.Base(filenameSanitizer.Replace(original))
	base = strings.ReplaceAll(base, "/", "")
	if base == "" || base == "." || base == ".." {
		base = "photo"
	}
	return uuid.NewString() + "-" + base
}
