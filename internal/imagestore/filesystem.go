package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// FilesystemBackend keeps pictures under <root>/<kind>/<name> and serves them
// from <urlPrefix>/<kind>/<name>.
type FilesystemBackend struct {
	root      string
	urlPrefix string
}

// NewFilesystemBackend creates the kind directories under root
func NewFilesystemBackend(root, urlPrefix string) (*FilesystemBackend, error) {
	for _, kind := range []Kind{ProfilePictures, GrievancePictures} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create image directory: %w", err)
		}
	}
	return &FilesystemBackend{root: root, urlPrefix: urlPrefix}, nil
}

// Put writes data to a temporary file in the target directory and links it
// into place, so readers never observe a partial file and an existing name is
// never overwritten.
func (b *FilesystemBackend) Put(ctx context.Context, kind Kind, name string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(b.root, string(kind))
	final := filepath.Join(dir, filepath.Base(name))

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Link(tmp.Name(), final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("publish image: %w", err)
	}
	return nil
}

// Delete removes a picture; a missing file is not an error
func (b *FilesystemBackend) Delete(ctx context.Context, kind Kind, name string) error {
	err := os.Remove(filepath.Join(b.root, string(kind), filepath.Base(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (b *FilesystemBackend) URL(kind Kind, name string) string {
	return path.Join(b.urlPrefix, string(kind), name)
}

// Path returns where a picture lives on disk
func (b *FilesystemBackend) Path(kind Kind, name string) string {
	return filepath.Join(b.root, string(kind), filepath.Base(name))
}
