package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps objects as files under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed and returns a store over it.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("file blob store: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &Error{Op: "init", Backend: "file", Err: err}
	}
	return &FileStore{root: abs}, nil
}

// Put writes to a temp file and renames it into place.
func (f *FileStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	full, err := f.fullPath(key)
	if err != nil {
		return f.wrap("put", key, err)
	}
	if err := ctx.Err(); err != nil {
		return f.wrap("put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return f.wrap("put", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".studyforge-put-*")
	if err != nil {
		return f.wrap("put", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := io.Copy(tmp, body); err != nil {
		return f.wrap("put", key, err)
	}
	if err := tmp.Close(); err != nil {
		return f.wrap("put", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return f.wrap("put", key, err)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := f.fullPath(key)
	if err != nil {
		return nil, f.wrap("get", key, err)
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, f.wrap("get", key, err)
	}
	return file, nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	full, err := f.fullPath(key)
	if err != nil {
		return f.wrap("delete", key, err)
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return f.wrap("delete", key, err)
	}
	return nil
}

func (f *FileStore) Location(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(f.root, filepath.FromSlash(key)))
}

func (f *FileStore) fullPath(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	full := filepath.Join(f.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

func (f *FileStore) wrap(op, key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		err = ErrNotFound
	} else if errors.Is(err, fs.ErrPermission) {
		err = ErrAccessDenied
	}
	return &Error{Op: op, Backend: "file", Key: key, Err: err}
}
