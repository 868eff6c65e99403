package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LocalStore writes media below a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create media directory")
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(ctx context.Context, prefix string, upload *Upload) (string, error) {
	key := objectKey(prefix, upload.Filename)
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := ensureDir(full); err != nil {
		return "", errors.Wrap(err, "failed to ensure media directory")
	}

	f, err := os.Create(full)
	if err != nil {
		return "", errors.Wrap(err, "failed to create media file")
	}
	if _, err := io.Copy(f, upload.Body); err != nil {
		f.Close()
		os.Remove(full)
		return "", errors.Wrap(err, "failed to write media file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close media file")
	}
	return key, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open media file")
	}
	return f, nil
}

// Delete treats a missing file as already deleted.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete media file")
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// ensureDir creates the parent directory of path when it is missing.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Debug().Str("dir", dir).Msg("creating media directory")
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
