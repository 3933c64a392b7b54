package storage

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps outputs below a local root directory.
type FileStore struct {
	baseDir       string
	publicBaseURL string
}

func NewFileStore(baseDir, publicBaseURL string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", baseDir, err)
	}
	return &FileStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *FileStore) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.baseDir, rel), nil
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Put writes data through a temporary file and a rename, so readers never
// observe a partially written output.
func (s *FileStore) Put(_ context.Context, key string, data []byte, contentType string) (*UploadResult, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "upload-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file before rename: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), 0644); err != nil {
		return nil, fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	cleanupTemp = false

	return &UploadResult{
		Key:         key,
		URL:         s.URL(key),
		ETag:        fmt.Sprintf(`"%x"`, md5.Sum(data)),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (s *FileStore) URL(key string) string {
	return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
}
