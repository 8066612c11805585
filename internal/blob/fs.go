// Package blob implements the durable document archive.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// FSStore archives blobs under a root directory. Keys map directly to
// relative paths.
type FSStore struct {
	root   string
	logger arbor.ILogger
}

func NewFSStore(root string, logger arbor.ILogger) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FSStore{root: root, logger: logger}, nil
}

// path resolves a key inside the root, rejecting traversal.
func (s *FSStore) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key: %s", key)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *FSStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	target, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug().
			Str("key", key).
			Int("size", len(data)).
			Msg("Blob archived")
	}
	return "file://" + target, nil
}

func (s *FSStore) Download(ctx context.Context, key string, localPath string) error {
	source, err := s.path(key)
	if err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy blob: %w", err)
	}
	return nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// PresignedURL returns the file URL; the filesystem backend has no notion
// of expiry.
func (s *FSStore) PresignedURL(ctx context.Context, key string, _ time.Duration) (string, error) {
	target, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		return "", fmt.Errorf("blob not found: %s", key)
	}
	return "file://" + target, nil
}
