package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const contentTypeSuffix = ".content-type"

// LocalObjectStorage keeps objects as files below a root directory.
// The content type is stored in a sidecar file next to each object.
type LocalObjectStorage struct {
	root              string
	baseURL           string
	presignExpiration time.Duration
}

// LocalOption configures LocalObjectStorage
type LocalOption func(*LocalObjectStorage)

// WithBaseURL sets the URL prefix that DownloadURL joins keys onto
func WithBaseURL(baseURL string) LocalOption {
	return func(s *LocalObjectStorage) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLocalPresignExpiration sets the default DownloadURL lifetime
func WithLocalPresignExpiration(d time.Duration) LocalOption {
	return func(s *LocalObjectStorage) {
		if d > 0 {
			s.presignExpiration = d
		}
	}
}

// NewLocalObjectStorage creates the root directory if needed
func NewLocalObjectStorage(root string, opts ...LocalOption) (*LocalObjectStorage, error) {
	if root == "" {
		return nil, errors.New("local storage path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	s := &LocalObjectStorage{
		root:              root,
		baseURL:           "/api/v1/files",
		presignExpiration: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// path resolves key below root, rejecting traversal outside it
func (s *LocalObjectStorage) path(key string) (string, error) {
	if err := requireKey(key); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + key)
	if strings.HasSuffix(clean, contentTypeSuffix) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes the object, replacing any previous content
func (s *LocalObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.WriteFile(p+contentTypeSuffix, []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("failed to write object metadata: %w", err)
	}
	return nil
}

// Get reads the object
func (s *LocalObjectStorage) Get(ctx context.Context, key string) (*Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	contentType := "application/octet-stream"
	if ct, err := os.ReadFile(p + contentTypeSuffix); err == nil && len(ct) > 0 {
		contentType = string(ct)
	}
	return &Object{Key: key, ContentType: contentType, Data: data}, nil
}

// Delete removes the object; a missing object is not an error
func (s *LocalObjectStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	for _, f := range []string{p, p + contentTypeSuffix} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete object: %w", err)
		}
	}
	return nil
}

// Exists reports whether the object is present
func (s *LocalObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// DownloadURL returns a URL under the configured base URL. Local files are
// served by the authenticated files route, so the expiry is advisory.
func (s *LocalObjectStorage) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if err := requireKey(key); err != nil {
		return "", time.Time{}, err
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}
	expiresAt := time.Now().Add(expiresIn)
	u := s.baseURL + "/" + strings.TrimLeft(key, "/") + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

var _ ObjectStorage = (*LocalObjectStorage)(nil)
