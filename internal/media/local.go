package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps images on disk under basePath and serves them from
// baseURL.
type LocalStore struct {
	basePath string
	baseURL  string
}

func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, folder, contentType string, r io.Reader) (Object, error) {
	if !AllowedImage(contentType) {
		return Object{}, ErrUnsupportedType
	}
	contentType = normalizeType(contentType)
	folder = strings.Trim(filepath.Clean("/"+folder), "/")
	publicID := uuid.NewString() + imageExts[contentType]
	if folder != "" {
		publicID = folder + "/" + publicID
	}
	path, err := s.safeJoin(publicID)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("create folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("close file: %w", err)
	}
	return Object{PublicID: publicID, URL: s.baseURL + "/" + publicID, ContentType: contentType}, nil
}

func (s *LocalStore) Open(ctx context.Context, publicID string) (io.ReadCloser, string, error) {
	path, err := s.safeJoin(publicID)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	return f, contentTypeFor(path), nil
}

func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	path, err := s.safeJoin(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// safeJoin resolves publicID under basePath and rejects traversal.
func (s *LocalStore) safeJoin(publicID string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, publicID))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
