package services

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
)

// UploadsPrefix is the URL path uploaded files are served under.
const UploadsPrefix = "/uploads/"

// ImageStore keeps uploaded images on local disk.
type ImageStore struct {
	dir string
}

func NewImageStore(dir string) *ImageStore {
	if dir == "" {
		dir = "uploads"
	}
	return &ImageStore{dir: dir}
}

// Dir is the directory files are written to.
func (s *ImageStore) Dir() string { return s.dir }

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Save writes data as a new file and returns its public path. Only image/*
// content types are accepted.
func (s *ImageStore) Save(name, contentType string, data []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", apperr.Validation("only image files are allowed")
	}
	if len(data) == 0 {
		return "", apperr.Validation("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = imageExtensions[mediaType]
	}
	fileName := uuid.NewString() + ext

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperr.External(err, "failed to store image")
	}
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return "", apperr.External(err, "failed to store image")
	}
	return UploadsPrefix + fileName, nil
}

// Delete removes a file previously returned by Save. Unknown paths are
// ignored.
func (s *ImageStore) Delete(path string) error {
	if !strings.HasPrefix(path, UploadsPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(path, UploadsPrefix))
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return apperr.External(err, "failed to remove %s", name)
	}
	return nil
}
