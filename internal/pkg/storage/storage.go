package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("stored file not found")
)

// Store abstracts the file store the document registry writes scans
// into. The core only ever holds the returned fileRef, never raw bytes.
type Store interface {
	Store(data []byte, contentType string) (string, error)
	Retrieve(fileRef string) ([]byte, error)
	Delete(fileRef string) error
}

// LocalStore writes files under a base directory. Uploads land here
// before the DB row commits; a crash in between leaves an orphan file,
// which is why Delete is used as the compensating action when the
// surrounding transaction fails.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local file store rooted at baseDir
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// extensions maps accepted content types to file extensions
var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/tiff":      ".tif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Accepted reports whether the content type is an accepted scan format
func Accepted(contentType string) bool {
	_, ok := extensions[normalize(contentType)]
	return ok
}

func normalize(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Store writes the payload under a generated name and returns the fileRef
func (s *LocalStore) Store(data []byte, contentType string) (string, error) {
	ext, ok := extensions[normalize(contentType)]
	if !ok {
		ext = ".bin"
	}
	ref := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.baseDir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return ref, nil
}

// Retrieve reads a stored file back
func (s *LocalStore) Retrieve(fileRef string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(fileRef)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a stored file. Missing files are not an error so the
// compensating path stays idempotent.
func (s *LocalStore) Delete(fileRef string) error {
	err := os.Remove(filepath.Join(s.baseDir, filepath.Base(fileRef)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
