package services

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxItemImageBytes is the largest accepted item image upload
const MaxItemImageBytes = 10 << 20

// ErrUnsupportedImage is returned for uploads that are not JPEG, PNG, GIF or WebP
var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStorageService stores uploaded item photos on local disk
type ImageStorageService struct {
	storageDir string
}

// NewImageStorageService creates the storage directory if needed
func NewImageStorageService(storageDir string) *ImageStorageService {
	if storageDir == "" {
		storageDir = "./data/item_images"
	}

	// Log error but don't fail - will fail on actual writes
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		log.Printf("Warning: could not create item images directory: %v", err)
	}

	return &ImageStorageService{
		storageDir: storageDir,
	}
}

// SaveImage saves image data to disk and returns the generated filename.
// The extension is chosen from the sniffed content type.
func (s *ImageStorageService) SaveImage(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if len(imageData) > MaxItemImageBytes {
		return "", fmt.Errorf("image too large: %d bytes", len(imageData))
	}

	ext, ok := imageExtensions[http.DetectContentType(imageData)]
	if !ok {
		return "", ErrUnsupportedImage
	}

	filename := uuid.New().String() + ext
	filePath := filepath.Join(s.storageDir, filename)

	if err := os.WriteFile(filePath, imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return filename, nil
}

// DeleteImage removes a previously saved image. Missing files are not an error.
func (s *ImageStorageService) DeleteImage(filename string) error {
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid image filename %q", filename)
	}
	err := os.Remove(filepath.Join(s.storageDir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// GetStorageDir returns the storage directory path
func (s *ImageStorageService) GetStorageDir() string {
	return s.storageDir
}
