package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	svc := NewImageStorageService(dir)

	filename, err := svc.SaveImage(pngHeader)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, svc.DeleteImage(filename))
	_, err = os.Stat(filepath.Join(dir, filename))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine
	assert.NoError(t, svc.DeleteImage(filename))
}

func TestSaveImageRejects(t *testing.T) {
	svc := NewImageStorageService(t.TempDir())

	_, err := svc.SaveImage(nil)
	assert.Error(t, err)

	_, err = svc.SaveImage([]byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	big := make([]byte, MaxItemImageBytes+1)
	copy(big, pngHeader)
	_, err = svc.SaveImage(big)
	assert.Error(t, err)
}

func TestDeleteImageRejectsPaths(t *testing.T) {
	svc := NewImageStorageService(t.TempDir())
	assert.Error(t, svc.DeleteImage("../secret.png"))
	assert.Error(t, svc.DeleteImage(""))
}

func TestNewImageStorageServiceCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	svc := NewImageStorageService(dir)
	assert.Equal(t, dir, svc.GetStorageDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
