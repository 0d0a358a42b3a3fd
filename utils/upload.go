package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUploadTooLarge and ErrUploadType are validation failures of SaveImage.
var (
	ErrUploadTooLarge = errors.New("file is too large")
	ErrUploadType     = errors.New("unsupported image type")
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// SaveImage stores an uploaded image as <root>/<sub>/<uuid><ext> and returns its public URL under urlPrefix.
func SaveImage(header *multipart.FileHeader, root, sub, urlPrefix string, maxBytes int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExts[ext] {
		return "", ErrUploadType
	}
	if header.Size > maxBytes {
		return "", ErrUploadTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	// Size header can lie; enforce while copying.
	written, err := io.Copy(out, &io.LimitedReader{R: src, N: maxBytes + 1})
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > maxBytes {
		_ = os.Remove(dstPath)
		return "", ErrUploadTooLarge
	}
	return path.Join(urlPrefix, sub, name), nil
}
