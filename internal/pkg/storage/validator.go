package storage

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidMimeType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// MaxArtSize caps a generated album art payload.
const MaxArtSize = 10 * 1024 * 1024

var allowedArtTypes = []string{"image/jpeg", "image/png", "image/gif"}

// ValidateImage sniffs the content type of an image payload from its magic
// bytes and checks it against the album art allowlist.
func ValidateImage(data []byte, maxSize int) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > maxSize {
		return "", ErrFileTooLarge
	}

	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	for _, t := range allowedArtTypes {
		if t == mimeType {
			return mimeType, nil
		}
	}
	return "", ErrInvalidMimeType
}

// ExtensionForMime returns the file extension for a MIME type
func ExtensionForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
