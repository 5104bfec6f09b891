package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoragePutExistsDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/art/")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "art/u1/a.png", bytes.NewReader([]byte("png")), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "art", "u1", "a.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if ok, err := s.Exists(ctx, "art/u1/a.png"); err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
	if got := s.GetURL("art/u1/a.png"); got != "http://localhost:8080/art/art/u1/a.png" {
		t.Fatalf("unexpected url %q", got)
	}
	if err := s.Delete(ctx, "art/u1/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "art/u1/a.png"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestLocalStorageKeepsKeysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewLocalStorage(filepath.Join(dir, "root"), "http://x")
	if err := s.Put(context.Background(), "../../escape.txt", bytes.NewReader([]byte("x")), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("key escaped the storage root")
	}
}

func TestValidateImage(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))

	if mime, err := ValidateImage(buf.Bytes(), MaxArtSize); err != nil || mime != "image/png" {
		t.Fatalf("expected image/png, got %q %v", mime, err)
	}
	if _, err := ValidateImage(nil, MaxArtSize); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := ValidateImage([]byte("plain text"), MaxArtSize); !errors.Is(err, ErrInvalidMimeType) {
		t.Fatalf("expected ErrInvalidMimeType, got %v", err)
	}
	if _, err := ValidateImage(buf.Bytes(), 4); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}
