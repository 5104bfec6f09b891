package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessFitsCoverAndSquaresThumbnail(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	out, err := p.Process(testPNG(t, 2048, 1024))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Width != 1024 || out.Height != 512 {
		t.Fatalf("cover = %dx%d, want 1024x512", out.Width, out.Height)
	}
	if out.ThumbWidth != 256 || out.ThumbHeight != 256 {
		t.Fatalf("thumb = %dx%d, want 256x256", out.ThumbWidth, out.ThumbHeight)
	}
	if out.ContentType != "image/jpeg" || len(out.Cover) == 0 || len(out.Thumbnail) == 0 {
		t.Fatalf("unexpected output: type=%s cover=%d thumb=%d", out.ContentType, len(out.Cover), len(out.Thumbnail))
	}
}

func TestProcessKeepsSmallImagesAndPNG(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAlpha = true
	out, err := NewProcessor(cfg).Process(testPNG(t, 300, 300))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Width != 300 || out.ContentType != "image/png" {
		t.Fatalf("unexpected cover: %dx%d %s", out.Width, out.Height, out.ContentType)
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	if _, err := NewProcessor(DefaultConfig()).Process([]byte("nope")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestArtPaths(t *testing.T) {
	cover, thumb := ArtPaths("u1", "a1", ".jpg")
	if cover != "art/u1/a1.jpg" || thumb != "art/u1/a1_thumb.jpg" {
		t.Fatalf("unexpected paths %q %q", cover, thumb)
	}
}
