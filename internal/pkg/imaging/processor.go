package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// ProcessedImage contains the cover and thumbnail renditions of album art.
type ProcessedImage struct {
	Cover       []byte
	Thumbnail   []byte
	ContentType string
	Width       int
	Height      int
	ThumbWidth  int
	ThumbHeight int
}

// Config for image processing
type Config struct {
	MaxWidth  int // Max cover width (default 1024)
	MaxHeight int // Max cover height (default 1024)
	ThumbSize int // Square thumbnail edge (default 256)
	Quality   int // JPEG quality 1-100 (default 88)
	KeepAlpha bool
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxWidth:  1024,
		MaxHeight: 1024,
		ThumbSize: 256,
		Quality:   88,
	}
}

// Processor handles image processing
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

// Process fits the image inside the cover bounds and cuts a centred square
// thumbnail. PNG input stays PNG when KeepAlpha is set; everything else is
// re-encoded as JPEG.
func (p *Processor) Process(data []byte) (*ProcessedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	asPNG := p.config.KeepAlpha && format == "png"
	result := &ProcessedImage{
		ContentType: "image/jpeg",
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}
	if asPNG {
		result.ContentType = "image/png"
	}

	cover := img
	if result.Width > p.config.MaxWidth || result.Height > p.config.MaxHeight {
		cover = imaging.Fit(img, p.config.MaxWidth, p.config.MaxHeight, imaging.Lanczos)
		result.Width = cover.Bounds().Dx()
		result.Height = cover.Bounds().Dy()
	}
	if result.Cover, err = p.encode(cover, asPNG); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}

	thumb := imaging.Fill(img, p.config.ThumbSize, p.config.ThumbSize, imaging.Center, imaging.Lanczos)
	result.ThumbWidth = thumb.Bounds().Dx()
	result.ThumbHeight = thumb.Bounds().Dy()
	if result.Thumbnail, err = p.encode(thumb, asPNG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return result, nil
}

func (p *Processor) encode(img image.Image, asPNG bool) ([]byte, error) {
	var buf bytes.Buffer
	if asPNG {
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArtPaths returns the storage keys for an artwork's cover and thumbnail.
func ArtPaths(owner, artID, ext string) (cover, thumb string) {
	cover = fmt.Sprintf("art/%s/%s%s", owner, artID, ext)
	thumb = fmt.Sprintf("art/%s/%s_thumb%s", owner, artID, ext)
	return
}
