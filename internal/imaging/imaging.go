// Package imaging normalizes captured photos before upload.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"golang.org/x/image/draw"
)

const ContentType = "image/jpeg"

type Options struct {
	MaxWidth int
	Quality  int
}

// Profile picks the JPEG quality per client platform.
type Profile struct {
	MaxWidth             int
	Quality              int
	ConstrainedQuality   int
	ConstrainedPlatforms []string
}

// For returns the options for a client platform. Constrained platforms get the lower quality.
func (p Profile) For(platform string) Options {
	opts := Options{MaxWidth: p.MaxWidth, Quality: p.Quality}
	for _, c := range p.ConstrainedPlatforms {
		if strings.EqualFold(c, platform) {
			opts.Quality = p.ConstrainedQuality
			break
		}
	}
	return opts
}

// Normalize decodes a JPEG or PNG, scales it down to MaxWidth keeping the aspect ratio
// and re-encodes it as JPEG. Images narrower than MaxWidth are only recompressed.
func Normalize(r io.Reader, opts Options) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := src
	b := src.Bounds()
	if opts.MaxWidth > 0 && b.Dx() > opts.MaxWidth {
		h := b.Dy() * opts.MaxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, opts.MaxWidth, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
