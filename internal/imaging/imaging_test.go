package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestNormalize(t *testing.T) {
	t.Run("DownscalesPreservingAspectRatio", func(t *testing.T) {
		out, err := Normalize(pngOf(t, 400, 200), Options{MaxWidth: 100, Quality: 70})
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 50, img.Bounds().Dy())
	})

	t.Run("KeepsSmallImagesSize", func(t *testing.T) {
		out, err := Normalize(pngOf(t, 80, 60), Options{MaxWidth: 100, Quality: 70})
		require.NoError(t, err)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 80, cfg.Width)
		assert.Equal(t, 60, cfg.Height)
	})

	t.Run("RejectsNonImages", func(t *testing.T) {
		_, err := Normalize(strings.NewReader("not an image"), Options{MaxWidth: 100})
		assert.Error(t, err)
	})
}

func TestProfile_For(t *testing.T) {
	p := Profile{MaxWidth: 1280, Quality: 80, ConstrainedQuality: 60, ConstrainedPlatforms: []string{"android"}}

	assert.Equal(t, Options{MaxWidth: 1280, Quality: 60}, p.For("Android"))
	assert.Equal(t, Options{MaxWidth: 1280, Quality: 80}, p.For("ios"))
	assert.Equal(t, Options{MaxWidth: 1280, Quality: 80}, p.For(""))
}
