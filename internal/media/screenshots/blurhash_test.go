package screenshots

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestPNG renders a simple two-tone image and returns its PNG bytes.
func encodeTestPNG(t *testing.T, w, h int, top, bottom color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := top
		if y >= h/2 {
			c = bottom
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeBlurHash(t *testing.T) {
	data := encodeTestPNG(t, 320, 568,
		color.RGBA{R: 230, G: 230, B: 250, A: 255},
		color.RGBA{R: 30, G: 30, B: 60, A: 255})

	hash, err := ComputeBlurHash(data)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Same input, same hash.
	again, err := ComputeBlurHash(data)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestComputeBlurHash_DifferentImages(t *testing.T) {
	light := encodeTestPNG(t, 128, 128,
		color.RGBA{R: 250, G: 250, B: 250, A: 255},
		color.RGBA{R: 240, G: 240, B: 240, A: 255})
	dark := encodeTestPNG(t, 128, 128,
		color.RGBA{R: 10, G: 10, B: 10, A: 255},
		color.RGBA{R: 20, G: 20, B: 20, A: 255})

	lightHash, err := ComputeBlurHash(light)
	require.NoError(t, err)
	darkHash, err := ComputeBlurHash(dark)
	require.NoError(t, err)

	assert.NotEqual(t, lightHash, darkHash)
}

func TestComputeBlurHash_TinyImage(t *testing.T) {
	// Smaller than the thumbnail size: used as-is.
	data := encodeTestPNG(t, 16, 16,
		color.RGBA{R: 100, G: 150, B: 200, A: 255},
		color.RGBA{R: 200, G: 150, B: 100, A: 255})

	hash, err := ComputeBlurHash(data)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestComputeBlurHash_NotAnImage(t *testing.T) {
	hash, err := ComputeBlurHash([]byte("not an image"))
	assert.Error(t, err)
	assert.Empty(t, hash)
}

func TestResizeForBlurHash_AspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 320))
	resized := resizeForBlurHash(img)

	bounds := resized.Bounds()
	assert.Equal(t, blurHashSize, bounds.Dx())
	assert.Equal(t, blurHashSize/2, bounds.Dy())
}
