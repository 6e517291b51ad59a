package data

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-ml/facet/internal/tensor"
)

func uniformImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalized_ShapeAndValues(t *testing.T) {
	img := uniformImage(16, 16, color.RGBA{R: 128, G: 64, B: 32, A: 255})
	mean := [3]float32{0.5, 0.5, 0.5}
	std := [3]float32{0.25, 0.25, 0.25}

	out, err := Normalized(8, 8, mean, std)(img)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{3, 8, 8}))

	data := out.AsFloat32()
	plane := 8 * 8
	for ch, v := range []uint8{128, 64, 32} {
		// image.RGBA reports 16-bit channels (v * 257).
		want := (float32(v)*257/65535 - mean[ch]) / std[ch]
		for i := 0; i < plane; i++ {
			assert.InDelta(t, want, data[ch*plane+i], 1e-5)
		}
	}
}

func TestNormalized_ResizesNonSquareSource(t *testing.T) {
	img := uniformImage(30, 10, color.RGBA{A: 255})
	out, err := Normalized(6, 12, DefaultMean, DefaultStd)(img)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{3, 12, 6}))
}

func TestFlipped_ProducesBothOrientations(t *testing.T) {
	// Left half black, right half white: a flip swaps the halves.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{A: 255}
			if x >= 4 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	transform := Flipped(8, 8, [3]float32{}, [3]float32{1, 1, 1}, rand.New(rand.NewSource(5)))
	plain, flipped := 0, 0
	for i := 0; i < 50; i++ {
		out, err := transform(img)
		require.NoError(t, err)
		if out.AsFloat32()[0] == 0 {
			plain++
		} else {
			flipped++
		}
	}
	assert.Greater(t, plain, 0)
	assert.Greater(t, flipped, 0)
}

func TestBuildTransform_Registry(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, name := range AugmentationNames() {
		tr, err := BuildTransform(name, 8, 8, rng)
		require.NoError(t, err, name)
		require.NotNil(t, tr)
	}

	_, err := BuildTransform("cutmix", 8, 8, rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown augmentation")
}

func TestNormalized_RejectsBadResize(t *testing.T) {
	img := uniformImage(4, 4, color.RGBA{A: 255})
	_, err := Normalized(0, 8, DefaultMean, DefaultStd)(img)
	assert.Error(t, err)
}
