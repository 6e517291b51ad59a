package data

import (
	"fmt"
	"image"
	"math/rand"
	"sort"

	"github.com/facet-ml/facet/internal/tensor"
)

// Transform converts a decoded image into a normalized [C, H, W]
// float32 tensor ready for a model's forward pass.
type Transform func(img image.Image) (*tensor.RawTensor, error)

// Per-channel statistics of the face-attribute pool, used as the
// default normalization.
var (
	DefaultMean = [3]float32{0.548, 0.504, 0.479}
	DefaultStd  = [3]float32{0.237, 0.247, 0.246}
)

// Names of the supported train-time augmentations, usable with
// BuildTransform.
const (
	AugmentationBase = "base"
	AugmentationFlip = "flip"
)

// BuildTransform constructs a train-time transform by augmentation
// name. rng drives any stochastic augmentation and must be owned by one
// slot. Unknown names fail fast.
func BuildTransform(name string, width, height int, rng *rand.Rand) (Transform, error) {
	switch name {
	case AugmentationBase:
		return Normalized(width, height, DefaultMean, DefaultStd), nil
	case AugmentationFlip:
		return Flipped(width, height, DefaultMean, DefaultStd, rng), nil
	default:
		return nil, fmt.Errorf("unknown augmentation %q (available: %v)", name, AugmentationNames())
	}
}

// AugmentationNames returns the registered augmentation names, sorted.
func AugmentationNames() []string {
	names := []string{AugmentationBase, AugmentationFlip}
	sort.Strings(names)
	return names
}

// EvalTransform is the deterministic transform validation always uses,
// regardless of the train-time augmentation.
func EvalTransform(width, height int) Transform {
	return Normalized(width, height, DefaultMean, DefaultStd)
}

// Normalized resizes to width×height and normalizes channels with the
// given per-channel mean and standard deviation.
func Normalized(width, height int, mean, std [3]float32) Transform {
	return func(img image.Image) (*tensor.RawTensor, error) {
		return toTensor(img, width, height, mean, std, false)
	}
}

// Flipped is Normalized plus a random horizontal flip with probability
// one half.
func Flipped(width, height int, mean, std [3]float32, rng *rand.Rand) Transform {
	return func(img image.Image) (*tensor.RawTensor, error) {
		return toTensor(img, width, height, mean, std, rng.Float32() < 0.5)
	}
}

// toTensor samples the image with nearest-neighbor resize into a
// [3, height, width] tensor, scaling to [0, 1] then normalizing.
func toTensor(img image.Image, width, height int, mean, std [3]float32, flip bool) (*tensor.RawTensor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize %dx%d", width, height)
	}
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("empty image")
	}

	out, err := tensor.NewRaw(tensor.Shape{3, height, width}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	data := out.AsFloat32()
	plane := width * height

	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*srcH/height
		for x := 0; x < width; x++ {
			sx := x
			if flip {
				sx = width - 1 - x
			}
			srcX := bounds.Min.X + sx*srcW/width

			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// RGBA returns 16-bit channels.
			data[0*plane+y*width+x] = (float32(r)/65535 - mean[0]) / std[0]
			data[1*plane+y*width+x] = (float32(g)/65535 - mean[1]) / std[1]
			data[2*plane+y*width+x] = (float32(b)/65535 - mean[2]) / std[2]
		}
	}
	return out, nil
}
