package nn

import (
	"fmt"

	"github.com/facet-ml/facet/internal/parallel"
	"github.com/facet-ml/facet/internal/tensor"
)

// MaxPool2d applies non-overlapping max pooling over NCHW input with a
// square window (window size == stride). Trailing rows/columns that do
// not fill a window are discarded, matching the usual floor semantics.
type MaxPool2d struct {
	size int

	inputShape tensor.Shape
	argmax     []int32 // flat input index of each window maximum
	par        parallel.Config
}

// NewMaxPool2d creates a MaxPool2d layer with the given window size.
func NewMaxPool2d(size int) *MaxPool2d {
	if size < 2 {
		panic(fmt.Sprintf("MaxPool2d: window size must be >= 2, got %d", size))
	}
	return &MaxPool2d{size: size, par: parallel.DefaultConfig()}
}

// Forward pools each size×size window down to its maximum.
func (m *MaxPool2d) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("MaxPool2d.Forward: expected 4D input, got %v", shape))
	}
	m.inputShape = shape.Clone()

	batch, channels, h, w := shape[0], shape[1], shape[2], shape[3]
	outH, outW := h/m.size, w/m.size
	if outH == 0 || outW == 0 {
		panic(fmt.Sprintf("MaxPool2d.Forward: input %dx%d smaller than window %d", h, w, m.size))
	}

	out, err := tensor.NewRaw(tensor.Shape{batch, channels, outH, outW}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	x := input.AsFloat32()
	y := out.AsFloat32()
	m.argmax = make([]int32, out.NumElements())

	parallel.ForBatch(batch, channels, func(n, ch int) {
		planeOff := (n*channels + ch) * h * w
		outOff := (n*channels + ch) * outH * outW
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				best := float32(0)
				bestIdx := -1
				for ky := 0; ky < m.size; ky++ {
					for kx := 0; kx < m.size; kx++ {
						idx := planeOff + (oy*m.size+ky)*w + (ox*m.size + kx)
						if bestIdx < 0 || x[idx] > best {
							best = x[idx]
							bestIdx = idx
						}
					}
				}
				y[outOff+oy*outW+ox] = best
				m.argmax[outOff+oy*outW+ox] = int32(bestIdx)
			}
		}
	}, m.par)

	return out
}

// Backward routes each gradient to the input position that won the max.
func (m *MaxPool2d) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if m.argmax == nil {
		panic("MaxPool2d.Backward called before Forward")
	}

	din, err := tensor.NewRaw(m.inputShape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	dx := din.AsFloat32()
	g := grad.AsFloat32()
	for i, idx := range m.argmax {
		dx[idx] += g[i]
	}
	return din
}

// Parameters returns nil; pooling has no trainable state.
func (m *MaxPool2d) Parameters() []*Parameter { return nil }

// SetTraining is a no-op.
func (m *MaxPool2d) SetTraining(bool) {}
