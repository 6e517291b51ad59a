package nn

import (
	"github.com/facet-ml/facet/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
type ReLU struct {
	input *tensor.RawTensor // cached for backward
}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward computes max(0, x).
func (r *ReLU) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	r.input = input

	out := input.Clone()
	data := out.AsFloat32()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return out
}

// Backward zeroes the gradient wherever the input was negative.
func (r *ReLU) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if r.input == nil {
		panic("ReLU.Backward called before Forward")
	}
	out := grad.Clone()
	g := out.AsFloat32()
	x := r.input.AsFloat32()
	for i := range g {
		if x[i] <= 0 {
			g[i] = 0
		}
	}
	return out
}

// Parameters returns nil; ReLU has no trainable state.
func (r *ReLU) Parameters() []*Parameter { return nil }

// SetTraining is a no-op.
func (r *ReLU) SetTraining(bool) {}
