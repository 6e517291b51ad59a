package nn

import (
	"github.com/facet-ml/facet/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] into [batch, d1*d2*...], the
// bridge between conv blocks and the classifier head.
type Flatten struct {
	inputShape tensor.Shape // cached for backward
}

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Forward flattens all dimensions after the batch dimension.
func (f *Flatten) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) < 2 {
		panic("Flatten.Forward: input must have a batch dimension")
	}
	f.inputShape = shape.Clone()

	out, err := input.Reshape(tensor.Shape{shape[0], shape.NumElements() / shape[0]})
	if err != nil {
		panic(err)
	}
	return out
}

// Backward restores the original shape of the gradient.
func (f *Flatten) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if f.inputShape == nil {
		panic("Flatten.Backward called before Forward")
	}
	out, err := grad.Reshape(f.inputShape)
	if err != nil {
		panic(err)
	}
	return out
}

// Parameters returns nil; Flatten has no trainable state.
func (f *Flatten) Parameters() []*Parameter { return nil }

// SetTraining is a no-op.
func (f *Flatten) SetTraining(bool) {}
