package nn

import (
	"github.com/facet-ml/facet/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// The gradient buffer is allocated lazily on first accumulation and
// reused across iterations; ZeroGrad clears it in place.
type Parameter struct {
	name   string
	tensor *tensor.RawTensor
	grad   *tensor.RawTensor
}

// NewParameter creates a new trainable parameter holding t.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before the first backward
// pass.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// EnsureGrad returns the gradient buffer, allocating a zero-filled one
// of the parameter's shape on first use.
func (p *Parameter) EnsureGrad() *tensor.RawTensor {
	if p.grad == nil {
		g, err := tensor.NewRaw(p.tensor.Shape(), tensor.Float32)
		if err != nil {
			panic(err) // parameter shapes are always valid
		}
		p.grad = g
	}
	return p.grad
}

// ZeroGrad clears the gradient buffer in place. Call before each
// training iteration so gradients do not accumulate across batches.
func (p *Parameter) ZeroGrad() {
	if p.grad == nil {
		return
	}
	data := p.grad.AsFloat32()
	for i := range data {
		data[i] = 0
	}
}
