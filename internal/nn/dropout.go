package nn

import (
	"fmt"
	"math/rand"

	"github.com/facet-ml/facet/internal/tensor"
)

// Dropout randomly zeroes activations with probability p during
// training and rescales the survivors by 1/(1-p) (inverted dropout).
// In eval mode it is the identity, which is what makes the trainer's
// train/eval mode toggle observable.
type Dropout struct {
	p        float32
	training bool
	rng      *rand.Rand
	mask     []float32 // cached for backward
}

// NewDropout creates a Dropout layer. p must be in [0, 1).
func NewDropout(p float32, rng *rand.Rand) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: p must be in [0, 1), got %v", p))
	}
	return &Dropout{p: p, rng: rng}
}

// Forward applies the dropout mask in training mode, identity otherwise.
func (d *Dropout) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	if !d.training || d.p == 0 {
		d.mask = nil
		return input
	}

	out := input.Clone()
	data := out.AsFloat32()
	scale := 1 / (1 - d.p)

	d.mask = make([]float32, len(data))
	for i := range data {
		if d.rng.Float32() < d.p {
			data[i] = 0
		} else {
			d.mask[i] = scale
			data[i] *= scale
		}
	}
	return out
}

// Backward applies the same mask to the incoming gradient.
func (d *Dropout) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if d.mask == nil {
		return grad
	}
	out := grad.Clone()
	g := out.AsFloat32()
	for i := range g {
		g[i] *= d.mask[i]
	}
	return out
}

// Parameters returns nil; Dropout has no trainable state.
func (d *Dropout) Parameters() []*Parameter { return nil }

// SetTraining toggles the dropout mask on or off.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}
