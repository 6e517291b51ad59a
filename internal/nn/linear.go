package nn

import (
	"fmt"
	"math/rand"

	"github.com/facet-ml/facet/internal/parallel"
	"github.com/facet-ml/facet/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// Weight shape is [outFeatures, inFeatures], bias [outFeatures].
// Weights use Xavier initialization, biases start at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter

	input *tensor.RawTensor // cached for backward
	par   parallel.Config
}

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures,
		tensor.Shape{outFeatures, inFeatures}, rng))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}))

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		par:         parallel.DefaultConfig(),
	}
}

// Forward computes y = x @ W.T + b for x of shape [batch, inFeatures].
func (l *Linear) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input [batch, %d], got %v", l.inFeatures, shape))
	}
	l.input = input

	batch := shape[0]
	out, err := tensor.NewRaw(tensor.Shape{batch, l.outFeatures}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	x := input.AsFloat32()
	w := l.weight.Tensor().AsFloat32()
	b := l.bias.Tensor().AsFloat32()
	y := out.AsFloat32()

	parallel.For(batch, func(i int) {
		xRow := x[i*l.inFeatures : (i+1)*l.inFeatures]
		yRow := y[i*l.outFeatures : (i+1)*l.outFeatures]
		for o := 0; o < l.outFeatures; o++ {
			wRow := w[o*l.inFeatures : (o+1)*l.inFeatures]
			sum := b[o]
			for k, xv := range xRow {
				sum += xv * wRow[k]
			}
			yRow[o] = sum
		}
	}, l.par)

	return out
}

// Backward accumulates dW = grad.T @ x and db = column sums of grad,
// and returns dX = grad @ W.
func (l *Linear) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	if l.input == nil {
		panic("Linear.Backward called before Forward")
	}
	shape := grad.Shape()
	batch := l.input.Shape()[0]
	if len(shape) != 2 || shape[0] != batch || shape[1] != l.outFeatures {
		panic(fmt.Sprintf("Linear.Backward: expected grad [%d, %d], got %v", batch, l.outFeatures, shape))
	}

	x := l.input.AsFloat32()
	w := l.weight.Tensor().AsFloat32()
	g := grad.AsFloat32()

	gw := l.weight.EnsureGrad().AsFloat32()
	gb := l.bias.EnsureGrad().AsFloat32()

	// Parameter gradients stay sequential over the batch: every sample
	// touches the full weight matrix.
	for i := 0; i < batch; i++ {
		xRow := x[i*l.inFeatures : (i+1)*l.inFeatures]
		gRow := g[i*l.outFeatures : (i+1)*l.outFeatures]
		for o, gv := range gRow {
			if gv == 0 {
				continue
			}
			gwRow := gw[o*l.inFeatures : (o+1)*l.inFeatures]
			for k, xv := range xRow {
				gwRow[k] += gv * xv
			}
			gb[o] += gv
		}
	}

	din, err := tensor.NewRaw(tensor.Shape{batch, l.inFeatures}, tensor.Float32)
	if err != nil {
		panic(err)
	}
	dx := din.AsFloat32()
	parallel.For(batch, func(i int) {
		gRow := g[i*l.outFeatures : (i+1)*l.outFeatures]
		dxRow := dx[i*l.inFeatures : (i+1)*l.inFeatures]
		for o, gv := range gRow {
			if gv == 0 {
				continue
			}
			wRow := w[o*l.inFeatures : (o+1)*l.inFeatures]
			for k := range dxRow {
				dxRow[k] += gv * wRow[k]
			}
		}
	}, l.par)

	return din
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// SetTraining is a no-op; Linear behaves identically in both modes.
func (l *Linear) SetTraining(bool) {}

// StateDict returns the layer's parameters keyed by name.
func (l *Linear) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor(),
		"bias":   l.bias.Tensor(),
	}
}

// LoadStateDict restores weight and bias, validating shapes.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadParams(stateDict, l.weight, l.bias)
}

// loadParams copies named entries from stateDict into params after shape
// validation. Shared by every parameterized layer.
func loadParams(stateDict map[string]*tensor.RawTensor, params ...*Parameter) error {
	for _, p := range params {
		raw, ok := stateDict[p.Name()]
		if !ok {
			return fmt.Errorf("missing %q in state dict", p.Name())
		}
		if !raw.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("%s shape mismatch: expected %v, got %v",
				p.Name(), p.Tensor().Shape(), raw.Shape())
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("%s dtype mismatch: expected float32, got %v", p.Name(), raw.DType())
		}
		copy(p.Tensor().AsFloat32(), raw.AsFloat32())
	}
	return nil
}
