package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-ml/facet/internal/tensor"
)

func setLinear(t *testing.T, l *Linear, weight, bias []float32) {
	t.Helper()
	copy(l.weight.Tensor().AsFloat32(), weight)
	copy(l.bias.Tensor().AsFloat32(), bias)
}

func TestLinear_ForwardKnownValues(t *testing.T) {
	l := NewLinear(3, 2, rand.New(rand.NewSource(1)))
	// W = [[1,0,1],[0,2,0]], b = [1,-1]
	setLinear(t, l, []float32{1, 0, 1, 0, 2, 0}, []float32{1, -1})

	input, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	out := l.Forward(input)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
	// row0: [1+3+1, 4-1] = [5, 3]; row1: [4+6+1, 10-1] = [11, 9]
	assert.Equal(t, []float32{5, 3, 11, 9}, out.AsFloat32())
}

func TestLinear_BackwardMatchesNumericGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := NewLinear(4, 3, rng)

	inputVals := make([]float32, 2*4)
	for i := range inputVals {
		inputVals[i] = rng.Float32()*2 - 1
	}
	input, err := tensor.FromFloat32(inputVals, tensor.Shape{2, 4})
	require.NoError(t, err)

	// Scalar objective: sum of outputs, so dL/dOutput is all ones.
	objective := func() float32 {
		out := l.Forward(input)
		sum := float32(0)
		for _, v := range out.AsFloat32() {
			sum += v
		}
		return sum
	}

	ones, err := tensor.FromFloat32([]float32{1, 1, 1, 1, 1, 1}, tensor.Shape{2, 3})
	require.NoError(t, err)
	din := l.Backward(ones)

	const eps = 1e-3
	// Weight gradient check.
	w := l.weight.Tensor().AsFloat32()
	gw := l.weight.Grad().AsFloat32()
	for _, idx := range []int{0, 5, 11} {
		orig := w[idx]
		w[idx] = orig + eps
		plus := objective()
		w[idx] = orig - eps
		minus := objective()
		w[idx] = orig

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, gw[idx], 1e-2, "weight grad at %d", idx)
	}

	// Input gradient check.
	dx := din.AsFloat32()
	for _, idx := range []int{0, 3, 7} {
		orig := inputVals[idx]
		input.AsFloat32()[idx] = orig + eps
		plus := objective()
		input.AsFloat32()[idx] = orig - eps
		minus := objective()
		input.AsFloat32()[idx] = orig

		numeric := (plus - minus) / (2 * eps)
		assert.InDelta(t, numeric, dx[idx], 1e-2, "input grad at %d", idx)
	}
}

func TestLinear_StateDictRoundTrip(t *testing.T) {
	src := NewLinear(3, 2, rand.New(rand.NewSource(1)))
	dst := NewLinear(3, 2, rand.New(rand.NewSource(2)))

	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, src.weight.Tensor().AsFloat32(), dst.weight.Tensor().AsFloat32())
	assert.Equal(t, src.bias.Tensor().AsFloat32(), dst.bias.Tensor().AsFloat32())
}

func TestLinear_LoadStateDictShapeMismatch(t *testing.T) {
	src := NewLinear(4, 2, rand.New(rand.NewSource(1)))
	dst := NewLinear(3, 2, rand.New(rand.NewSource(2)))

	err := dst.LoadStateDict(src.StateDict())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}
