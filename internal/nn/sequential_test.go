package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-ml/facet/internal/tensor"
)

func TestSequential_ForwardChainsModules(t *testing.T) {
	l1 := NewLinear(2, 2, rand.New(rand.NewSource(1)))
	setLinear(t, l1, []float32{1, 0, 0, 1}, []float32{-1, -1}) // identity minus one
	l2 := NewLinear(2, 1, rand.New(rand.NewSource(2)))
	setLinear(t, l2, []float32{1, 1}, []float32{0})

	model := NewSequential(l1, NewReLU(), l2)

	input, err := tensor.FromFloat32([]float32{2, 0.5}, tensor.Shape{1, 2})
	require.NoError(t, err)

	out := model.Forward(input)
	// [2, 0.5] -> [1, -0.5] -> relu -> [1, 0] -> sum -> [1]
	assert.Equal(t, []float32{1}, out.AsFloat32())
}

func TestSequential_BackwardRespectsReLUMask(t *testing.T) {
	l1 := NewLinear(2, 2, rand.New(rand.NewSource(1)))
	setLinear(t, l1, []float32{1, 0, 0, 1}, []float32{-1, -1})
	l2 := NewLinear(2, 1, rand.New(rand.NewSource(2)))
	setLinear(t, l2, []float32{1, 1}, []float32{0})

	model := NewSequential(l1, NewReLU(), l2)

	input, err := tensor.FromFloat32([]float32{2, 0.5}, tensor.Shape{1, 2})
	require.NoError(t, err)
	model.Forward(input)

	grad, err := tensor.FromFloat32([]float32{1}, tensor.Shape{1, 1})
	require.NoError(t, err)
	din := model.Backward(grad)

	// The second hidden unit was clamped to zero, so no gradient flows
	// back through it to the second input.
	assert.Equal(t, []float32{1, 0}, din.AsFloat32())
}

func TestSequential_ParametersCollectsChildren(t *testing.T) {
	model := NewSequential(
		NewLinear(4, 3, rand.New(rand.NewSource(1))),
		NewReLU(),
		NewLinear(3, 2, rand.New(rand.NewSource(2))),
	)
	assert.Len(t, model.Parameters(), 4)
}

func TestSequential_StateDictPrefixesChildKeys(t *testing.T) {
	model := NewSequential(
		NewLinear(4, 3, rand.New(rand.NewSource(1))),
		NewReLU(),
		NewLinear(3, 2, rand.New(rand.NewSource(2))),
	)

	sd := model.StateDict()
	assert.Len(t, sd, 4)
	for _, key := range []string{"0.weight", "0.bias", "2.weight", "2.bias"} {
		assert.Contains(t, sd, key)
	}
}

func TestSequential_LoadStateDictRoundTrip(t *testing.T) {
	build := func(seed int64) *Sequential {
		rng := rand.New(rand.NewSource(seed))
		return NewSequential(
			NewLinear(4, 3, rng),
			NewReLU(),
			NewDropout(0.2, rng),
			NewLinear(3, 2, rng),
		)
	}
	src := build(1)
	dst := build(2)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	input, err := tensor.FromFloat32(
		[]float32{0.1, -0.2, 0.3, -0.4}, tensor.Shape{1, 4})
	require.NoError(t, err)

	src.SetTraining(false)
	dst.SetTraining(false)
	assert.Equal(t, src.Forward(input).AsFloat32(), dst.Forward(input).AsFloat32())
}

func TestSequential_LoadStateDictChildError(t *testing.T) {
	src := NewSequential(NewLinear(4, 3, rand.New(rand.NewSource(1))))
	dst := NewSequential(NewLinear(5, 3, rand.New(rand.NewSource(2))))

	err := dst.LoadStateDict(src.StateDict())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module 0")
}
