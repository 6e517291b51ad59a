package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/tensor"
)

func newParam(t *testing.T, vals []float32) *nn.Parameter {
	t.Helper()
	raw, err := tensor.FromFloat32(vals, tensor.Shape{len(vals)})
	require.NoError(t, err)
	return nn.NewParameter("weight", raw)
}

func setGrad(p *nn.Parameter, vals []float32) {
	copy(p.EnsureGrad().AsFloat32(), vals)
}

func TestSGD_BasicUpdate(t *testing.T) {
	p := newParam(t, []float32{1, 2, 3})
	setGrad(p, []float32{0.5, -0.5, 1})

	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 0.1})
	sgd.Step()

	assert.InDeltaSlice(t, []float32{0.95, 2.05, 2.9}, p.Tensor().AsFloat32(), 1e-6)
}

func TestSGD_MomentumAccumulates(t *testing.T) {
	p := newParam(t, []float32{0})
	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 1, Momentum: 0.5})

	setGrad(p, []float32{1})
	sgd.Step() // velocity 1, param -1
	sgd.Step() // velocity 1.5, param -2.5

	assert.InDelta(t, -2.5, p.Tensor().AsFloat32()[0], 1e-6)
}

func TestSGD_WeightDecayPullsTowardZero(t *testing.T) {
	p := newParam(t, []float32{10})
	setGrad(p, []float32{0})

	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 0.1, WeightDecay: 0.5})
	sgd.Step()

	// grad = 0 + 0.5*10 = 5, update = -0.1*5
	assert.InDelta(t, 9.5, p.Tensor().AsFloat32()[0], 1e-6)
}

func TestSGD_SkipsParamsWithoutGrad(t *testing.T) {
	p := newParam(t, []float32{1, 2})
	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 0.1})
	sgd.Step()

	assert.Equal(t, []float32{1, 2}, p.Tensor().AsFloat32())
}

func TestAdam_FirstStepMovesByLR(t *testing.T) {
	p := newParam(t, []float32{1, 1})
	setGrad(p, []float32{0.3, -0.7})

	adam := NewAdam([]*nn.Parameter{p}, Config{LR: 0.01})
	adam.Step()

	// After bias correction the first update is lr * g/(|g|+eps), i.e.
	// one learning-rate step in the gradient's direction.
	got := p.Tensor().AsFloat32()
	assert.InDelta(t, 0.99, got[0], 1e-4)
	assert.InDelta(t, 1.01, got[1], 1e-4)
	assert.Equal(t, 1, adam.Timestep())
}

func TestAdam_ConvergesOnQuadratic(t *testing.T) {
	// Minimize f(x) = x² from x=1; gradient is 2x.
	p := newParam(t, []float32{1})
	adam := NewAdam([]*nn.Parameter{p}, Config{LR: 0.05})

	for i := 0; i < 200; i++ {
		adam.ZeroGrad()
		x := p.Tensor().AsFloat32()[0]
		setGrad(p, []float32{2 * x})
		adam.Step()
	}

	assert.InDelta(t, 0, p.Tensor().AsFloat32()[0], 0.1)
}

func TestZeroGrad_ClearsBuffers(t *testing.T) {
	p := newParam(t, []float32{1})
	setGrad(p, []float32{5})

	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 0.1})
	sgd.ZeroGrad()

	assert.Equal(t, []float32{0}, p.Grad().AsFloat32())
}

func TestBuild_KnownAndUnknownNames(t *testing.T) {
	p := newParam(t, []float32{1})

	opt, err := Build(NameAdam, []*nn.Parameter{p}, Config{LR: 0.001})
	require.NoError(t, err)
	assert.IsType(t, &Adam{}, opt)

	opt, err = Build(NameSGD, []*nn.Parameter{p}, Config{LR: 0.01})
	require.NoError(t, err)
	assert.IsType(t, &SGD{}, opt)

	_, err = Build("adamw", nil, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown optimizer")

	assert.Equal(t, []string{NameAdam, NameSGD}, Names())
}

func TestStepLR_DecaysEveryStepSizeEpochs(t *testing.T) {
	p := newParam(t, []float32{1})
	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 1})
	sched := NewStepLR(sgd, 2, 0.5)

	want := []float32{1, 0.5, 0.5, 0.25, 0.25, 0.125}
	for i, lr := range want {
		sched.Step()
		assert.InDelta(t, lr, sgd.LR(), 1e-7, "epoch %d", i+1)
	}
}

func TestStepLR_LRAtIsPure(t *testing.T) {
	p := newParam(t, []float32{1})
	sgd := NewSGD([]*nn.Parameter{p}, Config{LR: 0.8})
	sched := NewStepLR(sgd, 3, 0.5)

	assert.InDelta(t, 0.8, sched.LRAt(2), 1e-7)
	assert.InDelta(t, 0.4, sched.LRAt(3), 1e-7)
	assert.InDelta(t, 0.2, sched.LRAt(6), 1e-7)
}
