package checkpoint

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/tensor"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.ckpt")

	w, err := tensor.FromFloat32([]float32{1.5, -2.25, 3}, tensor.Shape{3})
	require.NoError(t, err)
	b, err := tensor.FromInt64([]int64{7, -9}, tensor.Shape{2})
	require.NoError(t, err)
	stateDict := map[string]*tensor.RawTensor{"0.weight": w, "0.bias": b}

	require.NoError(t, Save(path, stateDict))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, w.AsFloat32(), loaded["0.weight"].AsFloat32())
	assert.Equal(t, b.AsInt64(), loaded["0.bias"].AsInt64())
	assert.True(t, loaded["0.weight"].Shape().Equal(tensor.Shape{3}))
}

func TestSave_IsByteDeterministic(t *testing.T) {
	dir := t.TempDir()
	w, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	stateDict := map[string]*tensor.RawTensor{"a": w, "b": w.Clone()}

	p1 := filepath.Join(dir, "one.ckpt")
	p2 := filepath.Join(dir, "two.ckpt")
	require.NoError(t, Save(p1, stateDict))
	require.NoError(t, Save(p2, stateDict))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestSave_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := tensor.FromFloat32([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)
	require.NoError(t, Save(filepath.Join(dir, "m.ckpt"), map[string]*tensor.RawTensor{"w": w}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m.ckpt", entries[0].Name())
}

func TestLoad_RejectsCorruptInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ckpt")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestManager_F1Gating(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	model := nn.NewSequential(nn.NewLinear(2, 2, rand.New(rand.NewSource(1))))

	scores := []float32{0.1, 0.3, 0.2, 0.5, 0.5, 0.4}
	wantWrites := []bool{true, true, false, true, false, false}

	for epoch, f1 := range scores {
		written, err := m.Record(0, model, f1)
		require.NoError(t, err)
		assert.Equal(t, wantWrites[epoch], written, "epoch %d (f1=%v)", epoch+1, f1)

		// "last" exists from the very first epoch on.
		_, err = os.Stat(m.LastPath(0))
		assert.NoError(t, err)
	}
	assert.InDelta(t, 0.5, m.BestF1(0), 1e-6)
}

func TestManager_ZeroF1NeverWritesBest(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	model := nn.NewSequential(nn.NewLinear(2, 2, rand.New(rand.NewSource(1))))

	written, err := m.Record(0, model, 0)
	require.NoError(t, err)
	assert.False(t, written)
	_, err = os.Stat(m.BestPath(0))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_SlotsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	model := nn.NewSequential(nn.NewLinear(2, 2, rand.New(rand.NewSource(1))))

	_, err := m.Record(0, model, 0.9)
	require.NoError(t, err)

	// Slot 3 has its own zero baseline; 0.1 is an improvement there.
	written, err := m.Record(3, model, 0.1)
	require.NoError(t, err)
	assert.True(t, written)

	assert.InDelta(t, 0.9, m.BestF1(0), 1e-6)
	assert.InDelta(t, 0.1, m.BestF1(3), 1e-6)
}

func TestManager_BestPreservedWhenLastOverwritten(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	l := nn.NewLinear(2, 2, rand.New(rand.NewSource(1)))
	model := nn.NewSequential(l)

	_, err := m.Record(0, model, 0.8)
	require.NoError(t, err)
	bestBefore, err := os.ReadFile(m.BestPath(0))
	require.NoError(t, err)

	// Params drift, F1 regresses: last changes, best must not.
	l.Parameters()[0].Tensor().AsFloat32()[0] += 42
	_, err = m.Record(0, model, 0.2)
	require.NoError(t, err)

	bestAfter, err := os.ReadFile(m.BestPath(0))
	require.NoError(t, err)
	assert.Equal(t, bestBefore, bestAfter)

	lastDict, err := Load(m.LastPath(0))
	require.NoError(t, err)
	assert.InDelta(t, float64(l.Parameters()[0].Tensor().AsFloat32()[0]),
		float64(lastDict["0.weight"].AsFloat32()[0]), 1e-6)
}
