package data

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wholePool builds a partition over the first n records of source with
// an 8x8 eval transform attached.
func wholePool(t *testing.T, source Source, n int) *Partition {
	t.Helper()
	require.LessOrEqual(t, n, len(source.Records()))
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	p := &Partition{source: source, indices: indices}
	p.SetTransform(EvalTransform(8, 8))
	return p
}

func TestLoader_DropLast(t *testing.T) {
	source := NewSynthetic(17, 1, 8, 8, 1)
	p := wholePool(t, source, 17)

	loader, err := NewLoader(p, 5, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, loader.Len())

	batches := 0
	for {
		batch, ok, err := loader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, 5, batch.Size())
		batches++
	}
	assert.Equal(t, 3, batches, "trailing partial batch must be dropped")
}

func TestLoader_BatchContents(t *testing.T) {
	source := NewSynthetic(6, 1, 8, 8, 1)
	p := wholePool(t, source, 6)

	loader, err := NewLoader(p, 3, false, nil)
	require.NoError(t, err)

	batch, ok, err := loader.Next()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []int{3, 3, 8, 8}, []int(batch.Inputs.Shape()))
	// Unshuffled labels follow the pool's class cycle.
	assert.Equal(t, []int64{0, 1, 2}, batch.Labels.AsInt64())
}

func TestLoader_ResetStartsFreshEpoch(t *testing.T) {
	source := NewSynthetic(4, 1, 8, 8, 1)
	p := wholePool(t, source, 4)

	loader, err := NewLoader(p, 2, false, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, ok, err := loader.Next()
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, err := loader.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	loader.Reset()
	_, ok, err = loader.Next()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoader_ShuffleIsSeedDeterministic(t *testing.T) {
	source := NewSynthetic(12, 1, 8, 8, 1)

	labelsFor := func(seed int64) []int64 {
		p := wholePool(t, source, 12)
		loader, err := NewLoader(p, 4, true, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		var labels []int64
		for {
			batch, ok, err := loader.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			labels = append(labels, append([]int64(nil), batch.Labels.AsInt64()...)...)
		}
		return labels
	}

	assert.Equal(t, labelsFor(7), labelsFor(7))
	assert.NotEqual(t, labelsFor(7), labelsFor(8))
}

func TestNewLoader_RejectsUndersizedPartition(t *testing.T) {
	source := NewSynthetic(3, 1, 8, 8, 1)
	p := wholePool(t, source, 3)

	_, err := NewLoader(p, 5, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one full batch")
}

func TestLoader_ReleaseDropsBuffers(t *testing.T) {
	source := NewSynthetic(4, 1, 8, 8, 1)
	p := wholePool(t, source, 4)

	loader, err := NewLoader(p, 2, false, nil)
	require.NoError(t, err)

	_, ok, err := loader.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, loader.inputs)

	loader.Release()
	assert.Nil(t, loader.inputs)
	assert.Nil(t, loader.labels)

	loader.Reset()
	batch, ok, err := loader.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, batch.Size())
}
