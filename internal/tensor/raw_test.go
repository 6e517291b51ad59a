package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw_ZeroFilled(t *testing.T) {
	r, err := NewRaw(Shape{2, 3}, Float32)
	require.NoError(t, err)

	assert.Equal(t, 6, r.NumElements())
	assert.Equal(t, 24, r.ByteSize())
	for _, v := range r.AsFloat32() {
		assert.Zero(t, v)
	}
}

func TestNewRaw_InvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32)
	require.Error(t, err)
}

func TestFromFloat32_RoundTrip(t *testing.T) {
	values := []float32{1, 2, 3, 4}
	r, err := FromFloat32(values, Shape{2, 2})
	require.NoError(t, err)
	assert.Equal(t, values, r.AsFloat32())

	// The tensor owns its copy.
	values[0] = 99
	assert.Equal(t, float32(1), r.AsFloat32()[0])
}

func TestFromInt64_CountMismatch(t *testing.T) {
	_, err := FromInt64([]int64{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
}

func TestClone_Independent(t *testing.T) {
	r, err := FromFloat32([]float32{1, 2}, Shape{2})
	require.NoError(t, err)

	c := r.Clone()
	c.AsFloat32()[0] = 42
	assert.Equal(t, float32(1), r.AsFloat32()[0])
	assert.True(t, r.Shape().Equal(c.Shape()))
}

func TestReshape_SharesPayload(t *testing.T) {
	r, err := FromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)

	v, err := r.Reshape(Shape{3, 2})
	require.NoError(t, err)
	v.AsFloat32()[5] = 60
	assert.Equal(t, float32(60), r.AsFloat32()[5])

	_, err = r.Reshape(Shape{4, 2})
	require.Error(t, err)
}

func TestAsFloat32_WrongDType(t *testing.T) {
	r, err := NewRaw(Shape{2}, Int64)
	require.NoError(t, err)
	assert.Panics(t, func() { r.AsFloat32() })
}
