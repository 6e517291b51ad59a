package nn

import (
	"math"
	"math/rand"

	"github.com/facet-ml/facet/internal/tensor"
)

// Xavier initializes a weight tensor with values drawn from the
// Glorot uniform distribution U(-b, b), b = sqrt(6/(fanIn+fanOut)).
//
// The RNG is passed explicitly so each slot's weights come from its own
// seeded stream and runs stay reproducible.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	data := t.AsFloat32()
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Zeros creates a zero-filled Float32 tensor, the usual bias init.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	t, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	return t
}
