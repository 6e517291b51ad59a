package train

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/facet-ml/facet/internal/nn"
)

// Names of the reference architectures, usable with BuildModel. Each
// ensemble slot selects one independently.
const (
	ModelMLP     = "mlp"
	ModelMLPWide = "mlp_wide"
	ModelMLPDeep = "mlp_deep"
	ModelCNN     = "cnn"
	ModelCNNDeep = "cnn_deep"
)

type modelBuilder func(numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error)

var modelBuilders = map[string]modelBuilder{
	ModelMLP:     buildMLP(128),
	ModelMLPWide: buildMLP(256),
	ModelMLPDeep: buildDeepMLP,
	ModelCNN:     buildCNN,
	ModelCNNDeep: buildDeepCNN,
}

// BuildModel constructs a reference architecture by name for
// width×height RGB inputs. Unknown names fail fast.
func BuildModel(name string, numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error) {
	builder, ok := modelBuilders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %v)", name, ModelNames())
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", width, height)
	}
	return builder(numClasses, width, height, rng)
}

// ModelNames returns the registered architecture names, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(modelBuilders))
	for name := range modelBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildMLP(hidden int) modelBuilder {
	return func(numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error) {
		in := 3 * width * height
		return nn.NewSequential(
			nn.NewFlatten(),
			nn.NewLinear(in, hidden, rng),
			nn.NewReLU(),
			nn.NewDropout(0.3, rng),
			nn.NewLinear(hidden, numClasses, rng),
		), nil
	}
}

func buildDeepMLP(numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error) {
	in := 3 * width * height
	return nn.NewSequential(
		nn.NewFlatten(),
		nn.NewLinear(in, 128, rng),
		nn.NewReLU(),
		nn.NewDropout(0.3, rng),
		nn.NewLinear(128, 64, rng),
		nn.NewReLU(),
		nn.NewDropout(0.3, rng),
		nn.NewLinear(64, numClasses, rng),
	), nil
}

func buildCNN(numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error) {
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("cnn input size %dx%d must be even", width, height)
	}
	flat := 8 * (width / 2) * (height / 2)
	return nn.NewSequential(
		nn.NewConv2d(3, 8, 3, 1, rng),
		nn.NewReLU(),
		nn.NewMaxPool2d(2),
		nn.NewFlatten(),
		nn.NewDropout(0.3, rng),
		nn.NewLinear(flat, numClasses, rng),
	), nil
}

func buildDeepCNN(numClasses, width, height int, rng *rand.Rand) (*nn.Sequential, error) {
	if width%4 != 0 || height%4 != 0 {
		return nil, fmt.Errorf("cnn_deep input size %dx%d must be divisible by 4", width, height)
	}
	flat := 16 * (width / 4) * (height / 4)
	return nn.NewSequential(
		nn.NewConv2d(3, 8, 3, 1, rng),
		nn.NewReLU(),
		nn.NewMaxPool2d(2),
		nn.NewConv2d(8, 16, 3, 1, rng),
		nn.NewReLU(),
		nn.NewMaxPool2d(2),
		nn.NewFlatten(),
		nn.NewDropout(0.3, rng),
		nn.NewLinear(flat, numClasses, rng),
	), nil
}
