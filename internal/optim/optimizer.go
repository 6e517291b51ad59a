// Package optim implements the optimization algorithms facet trains with.
//
// This package provides:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with momentum
//   - Adam: adaptive moment estimation
//   - StepLR: step-decay learning rate scheduler
//
// Optimizers read gradients directly from the parameters they own; a
// training iteration is ZeroGrad, forward, backward, Step.
package optim

import (
	"fmt"
	"sort"

	"github.com/facet-ml/facet/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one gradient update to all parameters. Parameters
	// whose gradient buffer was never allocated are skipped.
	Step()

	// ZeroGrad clears all parameter gradients. Call before each
	// backward pass to prevent accumulation across iterations.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float32

	// SetLR updates the learning rate, the hook schedulers drive.
	SetLR(lr float32)
}

// Config holds the hyperparameters shared by all optimizers. Fields an
// algorithm does not use (e.g. Momentum for Adam) are ignored.
type Config struct {
	LR          float32 // learning rate
	Momentum    float32 // momentum factor, SGD only (range [0, 1))
	WeightDecay float32 // L2 penalty added to the gradient
}

// Names of the supported optimizers, usable with Build.
const (
	NameSGD  = "sgd"
	NameAdam = "adam"
)

var builders = map[string]func(params []*nn.Parameter, config Config) Optimizer{
	NameSGD:  func(p []*nn.Parameter, c Config) Optimizer { return NewSGD(p, c) },
	NameAdam: func(p []*nn.Parameter, c Config) Optimizer { return NewAdam(p, c) },
}

// Build constructs an optimizer by name. Unknown names are an error so
// a mistyped flag fails before any training happens.
func Build(name string, params []*nn.Parameter, config Config) (Optimizer, error) {
	builder, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown optimizer %q (available: %v)", name, Names())
	}
	return builder(params, config), nil
}

// Names returns the registered optimizer names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
