// Package nn implements the neural network building blocks facet trains:
// layers with explicit forward and backward passes, trainable parameters,
// weight initialization, and the classification criteria.
//
// Modules compose into models the trainer treats as opaque: it only ever
// calls Forward, Backward, Parameters and SetTraining. There is no tape;
// every layer knows its own gradient, and Backward walks the structure in
// reverse. This keeps a training step a plain function call chain.
package nn

import (
	"github.com/facet-ml/facet/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Forward consumes an input tensor and produces the layer output,
// caching whatever the layer needs for its backward pass. Backward
// consumes the gradient of the loss w.r.t. the layer output and returns
// the gradient w.r.t. the layer input, accumulating parameter gradients
// on the way. One Forward must precede each Backward.
type Module interface {
	// Forward computes the output of the module for input.
	Forward(input *tensor.RawTensor) *tensor.RawTensor

	// Backward propagates grad (dLoss/dOutput) through the module and
	// returns dLoss/dInput. Parameter gradients are accumulated into the
	// module's Parameters.
	Backward(grad *tensor.RawTensor) *tensor.RawTensor

	// Parameters returns all trainable parameters of this module.
	// Modules without trainable state return nil.
	Parameters() []*Parameter

	// SetTraining toggles train/eval behavior for mode-sensitive layers
	// (Dropout). Containers forward the toggle to their children.
	SetTraining(training bool)
}

// StatefulModule is implemented by modules whose parameters are
// checkpointed. Sequential implements it by prefixing child entries with
// the child index, mirroring how the snapshots are keyed on disk.
type StatefulModule interface {
	Module

	// StateDict returns a map of parameter names to their tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores parameters from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
