package nn

import (
	"fmt"
	"strings"

	"github.com/facet-ml/facet/internal/tensor"
)

// Sequential chains modules so each module's output feeds the next.
// Backward walks the chain in reverse. State-dict entries are prefixed
// with the child index ("0.weight", "3.bias", ...).
type Sequential struct {
	modules []Module
}

// NewSequential creates a Sequential container from modules.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies all modules in order.
func (s *Sequential) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Backward propagates the gradient through all modules in reverse order.
func (s *Sequential) Backward(grad *tensor.RawTensor) *tensor.RawTensor {
	for i := len(s.modules) - 1; i >= 0; i-- {
		grad = s.modules[i].Backward(grad)
	}
	return grad
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// SetTraining forwards the mode toggle to every child.
func (s *Sequential) SetTraining(training bool) {
	for _, module := range s.modules {
		module.SetTraining(training)
	}
}

// Len returns the number of modules in the chain.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// StateDict collects child state dicts under index-prefixed keys.
func (s *Sequential) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		sm, ok := module.(StatefulModule)
		if !ok {
			continue
		}
		for name, raw := range sm.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}
	return stateDict
}

// LoadStateDict restores every stateful child from its prefixed entries.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, module := range s.modules {
		sm, ok := module.(StatefulModule)
		if !ok {
			continue
		}
		prefix := fmt.Sprintf("%d.", i)
		child := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if strings.HasPrefix(key, prefix) {
				child[key[len(prefix):]] = raw
			}
		}
		if err := sm.LoadStateDict(child); err != nil {
			return fmt.Errorf("failed to load module %d: %w", i, err)
		}
	}
	return nil
}
