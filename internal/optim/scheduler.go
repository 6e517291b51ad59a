package optim

import (
	"math"
)

// StepLR decays an optimizer's learning rate by gamma every stepSize
// epochs: lr(epoch) = baseLR * gamma^(epoch / stepSize).
type StepLR struct {
	optimizer Optimizer
	baseLR    float32
	stepSize  int
	gamma     float32
	epoch     int
}

// NewStepLR creates a step-decay scheduler driving optimizer. The base
// learning rate is captured at construction time.
func NewStepLR(optimizer Optimizer, stepSize int, gamma float32) *StepLR {
	if stepSize <= 0 {
		stepSize = 30
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.1
	}
	return &StepLR{
		optimizer: optimizer,
		baseLR:    optimizer.LR(),
		stepSize:  stepSize,
		gamma:     gamma,
	}
}

// Step advances the schedule by one epoch and pushes the resulting
// learning rate into the optimizer. Call once at the end of each epoch.
func (s *StepLR) Step() {
	s.epoch++
	s.optimizer.SetLR(s.LRAt(s.epoch))
}

// LRAt returns the learning rate the schedule assigns to epoch.
func (s *StepLR) LRAt(epoch int) float32 {
	times := epoch / s.stepSize
	return s.baseLR * float32(math.Pow(float64(s.gamma), float64(times)))
}
