package metrics

import (
	"fmt"
)

// Epoch aggregates one full pass over a slot's batches: running loss
// and correct sums plus the full true/predicted label sequences needed
// for macro-F1.
type Epoch struct {
	loss    float64
	correct int
	batches int

	confusion *ConfusionMatrix
}

// NewEpoch creates an epoch accumulator for numClasses classes.
func NewEpoch(numClasses int) *Epoch {
	return &Epoch{confusion: NewConfusionMatrix(numClasses)}
}

// Observe adds one batch: its loss, and the true/predicted labels of
// every sample in the batch.
func (e *Epoch) Observe(loss float32, trueLabels, predLabels []int64) error {
	if err := e.confusion.Update(trueLabels, predLabels); err != nil {
		return fmt.Errorf("failed to record batch labels: %w", err)
	}
	for i := range trueLabels {
		if trueLabels[i] == predLabels[i] {
			e.correct++
		}
	}
	e.loss += float64(loss)
	e.batches++
	return nil
}

// Batches returns the number of batches observed so far.
func (e *Epoch) Batches() int { return e.batches }

// MeanLoss returns the sum of per-batch losses divided by batch count.
func (e *Epoch) MeanLoss() float32 {
	if e.batches == 0 {
		return 0
	}
	return float32(e.loss / float64(e.batches))
}

// Accuracy returns total correct over batchSize*batches. With drop-last
// batching every batch has exactly batchSize samples, so this is the
// exact sample count, never the raw partition size.
func (e *Epoch) Accuracy(batchSize int) float32 {
	if e.batches == 0 {
		return 0
	}
	return float32(e.correct) / float32(batchSize*e.batches)
}

// MacroF1 returns the macro-averaged F1 over the epoch's full label
// sequences.
func (e *Epoch) MacroF1() float32 {
	return e.confusion.MacroF1()
}
