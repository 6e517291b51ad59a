package train

import (
	"math"
)

// EarlyStopping watches one slot's validation losses across epochs and
// signals stop after patience consecutive epochs without improvement.
// One instance lives for the whole run per slot; its accumulated streak
// is the entire point.
type EarlyStopping struct {
	patience int
	bestLoss float32
	strikes  int
}

// NewEarlyStopping creates a monitor with the given patience. A
// non-positive patience disables the monitor (Observe never signals).
func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		patience: patience,
		bestLoss: float32(math.Inf(1)),
	}
}

// Observe records one epoch's validation loss and reports whether the
// slot should stop training. A strictly lower loss than the best seen
// resets the streak.
func (e *EarlyStopping) Observe(valLoss float32) (stop bool) {
	if valLoss < e.bestLoss {
		e.bestLoss = valLoss
		e.strikes = 0
		return false
	}
	e.strikes++
	return e.patience > 0 && e.strikes >= e.patience
}

// Strikes returns the current non-improvement streak.
func (e *EarlyStopping) Strikes() int { return e.strikes }
