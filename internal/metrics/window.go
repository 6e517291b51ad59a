// Package metrics implements the training metric accumulators: the
// interval window flushed to the logging sink every N batches, the
// epoch-level aggregate, and macro-F1 over a confusion matrix.
package metrics

// Window accumulates summed loss and correct-prediction counts since
// the last flush. It backs the interval log lines and is never
// persisted.
type Window struct {
	loss    float64
	correct int
	batches int
}

// Observe adds one batch's loss and correct count to the window.
func (w *Window) Observe(loss float32, correct int) {
	w.loss += float64(loss)
	w.correct += correct
	w.batches++
}

// Batches returns how many batches the window currently holds.
func (w *Window) Batches() int { return w.batches }

// Flush returns the window's mean loss and accuracy for the given batch
// size, then resets it to zero. Flushing an empty window returns zeros.
func (w *Window) Flush(batchSize int) (meanLoss, accuracy float32) {
	if w.batches > 0 {
		meanLoss = float32(w.loss / float64(w.batches))
		accuracy = float32(w.correct) / float32(batchSize*w.batches)
	}
	w.loss, w.correct, w.batches = 0, 0, 0
	return meanLoss, accuracy
}
