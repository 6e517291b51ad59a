package train

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/metrics"
	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/runlog"
)

// Trainer runs one training epoch for a slot: forward, loss, backward,
// parameter update per batch, with interval flushes of the metric
// window into the sink.
type Trainer struct {
	sink        *runlog.Sink
	logger      *slog.Logger
	logInterval int
}

// NewTrainer creates a Trainer reporting into sink every logInterval
// batches.
func NewTrainer(sink *runlog.Sink, logger *slog.Logger, logInterval int) *Trainer {
	if logInterval <= 0 {
		logInterval = 20
	}
	return &Trainer{sink: sink, logger: logger, logInterval: logInterval}
}

// TrainEpoch runs one full pass over the slot's training batches and
// returns the epoch aggregates. The slot's model, optimizer and
// scheduler are mutated; any model or loss failure is fatal.
func (t *Trainer) TrainEpoch(ctx context.Context, slot *Slot, epoch int) (loss, acc, f1 float32, err error) {
	slot.Model.SetTraining(true)
	slot.TrainLoader.Reset()

	epochAcc := metrics.NewEpoch(data.NumClasses)
	var window metrics.Window

	batchSize := slot.TrainLoader.BatchSize()
	batchesPerEpoch := slot.TrainLoader.Len()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, 0, err
		}

		batch, ok, err := slot.TrainLoader.Next()
		if err != nil {
			return 0, 0, 0, fmt.Errorf("slot %d epoch %d: %w", slot.Index, epoch, err)
		}
		if !ok {
			break
		}

		slot.Optimizer.ZeroGrad()
		logits := slot.Model.Forward(batch.Inputs)
		batchLoss, grad := slot.Criterion.Loss(logits, batch.Labels)
		slot.Model.Backward(grad)
		slot.Optimizer.Step()

		preds := nn.Predictions(logits)
		correct := nn.CountCorrect(preds, batch.Labels)
		window.Observe(batchLoss, correct)
		if err := epochAcc.Observe(batchLoss, batch.Labels.AsInt64(), preds); err != nil {
			return 0, 0, 0, fmt.Errorf("slot %d epoch %d: %w", slot.Index, epoch, err)
		}

		if (idx+1)%t.logInterval == 0 {
			step := epoch*batchesPerEpoch + idx
			meanLoss, meanAcc := window.Flush(batchSize)
			if err := t.sink.Scalar("Train/loss", meanLoss, step, slot.Index); err != nil {
				return 0, 0, 0, err
			}
			if err := t.sink.Scalar("Train/accuracy", meanAcc, step, slot.Index); err != nil {
				return 0, 0, 0, err
			}
			t.logger.Debug("training interval",
				"slot", slot.Index, "epoch", epoch, "batch", idx+1,
				"of", batchesPerEpoch, "loss", meanLoss, "accuracy", meanAcc,
				"lr", slot.Optimizer.LR())
		}
	}

	slot.Scheduler.Step()
	return epochAcc.MeanLoss(), epochAcc.Accuracy(batchSize), epochAcc.MacroF1(), nil
}
