package train

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/metrics"
	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/runlog"
	"github.com/facet-ml/facet/internal/vis"
)

const (
	gridTiles   = 16
	gridColumns = 4
)

// Validator runs one forward-only epoch over a slot's validation
// batches. The first batch additionally feeds the prediction-grid side
// channel; failures there are logged and swallowed, metric results are
// finalized regardless.
type Validator struct {
	sink   *runlog.Sink
	logger *slog.Logger
}

// NewValidator creates a Validator reporting into sink.
func NewValidator(sink *runlog.Sink, logger *slog.Logger) *Validator {
	return &Validator{sink: sink, logger: logger}
}

// ValidateEpoch scans the slot's validation set in eval mode and
// returns the epoch aggregates. No parameters are mutated.
func (v *Validator) ValidateEpoch(ctx context.Context, slot *Slot, epoch int) (loss, acc, f1 float32, err error) {
	slot.Model.SetTraining(false)
	defer slot.Model.SetTraining(true)
	slot.ValLoader.Reset()

	epochAcc := metrics.NewEpoch(data.NumClasses)
	batchSize := slot.ValLoader.BatchSize()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, 0, err
		}

		batch, ok, err := slot.ValLoader.Next()
		if err != nil {
			return 0, 0, 0, fmt.Errorf("slot %d epoch %d validation: %w", slot.Index, epoch, err)
		}
		if !ok {
			break
		}

		logits := slot.Model.Forward(batch.Inputs)
		batchLoss, _ := slot.Criterion.Loss(logits, batch.Labels)
		preds := nn.Predictions(logits)

		if idx == 0 {
			v.recordGrid(slot, epoch, batch, preds)
		}

		if err := epochAcc.Observe(batchLoss, batch.Labels.AsInt64(), preds); err != nil {
			return 0, 0, 0, fmt.Errorf("slot %d epoch %d validation: %w", slot.Index, epoch, err)
		}
	}

	return epochAcc.MeanLoss(), epochAcc.Accuracy(batchSize), epochAcc.MacroF1(), nil
}

// recordGrid emits the prediction-grid artifact for the first
// validation batch. Best effort only.
func (v *Validator) recordGrid(slot *Slot, epoch int, batch *data.Batch, preds []int64) {
	img, captions, err := vis.Grid(batch.Inputs, batch.Labels.AsInt64(), preds,
		data.DefaultMean, data.DefaultStd, gridTiles, gridColumns)
	if err != nil {
		v.logger.Warn("prediction grid failed", "slot", slot.Index, "epoch", epoch, "error", err)
		return
	}
	if err := v.sink.Image("results", img, epoch, slot.Index); err != nil {
		v.logger.Warn("prediction grid write failed", "slot", slot.Index, "epoch", epoch, "error", err)
		return
	}
	if err := v.sink.Artifact("results", captions, epoch, slot.Index); err != nil {
		v.logger.Warn("prediction captions write failed", "slot", slot.Index, "epoch", epoch, "error", err)
	}
}
