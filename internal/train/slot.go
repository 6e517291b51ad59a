package train

import (
	"math"

	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/optim"
)

// NumSlots is the ensemble size. Slot i holds out fold i of the pool
// for validation.
const NumSlots = 5

// BestState tracks one slot's running validation bests. Accuracy and
// F1 are running maxima, loss a running minimum; only F1 gates the best
// checkpoint, the other two are tracked for reporting.
type BestState struct {
	Acc  float32
	Loss float32
	F1   float32
}

// Update folds one epoch's validation metrics into the best state.
func (b *BestState) Update(acc, loss, f1 float32) {
	if acc > b.Acc {
		b.Acc = acc
	}
	if loss < b.Loss {
		b.Loss = loss
	}
	if f1 > b.F1 {
		b.F1 = f1
	}
}

// Slot is one ensemble member: its model, optimizer, schedule, data
// loaders, early-stop monitor and best state. A slot's mutable state is
// owned exclusively by whichever goroutine is running its epoch.
type Slot struct {
	Index     int
	Model     *nn.Sequential
	Criterion nn.Criterion
	Optimizer optim.Optimizer
	Scheduler *optim.StepLR

	TrainLoader *data.Loader
	ValLoader   *data.Loader

	Monitor *EarlyStopping
	Best    BestState

	// Active is cleared permanently once the monitor signals stop;
	// inactive slots are skipped for all remaining epochs.
	Active bool
}

func newBestState() BestState {
	return BestState{Acc: 0, Loss: float32(math.Inf(1)), F1: 0}
}

// EpochResult is one slot's metrics for one epoch, routed to the sink
// and the console. Not persisted beyond the run.
type EpochResult struct {
	Epoch int
	Slot  int

	TrainLoss float32
	TrainAcc  float32
	TrainF1   float32
	ValLoss   float32
	ValAcc    float32
	ValF1     float32
	LR        float32

	BestWritten bool
	Stopped     bool
}
