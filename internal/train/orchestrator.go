package train

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/facet-ml/facet/internal/checkpoint"
	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/optim"
	"github.com/facet-ml/facet/internal/rng"
	"github.com/facet-ml/facet/internal/runlog"
)

// Names of the supported dataset sources.
const (
	DatasetFile      = "file"
	DatasetSynthetic = "synthetic"
)

// DatasetNames returns the supported dataset source names.
func DatasetNames() []string {
	return []string{DatasetFile, DatasetSynthetic}
}

// Config is the full run configuration, persisted verbatim into the
// run directory at start.
type Config struct {
	Seed         int64  `json:"seed"`
	Epochs       int    `json:"epochs"`
	Dataset      string `json:"dataset"`
	Augmentation string `json:"augmentation"`

	ResizeWidth  int `json:"resize_width"`
	ResizeHeight int `json:"resize_height"`

	BatchSize      int `json:"batch_size"`
	ValidBatchSize int `json:"valid_batch_size"`

	Models    [NumSlots]string `json:"models"`
	Optimizer string           `json:"optimizer"`
	Criterion string           `json:"criterion"`

	LR          float32 `json:"lr"`
	WeightDecay float32 `json:"weight_decay"`
	LRDecayStep int     `json:"lr_decay_step"`

	LogInterval int    `json:"log_interval"`
	Name        string `json:"name"`
	DataDir     string `json:"data_dir"`
	ModelDir    string `json:"model_dir"`

	Patience int  `json:"patience"`
	Parallel bool `json:"parallel"`
	Reuse    bool `json:"reuse"`
}

// Validate fails fast on unknown registry names or unusable numbers,
// before any run directory is created.
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 || c.ValidBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive, got %d/%d", c.BatchSize, c.ValidBatchSize)
	}
	if c.ResizeWidth <= 0 || c.ResizeHeight <= 0 {
		return fmt.Errorf("invalid resize %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if !slices.Contains(DatasetNames(), c.Dataset) {
		return fmt.Errorf("unknown dataset %q (available: %v)", c.Dataset, DatasetNames())
	}
	if c.Dataset == DatasetFile && c.DataDir == "" {
		return fmt.Errorf("data directory is required for the file dataset")
	}
	if c.ModelDir == "" {
		return fmt.Errorf("model directory must not be empty")
	}
	if !slices.Contains(data.AugmentationNames(), c.Augmentation) {
		return fmt.Errorf("unknown augmentation %q (available: %v)", c.Augmentation, data.AugmentationNames())
	}
	if !slices.Contains(optim.Names(), c.Optimizer) {
		return fmt.Errorf("unknown optimizer %q (available: %v)", c.Optimizer, optim.Names())
	}
	if !slices.Contains(nn.CriterionNames(), c.Criterion) {
		return fmt.Errorf("unknown criterion %q (available: %v)", c.Criterion, nn.CriterionNames())
	}
	for i, name := range c.Models {
		if _, ok := modelBuilders[name]; !ok {
			return fmt.Errorf("slot %d: unknown model %q (available: %v)", i, name, ModelNames())
		}
	}
	return nil
}

// Orchestrator owns the outer epoch × slot loop: it seeds the RNGs,
// builds the five slots, opens the sink, and drives train → validate →
// checkpoint → early-stop per slot per epoch.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger

	runDir string // set by Run
}

// NewOrchestrator validates cfg and creates an Orchestrator. All name
// lookups happen here so a bad configuration never creates a run
// directory.
func NewOrchestrator(cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}, nil
}

// RunDir returns the run directory, available after Run starts.
func (o *Orchestrator) RunDir() string { return o.runDir }

// Run executes the whole training run: INIT (seed, slots, sink,
// config), then for each epoch each active slot in fixed order, until
// the configured epochs elapse or every slot has stopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	rng.Seed(o.cfg.Seed)

	source, err := o.buildSource()
	if err != nil {
		return err
	}

	runDir, err := runlog.IncrementDir(o.cfg.ModelDir, o.cfg.Name, o.cfg.Reuse)
	if err != nil {
		return err
	}
	o.runDir = runDir

	sink, err := runlog.Open(runDir)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.WriteConfig(o.cfg); err != nil {
		return err
	}
	o.logger.Info("run started", "dir", runDir, "id", sink.RunID(),
		"dataset", o.cfg.Dataset, "epochs", o.cfg.Epochs, "parallel", o.cfg.Parallel)

	slots, err := o.buildSlots(source)
	if err != nil {
		return err
	}

	manager := checkpoint.NewManager(runDir)
	trainer := NewTrainer(sink, o.logger, o.cfg.LogInterval)
	validator := NewValidator(sink, o.logger)

	for epoch := 0; epoch < o.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		active := 0
		for _, slot := range slots {
			if slot.Active {
				active++
			}
		}
		if active == 0 {
			o.logger.Info("all slots stopped early", "epoch", epoch)
			break
		}

		if o.cfg.Parallel {
			err = o.runEpochParallel(ctx, slots, epoch, trainer, validator, manager, sink)
		} else {
			err = o.runEpochSequential(ctx, slots, epoch, trainer, validator, manager, sink)
		}
		if err != nil {
			return err
		}
	}

	for _, slot := range slots {
		o.logger.Info("slot summary", "slot", slot.Index,
			"best_acc", slot.Best.Acc, "best_loss", slot.Best.Loss, "best_f1", slot.Best.F1,
			"stopped_early", !slot.Active)
	}
	o.logger.Info("run complete", "dir", runDir)
	return nil
}

func (o *Orchestrator) runEpochSequential(ctx context.Context, slots []*Slot, epoch int,
	trainer *Trainer, validator *Validator, manager *checkpoint.Manager, sink *runlog.Sink) error {
	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		if _, err := o.runSlotEpoch(ctx, slot, epoch, trainer, validator, manager, sink); err != nil {
			return err
		}
	}
	return nil
}

// runEpochParallel trains all active slots concurrently. Each slot's
// state is owned by its goroutine; the sink and checkpoint manager are
// concurrency-safe and slot files never collide.
func (o *Orchestrator) runEpochParallel(ctx context.Context, slots []*Slot, epoch int,
	trainer *Trainer, validator *Validator, manager *checkpoint.Manager, sink *runlog.Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		slot := slot
		g.Go(func() error {
			_, err := o.runSlotEpoch(ctx, slot, epoch, trainer, validator, manager, sink)
			return err
		})
	}
	return g.Wait()
}

// runSlotEpoch is the per-slot unit of work: train, validate,
// checkpoint, early-stop check, in that order.
func (o *Orchestrator) runSlotEpoch(ctx context.Context, slot *Slot, epoch int,
	trainer *Trainer, validator *Validator, manager *checkpoint.Manager, sink *runlog.Sink) (EpochResult, error) {

	result := EpochResult{Epoch: epoch, Slot: slot.Index}

	trainLoss, trainAcc, trainF1, err := trainer.TrainEpoch(ctx, slot, epoch)
	if err != nil {
		return result, err
	}
	result.TrainLoss, result.TrainAcc, result.TrainF1 = trainLoss, trainAcc, trainF1
	result.LR = slot.Optimizer.LR()

	valLoss, valAcc, valF1, err := validator.ValidateEpoch(ctx, slot, epoch)
	if err != nil {
		return result, err
	}
	result.ValLoss, result.ValAcc, result.ValF1 = valLoss, valAcc, valF1

	slot.Best.Update(valAcc, valLoss, valF1)

	for _, scalar := range []struct {
		tag   string
		value float32
	}{
		{"Val/loss", valLoss},
		{"Val/accuracy", valAcc},
		{"Val/F1", valF1},
	} {
		if err := sink.Scalar(scalar.tag, scalar.value, epoch, slot.Index); err != nil {
			return result, err
		}
	}

	bestWritten, err := manager.Record(slot.Index, slot.Model, valF1)
	if err != nil {
		return result, err
	}
	result.BestWritten = bestWritten

	if slot.Monitor.Observe(valLoss) {
		slot.Active = false
		result.Stopped = true
		o.logger.Info("early stop", "slot", slot.Index, "epoch", epoch,
			"strikes", slot.Monitor.Strikes())
	}

	// Idle slots should not pin batch-sized buffers between epochs.
	slot.TrainLoader.Release()
	slot.ValLoader.Release()

	o.logger.Info("epoch complete", "slot", slot.Index, "epoch", epoch,
		"train_loss", trainLoss, "train_acc", trainAcc, "train_f1", trainF1,
		"val_loss", valLoss, "val_acc", valAcc, "val_f1", valF1,
		"lr", result.LR, "best_written", bestWritten)

	return result, nil
}

func (o *Orchestrator) buildSource() (data.Source, error) {
	switch o.cfg.Dataset {
	case DatasetSynthetic:
		return data.NewSynthetic(30, 4, o.cfg.ResizeWidth, o.cfg.ResizeHeight, o.cfg.Seed), nil
	case DatasetFile:
		records, err := data.LoadCSV(filepath.Join(o.cfg.DataDir, "metadata.csv"))
		if err != nil {
			return nil, err
		}
		return data.NewFileSource(o.cfg.DataDir, records), nil
	default:
		return nil, fmt.Errorf("unknown dataset %q", o.cfg.Dataset)
	}
}

// buildSlots constructs the five slots. Slot i holds out fold i; every
// stochastic component gets its own derived RNG stream so slots stay
// independent even when trained in parallel.
func (o *Orchestrator) buildSlots(source data.Source) ([]*Slot, error) {
	slots := make([]*Slot, 0, NumSlots)

	for i := 0; i < NumSlots; i++ {
		trainPart, valPart, err := data.Fold(source, i)
		if err != nil {
			return nil, err
		}

		trainTransform, err := data.BuildTransform(o.cfg.Augmentation,
			o.cfg.ResizeWidth, o.cfg.ResizeHeight, rng.New(int64(2000+i)))
		if err != nil {
			return nil, err
		}
		trainPart.SetTransform(trainTransform)
		valPart.SetTransform(data.EvalTransform(o.cfg.ResizeWidth, o.cfg.ResizeHeight))

		trainLoader, err := data.NewLoader(trainPart, o.cfg.BatchSize, true, rng.New(int64(3000+i)))
		if err != nil {
			return nil, fmt.Errorf("slot %d train loader: %w", i, err)
		}
		valLoader, err := data.NewLoader(valPart, o.cfg.ValidBatchSize, false, nil)
		if err != nil {
			return nil, fmt.Errorf("slot %d validation loader: %w", i, err)
		}

		model, err := BuildModel(o.cfg.Models[i], data.NumClasses,
			o.cfg.ResizeWidth, o.cfg.ResizeHeight, rng.New(int64(1000+i)))
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		counts := make([]int, data.NumClasses)
		for s := 0; s < trainPart.Len(); s++ {
			counts[trainPart.Record(s).Label]++
		}
		criterion, err := nn.BuildCriterion(o.cfg.Criterion, counts)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		optimizer, err := optim.Build(o.cfg.Optimizer, model.Parameters(), optim.Config{
			LR:          o.cfg.LR,
			WeightDecay: o.cfg.WeightDecay,
		})
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}

		slots = append(slots, &Slot{
			Index:       i,
			Model:       model,
			Criterion:   criterion,
			Optimizer:   optimizer,
			Scheduler:   optim.NewStepLR(optimizer, o.cfg.LRDecayStep, 0.5),
			TrainLoader: trainLoader,
			ValLoader:   valLoader,
			Monitor:     NewEarlyStopping(o.cfg.Patience),
			Best:        newBestState(),
			Active:      true,
		})
	}
	return slots, nil
}
