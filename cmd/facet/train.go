package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/facet-ml/facet/internal/data"
	"github.com/facet-ml/facet/internal/nn"
	"github.com/facet-ml/facet/internal/optim"
	"github.com/facet-ml/facet/internal/train"
)

func newTrainCmd(envCfg envConfig) *cobra.Command {
	var (
		cfg      train.Config
		resize   string
		logLevel string
		models   [train.NumSlots]*string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the five-slot ensemble",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}

			w, h, err := parseResize(resize)
			if err != nil {
				return err
			}
			cfg.ResizeWidth, cfg.ResizeHeight = w, h
			for i, name := range models {
				cfg.Models[i] = *name
			}

			orch, err := train.NewOrchestrator(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := orch.Run(ctx); err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("%s run artifacts in %s\n", green("done:"), orch.RunDir())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&cfg.Seed, "seed", 42, "random seed for the whole run")
	flags.IntVar(&cfg.Epochs, "epochs", 1, "number of training epochs")
	flags.StringVar(&cfg.Dataset, "dataset", train.DatasetFile,
		fmt.Sprintf("dataset source %v", train.DatasetNames()))
	flags.StringVar(&cfg.Augmentation, "augmentation", data.AugmentationBase,
		fmt.Sprintf("train-time augmentation %v", data.AugmentationNames()))
	flags.StringVar(&resize, "resize", "384x384", "input size as WxH")
	flags.IntVar(&cfg.BatchSize, "batch-size", 16, "training batch size")
	flags.IntVar(&cfg.ValidBatchSize, "valid-batch-size", 32, "validation batch size")

	defaults := [train.NumSlots]string{
		train.ModelMLP, train.ModelMLPWide, train.ModelMLPDeep,
		train.ModelCNN, train.ModelCNNDeep,
	}
	for i := 0; i < train.NumSlots; i++ {
		models[i] = flags.String(fmt.Sprintf("model%d", i+1), defaults[i],
			fmt.Sprintf("architecture for slot %d %v", i, train.ModelNames()))
	}

	flags.StringVar(&cfg.Optimizer, "optimizer", optim.NameAdam,
		fmt.Sprintf("optimizer %v", optim.Names()))
	flags.Float32Var(&cfg.LR, "lr", 1e-5, "learning rate")
	flags.Float32Var(&cfg.WeightDecay, "weight-decay", 5e-4, "L2 weight decay")
	flags.StringVar(&cfg.Criterion, "criterion", nn.CriterionLDAM,
		fmt.Sprintf("loss criterion %v", nn.CriterionNames()))
	flags.IntVar(&cfg.LRDecayStep, "lr-decay-step", 20, "epochs between halvings of the learning rate")
	flags.IntVar(&cfg.LogInterval, "log-interval", 20, "batches between interval log flushes")
	flags.StringVar(&cfg.Name, "name", "exp", "run name (auto-incremented on collision)")
	flags.StringVar(&cfg.DataDir, "data-dir", envCfg.DataDir, "dataset root directory")
	flags.StringVar(&cfg.ModelDir, "model-dir", envCfg.ModelDir, "root directory for run outputs")
	flags.IntVar(&cfg.Patience, "patience", 7, "early-stop patience in epochs (0 disables)")
	flags.BoolVar(&cfg.Parallel, "parallel", false, "train the five slots concurrently")
	flags.BoolVar(&cfg.Reuse, "reuse", false, "reuse an existing run directory instead of incrementing")
	flags.StringVar(&logLevel, "log-level", envCfg.LogLevel, "console log level")

	return cmd
}

// parseResize parses "WxH" into its two dimensions.
func parseResize(s string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resize %q, expected WxH", s)
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resize width %q", parts[0])
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resize height %q", parts[1])
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("resize dimensions must be positive, got %dx%d", width, height)
	}
	return width, height, nil
}
