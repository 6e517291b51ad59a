// Command facet trains an ensemble of five facial-attribute
// classifiers and logs checkpoints, metrics and prediction grids into
// an auto-incrementing run directory.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const pathEnv = ".env"

type envConfig struct {
	DataDir  string `env:"FACET_TRAIN_DATA"`
	ModelDir string `env:"FACET_MODEL_DIR" envDefault:"./runs"`
	LogLevel string `env:"FACET_LOG_LEVEL" envDefault:"info"`
}

func main() {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load environment configuration: %s", err.Error())
	}

	rootCmd := &cobra.Command{
		Use:           "facet",
		Short:         "Ensemble facial-attribute classifier training",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newTrainCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
