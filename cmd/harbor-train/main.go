// harbor-train fits the standard scaler and linear regression model on the
// housing dataset and writes the artifacts harbor-server loads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/peakwhale/harbor/config"
	"github.com/peakwhale/harbor/dataset"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/runlog"
	"github.com/peakwhale/harbor/trainer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "harbor-train: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.NewTrainFlags("harbor-train")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := flags.Load()
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.LogOptions())
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := cfg.ArtifactPaths()
	opts := trainer.Options{
		Source:      dataset.Source{Path: cfg.Train.DataPath, URL: cfg.Train.DataURL},
		TestSize:    cfg.Train.TestSize,
		Seed:        cfg.Train.Seed,
		Paths:       paths,
		WeightsPath: filepath.Join(filepath.Dir(paths.Model), "regmodel.json"),
		PlotPath:    cfg.Train.PlotPath,
		Logger:      logger,
	}
	if cfg.Train.RunLogPath != "" {
		store, err := runlog.Open(cfg.Train.RunLogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Recorder = store
	}

	report, err := trainer.Run(ctx, opts)
	if err != nil {
		logger.Error("training failed", log.ErrorKey, err)
		return err
	}

	fmt.Println("Training complete")
	fmt.Printf("RMSE (root mean squared error): %.4f\n", report.Metrics.RMSE)
	fmt.Printf("MAE (mean absolute error): %.4f\n", report.Metrics.MAE)
	fmt.Printf("R2 (coefficient of determination): %.4f\n", report.Metrics.R2)
	fmt.Printf("Train R2: %.4f\n", report.TrainR2)
	fmt.Printf("Wrote model to: %s\n", paths.Model)
	fmt.Printf("Wrote scaler to: %s\n", paths.Scaler)
	return nil
}
