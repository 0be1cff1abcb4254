// harbor-server loads the trained scaler and model and serves predictions
// over HTTP. It refuses to start when either artifact is missing or corrupt.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/peakwhale/harbor/artifact"
	"github.com/peakwhale/harbor/config"
	"github.com/peakwhale/harbor/inference"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/schema"
	"github.com/peakwhale/harbor/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "harbor-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.NewServerFlags("harbor-server")
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

	s := schema.Housing()
	paths := cfg.ArtifactPaths()
	bundle, err := artifact.Load(paths, s.Names())
	if err != nil {
		logger.Error("failed to load artifacts", log.ErrorKey, err,
			"scaler_path", paths.Scaler, "model_path", paths.Model)
		if errors.IsArtifactKind(err, errors.ArtifactMissing) {
			logger.Info("run harbor-train to create the artifacts, or point --artifacts-dir at them")
		}
		return err
	}
	logger.Info("artifacts loaded",
		log.OperationKey, log.OperationLoad,
		log.ModelNameKey, bundle.Model.String(),
		log.FeaturesKey, len(bundle.Features),
		"trained_at", bundle.CreatedAt,
	)

	engine, err := inference.New(bundle, s, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(engine, server.Options{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", log.ErrorKey, err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
