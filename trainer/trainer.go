// Package trainer fits the scaler and regression model on the housing
// dataset, evaluates them on a held-out split and writes the artifacts the
// server loads at startup.
package trainer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/peakwhale/harbor/artifact"
	"github.com/peakwhale/harbor/dataset"
	"github.com/peakwhale/harbor/linear"
	"github.com/peakwhale/harbor/metrics"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/preprocessing"
	"github.com/peakwhale/harbor/runlog"
	"github.com/peakwhale/harbor/schema"
)

// Recorder stores a summary of each completed run.
type Recorder interface {
	Record(ctx context.Context, run runlog.Run) (int64, error)
}

// Options configures a training run.
type Options struct {
	Source   dataset.Source
	Schema   *schema.Schema // nil means schema.Housing()
	TestSize float64        // 0 means dataset.DefaultTestSize
	Seed     uint64

	Paths artifact.Paths

	// WeightsPath, when set, receives a JSON card of the fitted coefficients.
	WeightsPath string
	// PlotPath, when set, receives a predicted-vs-actual PNG of the test split.
	PlotPath string

	Recorder Recorder
	Logger   log.Logger
}

// Report summarizes a completed run.
type Report struct {
	Source       string                   `json:"source"`
	Seed         uint64                   `json:"seed"`
	TrainSamples int                      `json:"train_samples"`
	TestSamples  int                      `json:"test_samples"`
	Metrics      metrics.RegressionReport `json:"metrics"`
	TrainR2      float64                  `json:"train_r2"`
	Intercept    float64                  `json:"intercept"`
	Paths        artifact.Paths           `json:"paths"`
	RunID        int64                    `json:"run_id,omitempty"`

	Bundle    *artifact.Bundle `json:"-"`
	Actual    []float64        `json:"-"`
	Predicted []float64        `json:"-"`
}

// Run executes load -> split -> scale -> fit -> evaluate -> persist.
// Given the same seed and data it produces identical artifacts and metrics.
func Run(ctx context.Context, opts Options) (*Report, error) {
	s := opts.Schema
	if s == nil {
		s = schema.Housing()
	}
	testSize := opts.TestSize
	if testSize == 0 {
		testSize = dataset.DefaultTestSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.ComponentKey, "trainer", log.ModelNameKey, linear.ModelType)
	start := time.Now()

	data, err := dataset.Load(ctx, opts.Source, s)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		log.SourceKey, data.Source,
		log.SamplesKey, data.Len(),
		log.FeaturesKey, len(data.Features),
	)

	split, err := dataset.TrainTestSplit(data.X, data.Y, testSize, opts.Seed)
	if err != nil {
		return nil, err
	}

	// スケーラーは学習用データのみで学習する
	scaler := preprocessing.NewStandardScalerDefault()
	XTrain, err := scaler.FitTransform(split.XTrain)
	if err != nil {
		return nil, errors.Wrap(err, "fit scaler")
	}
	XTest, err := scaler.Transform(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "transform test split")
	}

	model := linear.NewLinearRegression()
	if err := errors.SafeExecute("LinearRegression.Fit", func() error {
		return model.Fit(XTrain, split.YTrain)
	}); err != nil {
		return nil, errors.Wrap(err, "fit model")
	}
	trainR2, err := model.Score(XTrain, split.YTrain)
	if err != nil {
		return nil, errors.Wrap(err, "score train split")
	}
	logger.Debug("model fitted",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, len(split.TrainIndex),
		log.R2ScoreKey, trainR2,
		"intercept", model.GetIntercept(),
	)

	pred, err := model.Predict(XTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict test split")
	}
	report, err := metrics.Evaluate(split.YTest, pred)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	logger.Info("training complete",
		log.PhaseKey, log.PhaseTesting,
		log.RMSEKey, report.RMSE,
		log.MAEKey, report.MAE,
		log.R2ScoreKey, report.R2,
		log.RandomSeedKey, opts.Seed,
	)

	bundle := &artifact.Bundle{
		Scaler:    scaler,
		Model:     model,
		Features:  s.Names(),
		CreatedAt: time.Now().UTC(),
	}
	if err := artifact.Save(opts.Paths, bundle); err != nil {
		return nil, err
	}
	logger.Info("artifacts written",
		log.OperationKey, log.OperationSave,
		"scaler_path", opts.Paths.Scaler,
		"model_path", opts.Paths.Model,
	)

	trainRows, _ := split.XTrain.Dims()
	testRows, _ := split.XTest.Dims()
	out := &Report{
		Source:       data.Source,
		Seed:         opts.Seed,
		TrainSamples: trainRows,
		TestSamples:  testRows,
		Metrics:      report,
		TrainR2:      trainR2,
		Intercept:    model.GetIntercept(),
		Paths:        opts.Paths,
		Bundle:       bundle,
		Actual:       column(split.YTest),
		Predicted:    column(pred),
	}

	if opts.WeightsPath != "" {
		if err := writeWeights(opts.WeightsPath, model, s.Names(), report); err != nil {
			return nil, err
		}
		logger.Debug("weights card written", log.PathKey, opts.WeightsPath)
	}

	if opts.PlotPath != "" {
		if err := SavePredictionPlot(opts.PlotPath, s.Target(), out.Actual, out.Predicted); err != nil {
			return nil, err
		}
		logger.Info("evaluation plot written", log.PathKey, opts.PlotPath)
	}

	if opts.Recorder != nil {
		id, err := opts.Recorder.Record(ctx, runlog.Run{
			ModelName:    linear.ModelType,
			Source:       data.Source,
			Seed:         opts.Seed,
			TestSize:     testSize,
			TrainSamples: trainRows,
			TestSamples:  testRows,
			RMSE:         report.RMSE,
			MAE:          report.MAE,
			R2:           report.R2,
			ScalerPath:   opts.Paths.Scaler,
			ModelPath:    opts.Paths.Model,
			TrainedAt:    bundle.CreatedAt,
		})
		if err != nil {
			// 成果物は書き込み済みなので記録の失敗は致命的にしない
			logger.Warn("failed to record training run", log.ErrorKey, err)
		} else {
			out.RunID = id
		}
	}

	logger.Debug("run finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return out, nil
}

func writeWeights(path string, model *linear.LinearRegression, features []string, report metrics.RegressionReport) error {
	mw, err := model.ExportWeights(features)
	if err != nil {
		return err
	}
	mw.Metadata = map[string]interface{}{
		"rmse": report.RMSE,
		"mae":  report.MAE,
		"r2":   report.R2,
	}
	data, err := mw.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode weights")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}

func column(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.At(i, 0)
	}
	return out
}
