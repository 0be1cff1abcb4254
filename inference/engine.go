// Package inference runs the fitted scaler and regression model over
// validated feature rows.
package inference

import (
	"context"
	"time"

	"github.com/peakwhale/harbor/artifact"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/schema"
	"gonum.org/v1/gonum/mat"
)

const (
	stageTransform = "transform"
	stagePredict   = "predict"
)

// Result is the outcome of a single prediction.
type Result struct {
	Prediction float64           `json:"prediction"`
	Target     schema.Target     `json:"target"`
	Received   schema.FeatureRow `json:"received"`
}

// Engine holds the loaded artifacts. It is never mutated after New returns,
// so one Engine is shared by all request goroutines.
type Engine struct {
	bundle *artifact.Bundle
	schema *schema.Schema
	logger log.Logger
}

// New builds an Engine and checks the bundle was fitted on the schema's features.
func New(b *artifact.Bundle, s *schema.Schema, logger log.Logger) (*Engine, error) {
	if b == nil || s == nil {
		return nil, errors.New("inference: bundle and schema are required")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.Model.NFeatures != s.Len() {
		return nil, errors.NewDimensionError("inference.New", s.Len(), b.Model.NFeatures, 1)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		bundle: b,
		schema: s,
		logger: logger.With(log.ComponentKey, "inference"),
	}, nil
}

// Schema returns the schema the engine predicts over.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Predict scales row with the training statistics and applies the model.
// Every failure is returned as a PredictionError.
func (e *Engine) Predict(ctx context.Context, row schema.FeatureRow) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.NewPredictionError(stageTransform, err)
	}
	start := time.Now()

	if row.Len() != e.schema.Len() {
		return Result{}, errors.NewPredictionError(stageTransform,
			errors.NewDimensionError("inference.Predict", e.schema.Len(), row.Len(), 1))
	}
	X := row.Matrix()
	if err := errors.CheckMatrix("input", X); err != nil {
		return Result{}, errors.NewPredictionError(stageTransform, err)
	}

	scaled, err := e.transform(X)
	if err != nil {
		return Result{}, errors.NewPredictionError(stageTransform, err)
	}

	value, err := e.predict(scaled)
	if err != nil {
		return Result{}, errors.NewPredictionError(stagePredict, err)
	}

	if e.logger.Enabled(ctx, log.LevelDebug) {
		e.logger.Debug("prediction computed",
			log.OperationKey, log.OperationPredict,
			log.PredictionKey, value,
			log.DurationMsKey, float64(time.Since(start).Microseconds())/1000,
		)
	}

	return Result{
		Prediction: value,
		Target:     e.schema.Target(),
		Received:   row,
	}, nil
}

func (e *Engine) transform(X mat.Matrix) (out mat.Matrix, err error) {
	defer errors.Recover(&err, "StandardScaler.Transform")
	return e.bundle.Scaler.Transform(X)
}

func (e *Engine) predict(X mat.Matrix) (value float64, err error) {
	defer errors.Recover(&err, "LinearRegression.Predict")

	pred, err := e.bundle.Model.Predict(X)
	if err != nil {
		return 0, err
	}
	if r, c := pred.Dims(); r != 1 || c != 1 {
		return 0, errors.NewDimensionError("LinearRegression.Predict", 1, r, 0)
	}
	value = pred.At(0, 0)
	if err := errors.CheckScalar("prediction", value); err != nil {
		return 0, err
	}
	return value, nil
}
