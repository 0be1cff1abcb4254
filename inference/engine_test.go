package inference

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/peakwhale/harbor/artifact"
	"github.com/peakwhale/harbor/linear"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/preprocessing"
	"github.com/peakwhale/harbor/schema"
	"gonum.org/v1/gonum/mat"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Feature{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		schema.Target{Name: "y", Units: "units"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// y = 1 + 2a - 3b + 0.5c を正確に学習したバンドル
func testEngine(t *testing.T) *Engine {
	t.Helper()

	const n = 30
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b, c := float64(i), float64((i*7)%11), float64((i*3)%5)
		X.SetRow(i, []float64{a, b, c})
		y.Set(i, 0, 1+2*a-3*b+0.5*c)
	}
	scaler := preprocessing.NewStandardScalerDefault()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	lr := linear.NewLinearRegression()
	if err := lr.Fit(Xs, y); err != nil {
		t.Fatal(err)
	}

	s := testSchema(t)
	e, err := New(&artifact.Bundle{Scaler: scaler, Model: lr, Features: s.Names()}, s, log.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestEnginePredict(t *testing.T) {
	e := testEngine(t)
	row, err := e.Schema().BuildRow(map[string]any{"a": 4.0, "b": 2.0, "c": "2"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.Predict(context.Background(), row)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := 1 + 2*4.0 - 3*2.0 + 0.5*2.0
	if math.Abs(res.Prediction-want) > 1e-8 {
		t.Errorf("Prediction = %v, want %v", res.Prediction, want)
	}
	if res.Target.Name != "y" {
		t.Errorf("Target = %+v", res.Target)
	}
	if v, _ := res.Received.Get("c"); v != 2 {
		t.Errorf("Received c = %v, want 2", v)
	}
}

func TestEnginePredictErrors(t *testing.T) {
	e := testEngine(t)

	other, err := schema.New([]schema.Feature{{Name: "a"}, {Name: "b"}}, schema.Target{Name: "y"})
	if err != nil {
		t.Fatal(err)
	}
	short, err := other.BuildRow(map[string]any{"a": 1.0, "b": 2.0})
	if err != nil {
		t.Fatal(err)
	}
	nan, err := e.Schema().BuildRow(map[string]any{"a": "NaN", "b": 1.0, "c": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	inf, err := e.Schema().BuildRow(map[string]any{"a": "+Inf", "b": 1.0, "c": 1.0})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		row  schema.FeatureRow
	}{
		{"dimension mismatch", short},
		{"nan input", nan},
		{"inf input", inf},
		{"empty row", schema.FeatureRow{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Predict(context.Background(), tt.row)
			var pe *errors.PredictionError
			if !errors.As(err, &pe) {
				t.Fatalf("Predict() error = %v, want PredictionError", err)
			}
			if pe.Err == nil || pe.Error() == "" {
				t.Error("PredictionError lost its cause")
			}
		})
	}
}

func TestEnginePredictCanceled(t *testing.T) {
	e := testEngine(t)
	row, err := e.Schema().RowFromValues([]float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Predict(ctx, row); !errors.Is(err, context.Canceled) {
		t.Errorf("Predict() error = %v, want context.Canceled", err)
	}
}

func TestEngineConcurrentPredict(t *testing.T) {
	e := testEngine(t)
	row, err := e.Schema().RowFromValues([]float64{3, 1, 4})
	if err != nil {
		t.Fatal(err)
	}
	first, err := e.Predict(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Predict(context.Background(), row)
			if err != nil || res.Prediction != first.Prediction {
				t.Errorf("concurrent Predict() = %v, %v", res.Prediction, err)
			}
		}()
	}
	wg.Wait()
}

func TestNewRejectsMismatchedBundle(t *testing.T) {
	e := testEngine(t)
	if _, err := New(e.bundle, schema.Housing(), nil); err == nil {
		t.Error("New() with 13-feature schema and 3-feature bundle should fail")
	}
	if _, err := New(nil, schema.Housing(), nil); err == nil {
		t.Error("New() with nil bundle should fail")
	}
}
