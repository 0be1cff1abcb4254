package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "harbor: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "harbor: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("StandardScaler.Transform", 13, 12, 1)

	want := "harbor: StandardScaler.Transform: dimension mismatch on axis 1 (features). Expected 13, got 12"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestArtifactErrors(t *testing.T) {
	cause := fmt.Errorf("open artifacts/regmodel.gob: no such file or directory")

	missing := NewArtifactMissingError("model", "artifacts/regmodel.gob", cause)
	if !IsArtifactKind(missing, ArtifactMissing) {
		t.Errorf("expected ArtifactMissing, got %v", missing)
	}
	if IsArtifactKind(missing, ArtifactCorrupt) {
		t.Error("missing artifact must not be reported as corrupt")
	}
	if !Is(missing, cause) {
		t.Error("artifact error should unwrap to its cause")
	}

	corrupt := NewArtifactCorruptError("scaler", "artifacts/scaling.gob", New("unexpected EOF"))
	if !IsArtifactKind(corrupt, ArtifactCorrupt) {
		t.Errorf("expected ArtifactCorrupt, got %v", corrupt)
	}
	if !strings.Contains(corrupt.Error(), "scaler artifact at artifacts/scaling.gob") {
		t.Errorf("unexpected message %q", corrupt.Error())
	}
}

func TestValidationErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "missing features",
			err:  NewMissingFeaturesError([]string{"ZN", "LSTAT"}),
			want: "missing required features: ZN, LSTAT",
		},
		{
			name: "invalid value",
			err:  NewInvalidFeatureError("CRIM", "abc", "could not convert value to float"),
			want: "could not convert value to float for feature 'CRIM': abc",
		},
		{
			name: "shape",
			err:  NewShapeValidationError("Expected JSON body with key 'data' as an object."),
			want: "Expected JSON body with key 'data' as an object.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			var ve *ValidationError
			if !As(tt.err, &ve) {
				t.Error("Error should be castable to *ValidationError")
			}
		})
	}
}

func TestPredictionErrorPreservesCause(t *testing.T) {
	cause := NewDimensionError("LinearRegression.Predict", 13, 4, 1)
	err := NewPredictionError("predict", cause)

	if !strings.Contains(err.Error(), cause.Error()) {
		t.Errorf("prediction error %q should contain cause %q", err.Error(), cause.Error())
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("PredictionError should unwrap to *DimensionError")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("ok", []float64{1, 2, 3}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckScalar("nan", math.NaN()); err == nil {
		t.Error("expected error for NaN")
	}
	err := CheckNumericalStability("inf", []float64{1, math.Inf(1)})
	var nie *NumericalInstabilityError
	if !As(err, &nie) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if nie.Operation != "inf" {
		t.Errorf("Operation = %q, want %q", nie.Operation, "inf")
	}
}
