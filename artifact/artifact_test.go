package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peakwhale/harbor/linear"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/preprocessing"
	"gonum.org/v1/gonum/mat"
)

var testFeatures = []string{"a", "b", "c"}

func fitBundle(t *testing.T) *Bundle {
	t.Helper()

	const n = 20
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
		t.Fatalf("FitTransform() error = %v", err)
	}
	lr := linear.NewLinearRegression()
	if err := lr.Fit(Xs, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return &Bundle{Scaler: scaler, Model: lr, Features: testFeatures}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	b := fitBundle(t)
	paths := PathsIn(filepath.Join(t.TempDir(), "nested", "artifacts"))

	if err := Save(paths, b); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(paths, testFeatures)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Model.Intercept != b.Model.Intercept {
		t.Errorf("Intercept = %v, want %v", got.Model.Intercept, b.Model.Intercept)
	}
	if !mat.Equal(got.Model.Weights, b.Model.Weights) {
		t.Errorf("Weights = %v, want %v", got.Model.GetWeights(), b.Model.GetWeights())
	}
	for j := range b.Scaler.Mean {
		if got.Scaler.Mean[j] != b.Scaler.Mean[j] || got.Scaler.Scale[j] != b.Scaler.Scale[j] {
			t.Errorf("scaler column %d differs after round trip", j)
		}
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not restored")
	}

	// 上書き保存しても一時ファイルが残らない
	if err := Save(paths, b); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(paths.Model))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("artifact dir has %d entries, want 2", len(entries))
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	paths := PathsIn(dir)

	_, err := Load(paths, testFeatures)
	if !errors.IsArtifactKind(err, errors.ArtifactMissing) {
		t.Fatalf("Load() error = %v, want ArtifactMissing", err)
	}

	// スケーラーのみ存在する場合はモデルが欠落
	if err := Save(paths, fitBundle(t)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(paths.Model); err != nil {
		t.Fatal(err)
	}
	_, err = Load(paths, testFeatures)
	var ae *errors.ArtifactError
	if !errors.As(err, &ae) || ae.Kind != errors.ArtifactMissing || ae.Name != "model" {
		t.Errorf("Load() error = %v, want missing model", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, paths Paths)
	}{
		{
			name: "garbage model",
			corrupt: func(t *testing.T, paths Paths) {
				if err := os.WriteFile(paths.Model, []byte("not a gob stream"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "empty scaler",
			corrupt: func(t *testing.T, paths Paths) {
				if err := os.WriteFile(paths.Scaler, nil, 0o644); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "swapped files",
			corrupt: func(t *testing.T, paths Paths) {
				if err := os.Rename(paths.Model, paths.Scaler+".m"); err != nil {
					t.Fatal(err)
				}
				if err := os.Rename(paths.Scaler, paths.Model); err != nil {
					t.Fatal(err)
				}
				if err := os.Rename(paths.Scaler+".m", paths.Scaler); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := PathsIn(t.TempDir())
			if err := Save(paths, fitBundle(t)); err != nil {
				t.Fatal(err)
			}
			tt.corrupt(t, paths)

			_, err := Load(paths, testFeatures)
			if !errors.IsArtifactKind(err, errors.ArtifactCorrupt) {
				t.Errorf("Load() error = %v, want ArtifactCorrupt", err)
			}
		})
	}
}

func TestLoadRejectsOtherFeatureOrder(t *testing.T) {
	paths := PathsIn(t.TempDir())
	if err := Save(paths, fitBundle(t)); err != nil {
		t.Fatal(err)
	}
	_, err := Load(paths, []string{"c", "b", "a"})
	if !errors.IsArtifactKind(err, errors.ArtifactCorrupt) {
		t.Errorf("Load() error = %v, want ArtifactCorrupt", err)
	}
}

func TestSaveRejectsUnfitted(t *testing.T) {
	b := &Bundle{
		Scaler:   preprocessing.NewStandardScalerDefault(),
		Model:    linear.NewLinearRegression(),
		Features: testFeatures,
	}
	if err := Save(PathsIn(t.TempDir()), b); err == nil {
		t.Error("Save() of unfitted bundle should fail")
	}

	b = fitBundle(t)
	b.Features = []string{"a", "b"}
	if err := Save(PathsIn(t.TempDir()), b); err == nil {
		t.Error("Save() with wrong feature count should fail")
	}
}
