// Package artifact persists and restores the fitted scaler and regression
// model that make up a trained housing predictor.
//
// Each artifact is a single gob stream holding a Header and the estimator.
// The header records the feature order the estimator was fitted on, so a
// scaler or model trained against a different schema is rejected at load
// time instead of silently producing wrong predictions.
package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/peakwhale/harbor/core/model"
	"github.com/peakwhale/harbor/linear"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/preprocessing"
)

const (
	// Format identifies Harbor artifact files.
	Format = "harbor-artifact"
	// Version is bumped whenever the encoded layout changes.
	Version = 1

	// DefaultDir is where the trainer writes and the server reads artifacts.
	DefaultDir = "artifacts"
	// ScalerFile and ModelFile are the artifact file names inside the directory.
	ScalerFile = "scaling.gob"
	ModelFile  = "regmodel.gob"

	scalerName = "scaler"
	modelName  = "model"
)

// Header describes the content of an artifact file.
type Header struct {
	Format    string
	Version   int
	Kind      string
	Features  []string
	CreatedAt time.Time
}

type file[T any] struct {
	Header    Header
	Estimator T
}

// Paths locates the two artifact files.
type Paths struct {
	Scaler string
	Model  string
}

// PathsIn returns the default artifact file paths inside dir.
func PathsIn(dir string) Paths {
	return Paths{
		Scaler: filepath.Join(dir, ScalerFile),
		Model:  filepath.Join(dir, ModelFile),
	}
}

// Bundle is a matched scaler/model pair fitted on the same feature order.
type Bundle struct {
	Scaler    *preprocessing.StandardScaler
	Model     *linear.LinearRegression
	Features  []string
	CreatedAt time.Time
}

// Validate checks that both estimators are fitted and agree on the feature count.
func (b *Bundle) Validate() error {
	if b.Scaler == nil || b.Model == nil {
		return errors.New("artifact: bundle requires both a scaler and a model")
	}
	if err := b.Scaler.Validate(); err != nil {
		return errors.Wrap(err, "invalid scaler")
	}
	if !b.Model.IsFitted() || b.Model.Weights == nil {
		return errors.NewNotFittedError(linear.ModelType, "Validate")
	}
	if _, err := b.Model.ExportWeights(b.Features); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	if b.Scaler.NFeatures != b.Model.NFeatures {
		return errors.NewDimensionError("artifact.Bundle", b.Scaler.NFeatures, b.Model.NFeatures, 1)
	}
	if len(b.Features) != b.Model.NFeatures {
		return errors.NewDimensionError("artifact.Bundle", len(b.Features), b.Model.NFeatures, 1)
	}
	return nil
}

// Save writes both artifacts, creating parent directories as needed.
// Existing files are replaced atomically.
func Save(paths Paths, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	sf := &file[*preprocessing.StandardScaler]{
		Header:    newHeader(preprocessing.StandardScalerType, b.Features, created),
		Estimator: b.Scaler,
	}
	if err := writeAtomic(paths.Scaler, sf); err != nil {
		return errors.Wrapf(err, "save %s artifact", scalerName)
	}

	mf := &file[*linear.LinearRegression]{
		Header:    newHeader(linear.ModelType, b.Features, created),
		Estimator: b.Model,
	}
	if err := writeAtomic(paths.Model, mf); err != nil {
		return errors.Wrapf(err, "save %s artifact", modelName)
	}
	return nil
}

// Load restores both artifacts and checks that they were fitted on features.
//
// A missing file yields an ArtifactError of kind ArtifactMissing; anything that
// cannot be decoded or fails validation yields ArtifactCorrupt.
func Load(paths Paths, features []string) (*Bundle, error) {
	var sf file[*preprocessing.StandardScaler]
	if err := readFile(scalerName, paths.Scaler, &sf); err != nil {
		return nil, err
	}
	if err := checkHeader(sf.Header, preprocessing.StandardScalerType, features); err != nil {
		return nil, errors.NewArtifactCorruptError(scalerName, paths.Scaler, err)
	}
	if sf.Estimator == nil {
		return nil, errors.NewArtifactCorruptError(scalerName, paths.Scaler, errors.New("no scaler encoded"))
	}
	if err := sf.Estimator.Validate(); err != nil {
		return nil, errors.NewArtifactCorruptError(scalerName, paths.Scaler, err)
	}

	var mf file[*linear.LinearRegression]
	if err := readFile(modelName, paths.Model, &mf); err != nil {
		return nil, err
	}
	if err := checkHeader(mf.Header, linear.ModelType, features); err != nil {
		return nil, errors.NewArtifactCorruptError(modelName, paths.Model, err)
	}
	if mf.Estimator == nil {
		return nil, errors.NewArtifactCorruptError(modelName, paths.Model, errors.New("no model encoded"))
	}

	b := &Bundle{
		Scaler:    sf.Estimator,
		Model:     mf.Estimator,
		Features:  slices.Clone(features),
		CreatedAt: mf.Header.CreatedAt,
	}
	if err := b.Validate(); err != nil {
		return nil, errors.NewArtifactCorruptError(modelName, paths.Model, err)
	}
	return b, nil
}

func newHeader(kind string, features []string, created time.Time) Header {
	return Header{
		Format:    Format,
		Version:   Version,
		Kind:      kind,
		Features:  slices.Clone(features),
		CreatedAt: created,
	}
}

func checkHeader(h Header, kind string, features []string) error {
	switch {
	case h.Format != Format:
		return errors.Newf("unexpected format %q", h.Format)
	case h.Version != Version:
		return errors.Newf("unsupported version %d (want %d)", h.Version, Version)
	case h.Kind != kind:
		return errors.Newf("artifact holds %q, want %q", h.Kind, kind)
	case !slices.Equal(h.Features, features):
		return errors.Newf("fitted on features %v, want %v", h.Features, features)
	}
	return nil
}

func readFile(name, path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NewArtifactMissingError(name, path, err)
		}
		return errors.NewArtifactCorruptError(name, path, err)
	}
	defer f.Close()

	if err := model.LoadModelFromReader(v, f); err != nil {
		return errors.NewArtifactCorruptError(name, path, err)
	}
	return nil
}

func writeAtomic(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := model.SaveModelToWriter(v, tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
