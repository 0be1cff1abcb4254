// Package preprocessing provides feature scaling transformers.
package preprocessing

import (
	"fmt"
	"math"

	"github.com/peakwhale/harbor/core/model"
	"github.com/peakwhale/harbor/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StandardScalerType は成果物やログで使用する変換器名
const StandardScalerType = "StandardScaler"

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（0に近い場合は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// NSamplesSeen は学習に使用したサンプル数
	NSamplesSeen int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

var _ model.Transformer = (*StandardScaler)(nil)

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから統計情報（平均、母標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.NSamplesSeen = r
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.WithMean {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		s.Scale[j] = 1.0
		if s.WithStd {
			// 平均を引かない場合でも分散は平均周りで計算する
			mean := s.Mean[j]
			if !s.WithMean {
				for i := 0; i < r; i++ {
					mean += X.At(i, j)
				}
				mean /= float64(r)
			}
			sumSquares := 0.0
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - mean
				sumSquares += diff * diff
			}
			std := math.Sqrt(sumSquares / float64(r))

			// 定数の特徴量はゼロ除算を避けるためスケール1とする
			if std >= 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	if err := errors.CheckNumericalStability("StandardScaler.Fit", append(append([]float64{}, s.Mean...), s.Scale...)); err != nil {
		s.Reset()
		return err
	}

	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError(StandardScalerType, "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Validate は読み込んだスケーラーの内部状態が一貫しているかを検証する
func (s *StandardScaler) Validate() error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(StandardScalerType, "Validate")
	}
	if s.NFeatures <= 0 || len(s.Mean) != s.NFeatures || len(s.Scale) != s.NFeatures {
		return errors.Newf("inconsistent scaler state: n_features=%d, len(mean)=%d, len(scale)=%d",
			s.NFeatures, len(s.Mean), len(s.Scale))
	}
	for j, v := range s.Scale {
		if v == 0 {
			return errors.Newf("scale for feature %d is zero", j)
		}
	}
	return errors.CheckNumericalStability("StandardScaler.Validate", append(append([]float64{}, s.Mean...), s.Scale...))
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
