// Package linear provides ordinary least squares linear regression.
package linear

import (
	"fmt"

	"github.com/peakwhale/harbor/core/model"
	"github.com/peakwhale/harbor/core/parallel"
	"github.com/peakwhale/harbor/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ModelType は成果物やログで使用するモデル名
const ModelType = "LinearRegression"

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator               // BaseEstimatorを埋め込み
	Weights             *mat.VecDense // 重み（係数）
	Intercept           float64       // 切片
	NFeatures           int           // 特徴量の数
}

var _ model.Regressor = (*LinearRegression)(nil)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// Fit はモデルを訓練データで学習させる
// 切片列を加えた計画行列 [1, X] に対して最小二乗問題をQR分解で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}

	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}

	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	if r < c+1 {
		return errors.NewValueError("LinearRegression.Fit",
			fmt.Sprintf("need at least %d samples for %d features, got %d", c+1, c, r))
	}

	// X_with_intercept = [1, X]
	XWithIntercept := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			XWithIntercept.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})

	yCol := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		yCol.Set(i, 0, y.At(i, 0))
	}

	var coef mat.Dense
	if err := coef.Solve(XWithIntercept, yCol); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	lr.NFeatures = c
	lr.Intercept = coef.At(0, 0)
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, coef.At(j+1, 0))
	}

	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.GetWeights()); err != nil {
		lr.Reset()
		return err
	}

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError(ModelType, "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}

	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.IsFitted() {
		return 0, errors.NewNotFittedError(ModelType, "Score")
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	if r == 0 {
		return 0, errors.NewValueError("LinearRegression.Score", "empty target")
	}

	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	// 全変動 (TSS) と残差変動 (RSS)
	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		yPredVal := yPred.At(i, 0)

		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += (yTrue - yPredVal) * (yTrue - yPredVal)
	}

	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// ExportWeights は学習済みの係数を特徴量名と対応付けて書き出す
func (lr *LinearRegression) ExportWeights(features []string) (*model.ModelWeights, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError(ModelType, "ExportWeights")
	}
	if features != nil && len(features) != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.ExportWeights", lr.NFeatures, len(features), 1)
	}

	mw := &model.ModelWeights{
		ModelType:    ModelType,
		Version:      "1.0.0",
		Coefficients: lr.GetWeights(),
		Intercept:    lr.Intercept,
		Features:     features,
		IsFitted:     true,
	}
	return mw, mw.Validate()
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(n_features=%d, intercept=%.4f)", lr.NFeatures, lr.Intercept)
}
