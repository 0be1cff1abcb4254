package model

import (
	"encoding/json"

	"github.com/peakwhale/harbor/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（人が読めるJSON形式での出力用）
type ModelWeights struct {
	// ModelType はモデルの種類
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン
	Version string `json:"version"`

	// Coefficients は重み係数（Featuresと同じ順序）
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は特徴量の名前
	Features []string `json:"features,omitempty"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.New("model_type is required")
	}

	if mw.Version == "" {
		return errors.New("version is required")
	}

	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.New("unfitted model should not have coefficients")
	}

	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return errors.New("fitted model must have coefficients")
	}

	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.Newf("got %d feature names for %d coefficients", len(mw.Features), len(mw.Coefficients))
	}

	if err := errors.CheckNumericalStability("ModelWeights.Validate", append([]float64{mw.Intercept}, mw.Coefficients...)); err != nil {
		return err
	}

	return nil
}
