package model

import (
	"encoding/gob"
	"io"

	"github.com/peakwhale/harbor/pkg/errors"
)

// SaveModelToWriter はモデルをgob形式でio.Writerに保存する
//
// パラメータ:
//   - model: 保存するモデル（BaseEstimatorを埋め込んだ構造体）
//   - w: 保存先のWriter
//
// 使用例:
//
//	var reg linear.LinearRegression
//	// ... モデルの学習 ...
//	err := model.SaveModelToWriter(&reg, f)
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgob形式のモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のモデル（ポインタ）
//   - r: 読み込み元のReader
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
