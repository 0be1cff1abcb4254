// Package errors はプロジェクト全体のエラーハンドリングを提供します。
// cockroachdb/errors をラップし、スタックトレース付きの構造化されたエラー型を定義します。
//
// エラーは大きく三つに分類されます:
//   - ArtifactError: 起動時に致命的となる成果物の欠落・破損
//   - ValidationError: 呼び出し側の入力に起因するエラー (HTTP 400)
//   - PredictionError: 変換・予測中の数値/形状エラー (HTTP 400)
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	成果物 (artifact) エラー
//
// ===========================================================================

// ArtifactKind は成果物エラーの種類です。
type ArtifactKind string

const (
	// ArtifactMissing は成果物ファイルが存在しないことを示します。
	ArtifactMissing ArtifactKind = "ArtifactMissing"
	// ArtifactCorrupt は成果物ファイルのデコードまたは検証に失敗したことを示します。
	ArtifactCorrupt ArtifactKind = "ArtifactCorrupt"
)

// ArtifactError は学習済み成果物（スケーラー・モデル）の読み込みに失敗した場合のエラーです。
// サーバー起動時に発生した場合は致命的です。
type ArtifactError struct {
	Kind ArtifactKind
	Name string // "scaler" or "model"
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("harbor: %s: %s artifact at %s: %v", e.Kind, e.Name, e.Path, e.Err)
	}
	return fmt.Sprintf("harbor: %s: %s artifact at %s", e.Kind, e.Name, e.Path)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArtifactError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", string(e.Kind)).
		Str("artifact", e.Name).
		Str("path", e.Path).
		Str("type", "ArtifactError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewArtifactMissingError は新しいArtifactMissingエラーを作成し、スタックトレースを付与します。
func NewArtifactMissingError(name, path string, err error) error {
	return errors.WithStack(&ArtifactError{Kind: ArtifactMissing, Name: name, Path: path, Err: err})
}

// NewArtifactCorruptError は新しいArtifactCorruptエラーを作成し、スタックトレースを付与します。
func NewArtifactCorruptError(name, path string, err error) error {
	return errors.WithStack(&ArtifactError{Kind: ArtifactCorrupt, Name: name, Path: path, Err: err})
}

// IsArtifactKind はerrが指定された種類のArtifactErrorかどうかを判定します。
func IsArtifactKind(err error, kind ArtifactKind) bool {
	var ae *ArtifactError
	return errors.As(err, &ae) && ae.Kind == kind
}

// ===========================================================================
//
//	入力検証エラー
//
// ===========================================================================

// ValidationError は呼び出し側の入力の検証に失敗した場合のエラーです。
// 欠落フィールドはすべて Missing に列挙され、数値変換の失敗は Field/Value に記録されます。
type ValidationError struct {
	Missing []string    // スキーマ順の欠落フィールド名
	Field   string      // 変換に失敗したフィールド名
	Value   interface{} // 変換に失敗した生の値
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required features: %s", strings.Join(e.Missing, ", "))
	}
	if e.Field != "" {
		return fmt.Sprintf("%s for feature '%s': %v", e.Reason, e.Field, e.Value)
	}
	return e.Reason
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	if len(e.Missing) > 0 {
		event.Strs("missing", e.Missing)
	}
	if e.Field != "" {
		event.Str("field", e.Field).Interface("value", e.Value)
	}
	event.Str("reason", e.Reason).Str("type", "ValidationError")
}

// NewMissingFeaturesError は欠落フィールドを列挙したValidationErrorを作成します。
func NewMissingFeaturesError(missing []string) error {
	return errors.WithStack(&ValidationError{Missing: missing, Reason: "missing required features"})
}

// NewInvalidFeatureError は変換できない値を持つフィールドのValidationErrorを作成します。
func NewInvalidFeatureError(field string, value interface{}, reason string) error {
	return errors.WithStack(&ValidationError{Field: field, Value: value, Reason: reason})
}

// NewShapeValidationError はリクエスト全体の形が不正な場合のValidationErrorを作成します。
func NewShapeValidationError(reason string) error {
	return errors.WithStack(&ValidationError{Reason: reason})
}

// ===========================================================================
//
//	予測エラー
//
// ===========================================================================

// PredictionError は変換または予測の実行中に失敗した場合のエラーです。
// 元のエラーメッセージは保持され、呼び出し側にそのまま返されます。
type PredictionError struct {
	Stage string // "transform" or "predict"
	Err   error
}

func (e *PredictionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("prediction failed during %s", e.Stage)
	}
	return fmt.Sprintf("prediction failed during %s: %v", e.Stage, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PredictionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).Str("type", "PredictionError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewPredictionError は新しいPredictionErrorを作成し、スタックトレースを付与します。
func NewPredictionError(stage string, err error) error {
	return errors.WithStack(&PredictionError{Stage: stage, Err: err})
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("harbor: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("harbor: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("harbor: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("harbor: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("harbor: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Infを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	var b strings.Builder
	for i, v := range e.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 5 {
			b.WriteString("...")
			break
		}
		fmt.Fprintf(&b, "%.6g", v)
	}
	return fmt.Sprintf("harbor: non-finite values in %s: [%s]", e.Operation, b.String())
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
