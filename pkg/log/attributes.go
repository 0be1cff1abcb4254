// Package log defines standard attribute keys for training and serving.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that trainer and server logs can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "LinearRegression", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "load", "save"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "trainer", "server", "artifact"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// SourceKey records where a dataset was read from (file path or URL).
	SourceKey = "data.source"

	// PathKey records an artifact or output file path.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey records root mean squared error on the evaluation split.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error on the evaluation split.
	MAEKey = "metrics.mae"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Prediction Context
const (
	// PredictionKey records a single predicted value.
	PredictionKey = "preds.value"
)

// HTTP Context
const (
	// RequestIDKey identifies a single HTTP request.
	RequestIDKey = "http.request_id"

	// MethodKey records the HTTP method.
	MethodKey = "http.method"

	// RouteKey records the matched route path.
	RouteKey = "http.route"

	// StatusKey records the response status code.
	StatusKey = "http.status"

	// AddrKey records a listen address.
	AddrKey = "http.addr"
)

// Error Context
const (
	// ErrorKey holds the error message.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	// Examples: "ValidationError", "PredictionError", "ArtifactError"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationLoad      = "load"
	OperationSave      = "save"
	OperationEvaluate  = "evaluate"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
