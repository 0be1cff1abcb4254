// Package harbor is PeakWhale Harbor, a housing price predictor built on an
// ordinary least squares model over a fixed 13-feature schema.
//
// The repository ships two binaries that share nothing but the artifact files:
//
//   - cmd/harbor-train fits a StandardScaler and a LinearRegression on the
//     housing CSV and writes artifacts/scaling.gob and artifacts/regmodel.gob.
//   - cmd/harbor-server loads both artifacts at startup and serves a JSON API
//     (/predict_api, /schema, /health, /metrics) and an HTML form (/, /predict).
//
// # Packages
//
//	schema        feature metadata and the validator that builds FeatureRows
//	dataset       CSV loading (local first, remote fallback) and train/test split
//	preprocessing StandardScaler
//	linear        LinearRegression (QR-based OLS)
//	metrics       RMSE, MAE and R² for the evaluation report
//	artifact      versioned gob persistence of the fitted bundle
//	inference     the immutable prediction Engine
//	trainer       the offline training pipeline, plot and run ledger
//	runlog        SQLite history of training runs
//	server        HTTP handlers, middleware and Prometheus metrics
//	config        defaults, YAML file, environment and flags
//	pkg/errors    typed errors on top of cockroachdb/errors
//	pkg/log       zerolog-backed structured logging
//
// # Quick Start
//
//	go run ./cmd/harbor-train --data data/boston_housing.csv
//	go run ./cmd/harbor-server --port 5000
//
//	curl -s localhost:5000/predict_api -d '{"data":{"CRIM":0.1,"ZN":0,...}}'
package harbor
