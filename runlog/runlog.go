// Package runlog records training runs in a SQLite ledger.
package runlog

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/peakwhale/harbor/pkg/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS training_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name TEXT NOT NULL,
    source TEXT NOT NULL,
    seed INTEGER NOT NULL,
    test_size REAL NOT NULL,
    train_samples INTEGER NOT NULL,
    test_samples INTEGER NOT NULL,
    rmse REAL NOT NULL,
    mae REAL NOT NULL,
    r2 REAL NOT NULL,
    scaler_path TEXT NOT NULL,
    model_path TEXT NOT NULL,
    trained_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at);
`

// Run is one completed training run.
type Run struct {
	ID           int64     `json:"id"`
	ModelName    string    `json:"model_name"`
	Source       string    `json:"source"`
	Seed         uint64    `json:"seed"`
	TestSize     float64   `json:"test_size"`
	TrainSamples int       `json:"train_samples"`
	TestSamples  int       `json:"test_samples"`
	RMSE         float64   `json:"rmse"`
	MAE          float64   `json:"mae"`
	R2           float64   `json:"r2"`
	ScalerPath   string    `json:"scaler_path"`
	ModelPath    string    `json:"model_path"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Store is a SQLite-backed ledger of training runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open run ledger %s", path)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create run ledger schema")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends run to the ledger and returns its id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO training_runs (model_name, source, seed, test_size, train_samples, test_samples,
                                   rmse, mae, r2, scaler_path, model_path, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ModelName, run.Source, int64(run.Seed), run.TestSize, run.TrainSamples, run.TestSamples,
		run.RMSE, run.MAE, run.R2, run.ScalerPath, run.ModelPath, run.TrainedAt.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "insert training run")
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, model_name, source, seed, test_size, train_samples, test_samples,
               rmse, mae, r2, scaler_path, model_path, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query training runs")
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var seed int64
		if err := rows.Scan(&r.ID, &r.ModelName, &r.Source, &seed, &r.TestSize, &r.TrainSamples,
			&r.TestSamples, &r.RMSE, &r.MAE, &r.R2, &r.ScalerPath, &r.ModelPath, &r.TrainedAt); err != nil {
			return nil, errors.Wrap(err, "scan training run")
		}
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	return runs, errors.WithStack(rows.Err())
}
