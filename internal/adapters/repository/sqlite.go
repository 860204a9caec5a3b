package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/stride/internal/adapters/sqlitedb"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// SQLiteStore keeps one JSON-encoded record per problem in model_records.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore wraps an opened database (see sqlitedb.Open).
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, problemID string) (*model.Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("model_get", float64(time.Since(start).Milliseconds())) }()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM model_records WHERE problem_id = ?`, problemID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, problemID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrPersistence, problemID, err)
	}

	var rec model.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, problemID, err)
	}
	rec.Prepare()
	return &rec, nil
}

// Publish implements Store. The row is upserted in a single transaction so
// a failure leaves the previous row untouched.
func (s *SQLiteStore) Publish(ctx context.Context, rec *model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("model_publish", float64(time.Since(start).Milliseconds())) }()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, rec.ProblemID, err)
	}
	trainedAt := rec.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_records (problem_id, training_count, trained_at, payload)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(problem_id) DO UPDATE SET
			training_count = excluded.training_count,
			trained_at     = excluded.trained_at,
			payload        = excluded.payload`,
		rec.ProblemID, rec.TrainingCount, trainedAt.UTC().Format(sqlitedb.TimeLayout), string(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, rec.ProblemID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrPersistence, rec.ProblemID, err)
	}

	rec.Prepare()
	metrics.UpdateModelsPublished(s.Count(ctx))
	s.opts.logger.Debug(ctx, "model published",
		logger.String("problem_id", rec.ProblemID),
		logger.Int("training_count", rec.TrainingCount),
	)
	return nil
}

// TrainingCount implements Store.
func (s *SQLiteStore) TrainingCount(ctx context.Context, problemID string) (int, bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT training_count FROM model_records WHERE problem_id = ?`, problemID,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: training count %s: %v", ErrPersistence, problemID, err)
	}
	return n, true, nil
}

// Count implements Store. A failed query counts as zero.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_records`).Scan(&n); err != nil {
		s.opts.logger.Warn(ctx, "count model records failed", logger.Error(err))
		return 0
	}
	return n
}
