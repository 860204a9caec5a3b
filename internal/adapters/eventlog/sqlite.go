package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/stride/internal/adapters/sqlitedb"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/metrics"
)

const submissionFilter = `m.ProblemID = ? AND m.EventType IN (?, ?, ?)`

// SQLiteLog writes events to the ProgSnap2 MainTable and CodeStates tables.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog wraps an opened database (see sqlitedb.Open).
func NewSQLiteLog(db *sql.DB) *SQLiteLog {
	return &SQLiteLog{db: db}
}

func submissionArgs(problemID string) []any {
	return []any{problemID, model.EventSubmit, model.EventRunProgram, model.EventProjectSubmit}
}

// Append implements Log. The code state and the event row are written in
// one transaction; Order is one past the current maximum.
func (l *SQLiteLog) Append(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	if e.EventID == "" {
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("event_append", float64(time.Since(start).Milliseconds())) }()

	ts := e.ServerTimestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var score sql.NullFloat64
	if e.Score != nil {
		score = sql.NullFloat64{Float64: *e.Score, Valid: true}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `INSERT INTO CodeStates (Code) VALUES (?)`, e.Code)
	if err != nil {
		return fmt.Errorf("%w: insert code state: %v", ErrPersistence, err)
	}
	codeStateID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: code state id: %v", ErrPersistence, err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO MainTable (EventID, "Order", SubjectID, ProblemID, AssignmentID, EventType,
			CodeStateID, ClientTimestamp, ServerTimestamp, Score)
		 VALUES (?, (SELECT IFNULL(MAX("Order"), 0) + 1 FROM MainTable), ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(EventID) DO NOTHING`,
		e.EventID, e.SubjectID, e.ProblemID, e.AssignmentID, e.EventType,
		codeStateID, e.ClientTimestamp, ts.UTC().Format(sqlitedb.TimeLayout), score,
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.EventID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// DistinctCorrectCount implements Log.
func (l *SQLiteLog) DistinctCorrectCount(ctx context.Context, problemID string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT c.Code)
		   FROM MainTable m JOIN CodeStates c ON c.CodeStateID = m.CodeStateID
		  WHERE `+submissionFilter+` AND m.Score >= 1`,
		submissionArgs(problemID)...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count correct: %v", ErrPersistence, err)
	}
	return n, nil
}

// CorrectSubmissions implements Log.
func (l *SQLiteLog) CorrectSubmissions(ctx context.Context, problemID string) ([]model.Submission, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT c.Code, MIN(m.ServerTimestamp)
		   FROM MainTable m JOIN CodeStates c ON c.CodeStateID = m.CodeStateID
		  WHERE `+submissionFilter+` AND m.Score >= 1
		  GROUP BY c.Code
		  ORDER BY MIN(m."Order")`,
		submissionArgs(problemID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query correct: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			code sql.NullString
			ts   string
		)
		if err := rows.Scan(&code, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan correct: %v", ErrPersistence, err)
		}
		out = append(out, model.Submission{Code: code.String, Correct: true, Time: parseTime(ts)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate correct: %v", ErrPersistence, err)
	}
	return out, nil
}

// LabeledSubmissions implements Log.
func (l *SQLiteLog) LabeledSubmissions(ctx context.Context, problemID string) ([]model.Submission, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT c.Code, m.Score, m.ServerTimestamp
		   FROM MainTable m JOIN CodeStates c ON c.CodeStateID = m.CodeStateID
		  WHERE `+submissionFilter+` AND m.Score IS NOT NULL
		  ORDER BY m."Order"`,
		submissionArgs(problemID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query labeled: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			code  sql.NullString
			score float64
			ts    string
		)
		if err := rows.Scan(&code, &score, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan labeled: %v", ErrPersistence, err)
		}
		out = append(out, model.Submission{Code: code.String, Correct: model.IsCorrectScore(score), Time: parseTime(ts)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate labeled: %v", ErrPersistence, err)
	}
	return out, nil
}

// Len implements Log.
func (l *SQLiteLog) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM MainTable`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count events: %v", ErrPersistence, err)
	}
	return n, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(sqlitedb.TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
