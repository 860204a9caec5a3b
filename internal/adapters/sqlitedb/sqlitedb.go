// Package sqlitedb opens the SQLite database shared by the durable stores.
//
// The event tables follow the ProgSnap2 layout (MainTable, CodeStates,
// DatasetMetadata) so a database written by the service can be loaded by
// standard ProgSnap2 tooling. Model records and sticky condition
// assignments live in their own tables next to them.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// TimeLayout is a fixed-width UTC layout so stored timestamps sort as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS CodeStates (
	CodeStateID INTEGER PRIMARY KEY,
	Code        TEXT
);

CREATE TABLE IF NOT EXISTS MainTable (
	EventID         TEXT PRIMARY KEY,
	"Order"         INTEGER NOT NULL,
	SubjectID       TEXT,
	ProblemID       TEXT,
	AssignmentID    TEXT,
	EventType       TEXT NOT NULL,
	CodeStateID     INTEGER,
	ClientTimestamp TEXT,
	ServerTimestamp TEXT NOT NULL,
	Score           REAL,
	FOREIGN KEY (CodeStateID) REFERENCES CodeStates(CodeStateID)
);

CREATE INDEX IF NOT EXISTS idx_main_problem ON MainTable (ProblemID, EventType);

CREATE TABLE IF NOT EXISTS DatasetMetadata (
	Property TEXT PRIMARY KEY,
	Value    TEXT
);

CREATE TABLE IF NOT EXISTS model_records (
	problem_id     TEXT PRIMARY KEY,
	training_count INTEGER NOT NULL,
	trained_at     TEXT NOT NULL,
	payload        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	scope           TEXT NOT NULL,
	subject_id      TEXT NOT NULL,
	is_intervention INTEGER NOT NULL,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (scope, subject_id)
);
`

// metadata is written once into an empty DatasetMetadata table.
var metadata = [][2]string{
	{"Version", "8.0"},
	{"IsEventOrderingConsistent", "1"},
	{"EventOrderScope", "Global"},
	{"EventOrderScopeColumns", ""},
	{"CodeStateRepresentation", "Sqlite"},
}

// pragmas are applied through the DSN so that every pooled connection
// gets them, not just the first.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
}

// Open connects to the database at path, applies pragmas and runs the
// schema migration.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open database: empty path")
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		if path == MemoryPath && strings.HasPrefix(p, "journal_mode") {
			continue
		}
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM DatasetMetadata`).Scan(&n); err != nil {
		return fmt.Errorf("count metadata: %w", err)
	}
	if n == 0 {
		for _, kv := range metadata {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO DatasetMetadata (Property, Value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
				return fmt.Errorf("seed metadata %s: %w", kv[0], err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
