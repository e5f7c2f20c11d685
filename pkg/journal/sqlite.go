// SPDX-License-Identifier: Apache-2.0
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteJournal persists lifecycle events in SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	owned bool
}

// Open opens (or creates) the journal database at path. Use ":memory:"
// for a throwaway journal.
func Open(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "open journal database", err).WithContext("path", path)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	j, err := NewSQLiteJournal(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	j.owned = true
	return j, nil
}

// NewSQLiteJournal wraps db and ensures the schema exists.
func NewSQLiteJournal(db *sql.DB) (*SQLiteJournal, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureSchema(db); err != nil {
		return nil, errors.New(errors.CodeInternal, "create journal schema", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Emit stores a single event.
func (j *SQLiteJournal) Emit(ctx context.Context, event core.Event) error {
	var meta []byte
	if len(event.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(event.Metadata); err != nil {
			return errors.New(errors.CodeInternal, "encode event metadata", err)
		}
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events (
			run_id, correlation_id, agent, event_type, iteration, content, metadata_json, emitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.CorrelationID,
		event.Agent,
		string(event.Type),
		event.Iteration,
		event.Content,
		string(meta),
		ts.UTC().UnixNano(),
	)
	if err != nil {
		return errors.New(errors.CodeInternal, "record lifecycle event", err).WithContext("type", string(event.Type))
	}
	return nil
}

// List returns events matching the filter in emission order.
func (j *SQLiteJournal) List(ctx context.Context, filter Filter) ([]core.Event, error) {
	query := `
		SELECT run_id, correlation_id, agent, event_type, iteration, content, metadata_json, emitted_at
		FROM lifecycle_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.CorrelationID != "" {
		addFilter("correlation_id = ?", filter.CorrelationID)
	}
	if filter.Agent != "" {
		addFilter("agent = ?", filter.Agent)
	}
	if filter.Type != "" {
		addFilter("event_type = ?", string(filter.Type))
	}
	query += where + " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "query lifecycle events", err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		var (
			event     core.Event
			eventType string
			metaJSON  string
			emitted   int64
		)
		if err := rows.Scan(
			&event.RunID,
			&event.CorrelationID,
			&event.Agent,
			&eventType,
			&event.Iteration,
			&event.Content,
			&metaJSON,
			&emitted,
		); err != nil {
			return nil, errors.New(errors.CodeInternal, "scan lifecycle event", err)
		}
		event.Type = core.EventType(eventType)
		event.Timestamp = time.Unix(0, emitted).UTC()
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &event.Metadata)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeInternal, "iterate lifecycle events", err)
	}
	return events, nil
}

// Ping checks the database connection.
func (j *SQLiteJournal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the database if the journal opened it.
func (j *SQLiteJournal) Close() error {
	if !j.owned {
		return nil
	}
	return j.db.Close()
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL DEFAULT '',
			agent TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL,
			iteration INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '',
			emitted_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_lifecycle_run ON lifecycle_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_lifecycle_correlation ON lifecycle_events(correlation_id);
	`)
	return err
}

var (
	_ Journal = (*SQLiteJournal)(nil)
	_ Journal = (*MemoryJournal)(nil)
)
