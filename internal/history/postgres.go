package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS fleet_report_history (
	id            UUID PRIMARY KEY,
	employee_name TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	report_date   TEXT NOT NULL,
	report_time   TEXT NOT NULL,
	report_handle TEXT NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createHistoryIndex = `
CREATE INDEX IF NOT EXISTS fleet_report_history_recorded_at_idx
	ON fleet_report_history (recorded_at DESC)`

// PGStore is a Recorder backed by Postgres.
type PGStore struct {
	db  DB
	now func() time.Time
}

// NewPGStore returns a store writing through db.
func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// EnsureSchema creates the history table and index if they do not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createHistoryTable, createHistoryIndex} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
	}
	return nil
}

// Record inserts rec.
func (s *PGStore) Record(ctx context.Context, rec core.HistoryRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO fleet_report_history
			(id, employee_name, file_name, report_date, report_time, report_handle, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pgtype.UUID{Bytes: [16]byte(uuid.New()), Valid: true},
		rec.EmployeeName,
		rec.FileName,
		rec.Date,
		rec.Time,
		string(rec.ReportHandle),
		pgtype.Timestamptz{Time: s.now(), Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *PGStore) List(ctx context.Context, limit int) ([]core.HistoryRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT employee_name, file_name, report_date, report_time, report_handle
		FROM fleet_report_history
		ORDER BY recorded_at DESC
		LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := make([]core.HistoryRecord, 0)
	for rows.Next() {
		var (
			rec    core.HistoryRecord
			handle pgtype.Text
		)
		if err := rows.Scan(&rec.EmployeeName, &rec.FileName, &rec.Date, &rec.Time, &handle); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if handle.Valid {
			rec.ReportHandle = core.ReportHandle(handle.String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}
