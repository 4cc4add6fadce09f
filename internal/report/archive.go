package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/logging"
)

// ErrNotFound is returned by Get for handles the archive has no row for.
var ErrNotFound = errors.New("report not found")

// DB is the subset of *pgxpool.Pool the archive uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createReportsTable = `
CREATE TABLE IF NOT EXISTS fleet_reports (
	id               UUID PRIMARY KEY,
	operational_file TEXT NOT NULL,
	base_file        TEXT NOT NULL,
	operational_csv  BYTEA NOT NULL,
	base_csv         BYTEA NOT NULL,
	operational_data JSONB NOT NULL,
	base_data        JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertReport = `
INSERT INTO fleet_reports
	(id, operational_file, base_file, operational_csv, base_csv, operational_data, base_data)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Archive stores generated report inputs in Postgres and returns the row id
// as the report handle.
type Archive struct {
	db    DB
	newID func() uuid.UUID
}

// NewArchive returns an archive writing through db.
func NewArchive(db DB) *Archive {
	return &Archive{db: db, newID: uuid.New}
}

// EnsureSchema creates the reports table if it does not exist.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, createReportsTable); err != nil {
		return fmt.Errorf("create fleet_reports: %w", err)
	}
	return nil
}

// TableDoc is the JSONB shape of one normalized table.
type TableDoc struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Dropped int        `json:"dropped"`
}

func newTableDoc(t *core.Table) TableDoc {
	if t == nil {
		return TableDoc{Headers: []string{}, Rows: [][]string{}}
	}
	return TableDoc{Headers: t.Headers, Rows: t.Records(), Dropped: t.DroppedCount()}
}

// Generate implements core.Generator.
func (a *Archive) Generate(ctx context.Context, b core.Bundle) (core.ReportHandle, error) {
	opData, err := json.Marshal(newTableDoc(b.Operational.Table))
	if err != nil {
		return "", fmt.Errorf("marshal operational table: %w", err)
	}
	baseData, err := json.Marshal(newTableDoc(b.Base.Table))
	if err != nil {
		return "", fmt.Errorf("marshal base table: %w", err)
	}

	id := a.newID()
	_, err = a.db.Exec(ctx, insertReport,
		id,
		b.Operational.Upload.FileName,
		b.Base.Upload.FileName,
		b.Operational.Upload.Content,
		b.Base.Upload.Content,
		opData,
		baseData,
	)
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}

	logging.FromContext(ctx).Info("report archived",
		"report_id", id.String(),
		"operational_file", b.Operational.Upload.FileName,
		"base_file", b.Base.Upload.FileName,
	)
	return core.ReportHandle(id.String()), nil
}

// Stored is an archived report as read back from the database.
type Stored struct {
	ID              string   `json:"id"`
	OperationalFile string   `json:"operationalFile"`
	BaseFile        string   `json:"baseFile"`
	Operational     TableDoc `json:"operational"`
	Base            TableDoc `json:"base"`
}

// Get loads an archived report by handle.
func (a *Archive) Get(ctx context.Context, handle core.ReportHandle) (*Stored, error) {
	id, err := uuid.Parse(string(handle))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid report handle %q: %w", ErrNotFound, handle, err)
	}

	var (
		s              Stored
		opRaw, baseRaw []byte
	)
	err = a.db.QueryRow(ctx,
		`SELECT operational_file, base_file, operational_data, base_data FROM fleet_reports WHERE id = $1`,
		id,
	).Scan(&s.OperationalFile, &s.BaseFile, &opRaw, &baseRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}

	if err := json.Unmarshal(opRaw, &s.Operational); err != nil {
		return nil, fmt.Errorf("decode operational table: %w", err)
	}
	if err := json.Unmarshal(baseRaw, &s.Base); err != nil {
		return nil, fmt.Errorf("decode base table: %w", err)
	}
	s.ID = id.String()
	return &s, nil
}
