package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fleetdata/internal/core"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	execErr error
	row     pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		}
	}
	return nil
}

func TestArchive_Generate(t *testing.T) {
	db := &fakeDB{}
	fixed := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	a := NewArchive(db)
	a.newID = func() uuid.UUID { return fixed }

	handle, err := a.Generate(context.Background(), testBundle(t))

	require.NoError(t, err)
	assert.Equal(t, core.ReportHandle(fixed.String()), handle)
	require.Len(t, db.execs, 1)

	args := db.execs[0].args
	require.Len(t, args, 7)
	assert.Equal(t, fixed, args[0])
	assert.Equal(t, "service.csv", args[1])
	assert.Equal(t, "depots.csv", args[2])

	var op TableDoc
	require.NoError(t, json.Unmarshal(args[5].([]byte), &op))
	assert.Equal(t, []string{"route_id", "stop_id"}, op.Headers)
	assert.Equal(t, [][]string{{"12.00", "45.00"}}, op.Rows)
}

func TestArchive_GenerateInsertError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}

	_, err := NewArchive(db).Generate(context.Background(), testBundle(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert report")
}

func TestArchive_Get(t *testing.T) {
	op, _ := json.Marshal(TableDoc{Headers: []string{"route_id"}, Rows: [][]string{{"1.00"}}})
	base, _ := json.Marshal(TableDoc{Headers: []string{"depot_id"}, Rows: [][]string{{"D1"}}, Dropped: 2})
	db := &fakeDB{row: fakeRow{values: []any{"service.csv", "depots.csv", op, base}}}

	id := uuid.NewString()
	got, err := NewArchive(db).Get(context.Background(), core.ReportHandle(id))

	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "service.csv", got.OperationalFile)
	assert.Equal(t, 2, got.Base.Dropped)
}

func TestArchive_GetInvalidHandle(t *testing.T) {
	_, err := NewArchive(&fakeDB{}).Get(context.Background(), "rep-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report handle")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_GetNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

	_, err := NewArchive(db).Get(context.Background(), core.ReportHandle(uuid.NewString()))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestArchive_Postgres runs against a real database when TEST_DATABASE_URL is set.
func TestArchive_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	a := NewArchive(pool)
	require.NoError(t, a.EnsureSchema(ctx))

	handle, err := a.Generate(ctx, testBundle(t))
	require.NoError(t, err)

	got, err := a.Get(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "depots.csv", got.BaseFile)
	assert.Equal(t, [][]string{{"D1"}}, got.Base.Rows)
}
