package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parley-ai/parley/pkg/persist"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface with programmable behaviour.
type mockDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error

	queryRowFunc func(sql string, args ...any) pgx.Row
}

func (db *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	return pgconn.CommandTag{}, db.execErr
}

func (db *mockDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return db.queryRowFunc(sql, args...)
}

// ---------------------------------------------------------------------------

func TestSave_Upsert(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	store := New(db)

	if err := store.Save(context.Background(), "snapshot", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(db.execSQL) != 1 {
		t.Fatalf("exec count=%d, want 1", len(db.execSQL))
	}
	if got := db.execArgs[0][0]; got != "snapshot" {
		t.Errorf("key arg=%v, want snapshot", got)
	}
}

func TestSave_Error(t *testing.T) {
	t.Parallel()

	db := &mockDB{execErr: errors.New("connection refused")}
	store := New(db)

	if err := store.Save(context.Background(), "k", []byte("x")); err == nil {
		t.Fatal("Save returned nil error, want wrapped exec error")
	}
}

func TestLoad_Found(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*[]byte)) = []byte(`{"a":1}`)
				return nil
			}}
		},
	}
	store := New(db)

	blob, err := store.Load(context.Background(), "snapshot")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(blob) != `{"a":1}` {
		t.Errorf("blob=%s, want {\"a\":1}", blob)
	}
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	store := New(db)

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("Load error=%v, want persist.ErrNotFound", err)
	}
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	store := New(db)

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execSQL) != 1 || db.execSQL[0] != Schema {
		t.Error("Migrate did not execute the Schema DDL")
	}
}
