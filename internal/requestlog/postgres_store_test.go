package requestlog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

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
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

type fakeDB struct {
	queries []string
	args    [][]any
	row     fakeRow
	execErr error
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return f.row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.queries = append(f.queries, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), f.execErr
}

func TestLog(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{"row-1", now}}}
	s := NewPostgresStore(db)

	entry := &Entry{
		RequestID: "req-1",
		KeyHash:   "hash",
		Route:     "chat",
		Model:     "chat-bison-001",
		Status:    200,
		Streamed:  true,
		Fallback:  "filter",
		LatencyMs: 12,
	}
	if err := s.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if entry.ID != "row-1" {
		t.Errorf("Expected ID row-1, got %s", entry.ID)
	}
	if !entry.CreatedAt.Equal(now) {
		t.Errorf("Expected CreatedAt %v, got %v", now, entry.CreatedAt)
	}
	if len(db.queries) != 1 || !strings.Contains(db.queries[0], "INSERT INTO request_logs") {
		t.Fatalf("Unexpected queries %v", db.queries)
	}
	wantArgs := []any{"req-1", "hash", "chat", "chat-bison-001", 200, true, "filter", int64(12)}
	if !reflect.DeepEqual(db.args[0], wantArgs) {
		t.Errorf("Expected args %v, got %v", wantArgs, db.args[0])
	}
}

func TestLog_Error(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("connection reset")}}
	s := NewPostgresStore(db)

	err := s.Log(context.Background(), &Entry{})
	if err == nil || !strings.Contains(err.Error(), "failed to log request") {
		t.Errorf("Expected wrapped log error, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}
	s := NewPostgresStore(db)

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(db.queries) != 1 || !strings.Contains(db.queries[0], "CREATE TABLE IF NOT EXISTS request_logs") {
		t.Errorf("Unexpected queries %v", db.queries)
	}

	db.execErr = errors.New("permission denied")
	if err := s.Migrate(context.Background()); err == nil {
		t.Error("Expected migrate error, got nil")
	}
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	if err := s.Log(context.Background(), &Entry{}); err != nil {
		t.Errorf("NopStore.Log returned %v", err)
	}
}
