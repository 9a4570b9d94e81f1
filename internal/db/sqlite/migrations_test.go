package sqlite

import (
	"context"
	"testing"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTablesExistAfterMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	var names []string
	if err := client.db.SelectContext(ctx, &names, "SELECT name FROM sqlite_master WHERE type = 'table'"); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	tables := make(map[string]struct{}, len(names))
	for _, name := range names {
		tables[name] = struct{}{}
	}

	required := []string{"settings", "media", "users", "registration_sessions", "operator_prompts", "submissions"}
	for _, name := range required {
		if _, ok := tables[name]; !ok {
			t.Fatalf("required table %q not found", name)
		}
	}
}

func TestSubmissionStatusIndexExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	rows, err := client.db.QueryContext(ctx, "PRAGMA index_list('submissions')")
	if err != nil {
		t.Fatalf("query index_list: %v", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			t.Fatalf("scan index row: %v", err)
		}
		if name == "idx_submissions_status" {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate index rows: %v", err)
	}
	if !found {
		t.Fatal("idx_submissions_status not found")
	}
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	client, err := NewSQLiteClient(ctx, dir, "reopen.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	if err := client.SetSetting(ctx, "start_text", "hello"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteClient(ctx, dir, "reopen.db")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	all, err := reopened.AllSettings(ctx)
	if err != nil || all["start_text"] != "hello" {
		t.Fatalf("unexpected setting after reopen: %q %v", all["start_text"], err)
	}
}
