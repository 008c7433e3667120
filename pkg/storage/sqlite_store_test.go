package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSchemaInitialized(t *testing.T) {
	store := newTempStore(t)
	rows, err := store.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		t.Fatalf("query schema: %v", err)
	}
	defer rows.Close()

	required := map[string]bool{
		"server_about":          false,
		"announcement_channels": false,
		"guild_config":          false,
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if _, ok := required[name]; ok {
			required[name] = true
		}
	}
	for k, ok := range required {
		if !ok {
			t.Fatalf("expected table %s to exist", k)
		}
	}

	for _, col := range []string{"thumbnail_url", "image_url", "embed_color", "updated_at"} {
		ok, err := columnExists(store.db, "server_about", col)
		if err != nil {
			t.Fatalf("column check: %v", err)
		}
		if !ok {
			t.Fatalf("expected migrated column server_about.%s", col)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// A database created before the optional about columns existed.
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	if _, err := legacy.Exec(`CREATE TABLE server_about (guild_id TEXT PRIMARY KEY, about_text TEXT NOT NULL, author_id TEXT NOT NULL)`); err != nil {
		t.Fatalf("create legacy: %v", err)
	}
	if _, err := legacy.Exec(`INSERT INTO server_about (guild_id, about_text, author_id) VALUES ('g1', 'old text', 'u1')`); err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	_ = legacy.Close()

	for i := 0; i < 2; i++ {
		store := NewStore(dbPath)
		if err := store.Init(); err != nil {
			t.Fatalf("init %d: %v", i, err)
		}
		row, err := store.GetRow(context.Background(), AboutTable, "g1")
		if err != nil {
			t.Fatalf("get row: %v", err)
		}
		if row == nil || row.Values["about_text"] != "old text" {
			t.Fatalf("expected legacy row to survive migration, got %+v", row)
		}
		if _, ok := row.Values["image_url"]; ok {
			t.Fatalf("expected NULL image_url to be absent")
		}
		_ = store.Close()
	}
}

func TestRowLifecycle(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	inserted, err := store.InsertRow(ctx, AnnouncementTable, "g1", map[string]string{"channel_id": "c1", "set_by": "u1"}, at)
	if err != nil || !inserted {
		t.Fatalf("insert: inserted=%v err=%v", inserted, err)
	}

	inserted, err = store.InsertRow(ctx, AnnouncementTable, "g1", map[string]string{"channel_id": "c2", "set_by": "u2"}, at)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected second insert to be rejected")
	}

	row, err := store.GetRow(ctx, AnnouncementTable, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Values["channel_id"] != "c1" {
		t.Fatalf("expected original channel to remain, got %q", row.Values["channel_id"])
	}
	if !row.UpdatedAt.Equal(at) {
		t.Fatalf("expected updated_at %v, got %v", at, row.UpdatedAt)
	}

	later := at.Add(time.Hour)
	updated, err := store.UpdateRow(ctx, AnnouncementTable, "g1", map[string]string{"channel_id": "c3", "set_by": "u3"}, later)
	if err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}
	row, _ = store.GetRow(ctx, AnnouncementTable, "g1")
	if row.Values["channel_id"] != "c3" || !row.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected row after update: %+v", row)
	}

	deleted, err := store.DeleteRow(ctx, AnnouncementTable, "g1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	row, err = store.GetRow(ctx, AnnouncementTable, "g1")
	if err != nil || row != nil {
		t.Fatalf("expected row gone, got %+v err=%v", row, err)
	}

	deleted, _ = store.DeleteRow(ctx, AnnouncementTable, "g1")
	if deleted {
		t.Fatalf("expected delete of missing row to report false")
	}
	updated, _ = store.UpdateRow(ctx, AnnouncementTable, "g1", map[string]string{"channel_id": "c"}, later)
	if updated {
		t.Fatalf("expected update of missing row to report false")
	}
}

func TestUpdateRowNullsMissingColumns(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.InsertRow(ctx, AboutTable, "g1", map[string]string{
		"about_text": "hello", "author_id": "u1", "image_url": "https://example.com/a.png",
	}, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.UpdateRow(ctx, AboutTable, "g1", map[string]string{"about_text": "hello", "author_id": "u1"}, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	row, _ := store.GetRow(ctx, AboutTable, "g1")
	if _, ok := row.Values["image_url"]; ok {
		t.Fatalf("expected image_url cleared, got %+v", row.Values)
	}
}

func TestUninitializedStoreErrors(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "x.db"))
	if _, err := store.GetRow(context.Background(), AboutTable, "g"); err == nil {
		t.Fatalf("expected error from uninitialized store")
	}
	if err := NewStore("").Init(); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
