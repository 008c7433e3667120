package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps an embedded SQLite database holding guild-scoped settings rows.
// It uses modernc.org/sqlite for CGO-less builds.
type Store struct {
	dbPath string
	db     *sql.DB
}

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []struct{ stmt, what string }{
		{`PRAGMA journal_mode=WAL;`, "set WAL"},
		{`PRAGMA foreign_keys=ON;`, "enable FKs"},
		{`PRAGMA busy_timeout=5000;`, "set busy_timeout"},
		{`PRAGMA synchronous=NORMAL;`, "set synchronous"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("%s: %w", p.what, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Row is one guild's record in a Table. Values holds non-NULL columns only.
type Row struct {
	GuildID   string
	Values    map[string]string
	UpdatedAt time.Time
}

// GetRow returns the row for guildID, or nil when none exists.
func (s *Store) GetRow(ctx context.Context, t Table, guildID string) (*Row, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	cols := append([]string{t.Key}, t.Columns...)
	if t.UpdatedColumn != "" {
		cols = append(cols, t.UpdatedColumn)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s=?`, strings.Join(cols, ", "), t.Name, t.Key)

	dest := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := s.db.QueryRowContext(ctx, query, guildID).Scan(ptrs...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}

	row := &Row{GuildID: dest[0].String, Values: make(map[string]string, len(t.Columns))}
	for i, col := range t.Columns {
		if v := dest[i+1]; v.Valid {
			row.Values[col] = v.String
		}
	}
	if t.UpdatedColumn != "" {
		row.UpdatedAt = parseTimestamp(dest[len(dest)-1].String)
	}
	return row, nil
}

// InsertRow creates the row for guildID. It reports false, without writing,
// when a row already exists. Columns missing from values are stored as NULL.
func (s *Store) InsertRow(ctx context.Context, t Table, guildID string, values map[string]string, at time.Time) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("store not initialized")
	}

	cols, args := t.columnArgs(values, at)
	cols = append([]string{t.Key}, cols...)
	args = append([]any{guildID}, args...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO NOTHING`,
			t.Name, strings.Join(cols, ", "), placeholders, t.Key),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", t.Name, err)
	}
	return n > 0, nil
}

// UpdateRow replaces every managed column of an existing row. Columns missing
// from values become NULL. It reports false when no row exists.
func (s *Store) UpdateRow(ctx context.Context, t Table, guildID string, values map[string]string, at time.Time) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("store not initialized")
	}

	cols, args := t.columnArgs(values, at)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + "=?"
	}
	args = append(args, guildID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE %s=?`, t.Name, strings.Join(sets, ", "), t.Key),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: %w", t.Name, err)
	}
	return n > 0, nil
}

// DeleteRow removes the row for guildID. It reports false when nothing was deleted.
func (s *Store) DeleteRow(ctx context.Context, t Table, guildID string) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("store not initialized")
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s=?`, t.Name, t.Key), guildID)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	return n > 0, nil
}

func (t Table) columnArgs(values map[string]string, at time.Time) ([]string, []any) {
	cols := make([]string, 0, len(t.Columns)+1)
	args := make([]any, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		cols = append(cols, c)
		if v, ok := values[c]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	if t.UpdatedColumn != "" {
		cols = append(cols, t.UpdatedColumn)
		args = append(args, at.UTC().Format(time.RFC3339Nano))
	}
	return cols, args
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
