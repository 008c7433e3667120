package storage

import (
	"database/sql"
	"fmt"
)

// Table describes a guild-keyed settings table.
type Table struct {
	Name    string
	Key     string
	Columns []string
	// UpdatedColumn is written with the mutation time on every insert/update.
	UpdatedColumn string
}

var (
	AboutTable = Table{
		Name:          "server_about",
		Key:           "guild_id",
		Columns:       []string{"about_text", "thumbnail_url", "image_url", "author_id", "embed_color"},
		UpdatedColumn: "updated_at",
	}
	AnnouncementTable = Table{
		Name:          "announcement_channels",
		Key:           "guild_id",
		Columns:       []string{"channel_id", "set_by"},
		UpdatedColumn: "set_at",
	}
	GuildConfigTable = Table{
		Name:          "guild_config",
		Key:           "guild_id",
		Columns:       []string{"mod_log_channel", "welcome_channel", "mod_role", "admin_role", "embed_color"},
		UpdatedColumn: "updated_at",
	}
)

// ensureSchema creates tables and applies additive migrations. Safe to run on every start.
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS server_about (
			guild_id    TEXT PRIMARY KEY,
			about_text  TEXT NOT NULL,
			author_id   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS announcement_channels (
			guild_id   TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			set_by     TEXT NOT NULL,
			set_at     DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS guild_config (
			guild_id        TEXT PRIMARY KEY,
			mod_log_channel TEXT,
			welcome_channel TEXT,
			mod_role        TEXT,
			admin_role      TEXT,
			embed_color     TEXT,
			updated_at      TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	// Columns added after the first release of server_about.
	migrations := []struct{ table, column, decl string }{
		{"server_about", "thumbnail_url", "TEXT"},
		{"server_about", "image_url", "TEXT"},
		{"server_about", "embed_color", "TEXT"},
		{"server_about", "updated_at", "TEXT"},
	}
	for _, m := range migrations {
		if err := addColumnIfMissing(db, m.table, m.column, m.decl); err != nil {
			return err
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_guild_id ON server_about(guild_id)`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func addColumnIfMissing(db *sql.DB, table, column, decl string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("migrate %s.%s: %w", table, column, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("table info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
