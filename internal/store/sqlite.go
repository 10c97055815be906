// Package store persists controller settings in a local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/growbox/internal/settings"
	_ "modernc.org/sqlite"
)

// SQLite stores the settings as a single JSON row.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at dbPath and runs migrations.
func Open(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		saves INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored settings.
func (s *SQLite) Save(st settings.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (id, data, saves, updated_at) VALUES (1, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, saves = saves + 1, updated_at = excluded.updated_at`,
		string(data), s.now().UTC())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Load returns the stored settings, clamped into their editable ranges, or
// settings.ErrNotFound if nothing was ever saved.
func (s *SQLite) Load() (settings.Settings, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	st := settings.Defaults()
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return settings.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	st.Normalize()
	return st, nil
}

// Info describes the stored record.
type Info struct {
	Saves     int
	UpdatedAt time.Time
}

// Info returns how often the settings were saved and when last.
func (s *SQLite) Info() (Info, error) {
	var info Info
	err := s.db.QueryRow(`SELECT saves, updated_at FROM settings WHERE id = 1`).Scan(&info.Saves, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, settings.ErrNotFound
	}
	if err != nil {
		return Info{}, fmt.Errorf("settings info: %w", err)
	}
	return info, nil
}

// Reset deletes the stored settings.
func (s *SQLite) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}
