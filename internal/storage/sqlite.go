// Package storage persists the small bits of state that outlive a run:
// the remote-store credential, bookmarks and per-item playback positions.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"acervo/internal/player"
)

const credentialKey = "drive_credential"

// Position is a saved playback position for one catalog item.
type Position struct {
	ItemID    string    `json:"item_id"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	Progress  float64   `json:"progress"` // 0.0 - 1.0
	UpdatedAt time.Time `json:"-"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		time REAL NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_item ON bookmarks(item_id);

	CREATE TABLE IF NOT EXISTS positions (
		item_id TEXT PRIMARY KEY,
		position REAL NOT NULL,
		duration REAL NOT NULL,
		progress REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_positions_updated ON positions(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Credential

func (s *SQLiteStore) LoadCredential() (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, credentialKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) SaveCredential(credential string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, credentialKey, credential)
	return err
}

func (s *SQLiteStore) DeleteCredential() error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, credentialKey)
	return err
}

// Bookmarks

func (s *SQLiteStore) SaveBookmark(b player.Bookmark) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO bookmarks (id, item_id, time, label, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.ItemID, b.Time, b.Label, b.CreatedAt)
	return err
}

func (s *SQLiteStore) DeleteBookmark(id string) error {
	_, err := s.db.Exec(`DELETE FROM bookmarks WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListBookmarks() ([]player.Bookmark, error) {
	rows, err := s.db.Query(`
		SELECT id, item_id, time, label, created_at
		FROM bookmarks ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []player.Bookmark
	for rows.Next() {
		var b player.Bookmark
		if err := rows.Scan(&b.ID, &b.ItemID, &b.Time, &b.Label, &b.CreatedAt); err != nil {
			return nil, err
		}
		marks = append(marks, b)
	}
	return marks, rows.Err()
}

// Positions

func (s *SQLiteStore) SavePosition(itemID string, position, duration float64) error {
	var progress float64
	if duration > 0 {
		progress = position / duration
	}
	_, err := s.db.Exec(`
		INSERT INTO positions (item_id, position, duration, progress, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_id) DO UPDATE SET
			position = excluded.position,
			duration = excluded.duration,
			progress = excluded.progress,
			updated_at = CURRENT_TIMESTAMP
	`, itemID, position, duration, progress)
	return err
}

func (s *SQLiteStore) GetPosition(itemID string) (*Position, error) {
	var p Position
	err := s.db.QueryRow(`
		SELECT item_id, position, duration, progress, updated_at
		FROM positions WHERE item_id = ?
	`, itemID).Scan(&p.ItemID, &p.Position, &p.Duration, &p.Progress, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecentPositions returns saved positions newest-first, for a
// continue-listening shelf.
func (s *SQLiteStore) RecentPositions(limit int) ([]Position, error) {
	rows, err := s.db.Query(`
		SELECT item_id, position, duration, progress, updated_at
		FROM positions ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ItemID, &p.Position, &p.Duration, &p.Progress, &p.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
