package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
)

// SQLiteStore persists preferences in a SQLite file (pure Go driver
// modernc.org/sqlite).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		slog.Warn("could not set WAL mode", "path", path, "error", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS preferences (
        profile_id TEXT PRIMARY KEY,
        selected_city TEXT NOT NULL,
        auto_location INTEGER NOT NULL,
        theme TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, prefs dashboard.Preferences) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO preferences(profile_id, selected_city, auto_location, theme, updated_at) VALUES(?,?,?,?,?)`,
		prefs.ProfileID, prefs.SelectedCity, prefs.AutoLocation, string(prefs.Theme),
		prefs.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, profileID string) (dashboard.Preferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile_id, selected_city, auto_location, theme, updated_at FROM preferences WHERE profile_id = ?`,
		profileID)

	var (
		prefs dashboard.Preferences
		theme string
		ts    string
	)
	if err := row.Scan(&prefs.ProfileID, &prefs.SelectedCity, &prefs.AutoLocation, &theme, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dashboard.Preferences{}, ErrNotFound
		}
		return dashboard.Preferences{}, err
	}
	prefs.Theme = dashboard.Theme(theme)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		prefs.UpdatedAt = t
	}
	return prefs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ dashboard.PreferenceStore = (*SQLiteStore)(nil)
