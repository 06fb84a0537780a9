package storage

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/models"
)

const (
	keyServerURL    = "server_url"
	keyLastUsername = "last_username"
	keyTimezone     = "timezone"
)

// GetSettings returns the stored settings. Keys never written are left empty.
func (s *SQLiteStore) GetSettings() (models.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	settings := models.Settings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case keyServerURL:
			settings.ServerURL = value
		case keyLastUsername:
			settings.LastUsername = value
		case keyTimezone:
			settings.Timezone = value
		}
	}
	return settings, rows.Err()
}

// SaveSettings writes every setting in one transaction
func (s *SQLiteStore) SaveSettings(settings models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := [][2]string{
		{keyServerURL, settings.ServerURL},
		{keyLastUsername, settings.LastUsername},
		{keyTimezone, settings.Timezone},
	}
	for _, kv := range values {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}
