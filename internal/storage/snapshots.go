package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitual/internal/models"
)

// SaveSnapshot stores the grid for snap's user, replacing the previous one.
// A missing id is generated.
func (s *SQLiteStore) SaveSnapshot(serverURL string, snap models.Snapshot) (models.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Items == nil {
		snap.Items = []models.HabitWithLogs{}
	}

	payload, err := json.Marshal(snap.Items)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (id, server_url, user_id, username, window_start, fetched_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (server_url, user_id) DO UPDATE SET
			id = excluded.id,
			username = excluded.username,
			window_start = excluded.window_start,
			fetched_at = excluded.fetched_at,
			payload = excluded.payload`,
		snap.ID, serverURL, snap.UserID, snap.Username, snap.WindowStart,
		snap.FetchedAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return snap, nil
}

// GetSnapshot returns the most recent snapshot for username on serverURL
func (s *SQLiteStore) GetSnapshot(serverURL, username string) (models.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, username, window_start, fetched_at, payload
		FROM snapshots WHERE server_url = ? AND username = ?
		ORDER BY fetched_at DESC LIMIT 1`, serverURL, username)

	var snap models.Snapshot
	var fetchedAt, payload string
	err := row.Scan(&snap.ID, &snap.UserID, &snap.Username, &snap.WindowStart, &fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Items); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// DeleteSnapshots drops every cached grid for serverURL
func (s *SQLiteStore) DeleteSnapshots(serverURL string) error {
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE server_url = ?", serverURL); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}
