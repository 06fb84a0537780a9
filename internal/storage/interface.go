package storage

import (
	"errors"

	"github.com/julianstephens/habitual/internal/models"
)

// ErrNotFound is returned when no cached snapshot exists
var ErrNotFound = errors.New("not found in cache")

// Provider is the local cache of settings and the last habit grid per user
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Snapshots are kept per backend and per user. Saving replaces the
	// previous snapshot of the same user.
	SaveSnapshot(serverURL string, snap models.Snapshot) (models.Snapshot, error)
	GetSnapshot(serverURL, username string) (models.Snapshot, error)
	DeleteSnapshots(serverURL string) error

	// Utils
	GetConfigPath() string
}
