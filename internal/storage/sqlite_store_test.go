package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

// setupTestStore creates an initialized SQLite store in a temp directory
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "habitual.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "habitual.db")
	store := NewSQLiteStore(path)
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if store.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", store.GetConfigPath(), path)
	}

	for _, table := range []string{"settings", "snapshots", "schema_version"} {
		exists, err := store.tableExists(table)
		if err != nil || !exists {
			t.Errorf("tableExists(%q) = %v, %v", table, exists, err)
		}
	}
}

func TestLoadExistingDatabase(t *testing.T) {
	store := setupTestStore(t)
	path := store.GetConfigPath()
	if err := store.SaveSettings(models.Settings{ServerURL: "https://habits.example.com"}); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}
	store.Close()

	reopened := NewSQLiteStore(path)
	defer reopened.Close()
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	settings, err := reopened.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() failed: %v", err)
	}
	if settings.ServerURL != "https://habits.example.com" {
		t.Errorf("ServerURL = %q after reopen", settings.ServerURL)
	}
}

func TestLoadRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitual.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE schema_version (version INTEGER PRIMARY KEY); INSERT INTO schema_version VALUES (999);"); err != nil {
		t.Fatalf("failed to seed schema version: %v", err)
	}
	db.Close()

	store := NewSQLiteStore(path)
	defer store.Close()
	if err := store.Load(); err == nil {
		t.Error("Load() should fail for a schema newer than supported")
	}
}

func TestSettings(t *testing.T) {
	store := setupTestStore(t)

	empty, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() failed: %v", err)
	}
	if empty != (models.Settings{}) {
		t.Errorf("fresh settings = %+v, want zero value", empty)
	}

	want := models.Settings{
		ServerURL:    "https://habits.example.com/api",
		LastUsername: "alice",
		Timezone:     "Europe/Berlin",
	}
	if err := store.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}
	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() failed: %v", err)
	}
	if got != want {
		t.Errorf("GetSettings() = %+v, want %+v", got, want)
	}

	want.Timezone = ""
	if err := store.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}
	if got, _ := store.GetSettings(); got.Timezone != "" {
		t.Errorf("Timezone = %q, want cleared", got.Timezone)
	}
}

func TestSnapshots(t *testing.T) {
	store := setupTestStore(t)
	const server = "https://habits.example.com"

	if _, err := store.GetSnapshot(server, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSnapshot() error = %v, want ErrNotFound", err)
	}

	desc := "20 pages"
	first := models.Snapshot{
		UserID:      1,
		Username:    "alice",
		WindowStart: "2024-06-12",
		FetchedAt:   time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC),
		Items: []models.HabitWithLogs{
			{
				Habit: models.Habit{
					ID:             7,
					Name:           "Read",
					Description:    &desc,
					StrategyType:   constants.StrategyWeekly,
					StrategyParams: map[string]any{"times_per_week": float64(3)},
					UserID:         1,
				},
				Logs: models.LogStatus{"2024-06-14": true, "2024-06-15": false},
			},
		},
	}

	saved, err := store.SaveSnapshot(server, first)
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("SaveSnapshot() did not assign an id")
	}

	got, err := store.GetSnapshot(server, "alice")
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if got.ID != saved.ID || !got.FetchedAt.Equal(first.FetchedAt) || got.WindowStart != first.WindowStart {
		t.Errorf("GetSnapshot() = %+v, want %+v", got, saved)
	}
	if !reflect.DeepEqual(got.Items, first.Items) {
		t.Errorf("Items = %+v, want %+v", got.Items, first.Items)
	}

	// a newer save replaces the old one
	second := first
	second.ID = ""
	second.FetchedAt = first.FetchedAt.Add(time.Hour)
	second.Items = nil
	if _, err := store.SaveSnapshot(server, second); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	got, err = store.GetSnapshot(server, "alice")
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if len(got.Items) != 0 || !got.FetchedAt.Equal(second.FetchedAt) {
		t.Errorf("GetSnapshot() = %+v, want the newer empty snapshot", got)
	}

	// other servers are independent
	if _, err := store.GetSnapshot("http://localhost:8000", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSnapshot() on another server error = %v, want ErrNotFound", err)
	}

	if err := store.DeleteSnapshots(server); err != nil {
		t.Fatalf("DeleteSnapshots() failed: %v", err)
	}
	if _, err := store.GetSnapshot(server, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSnapshot() after delete error = %v, want ErrNotFound", err)
	}
}

func TestPingAndSchemaVersion(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Ping(); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}

	current, latest, err := store.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if current == 0 || current != latest {
		t.Errorf("SchemaVersion() = %d, %d, want an up to date schema", current, latest)
	}

	store.Close()
	if err := store.Ping(); err == nil {
		t.Error("Ping() on a closed store should fail")
	}
}
