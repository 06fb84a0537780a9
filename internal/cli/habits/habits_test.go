package habits

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/testutil"
)

func setupTestContext(t *testing.T) (*cli.Context, *testutil.FakeAPI, *bytes.Buffer) {
	t.Helper()
	gokeyring.MockInit()

	fake := testutil.NewFakeAPI(t)
	fake.AddUser("alice", "secret")

	dir := t.TempDir()
	store := storage.NewSQLiteStore(filepath.Join(dir, constants.CacheFileName))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.SaveSettings(models.Settings{LastUsername: "alice", Timezone: "UTC"}); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}

	if err := keyring.NewTokenStore(fake.URL()).Save(fake.IssueToken(t, "alice", time.Hour)); err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	ctx := cli.NewContext(config.Config{ServerURL: fake.URL(), ConfigDir: dir, Timeout: 5 * time.Second}, store)
	out := &bytes.Buffer{}
	ctx.Out = out
	return ctx, fake, out
}

func TestHabitListCmd(t *testing.T) {
	ctx, fake, out := setupTestContext(t)
	read := fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily})
	fake.AddHabit("alice", models.HabitCreate{Name: "Run", StrategyType: constants.StrategyDaily})
	fake.SetLog(read.ID, ctx.Today(), true)

	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Read", "Run", "✓"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	snap, err := ctx.Store.GetSnapshot(fake.URL(), "alice")
	if err != nil {
		t.Fatalf("grid not cached: %v", err)
	}
	if len(snap.Items) != 2 || snap.Items[0].Habit.Name != "Read" {
		t.Errorf("cached items = %+v", snap.Items)
	}
}

func TestHabitListCmdEmpty(t *testing.T) {
	ctx, _, out := setupTestContext(t)

	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No habits found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHabitListCmdOffline(t *testing.T) {
	ctx, fake, out := setupTestContext(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily})

	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("habit list failed: %v", err)
	}
	out.Reset()
	calls := fake.TotalCalls()

	if err := (&HabitListCmd{Offline: true}).Run(ctx); err != nil {
		t.Fatalf("offline habit list failed: %v", err)
	}
	if fake.TotalCalls() != calls {
		t.Error("offline list must not contact the backend")
	}
	if !strings.Contains(out.String(), "Offline") || !strings.Contains(out.String(), "Read") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHabitListCmdOfflineWithoutCache(t *testing.T) {
	ctx, _, _ := setupTestContext(t)

	if err := (&HabitListCmd{Offline: true}).Run(ctx); err == nil {
		t.Error("offline list without a cached grid should fail")
	}
}

func TestHabitListCmdFailures(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "A", StrategyType: constants.StrategyDaily})
	b := fake.AddHabit("alice", models.HabitCreate{Name: "B", StrategyType: constants.StrategyDaily})
	fake.FailPath(fmt.Sprintf(constants.PathDatesWithStatus, b.ID), http.StatusInternalServerError, "")

	err := (&HabitListCmd{}).Run(ctx)
	if err == nil || err.Error() != constants.MsgHabitsFailed {
		t.Errorf("habit list error = %v, want %q", err, constants.MsgHabitsFailed)
	}
	if _, err := ctx.Store.GetSnapshot(fake.URL(), "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("a failed fetch must not be cached")
	}
}

func TestHabitListCmdUnauthorizedExpiresSession(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)
	if _, err := ctx.RequireSession(t.Context()); err != nil {
		t.Fatalf("RequireSession() failed: %v", err)
	}
	fake.FailPath(constants.PathHabits, http.StatusUnauthorized, "Could not validate credentials")

	err := (&HabitListCmd{}).Run(ctx)
	if err == nil || err.Error() != constants.MsgSessionExpired {
		t.Errorf("habit list error = %v, want %q", err, constants.MsgSessionExpired)
	}
	if s := ctx.Session.Session(); s.Status != session.Expired {
		t.Errorf("Status = %v, want %v", s.Status, session.Expired)
	}
	if _, err := keyring.NewTokenStore(fake.URL()).Load(); err != keyring.ErrNotFound {
		t.Errorf("token not cleared: %v", err)
	}
}

func TestHabitAddCmd(t *testing.T) {
	ctx, fake, out := setupTestContext(t)

	cmd := &HabitAddCmd{Name: "Swim", Strategy: "weekly", Params: `{"day_of_week": 2}`, Start: "2024-06-01"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	if !strings.Contains(out.String(), `"Swim"`) {
		t.Errorf("output = %q", out.String())
	}

	habits := fake.Habits()
	if len(habits) != 1 {
		t.Fatalf("backend has %d habits, want 1", len(habits))
	}
	h := habits[0]
	if h.StrategyType != constants.StrategyWeekly || h.StrategyParams["day_of_week"] != float64(2) {
		t.Errorf("stored habit = %+v", h)
	}
	if h.StartDate == nil || *h.StartDate != "2024-06-01" || h.EndDate != nil {
		t.Errorf("dates = %v, %v", h.StartDate, h.EndDate)
	}
}

func TestHabitAddCmdValidation(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)

	tests := []struct {
		name string
		cmd  HabitAddCmd
		want string
	}{
		{"blank name", HabitAddCmd{Name: " ", Strategy: "daily", Params: "{}"}, constants.MsgNameRequired},
		{"bad params", HabitAddCmd{Name: "Read", Strategy: "daily", Params: "{oops"}, constants.MsgInvalidStrategyJSON},
		{"bad weekday", HabitAddCmd{Name: "Swim", Strategy: "weekly", Params: `{"day_of_week": 8}`}, constants.MsgInvalidDayOfWeek},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run(ctx)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("habit add error = %v, want %q", err, tt.want)
			}
		})
	}
	if fake.TotalCalls() != 0 {
		t.Error("invalid input must not reach the backend")
	}
}

func TestHabitAddCmdBackendError(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)
	fake.FailPath(constants.PathHabits, http.StatusBadRequest, "")

	err := (&HabitAddCmd{Name: "Read", Strategy: "daily", Params: "{}"}).Run(ctx)
	if err == nil || err.Error() != constants.MsgCreateHabitFailed {
		t.Errorf("habit add error = %v, want %q", err, constants.MsgCreateHabitFailed)
	}
}

func TestHabitMarkCmd(t *testing.T) {
	ctx, fake, out := setupTestContext(t)
	h := fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily})

	if err := (&HabitMarkCmd{Habit: "read", Date: "2024-06-15"}).Run(ctx); err != nil {
		t.Fatalf("habit mark failed: %v", err)
	}
	if done, ok := fake.Log(h.ID, "2024-06-15"); !ok || !done {
		t.Errorf("log = %v, %v; want done", done, ok)
	}

	if err := (&HabitMarkCmd{Habit: fmt.Sprint(h.ID), Date: "2024-06-15", Undo: true}).Run(ctx); err != nil {
		t.Fatalf("habit mark --undo failed: %v", err)
	}
	if done, ok := fake.Log(h.ID, "2024-06-15"); !ok || done {
		t.Errorf("log = %v, %v; want not done", done, ok)
	}
	if !strings.Contains(out.String(), "not done") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHabitMarkCmdErrors(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily})

	if err := (&HabitMarkCmd{Habit: "Read", Date: "15/06/2024"}).Run(ctx); err == nil {
		t.Error("invalid date should fail")
	}
	if err := (&HabitMarkCmd{Habit: "Nope"}).Run(ctx); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown habit error = %v", err)
	}
}

func TestHabitDeleteCmd(t *testing.T) {
	ctx, fake, _ := setupTestContext(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily})

	orig := confirm
	t.Cleanup(func() { confirm = orig })

	confirm = func(string) (bool, error) { return false, nil }
	if err := (&HabitDeleteCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("cancelled delete failed: %v", err)
	}
	if len(fake.Habits()) != 1 {
		t.Fatal("cancelled delete removed the habit")
	}

	confirm = func(string) (bool, error) {
		t.Error("--yes should skip the prompt")
		return false, nil
	}
	if err := (&HabitDeleteCmd{Habit: "Read", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("habit delete failed: %v", err)
	}
	if len(fake.Habits()) != 0 {
		t.Error("habit still present after delete")
	}
}
