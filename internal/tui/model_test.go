package tui

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/testutil"
	"github.com/julianstephens/habitual/internal/tui/components/grid"
)

func setupTestModel(t *testing.T) (Model, *cli.Context, *testutil.FakeAPI) {
	t.Helper()
	gokeyring.MockInit()

	fake := testutil.NewFakeAPI(t)
	fake.AddUser("alice", "secret")

	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), constants.CacheFileName))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.SaveSettings(models.Settings{Timezone: "UTC"}); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	ctx := cli.NewContext(config.Config{ServerURL: fake.URL(), Timeout: 2 * time.Second}, store)
	ctx.Out = &bytes.Buffer{}
	return NewModel(ctx), ctx, fake
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// collect runs cmd and every command batched inside it, returning the
// messages that are not spinner ticks
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return nil
	}
	return []tea.Msg{msg}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loggedIn drives the model through a successful login
func loggedIn(t *testing.T, m Model, ctx *cli.Context) Model {
	t.Helper()
	m, _ = update(t, m, restoreCmd(ctx)())
	m, _ = update(t, m, loginCmd(ctx, "alice", "secret")())
	if m.State() != constants.ViewHabits {
		t.Fatalf("state after login = %v, want Habits", m.State())
	}
	return m
}

func TestRestore(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		m, ctx, _ := setupTestModel(t)
		m, _ = update(t, m, restoreCmd(ctx)())
		if m.starting {
			t.Error("model still starting after restore")
		}
		if m.State() != constants.ViewLogin {
			t.Errorf("state = %v, want Login", m.State())
		}
	})

	t.Run("stored token", func(t *testing.T) {
		m, ctx, fake := setupTestModel(t)
		if err := keyring.NewTokenStore(fake.URL()).Save(fake.IssueToken(t, "alice", time.Hour)); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		m, cmd := update(t, m, restoreCmd(ctx)())
		if m.State() != constants.ViewHabits {
			t.Errorf("state = %v, want Habits", m.State())
		}
		if !m.loading || cmd == nil {
			t.Error("restoring a session should start loading habits")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		m, ctx, fake := setupTestModel(t)
		if err := keyring.NewTokenStore(fake.URL()).Save(fake.IssueToken(t, "alice", -time.Minute)); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		m, _ = update(t, m, restoreCmd(ctx)())
		if m.State() != constants.ViewLogin {
			t.Errorf("state = %v, want Login", m.State())
		}
		if !strings.Contains(m.View(), constants.MsgSessionExpired) {
			t.Error("login view should show the expiry message")
		}
	})
}

func TestLogin(t *testing.T) {
	m, ctx, _ := setupTestModel(t)
	m = loggedIn(t, m, ctx)

	if got := ctx.Settings().LastUsername; got != "alice" {
		t.Errorf("LastUsername = %q, want alice", got)
	}
	if !strings.Contains(m.View(), "alice") {
		t.Error("header should show the logged in user")
	}
}

func TestLoginFailure(t *testing.T) {
	m, ctx, _ := setupTestModel(t)
	m, _ = update(t, m, restoreCmd(ctx)())
	m, _ = update(t, m, loginCmd(ctx, "alice", "wrong")())

	if m.State() != constants.ViewLogin {
		t.Fatalf("state = %v, want Login", m.State())
	}
	if m.loginForm.Username != "alice" {
		t.Errorf("login form username = %q, want it kept", m.loginForm.Username)
	}
	if !strings.Contains(m.View(), "Incorrect username or password") {
		t.Errorf("view missing backend detail:\n%s", m.View())
	}
	if ctx.Settings().LastUsername != "" {
		t.Error("failed login should not be remembered")
	}
}

func TestRegister(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	m, _ = update(t, m, restoreCmd(ctx)())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.State() != constants.ViewRegister {
		t.Fatalf("state = %v, want Register", m.State())
	}

	t.Run("mismatch", func(t *testing.T) {
		calls := fake.TotalCalls()
		msg := registerCmd(ctx, RegisterFormModel{Username: "bob", Password: "a", ConfirmPassword: "b"})()
		next, _ := update(t, m, msg)
		if next.formError != constants.MsgPasswordMismatch {
			t.Errorf("formError = %q", next.formError)
		}
		if next.State() != constants.ViewRegister {
			t.Errorf("state = %v, want Register", next.State())
		}
		if fake.TotalCalls() != calls {
			t.Error("mismatch reached the backend")
		}
	})

	t.Run("success", func(t *testing.T) {
		msg := registerCmd(ctx, RegisterFormModel{Username: "bob", Password: "pw", ConfirmPassword: "pw"})()
		next, _ := update(t, m, msg)
		if next.State() != constants.ViewLogin {
			t.Errorf("state = %v, want Login", next.State())
		}
		if next.notice != constants.MsgRegisterSuccess {
			t.Errorf("notice = %q", next.notice)
		}
		if next.loginForm.Username != "bob" {
			t.Errorf("login form username = %q, want bob", next.loginForm.Username)
		}
		if got := ctx.Settings().LastUsername; got != "" {
			t.Errorf("LastUsername = %q, registering must not change it", got)
		}
	})
}

func TestHabitsLoaded(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
	fake.AddHabit("alice", models.HabitCreate{Name: "Run", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
	m = loggedIn(t, m, ctx)

	m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())
	if m.loading {
		t.Error("still loading after habits arrived")
	}
	if got := len(m.grid.Items()); got != 2 {
		t.Fatalf("grid items = %d, want 2", got)
	}
	if _, err := ctx.Store.GetSnapshot(ctx.Config.ServerURL, "alice"); err != nil {
		t.Errorf("loaded grid was not cached: %v", err)
	}
}

func TestStaleHabitsDropped(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
	m = loggedIn(t, m, ctx)

	stale := loadHabitsCmd(ctx, ctx.Session.Session())()
	ctx.Session.Logout()
	m, _ = update(t, m, loginCmd(ctx, "alice", "secret")())

	m, _ = update(t, m, stale)
	if got := len(m.grid.Items()); got != 0 {
		t.Errorf("stale result reached the grid: %d items", got)
	}
	if !m.loading {
		t.Error("stale result must not end the current load")
	}
}

func TestHabitsFailure(t *testing.T) {
	t.Run("log fetch fails", func(t *testing.T) {
		m, ctx, fake := setupTestModel(t)
		h := fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
		m = loggedIn(t, m, ctx)
		fake.FailPath(fmt.Sprintf(constants.PathDatesWithStatus, h.ID), http.StatusInternalServerError, "")

		m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())
		if m.formError != constants.MsgHabitsFailed {
			t.Errorf("formError = %q, want %q", m.formError, constants.MsgHabitsFailed)
		}
		if m.State() != constants.ViewHabits {
			t.Errorf("state = %v, want Habits", m.State())
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		m, ctx, fake := setupTestModel(t)
		m = loggedIn(t, m, ctx)
		fake.FailPath(constants.PathHabits, http.StatusUnauthorized, "Could not validate credentials")

		m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())
		if m.State() != constants.ViewLogin {
			t.Errorf("state = %v, want Login", m.State())
		}
		if got := ctx.Session.Session().Status; got != session.Expired {
			t.Errorf("session status = %v, want expired", got)
		}
	})
}

func TestToggle(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	h := fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
	m = loggedIn(t, m, ctx)
	m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())

	day := m.grid.SelectedDay()
	m, cmd := update(t, m, grid.ToggleMsg{Habit: h, Day: day, Done: true})
	if cmd == nil {
		t.Fatal("toggle should send a log request")
	}
	m, _ = update(t, m, cmd())

	if done, ok := fake.Log(h.ID, day); !ok || !done {
		t.Errorf("backend log = (%v, %v), want done", done, ok)
	}
	item, _ := m.grid.Selected()
	if item.Logs.Status(day) != models.DayDone {
		t.Errorf("grid status = %v, want done", item.Logs.Status(day))
	}
}

func TestToggleMultiSlot(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	h := fake.AddHabit("alice", models.HabitCreate{
		Name:           "Water",
		StrategyType:   constants.StrategyDaily,
		StrategyParams: map[string]any{"frequency": float64(2)},
	})
	m = loggedIn(t, m, ctx)
	m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())
	day := m.grid.SelectedDay()
	fake.SetSlot(h.ID, day, 0, true)
	m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())

	toggle := func(m Model) Model {
		t.Helper()
		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
		msgs := collect(cmd)
		if len(msgs) != 1 {
			t.Fatalf("toggle key produced %d messages, want 1", len(msgs))
		}
		m, cmd = update(t, m, msgs[0])
		if cmd == nil {
			t.Fatal("toggle should send a log request")
		}
		m, _ = update(t, m, cmd())
		return m
	}

	item, _ := m.grid.Selected()
	if got := item.Logs.Status(day); got != models.DayNotDone {
		t.Fatalf("half logged day = %v, want not done", got)
	}

	m = toggle(m)
	if done, ok := fake.Slot(h.ID, day, 1); !ok || !done {
		t.Errorf("backend slot 1 = (%v, %v), want done", done, ok)
	}
	item, _ = m.grid.Selected()
	if got := item.Logs.Status(day); got != models.DayDone {
		t.Errorf("grid status = %v, want done", got)
	}

	m = toggle(m)
	if done, _ := fake.Slot(h.ID, day, 1); done {
		t.Error("second toggle should reopen slot 1")
	}
	if done, _ := fake.Slot(h.ID, day, 0); !done {
		t.Error("second toggle must leave slot 0 done")
	}
	item, _ = m.grid.Selected()
	if got := item.Logs.Status(day); got != models.DayNotDone {
		t.Errorf("grid status after reopening = %v, want not done", got)
	}
}

func TestDelete(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	h := fake.AddHabit("alice", models.HabitCreate{Name: "Read", StrategyType: constants.StrategyDaily, StrategyParams: map[string]any{}})
	m = loggedIn(t, m, ctx)
	m, _ = update(t, m, loadHabitsCmd(ctx, ctx.Session.Session())())

	m, _ = update(t, m, grid.DeleteHabitMsg{Habit: h})
	if m.pendingDelete == nil {
		t.Fatal("delete should ask for confirmation")
	}
	if !strings.Contains(m.View(), "Delete habit") {
		t.Error("confirmation not shown")
	}

	t.Run("cancel", func(t *testing.T) {
		next, _ := update(t, m, keyPress("n"))
		if next.pendingDelete != nil {
			t.Error("cancel should clear the pending delete")
		}
		if len(fake.Habits()) != 1 {
			t.Error("cancel deleted the habit")
		}
	})

	t.Run("confirm", func(t *testing.T) {
		next, cmd := update(t, m, keyPress("y"))
		for _, msg := range collect(cmd) {
			next, _ = update(t, next, msg)
		}
		if len(fake.Habits()) != 0 {
			t.Error("habit not deleted on the backend")
		}
		if len(next.grid.Items()) != 0 {
			t.Error("habit still shown in the grid")
		}
	})
}

func TestProfileFailureRetry(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	m, _ = update(t, m, restoreCmd(ctx)())
	fake.FailPath(constants.PathMe, http.StatusInternalServerError, "database unavailable")

	m, _ = update(t, m, loginCmd(ctx, "alice", "secret")())
	if m.State() != constants.ViewProfile {
		t.Fatalf("state = %v, want Profile", m.State())
	}
	if !strings.Contains(m.View(), constants.MsgProfileFailedPrefix+"database unavailable") {
		t.Errorf("profile view missing failure:\n%s", m.View())
	}

	fake.ClearFailures()
	m, cmd := update(t, m, keyPress("r"))
	for _, msg := range collect(cmd) {
		m, _ = update(t, m, msg)
	}
	if m.State() != constants.ViewHabits {
		t.Errorf("state after retry = %v, want Habits", m.State())
	}
}

func TestLogoutKey(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	m = loggedIn(t, m, ctx)

	m, _ = update(t, m, keyPress("o"))
	if m.State() != constants.ViewLogin {
		t.Errorf("state = %v, want Login", m.State())
	}
	if ctx.Session.Session().LoggedIn() {
		t.Error("session still holds a token")
	}
	if _, err := keyring.NewTokenStore(fake.URL()).Load(); err == nil {
		t.Error("stored token not cleared")
	}
}

func TestSubmitHabit(t *testing.T) {
	m, ctx, fake := setupTestModel(t)
	m = loggedIn(t, m, ctx)
	m.loading = false
	m, _ = update(t, m, grid.AddHabitMsg{})
	if m.State() != constants.ViewCreateHabit {
		t.Fatalf("state = %v, want New Habit", m.State())
	}

	tests := []struct {
		name    string
		mutate  func(*Model)
		wantErr string
	}{
		{"missing name", func(m *Model) { m.habitForm.Name = " " }, constants.MsgNameRequired},
		{"bad params", func(m *Model) { m.habitForm.Name = "Read"; m.habitForm.StrategyParams = "[1]" }, constants.MsgInvalidStrategyJSON},
		{"end before start", func(m *Model) {
			m.habitForm.Name = "Read"
			m.habitForm.StartDate = "2024-06-10"
			m.habitForm.EndDate = "2024-06-01"
		}, constants.MsgEndBeforeStart},
		{"weekly day out of range", func(m *Model) {
			m.habitForm.Name = "Read"
			m.habitForm.StrategyType = string(constants.StrategyWeekly)
			m.habitForm.StrategyParams = `{"day_of_week": 7}`
		}, constants.MsgInvalidDayOfWeek},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := m
			mm.resetHabitForm()
			tt.mutate(&mm)
			next, _ := mm.submitHabit(nil)
			got := next.(Model)
			if got.formError != tt.wantErr {
				t.Errorf("formError = %q, want %q", got.formError, tt.wantErr)
			}
			if got.loading {
				t.Error("invalid form should not start a request")
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		mm := m
		mm.resetHabitForm()
		mm.habitForm.Name = "Read"
		mm.habitForm.StrategyParams = `{"times_per_week": 3}`
		next, cmd := mm.submitHabit(nil)
		got := next.(Model)
		if !got.loading {
			t.Fatal("valid form should start a request")
		}
		for _, msg := range collect(cmd) {
			got, _ = update(t, got, msg)
		}
		if got.State() != constants.ViewHabits {
			t.Errorf("state = %v, want Habits", got.State())
		}
		habits := fake.Habits()
		if len(habits) != 1 || habits[0].StrategyParams["times_per_week"] != float64(3) {
			t.Errorf("backend habits = %+v", habits)
		}
	})
}
