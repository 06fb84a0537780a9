package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/tracker"
)

// Results of background work. Messages that act on behalf of a session carry
// the session they were started with so Update can drop stale results.

type restoredMsg struct {
	err error
}

type loginMsg struct {
	username string
	err      error
}

type registerMsg struct {
	username string
	err      error
}

type profileMsg struct {
	err error
}

type habitsMsg struct {
	session session.Session
	result  tracker.Result
	err     error
}

type createdMsg struct {
	session session.Session
	habit   models.Habit
	err     error
}

type loggedMsg struct {
	session session.Session
	entry   models.HabitLogEntry
	err     error
}

type deletedMsg struct {
	session session.Session
	habit   models.Habit
	err     error
}

func restoreCmd(ctx *cli.Context) tea.Cmd {
	return func() tea.Msg {
		return restoredMsg{err: ctx.Session.Restore(context.Background())}
	}
}

func loginCmd(ctx *cli.Context, username, password string) tea.Cmd {
	return func() tea.Msg {
		err := ctx.Session.Login(context.Background(), username, password)
		return loginMsg{username: username, err: err}
	}
}

func registerCmd(ctx *cli.Context, fm RegisterFormModel) tea.Cmd {
	return func() tea.Msg {
		err := ctx.Session.Register(context.Background(), fm.Username, fm.Password, fm.ConfirmPassword)
		return registerMsg{username: fm.Username, err: err}
	}
}

func profileCmd(ctx *cli.Context) tea.Cmd {
	return func() tea.Msg {
		return profileMsg{err: ctx.Session.FetchProfile(context.Background())}
	}
}

func loadHabitsCmd(ctx *cli.Context, s session.Session) tea.Cmd {
	return func() tea.Msg {
		res, err := ctx.Fetcher.Fetch(context.Background(), s.Token)
		return habitsMsg{session: s, result: res, err: err}
	}
}

func createHabitCmd(ctx *cli.Context, s session.Session, habit models.HabitCreate) tea.Cmd {
	return func() tea.Msg {
		created, err := ctx.Client.CreateHabit(context.Background(), s.Token, habit)
		return createdMsg{session: s, habit: created, err: err}
	}
}

func logHabitCmd(ctx *cli.Context, s session.Session, entry models.HabitLogEntry) tea.Cmd {
	return func() tea.Msg {
		err := ctx.Client.LogHabit(context.Background(), s.Token, entry)
		return loggedMsg{session: s, entry: entry, err: err}
	}
}

func deleteHabitCmd(ctx *cli.Context, s session.Session, habit models.Habit) tea.Cmd {
	return func() tea.Msg {
		err := ctx.Client.DeleteHabit(context.Background(), s.Token, habit.ID)
		return deletedMsg{session: s, habit: habit, err: err}
	}
}
