package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/tracker"
	"github.com/julianstephens/habitual/internal/tui/components/grid"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.grid.SetSize(msg.Width-4, max(msg.Height-10, 3))
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case restoredMsg:
		m.starting = false
		m.loading = false
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoSession) {
			logger.Debug("session not restored", "error", msg.err)
		}
		return m, m.syncSession()

	case loginMsg:
		return m.handleLogin(msg)

	case registerMsg:
		return m.handleRegister(msg)

	case profileMsg:
		if errors.Is(msg.err, session.ErrSuperseded) {
			return m, nil
		}
		m.loading = false
		return m, m.syncSession()

	case habitsMsg:
		return m.handleHabits(msg)

	case createdMsg:
		return m.handleCreated(msg)

	case loggedMsg:
		return m.handleLogged(msg)

	case deletedMsg:
		return m.handleDeleted(msg)

	case grid.AddHabitMsg:
		m.state = constants.ViewCreateHabit
		m.formError = ""
		m.resetHabitForm()
		return m, m.form.Init()

	case grid.RefreshMsg:
		return m, m.reload()

	case grid.ToggleMsg:
		s, ok := m.activeSession()
		if !ok {
			return m, nil
		}
		entry := models.HabitLogEntry{HabitID: msg.Habit.ID, Date: msg.Day, IsDone: msg.Done, Index: msg.Index}
		return m, logHabitCmd(m.ctx, s, entry)

	case grid.DeleteHabitMsg:
		habit := msg.Habit
		m.pendingDelete = &habit
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.starting {
		return m, nil
	}

	switch m.state {
	case constants.ViewLogin:
		return m.updateLogin(msg)
	case constants.ViewRegister:
		return m.updateRegister(msg)
	case constants.ViewCreateHabit:
		return m.updateCreateHabit(msg)
	case constants.ViewHabits:
		return m.updateHabits(msg)
	case constants.ViewProfile:
		return m.updateProfile(msg)
	}
	return m, nil
}

// syncSession moves to the screen that matches the session state
func (m *Model) syncSession() tea.Cmd {
	s := m.ctx.Session.Session()
	switch s.Status {
	case session.Authenticated:
		m.state = constants.ViewHabits
		return m.reload()
	case session.Authenticating:
		m.state = constants.ViewProfile
		return nil
	default:
		m.state = constants.ViewLogin
		m.pendingDelete = nil
		m.resetLoginForm()
		return m.form.Init()
	}
}

func (m *Model) activeSession() (session.Session, bool) {
	s := m.ctx.Session.Session()
	return s, s.Status == session.Authenticated
}

// reload starts a grid load for the current session
func (m *Model) reload() tea.Cmd {
	s, ok := m.activeSession()
	if !ok {
		return nil
	}
	m.loading = true
	return tea.Batch(m.spinner.Tick, loadHabitsCmd(m.ctx, s))
}

// current reports whether a result started under s still belongs to the
// session on screen
func (m Model) current(s session.Session) bool {
	if m.ctx.Session.IsCurrent(s.Generation) {
		return true
	}
	logger.Debug("dropping result of superseded session", "generation", s.Generation)
	return false
}

// authorized turns an error from an authenticated request into the message to
// show. A 401 expires the session and returns to the login screen.
func (m *Model) authorized(s session.Session, err error, fallback, unexpected string) (string, tea.Cmd) {
	err = m.ctx.Authorized(s, err, fallback, unexpected)
	if err == nil {
		return "", nil
	}
	if m.ctx.Session.Session().Status == session.Expired {
		return "", m.syncSession()
	}
	return session.UserMessage(err, fallback), nil
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, session.ErrSuperseded) {
		return m, nil
	}
	m.loading = false
	m.formError = ""
	m.notice = ""
	if m.ctx.Session.Session().LoggedIn() {
		m.ctx.RememberUser(msg.username)
	}
	cmd := m.syncSession()
	if m.state == constants.ViewLogin {
		m.loginForm = &LoginFormModel{Username: msg.username}
		m.form = NewLoginForm(m.loginForm)
		cmd = m.form.Init()
	}
	return m, cmd
}

func (m Model) handleRegister(msg registerMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.formError = session.UserMessage(msg.err, constants.MsgRegisterFailed)
		fm := *m.registerForm
		fm.Password, fm.ConfirmPassword = "", ""
		m.registerForm = &fm
		m.form = NewRegisterForm(m.registerForm)
		return m, m.form.Init()
	}

	m.formError = ""
	m.notice = constants.MsgRegisterSuccess
	m.state = constants.ViewLogin
	m.loginForm = &LoginFormModel{Username: msg.username}
	m.form = NewLoginForm(m.loginForm)
	return m, m.form.Init()
}

func (m Model) handleHabits(msg habitsMsg) (tea.Model, tea.Cmd) {
	if !m.current(msg.session) {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		text, cmd := m.authorized(msg.session, msg.err, constants.MsgHabitsFailed, constants.MsgHabitsUnexpected)
		m.formError = text
		return m, cmd
	}

	m.formError = ""
	m.grid.SetData(msg.result.Window, msg.result.Items)
	m.ctx.CacheResult(msg.session, msg.result)
	return m, nil
}

func (m Model) handleCreated(msg createdMsg) (tea.Model, tea.Cmd) {
	if !m.current(msg.session) {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		text, cmd := m.authorized(msg.session, msg.err, constants.MsgCreateHabitFailed, constants.MsgCreateHabitUnexpected)
		if cmd != nil {
			return m, cmd
		}
		m.formError = text
		m.form = NewHabitForm(m.habitForm)
		return m, m.form.Init()
	}

	logger.Info("created habit", "id", msg.habit.ID, "name", msg.habit.Name)
	m.formError = ""
	m.notice = "Created " + msg.habit.Name
	m.state = constants.ViewHabits
	return m, m.reload()
}

func (m Model) handleLogged(msg loggedMsg) (tea.Model, tea.Cmd) {
	if !m.current(msg.session) {
		return m, nil
	}
	if msg.err != nil {
		text, cmd := m.authorized(msg.session, msg.err, constants.MsgLogHabitFailed, constants.MsgLogHabitUnexpected)
		m.formError = text
		return m, cmd
	}
	m.formError = ""
	m.grid.SetStatus(msg.entry)
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	if !m.current(msg.session) {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		text, cmd := m.authorized(msg.session, msg.err, constants.MsgDeleteHabitFailed, constants.MsgDeleteHabitUnexpected)
		m.formError = text
		return m, cmd
	}
	m.formError = ""
	m.notice = "Deleted " + msg.habit.Name
	m.grid.Remove(msg.habit.ID)
	return m, nil
}

// updateForm forwards msg to the active form
func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	return cmd
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Register) {
		m.state = constants.ViewRegister
		m.formError = ""
		m.notice = ""
		m.resetRegisterForm()
		return m, m.form.Init()
	}

	cmd := m.updateForm(msg)
	switch m.form.State {
	case huh.StateCompleted:
		m.loading = true
		return m, tea.Batch(cmd, m.spinner.Tick, loginCmd(m.ctx, m.loginForm.Username, m.loginForm.Password))
	case huh.StateAborted:
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) updateRegister(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = constants.ViewLogin
		m.formError = ""
		m.resetLoginForm()
		return m, m.form.Init()
	}

	cmd := m.updateForm(msg)
	switch m.form.State {
	case huh.StateCompleted:
		m.loading = true
		return m, tea.Batch(cmd, m.spinner.Tick, registerCmd(m.ctx, *m.registerForm))
	case huh.StateAborted:
		m.state = constants.ViewLogin
		m.resetLoginForm()
		return m, m.form.Init()
	}
	return m, cmd
}

func (m Model) updateCreateHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = constants.ViewHabits
		m.formError = ""
		return m, nil
	}

	cmd := m.updateForm(msg)
	switch m.form.State {
	case huh.StateCompleted:
		return m.submitHabit(cmd)
	case huh.StateAborted:
		m.state = constants.ViewHabits
		m.formError = ""
		return m, nil
	}
	return m, cmd
}

// submitHabit runs the cross-field checks the form fields cannot and sends
// the create request
func (m Model) submitHabit(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	habit, err := m.habitForm.Build()
	if err != nil {
		m.formError = m.habitForm.Validate().First()
		m.form = NewHabitForm(m.habitForm)
		return m, m.form.Init()
	}

	s, ok := m.activeSession()
	if !ok {
		return m, m.syncSession()
	}
	m.loading = true
	m.formError = ""
	return m, tea.Batch(cmd, m.spinner.Tick, createHabitCmd(m.ctx, s, habit))
}

func (m Model) updateHabits(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if m.pendingDelete != nil {
		if !isKey {
			return m, nil
		}
		switch {
		case key.Matches(keyMsg, m.keys.Confirm):
			habit := *m.pendingDelete
			m.pendingDelete = nil
			s, ok := m.activeSession()
			if !ok {
				return m, m.syncSession()
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, deleteHabitCmd(m.ctx, s, habit))
		case key.Matches(keyMsg, m.keys.Cancel):
			m.pendingDelete = nil
		}
		return m, nil
	}

	if isKey {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(keyMsg, m.keys.Profile):
			m.state = constants.ViewProfile
			return m, nil
		case key.Matches(keyMsg, m.keys.Logout):
			return m.logout()
		}
		if m.loading {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) updateProfile(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}
	s := m.ctx.Session.Session()
	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Back):
		if s.Status == session.Authenticated {
			m.state = constants.ViewHabits
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Retry):
		if s.Status == session.Authenticating {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, profileCmd(m.ctx))
		}
	case key.Matches(keyMsg, m.keys.Logout):
		return m.logout()
	}
	return m, nil
}

// logout drops the session and the cached grid
func (m Model) logout() (tea.Model, tea.Cmd) {
	m.ctx.Session.Logout()
	if err := m.ctx.Store.DeleteSnapshots(m.ctx.Config.ServerURL); err != nil {
		logger.Warn("failed to clear cached habits", "error", err)
	}
	m.loading = false
	m.formError = ""
	m.notice = ""
	m.grid.SetData(tracker.Window{}, nil)
	return m, m.syncSession()
}
