package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tui/components/grid"
	"github.com/julianstephens/habitual/internal/validation"
)

type Model struct {
	ctx           *cli.Context
	state         constants.ViewState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model
	grid          grid.Model
	form          *huh.Form
	loginForm     *LoginFormModel
	registerForm  *RegisterFormModel
	habitForm     *validation.HabitForm
	loading       bool
	starting      bool
	notice        string // informational message, e.g. after registering
	formError     string // error shown above the current form or grid
	pendingDelete *models.Habit
	quitting      bool
	width         int
	height        int
}

func NewModel(ctx *cli.Context) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		ctx:      ctx,
		state:    constants.ViewLogin,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		grid:     grid.New(0, 10),
		loading:  true,
		starting: true,
	}
	m.resetLoginForm()
	return m
}

// Init resumes a stored session, if any, before showing a screen
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, restoreCmd(m.ctx))
}

// State returns the screen currently shown
func (m Model) State() constants.ViewState {
	return m.state
}

func (m *Model) resetLoginForm() {
	m.loginForm = &LoginFormModel{Username: m.ctx.Settings().LastUsername}
	m.form = NewLoginForm(m.loginForm)
}

func (m *Model) resetRegisterForm() {
	m.registerForm = &RegisterFormModel{}
	m.form = NewRegisterForm(m.registerForm)
}

func (m *Model) resetHabitForm() {
	m.habitForm = &validation.HabitForm{
		StrategyType:   string(constants.StrategyDaily),
		StrategyParams: "{}",
	}
	m.form = NewHabitForm(m.habitForm)
}

func (m Model) ShortHelp() []key.Binding {
	switch m.state {
	case constants.ViewLogin:
		return []key.Binding{m.keys.Register}
	case constants.ViewRegister, constants.ViewCreateHabit:
		return []key.Binding{m.keys.Back}
	case constants.ViewHabits:
		keys := m.grid.Keys()
		return append(keys, m.keys.Profile, m.keys.Logout, m.keys.Quit, m.keys.Help)
	case constants.ViewProfile:
		return []key.Binding{m.keys.Back, m.keys.Retry, m.keys.Logout, m.keys.Quit}
	}
	return nil
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Quit, m.keys.Help, m.keys.Back}
	var actions []key.Binding
	switch m.state {
	case constants.ViewHabits:
		actions = append(m.grid.Keys(), m.keys.Profile, m.keys.Logout)
	case constants.ViewProfile:
		actions = []key.Binding{m.keys.Retry, m.keys.Logout}
	case constants.ViewLogin:
		actions = []key.Binding{m.keys.Register}
	}
	return [][]key.Binding{global, actions}
}
