package grid

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tracker"
)

type AddHabitMsg struct{}

type RefreshMsg struct{}

// ToggleMsg asks to write one slot of a habit's log on one day
type ToggleMsg struct {
	Habit models.Habit
	Day   string
	Index int
	Done  bool
}

type DeleteHabitMsg struct {
	Habit models.Habit
}

type KeyMap struct {
	Add     key.Binding
	Toggle  key.Binding
	Delete  key.Binding
	Refresh key.Binding
	PrevDay key.Binding
	NextDay key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "m"),
			key.WithHelp("space/m", "toggle done"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev day"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
	}
}

const (
	idWidth   = 4
	nameWidth = 24
	dayWidth  = 8
)

var selectedDayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

// Model shows the habit grid with a row cursor and a day cursor
type Model struct {
	table  table.Model
	keys   KeyMap
	window tracker.Window
	items  []models.HabitWithLogs
	day    int
}

func New(width, height int) Model {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return Model{table: t, keys: DefaultKeyMap()}
}

// SetData replaces the grid contents. The day cursor starts on today.
func (m *Model) SetData(w tracker.Window, items []models.HabitWithLogs) {
	m.window = w
	m.items = items
	m.day = 0
	for i, d := range w.Days {
		if d == w.Today {
			m.day = i
		}
	}
	m.render()
}

func (m *Model) render() {
	headers := tracker.Headers(m.window)
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		switch i {
		case 0:
			cols[i] = table.Column{Title: h, Width: idWidth}
		case 1:
			cols[i] = table.Column{Title: h, Width: nameWidth}
		default:
			if i-2 == m.day {
				h = "[" + h + "]"
			}
			cols[i] = table.Column{Title: h, Width: dayWidth}
		}
	}

	rows := make([]table.Row, len(m.items))
	for i, r := range tracker.Rows(m.window, m.items) {
		rows[i] = table.Row(r)
	}

	// Rows must be cleared first so a narrower column set never sees stale rows.
	// Clearing them also drops the cursor, so it is put back afterwards.
	cursor := m.table.Cursor()
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(min(max(cursor, 0), len(rows)-1))
	}
}

// Items returns the rows currently shown
func (m Model) Items() []models.HabitWithLogs {
	return m.items
}

// Selected returns the habit under the cursor
func (m Model) Selected() (models.HabitWithLogs, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.items) {
		return models.HabitWithLogs{}, false
	}
	return m.items[c], true
}

// SelectedDay returns the day under the day cursor
func (m Model) SelectedDay() string {
	if m.day < 0 || m.day >= len(m.window.Days) {
		return ""
	}
	return m.window.Days[m.day]
}

// SetStatus records a logged slot locally so the grid reflects it before the
// next refresh. A day is shown done only once all of its slots are.
func (m *Model) SetStatus(entry models.HabitLogEntry) {
	for i := range m.items {
		item := &m.items[i]
		if item.Habit.ID != entry.HabitID {
			continue
		}
		if item.Slots == nil {
			item.Slots = models.SlotLog{}
		}
		item.Slots.Set(entry.Date, entry.Index, item.Habit.Frequency(), entry.IsDone)
		if item.Logs == nil {
			item.Logs = models.LogStatus{}
		}
		item.Logs[entry.Date] = item.Slots.Done(entry.Date)
	}
	m.render()
}

// nextToggle picks the slot a toggle on day writes for item
func nextToggle(item models.HabitWithLogs, day string) (int, bool) {
	if _, ok := item.Slots[day]; ok {
		return item.Slots.Next(day)
	}
	return 0, item.Logs.Status(day) != models.DayDone
}

// Remove drops a habit from the grid
func (m *Model) Remove(habitID int) {
	kept := m.items[:0:0]
	for _, item := range m.items {
		if item.Habit.ID != habitID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	m.render()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return RefreshMsg{} }
		case key.Matches(msg, m.keys.PrevDay):
			if m.day > 0 {
				m.day--
				m.render()
			}
			return m, nil
		case key.Matches(msg, m.keys.NextDay):
			if m.day < len(m.window.Days)-1 {
				m.day++
				m.render()
			}
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			if item, ok := m.Selected(); ok {
				day := m.SelectedDay()
				index, done := nextToggle(item, day)
				return m, func() tea.Msg { return ToggleMsg{Habit: item.Habit, Day: day, Index: index, Done: done} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if item, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{Habit: item.Habit} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.items) == 0 {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.table.View() + "\n  " + selectedDayStyle.Render(m.SelectedDay())
}

// Keys returns the bindings shown in help
func (m Model) Keys() []key.Binding {
	return []key.Binding{m.keys.Toggle, m.keys.PrevDay, m.keys.NextDay, m.keys.Add, m.keys.Delete, m.keys.Refresh}
}

func (m *Model) SetSize(width, height int) {
	m.table.SetWidth(width)
	m.table.SetHeight(height)
}
