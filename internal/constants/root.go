package constants

import "time"

// StrategyType represents the scheduling rule of a habit
type StrategyType string

// ViewState represents the screen currently shown by the TUI
type ViewState int

const (
	AppName            = "habitual"
	DefaultKeyringUser = "access-token"
	DefaultConfigDir   = "~/.config/habitual"
	CacheFileName      = "habitual.db"
	DefaultServerURL   = "http://localhost:8000"
	DefaultTimeout     = 15 * time.Second
	Version            = "v0.3.0"

	// DateFormat is the date format the backend uses for habit dates and log keys (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Display window around today, inclusive on both ends
	WindowDaysBefore = 3
	WindowDaysAfter  = 3
	WindowSize       = WindowDaysBefore + WindowDaysAfter + 1

	// Upper bound on concurrent per-habit log requests
	DefaultFetchConcurrency = 8

	// Strategy types
	StrategyDaily  StrategyType = "daily"
	StrategyWeekly StrategyType = "weekly"

	// Strategy parameter keys
	ParamDayOfWeek = "day_of_week"
	ParamFrequency = "frequency"
)

// View states
const (
	ViewLogin ViewState = iota
	ViewRegister
	ViewHabits
	ViewCreateHabit
	ViewProfile
)

// String returns the display name of a view
func (v ViewState) String() string {
	switch v {
	case ViewLogin:
		return "Login"
	case ViewRegister:
		return "Register"
	case ViewHabits:
		return "Habits"
	case ViewCreateHabit:
		return "New Habit"
	case ViewProfile:
		return "Profile"
	default:
		return "Unknown"
	}
}
