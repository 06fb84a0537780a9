package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
)

// Habit is a habit as returned by the backend
type Habit struct {
	ID             int                    `json:"id"`
	Name           string                 `json:"name"`
	Description    *string                `json:"description"`
	StartDate      *string                `json:"start_date"`
	EndDate        *string                `json:"end_date"`
	StrategyType   constants.StrategyType `json:"strategy_type"`
	StrategyParams map[string]any         `json:"strategy_params"`
	UserID         int                    `json:"user_id"`
}

// Frequency is the number of slots a habit is logged in per day. Only daily
// habits have more than one.
func (h Habit) Frequency() int {
	if h.StrategyType != constants.StrategyDaily {
		return 1
	}
	n := 1
	switch v := h.StrategyParams[constants.ParamFrequency].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = int(i)
		}
	}
	return max(n, 1)
}

// HabitCreate is the request body for creating a habit. The backend assigns id and user_id.
type HabitCreate struct {
	Name           string                 `json:"name"`
	Description    *string                `json:"description"`
	StartDate      *string                `json:"start_date"`
	EndDate        *string                `json:"end_date"`
	StrategyType   constants.StrategyType `json:"strategy_type"`
	StrategyParams map[string]any         `json:"strategy_params"`
}

// HabitLogEntry is the request body for marking a habit done or not done on a day
type HabitLogEntry struct {
	HabitID int    `json:"habit_id"`
	Date    string `json:"date"`
	IsDone  bool   `json:"is_done"`
	Index   int    `json:"index"`
}

// DayStatus is the completion state of a habit on a single day
type DayStatus int

const (
	DayUnknown DayStatus = iota
	DayDone
	DayNotDone
)

// Symbol returns the grid marker for the status
func (s DayStatus) Symbol() string {
	switch s {
	case DayDone:
		return "✓"
	case DayNotDone:
		return "✗"
	default:
		return "-"
	}
}

func (s DayStatus) String() string {
	switch s {
	case DayDone:
		return "done"
	case DayNotDone:
		return "not done"
	default:
		return "unknown"
	}
}

// LogStatus maps ISO dates to completion. A missing date is unknown, which is
// not the same as false.
type LogStatus map[string]bool

// Status reports the completion state for day
func (l LogStatus) Status(day string) DayStatus {
	done, ok := l[day]
	switch {
	case !ok:
		return DayUnknown
	case done:
		return DayDone
	default:
		return DayNotDone
	}
}

// UnmarshalJSON accepts plain booleans as well as the per-slot lists the backend
// sends for habits logged several times a day. A list counts as done only when
// every slot is done. Null values are left out so they read as unknown.
func (l *LogStatus) UnmarshalJSON(data []byte) error {
	var slots SlotLog
	if err := json.Unmarshal(data, &slots); err != nil {
		return err
	}
	*l = slots.Collapse()
	return nil
}

// SlotLog holds the per-slot values of every logged day. Habits logged once a
// day have a single slot per day.
type SlotLog map[string][]bool

// UnmarshalJSON reads a plain boolean as a single slot
func (s *SlotLog) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(SlotLog, len(raw))
	for day, value := range raw {
		value = bytes.TrimSpace(value)
		if bytes.Equal(value, []byte("null")) {
			continue
		}

		var done bool
		if err := json.Unmarshal(value, &done); err == nil {
			out[day] = []bool{done}
			continue
		}

		var slots []bool
		if err := json.Unmarshal(value, &slots); err != nil {
			return fmt.Errorf("invalid status for %s: %s", day, string(value))
		}
		out[day] = slots
	}

	*s = out
	return nil
}

// Collapse reduces every day to a single completion value
func (s SlotLog) Collapse() LogStatus {
	out := make(LogStatus, len(s))
	for day, slots := range s {
		out[day] = allDone(slots)
	}
	return out
}

// Done reports whether every slot of day is done
func (s SlotLog) Done(day string) bool {
	return allDone(s[day])
}

// Next returns the slot a toggle on day writes and the value it writes. The
// first open slot is marked done; once every slot is done the last one is
// reopened.
func (s SlotLog) Next(day string) (int, bool) {
	slots := s[day]
	for i, done := range slots {
		if !done {
			return i, true
		}
	}
	if len(slots) == 0 {
		return 0, true
	}
	return len(slots) - 1, false
}

// Set records one slot of day, growing the day to at least size slots
func (s SlotLog) Set(day string, index, size int, done bool) {
	slots := s[day]
	for len(slots) < max(size, index+1) {
		slots = append(slots, false)
	}
	slots[index] = done
	s[day] = slots
}

func allDone(slots []bool) bool {
	all := len(slots) > 0
	for _, done := range slots {
		all = all && done
	}
	return all
}

// HabitWithLogs pairs a habit with the log snapshot fetched for the display window
type HabitWithLogs struct {
	Habit Habit     `json:"habit"`
	Logs  LogStatus `json:"logs"`
	Slots SlotLog   `json:"slots,omitempty"`
}

// Snapshot is a cached copy of the last successful grid fetch for a user
type Snapshot struct {
	ID          string          `json:"id"`
	UserID      int             `json:"user_id"`
	Username    string          `json:"username"`
	WindowStart string          `json:"window_start"`
	FetchedAt   time.Time       `json:"fetched_at"`
	Items       []HabitWithLogs `json:"items"`
}
