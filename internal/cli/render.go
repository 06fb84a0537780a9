package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tracker"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	todayStyle  = cellStyle.Foreground(lipgloss.Color("205")).Bold(true)
)

// RenderGrid draws the habit grid as a bordered table. The today column is highlighted.
func RenderGrid(w tracker.Window, items []models.HabitWithLogs) string {
	if len(items) == 0 {
		return "No habits found. Add one with 'habitual habit add'.\n"
	}

	todayCol := -1
	for i, day := range w.Days {
		if day == w.Today {
			todayCol = i + 2
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tracker.Headers(w)...).
		Rows(tracker.Rows(w, items)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == todayCol:
				return todayStyle
			default:
				return cellStyle
			}
		})
	return t.String() + "\n"
}

// RenderSnapshotNote describes where a cached grid came from
func RenderSnapshotNote(snap models.Snapshot, now time.Time) string {
	age := now.Sub(snap.FetchedAt).Round(time.Minute)
	var b strings.Builder
	fmt.Fprintf(&b, "Offline: showing cached habits for %s", snap.Username)
	fmt.Fprintf(&b, " from %s (%s ago)\n", snap.FetchedAt.Local().Format("2006-01-02 15:04"), age)
	return b.String()
}
