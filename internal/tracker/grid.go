package tracker

import (
	"strconv"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

// Headers returns the grid column titles: habit id and name, then one column
// per window day
func Headers(w Window) []string {
	headers := make([]string, 0, len(w.Days)+2)
	headers = append(headers, "ID", "Habit")
	for _, day := range w.Days {
		headers = append(headers, utils.ShortDay(day))
	}
	return headers
}

// Row renders one habit as grid cells matching Headers
func Row(w Window, item models.HabitWithLogs) []string {
	row := make([]string, 0, len(w.Days)+2)
	row = append(row, strconv.Itoa(item.Habit.ID), item.Habit.Name)
	for _, day := range w.Days {
		row = append(row, item.Logs.Status(day).Symbol())
	}
	return row
}

// Rows renders every item in order
func Rows(w Window, items []models.HabitWithLogs) [][]string {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = Row(w, item)
	}
	return rows
}
