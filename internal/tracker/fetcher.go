// Package tracker loads the habit grid: the habit collection plus the log
// status of every habit over a seven day window.
package tracker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

// HabitSource is the part of the backend the fetcher reads from
type HabitSource interface {
	ListHabits(ctx context.Context, token string) ([]models.Habit, error)
	DatesWithStatus(ctx context.Context, token string, habitID int, start, end string) (models.SlotLog, error)
}

// Result is one complete load of the grid
type Result struct {
	Window    Window
	Items     []models.HabitWithLogs
	FetchedAt time.Time
}

// Fetcher loads habits and their logs for the current window
type Fetcher struct {
	source HabitSource
	limit  int
	now    func() time.Time
	loc    *time.Location
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithConcurrency bounds the number of log requests in flight
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithClock overrides the time source that decides what today is
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// WithLocation sets the timezone that decides what today is
func WithLocation(loc *time.Location) Option {
	return func(f *Fetcher) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// NewFetcher creates a fetcher reading from source
func NewFetcher(source HabitSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: source,
		limit:  constants.DefaultFetchConcurrency,
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Window returns the window around today
func (f *Fetcher) Window() Window {
	return NewWindow(f.now().In(f.loc))
}

// Fetch loads the grid for the window around today
func (f *Fetcher) Fetch(ctx context.Context, token string) (Result, error) {
	window := f.Window()
	items, err := f.FetchWindow(ctx, token, window)
	if err != nil {
		return Result{}, err
	}
	return Result{Window: window, Items: items, FetchedAt: f.now()}, nil
}

// FetchWindow lists the habits and then requests the logs of every habit
// concurrently. The first failure fails the whole load and cancels the
// requests still in flight. Items keep the order the backend listed them in.
func (f *Fetcher) FetchWindow(ctx context.Context, token string, window Window) ([]models.HabitWithLogs, error) {
	habits, err := f.source.ListHabits(ctx, token)
	if err != nil {
		return nil, err
	}

	items := make([]models.HabitWithLogs, len(habits))
	if len(habits) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for i, habit := range habits {
		g.Go(func() error {
			slots, err := f.source.DatesWithStatus(gctx, token, habit.ID, window.Start(), window.End())
			if err != nil {
				return fmt.Errorf("logs for habit %d: %w", habit.ID, err)
			}
			items[i] = models.HabitWithLogs{Habit: habit, Logs: slots.Collapse(), Slots: slots}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("habit fetch failed", "habits", len(habits), "error", err)
		return nil, err
	}

	logger.Debug("fetched habits", "habits", len(habits), "start", window.Start(), "end", window.End())
	return items, nil
}

// FailureMessage returns the text shown when a load fails
func FailureMessage(err error) string {
	return api.Message(err, constants.MsgHabitsFailed, constants.MsgHabitsUnexpected)
}
