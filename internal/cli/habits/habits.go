package habits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tracker"
	"github.com/julianstephens/habitual/internal/utils"
	"github.com/julianstephens/habitual/internal/validation"
)

type HabitCmd struct {
	List   HabitListCmd   `cmd:"" help:"Show habits with the last seven days of logs." default:"1"`
	Add    HabitAddCmd    `cmd:"" help:"Create a habit."`
	Mark   HabitMarkCmd   `cmd:"" help:"Mark a habit done or not done for a day."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit."`
}

type HabitListCmd struct {
	Offline bool `help:"Show the cached grid without contacting the server."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if c.Offline {
		return c.showCached(ctx)
	}

	bg := context.Background()
	s, err := ctx.RequireSession(bg)
	if err != nil {
		return err
	}

	res, err := ctx.Fetcher.Fetch(bg, s.Token)
	if err := ctx.Authorized(s, err, constants.MsgHabitsFailed, constants.MsgHabitsUnexpected); err != nil {
		return err
	}

	ctx.CacheResult(s, res)
	ctx.Printf("%s", cli.RenderGrid(res.Window, res.Items))
	return nil
}

func (c *HabitListCmd) showCached(ctx *cli.Context) error {
	username := ctx.Settings().LastUsername
	if username == "" {
		return errors.New("no cached habits: log in and run 'habitual habit list' first")
	}

	snap, err := ctx.Store.GetSnapshot(ctx.Config.ServerURL, username)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no cached habits for %s", username)
	}
	if err != nil {
		return err
	}

	window, err := tracker.WindowStartingAt(snap.WindowStart)
	if err != nil {
		return fmt.Errorf("corrupt cached window %q: %w", snap.WindowStart, err)
	}

	ctx.Printf("%s", cli.RenderSnapshotNote(snap, time.Now()))
	ctx.Printf("%s", cli.RenderGrid(window, snap.Items))
	return nil
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Description string `help:"Optional description."`
	Start       string `help:"Start date (YYYY-MM-DD)."`
	End         string `help:"End date (YYYY-MM-DD)."`
	Strategy    string `help:"Strategy type." enum:"daily,weekly" default:"daily"`
	Params      string `help:"Strategy parameters as a JSON object, e.g. '{\"day_of_week\": 0}'." default:"{}"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	form := validation.HabitForm{
		Name:           c.Name,
		Description:    c.Description,
		StartDate:      c.Start,
		EndDate:        c.End,
		StrategyType:   c.Strategy,
		StrategyParams: c.Params,
	}
	habit, err := form.Build()
	if err != nil {
		return err
	}

	bg := context.Background()
	s, err := ctx.RequireSession(bg)
	if err != nil {
		return err
	}

	created, err := ctx.Client.CreateHabit(bg, s.Token, habit)
	if err := ctx.Authorized(s, err, constants.MsgCreateHabitFailed, constants.MsgCreateHabitUnexpected); err != nil {
		return err
	}

	ctx.Printf("Added habit %q (id %d)\n", created.Name, created.ID)
	return nil
}

type HabitMarkCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
	Undo  bool   `help:"Mark the habit as not done."`
	Index int    `help:"Slot for habits logged several times a day." default:"0"`
}

func (c *HabitMarkCmd) Run(ctx *cli.Context) error {
	day := c.Date
	if day == "" {
		day = ctx.Today()
	} else if !utils.ValidateDateFormat(day) {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", day)
	}
	if c.Index < 0 {
		return fmt.Errorf("invalid index %d", c.Index)
	}

	bg := context.Background()
	s, err := ctx.RequireSession(bg)
	if err != nil {
		return err
	}
	habit, err := resolveHabit(bg, ctx, s, c.Habit)
	if err != nil {
		return err
	}

	entry := models.HabitLogEntry{HabitID: habit.ID, Date: day, IsDone: !c.Undo, Index: c.Index}
	err = ctx.Client.LogHabit(bg, s.Token, entry)
	if err := ctx.Authorized(s, err, constants.MsgLogHabitFailed, constants.MsgLogHabitUnexpected); err != nil {
		return err
	}

	status := models.DayDone
	if c.Undo {
		status = models.DayNotDone
	}
	ctx.Printf("Marked %q as %s for %s\n", habit.Name, status, day)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

// confirm asks before destructive actions. Tests replace it.
var confirm = func(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().Title(title).Affirmative("Delete").Negative("Cancel").Value(&ok).Run()
	return ok, err
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	s, err := ctx.RequireSession(bg)
	if err != nil {
		return err
	}
	habit, err := resolveHabit(bg, ctx, s, c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Delete habit %q and all of its logs?", habit.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Printf("Cancelled.\n")
			return nil
		}
	}

	err = ctx.Client.DeleteHabit(bg, s.Token, habit.ID)
	if err := ctx.Authorized(s, err, constants.MsgDeleteHabitFailed, constants.MsgDeleteHabitUnexpected); err != nil {
		return err
	}

	ctx.Printf("Deleted habit %q\n", habit.Name)
	return nil
}

// resolveHabit finds a habit by id, or by case-insensitive name when ref is not a number
func resolveHabit(bg context.Context, ctx *cli.Context, s session.Session, ref string) (models.Habit, error) {
	habits, err := ctx.Client.ListHabits(bg, s.Token)
	if err := ctx.Authorized(s, err, constants.MsgHabitsFailed, constants.MsgHabitsUnexpected); err != nil {
		return models.Habit{}, err
	}

	id, idErr := strconv.Atoi(ref)
	var matches []models.Habit
	for _, h := range habits {
		if (idErr == nil && h.ID == id) || strings.EqualFold(h.Name, ref) {
			matches = append(matches, h)
		}
	}

	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("habit %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%d habits are named %q, use the id instead", len(matches), ref)
	}
}
