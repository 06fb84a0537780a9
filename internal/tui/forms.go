package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/validation"
)

type LoginFormModel struct {
	Username string
	Password string
}

type RegisterFormModel struct {
	Username        string
	Password        string
	ConfirmPassword string
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required.")
		}
		return nil
	}
}

// NewLoginForm creates the login form
func NewLoginForm(fm *LoginFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&fm.Username).
				Validate(required("Username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Password).
				Validate(required("Password")),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewRegisterForm creates the registration form. Password confirmation is
// checked by Controller.Register.
func NewRegisterForm(fm *RegisterFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&fm.Username).
				Validate(required("Username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Password).
				Validate(required("Password")),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.ConfirmPassword),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewHabitForm creates the create-habit form. Fields are checked as they are
// left; rules spanning fields run on submit.
func NewHabitForm(fm *validation.HabitForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(validation.Name),
			huh.NewText().
				Title("Description").
				Lines(3).
				Value(&fm.Description),
			huh.NewInput().
				Title("Start Date").
				Description("YYYY-MM-DD, optional").
				Value(&fm.StartDate).
				Validate(validation.Date),
			huh.NewInput().
				Title("End Date").
				Description("YYYY-MM-DD, optional").
				Value(&fm.EndDate).
				Validate(validation.Date),
			huh.NewSelect[string]().
				Title("Strategy").
				Options(
					huh.NewOption("Daily", string(constants.StrategyDaily)),
					huh.NewOption("Weekly", string(constants.StrategyWeekly)),
				).
				Value(&fm.StrategyType),
			huh.NewInput().
				Title("Strategy Parameters").
				Description(`JSON object, e.g. {"day_of_week": 0} for Mondays`).
				Value(&fm.StrategyParams).
				Validate(validation.ParamsJSON),
		),
	).WithTheme(huh.ThemeDracula())
}
