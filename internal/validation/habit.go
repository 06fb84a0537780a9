// Package validation checks habit form input locally before anything is sent
// to the backend.
package validation

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

// Field names a form input
type Field string

const (
	FieldName           Field = "name"
	FieldDescription    Field = "description"
	FieldStartDate      Field = "start_date"
	FieldEndDate        Field = "end_date"
	FieldStrategyType   Field = "strategy_type"
	FieldStrategyParams Field = "strategy_params"
)

// FieldError is a problem with a single form input
type FieldError struct {
	Field   Field
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// Result contains every problem found in a form
type Result struct {
	Errors []FieldError
}

// HasErrors returns true if any field is invalid
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the message of the first problem, or "" when the form is valid
func (r Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// Err joins every problem into one error, nil when the form is valid
func (r Result) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// HabitForm is the raw text of the create-habit form
type HabitForm struct {
	Name           string
	Description    string
	StartDate      string
	EndDate        string
	StrategyType   string
	StrategyParams string
}

// Validate checks every field and reports all problems in form order
func (f HabitForm) Validate() Result {
	var r Result
	add := func(field Field, err error) {
		if err != nil {
			r.Errors = append(r.Errors, FieldError{Field: field, Message: err.Error()})
		}
	}

	add(FieldName, Name(f.Name))
	add(FieldStartDate, Date(f.StartDate))
	add(FieldEndDate, Date(f.EndDate))
	if Date(f.StartDate) == nil && Date(f.EndDate) == nil {
		add(FieldEndDate, DateRange(f.StartDate, f.EndDate))
	}
	add(FieldStrategyType, StrategyType(f.StrategyType))

	params, err := parseParams(f.StrategyParams)
	add(FieldStrategyParams, err)
	if err == nil {
		add(FieldStrategyParams, Params(constants.StrategyType(strings.TrimSpace(f.StrategyType)), params))
	}
	return r
}

// Build validates the form and converts it to a create request. Empty
// optional fields are sent as null and empty params as {}.
func (f HabitForm) Build() (models.HabitCreate, error) {
	if r := f.Validate(); r.HasErrors() {
		return models.HabitCreate{}, r.Err()
	}
	params, _ := parseParams(f.StrategyParams)
	return models.HabitCreate{
		Name:           strings.TrimSpace(f.Name),
		Description:    optional(f.Description),
		StartDate:      optional(f.StartDate),
		EndDate:        optional(f.EndDate),
		StrategyType:   constants.StrategyType(strings.TrimSpace(f.StrategyType)),
		StrategyParams: params,
	}, nil
}

// Name requires a non-blank habit name
func Name(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New(constants.MsgNameRequired)
	}
	return nil
}

// Date accepts an empty string or a YYYY-MM-DD date
func Date(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || utils.ValidateDateFormat(s) {
		return nil
	}
	return errors.New(constants.MsgInvalidDate)
}

// DateRange rejects an end date before the start date. Either may be empty.
func DateRange(start, end string) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil
	}
	s, err := utils.ParseDate(start)
	if err != nil {
		return errors.New(constants.MsgInvalidDate)
	}
	e, err := utils.ParseDate(end)
	if err != nil {
		return errors.New(constants.MsgInvalidDate)
	}
	if e.Before(s) {
		return errors.New(constants.MsgEndBeforeStart)
	}
	return nil
}

// StrategyType accepts daily or weekly
func StrategyType(s string) error {
	switch constants.StrategyType(strings.TrimSpace(s)) {
	case constants.StrategyDaily, constants.StrategyWeekly:
		return nil
	default:
		return errors.New(constants.MsgInvalidStrategyType)
	}
}

// ParamsJSON accepts an empty string or a JSON object
func ParamsJSON(s string) error {
	_, err := parseParams(s)
	return err
}

// Params checks the keys the backend interprets: day_of_week, required for
// weekly habits, and frequency for daily ones. Other keys pass through untouched.
func Params(strategy constants.StrategyType, params map[string]any) error {
	switch strategy {
	case constants.StrategyWeekly:
		v, ok := params[constants.ParamDayOfWeek]
		if !ok {
			return errors.New(constants.MsgDayOfWeekRequired)
		}
		if n, ok := wholeNumber(v); !ok || n < 0 || n > 6 {
			return errors.New(constants.MsgInvalidDayOfWeek)
		}
	case constants.StrategyDaily:
		if v, ok := params[constants.ParamFrequency]; ok {
			if n, ok := wholeNumber(v); !ok || n < 1 {
				return errors.New(constants.MsgInvalidFrequency)
			}
		}
	}
	return nil
}

func parseParams(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(s), &params); err != nil || params == nil {
		return nil, errors.New(constants.MsgInvalidStrategyJSON)
	}
	return params, nil
}

func wholeNumber(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
