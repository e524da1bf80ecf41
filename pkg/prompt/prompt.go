package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/harrisonrobin/calstats/pkg/util"
)

// RangeFormModel backs the date range form. All fields are strings so the
// form can edit them directly.
type RangeFormModel struct {
	From       string
	To         string
	WindowDays string
}

// Range is a parsed RangeFormModel.
type Range struct {
	From       time.Time
	To         time.Time
	WindowDays int
}

// NewRangeForm asks for the report's start date, end date and averaging
// window.
func NewRangeForm(fm *RangeFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Description("YYYY-MM-DD, inclusive").
				Placeholder(util.DateLayout).
				Value(&fm.From).
				Validate(validateDate),
			huh.NewInput().
				Title("End date").
				Description("YYYY-MM-DD, exclusive").
				Placeholder(util.DateLayout).
				Value(&fm.To).
				Validate(func(s string) error {
					if err := validateDate(s); err != nil {
						return err
					}
					return validateOrder(fm.From, s)
				}),
			huh.NewInput().
				Title("Days to average over").
				Value(&fm.WindowDays).
				Validate(validateWindow),
		),
	).WithTheme(huh.ThemeDracula())
}

// Parse converts the form values, interpreting dates in loc.
func (fm RangeFormModel) Parse(loc *time.Location) (Range, error) {
	from, err := util.ParseDate(strings.TrimSpace(fm.From), loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start date: %w", err)
	}
	to, err := util.ParseDate(strings.TrimSpace(fm.To), loc)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end date: %w", err)
	}
	if !to.After(from) {
		return Range{}, errors.New("end date must be after start date")
	}
	days, err := strconv.Atoi(strings.TrimSpace(fm.WindowDays))
	if err != nil || days <= 0 {
		return Range{}, fmt.Errorf("window must be a positive number of days, got %q", fm.WindowDays)
	}
	return Range{From: from, To: to, WindowDays: days}, nil
}

func validateDate(s string) error {
	_, err := time.Parse(util.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use the format %s", util.DateLayout)
	}
	return nil
}

func validateOrder(from, to string) error {
	f, err := time.Parse(util.DateLayout, strings.TrimSpace(from))
	if err != nil {
		return nil
	}
	t, err := time.Parse(util.DateLayout, strings.TrimSpace(to))
	if err != nil {
		return nil
	}
	if !t.After(f) {
		return errors.New("end date must be after start date")
	}
	return nil
}

func validateWindow(s string) error {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if i <= 0 {
		return fmt.Errorf("window must be a positive number of days")
	}
	return nil
}

// MappingFormModel backs the color -> task form. Tasks[i] is the task for
// Colors[i]; an empty task leaves the color unmapped.
type MappingFormModel struct {
	Colors []string
	Tasks  []string
}

// NewMappingFormModel seeds the form with the current task of each color.
func NewMappingFormModel(colorNames []string, current func(color string) string) *MappingFormModel {
	fm := &MappingFormModel{
		Colors: append([]string(nil), colorNames...),
		Tasks:  make([]string, len(colorNames)),
	}
	if current != nil {
		for i, c := range colorNames {
			fm.Tasks[i] = current(c)
		}
	}
	return fm
}

// NewMappingForm asks which task each calendar color stands for.
func NewMappingForm(fm *MappingFormModel) *huh.Form {
	fields := make([]huh.Field, 0, len(fm.Colors)+1)
	fields = append(fields, huh.NewNote().
		Title("Task per color").
		Description("Name the task each event color stands for. Leave a color empty to skip it."))
	for i, c := range fm.Colors {
		fields = append(fields, huh.NewInput().
			Title(c).
			Value(&fm.Tasks[i]))
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeDracula())
}

// Entries returns the color -> task pairs, including empty tasks so callers
// can clear colors that were unset in the form.
func (fm *MappingFormModel) Entries() map[string]string {
	out := make(map[string]string, len(fm.Colors))
	for i, c := range fm.Colors {
		out[c] = strings.TrimSpace(fm.Tasks[i])
	}
	return out
}

// NewConfirmForm asks a yes/no question.
func NewConfirmForm(title string, value *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(value),
		),
	).WithTheme(huh.ThemeDracula())
}
