package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
	"github.com/harrisonrobin/calstats/pkg/util"
)

var (
	// ErrInvalidWindow is returned when the averaging window is not positive.
	ErrInvalidWindow = errors.New("window size must be positive")
	// ErrInvalidRange is returned when the reporting range is empty or inverted.
	ErrInvalidRange = errors.New("reporting range must be positive")
)

// Params are the averaging parameters shared by every task in one report.
type Params struct {
	RangeSpan  time.Duration
	WindowSize time.Duration
	Policy     DurationPolicy
}

// Validate rejects window/range combinations that cannot produce an average.
func (p Params) Validate() error {
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidWindow, p.WindowSize)
	}
	if p.RangeSpan <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidRange, p.RangeSpan)
	}
	return nil
}

// Windows is the number of windows that fit in the range; it may be fractional.
func (p Params) Windows() float64 {
	return float64(p.RangeSpan) / float64(p.WindowSize)
}

// Config is everything a single report run needs.
type Config struct {
	RangeStart    time.Time
	RangeEnd      time.Time
	WindowDays    int
	ColorIDToTask colors.ColorIDToTask
	Policy        DurationPolicy
}

// Params derives the averaging parameters from the date range. The span
// counts calendar days, so 23h and 25h days count as one.
func (c Config) Params() Params {
	return Params{
		RangeSpan:  util.DaySpan(c.RangeStart, c.RangeEnd),
		WindowSize: util.Days(c.WindowDays),
		Policy:     c.Policy,
	}
}

// Run aggregates events under this configuration.
func (c Config) Run(events []model.Event) (*Report, error) {
	return Aggregate(events, c.ColorIDToTask, c.Params())
}

// Contribution is one event's share of a task.
type Contribution struct {
	Summary  string
	Duration time.Duration
}

// Entry is the per-task line of a report.
type Entry struct {
	Task         string
	Total        time.Duration
	AverageHours float64
	Events       []Contribution
}

// Uncategorized records an event left out of every task.
type Uncategorized struct {
	EventID  string
	Summary  string
	Reason   Reason
	Duration time.Duration
}

// Report is the result of aggregating one event list.
type Report struct {
	RangeSpan     time.Duration
	WindowSize    time.Duration
	Windows       float64
	Tasks         map[string]*Entry
	Uncategorized []Uncategorized
}

// Aggregate groups events by task and computes each task's per-window
// average. Events that cannot be attributed are collected in
// Report.Uncategorized; they never stop the fold.
func Aggregate(events []model.Event, m colors.ColorIDToTask, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := newReport(p)
	for _, ev := range events {
		r.add(Classify(ev, m, p.Policy))
	}
	r.finalize()
	return r, nil
}

// Merge combines partial reports built with the same Params. Buckets are
// concatenated in argument order, so merging contiguous chunks of an event
// list gives the same report as aggregating the whole list.
func Merge(p Params, parts ...*Report) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := newReport(p)
	for _, part := range parts {
		if part == nil {
			continue
		}
		for _, name := range part.TaskNames() {
			src := part.Tasks[name]
			dst := out.bucket(name)
			dst.Events = append(dst.Events, src.Events...)
			dst.Total += src.Total
		}
		out.Uncategorized = append(out.Uncategorized, part.Uncategorized...)
	}
	out.finalize()
	return out, nil
}

// TaskNames returns the task names in sorted order.
func (r *Report) TaskNames() []string {
	names := make([]string, 0, len(r.Tasks))
	for name := range r.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total is the summed duration of all categorized events.
func (r *Report) Total() time.Duration {
	var total time.Duration
	for _, e := range r.Tasks {
		total += e.Total
	}
	return total
}

// UncategorizedTotal is the summed duration of uncategorized events whose
// timestamps could be parsed.
func (r *Report) UncategorizedTotal() time.Duration {
	var total time.Duration
	for _, u := range r.Uncategorized {
		total += u.Duration
	}
	return total
}

// UncategorizedSummaries lists the summaries of uncategorized events in order.
func (r *Report) UncategorizedSummaries() []string {
	out := make([]string, 0, len(r.Uncategorized))
	for _, u := range r.Uncategorized {
		out = append(out, u.Summary)
	}
	return out
}

func newReport(p Params) *Report {
	return &Report{
		RangeSpan:  p.RangeSpan,
		WindowSize: p.WindowSize,
		Windows:    p.Windows(),
		Tasks:      make(map[string]*Entry),
	}
}

func (r *Report) bucket(task string) *Entry {
	e, ok := r.Tasks[task]
	if !ok {
		e = &Entry{Task: task}
		r.Tasks[task] = e
	}
	return e
}

func (r *Report) add(o Outcome) {
	if !o.Categorized() {
		r.Uncategorized = append(r.Uncategorized, Uncategorized{
			EventID:  o.EventID,
			Summary:  o.Summary,
			Reason:   o.Reason,
			Duration: o.Duration,
		})
		return
	}
	e := r.bucket(o.Task)
	e.Events = append(e.Events, Contribution{Summary: o.Summary, Duration: o.Duration})
	e.Total += o.Duration
}

func (r *Report) finalize() {
	for _, e := range r.Tasks {
		e.AverageHours = e.Total.Hours() / r.Windows
	}
}
