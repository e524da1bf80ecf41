package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
	"github.com/harrisonrobin/calstats/pkg/util"
)

// Reason says why an event could not be attributed to a task.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingColor
	ReasonUnmappedColor
	ReasonMissingTimestamp
	ReasonBadTimestamp
	ReasonNegativeDuration
	ReasonZeroDuration
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingColor:
		return "missing color"
	case ReasonUnmappedColor:
		return "unmapped color"
	case ReasonMissingTimestamp:
		return "missing timestamp"
	case ReasonBadTimestamp:
		return "unparseable timestamp"
	case ReasonNegativeDuration:
		return "end before start"
	case ReasonZeroDuration:
		return "zero duration"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// DurationPolicy decides what happens to events whose end is not after their start.
type DurationPolicy string

const (
	// CountAll keeps zero and negative durations in the task totals.
	CountAll DurationPolicy = "count"
	// RejectNegative treats end < start as a data-quality error.
	RejectNegative DurationPolicy = "reject-negative"
	// RejectNonPositive also rejects zero-length events.
	RejectNonPositive DurationPolicy = "reject-non-positive"
)

// ParsePolicy parses a policy name; the empty string means CountAll.
func ParsePolicy(s string) (DurationPolicy, error) {
	switch p := DurationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CountAll, nil
	case CountAll, RejectNegative, RejectNonPositive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duration policy %q (want %s, %s or %s)", s, CountAll, RejectNegative, RejectNonPositive)
	}
}

// Outcome is the classification of a single event. Reason is ReasonNone
// exactly when the event was attributed to Task.
type Outcome struct {
	EventID  string
	Summary  string
	Task     string
	Duration time.Duration
	Reason   Reason
}

// Categorized reports whether the event was attributed to a task.
func (o Outcome) Categorized() bool {
	return o.Reason == ReasonNone
}

// Classify attributes ev to a task using m. Duration is filled in whenever
// both timestamps parse, even for uncategorized outcomes.
func Classify(ev model.Event, m colors.ColorIDToTask, policy DurationPolicy) Outcome {
	out := Outcome{EventID: ev.ID, Summary: ev.Summary}

	duration, timeReason := eventDuration(ev)
	out.Duration = duration

	if !ev.HasColor() {
		out.Reason = ReasonMissingColor
		return out
	}
	task, ok := m[ev.ColorID]
	if !ok || task == "" {
		out.Reason = ReasonUnmappedColor
		return out
	}
	if timeReason != ReasonNone {
		out.Reason = timeReason
		return out
	}

	switch {
	case duration < 0 && (policy == RejectNegative || policy == RejectNonPositive):
		out.Reason = ReasonNegativeDuration
		return out
	case duration == 0 && policy == RejectNonPositive:
		out.Reason = ReasonZeroDuration
		return out
	}

	out.Task = task
	return out
}

func eventDuration(ev model.Event) (time.Duration, Reason) {
	start, err := util.ParseTimestamp(ev.Start)
	if err != nil {
		return 0, timestampReason(err)
	}
	end, err := util.ParseTimestamp(ev.End)
	if err != nil {
		return 0, timestampReason(err)
	}
	return end.Sub(start), ReasonNone
}

func timestampReason(err error) Reason {
	if errors.Is(err, util.ErrEmptyTimestamp) {
		return ReasonMissingTimestamp
	}
	return ReasonBadTimestamp
}
