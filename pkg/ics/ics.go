package ics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/model"
)

const defaultMaxOccurrences = 5000

// Options controls how an .ics file is turned into events.
type Options struct {
	// RangeStart / RangeEnd bound the events returned; recurring events are
	// expanded inside this window. A zero RangeEnd disables filtering and
	// recurrence expansion.
	RangeStart time.Time
	RangeEnd   time.Time

	// Palette and Names translate a VEVENT's COLOR property (a hex value or
	// a color name) into a provider colorId.
	Palette colors.Palette
	Names   colors.Names

	// MaxOccurrences caps the expansion of a single recurring event.
	MaxOccurrences int
}

// vevent is the subset of a VEVENT the report needs.
type vevent struct {
	UID        string
	Summary    string
	ColorID    string
	Start      time.Time
	End        time.Time
	Timed      bool
	RRule      string
	ExDates    []time.Time
	Recurrence *time.Time
}

// LoadFile parses the .ics file at path.
func LoadFile(path string, opts Options) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

// Load parses an iCalendar stream and returns its events ordered by start.
func Load(r io.Reader, opts Options) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}
	if opts.Palette == nil {
		opts.Palette = colors.DefaultPalette()
	}
	if opts.Names == nil {
		opts.Names = colors.GoogleNames()
	}

	var parsed []vevent
	overridden := make(map[string]map[int64]bool)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, opts)
		if err != nil {
			logger.Warn("skipping vevent", "error", err)
			continue
		}
		if ev.Recurrence != nil {
			if overridden[ev.UID] == nil {
				overridden[ev.UID] = make(map[int64]bool)
			}
			overridden[ev.UID][ev.Recurrence.Unix()] = true
		}
		parsed = append(parsed, ev)
	}

	var out []model.Event
	var starts []time.Time
	for _, ev := range parsed {
		for _, occ := range expand(ev, overridden[ev.UID], opts) {
			out = append(out, occ.event)
			starts = append(starts, occ.start)
		}
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := starts[idx[a]], starts[idx[b]]
		if sa.IsZero() != sb.IsZero() {
			return !sa.IsZero()
		}
		return sa.Before(sb)
	})
	sorted := make([]model.Event, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}

	logger.Debug("ics parse completed", "vevents", len(parsed), "events", len(sorted))
	return sorted, nil
}

func parseVEvent(ve *ical.VEvent, opts Options) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty("COLOR"); p != nil {
		out.ColorID = colorIDFor(p.Value, opts)
		if out.ColorID == "" {
			logger.Debug("unknown event color", "uid", out.UID, "color", p.Value)
		}
	}

	// Date-only DTSTART means an all-day event. Those carry no time of day,
	// so they are passed on without timestamps.
	dt := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dt == nil {
		return out, fmt.Errorf("uid %s: missing DTSTART", out.UID)
	}
	out.Timed = strings.Contains(dt.Value, "T")
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("uid %s: %w", out.UID, err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start
	}
	out.Start, out.End = start, end

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, out.Start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, out.Start.Location()); err == nil {
			out.Recurrence = &t
		}
	}
	return out, nil
}

// colorIDFor maps an RFC 7986 COLOR value to a colorId of the palette.
func colorIDFor(value string, opts Options) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if id, ok := opts.Palette.IDForHex(value); ok {
		return id
	}
	if hex, ok := opts.Names.HexForName(value); ok {
		if id, ok := opts.Palette.IDForHex(hex); ok {
			return id
		}
	}
	return ""
}

type occurrence struct {
	event model.Event
	start time.Time
}

func expand(ev vevent, overridden map[int64]bool, opts Options) []occurrence {
	if !ev.Timed {
		if !opts.RangeEnd.IsZero() && !inRange(ev, opts) {
			return nil
		}
		return []occurrence{{event: model.Event{ID: ev.UID, Summary: ev.Summary, ColorID: ev.ColorID}}}
	}

	if ev.RRule == "" || ev.Recurrence != nil || opts.RangeEnd.IsZero() {
		if !opts.RangeEnd.IsZero() && !overlaps(ev.Start, ev.End, opts.RangeStart, opts.RangeEnd) {
			return nil
		}
		return []occurrence{makeOccurrence(ev, ev.UID, ev.Start, ev.End)}
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		logger.Warn("failed to parse RRULE", "uid", ev.UID, "rrule", ev.RRule, "error", err)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Include occurrences that started before the range but still overlap it.
	duration := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	starts := set.Between(opts.RangeStart.Add(-duration).In(loc), opts.RangeEnd.In(loc), true)
	if len(starts) > opts.MaxOccurrences {
		logger.Warn("truncated recurring event", "uid", ev.UID, "cap", opts.MaxOccurrences)
		starts = starts[:opts.MaxOccurrences]
	}

	var out []occurrence
	for _, s := range starts {
		if overridden[s.Unix()] {
			continue
		}
		e := s.Add(duration)
		if !overlaps(s, e, opts.RangeStart, opts.RangeEnd) {
			continue
		}
		id := ev.UID + "_" + s.UTC().Format("20060102T150405Z")
		out = append(out, makeOccurrence(ev, id, s, e))
	}
	return out
}

func makeOccurrence(ev vevent, id string, start, end time.Time) occurrence {
	return occurrence{
		event: model.Event{
			ID:      id,
			Summary: ev.Summary,
			ColorID: ev.ColorID,
			Start:   start.Format(time.RFC3339),
			End:     end.Format(time.RFC3339),
		},
		start: start,
	}
}

// overlaps uses the events.list semantics: end > rangeStart and start < rangeEnd.
func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	return end.After(rangeStart) && start.Before(rangeEnd)
}

func inRange(ev vevent, opts Options) bool {
	end := ev.End
	if !end.After(ev.Start) {
		end = ev.Start.Add(24 * time.Hour)
	}
	return overlaps(ev.Start, end, opts.RangeStart, opts.RangeEnd)
}

// parseICSTime parses the basic DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID values.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
