package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/calstats/pkg/model"
	"github.com/harrisonrobin/calstats/pkg/util"
)

// FromAPI converts a Google Calendar API event. All-day events only carry a
// date, so their Start/End stay empty and the report engine treats them as
// uncategorized.
func FromAPI(ev *calendar.Event) model.Event {
	out := model.Event{
		ID:      ev.Id,
		Summary: ev.Summary,
		ColorID: ev.ColorId,
	}
	if ev.Start != nil {
		out.Start = ev.Start.DateTime
	}
	if ev.End != nil {
		out.End = ev.End.DateTime
	}
	return out
}

// FromAPIList converts a list of API events, skipping nil and cancelled entries.
func FromAPIList(items []*calendar.Event) []model.Event {
	out := make([]model.Event, 0, len(items))
	for _, item := range items {
		if item == nil || item.Status == "cancelled" {
			continue
		}
		out = append(out, FromAPI(item))
	}
	return out
}

// ParseFile parses events from a JSON file.
func ParseFile(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads Google Calendar API events from r. It accepts an
// events.list response ({"items": [...]}), a JSON array of events, or a
// stream of event objects (one per line, as written by `jq -c`).
func Parse(r io.Reader) ([]model.Event, error) {
	var items []*calendar.Event
	decoder := json.NewDecoder(bufio.NewReader(r))
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode event json: %w", err)
		}
		decoded, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, decoded...)
	}
	return FromAPIList(items), nil
}

func decodeValue(raw json.RawMessage) ([]*calendar.Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []*calendar.Event
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode event array: %w", err)
		}
		return list, nil
	}

	var probe struct {
		Kind  string          `json:"kind"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode event json: %w", err)
	}
	if probe.Kind == "calendar#events" || probe.Items != nil {
		var list calendar.Events
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode events list: %w", err)
		}
		return list.Items, nil
	}

	var ev calendar.Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode event json: %w", err)
	}
	return []*calendar.Event{&ev}, nil
}

// InRange keeps the events that overlap [from, to), in their original order.
// A zero-length event is kept when it starts inside the range. Events whose
// timestamps do not parse are kept so the report can flag them.
func InRange(evs []model.Event, from, to time.Time) []model.Event {
	out := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		start, err := util.ParseTimestamp(ev.Start)
		if err != nil {
			out = append(out, ev)
			continue
		}
		end, err := util.ParseTimestamp(ev.End)
		if err != nil {
			out = append(out, ev)
			continue
		}
		if end.Before(start) {
			start, end = end, start
		}
		if start.Before(to) && (end.After(from) || (end.Equal(start) && !start.Before(from))) {
			out = append(out, ev)
		}
	}
	return out
}
