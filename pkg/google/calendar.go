package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/events"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/model"
)

// pageSize is the largest page events.list will return.
const pageSize = 2500

// CalendarClient is a read-only Google Calendar API client.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID}
}

// CalendarID returns the id of the calendar this client reads.
func (c *CalendarClient) CalendarID() string {
	return c.calendarID
}

// ListEvents fetches the events in [timeMin, timeMax) with recurring events
// expanded into single instances, ordered by start time.
func (c *CalendarClient) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error) {
	var items []*calendar.Event
	call := c.srv.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize)

	err := call.Pages(ctx, func(page *calendar.Events) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}

	logger.Debug("fetched events", "calendar", c.calendarID, "count", len(items),
		"time_min", timeMin.Format(time.RFC3339), "time_max", timeMax.Format(time.RFC3339))
	return events.FromAPIList(items), nil
}

// Palette fetches the account's event colorId -> background hex table.
func (c *CalendarClient) Palette(ctx context.Context) (colors.Palette, error) {
	res, err := c.srv.Colors.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve color palette: %w", err)
	}
	return paletteFromAPI(res), nil
}

func paletteFromAPI(res *calendar.Colors) colors.Palette {
	p := make(colors.Palette, len(res.Event))
	for id, def := range res.Event {
		p[id] = colors.NormalizeHex(def.Background)
	}
	return p
}
