package google

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// PrimaryCalendar is the alias the API accepts for the user's main calendar.
const PrimaryCalendar = "primary"

// NewClient creates a Google Calendar client for the calendar whose summary
// (or id) is calendarName, using an already-authorized HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, calendarName string) (*CalendarClient, error) {
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	calendarID, err := findCalendarID(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID), nil
}

func findCalendarID(ctx context.Context, srv *calendar.Service, calendarName string) (string, error) {
	if calendarName == "" || calendarName == PrimaryCalendar {
		return PrimaryCalendar, nil
	}

	var calendarID string
	err := srv.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			if item.Summary == calendarName || item.Id == calendarName {
				calendarID = item.Id
				break
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	if calendarID == "" {
		return "", fmt.Errorf("calendar '%s' not found", calendarName)
	}
	return calendarID, nil
}
