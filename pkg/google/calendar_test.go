package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
)

func newTestService(t *testing.T, mux *http.ServeMux) *calendar.Service {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(ts.Client()),
		option.WithEndpoint(ts.URL+"/"),
	)
	require.NoError(t, err)
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListEventsFollowsPages(t *testing.T) {
	mux := http.NewServeMux()
	var queries []string
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		queries = append(queries, q.Get("pageToken"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "2020-03-13T00:00:00-07:00", q.Get("timeMin"))

		if q.Get("pageToken") == "" {
			writeJSON(t, w, calendar.Events{
				Items: []*calendar.Event{{
					Id: "1", Summary: "Lecture", ColorId: "1",
					Start: &calendar.EventDateTime{DateTime: "2020-03-13T09:00:00-07:00"},
					End:   &calendar.EventDateTime{DateTime: "2020-03-13T10:00:00-07:00"},
				}},
				NextPageToken: "page-2",
			})
			return
		}
		writeJSON(t, w, calendar.Events{
			Items: []*calendar.Event{{
				Id: "2", Summary: "Holiday",
				Start: &calendar.EventDateTime{Date: "2020-03-14"},
				End:   &calendar.EventDateTime{Date: "2020-03-15"},
			}},
		})
	})

	client := NewCalendarClient(newTestService(t, mux), PrimaryCalendar)
	loc := time.FixedZone("", -7*3600)
	got, err := client.ListEvents(context.Background(),
		time.Date(2020, 3, 13, 0, 0, 0, 0, loc),
		time.Date(2020, 3, 20, 0, 0, 0, 0, loc))
	require.NoError(t, err)

	assert.Equal(t, []string{"", "page-2"}, queries)
	assert.Equal(t, []model.Event{
		{ID: "1", Summary: "Lecture", ColorID: "1", Start: "2020-03-13T09:00:00-07:00", End: "2020-03-13T10:00:00-07:00"},
		{ID: "2", Summary: "Holiday"},
	}, got)
}

func TestListEventsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	})

	client := NewCalendarClient(newTestService(t, mux), PrimaryCalendar)
	_, err := client.ListEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestPalette(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/colors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, calendar.Colors{
			Event: map[string]calendar.ColorDefinition{
				"1":  {Background: "#A4BDFC", Foreground: "#1d1d1d"},
				"11": {Background: "#dc2127", Foreground: "#1d1d1d"},
			},
		})
	})

	client := NewCalendarClient(newTestService(t, mux), PrimaryCalendar)
	got, err := client.Palette(context.Background())
	require.NoError(t, err)
	assert.Equal(t, colors.Palette{"1": "#a4bdfc", "11": "#dc2127"}, got)
}

func TestFindCalendarID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, calendar.CalendarList{
			Items: []*calendar.CalendarListEntry{
				{Id: "abc@group.calendar.google.com", Summary: "School"},
				{Id: "me@example.com", Summary: "me@example.com"},
			},
		})
	})
	srv := newTestService(t, mux)
	ctx := context.Background()

	id, err := findCalendarID(ctx, srv, "School")
	require.NoError(t, err)
	assert.Equal(t, "abc@group.calendar.google.com", id)

	id, err = findCalendarID(ctx, srv, "")
	require.NoError(t, err)
	assert.Equal(t, PrimaryCalendar, id)

	_, err = findCalendarID(ctx, srv, "Work")
	assert.ErrorContains(t, err, "not found")
}
