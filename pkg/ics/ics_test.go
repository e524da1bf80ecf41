package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
)

func calendarText(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//calstats//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

var sample = calendarText(
	"BEGIN:VEVENT",
	"UID:standup",
	"SUMMARY:Standup",
	"COLOR:tomato",
	"DTSTART:20200309T170000Z",
	"DTEND:20200309T173000Z",
	"RRULE:FREQ=DAILY;COUNT=10",
	"EXDATE:20200314T170000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:holiday",
	"SUMMARY:Holiday",
	"DTSTART;VALUE=DATE:20200315",
	"DTEND;VALUE=DATE:20200316",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:lecture",
	"SUMMARY:Lecture",
	"COLOR:#A4BDFC",
	"DTSTART:20200313T160000Z",
	"DTEND:20200313T170000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:old",
	"SUMMARY:Long ago",
	"DTSTART:20200101T160000Z",
	"DTEND:20200101T170000Z",
	"END:VEVENT",
)

func TestLoadExpandsWithinRange(t *testing.T) {
	got, err := Load(strings.NewReader(sample), Options{
		RangeStart: time.Date(2020, 3, 13, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Event{
		{ID: "lecture", Summary: "Lecture", ColorID: "1", Start: "2020-03-13T16:00:00Z", End: "2020-03-13T17:00:00Z"},
		{ID: "standup_20200313T170000Z", Summary: "Standup", ColorID: "11", Start: "2020-03-13T17:00:00Z", End: "2020-03-13T17:30:00Z"},
		{ID: "standup_20200315T170000Z", Summary: "Standup", ColorID: "11", Start: "2020-03-15T17:00:00Z", End: "2020-03-15T17:30:00Z"},
		{ID: "holiday", Summary: "Holiday"},
	}, got)
}

func TestLoadWithoutRange(t *testing.T) {
	got, err := Load(strings.NewReader(sample), Options{})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"old", "standup", "lecture", "holiday"}, ids)
}

func TestLoadOverriddenOccurrence(t *testing.T) {
	text := calendarText(
		"BEGIN:VEVENT",
		"UID:gym",
		"SUMMARY:Gym",
		"COLOR:sage",
		"DTSTART:20200313T150000Z",
		"DTEND:20200313T160000Z",
		"RRULE:FREQ=DAILY;COUNT=3",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:gym",
		"SUMMARY:Gym (late)",
		"COLOR:sage",
		"RECURRENCE-ID:20200314T150000Z",
		"DTSTART:20200314T190000Z",
		"DTEND:20200314T200000Z",
		"END:VEVENT",
	)
	got, err := Load(strings.NewReader(text), Options{
		RangeStart: time.Date(2020, 3, 13, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2020, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "2020-03-13T15:00:00Z", got[0].Start)
	assert.Equal(t, "Gym (late)", got[1].Summary)
	assert.Equal(t, "2020-03-14T19:00:00Z", got[1].Start)
	assert.Equal(t, "2020-03-15T15:00:00Z", got[2].Start)
	for _, ev := range got {
		assert.Equal(t, "2", ev.ColorID)
	}
}

func TestLoadMaxOccurrences(t *testing.T) {
	text := calendarText(
		"BEGIN:VEVENT",
		"UID:ping",
		"SUMMARY:Ping",
		"DTSTART:20200301T000000Z",
		"DTEND:20200301T000500Z",
		"RRULE:FREQ=HOURLY",
		"END:VEVENT",
	)
	got, err := Load(strings.NewReader(text), Options{
		RangeStart:     time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:       time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
		MaxOccurrences: 5,
	})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestColorIDFor(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"#dc2127", "11"},
		{"DC2127", "11"},
		{"Banana", "5"},
		{"chartreuse", ""},
		{"", ""},
	}
	full := Options{Palette: colors.DefaultPalette(), Names: colors.GoogleNames()}
	for _, tc := range tests {
		assert.Equal(t, tc.want, colorIDFor(tc.value, full), tc.value)
	}
}

func TestLoadInvalidCalendar(t *testing.T) {
	_, err := Load(strings.NewReader("not a calendar"), Options{})
	assert.Error(t, err)
}
