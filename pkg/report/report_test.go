package report

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
	"github.com/harrisonrobin/calstats/pkg/util"
)

var weekly = Params{RangeSpan: util.Days(7), WindowSize: util.Days(7)}

func lecture(colorID string) model.Event {
	return model.Event{
		Summary: "Lecture",
		ColorID: colorID,
		Start:   "2020-03-13T09:00-07:00",
		End:     "2020-03-13T10:00-07:00",
	}
}

func event(summary, colorID string, startHour, minutes int) model.Event {
	start := time.Date(2020, 3, 13, startHour, 0, 0, 0, time.FixedZone("", -7*3600))
	end := start.Add(time.Duration(minutes) * time.Minute)
	return model.Event{
		Summary: summary,
		ColorID: colorID,
		Start:   start.Format(time.RFC3339),
		End:     end.Format(time.RFC3339),
	}
}

func TestAggregateSingleLecture(t *testing.T) {
	r, err := Aggregate([]model.Event{lecture("1")}, colors.ColorIDToTask{"1": "CS188"}, weekly)
	require.NoError(t, err)

	require.Len(t, r.Tasks, 1)
	entry := r.Tasks["CS188"]
	require.NotNil(t, entry)
	assert.Equal(t, time.Hour, entry.Total)
	assert.Equal(t, 1.0, entry.AverageHours)
	assert.Equal(t, []Contribution{{Summary: "Lecture", Duration: time.Hour}}, entry.Events)
	assert.Empty(t, r.Uncategorized)
}

func TestAggregateMissingColor(t *testing.T) {
	r, err := Aggregate([]model.Event{lecture("")}, colors.ColorIDToTask{"1": "CS188"}, weekly)
	require.NoError(t, err)

	assert.Empty(t, r.Tasks)
	assert.Equal(t, []string{"Lecture"}, r.UncategorizedSummaries())
	assert.Equal(t, ReasonMissingColor, r.Uncategorized[0].Reason)
}

func TestAggregateAverageUsesRangeNotEventCount(t *testing.T) {
	events := []model.Event{
		event("Lecture", "1", 9, 60),
		event("Discussion", "1", 13, 120),
	}
	m := colors.ColorIDToTask{"1": "CS188"}

	r, err := Aggregate(events, m, weekly)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, r.Tasks["CS188"].Total)
	assert.Equal(t, 3.0, r.Tasks["CS188"].AverageHours)

	r, err = Aggregate(events, m, Params{RangeSpan: util.Days(14), WindowSize: util.Days(14)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Windows)
	assert.Equal(t, 3.0, r.Tasks["CS188"].AverageHours)
}

func TestAggregateFractionalWindows(t *testing.T) {
	events := []model.Event{event("Lab", "2", 9, 300)}
	r, err := Aggregate(events, colors.ColorIDToTask{"2": "CHEM120A"}, Params{
		RangeSpan:  util.Days(10),
		WindowSize: util.Days(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 2.5, r.Windows)
	assert.InDelta(t, 2.0, r.Tasks["CHEM120A"].AverageHours, 1e-12)
}

func TestAggregateAverageScalesWithWindow(t *testing.T) {
	events := []model.Event{event("Lecture", "1", 9, 240)}
	m := colors.ColorIDToTask{"1": "CS188"}

	full, err := Aggregate(events, m, Params{RangeSpan: util.Days(28), WindowSize: util.Days(14)})
	require.NoError(t, err)
	half, err := Aggregate(events, m, Params{RangeSpan: util.Days(28), WindowSize: util.Days(7)})
	require.NoError(t, err)

	assert.Equal(t, 2*full.Windows, half.Windows)
	assert.InDelta(t, full.Tasks["CS188"].AverageHours/2, half.Tasks["CS188"].AverageHours, 1e-12)
}

func TestAggregateInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   error
	}{
		{"zero window", Params{RangeSpan: util.Days(7)}, ErrInvalidWindow},
		{"negative window", Params{RangeSpan: util.Days(7), WindowSize: -time.Hour}, ErrInvalidWindow},
		{"zero range", Params{WindowSize: util.Days(7)}, ErrInvalidRange},
		{"inverted range", Params{RangeSpan: -util.Days(1), WindowSize: util.Days(7)}, ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Aggregate([]model.Event{lecture("1")}, colors.ColorIDToTask{"1": "CS188"}, tt.params)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, r)
		})
	}
}

func TestAggregateEmptyEventList(t *testing.T) {
	r, err := Aggregate(nil, colors.ColorIDToTask{"1": "CS188"}, weekly)
	require.NoError(t, err)
	assert.Empty(t, r.Tasks)
	assert.Empty(t, r.Uncategorized)
}

func TestAggregateUncategorizedReasons(t *testing.T) {
	m := colors.ColorIDToTask{"1": "CS188"}
	events := []model.Event{
		{Summary: "no color", Start: "2020-03-13T09:00:00Z", End: "2020-03-13T10:00:00Z"},
		{Summary: "unmapped", ColorID: "7", Start: "2020-03-13T09:00:00Z", End: "2020-03-13T10:00:00Z"},
		{Summary: "all day", ColorID: "1"},
		{Summary: "garbage", ColorID: "1", Start: "soon", End: "2020-03-13T10:00:00Z"},
		lecture("1"),
	}

	r, err := Aggregate(events, m, weekly)
	require.NoError(t, err)

	require.Len(t, r.Uncategorized, 4)
	assert.Equal(t, ReasonMissingColor, r.Uncategorized[0].Reason)
	assert.Equal(t, ReasonUnmappedColor, r.Uncategorized[1].Reason)
	assert.Equal(t, ReasonMissingTimestamp, r.Uncategorized[2].Reason)
	assert.Equal(t, ReasonBadTimestamp, r.Uncategorized[3].Reason)
	assert.Equal(t, time.Hour, r.Uncategorized[1].Duration)
	assert.Zero(t, r.Uncategorized[3].Duration)

	assert.Equal(t, time.Hour, r.Tasks["CS188"].Total)
}

func TestDurationPolicies(t *testing.T) {
	m := colors.ColorIDToTask{"1": "CS188"}
	inverted := model.Event{Summary: "inverted", ColorID: "1", Start: "2020-03-13T10:00:00Z", End: "2020-03-13T09:00:00Z"}
	empty := model.Event{Summary: "empty", ColorID: "1", Start: "2020-03-13T10:00:00Z", End: "2020-03-13T10:00:00Z"}
	normal := event("normal", "1", 9, 120)
	events := []model.Event{inverted, empty, normal}

	tests := []struct {
		policy        DurationPolicy
		wantTotal     time.Duration
		wantEvents    int
		wantReasons   []Reason
		wantUncatTime time.Duration
	}{
		{CountAll, time.Hour, 3, nil, 0},
		{RejectNegative, 2 * time.Hour, 2, []Reason{ReasonNegativeDuration}, -time.Hour},
		{RejectNonPositive, 2 * time.Hour, 1, []Reason{ReasonNegativeDuration, ReasonZeroDuration}, -time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			p := weekly
			p.Policy = tt.policy
			r, err := Aggregate(events, m, p)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, r.Tasks["CS188"].Total)
			assert.Len(t, r.Tasks["CS188"].Events, tt.wantEvents)
			var reasons []Reason
			for _, u := range r.Uncategorized {
				reasons = append(reasons, u.Reason)
			}
			assert.Equal(t, tt.wantReasons, reasons)
			assert.Equal(t, tt.wantUncatTime, r.UncategorizedTotal())
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, CountAll, p)

	p, err = ParsePolicy("Reject-Negative")
	require.NoError(t, err)
	assert.Equal(t, RejectNegative, p)

	_, err = ParsePolicy("drop")
	assert.Error(t, err)
}

// randomEvents builds a mix of categorized, unmapped and malformed events.
func randomEvents(rng *rand.Rand, n int) []model.Event {
	base := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	colorIDs := []string{"", "1", "2", "3", "9", "11"}
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		start := base.Add(time.Duration(rng.Intn(14*24*60)) * time.Minute)
		end := start.Add(time.Duration(rng.Intn(240)-30) * time.Minute)
		ev := model.Event{
			ID:      fmt.Sprintf("ev-%d", i),
			Summary: fmt.Sprintf("event %d", i),
			ColorID: colorIDs[rng.Intn(len(colorIDs))],
			Start:   start.Format(time.RFC3339),
			End:     end.Format(time.RFC3339),
		}
		if rng.Intn(20) == 0 {
			ev.End = ""
		}
		events = append(events, ev)
	}
	return events
}

var mixedMapping = colors.ColorIDToTask{"1": "CS188", "2": "CHEM120A", "9": "CBE160"}

func TestAggregateConservesDuration(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	events := randomEvents(rng, 500)

	var all time.Duration
	for _, ev := range events {
		if start, err := util.ParseTimestamp(ev.Start); err == nil {
			if end, err := util.ParseTimestamp(ev.End); err == nil {
				all += end.Sub(start)
			}
		}
	}

	for _, policy := range []DurationPolicy{CountAll, RejectNegative, RejectNonPositive} {
		p := Params{RangeSpan: util.Days(14), WindowSize: util.Days(7), Policy: policy}
		r, err := Aggregate(events, mixedMapping, p)
		require.NoError(t, err)
		assert.Equal(t, all, r.Total()+r.UncategorizedTotal(), "policy %s", policy)
	}
}

func TestAggregatePermutationKeepsTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	events := randomEvents(rng, 200)
	p := Params{RangeSpan: util.Days(14), WindowSize: util.Days(7)}

	want, err := Aggregate(events, mixedMapping, p)
	require.NoError(t, err)

	shuffled := make([]model.Event, len(events))
	copy(shuffled, events)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got, err := Aggregate(shuffled, mixedMapping, p)
	require.NoError(t, err)

	require.Equal(t, want.TaskNames(), got.TaskNames())
	for _, name := range want.TaskNames() {
		assert.Equal(t, want.Tasks[name].Total, got.Tasks[name].Total)
		assert.Equal(t, want.Tasks[name].AverageHours, got.Tasks[name].AverageHours)
	}

	// Each bucket preserves input order: its events appear in the order of
	// the shuffled input.
	position := make(map[string]int, len(shuffled))
	for i, ev := range shuffled {
		position[ev.Summary] = i
	}
	for _, name := range got.TaskNames() {
		evs := got.Tasks[name].Events
		for i := 1; i < len(evs); i++ {
			assert.Less(t, position[evs[i-1].Summary], position[evs[i].Summary])
		}
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	events := randomEvents(rand.New(rand.NewSource(3)), 300)
	p := Params{RangeSpan: util.Days(10), WindowSize: util.Days(3)}

	first, err := Aggregate(events, mixedMapping, p)
	require.NoError(t, err)
	second, err := Aggregate(events, mixedMapping, p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregateConcurrentMatchesSequential(t *testing.T) {
	events := randomEvents(rand.New(rand.NewSource(11)), 5000)
	p := Params{RangeSpan: util.Days(14), WindowSize: util.Days(7), Policy: RejectNegative}

	want, err := Aggregate(events, mixedMapping, p)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 3, 8} {
		got, err := AggregateConcurrent(context.Background(), events, mixedMapping, p, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestAggregateConcurrentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AggregateConcurrent(ctx, randomEvents(rand.New(rand.NewSource(1)), 10), mixedMapping, weekly, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeRejectsInvalidParams(t *testing.T) {
	_, err := Merge(Params{RangeSpan: util.Days(1)})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestConfigRun(t *testing.T) {
	loc := time.FixedZone("PDT", -7*3600)
	cfg := Config{
		RangeStart:    time.Date(2020, 3, 13, 0, 0, 0, 0, loc),
		RangeEnd:      time.Date(2020, 3, 20, 0, 0, 0, 0, loc),
		WindowDays:    7,
		ColorIDToTask: colors.ColorIDToTask{"1": "CS188"},
	}
	assert.Equal(t, util.Days(7), cfg.Params().RangeSpan)

	r, err := cfg.Run([]model.Event{lecture("1")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Tasks["CS188"].AverageHours)

	cfg.WindowDays = 0
	_, err = cfg.Run(nil)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestConfigParamsAcrossDST(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	cfg := Config{
		RangeStart:    time.Date(2020, 3, 6, 0, 0, 0, 0, la),
		RangeEnd:      time.Date(2020, 3, 13, 0, 0, 0, 0, la),
		WindowDays:    7,
		ColorIDToTask: colors.ColorIDToTask{"1": "CS188"},
	}
	p := cfg.Params()
	assert.Equal(t, util.Days(7), p.RangeSpan)
	assert.Equal(t, 1.0, p.Windows())

	ev := model.Event{ID: "1", Summary: "Lab", ColorID: "1", Start: "2020-03-10T09:00:00-07:00", End: "2020-03-10T16:00:00-07:00"}
	r, err := cfg.Run([]model.Event{ev})
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.Tasks["CS188"].AverageHours)
}
