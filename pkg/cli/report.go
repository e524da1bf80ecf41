package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/events"
	"github.com/harrisonrobin/calstats/pkg/history"
	"github.com/harrisonrobin/calstats/pkg/ics"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/model"
	"github.com/harrisonrobin/calstats/pkg/prompt"
	"github.com/harrisonrobin/calstats/pkg/render"
	"github.com/harrisonrobin/calstats/pkg/report"
	"github.com/harrisonrobin/calstats/pkg/util"
)

// Event sources.
const (
	SourceGoogle = "google"
	SourceJSON   = "json"
	SourceICS    = "ics"
)

// ReportCmd computes per-task totals and the per-window average.
type ReportCmd struct {
	From        string `help:"Start date, inclusive (YYYY-MM-DD)."`
	To          string `help:"End date, exclusive (YYYY-MM-DD)."`
	Window      int    `help:"Days to average over. Defaults to window_days from the config."`
	Source      string `help:"Where events come from." enum:"google,json,ics" default:"google"`
	File        string `help:"Event file for the json and ics sources ('-' reads stdin)." short:"f"`
	Calendar    string `help:"Calendar name or id (overrides config)."`
	Policy      string `help:"Duration policy: count, reject-negative or reject-non-positive."`
	JSON        bool   `help:"Print the report as JSON." name:"json"`
	Table       bool   `help:"Print a table with totals and event counts."`
	Save        bool   `help:"Store the report in the history database."`
	Workers     int    `help:"Aggregate with this many goroutines." default:"1"`
	Interactive bool   `help:"Ask for the date range and window even when given as flags." short:"i"`
}

func (cmd *ReportCmd) Run(c *Context) error {
	ctx := c.context()

	loc, err := c.Config.Location()
	if err != nil {
		return err
	}
	rng, err := cmd.dateRange(c, loc)
	if err != nil {
		return err
	}
	policy := c.Config.Policy()
	if cmd.Policy != "" {
		if policy, err = report.ParsePolicy(cmd.Policy); err != nil {
			return err
		}
	}

	mapping, err := c.Mapping()
	if err != nil {
		return fmt.Errorf("failed to load task mapping: %w", err)
	}
	if !mapping.Exists() {
		if !c.Interactive {
			return errors.New("no color -> task mapping yet; run 'calstats tasks edit' or 'calstats tasks set COLOR=TASK'")
		}
		if err := editMapping(c, mapping); err != nil {
			return err
		}
	}

	evs, palette, err := cmd.load(c, rng)
	if err != nil {
		return err
	}

	resolver := colors.NewResolver(colors.GoogleNames(), mapping.Mapping())
	rc := report.Config{
		RangeStart:    rng.From,
		RangeEnd:      rng.To,
		WindowDays:    rng.WindowDays,
		ColorIDToTask: resolver.Resolve(palette),
		Policy:        policy,
	}
	logger.Debug("aggregating", "events", len(evs), "tasks", len(rc.ColorIDToTask), "policy", policy)

	r, err := report.AggregateConcurrent(ctx, evs, rc.ColorIDToTask, rc.Params(), cmd.Workers)
	if err != nil {
		return err
	}
	for _, u := range r.Uncategorized {
		logger.Warn("uncategorized event", "summary", u.Summary, "reason", u.Reason)
	}

	view := render.FromReport(rng.From, rng.To, rng.WindowDays, cmd.Source, r)
	switch {
	case cmd.JSON:
		err = render.JSON(c.out(), view)
	case cmd.Table:
		err = render.Table(c.out(), view)
	default:
		err = render.Text(c.out(), view)
	}
	if err != nil {
		return err
	}

	if cmd.Save {
		store, err := c.History()
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.SaveReport(ctx, history.Meta{
			RangeStart: rng.From,
			RangeEnd:   rng.To,
			WindowDays: rng.WindowDays,
			Source:     cmd.Source,
			Calendar:   cmd.calendarName(c),
		}, r)
		if err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		logger.Info("report saved", "id", run.ID)
		if !cmd.JSON {
			fmt.Fprintf(c.out(), "Saved as %s\n", run.ID)
		}
	}
	return nil
}

func (cmd *ReportCmd) calendarName(c *Context) string {
	if cmd.Source != SourceGoogle {
		return ""
	}
	if cmd.Calendar != "" {
		return cmd.Calendar
	}
	return c.Config.Calendar
}

// dateRange takes the range from flags, prompting for what is missing when
// a terminal is attached.
func (cmd *ReportCmd) dateRange(c *Context, loc *time.Location) (prompt.Range, error) {
	window := cmd.Window
	if window == 0 {
		window = c.Config.WindowDays
	}
	fm := prompt.RangeFormModel{From: cmd.From, To: cmd.To, WindowDays: strconv.Itoa(window)}

	if cmd.Interactive || cmd.From == "" || cmd.To == "" {
		if !c.Interactive {
			return prompt.Range{}, errors.New("--from and --to are required when not running in a terminal")
		}
		if err := prompt.NewRangeForm(&fm).Run(); err != nil {
			return prompt.Range{}, err
		}
	}
	rng, err := fm.Parse(loc)
	if err != nil {
		return prompt.Range{}, err
	}
	return rng, nil
}

// load reads events and the palette their colorIds refer to.
func (cmd *ReportCmd) load(c *Context, rng prompt.Range) ([]model.Event, colors.Palette, error) {
	ctx := c.context()

	switch cmd.Source {
	case SourceJSON:
		if cmd.File == "" {
			return nil, nil, errors.New("--file is required for the json source")
		}
		var evs []model.Event
		var err error
		if cmd.File == "-" {
			evs, err = events.Parse(stdin)
		} else {
			evs, err = events.ParseFile(cmd.File)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read events: %w", err)
		}
		inRange := events.InRange(evs, rng.From, rng.To)
		if n := len(evs) - len(inRange); n > 0 {
			logger.Debug("dropped events outside the range", "count", n)
		}
		return inRange, c.OfflinePalette(cmd.Calendar), nil

	case SourceICS:
		if cmd.File == "" {
			return nil, nil, errors.New("--file is required for the ics source")
		}
		palette := c.OfflinePalette(cmd.Calendar)
		opts := ics.Options{
			RangeStart: rng.From,
			RangeEnd:   rng.To,
			Palette:    palette,
			Names:      colors.GoogleNames(),
		}
		var evs []model.Event
		var err error
		if cmd.File == "-" {
			evs, err = ics.Load(stdin, opts)
		} else {
			evs, err = ics.LoadFile(cmd.File, opts)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read events: %w", err)
		}
		return evs, palette, nil

	default:
		src, err := c.Calendar(ctx, cmd.Calendar)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("fetching events", "calendar", src.CalendarID(),
			"from", rng.From.Format(util.DateLayout), "to", rng.To.Format(util.DateLayout))
		evs, err := src.ListEvents(ctx, rng.From, rng.To)
		if err != nil {
			return nil, nil, err
		}
		palette, err := c.Palette(ctx, cmd.Calendar, src, false)
		if err != nil {
			return nil, nil, err
		}
		return evs, palette, nil
	}
}
