package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/harrisonrobin/calstats/pkg/auth"
	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/render"
	"github.com/harrisonrobin/calstats/pkg/util"
)

// PaletteCmd prints the calendar's colors and the task each one maps to.
type PaletteCmd struct {
	Calendar string `help:"Calendar name or id (overrides config)."`
	Refresh  bool   `help:"Fetch the palette again instead of using the cache."`
	Offline  bool   `help:"Do not contact Google; use the cached or default palette."`
}

func (cmd *PaletteCmd) Run(c *Context) error {
	var palette colors.Palette
	if cmd.Offline {
		palette = c.OfflinePalette(cmd.Calendar)
	} else {
		var err error
		if palette, err = c.Palette(c.context(), cmd.Calendar, nil, cmd.Refresh); err != nil {
			return err
		}
	}

	mapping, err := c.Mapping()
	if err != nil {
		return err
	}
	names := colors.GoogleNames()
	resolver := colors.NewResolver(names, mapping.Mapping())

	t := newTable("ID", "Hex", "Color", "Task")
	for _, id := range palette.IDs() {
		hex := palette[id]
		name, _ := names.Name(hex)
		task, _ := resolver.TaskForHex(hex)
		t.Row(id, hex, name, task)
	}
	fmt.Fprintln(c.out(), t.String())
	return nil
}

// HistoryCmd browses saved reports.
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" help:"List saved reports." default:"1"`
	Show   HistoryShowCmd   `cmd:"" help:"Print a saved report."`
	Delete HistoryDeleteCmd `cmd:"" help:"Delete a saved report."`
}

type HistoryListCmd struct {
	Limit int `help:"Show at most this many runs (0 for all)." default:"20"`
}

func (cmd *HistoryListCmd) Run(c *Context) error {
	store, err := c.History()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(c.context(), cmd.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.out(), "No saved reports. Use 'calstats report --save' to keep one.")
		return nil
	}

	t := newTable("ID", "Saved", "From", "To", "Window", "Source")
	for _, r := range runs {
		t.Row(r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.RangeStart.Format(util.DateLayout),
			r.RangeEnd.Format(util.DateLayout),
			strconv.Itoa(r.WindowDays)+"d",
			r.Source)
	}
	fmt.Fprintln(c.out(), t.String())
	return nil
}

type HistoryShowCmd struct {
	ID    string `arg:"" help:"Run id."`
	JSON  bool   `help:"Print as JSON." name:"json"`
	Table bool   `help:"Print a table with totals and event counts."`
}

func (cmd *HistoryShowCmd) Run(c *Context) error {
	store, err := c.History()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(c.context(), cmd.ID)
	if err != nil {
		return err
	}
	switch {
	case cmd.JSON:
		return render.JSON(c.out(), run.View())
	case cmd.Table:
		return render.Table(c.out(), run.View())
	default:
		return render.Text(c.out(), run.View())
	}
}

type HistoryDeleteCmd struct {
	ID string `arg:"" help:"Run id."`
}

func (cmd *HistoryDeleteCmd) Run(c *Context) error {
	store, err := c.History()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRun(c.context(), cmd.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.out(), "Deleted %s\n", cmd.ID)
	return nil
}

// AuthCmd discards the stored token and runs the authorization flow again.
type AuthCmd struct{}

func (cmd *AuthCmd) Run(c *Context) error {
	store, err := c.TokenStore()
	if err != nil {
		return err
	}
	logger.Info("removing stored token", "store", store.String())
	if err := store.Delete(); err != nil {
		return fmt.Errorf("%w. Please delete it manually", err)
	}

	oauthConfig, err := auth.GetConfig(c.Dir, auth.Scopes)
	if err != nil {
		return err
	}
	if _, err := auth.GetClient(c.context(), oauthConfig, store); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Fprintf(c.out(), "Authentication successful! Token saved to %s\n", store.String())
	return nil
}

// CalendarCmd shows or changes the default calendar.
type CalendarCmd struct {
	Show CalendarShowCmd `cmd:"" help:"Print the default calendar." default:"1"`
	Set  CalendarSetCmd  `cmd:"" help:"Set the default calendar."`
}

type CalendarShowCmd struct{}

func (cmd *CalendarShowCmd) Run(c *Context) error {
	fmt.Fprintln(c.out(), c.Config.Calendar)
	return nil
}

type CalendarSetCmd struct {
	Name string `arg:"" help:"Calendar name (as shown in Google Calendar) or id."`
}

func (cmd *CalendarSetCmd) Run(c *Context) error {
	if cmd.Name == "" {
		return errors.New("calendar name cannot be empty")
	}
	c.Config.Calendar = cmd.Name
	if err := c.SaveConfig(); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	fmt.Fprintf(c.out(), "Default calendar set to: %s\n", cmd.Name)
	return nil
}
