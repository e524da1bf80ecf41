package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/harrisonrobin/calstats/pkg/cli"
	"github.com/harrisonrobin/calstats/pkg/config"
	"github.com/harrisonrobin/calstats/pkg/logger"
)

var version = "v0.1.0"

// CLI is the calstats command tree.
type CLI struct {
	Version kong.VersionFlag `help:"Print the version and exit."`
	Config  string           `help:"Config file path. Credentials, caches and logs live next to it." placeholder:"PATH"`
	Debug   bool             `help:"Log debug output to stderr."`

	Report   cli.ReportCmd   `cmd:"" help:"Report hours per task and the per-window average." default:"withargs"`
	Auth     cli.AuthCmd     `cmd:"" help:"Authenticate with Google Calendar."`
	Tasks    cli.TasksCmd    `cmd:"" help:"Manage the color -> task mapping."`
	Palette  cli.PaletteCmd  `cmd:"" help:"Show calendar colors and their tasks."`
	History  cli.HistoryCmd  `cmd:"" help:"Browse saved reports."`
	Calendar cli.CalendarCmd `cmd:"" help:"Show or set the default calendar."`
}

func newParser(c *CLI) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("calstats"),
		kong.Description("Hours per task from Google Calendar event colors"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)
}

func main() {
	var c CLI
	parser, err := newParser(&c)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := run(kctx, &c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context, c *CLI) error {
	cfgPath := c.Config
	dir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	if cfgPath != "" {
		dir = filepath.Dir(cfgPath)
	}

	cfg, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Debug:     c.Debug || cfg.Debug,
		ConfigDir: dir,
		Stderr:    kctx.Command() == "report",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgPath == "" {
		cfgPath, _ = config.GetConfigPath()
	}
	appCtx := &cli.Context{
		Ctx:         ctx,
		Config:      cfg,
		ConfigPath:  cfgPath,
		Dir:         dir,
		Out:         os.Stdout,
		Interactive: cli.IsTerminal(os.Stdin),
	}
	return kctx.Run(appCtx)
}
