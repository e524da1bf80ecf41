package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harrisonrobin/calstats/pkg/auth"
	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/config"
	"github.com/harrisonrobin/calstats/pkg/google"
	"github.com/harrisonrobin/calstats/pkg/history"
	"github.com/harrisonrobin/calstats/pkg/index"
	"github.com/harrisonrobin/calstats/pkg/logger"
	"github.com/harrisonrobin/calstats/pkg/model"
)

// stdin is where "-" file arguments are read from.
var stdin io.Reader = os.Stdin

// CalendarSource is a calendar that can list events and its color palette.
// *google.CalendarClient implements it.
type CalendarSource interface {
	CalendarID() string
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error)
	Palette(ctx context.Context) (colors.Palette, error)
}

// Context is shared by every command.
type Context struct {
	Ctx        context.Context
	Config     *config.Config
	ConfigPath string
	Dir        string
	Out        io.Writer

	// Interactive is true when stdin is a terminal, so forms can be shown.
	Interactive bool

	// OpenCalendar connects to a calendar by name. Nil uses Google Calendar.
	OpenCalendar func(ctx context.Context, name string) (CalendarSource, error)
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// SaveConfig writes the current configuration back to disk.
func (c *Context) SaveConfig() error {
	return config.Save(c.Config, c.ConfigPath)
}

// TokenStore returns the configured OAuth token store.
func (c *Context) TokenStore() (auth.TokenStore, error) {
	return auth.NewTokenStore(c.Config.TokenStore, c.Dir)
}

// Calendar connects to the named calendar, or the configured one.
func (c *Context) Calendar(ctx context.Context, name string) (CalendarSource, error) {
	if name == "" {
		name = c.Config.Calendar
	}
	if c.OpenCalendar != nil {
		return c.OpenCalendar(ctx, name)
	}

	oauthConfig, err := auth.GetConfig(c.Dir, auth.Scopes)
	if err != nil {
		return nil, err
	}
	store, err := c.TokenStore()
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.GetClient(ctx, oauthConfig, store)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	client, err := google.NewClient(ctx, httpClient, name)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Mapping opens the color -> task mapping file.
func (c *Context) Mapping() (*colors.MappingFile, error) {
	return colors.NewMappingFile(c.Dir)
}

// History opens the report history database.
func (c *Context) History() (*history.Store, error) {
	return history.Open(c.Config.HistoryPath(c.Dir))
}

// OfflinePalette returns the cached palette for a calendar without touching
// the network, falling back to Google's default palette.
func (c *Context) OfflinePalette(name string) colors.Palette {
	cache, err := index.NewPaletteCache(c.Dir)
	if err != nil {
		logger.Warn("could not open palette cache", "error", err)
		return colors.DefaultPalette()
	}
	if p, ok := cache.Get(paletteKey(name, c.Config)); ok {
		return p
	}
	return colors.DefaultPalette()
}

// Palette returns the palette for a calendar, using the cache unless refresh
// is set. src is opened on demand when nil. A failed fetch falls back to the
// default palette unless refresh was requested.
func (c *Context) Palette(ctx context.Context, name string, src CalendarSource, refresh bool) (colors.Palette, error) {
	key := paletteKey(name, c.Config)
	cache, err := index.NewPaletteCache(c.Dir)
	if err != nil {
		logger.Warn("could not open palette cache", "error", err)
	}
	if cache != nil && !refresh {
		if p, ok := cache.Get(key); ok {
			logger.Debug("palette cache hit", "calendar", key)
			return p, nil
		}
	}

	if src == nil {
		if src, err = c.Calendar(ctx, name); err != nil {
			return nil, err
		}
	}
	p, err := src.Palette(ctx)
	if err != nil {
		if refresh {
			return nil, err
		}
		logger.Warn("could not fetch palette, using the default one", "error", err)
		return colors.DefaultPalette(), nil
	}

	if cache != nil {
		cache.Set(key, p)
		if err := cache.Save(); err != nil {
			logger.Warn("failed to save palette cache", "error", err)
		}
	}
	return p, nil
}

func paletteKey(name string, cfg *config.Config) string {
	if name == "" {
		return cfg.Calendar
	}
	return name
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
