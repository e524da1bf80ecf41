package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/calstats/pkg/colors"
)

func TestPaletteCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c, err := NewPaletteCache(dir)
	require.NoError(t, err)
	_, ok := c.Get("primary")
	assert.False(t, ok)

	c.Set("primary", colors.DefaultPalette())
	require.NoError(t, c.Save())

	reloaded, err := NewPaletteCache(dir)
	require.NoError(t, err)
	got, ok := reloaded.Get("primary")
	require.True(t, ok)
	assert.Equal(t, colors.DefaultPalette(), got)

	got["1"] = "#000000"
	again, _ := reloaded.Get("primary")
	assert.Equal(t, "#a4bdfc", again["1"])
}

func TestPaletteCacheExpiry(t *testing.T) {
	c, err := NewPaletteCache(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("primary", colors.DefaultPalette())

	now = now.Add(DefaultMaxAge + time.Hour)
	_, ok := c.Get("primary")
	assert.False(t, ok)

	c.MaxAge = 0
	_, ok = c.Get("primary")
	assert.True(t, ok)
}

func TestPaletteCacheRemove(t *testing.T) {
	c, err := NewPaletteCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Save())
	c.Set("primary", colors.DefaultPalette())
	c.Remove("primary")
	_, ok := c.Get("primary")
	assert.False(t, ok)
	require.NoError(t, c.Save())
}
