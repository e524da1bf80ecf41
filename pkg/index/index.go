package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrisonrobin/calstats/pkg/colors"
)

const cacheFile = "palette.json"

// DefaultMaxAge is how long a fetched palette is trusted.
const DefaultMaxAge = 30 * 24 * time.Hour

type entry struct {
	Palette   colors.Palette `json:"palette"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// PaletteCache keeps the last palette fetched per calendar so reports do not
// hit the colors endpoint on every run.
type PaletteCache struct {
	Entries map[string]entry `json:"entries"`
	Path    string           `json:"-"`
	MaxAge  time.Duration    `json:"-"`
	now     func() time.Time
	mu      sync.RWMutex
	dirty   bool
}

// NewPaletteCache opens the cache stored in dir, if any.
func NewPaletteCache(dir string) (*PaletteCache, error) {
	c := &PaletteCache{
		Entries: make(map[string]entry),
		Path:    filepath.Join(dir, cacheFile),
		MaxAge:  DefaultMaxAge,
		now:     time.Now,
	}

	if _, err := os.Stat(c.Path); err == nil {
		if err := c.Load(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *PaletteCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries := make(map[string]entry)
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return err
	}
	c.mu.Lock()
	c.Entries = entries
	c.mu.Unlock()
	return nil
}

func (c *PaletteCache) Save() error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(c.Entries); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Get returns the cached palette for key if it is younger than MaxAge.
// The returned palette is a copy.
func (c *PaletteCache) Get(key string) (colors.Palette, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.Entries[key]
	if !ok || len(e.Palette) == 0 {
		return nil, false
	}
	if c.MaxAge > 0 && c.now().Sub(e.FetchedAt) > c.MaxAge {
		return nil, false
	}
	out := make(colors.Palette, len(e.Palette))
	for id, hex := range e.Palette {
		out[id] = hex
	}
	return out, true
}

func (c *PaletteCache) Set(key string, p colors.Palette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make(colors.Palette, len(p))
	for id, hex := range p {
		stored[id] = hex
	}
	c.Entries[key] = entry{Palette: stored, FetchedAt: c.now()}
	c.dirty = true
}

func (c *PaletteCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.Entries[key]; exists {
		delete(c.Entries, key)
		c.dirty = true
	}
}
