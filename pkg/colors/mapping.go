package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrisonrobin/calstats/pkg/logger"
)

const mappingFile = "tasks.json"

// MappingFile is the user's color -> task assignment, persisted as a flat
// JSON object. Keys are color names ("Lavender") or hex values ("#a4bdfc").
type MappingFile struct {
	Path    string
	Entries map[string]string
	dirty   bool
}

// NewMappingFile opens the mapping stored in dir, if any.
func NewMappingFile(dir string) (*MappingFile, error) {
	m := &MappingFile{
		Path:    filepath.Join(dir, mappingFile),
		Entries: make(map[string]string),
	}
	if _, err := os.Stat(m.Path); err == nil {
		if err := m.Load(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Exists reports whether the mapping has been saved before.
func (m *MappingFile) Exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

func (m *MappingFile) Load() error {
	f, err := os.Open(m.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	entries := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return err
	}
	m.Entries = entries
	return nil
}

// Save writes the mapping when it changed or was never saved.
func (m *MappingFile) Save() error {
	if !m.dirty && m.Exists() {
		return nil
	}
	dir := filepath.Dir(m.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Error("could not create task mapping directory", "dir", dir, "error", err)
		return err
	}

	f, err := os.OpenFile(m.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logger.Error("could not create task mapping file", "path", m.Path, "error", err)
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(m.Entries)
	if err == nil {
		m.dirty = false
	}
	return err
}

// Set assigns task to a color name or hex. An empty task removes the entry.
func (m *MappingFile) Set(color, task string) {
	color = strings.TrimSpace(color)
	task = strings.TrimSpace(task)
	if color == "" {
		return
	}
	if strings.HasPrefix(color, "#") {
		color = NormalizeHex(color)
	} else {
		for k := range m.Entries {
			if strings.EqualFold(k, color) {
				color = k
				break
			}
		}
	}
	if task == "" {
		if _, ok := m.Entries[color]; ok {
			delete(m.Entries, color)
			m.dirty = true
		}
		return
	}
	if m.Entries[color] != task {
		m.Entries[color] = task
		m.dirty = true
	}
}

// Get returns the task assigned to a color name or hex.
func (m *MappingFile) Get(color string) string {
	if strings.HasPrefix(strings.TrimSpace(color), "#") {
		return m.Entries[NormalizeHex(color)]
	}
	for k, v := range m.Entries {
		if strings.EqualFold(k, strings.TrimSpace(color)) {
			return v
		}
	}
	return ""
}

// Keys returns the stored color keys in sorted order.
func (m *MappingFile) Keys() []string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes the file from disk and forgets all entries.
func (m *MappingFile) Clear() error {
	m.Entries = make(map[string]string)
	m.dirty = false
	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Mapping returns an immutable TaskMapping snapshot for the Resolver.
func (m *MappingFile) Mapping() TaskMapping {
	tm := TaskMapping{
		ByHex:  make(map[string]string),
		ByName: make(map[string]string),
	}
	for k, v := range m.Entries {
		if strings.HasPrefix(k, "#") {
			tm.ByHex[NormalizeHex(k)] = v
		} else {
			tm.ByName[k] = v
		}
	}
	return tm
}
