package colors

import (
	"sort"
	"strconv"
	"strings"
)

// Palette maps a provider colorId to its background hex.
type Palette map[string]string

// Names maps a normalized background hex to a human color name.
type Names map[string]string

// DefaultPalette returns Google Calendar's event palette (colorIds 1-11).
func DefaultPalette() Palette {
	return Palette{
		"1":  "#a4bdfc",
		"2":  "#7ae7bf",
		"3":  "#dbadff",
		"4":  "#ff887c",
		"5":  "#fbd75b",
		"6":  "#ffb878",
		"7":  "#46d6db",
		"8":  "#e1e1e1",
		"9":  "#5484ed",
		"10": "#51b749",
		"11": "#dc2127",
	}
}

// GoogleNames returns the names Google Calendar shows for its event palette.
func GoogleNames() Names {
	return Names{
		"#a4bdfc": "Lavender",
		"#7ae7bf": "Sage",
		"#dbadff": "Grape",
		"#ff887c": "Flamingo",
		"#fbd75b": "Banana",
		"#ffb878": "Tangerine",
		"#46d6db": "Peacock",
		"#e1e1e1": "Graphite",
		"#5484ed": "Blueberry",
		"#51b749": "Basil",
		"#dc2127": "Tomato",
	}
}

// NormalizeHex lower-cases a hex color and ensures a leading '#'.
func NormalizeHex(hex string) string {
	hex = strings.ToLower(strings.TrimSpace(hex))
	if hex == "" {
		return ""
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return hex
}

// IDForHex returns the colorId whose background matches hex.
func (p Palette) IDForHex(hex string) (string, bool) {
	want := NormalizeHex(hex)
	if want == "" {
		return "", false
	}
	for _, id := range p.IDs() {
		if NormalizeHex(p[id]) == want {
			return id, true
		}
	}
	return "", false
}

// IDs returns the palette's colorIds in numeric order when possible.
func (p Palette) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Name returns the color name for hex, if known.
func (n Names) Name(hex string) (string, bool) {
	name, ok := n[NormalizeHex(hex)]
	return name, ok
}

// HexForName does a case-insensitive reverse lookup of a color name.
func (n Names) HexForName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for hex, candidate := range n {
		if strings.EqualFold(candidate, name) {
			return hex, true
		}
	}
	return "", false
}

// Ordered returns the color names sorted by their colorId in p, followed by
// any names p does not reference.
func (n Names) Ordered(p Palette) []string {
	seen := make(map[string]bool, len(n))
	var out []string
	for _, id := range p.IDs() {
		if name, ok := n.Name(p[id]); ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var rest []string
	for _, name := range n {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
