package colors

import "strings"

// TaskMapping assigns tasks to colors, either by background hex or by color
// name. Hex entries win over name entries.
type TaskMapping struct {
	ByHex  map[string]string `json:"by_hex,omitempty"`
	ByName map[string]string `json:"by_name,omitempty"`
}

// ColorIDToTask is the derived colorId -> task lookup used by the report engine.
type ColorIDToTask map[string]string

// Resolver composes a palette with a user task mapping. It holds copies of
// its inputs and never mutates them, so one Resolver can serve many palettes.
type Resolver struct {
	names  Names
	byHex  map[string]string
	byName map[string]string
}

// NewResolver builds a Resolver over the given color names and task mapping.
func NewResolver(names Names, tasks TaskMapping) *Resolver {
	r := &Resolver{
		names:  make(Names, len(names)),
		byHex:  make(map[string]string, len(tasks.ByHex)),
		byName: make(map[string]string, len(tasks.ByName)),
	}
	for hex, name := range names {
		r.names[NormalizeHex(hex)] = name
	}
	for hex, task := range tasks.ByHex {
		r.byHex[NormalizeHex(hex)] = task
	}
	for name, task := range tasks.ByName {
		r.byName[strings.ToLower(strings.TrimSpace(name))] = task
	}
	return r
}

// Resolve maps every colorId of p to a task. ColorIds whose hex has no task
// are left out; events using them end up uncategorized.
func (r *Resolver) Resolve(p Palette) ColorIDToTask {
	out := make(ColorIDToTask, len(p))
	for id, hex := range p {
		if task, ok := r.TaskForHex(hex); ok {
			out[id] = task
		}
	}
	return out
}

// TaskForHex looks hex up directly, then through its color name.
func (r *Resolver) TaskForHex(hex string) (string, bool) {
	hex = NormalizeHex(hex)
	if task, ok := r.byHex[hex]; ok && task != "" {
		return task, true
	}
	name, ok := r.names[hex]
	if !ok {
		return "", false
	}
	task, ok := r.byName[strings.ToLower(name)]
	if !ok || task == "" {
		return "", false
	}
	return task, true
}
