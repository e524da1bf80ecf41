package model

// Event is a single calendar event as handed over by an event source.
// Start and End hold the provider's timestamp-with-timezone text; an empty
// value means the timestamp is missing (all-day events only carry a date).
type Event struct {
	ID      string `json:"id,omitempty"`
	Summary string `json:"summary"`
	ColorID string `json:"colorId,omitempty"` // empty when the event uses the calendar's default color
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// HasColor reports whether the event carries an explicit colorId.
func (e Event) HasColor() bool {
	return e.ColorID != ""
}
