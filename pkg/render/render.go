package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/harrisonrobin/calstats/pkg/report"
	"github.com/harrisonrobin/calstats/pkg/util"
)

// UncategorizedLabel prefixes events that were not attributed to a task.
const UncategorizedLabel = "[Uncategorized Task]"

var (
	headerStyle = lipgloss.NewStyle().Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	headerCellStyle = cellStyle.
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// Row is one task line.
type Row struct {
	Task         string
	Total        time.Duration
	AverageHours float64
	Events       int
}

// Skipped is one uncategorized event.
type Skipped struct {
	EventID  string
	Summary  string
	Reason   string
	Duration time.Duration
}

// View is everything needed to present a report, fresh or from history.
type View struct {
	From       time.Time
	To         time.Time
	WindowDays int
	Windows    float64
	Source     string

	Rows          []Row
	Uncategorized []Skipped
}

// FromReport builds a View from an aggregated report.
func FromReport(from, to time.Time, windowDays int, source string, r *report.Report) View {
	v := View{
		From:       from,
		To:         to,
		WindowDays: windowDays,
		Windows:    r.Windows,
		Source:     source,
	}
	for _, name := range r.TaskNames() {
		e := r.Tasks[name]
		v.Rows = append(v.Rows, Row{
			Task:         name,
			Total:        e.Total,
			AverageHours: e.AverageHours,
			Events:       len(e.Events),
		})
	}
	for _, u := range r.Uncategorized {
		v.Uncategorized = append(v.Uncategorized, Skipped{
			EventID:  u.EventID,
			Summary:  u.Summary,
			Reason:   u.Reason.String(),
			Duration: u.Duration,
		})
	}
	return v
}

// Header is the banner printed above the task lines.
func (v View) Header() string {
	return fmt.Sprintf("---------- %d day average from %s to %s ------------",
		v.WindowDays, v.From.Format(util.DateLayout), v.To.Format(util.DateLayout))
}

// Text writes the report as plain lines: the uncategorized events, the
// header and one "task : hours" line per task.
func Text(w io.Writer, v View) error {
	var b strings.Builder
	for _, u := range v.Uncategorized {
		summary := u.Summary
		if summary == "" {
			summary = "(no title)"
		}
		b.WriteString(warningStyle.Render(fmt.Sprintf("%s: %s (%s)", UncategorizedLabel, summary, u.Reason)))
		b.WriteString("\n")
	}
	b.WriteString(headerStyle.Render(v.Header()))
	b.WriteString("\n")
	for _, r := range v.Rows {
		fmt.Fprintf(&b, "%s : %s hours\n", r.Task, formatHours(r.AverageHours))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Table writes the report as a bordered table with totals and event counts.
func Table(w io.Writer, v View) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Task", "Total", fmt.Sprintf("Avg h / %dd", v.WindowDays), "Events").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})

	var total time.Duration
	for _, r := range v.Rows {
		total += r.Total
		t.Row(r.Task, util.FormatDuration(r.Total), formatHours(r.AverageHours), strconv.Itoa(r.Events))
	}
	if n := len(v.Uncategorized); n > 0 {
		var d time.Duration
		for _, u := range v.Uncategorized {
			d += u.Duration
		}
		t.Row(UncategorizedLabel, util.FormatDuration(d), "-", strconv.Itoa(n))
	}
	if len(v.Rows) > 0 {
		avg := 0.0
		if v.Windows > 0 {
			avg = total.Hours() / v.Windows
		}
		t.Row("Total", util.FormatDuration(total), formatHours(avg), "")
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", headerStyle.Render(v.Header()), t.String())
	return err
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

type jsonTask struct {
	Task         string  `json:"task"`
	Total        string  `json:"total"`
	TotalHours   float64 `json:"total_hours"`
	AverageHours float64 `json:"average_hours"`
	Events       int     `json:"events"`
}

type jsonSkipped struct {
	ID      string  `json:"id,omitempty"`
	Summary string  `json:"summary"`
	Reason  string  `json:"reason"`
	Hours   float64 `json:"hours"`
}

type jsonView struct {
	From               string        `json:"from"`
	To                 string        `json:"to"`
	WindowDays         int           `json:"window_days"`
	Windows            float64       `json:"windows"`
	Source             string        `json:"source,omitempty"`
	Tasks              []jsonTask    `json:"tasks"`
	Uncategorized      []jsonSkipped `json:"uncategorized"`
	TotalHours         float64       `json:"total_hours"`
	UncategorizedHours float64       `json:"uncategorized_hours"`
}

// JSON writes the report as an indented JSON document.
func JSON(w io.Writer, v View) error {
	out := jsonView{
		From:          v.From.Format(time.RFC3339),
		To:            v.To.Format(time.RFC3339),
		WindowDays:    v.WindowDays,
		Windows:       v.Windows,
		Source:        v.Source,
		Tasks:         []jsonTask{},
		Uncategorized: []jsonSkipped{},
	}
	for _, r := range v.Rows {
		out.Tasks = append(out.Tasks, jsonTask{
			Task:         r.Task,
			Total:        util.FormatDuration(r.Total),
			TotalHours:   r.Total.Hours(),
			AverageHours: r.AverageHours,
			Events:       r.Events,
		})
		out.TotalHours += r.Total.Hours()
	}
	for _, u := range v.Uncategorized {
		out.Uncategorized = append(out.Uncategorized, jsonSkipped{
			ID:      u.EventID,
			Summary: u.Summary,
			Reason:  u.Reason,
			Hours:   u.Duration.Hours(),
		})
		out.UncategorizedHours += u.Duration.Hours()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
