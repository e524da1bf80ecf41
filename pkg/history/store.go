package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrisonrobin/calstats/pkg/render"
	"github.com/harrisonrobin/calstats/pkg/report"
)

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("run not found")

// Meta describes how a report was produced.
type Meta struct {
	RangeStart time.Time
	RangeEnd   time.Time
	WindowDays int
	Source     string
	Calendar   string
}

// TaskTotal is one stored task line.
type TaskTotal struct {
	Task         string
	Total        time.Duration
	AverageHours float64
	EventCount   int
}

// Skipped is one stored uncategorized event.
type Skipped struct {
	EventID  string
	Summary  string
	Reason   string
	Duration time.Duration
}

// Run is a saved report snapshot.
type Run struct {
	ID        string
	CreatedAt time.Time
	Meta
	Windows       float64
	Tasks         []TaskTotal
	Uncategorized []Skipped
}

// Store keeps report snapshots in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) and migrates the database at path.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores r under a fresh id and returns the stored snapshot.
func (s *Store) SaveReport(ctx context.Context, meta Meta, r *report.Report) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC().Truncate(time.Second),
		Meta:      meta,
		Windows:   r.Windows,
	}
	for _, name := range r.TaskNames() {
		e := r.Tasks[name]
		run.Tasks = append(run.Tasks, TaskTotal{
			Task:         name,
			Total:        e.Total,
			AverageHours: e.AverageHours,
			EventCount:   len(e.Events),
		})
	}
	for _, u := range r.Uncategorized {
		run.Uncategorized = append(run.Uncategorized, Skipped{
			EventID:  u.EventID,
			Summary:  u.Summary,
			Reason:   u.Reason.String(),
			Duration: u.Duration,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, range_start, range_end, window_days, source, calendar, windows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.CreatedAt), formatTime(meta.RangeStart), formatTime(meta.RangeEnd),
		meta.WindowDays, meta.Source, meta.Calendar, run.Windows,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for _, t := range run.Tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, task, total_seconds, average_hours, event_count)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, t.Task, t.Total.Seconds(), t.AverageHours, t.EventCount,
		); err != nil {
			return nil, fmt.Errorf("insert task %q: %w", t.Task, err)
		}
	}
	for i, u := range run.Uncategorized {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_uncategorized (run_id, position, event_id, summary, reason, seconds)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, u.EventID, u.Summary, u.Reason, u.Duration.Seconds(),
		); err != nil {
			return nil, fmt.Errorf("insert uncategorized event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without their task lines.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, created_at, range_start, range_end, window_days, source, calendar, windows
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun loads a run with its task lines and uncategorized events.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, range_start, range_end, window_days, source, calendar, windows
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if run.Tasks, err = s.loadTasks(ctx, id); err != nil {
		return nil, err
	}
	if run.Uncategorized, err = s.loadSkipped(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadTasks(ctx context.Context, id string) ([]TaskTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, total_seconds, average_hours, event_count
		FROM run_tasks WHERE run_id = ? ORDER BY task`, id)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskTotal
	for rows.Next() {
		var t TaskTotal
		var secs float64
		if err := rows.Scan(&t.Task, &secs, &t.AverageHours, &t.EventCount); err != nil {
			return nil, err
		}
		t.Total = seconds(secs)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) loadSkipped(ctx context.Context, id string) ([]Skipped, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, summary, reason, seconds
		FROM run_uncategorized WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load uncategorized events: %w", err)
	}
	defer rows.Close()

	var out []Skipped
	for rows.Next() {
		var u Skipped
		var secs float64
		if err := rows.Scan(&u.EventID, &u.Summary, &u.Reason, &secs); err != nil {
			return nil, err
		}
		u.Duration = seconds(secs)
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its lines.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var created, start, end string
	if err := sc.Scan(&run.ID, &created, &start, &end, &run.WindowDays, &run.Source, &run.Calendar, &run.Windows); err != nil {
		return nil, err
	}
	var err error
	if run.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if run.RangeStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if run.RangeEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored time %q: %w", s, err)
	}
	return t, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// View converts the snapshot for rendering.
func (r *Run) View() render.View {
	v := render.View{
		From:       r.RangeStart,
		To:         r.RangeEnd,
		WindowDays: r.WindowDays,
		Windows:    r.Windows,
		Source:     r.Source,
	}
	for _, t := range r.Tasks {
		v.Rows = append(v.Rows, render.Row{Task: t.Task, Total: t.Total, AverageHours: t.AverageHours, Events: t.EventCount})
	}
	for _, u := range r.Uncategorized {
		v.Uncategorized = append(v.Uncategorized, render.Skipped(u))
	}
	return v
}
