// Package history records render jobs in a local SQLite database so past
// exports, their settings, and their outcomes survive restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// Job is one recorded render.
type Job struct {
	ID         int64      `json:"id"`
	Dest       string     `json:"dest"`
	State      string     `json:"state"`
	Message    string     `json:"message"`
	Progress   int        `json:"progress"`
	Clips      int        `json:"clips"`
	Frames     int64      `json:"frames"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store is the render-job database. Safe for concurrent use; database/sql
// pools connections underneath.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the job database at path. The parent directory
// must exist and be writable.
func Open(ctx context.Context, path string) (*Store, error) {
	logging.Info("History database: %s", path)

	// WAL keeps readers unblocked while a render updates its row.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS render_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dest TEXT NOT NULL,
		state TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		progress INTEGER NOT NULL DEFAULT 0,
		clips INTEGER NOT NULL DEFAULT 0,
		frames INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_render_jobs_started ON render_jobs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_render_jobs_state ON render_jobs(state);
	`

	done := s.observe("initialize_schema")
	_, err := s.db.ExecContext(ctx, schema)
	done(err)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// observe instruments one query; call the returned func with the outcome.
func (s *Store) observe(op string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(op, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// Insert records a newly started job and returns its ID.
func (s *Store) Insert(ctx context.Context, j *Job) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := s.observe("insert_job")
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO render_jobs (dest, state, message, progress, clips, frames, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.Dest, j.State, j.Message, j.Progress, j.Clips, j.Frames, j.StartedAt.Unix())
	done(err)
	if err != nil {
		return 0, fmt.Errorf("inserting job: %w", err)
	}
	return res.LastInsertId()
}

// Update rewrites a job's mutable fields. A non-nil finished time marks the
// job terminal.
func (s *Store) Update(ctx context.Context, id int64, state, message string, progress int, finished *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var finishedAt sql.NullInt64
	if finished != nil {
		finishedAt = sql.NullInt64{Int64: finished.Unix(), Valid: true}
	}

	done := s.observe("update_job")
	_, err := s.db.ExecContext(ctx, `
		UPDATE render_jobs SET state = ?, message = ?, progress = ?, finished_at = ?
		WHERE id = ?`,
		state, message, progress, finishedAt, id)
	done(err)
	if err != nil {
		return fmt.Errorf("updating job %d: %w", id, err)
	}
	return nil
}

// Get returns one job, or sql.ErrNoRows wrapped when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := s.observe("get_job")
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dest, state, message, progress, clips, frames, started_at, finished_at
		FROM render_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("loading job %d: %w", id, err)
	}
	return j, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := s.observe("list_jobs")
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dest, state, message, progress, clips, frames, started_at, finished_at
		FROM render_jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			done(err)
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		j          Job
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&j.ID, &j.Dest, &j.State, &j.Message, &j.Progress,
		&j.Clips, &j.Frames, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	j.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		j.FinishedAt = &t
	}
	return &j, nil
}
