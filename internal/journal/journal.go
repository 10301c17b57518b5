// Package journal keeps a local record of submitted jobs and their outcome.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autogenjobs/autogen/internal/model"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyFinished = errors.New("already finished")
)

type Entry struct {
	JobID       string
	CreatedAt   string
	Commands    int
	Status      model.Status
	Message     *string
	SubmittedAt time.Time
	FinishedAt  *time.Time
}

func (e Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "job_id: %q, status: %s, commands: %d, submitted_at: %s",
		e.JobID, e.Status, e.Commands, model.FormatTime(e.SubmittedAt))
	if e.FinishedAt != nil {
		fmt.Fprintf(&sb, ", finished_at: %s", model.FormatTime(*e.FinishedAt))
	}
	if e.Message != nil {
		fmt.Fprintf(&sb, ", message: %q", *e.Message)
	}
	return sb.String()
}

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func Open(ctx context.Context, dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer at a time, concurrent waits finish jobs in parallel
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			commands INTEGER NOT NULL,
			status TEXT NOT NULL,
			message TEXT DEFAULT NULL,
			submitted_at TEXT NOT NULL,
			finished_at TEXT DEFAULT NULL
		)`,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// WithClock replaces the source of submitted_at and finished_at times.
// This method exists for a unit testing only.
func (j *Journal) WithClock(now func() time.Time) *Journal {
	j.now = now
	return j
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Submitted records a job that has just been placed into the inbox.
func (j *Journal) Submitted(ctx context.Context, env model.Envelope) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, created_at, commands, status, submitted_at) VALUES (?,?,?,?,?);`,
		env.JobID, env.CreatedAtUTC, len(env.Commands), string(model.StatusPending), model.FormatTime(j.now()),
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	return nil
}

// Finished stores the outcome of a wait. A TIMEOUT may later be replaced by
// the terminal status, a terminal status is final and ErrAlreadyFinished is
// returned for any further update.
func (j *Journal) Finished(ctx context.Context, r model.Result) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(ctx context.Context, jobID string) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.", slog.String("jobId", jobID))
		}
	}(ctx, r.JobID)

	var status string
	row := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id=?`, r.JobID)
	switch err := row.Scan(&status); {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("executing sql query failed: %w", err)
	case model.Status(status).Terminal():
		return ErrAlreadyFinished
	}

	var message *string
	if r.Message != "" {
		message = &r.Message
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET status=?, message=?, finished_at=? WHERE job_id=?;`,
		string(r.Status), message, model.FormatTime(j.now()), r.JobID,
	)
	if err != nil {
		return fmt.Errorf("executing sql update failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

// Get returns the entry of jobID or ErrNotFound.
func (j *Journal) Get(ctx context.Context, jobID string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectEntry+` WHERE job_id=?`, jobID)
	e, err := scan(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, ErrNotFound
	case err != nil:
		return Entry{}, fmt.Errorf("executing sql query failed: %w", err)
	}
	return e, nil
}

// List returns at most limit entries, the most recently submitted first.
// A limit <= 0 returns all of them.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		selectEntry+` ORDER BY submitted_at DESC, job_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row failed: %w", err)
		}
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

const selectEntry = `SELECT job_id, created_at, commands, status, message, submitted_at, finished_at FROM jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Entry, error) {
	var e Entry
	var status, submitted string
	var finished *string
	if err := s.Scan(&e.JobID, &e.CreatedAt, &e.Commands, &status, &e.Message, &submitted, &finished); err != nil {
		return Entry{}, err
	}
	e.Status = model.Status(status)

	t, err := time.Parse(model.TimeLayout, submitted)
	if err != nil {
		return Entry{}, fmt.Errorf("submitted_at of %s: %w", e.JobID, err)
	}
	e.SubmittedAt = t
	if finished != nil {
		t, err := time.Parse(model.TimeLayout, *finished)
		if err != nil {
			return Entry{}, fmt.Errorf("finished_at of %s: %w", e.JobID, err)
		}
		e.FinishedAt = &t
	}
	return e, nil
}
