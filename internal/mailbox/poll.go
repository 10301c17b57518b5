package mailbox

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/autogenjobs/autogen/internal/model"
)

const DefaultPollInterval = 500 * time.Millisecond

// ResultSource provides the raw result document of a job.
type ResultSource interface {
	ReadResult(jobID string) ([]byte, error)
}

// Poller waits for the executor to finish a job.
type Poller struct {
	Source ResultSource
	// Interval between two reads of the result, DefaultPollInterval when <= 0.
	Interval time.Duration
}

// Wait polls until the result of jobID reaches a terminal status or timeout
// elapses. Missing, unreadable and malformed results are not errors, the
// executor may not have written them completely yet. Wait returns a TIMEOUT
// result no sooner than timeout and no later than timeout plus one interval.
//
// A canceled ctx ends the wait with a TIMEOUT result and the cause of the
// cancellation.
func (p Poller) Wait(ctx context.Context, jobID string, timeout time.Duration) (model.Result, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return model.TimeoutResult(jobID, timeout), context.Cause(ctx)
		}

		if r, ok := p.check(ctx, jobID, attempt); ok {
			return r, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			slog.DebugContext(ctx, "job timed out", "jobId", jobID, "timeout", timeout, "attempts", attempt)
			return model.TimeoutResult(jobID, timeout), nil
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.TimeoutResult(jobID, timeout), context.Cause(ctx)
		case <-timer.C:
		}
	}
}

func (p Poller) check(ctx context.Context, jobID string, attempt int) (model.Result, bool) {
	data, err := p.Source.ReadResult(jobID)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "reading result failed", "jobId", jobID, "attempt", attempt, "err", err)
		}
		return model.Result{}, false
	}

	r, err := model.ParseResult(data)
	if err != nil {
		// the executor might be writing the file right now
		slog.DebugContext(ctx, "result not parseable yet", "jobId", jobID, "attempt", attempt, "err", err)
		return model.Result{}, false
	}
	if !r.Status.Terminal() {
		slog.DebugContext(ctx, "job not finished", "jobId", jobID, "status", r.Status)
		return model.Result{}, false
	}
	if r.JobID == "" {
		r.JobID = jobID
	}
	return r, true
}
