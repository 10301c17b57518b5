package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/autogenjobs/autogen/internal/client"
	"github.com/autogenjobs/autogen/internal/journal"
	"github.com/autogenjobs/autogen/internal/log"
	"github.com/autogenjobs/autogen/internal/mailbox"
	"github.com/autogenjobs/autogen/internal/model"
	"github.com/autogenjobs/autogen/internal/parallel"

	"github.com/spf13/cobra"
)

// Autogen wires the job queue of a project with the optional journal.
type Autogen struct {
	config  model.Config
	mb      *mailbox.Mailbox
	journal *journal.Journal
	client  *client.Client
}

func NewAutogen(ctx context.Context, config model.Config) (*Autogen, error) {
	if config.Version != 0 {
		return nil, fmt.Errorf("config version %d is not supported, expected 0", config.Version)
	}
	opts, err := client.OptionsFromConfig(config)
	if err != nil {
		return nil, err
	}

	mb, err := mailbox.Open(config.JobsRoot())
	if err != nil {
		return nil, fmt.Errorf("opening jobs directory: %w", err)
	}

	var j *journal.Journal
	if path := config.JournalPath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			_ = mb.Close()
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		j, err = journal.Open(ctx, path)
		if err != nil {
			_ = mb.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		opts.Recorder = j
	}

	return &Autogen{
		config:  config,
		mb:      mb,
		journal: j,
		client:  client.New(mb, opts),
	}, nil
}

func (a *Autogen) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	errs = append(errs, a.mb.Close())
	return errors.Join(errs...)
}

// Status prints the queue directories and the number of jobs in every stage.
func (a *Autogen) Status(out io.Writer) error {
	project := a.config.Project
	if project == "" {
		project = "."
	}
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}
	stats, err := a.mb.Stats()
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	layout := a.mb.Layout()
	_, _ = fmt.Fprintf(out, "Project: %s\n", project)
	_, _ = fmt.Fprintf(out, "Jobs: %s\n", layout.Root)
	_, _ = fmt.Fprintf(out, "Inbox: %s\n", layout.Inbox)
	_, _ = fmt.Fprintf(out, "Results: %s\n", layout.Results)
	_, _ = fmt.Fprintf(out, "Pending jobs: %d\n", stats.Pending)
	_, _ = fmt.Fprintf(out, "Working: %d, done: %d, dead: %d, results: %d\n",
		stats.Working, stats.Done, stats.Dead, stats.Results)
	return nil
}

// Submit places the job file at path into the inbox. With wait it blocks
// until the result arrives or timeout elapses, a job which did not finish
// as DONE is reported as an error.
func (a *Autogen) Submit(ctx context.Context, out io.Writer, path string, wait bool, timeout time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening job file: %w", err)
	}
	env, err := model.DecodeEnvelope(f, model.FormatFromPath(path))
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parsing job file %s: %w", path, err)
	}

	id, err := a.client.Submit(ctx, &env)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Submitted: %s\n", id)
	if !wait {
		return nil
	}

	r, err := a.client.Wait(ctx, id, timeout)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s\n", b)
	if r.Status != model.StatusDone {
		return fmt.Errorf("job %s: %s", id, r.Status)
	}
	return nil
}

// Check prints the result of jobID as stored by the executor.
func (a *Autogen) Check(out io.Writer, jobID string) error {
	data, err := a.mb.ReadResult(jobID)
	if errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(out, "Result not found: %s\n", jobID)
		return nil
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		slog.Warn("result is not a valid JSON", "jobId", jobID, "err", err)
		_, _ = out.Write(data)
		return nil
	}
	buf.WriteByte('\n')
	_, _ = buf.WriteTo(out)
	return nil
}

// Wait waits for results of jobIDs, at most parallel at once, and prints one
// JSON line per job in the order of jobIDs.
func (a *Autogen) Wait(ctx context.Context, out io.Writer, jobIDs []string, parallelism int, timeout time.Duration) error {
	items := parallel.Slice(ctx, parallelism, jobIDs, func(ctx context.Context, id string) (model.Result, error) {
		return a.client.Wait(ctx, id, timeout)
	})

	var errs []error
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if item.Err != nil {
			errs = append(errs, item.Err)
			continue
		}
		if err := enc.Encode(item.Value); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// History prints the most recent jobs from the journal.
func (a *Autogen) History(ctx context.Context, out io.Writer, limit int) error {
	if a.journal == nil {
		return errors.New("journal is disabled, set journal.enabled in the config")
	}
	entries, err := a.journal.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		_, _ = fmt.Fprintln(out, e.String())
	}
	return nil
}

func run(cmd *cobra.Command, name string, f func(context.Context, *Autogen) error) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group(
		"autogen",
		slog.String("cmd", name),
		slog.Int("pid", os.Getpid()),
	))
	a, err := NewAutogen(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.WarnContext(ctx, "closing jobs directory", "err", err)
		}
	}()
	return f(ctx, a)
}

func doStatus(cmd *cobra.Command, _ []string) error {
	return run(cmd, "status", func(_ context.Context, a *Autogen) error {
		return a.Status(cmd.OutOrStdout())
	})
}

func doSubmit(cmd *cobra.Command, args []string) error {
	return run(cmd, "submit", func(ctx context.Context, a *Autogen) error {
		return a.Submit(ctx, cmd.OutOrStdout(), args[0], flagWait, flagTimeout)
	})
}

func doCheck(cmd *cobra.Command, args []string) error {
	return run(cmd, "check", func(_ context.Context, a *Autogen) error {
		return a.Check(cmd.OutOrStdout(), args[0])
	})
}

func doWait(cmd *cobra.Command, args []string) error {
	return run(cmd, "wait", func(ctx context.Context, a *Autogen) error {
		return a.Wait(ctx, cmd.OutOrStdout(), args, flagParallel, flagTimeout)
	})
}

func doHistory(cmd *cobra.Command, _ []string) error {
	return run(cmd, "history", func(ctx context.Context, a *Autogen) error {
		return a.History(ctx, cmd.OutOrStdout(), flagLimit)
	})
}
