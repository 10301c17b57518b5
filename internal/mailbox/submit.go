package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/autogenjobs/autogen/internal/jobid"
	"github.com/autogenjobs/autogen/internal/model"
)

// Submitter places job envelopes into the inbox.
type Submitter struct {
	Mailbox *Mailbox
	// IDs generates identifiers for envelopes without one.
	IDs jobid.Generator
	// Prefix of the generated identifiers.
	Prefix string
	// WriteRoot is the projectWriteRoot of envelopes without one.
	WriteRoot string
}

// Submit writes env into the inbox and returns its job id.
//
// The envelope is written to <jobId>.job.json.pending, synced and renamed to
// <jobId>.job.json, so the executor never sees a partial file. Fields the
// caller has set are kept, the missing ones are filled into env once the
// job is in the inbox. A failed submission leaves env untouched.
func (s Submitter) Submit(ctx context.Context, env *model.Envelope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrSubmit, err)
	}
	if env == nil {
		return "", fmt.Errorf("%w: nil envelope", model.ErrSubmit)
	}
	work := *env
	if err := s.submit(ctx, &work); err != nil {
		return "", err
	}
	*env = work
	return work.JobID, nil
}

func (s Submitter) submit(ctx context.Context, env *model.Envelope) error {
	if env.JobID == "" {
		env.JobID = s.IDs.New(s.Prefix)
	} else if !jobid.Valid(env.JobID) {
		return fmt.Errorf("%w: %w: %q", model.ErrSubmit, model.ErrInvalidJobID, env.JobID)
	}
	now := time.Now
	if s.IDs.Now != nil {
		now = s.IDs.Now
	}
	env.Defaults(s.WriteRoot, now())

	data, err := model.MarshalEnvelope(*env)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSubmit, err)
	}
	if err := model.ValidateEnvelope(data); err != nil {
		return fmt.Errorf("%w: job %s: %w", model.ErrSubmit, env.JobID, err)
	}

	if err := s.write(env.JobID, data); err != nil {
		return fmt.Errorf("%w: job %s: %w", model.ErrSubmit, env.JobID, err)
	}

	slog.DebugContext(ctx, "job submitted",
		"jobId", env.JobID,
		"commands", len(env.Commands),
		"path", s.Mailbox.layout.Inbox,
	)
	return nil
}

func (s Submitter) write(id string, data []byte) (err error) {
	inbox := s.Mailbox.inbox
	if inbox == nil {
		return errors.New("mailbox already closed")
	}
	final := id + JobSuffix
	pending := id + PendingSuffix

	if _, err := inbox.Stat(final); err == nil {
		return model.ErrJobExists
	}

	f, err := inbox.OpenFile(pending, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return model.ErrJobExists
	}
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = inbox.Remove(pending)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", pending, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing %s: %w", pending, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", pending, err)
	}

	if _, err := inbox.Stat(final); err == nil {
		return model.ErrJobExists
	}
	if err := inbox.Rename(pending, final); err != nil {
		return fmt.Errorf("renaming %s: %w", pending, err)
	}
	return nil
}
