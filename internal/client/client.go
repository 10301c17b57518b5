// Package client submits jobs to the executor and waits for their results.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/autogenjobs/autogen/internal/command"
	"github.com/autogenjobs/autogen/internal/jobid"
	"github.com/autogenjobs/autogen/internal/mailbox"
	"github.com/autogenjobs/autogen/internal/model"
)

// Recorder gets notified about submitted jobs and the outcome of waits.
// Recorder errors are logged, they never change the outcome of Execute.
type Recorder interface {
	Submitted(ctx context.Context, env model.Envelope) error
	Finished(ctx context.Context, r model.Result) error
}

type Options struct {
	Timeout      time.Duration // default 30s
	PollInterval time.Duration // default 500ms
	WriteRoot    string        // default "Assets/AutoGen"
	IDPrefix     string        // default "job"
	IDs          jobid.Generator
	Recorder     Recorder
}

// OptionsFromConfig translates the configuration file into client options.
func OptionsFromConfig(cfg model.Config) (Options, error) {
	timing, err := cfg.Timing()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Timeout:      timing.Timeout,
		PollInterval: timing.PollInterval,
		WriteRoot:    cfg.WriteRoot,
		IDPrefix:     cfg.IDPrefix,
	}, nil
}

type Client struct {
	mb        *mailbox.Mailbox
	submitter mailbox.Submitter
	opts      Options
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultWriteRoot = "Assets/AutoGen"
)

func New(mb *mailbox.Mailbox, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = mailbox.DefaultPollInterval
	}
	if opts.WriteRoot == "" {
		opts.WriteRoot = DefaultWriteRoot
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = jobid.DefaultPrefix
	}
	return &Client{
		mb: mb,
		submitter: mailbox.Submitter{
			Mailbox:   mb,
			IDs:       opts.IDs,
			Prefix:    opts.IDPrefix,
			WriteRoot: opts.WriteRoot,
		},
		opts: opts,
	}
}

func (c *Client) Mailbox() *mailbox.Mailbox {
	return c.mb
}

type execOptions struct {
	requiresTypes []string
	timeout       time.Duration
	pollInterval  time.Duration
	jobID         string
	dryRun        bool
	meta          *model.Meta
}

type ExecOption func(*execOptions)

// WithRequiresTypes lists types the executor must know before running the job.
func WithRequiresTypes(types ...string) ExecOption {
	return func(o *execOptions) { o.requiresTypes = append(o.requiresTypes, types...) }
}

func WithTimeout(d time.Duration) ExecOption {
	return func(o *execOptions) { o.timeout = d }
}

func WithPollInterval(d time.Duration) ExecOption {
	return func(o *execOptions) { o.pollInterval = d }
}

// WithJobID uses id instead of a generated identifier.
func WithJobID(id string) ExecOption {
	return func(o *execOptions) { o.jobID = id }
}

func WithDryRun() ExecOption {
	return func(o *execOptions) { o.dryRun = true }
}

func WithMeta(author, note string) ExecOption {
	return func(o *execOptions) { o.meta = &model.Meta{Author: author, Note: note} }
}

// Execute submits commands as a single job and waits for its result.
//
// The returned error is non nil only when the job could not be submitted or
// ctx was canceled while waiting. Jobs the executor did not finish in time
// yield a Result with the TIMEOUT status, failed jobs are returned as they
// were reported.
func (c *Client) Execute(ctx context.Context, cmds []model.Command, opts ...ExecOption) (model.Result, error) {
	o := execOptions{
		timeout:      c.opts.Timeout,
		pollInterval: c.opts.PollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	env := model.Envelope{
		JobID:         o.jobID,
		RequiresTypes: o.requiresTypes,
		DryRun:        o.dryRun,
		Commands:      cmds,
		Meta:          o.meta,
	}
	id, err := c.Submit(ctx, &env)
	if err != nil {
		return model.Result{}, err
	}
	return c.wait(ctx, id, o.timeout, o.pollInterval)
}

// Submit places env into the inbox without waiting.
func (c *Client) Submit(ctx context.Context, env *model.Envelope) (string, error) {
	id, err := c.submitter.Submit(ctx, env)
	if err != nil {
		return "", err
	}
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Submitted(ctx, *env); err != nil {
			slog.WarnContext(ctx, "recording submitted job failed", "jobId", id, "err", err)
		}
	}
	return id, nil
}

// Wait waits for a job submitted earlier. Timeout <= 0 uses the client default.
func (c *Client) Wait(ctx context.Context, jobID string, timeout time.Duration) (model.Result, error) {
	if !jobid.Valid(jobID) {
		return model.Result{}, fmt.Errorf("%w: %q", model.ErrInvalidJobID, jobID)
	}
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	return c.wait(ctx, jobID, timeout, c.opts.PollInterval)
}

func (c *Client) wait(ctx context.Context, jobID string, timeout, interval time.Duration) (model.Result, error) {
	p := mailbox.Poller{Source: c.mb, Interval: interval}
	r, err := p.Wait(ctx, jobID, timeout)
	if err != nil {
		return r, fmt.Errorf("waiting for %s: %w", jobID, err)
	}

	slog.DebugContext(ctx, "job finished", "jobId", jobID, "status", r.Status)
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Finished(ctx, r); err != nil {
			slog.WarnContext(ctx, "recording job result failed", "jobId", jobID, "err", err)
		}
	}
	return r, nil
}

// Lookup returns the current result of jobID, model.ErrResultNotFound
// when there is none yet.
func (c *Client) Lookup(jobID string) (model.Result, error) {
	return c.mb.LookupResult(jobID)
}

// CreateGameObject creates (or reuses) a scene object named name.
func (c *Client) CreateGameObject(ctx context.Context, name string, opts command.GameObjectOptions) (model.Result, error) {
	return c.Execute(ctx, []model.Command{command.CreateGameObject(name, opts)})
}

// CreatePrefab creates <write root>/Prefabs/<name>.prefab and saves assets.
func (c *Client) CreatePrefab(ctx context.Context, name string, edits ...model.Value) (model.Result, error) {
	prefabPath := path.Join(c.opts.WriteRoot, "Prefabs", name+".prefab")
	return c.Execute(ctx, []model.Command{
		command.CreateOrEditPrefab(prefabPath, command.PrefabOptions{RootName: name, Edits: edits}),
		command.SaveAssets(true),
	})
}

// CreateConfig creates a scriptable object asset <write root>/Configs/<name>.asset
// of soType. The executor postpones the job until soType is compiled.
func (c *Client) CreateConfig(ctx context.Context, soType, name string, init map[string]model.Value) (model.Result, error) {
	assetPath := path.Join(c.opts.WriteRoot, "Configs", name+".asset")
	return c.Execute(ctx, []model.Command{
		command.CreateScriptableObject(soType, assetPath, command.ScriptableObjectOptions{Init: init}),
		command.SaveAssets(true),
	}, WithRequiresTypes(soType))
}

// InstantiateInScene places an instance of prefabPath into the open scene.
func (c *Client) InstantiateInScene(ctx context.Context, prefabPath, name string, position model.Value) (model.Result, error) {
	return c.Execute(ctx, []model.Command{
		command.InstantiatePrefab(prefabPath, command.InstanceOptions{NameOverride: name, Position: position}),
	})
}
