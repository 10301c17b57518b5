// Package mailbox implements the file based exchange with the job executor.
//
// The client owns the inbox: jobs appear there atomically as
// <jobId>.job.json. The executor owns everything else, it moves jobs through
// working, done and dead and writes <jobId>.result.json into results. The
// client only ever reads those.
package mailbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autogenjobs/autogen/internal/jobid"
	"github.com/autogenjobs/autogen/internal/model"
)

const (
	JobSuffix     = ".job.json"
	PendingSuffix = JobSuffix + ".pending"
	ResultSuffix  = ".result.json"
)

// Layout is the directory structure below the jobs root.
type Layout struct {
	Root    string
	Inbox   string
	Results string
	Working string
	Done    string
	Dead    string
}

func NewLayout(root string) Layout {
	return Layout{
		Root:    root,
		Inbox:   filepath.Join(root, "inbox"),
		Results: filepath.Join(root, "results"),
		Working: filepath.Join(root, "working"),
		Done:    filepath.Join(root, "done"),
		Dead:    filepath.Join(root, "dead"),
	}
}

// Mailbox gives confined access to the inbox and results directories.
type Mailbox struct {
	layout  Layout
	inbox   *os.Root
	results *os.Root
}

// Open creates inbox and results when missing and opens them.
func Open(root string) (*Mailbox, error) {
	layout := NewLayout(root)
	var roots [2]*os.Root
	for i, dir := range []string{layout.Inbox, layout.Results} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeRoots(roots[:i])
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
		r, err := os.OpenRoot(dir)
		if err != nil {
			closeRoots(roots[:i])
			return nil, fmt.Errorf("opening directory %s: %w", dir, err)
		}
		roots[i] = r
	}
	return &Mailbox{
		layout:  layout,
		inbox:   roots[0],
		results: roots[1],
	}, nil
}

func closeRoots(roots []*os.Root) {
	for _, r := range roots {
		_ = r.Close()
	}
}

func (m *Mailbox) Layout() Layout {
	return m.layout
}

func (m *Mailbox) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, r := range []*os.Root{m.inbox, m.results} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.inbox, m.results = nil, nil
	return errors.Join(errs...)
}

// ReadResult returns the raw content of the result file of jobID.
func (m *Mailbox) ReadResult(jobID string) ([]byte, error) {
	if !jobid.Valid(jobID) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidJobID, jobID)
	}
	return m.results.ReadFile(jobID + ResultSuffix)
}

// LookupResult reads and parses the result of jobID. It returns
// model.ErrResultNotFound when the executor has not written one yet.
func (m *Mailbox) LookupResult(jobID string) (model.Result, error) {
	data, err := m.ReadResult(jobID)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Result{}, fmt.Errorf("%w: %s", model.ErrResultNotFound, jobID)
	}
	if err != nil {
		return model.Result{}, err
	}
	r, err := model.ParseResult(data)
	if err != nil {
		return model.Result{}, fmt.Errorf("parsing result of %s: %w", jobID, err)
	}
	if r.JobID == "" {
		r.JobID = jobID
	}
	return r, nil
}

// PendingJobs returns ids of the jobs waiting in the inbox, oldest first.
func (m *Mailbox) PendingJobs() ([]string, error) {
	names, err := fs.Glob(m.inbox.FS(), "*"+JobSuffix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		ids = append(ids, strings.TrimSuffix(name, JobSuffix))
	}
	return ids, nil
}

// Stats is a snapshot of the number of jobs in every stage.
type Stats struct {
	Pending int
	Working int
	Done    int
	Dead    int
	Results int
}

func (m *Mailbox) Stats() (Stats, error) {
	pending, err := m.PendingJobs()
	if err != nil {
		return Stats{}, err
	}
	results, err := fs.Glob(m.results.FS(), "*"+ResultSuffix)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Pending: len(pending),
		Working: countJobs(m.layout.Working),
		Done:    countJobs(m.layout.Done),
		Dead:    countJobs(m.layout.Dead),
		Results: len(results),
	}, nil
}

// countJobs counts job files in an executor owned directory, a missing
// directory has none.
func countJobs(dir string) int {
	names, _ := fs.Glob(os.DirFS(dir), "*"+JobSuffix)
	return len(names)
}
