package model

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version      int      `json:"version" yaml:"version"` // fixed 0 for now
	Project      string   `json:"project,omitempty" yaml:"project,omitempty"`
	JobsDir      string   `json:"jobs_dir" yaml:"jobs_dir"`
	WriteRoot    string   `json:"write_root" yaml:"write_root"`
	IDPrefix     string   `json:"id_prefix" yaml:"id_prefix"`
	Timeout      string   `json:"timeout" yaml:"timeout"`             // time.ParseDuration syntax
	PollInterval string   `json:"poll_interval" yaml:"poll_interval"` // time.ParseDuration syntax
	Log          string   `json:"log" yaml:"log"`                     // "stderr"|"stdout"|"discard"|path
	Verbose      bool     `json:"verbose" yaml:"verbose"`
	Journal      *Journal `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// Journal keeps a local sqlite record of submitted jobs.
type Journal struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Path    *string `json:"path,omitempty" yaml:"path,omitempty"` // nil => <jobs root>/journal.db
}

// Timing is the parsed form of the timeout and poll_interval fields.
type Timing struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

func (c Config) Timing() (Timing, error) {
	var t Timing
	var err error
	t.Timeout, err = time.ParseDuration(c.Timeout)
	if err != nil {
		return Timing{}, fmt.Errorf("parsing timeout: %w", err)
	}
	t.PollInterval, err = time.ParseDuration(c.PollInterval)
	if err != nil {
		return Timing{}, fmt.Errorf("parsing poll_interval: %w", err)
	}
	return t, nil
}

// JobsRoot returns the directory holding inbox and results.
// A relative jobs_dir is resolved against the project, or the current
// directory when no project is set.
func (c Config) JobsRoot() string {
	if filepath.IsAbs(c.JobsDir) {
		return c.JobsDir
	}
	project := c.Project
	if project == "" {
		project = "."
	}
	return filepath.Join(project, c.JobsDir)
}

// JournalPath returns the journal database path or an empty string when
// the journal is disabled.
func (c Config) JournalPath() string {
	if c.Journal == nil || !c.Journal.Enabled {
		return ""
	}
	if c.Journal.Path != nil {
		return *c.Journal.Path
	}
	return filepath.Join(c.JobsRoot(), "journal.db")
}

// DefaultConfig returns the configuration with every default of the schema applied.
func DefaultConfig() Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(err)
	}
	return *cfg
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}
