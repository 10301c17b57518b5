package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SchemaVersion = 1
	// TimeLayout is the layout of createdAtUtc and the other timestamps of the protocol.
	TimeLayout = "2006-01-02T15:04:05.000000Z"
)

// Command is a single instruction for the executor. The protocol does not
// interpret it.
type Command struct {
	Cmd  string            `json:"cmd"`
	Args map[string]Value  `json:"args"`
	Out  map[string]string `json:"out,omitempty"`
}

type Meta struct {
	Author string `json:"author,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Envelope is the unit of submission, stored as <jobId>.job.json in the inbox.
type Envelope struct {
	SchemaVersion    int       `json:"schemaVersion"`
	JobType          string    `json:"jobType,omitempty"`
	JobID            string    `json:"jobId"`
	CreatedAtUTC     string    `json:"createdAtUtc"`
	RunnerMinVersion int       `json:"runnerMinVersion,omitempty"`
	RequiresTypes    []string  `json:"requiresTypes,omitempty"`
	ProjectWriteRoot string    `json:"projectWriteRoot"`
	DryRun           bool      `json:"dryRun,omitempty"`
	Commands         []Command `json:"commands"`
	Meta             *Meta     `json:"meta,omitempty"`

	// Extra holds top level fields of a job file this client does not know,
	// they are written to the inbox unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// envelope has the JSON encoding of Envelope without the custom methods.
type envelope Envelope

var envelopeFields = []string{
	"schemaVersion", "jobType", "jobId", "createdAtUtc", "runnerMinVersion",
	"requiresTypes", "projectWriteRoot", "dryRun", "commands", "meta",
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var known envelope
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range envelopeFields {
		delete(fields, name)
	}
	known.Extra = nil
	if len(fields) > 0 {
		known.Extra = fields
	}
	*e = Envelope(known)
	return nil
}

// Defaults fills the fields the caller left empty. Values already set are kept.
func (e *Envelope) Defaults(writeRoot string, now time.Time) {
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
	if e.ProjectWriteRoot == "" {
		e.ProjectWriteRoot = writeRoot
	}
	if e.CreatedAtUTC == "" {
		e.CreatedAtUTC = FormatTime(now)
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MarshalEnvelope encodes the envelope as indented JSON terminated by a newline.
func MarshalEnvelope(e Envelope) ([]byte, error) {
	if e.Commands == nil {
		e.Commands = []Command{}
	}
	cmds := make([]Command, len(e.Commands))
	for i, c := range e.Commands {
		if c.Args == nil {
			c.Args = map[string]Value{}
		}
		cmds[i] = c
	}
	e.Commands = cmds

	var doc any = envelope(e)
	if len(e.Extra) > 0 {
		known, err := marshalNoEscape(envelope(e))
		if err != nil {
			return nil, fmt.Errorf("encoding job %s: %w", e.JobID, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(known, &fields); err != nil {
			return nil, fmt.Errorf("encoding job %s: %w", e.JobID, err)
		}
		for name, raw := range e.Extra {
			if _, ok := fields[name]; !ok && !slices.Contains(envelopeFields, name) {
				fields[name] = raw
			}
		}
		doc = fields
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding job %s: %w", e.JobID, err)
	}
	return buf.Bytes(), nil
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the job file format from the file extension, JSON is the default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeEnvelope reads a job file written by hand, either JSON or YAML.
func DecodeEnvelope(r io.Reader, format Format) (Envelope, error) {
	var env Envelope
	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Envelope{}, fmt.Errorf("decoding yaml: %w", err)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return Envelope{}, fmt.Errorf("converting yaml: %w", err)
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return Envelope{}, fmt.Errorf("decoding job: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&env); err != nil {
			return Envelope{}, fmt.Errorf("decoding json: %w", err)
		}
	default:
		return Envelope{}, fmt.Errorf("unsupported format %q", format)
	}
	return env, nil
}
