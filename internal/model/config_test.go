package model_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autogenjobs/autogen/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
project: /srv/game
jobs_dir: Jobs
write_root: Assets/Generated
id_prefix: level-01
timeout: 1m30s
poll_interval: 250ms
log: discard
journal:
  enabled: true
  path: /tmp/journal.db
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, "/srv/game", cfg.Project)
	require.Equal(t, filepath.Join("/srv/game", "Jobs"), cfg.JobsRoot())
	require.Equal(t, "Assets/Generated", cfg.WriteRoot)
	require.Equal(t, "level-01", cfg.IDPrefix)
	require.Equal(t, model.LogDiscard, cfg.Log)
	require.False(t, cfg.Verbose)
	require.Equal(t, "/tmp/journal.db", cfg.JournalPath())

	timing, err := cfg.Timing()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, timing.Timeout)
	require.Equal(t, 250*time.Millisecond, timing.PollInterval)
}

func TestDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	require.Equal(t, 0, cfg.Version)
	require.Empty(t, cfg.Project)
	require.Equal(t, "AutoGenJobs", cfg.JobsDir)
	require.Equal(t, filepath.Join(".", "AutoGenJobs"), cfg.JobsRoot())
	require.Equal(t, "Assets/AutoGen", cfg.WriteRoot)
	require.Equal(t, "job", cfg.IDPrefix)
	require.Equal(t, model.LogStderr, cfg.Log)
	require.Empty(t, cfg.JournalPath())

	timing, err := cfg.Timing()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, timing.Timeout)
	require.Equal(t, 500*time.Millisecond, timing.PollInterval)
}

func TestJournalDefaultPath(t *testing.T) {
	cfg, err := model.LoadConfig(strings.NewReader("version: 0\njobs_dir: /var/jobs\njournal:\n  enabled: true\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/var/jobs", "journal.db"), cfg.JournalPath())
}

func TestLoadConfig_Fail(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		yml      string
		path     string
	}{
		{"bad duration", "version: 0\ntimeout: soon\n", "timeout"},
		{"bad prefix", "version: 0\nid_prefix: a/b\n", "id_prefix"},
		{"unknown field", "version: 0\ninbox: x\n", "inbox"},
		{"wrong version", "version: 1\n", "version"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadConfig(strings.NewReader(tt.yml))
			require.ErrorContains(t, err, tt.path)
			details := model.CueErrDetails(err)
			require.NotEmpty(t, details)
			for _, d := range details {
				require.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestCueErrDetails_NotCue(t *testing.T) {
	require.Nil(t, model.CueErrDetails(nil))
	_, err := model.LoadConfig(strings.NewReader("version: [\n"))
	require.Error(t, err)
	details := model.CueErrDetails(err)
	require.NotEmpty(t, details)
	for _, d := range details {
		require.Equal(t, "validation_error", d.Code)
		require.NotEmpty(t, strings.TrimSpace(d.Message), d.Raw)
	}
	require.Contains(t, err.Error(), details[0].Message)
	require.Contains(t, details[0].Message, "did not find expected")
}
