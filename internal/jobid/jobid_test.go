package jobid_test

import (
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/autogenjobs/autogen/internal/jobid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var idRx = regexp.MustCompile(`^([A-Za-z0-9-]+)_(\d{8})_(\d{6})_(\d{3})_([0-9a-f]{12})$`)

func TestNew(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.FixedZone("X", -5*60*60))
	g := jobid.Generator{
		Now:  func() time.Time { return at },
		Rand: func() uuid.UUID { return uuid.MustParse("0123456789ab4def8123456789abcdef") },
	}

	var testCases = []struct {
		scenario string
		prefix   string
		then     string
	}{
		{"default", "job", "job_20260102_080405_678_0123456789ab"},
		{"custom", "level-1", "level-1_20260102_080405_678_0123456789ab"},
		{"empty", "", "job_20260102_080405_678_0123456789ab"},
		{"sanitized", "../my job/", "myjob_20260102_080405_678_0123456789ab"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			id := g.New(tt.prefix)
			require.Equal(t, tt.then, id)
			require.Regexp(t, idRx, id)
			require.True(t, jobid.Valid(id))
		})
	}
}

func TestNew_Unique(t *testing.T) {
	t.Parallel()

	const workers = 16
	const perWorker = 500

	var mx sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			ids := make([]string, 0, perWorker)
			for range perWorker {
				ids = append(ids, jobid.New("job"))
			}
			mx.Lock()
			defer mx.Unlock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, seen, workers*perWorker)
}

func TestNew_Sortable(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC)
	var ids []string
	for i := range 5 {
		g := jobid.Generator{Now: func() time.Time { return start.Add(time.Duration(i) * 300 * time.Millisecond) }}
		ids = append(ids, g.New("job"))
	}
	require.True(t, slices.IsSorted(ids), ids)
}

func TestValid(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"job_1", "a.b-c", jobid.New("x")} {
		require.True(t, jobid.Valid(id), id)
	}
	for _, id := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "a b", "ž", "a\x00"} {
		require.False(t, jobid.Valid(id), id)
	}
}
