package mailbox_test

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/autogenjobs/autogen/internal/mailbox"
	"github.com/autogenjobs/autogen/internal/model"
	"github.com/stretchr/testify/require"
)

func TestWait_Done(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		src := &sequence{}
		p := mailbox.Poller{Source: src, Interval: 200 * time.Millisecond}

		go func() {
			time.Sleep(1100 * time.Millisecond)
			src.set(`{"jobId":"job_1","status":"DONE","echo":42}`)
		}()

		start := time.Now()
		r, err := p.Wait(t.Context(), "job_1", 5*time.Second)
		require.NoError(t, err)
		require.Equal(t, 1200*time.Millisecond, time.Since(start))
		require.Equal(t, model.StatusDone, r.Status)
		var echo int
		ok, err := r.Field("echo", &echo)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 42, echo)

		// reads at 0, 200, ..., 1200ms and none after the terminal status
		require.Equal(t, 7, src.count())
		time.Sleep(5 * time.Second)
		require.Equal(t, 7, src.count())
	})
}

func TestWait_Timeout(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		interval time.Duration
		timeout  time.Duration
		reads    int
	}{
		{"interval divides timeout", 250 * time.Millisecond, time.Second, 5},
		{"last sleep shortened", 300 * time.Millisecond, time.Second, 5},
		{"interval longer than timeout", 5 * time.Second, time.Second, 2},
		{"zero timeout", 200 * time.Millisecond, 0, 1},
		{"default interval", 0, time.Second, 3},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				src := &sequence{answers: []string{`{"jobId":"job_1","status":"RUNNING"}`}}
				p := mailbox.Poller{Source: src, Interval: tt.interval}

				start := time.Now()
				r, err := p.Wait(t.Context(), "job_1", tt.timeout)
				require.NoError(t, err)
				require.Equal(t, tt.timeout, time.Since(start))
				require.Equal(t, model.TimeoutResult("job_1", tt.timeout), r)
				require.Equal(t, tt.reads, src.count())
			})
		})
	}
}

func TestWait_Tolerant(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		src := &sequence{answers: []string{
			"",
			`{"jobId":"job_1","sta`,
			`not json at all`,
			`{"jobId":"job_1","status":"RUNNING"}`,
			`{"jobId":"job_1","status":"WAITING","waitingReason":"WAITING_COMPILING"}`,
			`{"status":"FAILED","message":"type Foo not found"}`,
		}}
		p := mailbox.Poller{Source: src, Interval: 100 * time.Millisecond}

		start := time.Now()
		r, err := p.Wait(t.Context(), "job_1", 5*time.Second)
		require.NoError(t, err)
		require.Equal(t, 500*time.Millisecond, time.Since(start))
		require.Equal(t, 6, src.count())
		require.Equal(t, model.StatusFailed, r.Status)
		require.Equal(t, "type Foo not found", r.Message)
		require.Equal(t, "job_1", r.JobID)
	})
}

func TestWait_Canceled(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		src := &sequence{}
		p := mailbox.Poller{Source: src, Interval: 200 * time.Millisecond}

		ctx, cancel := context.WithTimeout(t.Context(), 700*time.Millisecond)
		defer cancel()

		start := time.Now()
		r, err := p.Wait(ctx, "job_1", 30*time.Second)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 700*time.Millisecond, time.Since(start))
		require.Equal(t, model.StatusTimeout, r.Status)
		require.Equal(t, "job_1", r.JobID)
	})
}

func TestSubmitAndWait(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		s := newSubmitter(t)
		interval := 500 * time.Millisecond

		id, err := s.Submit(t.Context(), &model.Envelope{
			Commands: []model.Command{{Cmd: "Echo", Args: map[string]model.Value{"value": model.Int(42)}}},
		})
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			defer close(done)
			time.Sleep(time.Second)
			writeResult(t, s.Mailbox.Layout().Results, id, `{"jobId":"`+id+`","status":"DONE","echo":42}`)
		}()

		p := mailbox.Poller{Source: s.Mailbox, Interval: interval}
		start := time.Now()
		r, err := p.Wait(t.Context(), id, 5*time.Second)
		elapsed := time.Since(start)
		<-done

		require.NoError(t, err)
		require.Equal(t, model.StatusDone, r.Status)
		require.Equal(t, id, r.JobID)
		require.GreaterOrEqual(t, elapsed, time.Second)
		require.LessOrEqual(t, elapsed, time.Second+interval)
	})
}
