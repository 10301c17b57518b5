package parallel_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"testing/synctest"
	"time"

	"github.com/autogenjobs/autogen/internal/parallel"
	"github.com/stretchr/testify/require"
)

func sleep(ctx context.Context, d time.Duration) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(d):
		return int(d / time.Second), nil
	}
}

func TestMap(t *testing.T) {
	t.Parallel()

	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}

	type given struct {
		limit int
		ctx   func(t *testing.T) context.Context
	}
	tCtx := func(t *testing.T) context.Context {
		t.Helper()
		return t.Context()
	}
	tmout1s := func(t *testing.T) context.Context {
		t.Helper()
		ctx, cancel := context.WithTimeout(t.Context(), 1500*time.Millisecond)
		t.Cleanup(cancel)
		return ctx
	}

	var testCases = []struct {
		scenario string
		given    given
		then     time.Duration
		values   []int
	}{
		{"limit 1", given{1, tCtx}, 18 * time.Second, []int{1, 2, 5, 10}},
		{"limit 10", given{10, tCtx}, 10 * time.Second, []int{1, 2, 5, 10}},
		{"limit 1, cancel 1.5s", given{1, tmout1s}, 1500 * time.Millisecond, []int{1}},
		{"limit 10, cancel 1.5s", given{10, tmout1s}, 1500 * time.Millisecond, []int{1}},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				start := time.Now()
				var got []int
				for item := range parallel.NewMap(tt.given.ctx(t), tt.given.limit, sleep).Iter(slices.Values(input)) {
					if item.Err == nil {
						got = append(got, item.Value)
						require.Equal(t, int(input[item.Index]/time.Second), item.Value)
					}
				}
				require.ElementsMatch(t, tt.values, got)
				require.Equal(t, tt.then, time.Since(start))
			})
		})
	}
}

func TestSlice(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		input := []time.Duration{5 * time.Second, 1 * time.Second, 3 * time.Second}

		start := time.Now()
		items := parallel.Slice(t.Context(), 2, input, sleep)
		require.Equal(t, 5*time.Second, time.Since(start))

		require.Len(t, items, 3)
		for i, item := range items {
			require.Equal(t, i, item.Index)
			require.NoError(t, item.Err)
			require.Equal(t, int(input[i]/time.Second), item.Value)
		}
	})
}

func TestSlice_Canceled(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()

		input := []time.Duration{1 * time.Second, 4 * time.Second, 8 * time.Second}
		items := parallel.Slice(ctx, 1, input, sleep)

		require.Len(t, items, 3)
		require.NoError(t, items[0].Err)
		require.Equal(t, 1, items[0].Value)
		for _, item := range items[1:] {
			require.True(t, errors.Is(item.Err, context.DeadlineExceeded) || errors.Is(item.Err, context.Canceled), item.Err)
		}
	})
}
