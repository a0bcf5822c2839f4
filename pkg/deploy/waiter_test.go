package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/corral/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the waiter sleeps
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestWaiter(api *fakeAPI, interval time.Duration) (*Waiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	w := NewWaiter(api, zerolog.Nop()).WithInterval(interval).WithClock(clock.now, clock.sleep)
	return w, clock
}

func TestWaitForState(t *testing.T) {
	tests := []struct {
		name       string
		states     []string
		target     types.ServiceState
		timeout    time.Duration
		interval   time.Duration
		wantErr    error
		wantCalls  int
		wantSleeps int
	}{
		{
			name:      "already in target state",
			states:    []string{"active"},
			target:    types.ServiceStateActive,
			timeout:   10 * time.Second,
			interval:  2 * time.Second,
			wantCalls: 1,
		},
		{
			name:       "matches case insensitively after transition",
			states:     []string{"upgrading", "upgrading", "UPGRADED"},
			target:     types.ServiceStateUpgraded,
			timeout:    10 * time.Second,
			interval:   2 * time.Second,
			wantCalls:  3,
			wantSleeps: 2,
		},
		{
			name:       "times out after ceil(timeout/interval) fetches",
			states:     []string{"upgrading"},
			target:     types.ServiceStateUpgraded,
			timeout:    10 * time.Second,
			interval:   3 * time.Second,
			wantErr:    ErrPollTimeout,
			wantCalls:  4,
			wantSleeps: 4,
		},
		{
			name:       "timeout on an exact multiple of the interval",
			states:     []string{"activating"},
			target:     types.ServiceStateActive,
			timeout:    6 * time.Second,
			interval:   2 * time.Second,
			wantErr:    ErrPollTimeout,
			wantCalls:  3,
			wantSleeps: 3,
		},
		{
			name:      "zero timeout falls back to default",
			states:    []string{"activating", "activating", "activating", "active"},
			target:    types.ServiceStateActive,
			interval:  DefaultPollInterval,
			wantCalls: 4,
			// three sleeps of 2s are well inside 50s
			wantSleeps: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.states = tt.states
			w, clock := newTestWaiter(api, tt.interval)

			err := w.WaitForState(context.Background(), "1a7", "1s1", tt.target, tt.timeout)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, api.serviceCalls)
			assert.Len(t, clock.sleeps, tt.wantSleeps)
			for _, d := range clock.sleeps {
				assert.Equal(t, tt.interval, d)
			}
		})
	}
}

func TestWaitForStateFetchFailure(t *testing.T) {
	t.Run("remote error", func(t *testing.T) {
		api := newFakeAPI()
		api.serviceErr = errors.New("connection refused")
		w, clock := newTestWaiter(api, time.Second)

		err := w.WaitForState(context.Background(), "1a7", "1s1", types.ServiceStateActive, 10*time.Second)
		assert.ErrorIs(t, err, ErrPollError)
		assert.Equal(t, 1, api.serviceCalls)
		assert.Empty(t, clock.sleeps)
	})

	t.Run("service disappeared", func(t *testing.T) {
		api := newFakeAPI()
		api.serviceGone = true
		w, _ := newTestWaiter(api, time.Second)

		err := w.WaitForState(context.Background(), "1a7", "1s1", types.ServiceStateActive, 10*time.Second)
		assert.ErrorIs(t, err, ErrPollError)
		assert.NotErrorIs(t, err, ErrPollTimeout)
	})

	t.Run("cancelled while sleeping", func(t *testing.T) {
		api := newFakeAPI()
		api.states = []string{"upgrading"}
		w, _ := newTestWaiter(api, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := w.WaitForState(ctx, "1a7", "1s1", types.ServiceStateUpgraded, 10*time.Second)
		assert.ErrorIs(t, err, ErrPollError)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, api.serviceCalls)
	})
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
