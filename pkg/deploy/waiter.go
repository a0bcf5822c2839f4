package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/corral/pkg/log"
	"github.com/cuemby/corral/pkg/metrics"
	"github.com/cuemby/corral/pkg/rancher"
	"github.com/cuemby/corral/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultPollInterval is the pause between two state fetches
	DefaultPollInterval = 2 * time.Second

	// DefaultTimeout bounds a single wait when the caller gives none
	DefaultTimeout = 50 * time.Second
)

// Waiter blocks until a service reaches a target state or a timeout expires
type Waiter struct {
	api      rancher.API
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a waiter with the default poll interval
func NewWaiter(api rancher.API, logger zerolog.Logger) *Waiter {
	return &Waiter{
		api:      api,
		logger:   logger,
		interval: DefaultPollInterval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// WithInterval sets the pause between fetches
func (w *Waiter) WithInterval(interval time.Duration) *Waiter {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithClock replaces the time source and sleep function
func (w *Waiter) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Waiter {
	w.now = now
	w.sleep = sleep
	return w
}

// WaitForState fetches the service, returns as soon as its state matches
// target (case-insensitive), and otherwise sleeps one interval and checks the
// elapsed time against timeout. A failed or empty fetch ends the wait at once.
func (w *Waiter) WaitForState(ctx context.Context, envID, serviceID string, target types.ServiceState, timeout time.Duration) (err error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, span := tracer.Start(ctx, "deploy.WaitForState")
	defer span.End()
	span.SetAttributes(
		attribute.String("service.id", serviceID),
		attribute.String("service.target_state", string(target)),
	)

	logger := log.WithServiceID(w.logger, serviceID)
	logger.Info().
		Str("target", string(target)).
		Dur("timeout", timeout).
		Msgf("waiting for service state to be %s (timeout: %s)", target, timeout)

	timer := metrics.NewTimer()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		timer.ObserveDurationVec(metrics.StateWaitDuration, string(target), result)
	}()

	start := w.now()
	for {
		metrics.StatePolls.WithLabelValues(string(target)).Inc()

		found, err := w.api.Service(ctx, envID, serviceID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPollError, err)
		}
		service, ok := found.Get()
		if !ok {
			return fmt.Errorf("%w: service %s not found", ErrPollError, serviceID)
		}

		if target.Is(service.State) {
			logger.Info().Str("state", service.State).Msgf("current service state is %s", target)
			return nil
		}
		logger.Debug().Str("state", service.State).Msg("service not yet in target state")

		if err := w.sleep(ctx, w.interval); err != nil {
			return fmt.Errorf("%w: %w", ErrPollError, err)
		}

		if w.now().Sub(start) >= timeout {
			return fmt.Errorf("%w: service %s did not reach %s within %s (last state %q)",
				ErrPollTimeout, serviceID, target, timeout, service.State)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
