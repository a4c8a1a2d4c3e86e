package engine

import (
	"context"
	"time"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/pkg/provider"
)

// ReadinessOutcome is the result of one readiness wait.
type ReadinessOutcome struct {
	Waited    time.Duration
	LastProbe *bool // final probe observation, nil for delay-only policies
}

// DefaultProbeInterval is used when a poll policy declares no interval.
const DefaultProbeInterval = 5 * time.Second

// DefaultProbeTimeout is used when a poll policy declares no timeout.
const DefaultProbeTimeout = 10 * time.Minute

// AwaitReady blocks until the resource's readiness policy resolves.
// A nil policy resolves immediately. For poll policies the prober is invoked
// on each interval until it reports true or the timeout elapses; expiry is a
// ReadinessTimeoutError carrying the last probe observation. Only the calling
// branch suspends here; unrelated branches keep running.
func AwaitReady(ctx context.Context, res *ir.ResourceState, policy *ir.ReadinessPolicy, prober provider.Prober) (*ReadinessOutcome, error) {
	if policy == nil || policy.Mode == ir.ReadinessNone {
		return &ReadinessOutcome{}, nil
	}

	start := time.Now()

	switch policy.Mode {
	case ir.ReadinessFixedDelay:
		logging.Debug("readiness delay", "resource", res.Name, "delay", policy.Delay)
		select {
		case <-time.After(policy.Delay):
			return &ReadinessOutcome{Waited: time.Since(start)}, nil
		case <-ctx.Done():
			return &ReadinessOutcome{Waited: time.Since(start)}, ctx.Err()
		}

	case ir.ReadinessPollUntil:
		interval := policy.Interval
		if interval <= 0 {
			interval = DefaultProbeInterval
		}
		timeout := policy.Timeout
		if timeout <= 0 {
			timeout = DefaultProbeTimeout
		}

		pollCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		lastProbe := false
		outcome := func() *ReadinessOutcome {
			p := lastProbe
			return &ReadinessOutcome{Waited: time.Since(start), LastProbe: &p}
		}

		// Probe immediately, then on each interval.
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if prober != nil {
				ready, err := prober.Probe(pollCtx, res.Type, res.Identifiers)
				if err != nil {
					logging.Debug("readiness probe error", "resource", res.Name, "error", err)
				} else {
					lastProbe = ready
				}
				if ready {
					logging.Debug("resource ready", "resource", res.Name, "waited", time.Since(start))
					return outcome(), nil
				}
			}

			select {
			case <-ticker.C:
			case <-pollCtx.Done():
				if ctx.Err() != nil {
					return outcome(), ctx.Err()
				}
				return outcome(), &ReadinessTimeoutError{
					Name:      res.Name,
					Timeout:   timeout,
					LastProbe: lastProbe,
				}
			}
		}
	}

	return &ReadinessOutcome{}, nil
}
