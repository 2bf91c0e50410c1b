// Package retry provides bounded retry-with-backoff execution for the
// flaky operations the harness drives: container runtime commands, health
// probes and eventually-consistent verification queries.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	attemptCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moose",
		Subsystem: "retry",
		Name:      "attempts_total",
		Help:      "Number of attempts executed, by operation.",
	}, []string{"operation"})
)

// Policy describes a retry budget. It is an immutable value supplied per
// call; callers never share mutable retry state.
type Policy struct {
	// Attempts is the total number of executions, including the first.
	Attempts int
	// InitialDelay is the sleep after the first failed attempt.
	InitialDelay time.Duration
	// BackoffFactor grows the delay after each failed attempt. A factor of
	// exactly 1 yields a constant delay.
	BackoffFactor float64
}

func (p Policy) Verify() error {
	if p.Attempts < 1 {
		return errors.Newf("attempts must be >= 1, got %d", p.Attempts)
	}
	if p.InitialDelay < 0 {
		return errors.Newf("initial delay must be >= 0, got %s", p.InitialDelay)
	}
	if p.BackoffFactor < 1 {
		return errors.Newf("backoff factor must be >= 1, got %v", p.BackoffFactor)
	}
	return nil
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:      5,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
	}
}

// ConstantPolicy is used for wait-for-eventual-consistency loops where
// attempts map 1:1 to elapsed intervals.
func ConstantPolicy(attempts int, delay time.Duration) Policy {
	return Policy{
		Attempts:      attempts,
		InitialDelay:  delay,
		BackoffFactor: 1,
	}
}

// State tracks the progress of one retry loop.
type State struct {
	// Attempt is the 1-based attempt about to run (or running).
	Attempt int
	// Delay is the sleep that follows the current attempt, should it fail.
	Delay time.Duration

	policy Policy
}

func (p Policy) Start() (*State, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return &State{
		Attempt: 1,
		Delay:   p.InitialDelay,
		policy:  p,
	}, nil
}

func (s *State) ShouldContinue() bool {
	return s.Attempt < s.policy.Attempts
}

// Next advances to the following attempt. The delay grows by the backoff
// factor with ceiling rounding, so it never decreases with fractional
// factors.
func (s *State) Next() {
	s.Delay = time.Duration(math.Ceil(float64(s.Delay) * s.policy.BackoffFactor))
	s.Attempt++
}

// Do executes op until it succeeds or the policy's attempt budget is
// exhausted. Each attempt is a fresh execution of the full operation, so op
// must be idempotent or side-effect-tolerant; no result is cached between
// attempts. The error from the final attempt is returned to the caller;
// terminal failures are never swallowed.
func Do[T any](
	ctx context.Context, logger zerolog.Logger, policy Policy, operation string, op func(context.Context) (T, error),
) (T, error) {
	var zero T
	state, err := policy.Start()
	if err != nil {
		return zero, err
	}
	for {
		attemptCount.WithLabelValues(operation).Inc()
		ret, err := op(ctx)
		if err == nil {
			return ret, nil
		}
		if !state.ShouldContinue() {
			return zero, errors.Wrapf(err, "%s failed after %d attempt(s)", operation, state.Attempt)
		}
		logger.Debug().
			Str("operation", operation).
			Int("attempt", state.Attempt).
			Dur("delay", state.Delay).
			Err(err).
			Msgf("attempt failed; retrying")
		select {
		case <-ctx.Done():
			return zero, errors.Wrapf(ctx.Err(), "%s interrupted on attempt %d", operation, state.Attempt)
		case <-time.After(state.Delay):
		}
		state.Next()
	}
}

// DoVoid is Do for operations with no return value.
func DoVoid(
	ctx context.Context, logger zerolog.Logger, policy Policy, operation string, op func(context.Context) error,
) error {
	_, err := Do(ctx, logger, policy, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
