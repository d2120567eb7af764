package chrono

import (
	"context"
	"time"
)

// WaitResult is the outcome of WaitUntil, a timeout is an expected result
// and not an error.
type WaitResult[T any] struct {
	Value    T
	TimedOut bool
	// Attempts is the number of times the probe ran.
	Attempts int
}

// Probe reports (value, true, nil) once the awaited condition holds.
// A non-nil error aborts the wait.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// WaitUntil runs probe every poll interval until it reports done or timeout
// has elapsed on clock. The probe always runs at least once, and one final
// time at the deadline.
func WaitUntil[T any](ctx context.Context, clock API, poll, timeout time.Duration, probe Probe[T]) (WaitResult[T], error) {
	var result WaitResult[T]
	if poll <= 0 {
		poll = timeout
	}
	deadline := clock.Now().Add(timeout)

	for {
		value, done, err := probe(ctx)
		result.Attempts++
		if err != nil {
			return result, err
		}
		if done {
			result.Value = value
			return result, nil
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			result.TimedOut = true
			return result, nil
		}
		err = clock.Sleep(ctx, min(poll, remaining))
		if err != nil {
			return result, err
		}
	}
}
