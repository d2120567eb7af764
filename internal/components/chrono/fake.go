package chrono

import (
	"context"
	"sync"
	"time"
)

// FakeImpl is an API whose time only moves when Sleep or Advance is called.
// Sleep returns immediately after moving the clock forward.
type FakeImpl struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	onSleep []func(now time.Time)
}

func NewFakeImpl(start time.Time) *FakeImpl {
	return &FakeImpl{now: start}
}

func (f *FakeImpl) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Advance(d)
	return nil
}

// Advance moves the clock forward and runs the OnSleep hooks with the new time.
func (f *FakeImpl) Advance(d time.Duration) {
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
		f.slept += d
	}
	now := f.now
	hooks := append([]func(time.Time){}, f.onSleep...)
	f.mu.Unlock()

	for _, hook := range hooks {
		hook(now)
	}
}

// OnSleep registers a hook that runs after every Sleep/Advance, tests use it
// to mutate the world while the code under test is waiting.
func (f *FakeImpl) OnSleep(hook func(now time.Time)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSleep = append(f.onSleep, hook)
}

// Slept returns the total duration passed to Sleep/Advance.
func (f *FakeImpl) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
