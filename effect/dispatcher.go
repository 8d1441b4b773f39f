// Package effect applies combination transitions to the cursor highlight
// without blocking the keyboard hook.
package effect

import (
	"context"
	"log/slog"
	"sync/atomic"

	"markestedt/sonarkey/combo"
)

// Highlighter is the effect driven by the dispatcher
type Highlighter interface {
	SetCursorHighlight(enabled bool) error
}

// Dispatcher hands transitions from the event path to a worker goroutine.
// Submit never blocks: it records the wanted highlight state and wakes the
// worker. When transitions arrive faster than the effect can be applied,
// intermediate states collapse and only the latest one is applied.
type Dispatcher struct {
	target  Highlighter
	desired atomic.Bool
	wake    chan struct{}

	applied  atomic.Int64
	failures atomic.Int64
}

// NewDispatcher creates a dispatcher for target
func NewDispatcher(target Highlighter) *Dispatcher {
	return &Dispatcher{
		target: target,
		wake:   make(chan struct{}, 1),
	}
}

// Submit queues the effect of t. NoTransition is ignored.
func (d *Dispatcher) Submit(t combo.Transition) {
	switch t {
	case combo.Engaged:
		d.desired.Store(true)
	case combo.Disengaged:
		d.desired.Store(false)
	default:
		return
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run applies queued effects until ctx is done
func (d *Dispatcher) Run(ctx context.Context) {
	current := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}

		want := d.desired.Load()
		if want == current {
			continue
		}

		if err := d.target.SetCursorHighlight(want); err != nil {
			d.failures.Add(1)
			slog.Warn("Failed to apply cursor highlight", "enabled", want, "error", err)
			continue
		}
		current = want
		d.applied.Add(1)
	}
}

// Applied returns how many effect calls succeeded
func (d *Dispatcher) Applied() int64 {
	return d.applied.Load()
}

// Failures returns how many effect calls failed
func (d *Dispatcher) Failures() int64 {
	return d.failures.Load()
}
