// Package combo detects a configured key combination in a stream of raw
// key-down and key-up events.
//
// A Detector owns the key state for one event feed. ProcessEvent is meant to
// be called directly from a keyboard hook callback: it does a map update, an
// atomic load and a few comparisons, and never blocks. Configure may be
// called from any goroutine.
package combo

import (
	"errors"
	"sync/atomic"
)

// ErrFeedLost is reported when the keyboard event feed stops unexpectedly
var ErrFeedLost = errors.New("keyboard event feed lost")

// EventType represents the type of a raw key event
type EventType int

const (
	KeyPressed EventType = iota
	KeyReleased
)

func (t EventType) String() string {
	switch t {
	case KeyPressed:
		return "down"
	case KeyReleased:
		return "up"
	default:
		return "unknown"
	}
}

// Event is a single key transition observed by a keyboard hook
type Event struct {
	Type EventType
	Key  Key
}

// Down returns a key-down event for k
func Down(k Key) Event {
	return Event{Type: KeyPressed, Key: k}
}

// Up returns a key-up event for k
func Up(k Key) Event {
	return Event{Type: KeyReleased, Key: k}
}

// Transition is an edge in the matched state
type Transition int

const (
	NoTransition Transition = iota
	Engaged
	Disengaged
)

func (t Transition) String() string {
	switch t {
	case Engaged:
		return "engaged"
	case Disengaged:
		return "disengaged"
	default:
		return "none"
	}
}

// Detector tracks key state and reports edges of the combination match
type Detector struct {
	tracker    *Tracker
	active     atomic.Pointer[Combination]
	capture    atomic.Pointer[func(Key)]
	wasMatched atomic.Bool
}

// NewDetector creates a detector for the given combination
func NewDetector(c Combination) *Detector {
	d := &Detector{tracker: NewTracker()}
	d.active.Store(&c)
	return d
}

// Configure replaces the active combination. The match is not re-evaluated
// until the next event arrives.
func (d *Detector) Configure(c Combination) {
	d.active.Store(&c)
}

// Combination returns the active combination
func (d *Detector) Combination() Combination {
	return *d.active.Load()
}

// Tracker exposes the key state owned by the detector
func (d *Detector) Tracker() *Tracker {
	return d.tracker
}

// Matched reports the result of the last evaluation. Safe to call from any
// goroutine.
func (d *Detector) Matched() bool {
	return d.wasMatched.Load()
}

// CaptureNext arms a one-shot capture: the next key-down is passed to fn.
// fn runs on the event path and must not block.
func (d *Detector) CaptureNext(fn func(Key)) {
	d.capture.Store(&fn)
}

// CancelCapture disarms a pending capture. It reports whether one was armed.
func (d *Detector) CancelCapture() bool {
	return d.capture.Swap(nil) != nil
}

// Capturing reports whether a capture is armed
func (d *Detector) Capturing() bool {
	return d.capture.Load() != nil
}

// ProcessEvent applies ev to the key state and returns the resulting edge,
// or NoTransition when the matched state did not change
func (d *Detector) ProcessEvent(ev Event) Transition {
	switch ev.Type {
	case KeyPressed:
		d.tracker.KeyDown(ev.Key)
		if fn := d.capture.Swap(nil); fn != nil {
			(*fn)(ev.Key)
		}
	case KeyReleased:
		d.tracker.KeyUp(ev.Key)
	default:
		return NoTransition
	}
	return d.Evaluate()
}

// Evaluate recomputes the match against the current key state
func (d *Detector) Evaluate() Transition {
	matched := d.active.Load().SatisfiedBy(d.tracker)
	was := d.wasMatched.Load()

	var t Transition
	switch {
	case matched && !was:
		t = Engaged
	case !matched && was:
		t = Disengaged
	}
	d.wasMatched.Store(matched)
	return t
}

// Reset forgets all held keys. It returns Disengaged if the combination was
// matched, so callers can turn the effect off.
func (d *Detector) Reset() Transition {
	d.tracker.Reset()
	if d.wasMatched.Swap(false) {
		return Disengaged
	}
	return NoTransition
}
