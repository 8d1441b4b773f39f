package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/config"
)

// ErrUnsupported is returned when a feature has no implementation on this OS
var ErrUnsupported = errors.New("not supported on this platform")

// KeyHandler receives raw key events. It is called on the hook thread, once
// per event and in order, so it must return quickly.
type KeyHandler func(combo.Event)

// KeyboardHook provides a system-wide feed of key events
type KeyboardHook interface {
	// Start installs the hook and begins delivering events to handle.
	// The hook is released when ctx is done or Close is called.
	Start(ctx context.Context, handle KeyHandler) error

	// Done is closed once the hook has stopped delivering events
	Done() <-chan struct{}

	// Err is nil after a requested shutdown and wraps combo.ErrFeedLost
	// when the feed stopped on its own
	Err() error

	// Close releases the hook. Safe to call more than once.
	Close() error
}

// Sonar toggles the cursor highlight accessibility feature
type Sonar interface {
	SetCursorHighlight(enabled bool) error

	// Restore puts back the setting that was active before the first change
	Restore() error
}

// NewSonar creates the effect selected by cfg.Mode
func NewSonar(cfg config.EffectConfig) (Sonar, error) {
	if cfg.Mode == config.EffectLog {
		return &LogSonar{}, nil
	}
	return newSystemSonar(cfg)
}

// LogSonar only logs highlight changes
type LogSonar struct {
	mu      sync.Mutex
	enabled bool
}

// SetCursorHighlight logs the requested state
func (s *LogSonar) SetCursorHighlight(enabled bool) error {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	slog.Info("Cursor highlight", "enabled", enabled)
	return nil
}

// Restore turns the logged highlight off
func (s *LogSonar) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	return nil
}

// Enabled returns the last requested state
func (s *LogSonar) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// feed tracks the lifetime of a hook's event feed
type feed struct {
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

func newFeed() *feed {
	return &feed{done: make(chan struct{})}
}

// stop ends the feed after a requested shutdown
func (f *feed) stop() {
	f.finish(nil)
}

// lost ends the feed because the source failed
func (f *feed) lost(cause error) {
	f.finish(fmt.Errorf("%w: %v", combo.ErrFeedLost, cause))
}

func (f *feed) finish(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.done)
	})
}

func (f *feed) Done() <-chan struct{} {
	return f.done
}

func (f *feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
