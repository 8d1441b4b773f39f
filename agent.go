package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"markestedt/sonarkey/audio"
	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/config"
	"markestedt/sonarkey/effect"
	"markestedt/sonarkey/platform"
	"markestedt/sonarkey/storage"
	"markestedt/sonarkey/web"
)

// Hook states reported in the agent status
const (
	hookStarting = "starting"
	hookActive   = "active"
	hookFeedLost = "feed_lost"
	hookStopped  = "stopped"
)

// observerQueueSize bounds the transitions waiting for storage and the dashboard
const observerQueueSize = 64

// Keyboard hook re-acquisition backoff
var (
	hookRetryMin = time.Second
	hookRetryMax = 30 * time.Second
)

type hookFactory func(config.HookConfig) platform.KeyboardHook

// observation is a transition handed from the event path to the observers
type observation struct {
	kind        string
	trigger     combo.Key
	combination combo.Combination
	at          time.Time
}

// Agent coordinates the keyboard hook, the combination detector and the
// cursor highlight effect
type Agent struct {
	cfgMu sync.Mutex
	cfg   *config.Config

	detector   *combo.Detector
	dispatcher *effect.Dispatcher
	sonar      platform.Sonar
	newHook    hookFactory

	// Optional collaborators, nil when disabled
	db  *storage.DB
	web *web.Server
	cue *audio.Cue

	history bool // session row exists, transitions can be stored

	sessionID string
	started   time.Time

	observed    chan observation
	captured    chan combo.Key
	dropped     atomic.Int64
	engagements atomic.Int64
	hookState   atomic.Value // string

	onChange atomic.Pointer[func()]
}

// NewAgent creates a new agent instance with the collaborators enabled in cfg
func NewAgent(cfg *config.Config) (*Agent, error) {
	sonar, err := platform.NewSonar(cfg.Effect)
	if err != nil {
		return nil, fmt.Errorf("failed to create cursor effect: %w", err)
	}

	a, err := newAgent(cfg, sonar, platform.NewKeyboardHook)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Enabled {
		db, err := storage.Open(filepath.Dir(cfg.Path()))
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.db = db
	}

	if cfg.Cue.Enabled {
		cue, err := audio.NewCue(cfg.Cue)
		if err != nil {
			slog.Warn("Audible cue disabled", "error", err)
		} else {
			a.cue = cue
		}
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(a.db, a, cfg.Web.Port)
	}

	return a, nil
}

func newAgent(cfg *config.Config, sonar platform.Sonar, newHook hookFactory) (*Agent, error) {
	c, err := cfg.Combo()
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:        cfg,
		detector:   combo.NewDetector(c),
		dispatcher: effect.NewDispatcher(sonar),
		sonar:      sonar,
		newHook:    newHook,
		sessionID:  uuid.NewString(),
		started:    time.Now(),
		observed:   make(chan observation, observerQueueSize),
		captured:   make(chan combo.Key, 1),
	}
	a.hookState.Store(hookStarting)
	return a, nil
}

// OnChange registers fn to be called after the combination changed
func (a *Agent) OnChange(fn func()) {
	a.onChange.Store(&fn)
}

// WebURL returns the dashboard address, or "" when it is disabled
func (a *Agent) WebURL() string {
	if a.web == nil {
		return ""
	}
	return a.web.URL()
}

// Run installs the keyboard hook and processes key events until ctx is done.
// A lost hook is re-acquired with backoff.
func (a *Agent) Run(ctx context.Context) error {
	if a.db != nil {
		err := a.db.StartSession(&storage.Session{
			ID:         a.sessionID,
			Started:    a.started,
			Platform:   runtime.GOOS,
			EffectMode: a.cfg.Effect.Mode,
		})
		if err != nil {
			slog.Warn("Failed to record session, history disabled", "error", err)
		} else {
			a.history = true
		}
	}

	// Workers outlive the hook so the final disengage is still recorded
	workCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var workers sync.WaitGroup
	spawn := func(fn func()) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn()
		}()
	}

	spawn(func() { a.dispatcher.Run(workCtx) })
	spawn(func() { a.observeLoop(workCtx) })
	spawn(func() { a.captureLoop(workCtx) })

	if a.web != nil {
		spawn(func() {
			if err := a.web.Start(workCtx); err != nil {
				slog.Error("Web server stopped", "error", err)
			}
		})
	}

	if path := a.cfg.Path(); path != "" {
		spawn(func() {
			if err := config.Watch(workCtx, path, a.reload); err != nil {
				slog.Warn("Config watcher stopped", "error", err)
			}
		})
	}

	slog.Info("SonarKey started",
		"combination", a.detector.Combination(),
		"effect", a.cfg.Effect.Mode,
		"session", a.sessionID,
	)

	err := a.runHook(ctx)

	if t := a.detector.Reset(); t == combo.Disengaged {
		a.observe(storage.KindDisengaged, combo.KeyNone)
	}
	a.detector.CancelCapture()

	stopWorkers()
	workers.Wait()

	if rerr := a.sonar.Restore(); rerr != nil {
		slog.Warn("Failed to restore cursor highlight", "error", rerr)
	}

	a.saveConfig()
	a.endSession()

	slog.Info("SonarKey stopped",
		"session", a.sessionID,
		"uptime", a.uptime(),
		"engagements", humanize.Comma(a.engagements.Load()),
		"effects_applied", humanize.Comma(a.dispatcher.Applied()),
		"effect_failures", a.dispatcher.Failures(),
		"observations_dropped", a.dropped.Load(),
	)

	return err
}

// Close releases the history database and the audio device
func (a *Agent) Close() error {
	if a.cue != nil {
		a.cue.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// runHook keeps a keyboard hook installed until ctx is done
func (a *Agent) runHook(ctx context.Context) error {
	backoff := hookRetryMin
	for {
		hook := a.newHook(a.cfg.Hook)
		a.setHookState(hookStarting)

		if err := hook.Start(ctx, a.handleKey); err != nil {
			hook.Close()
			if errors.Is(err, platform.ErrUnsupported) {
				a.setHookState(hookStopped)
				return fmt.Errorf("failed to install keyboard hook: %w", err)
			}
			slog.Error("Failed to install keyboard hook", "error", err, "retry_in", backoff)
		} else {
			backoff = hookRetryMin
			a.setHookState(hookActive)
			slog.Info("Keyboard hook installed")

			select {
			case <-ctx.Done():
			case <-hook.Done():
			}
			hook.Close()

			if ctx.Err() != nil {
				a.setHookState(hookStopped)
				return nil
			}

			cause := hook.Err()
			if cause == nil {
				cause = combo.ErrFeedLost
			}
			a.feedLost(cause, backoff)
		}

		select {
		case <-ctx.Done():
			a.setHookState(hookStopped)
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, hookRetryMax)
	}
}

// feedLost clears the stale key state of a hook that stopped on its own.
// The hook has stopped calling handleKey, so the detector is not shared.
func (a *Agent) feedLost(cause error, retryIn time.Duration) {
	slog.Error("Keyboard event feed lost", "error", cause, "retry_in", retryIn)
	a.setHookState(hookFeedLost)

	if t := a.detector.Reset(); t == combo.Disengaged {
		a.dispatcher.Submit(t)
		a.observe(storage.KindDisengaged, combo.KeyNone)
	}
	a.observe(storage.KindFeedLost, combo.KeyNone)
}

// handleKey runs on the hook thread for every key event
func (a *Agent) handleKey(ev combo.Event) {
	t := a.detector.ProcessEvent(ev)
	slog.Debug("Key event", "type", ev.Type, "key", ev.Key, "transition", t)

	switch t {
	case combo.Engaged:
		a.dispatcher.Submit(t)
		a.observe(storage.KindEngaged, ev.Key)
	case combo.Disengaged:
		a.dispatcher.Submit(t)
		a.observe(storage.KindDisengaged, ev.Key)
	}
}

// observe queues a transition for the observers without blocking
func (a *Agent) observe(kind string, trigger combo.Key) {
	o := observation{
		kind:        kind,
		trigger:     trigger,
		combination: a.detector.Combination(),
		at:          time.Now(),
	}
	select {
	case a.observed <- o:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Warn("Observer queue full, dropping transitions", "dropped", n)
		}
	}
}

func (a *Agent) observeLoop(ctx context.Context) {
	var engagedAt time.Time
	for {
		select {
		case o := <-a.observed:
			a.record(o, &engagedAt)
		case <-ctx.Done():
			// Flush what the hook queued before stopping
			for {
				select {
				case o := <-a.observed:
					a.record(o, &engagedAt)
				default:
					return
				}
			}
		}
	}
}

// record logs, stores and broadcasts a transition
func (a *Agent) record(o observation, engagedAt *time.Time) {
	tr := &storage.Transition{
		SessionID:   a.sessionID,
		Timestamp:   o.at,
		Kind:        o.kind,
		Combination: o.combination.String(),
	}
	if o.trigger != combo.KeyNone {
		tr.TriggerKey = o.trigger.String()
	}

	switch o.kind {
	case storage.KindEngaged:
		a.engagements.Add(1)
		*engagedAt = o.at
		if a.cue != nil {
			a.cue.Play()
		}
		slog.Info("Combination engaged", "combination", tr.Combination, "key", tr.TriggerKey)

	case storage.KindDisengaged:
		if !engagedAt.IsZero() {
			tr.HeldMs = o.at.Sub(*engagedAt).Milliseconds()
			*engagedAt = time.Time{}
		}
		slog.Info("Combination disengaged", "combination", tr.Combination, "held_ms", tr.HeldMs)

	case storage.KindFeedLost:
		*engagedAt = time.Time{}
	}

	if a.history {
		if err := a.db.SaveTransition(tr); err != nil {
			slog.Error("Failed to save transition", "error", err)
		}
	}

	if a.web != nil {
		a.web.BroadcastTransition(tr)
		a.web.BroadcastStatus(a.Status())
	}
}

// captureLoop applies keys picked by key capture outside the event path
func (a *Agent) captureLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-a.captured:
			c := a.detector.Combination()
			c.Key = key
			if err := a.ApplyCombination(c); err != nil {
				slog.Error("Failed to save captured key", "key", key, "error", err)
			}
			slog.Info("Key captured", "key", key)
			if a.web != nil {
				a.web.BroadcastCapture(key, a.detector.Combination())
			}
		}
	}
}

// StartCapture uses the next key pressed as the extra key
func (a *Agent) StartCapture() error {
	if a.detector.Capturing() {
		return errors.New("key capture already in progress")
	}
	a.detector.CaptureNext(func(k combo.Key) {
		select {
		case a.captured <- k:
		default:
		}
	})
	slog.Info("Waiting for key to select")
	a.notifyChange()
	return nil
}

// CancelCapture disarms a pending key capture
func (a *Agent) CancelCapture() bool {
	cancelled := a.detector.CancelCapture()
	if cancelled {
		slog.Info("Key capture cancelled")
		a.notifyChange()
	}
	return cancelled
}

// ClearSelectedKey removes the extra key from the combination
func (a *Agent) ClearSelectedKey() error {
	c := a.detector.Combination()
	c.Key = combo.KeyNone
	return a.ApplyCombination(c)
}

// ApplyCombination makes c the active combination and saves it. The new
// combination is active even when saving fails.
func (a *Agent) ApplyCombination(c combo.Combination) error {
	c = c.Normalize()

	a.cfgMu.Lock()
	a.cfg.SetCombo(c)
	err := a.cfg.Save()
	a.cfgMu.Unlock()

	a.detector.Configure(c)
	slog.Info("Combination updated", "combination", c)
	a.notifyChange()

	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// reload applies a combination edited in the config file
func (a *Agent) reload(cfg *config.Config) {
	c, err := cfg.Combo()
	if err != nil {
		slog.Warn("Ignoring reloaded combination", "error", err)
		return
	}
	if cfg.Effect.Mode != a.cfg.Effect.Mode {
		slog.Warn("Effect mode changes take effect after restart", "mode", cfg.Effect.Mode)
	}
	if c == a.detector.Combination() {
		return
	}

	a.cfgMu.Lock()
	a.cfg.Combination = cfg.Combination
	a.cfgMu.Unlock()

	a.detector.Configure(c)
	slog.Info("Combination reloaded", "combination", c)
	a.notifyChange()
}

func (a *Agent) notifyChange() {
	if fn := a.onChange.Load(); fn != nil {
		(*fn)()
	}
	if a.web != nil {
		a.web.BroadcastStatus(a.Status())
	}
}

// Combination returns the active combination
func (a *Agent) Combination() combo.Combination {
	return a.detector.Combination()
}

// CombinationLabel returns the active combination for display
func (a *Agent) CombinationLabel() string {
	return a.detector.Combination().String()
}

// EffectMode returns the configured cursor effect
func (a *Agent) EffectMode() string {
	return a.cfg.Effect.Mode
}

// Status reports the agent state
func (a *Agent) Status() web.Status {
	return web.Status{
		SessionID:   a.sessionID,
		Hook:        a.hookState.Load().(string),
		Matched:     a.detector.Matched(),
		Capturing:   a.detector.Capturing(),
		Combination: a.detector.Combination().String(),
		Engagements: a.engagements.Load(),
		Uptime:      a.uptime(),
	}
}

func (a *Agent) setHookState(state string) {
	if a.hookState.Swap(state) == state {
		return
	}
	if a.web != nil {
		a.web.BroadcastStatus(a.Status())
	}
}

func (a *Agent) uptime() string {
	return strings.TrimSpace(humanize.RelTime(a.started, time.Now(), "", ""))
}

// saveConfig persists the configuration on shutdown
func (a *Agent) saveConfig() {
	if a.cfg.Path() == "" {
		return
	}
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	if err := a.cfg.Save(); err != nil {
		slog.Warn("Failed to save config on shutdown", "error", err)
	}
}

func (a *Agent) endSession() {
	if !a.history {
		return
	}
	if err := a.db.EndSession(a.sessionID, time.Now()); err != nil {
		slog.Warn("Failed to record session end", "error", err)
	}
}
