//go:build !windows && !linux

package platform

import (
	"context"

	"markestedt/sonarkey/config"
)

type unsupportedHook struct {
	*feed
}

// NewKeyboardHook returns a hook that fails to start on this OS
func NewKeyboardHook(cfg config.HookConfig) KeyboardHook {
	return &unsupportedHook{feed: newFeed()}
}

func (h *unsupportedHook) Start(ctx context.Context, handle KeyHandler) error {
	h.lost(ErrUnsupported)
	return ErrUnsupported
}

func (h *unsupportedHook) Close() error {
	h.stop()
	return nil
}

func newSystemSonar(cfg config.EffectConfig) (Sonar, error) {
	return nil, ErrUnsupported
}
