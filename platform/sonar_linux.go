//go:build linux

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"markestedt/sonarkey/config"
)

const (
	gnomeInterfaceSchema = "org.gnome.desktop.interface"
	gsettingsTimeout     = 2 * time.Second
)

// GnomeSonar drives GNOME's locate-pointer or cursor-size setting
type GnomeSonar struct {
	key      string
	engaged  string
	released string

	mu       sync.Mutex
	original string
	changed  bool
}

func newSystemSonar(cfg config.EffectConfig) (Sonar, error) {
	if _, err := exec.LookPath("gsettings"); err != nil {
		return nil, fmt.Errorf("gsettings not found: %w", ErrUnsupported)
	}

	if cfg.Mode == config.EffectCursorSize {
		return &GnomeSonar{
			key:      "cursor-size",
			engaged:  strconv.Itoa(cfg.EngagedSize),
			released: strconv.Itoa(cfg.NormalSize),
		}, nil
	}
	return &GnomeSonar{key: "locate-pointer", engaged: "true", released: "false"}, nil
}

// SetCursorHighlight writes the engaged or released value
func (s *GnomeSonar) SetCursorHighlight(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.changed {
		orig, err := gsettings("get", gnomeInterfaceSchema, s.key)
		if err != nil {
			return err
		}
		s.original = orig
		s.changed = true
	}

	value := s.released
	if enabled {
		value = s.engaged
	}
	_, err := gsettings("set", gnomeInterfaceSchema, s.key, value)
	return err
}

// Restore writes back the value found before the first change
func (s *GnomeSonar) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.changed {
		return nil
	}
	s.changed = false
	_, err := gsettings("set", gnomeInterfaceSchema, s.key, s.original)
	return err
}

func gsettings(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gsettingsTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "gsettings", args...).Output()
	if err != nil {
		return "", fmt.Errorf("gsettings %s failed: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}
