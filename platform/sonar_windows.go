//go:build windows

package platform

import (
	"fmt"
	"sync"
	"unsafe"

	"markestedt/sonarkey/config"
)

var systemParametersInfo = user32.NewProc("SystemParametersInfoW")

const (
	spiGetMouseSonar  = 0x101C
	spiSetMouseSonar  = 0x101D
	spiSetCursorSize  = 0x2029 // undocumented, used by the Settings app
	spifUpdateIniFile = 0x01
	spifSendChange    = 0x02
)

// WindowsSonar toggles mouse sonar or the cursor size via SystemParametersInfo
type WindowsSonar struct {
	mode        string
	engagedSize int
	normalSize  int

	mu       sync.Mutex
	saved    bool
	original uint32
	changed  bool
}

func newSystemSonar(cfg config.EffectConfig) (Sonar, error) {
	return &WindowsSonar{
		mode:        cfg.Mode,
		engagedSize: cfg.EngagedSize,
		normalSize:  cfg.NormalSize,
	}, nil
}

// SetCursorHighlight enables or disables the highlight
func (s *WindowsSonar) SetCursorHighlight(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveOriginal(); err != nil {
		return err
	}
	s.changed = true

	if s.mode == config.EffectCursorSize {
		size := s.normalSize
		if enabled {
			size = s.engagedSize
		}
		return spi(spiSetCursorSize, 0, uintptr(size))
	}

	var v uintptr
	if enabled {
		v = 1
	}
	return spi(spiSetMouseSonar, 0, v)
}

// Restore puts back the sonar setting found at startup, or the normal
// cursor size
func (s *WindowsSonar) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.changed {
		return nil
	}
	s.changed = false

	if s.mode == config.EffectCursorSize {
		return spi(spiSetCursorSize, 0, uintptr(s.normalSize))
	}
	return spi(spiSetMouseSonar, 0, uintptr(s.original))
}

func (s *WindowsSonar) saveOriginal() error {
	if s.saved || s.mode == config.EffectCursorSize {
		return nil
	}

	var current uint32
	r, _, err := systemParametersInfo.Call(spiGetMouseSonar, 0, uintptr(unsafe.Pointer(&current)), 0)
	if r == 0 {
		return fmt.Errorf("SPI_GETMOUSESONAR failed: %w", err)
	}
	s.original = current
	s.saved = true
	return nil
}

func spi(action, param, value uintptr) error {
	r, _, err := systemParametersInfo.Call(action, param, value, spifUpdateIniFile|spifSendChange)
	if r == 0 {
		return fmt.Errorf("SystemParametersInfoW(0x%X) failed: %w", action, err)
	}
	return nil
}
