//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/config"
)

// evdev key values
const (
	keyReleased = 0
	keyPressed  = 1
	keyRepeat   = 2
)

// LinuxHook implements KeyboardHook by reading an evdev keyboard device
type LinuxHook struct {
	*feed

	devicePath string

	mu      sync.Mutex
	device  *evdev.InputDevice
	started bool
	closing bool
}

// NewKeyboardHook creates a new keyboard hook for Linux
func NewKeyboardHook(cfg config.HookConfig) KeyboardHook {
	return &LinuxHook{
		feed:       newFeed(),
		devicePath: cfg.Device,
	}
}

// Start opens the keyboard device and reads events in a goroutine
func (h *LinuxHook) Start(ctx context.Context, handle KeyHandler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return fmt.Errorf("hook already started")
	}
	h.started = true

	path := h.devicePath
	if path == "" {
		var err error
		path, err = findKeyboardDevice()
		if err != nil {
			h.lost(err)
			return fmt.Errorf("failed to find keyboard device: %w", err)
		}
	}

	dev, err := evdev.Open(path)
	if err != nil {
		h.lost(err)
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("failed to open keyboard device %s (run as root or join the 'input' group): %w", path, err)
		}
		return fmt.Errorf("failed to open keyboard device %s: %w", path, err)
	}
	h.device = dev

	name, _ := dev.Name()
	slog.Info("Keyboard device opened", "path", path, "name", name)

	go h.readLoop(dev, handle)

	// Monitor context cancellation
	go func() {
		select {
		case <-ctx.Done():
			h.Close()
		case <-h.Done():
		}
	}()

	return nil
}

func (h *LinuxHook) readLoop(dev *evdev.InputDevice, handle KeyHandler) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			h.mu.Lock()
			closing := h.closing
			h.mu.Unlock()

			if closing {
				h.stop()
			} else {
				dev.Close()
				h.lost(err)
			}
			return
		}

		if ev.Type != evdev.EV_KEY {
			continue
		}

		key := FromEvdev(uint16(ev.Code))
		switch ev.Value {
		case keyPressed, keyRepeat:
			handle(combo.Down(key))
		case keyReleased:
			handle(combo.Up(key))
		}
	}
}

// Close closes the device, which unblocks the read loop
func (h *LinuxHook) Close() error {
	select {
	case <-h.Done():
		return nil
	default:
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		<-h.Done()
		return nil
	}
	h.closing = true
	dev := h.device
	h.mu.Unlock()

	if dev == nil {
		h.stop()
		return nil
	}

	err := dev.Close()
	<-h.Done()
	return err
}

// findKeyboardDevice returns the first input device that looks like a keyboard
func findKeyboardDevice() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", err
	}

	for _, p := range paths {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, "keyboard") || strings.Contains(name, "kbd") {
			return p.Path, nil
		}
	}

	return "", fmt.Errorf("no keyboard among %d input devices", len(paths))
}
