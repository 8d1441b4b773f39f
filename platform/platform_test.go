package platform

import (
	"errors"
	"testing"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/config"
)

func TestFromVirtualKey(t *testing.T) {
	tests := []struct {
		vk   uint32
		want combo.Key
	}{
		{0xA2, combo.KeyLeftControl},
		{0xA3, combo.KeyRightControl},
		{0xA0, combo.KeyLeftShift},
		{0x09, combo.KeyTab},
		{0x20, combo.KeySpace},
		{0x41, combo.KeyA},
		{0x5A, combo.KeyZ},
		{0x30, combo.Key0},
		{0x70, combo.KeyF1},
		{0x87, combo.KeyF24},
		{0xFF, combo.RawKey(0xFF)},
	}

	for _, tt := range tests {
		if got := FromVirtualKey(tt.vk); got != tt.want {
			t.Errorf("FromVirtualKey(0x%X) = %v, want %v", tt.vk, got, tt.want)
		}
	}
}

func TestFromEvdev(t *testing.T) {
	tests := []struct {
		code uint16
		want combo.Key
	}{
		{29, combo.KeyLeftControl},
		{42, combo.KeyLeftShift},
		{15, combo.KeyTab},
		{57, combo.KeySpace},
		{16, combo.KeyQ},
		{30, combo.KeyA},
		{50, combo.KeyM},
		{2, combo.Key1},
		{11, combo.Key0},
		{59, combo.KeyF1},
		{68, combo.KeyF10},
		{88, combo.KeyF12},
		{194, combo.KeyF24},
		{240, combo.RawKey(240)},
	}

	for _, tt := range tests {
		if got := FromEvdev(tt.code); got != tt.want {
			t.Errorf("FromEvdev(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFeedLifecycle(t *testing.T) {
	f := newFeed()
	f.lost(errors.New("device unplugged"))
	f.stop()

	select {
	case <-f.Done():
	default:
		t.Fatal("feed not done after loss")
	}
	if !errors.Is(f.Err(), combo.ErrFeedLost) {
		t.Fatalf("Err = %v, want ErrFeedLost", f.Err())
	}

	clean := newFeed()
	clean.stop()
	clean.lost(errors.New("late"))
	if clean.Err() != nil {
		t.Fatalf("requested stop reported %v", clean.Err())
	}
}

func TestLogSonar(t *testing.T) {
	s, err := NewSonar(config.EffectConfig{Mode: config.EffectLog})
	if err != nil {
		t.Fatal(err)
	}
	ls := s.(*LogSonar)

	if err := ls.SetCursorHighlight(true); err != nil {
		t.Fatal(err)
	}
	if !ls.Enabled() {
		t.Fatal("expected enabled")
	}
	if err := ls.Restore(); err != nil {
		t.Fatal(err)
	}
	if ls.Enabled() {
		t.Fatal("expected disabled after restore")
	}
}
