package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"markestedt/sonarkey/combo"
)

func TestLoadFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Path() != path {
		t.Fatalf("Path = %q, want %q", cfg.Path(), path)
	}
	if cfg.Combination.SelectedKey != "None" {
		t.Fatalf("default selected key = %q", cfg.Combination.SelectedKey)
	}

	again, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Effect != cfg.Effect || again.Combination != cfg.Combination {
		t.Fatalf("round trip mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadFileParsesCombination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[combination]
control = true
shift = true
tab = false
space = false
selected_key = "F1"

[effect]
mode = "cursor_size"
engaged_size = 256
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cc, err := cfg.Combo()
	if err != nil {
		t.Fatalf("combo: %v", err)
	}
	want := combo.Combination{Control: true, Shift: true, Key: combo.KeyF1}
	if cc != want {
		t.Fatalf("Combo = %+v, want %+v", cc, want)
	}
	if cfg.Effect.Mode != EffectCursorSize || cfg.Effect.EngagedSize != 256 {
		t.Fatalf("effect = %+v", cfg.Effect)
	}
	// Unset fields keep their defaults
	if cfg.Effect.NormalSize != 32 {
		t.Fatalf("normal size = %d, want default 32", cfg.Effect.NormalSize)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "[combination]\nselected_key = \"Hyper\"\n", "selected_key"},
		{"unknown mode", "[effect]\nmode = \"blink\"\n", "effect mode"},
		{"bad port", "[web]\nenabled = true\nport = 70000\n", "web port"},
		{"bad toml", "[combination\n", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestComboFoldsModifierKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Combination = CombinationConfig{Tab: true, SelectedKey: "LeftShift"}

	cc, err := cfg.Combo()
	if err != nil {
		t.Fatal(err)
	}
	want := combo.Combination{Tab: true, Shift: true}
	if cc != want {
		t.Fatalf("Combo = %+v, want %+v", cc, want)
	}
}

func TestSetComboRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := combo.Combination{Space: true, Key: combo.KeyF9}
	cfg.SetCombo(want)
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Combo()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := defaultConfig()
	for level, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO"} {
		cfg.Log.Level = level
		if got := cfg.SlogLevel().String(); got != want {
			t.Errorf("level %q = %s, want %s", level, got, want)
		}
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	cfg.Combination.SelectedKey = "F7"
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c.Combination.SelectedKey != "F7" {
			t.Fatalf("reloaded selected key = %q", c.Combination.SelectedKey)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}
