package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"markestedt/sonarkey/combo"
)

// EnvConfigPath overrides the configuration file location
const EnvConfigPath = "SONARKEY_CONFIG"

type Config struct {
	Combination CombinationConfig `toml:"combination"`
	Effect      EffectConfig      `toml:"effect"`
	Hook        HookConfig        `toml:"hook"`
	Cue         CueConfig         `toml:"cue"`
	Web         WebConfig         `toml:"web"`
	Storage     StorageConfig     `toml:"storage"`
	Tray        TrayConfig        `toml:"tray"`
	Log         LogConfig         `toml:"log"`

	path string
}

// CombinationConfig is the persisted form of the key combination
type CombinationConfig struct {
	Control     bool   `toml:"control"`
	Shift       bool   `toml:"shift"`
	Tab         bool   `toml:"tab"`
	Space       bool   `toml:"space"`
	SelectedKey string `toml:"selected_key"`
}

type EffectConfig struct {
	Mode        string `toml:"mode"` // sonar, cursor_size or log
	EngagedSize int    `toml:"engaged_size"`
	NormalSize  int    `toml:"normal_size"`
}

type HookConfig struct {
	Device string `toml:"device"` // evdev device path, empty for auto-detect
}

type CueConfig struct {
	Enabled     bool    `toml:"enabled"`
	FrequencyHz float64 `toml:"frequency_hz"`
	DurationMs  int     `toml:"duration_ms"`
	Volume      float64 `toml:"volume"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type StorageConfig struct {
	Enabled bool `toml:"enabled"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Effect modes
const (
	EffectSonar      = "sonar"
	EffectCursorSize = "cursor_size"
	EffectLog        = "log"
)

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Combination: CombinationConfig{
			Control:     true,
			Shift:       false,
			Tab:         false,
			Space:       false,
			SelectedKey: "None",
		},
		Effect: EffectConfig{
			Mode:        EffectSonar,
			EngagedSize: 400,
			NormalSize:  32,
		},
		Cue: CueConfig{
			Enabled:     false,
			FrequencyHz: 880,
			DurationMs:  60,
			Volume:      0.2,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8765,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Dir returns the application configuration directory
func Dir() (string, error) {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		var err error
		base, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}

	configDir := filepath.Join(base, "sonarkey")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile loads the configuration from a TOML file.
// If the file doesn't exist, it creates it with default values.
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := defaultConfig()
		cfg.path = configPath
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = configPath

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to a temp file first so the watcher never sees a partial file
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, c.path)
}

// Clone returns a copy that can be modified without affecting c
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) validate() error {
	if _, err := combo.ParseKey(c.Combination.SelectedKey); err != nil {
		return fmt.Errorf("invalid selected_key: %w", err)
	}

	switch c.Effect.Mode {
	case EffectSonar, EffectCursorSize, EffectLog:
	default:
		return fmt.Errorf("unknown effect mode: %s", c.Effect.Mode)
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}

	return nil
}

// Combo converts the persisted combination into the detector's form.
// A selected key that duplicates a modifier flag is folded into the flag.
func (c *Config) Combo() (combo.Combination, error) {
	key, err := combo.ParseKey(c.Combination.SelectedKey)
	if err != nil {
		return combo.Combination{}, fmt.Errorf("invalid selected_key: %w", err)
	}

	cc := combo.Combination{
		Control: c.Combination.Control,
		Shift:   c.Combination.Shift,
		Tab:     c.Combination.Tab,
		Space:   c.Combination.Space,
		Key:     key,
	}

	normalized := cc.Normalize()
	if normalized != cc {
		slog.Warn("Selected key duplicates a modifier, folding it into the modifier", "key", key)
	}
	if normalized.IsEmpty() {
		slog.Warn("No keys configured, combination detection is disabled")
	}

	return normalized, nil
}

// SetCombo stores a combination in the persisted form
func (c *Config) SetCombo(cc combo.Combination) {
	c.Combination = CombinationConfig{
		Control:     cc.Control,
		Shift:       cc.Shift,
		Tab:         cc.Tab,
		Space:       cc.Space,
		SelectedKey: cc.Key.String(),
	}
}

// SlogLevel maps the configured log level to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
