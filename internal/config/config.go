package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rjwilson47/AutostopAlarms/internal/paths"
)

// DefaultSnoozeMinutes is how far a snoozed alarm is pushed into the future.
const DefaultSnoozeMinutes = 5

// DefaultVolume is the default playback volume (0-100).
const DefaultVolume = 100

// MQTT holds broker settings for firing announcements. A blank Broker
// disables announcements.
type MQTT struct {
	Broker   string `json:"broker,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Log selects logger verbosity and encoding.
type Log struct {
	Level  string `json:"level,omitempty"`  // "debug" | "info" | "warn" | "error"
	Format string `json:"format,omitempty"` // "json" | "console"
}

// Config is the daemon configuration.
type Config struct {
	Database      string            `json:"database,omitempty"`       // alarm store path
	SnoozeMinutes int               `json:"snooze_minutes,omitempty"` // snooze offset
	Volume        int               `json:"volume,omitempty"`         // 0-100
	Assets        map[string]string `json:"assets,omitempty"`         // sound name → custom WAV path
	MQTT          MQTT              `json:"mqtt,omitempty"`
	Log           Log               `json:"log,omitempty"`
}

// UnmarshalJSON sets defaults then decodes the JSON structure. Go's
// json.Unmarshal merges into existing struct fields, so only values present
// in JSON override the defaults.
func (c *Config) UnmarshalJSON(data []byte) error {
	*c = Default()
	type Alias Config
	return json.Unmarshal(data, (*Alias)(c))
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Database:      filepath.Join(paths.DataDir(), paths.DBFileName),
		SnoozeMinutes: DefaultSnoozeMinutes,
		Volume:        DefaultVolume,
		Log:           Log{Level: "info", Format: "console"},
	}
}

// Load reads and parses a config file. It tries, in order:
//  1. explicitPath (if non-empty)
//  2. alarmd-config.json next to the running binary
//  3. the user config directory
//
// A missing config file is not an error: defaults apply.
func Load(explicitPath string) (Config, error) {
	if explicitPath != "" {
		return readConfig(explicitPath)
	}

	// Next to binary
	exe, err := os.Executable()
	if err == nil {
		p := filepath.Join(filepath.Dir(exe), paths.ConfigFileName)
		if _, err := os.Stat(p); err == nil {
			return readConfig(p)
		}
	}

	// User config directory
	if p := userConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return readConfig(p)
		}
	}

	return Default(), nil
}

// WriteDefault writes a starter config file to the user config directory
// and returns its path. Refuses to overwrite an existing file.
func WriteDefault() (string, error) {
	p := userConfigPath()
	if p == "" {
		return "", fmt.Errorf("cannot resolve user config directory")
	}
	if _, err := os.Stat(p); err == nil {
		return "", fmt.Errorf("config already exists at %s", p)
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return "", err
	}
	if err := paths.AtomicWrite(p, append(data, '\n')); err != nil {
		return "", err
	}
	return p, nil
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Roaming", paths.AppDirName, paths.ConfigFileName)
	}
	return filepath.Join(home, ".config", paths.AppDirName, paths.ConfigFileName)
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Volume < 0 || cfg.Volume > 100 {
		return Config{}, fmt.Errorf("config %s: volume must be between 0 and 100", path)
	}
	if cfg.SnoozeMinutes <= 0 {
		return Config{}, fmt.Errorf("config %s: snooze_minutes must be positive", path)
	}
	return cfg, nil
}
