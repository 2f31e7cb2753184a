// Package config loads user settings from a TOML file under the OS config
// directory, falling back to defaults when the file is absent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings are the user-tunable knobs. Zero values are filled in from
// Default on load so a partial config file stays valid.
type Settings struct {
	// Language is the ISO 639-1 transcription language; empty lets the
	// provider auto-detect.
	Language string `toml:"language"`
	// Device selects the capture device by name substring; empty uses the
	// system default.
	Device string `toml:"device"`
	// Hotkey is the push-to-talk chord.
	Hotkey string `toml:"hotkey"`
	// ToggleMode makes the hotkey toggle recording instead of push-to-talk.
	ToggleMode bool `toml:"toggle_mode"`
	// InactivityTimeoutSec auto-stops recording after this much silence.
	InactivityTimeoutSec int `toml:"inactivity_timeout_sec"`
	// TalkingThreshold is the normalized level above which audio counts as
	// speech for the inactivity timer.
	TalkingThreshold float64 `toml:"talking_threshold"`
}

func Default() Settings {
	return Settings{
		Hotkey:               "ctrl+shift+space",
		InactivityTimeoutSec: 30,
		TalkingThreshold:     0.02,
	}
}

// DefaultPath returns ~/.config/sotto/config.toml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sotto", "config.toml")
}

// Load reads settings from path. A missing file is not an error; defaults
// are returned. Unset fields in an existing file fall back to defaults.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.InactivityTimeoutSec <= 0 {
		s.InactivityTimeoutSec = Default().InactivityTimeoutSec
	}
	if s.TalkingThreshold <= 0 {
		s.TalkingThreshold = Default().TalkingThreshold
	}
	if s.Hotkey == "" {
		s.Hotkey = Default().Hotkey
	}
	return s, nil
}

// Save writes settings to path, creating parent directories as needed.
// Used to materialize the default config on first run.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// InactivityTimeout returns the timeout as a duration.
func (s Settings) InactivityTimeout() time.Duration {
	return time.Duration(s.InactivityTimeoutSec) * time.Second
}

// CurrentLanguage satisfies the orchestrator's settings contract.
func (s Settings) CurrentLanguage() string {
	return s.Language
}
