// Package config holds the engine tuning values and document layout
// settings, loaded from YAML over a built-in profile.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/marginalia/internal/actuator"
	"github.com/ensigniasec/marginalia/internal/focus"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/territory"
	"github.com/ensigniasec/marginalia/internal/validate"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Layout controls how documents are laid out as rows.
type Layout struct {
	// Width is the wrap width in columns. Zero follows the terminal.
	Width int `yaml:"width" validate:"gte=0"`
	// Gap is the number of blank rows between blocks.
	Gap int `yaml:"gap" validate:"gte=0"`
}

// Config is the complete set of engine-init parameters. The engine copies
// it at construction.
type Config struct {
	Territory territory.Options `yaml:"territory"`
	Focus     focus.Options     `yaml:"focus"`
	Actuator  actuator.Options  `yaml:"actuator"`
	Reporter  reporter.Options  `yaml:"reporter"`
	Layout    Layout            `yaml:"layout"`
}

// Default returns the reference profile in pixel units.
func Default() Config {
	return Config{
		Territory: territory.Options{EyeLineRatio: 0.4, MinSpacing: 80},
		Focus: focus.Options{
			Hysteresis:        20,
			LargeJump:         600,
			VisibilityMargin:  8,
			VelocitySmoothing: 0.3,
		},
		Actuator: actuator.Options{
			DriftTolerance:  48,
			StaleWrite:      150 * time.Millisecond,
			MinDistance:     2,
			DurationPerUnit: 350 * time.Microsecond,
			MinDuration:     250 * time.Millisecond,
			MaxDuration:     900 * time.Millisecond,
			WatchdogMargin:  250 * time.Millisecond,
		},
		Reporter: reporter.Options{MinMotion: 4, TugMargin: 24},
		Layout:   Layout{Width: 80, Gap: 1},
	}
}

// Terminal returns a profile in row units for terminal hosts, where one
// row stands in for roughly twenty pixels.
func Terminal() Config {
	return Config{
		Territory: territory.Options{EyeLineRatio: 0.4, MinSpacing: 4},
		Focus: focus.Options{
			Hysteresis:        1,
			LargeJump:         30,
			VisibilityMargin:  0,
			VelocitySmoothing: 0.3,
		},
		Actuator: actuator.Options{
			DriftTolerance:  2.5,
			StaleWrite:      150 * time.Millisecond,
			MinDistance:     0.5,
			DurationPerUnit: 7 * time.Millisecond,
			MinDuration:     150 * time.Millisecond,
			MaxDuration:     600 * time.Millisecond,
			WatchdogMargin:  250 * time.Millisecond,
		},
		Reporter: reporter.Options{MinMotion: 1, TugMargin: 2},
		Layout:   Layout{Width: 0, Gap: 1},
	}
}

// Profile returns the built-in profile with the given name, "pixel" or
// "terminal".
func Profile(name string) (Config, error) {
	switch name {
	case "pixel":
		return Default(), nil
	case "terminal", "":
		return Terminal(), nil
	default:
		return Config{}, fmt.Errorf("%w: unknown profile %q", ErrInvalid, name)
	}
}

// Validate checks every section against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, validate.Describe(err))
	}
	return nil
}

// Load reads the YAML file at path over base. Keys missing from the file
// keep base's values. An empty path returns base unchanged.
func Load(path string, base Config) (Config, error) {
	if path == "" {
		return base, base.Validate()
	}
	expanded, err := expandTilde(path)
	if err != nil {
		return base, err
	}
	logrus.Debug("Loading config file from: ", expanded)
	data, err := os.ReadFile(expanded)
	if err != nil {
		return base, err
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse %s: %w", expanded, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
