package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Sync holds the tuning knobs of the sync subsystem, loaded from an
// optional TOML file. Every field has a default so no file is required.
type Sync struct {
	path   string
	tuning Tuning
}

// Tuning mirrors the [sync] TOML document.
type Tuning struct {
	Workers     int `toml:"workers"`
	QueueSize   int `toml:"queue_size"`
	MaxAttempts int `toml:"max_attempts"`
	BatchLimit  int `toml:"batch_limit"`

	RetryBaseDelay    duration `toml:"retry_base_delay"`
	RetryMaxDelay     duration `toml:"retry_max_delay"`
	RefreshWindow     duration `toml:"refresh_window"`
	RefreshInterval   duration `toml:"refresh_interval"`
	DeactivationGrace duration `toml:"deactivation_grace"`
}

// duration parses TOML strings like "30s" or "4h"
type duration time.Duration

func (d *duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(string(data))
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", string(data)))
	}
	*d = duration(parsed)
	return nil
}

func defaultTuning() Tuning {
	return Tuning{
		Workers:           4,
		QueueSize:         256,
		MaxAttempts:       5,
		BatchLimit:        50,
		RetryBaseDelay:    duration(2 * time.Second),
		RetryMaxDelay:     duration(5 * time.Minute),
		RefreshWindow:     duration(15 * time.Minute),
		RefreshInterval:   duration(5 * time.Minute),
		DeactivationGrace: duration(24 * time.Hour),
	}
}

// Flags returns CLI flags for sync tuning configuration
func (s *Sync) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sync-config",
			Usage:       "Path to sync tuning TOML file (optional)",
			Sources:     cli.EnvVars("CALSYNC_SYNC_CONFIG"),
			Destination: &s.path,
		},
	}
}

// Configure loads the tuning file when given, applying defaults for
// omitted fields.
func (s *Sync) Configure() (*Tuning, error) {
	tuning := defaultTuning()
	if s.path == "" {
		s.tuning = tuning
		return &s.tuning, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read sync config", goerr.V("path", s.path))
	}
	if err := toml.Unmarshal(data, &tuning); err != nil {
		return nil, goerr.Wrap(err, "failed to parse sync config", goerr.V("path", s.path))
	}

	if tuning.Workers <= 0 || tuning.QueueSize <= 0 || tuning.MaxAttempts <= 0 {
		return nil, goerr.New("workers, queue_size and max_attempts must be positive",
			goerr.V("path", s.path))
	}

	s.tuning = tuning
	return &s.tuning, nil
}

// Accessors converting the TOML durations back to time.Duration.

func (t *Tuning) BaseDelay() time.Duration {
	return time.Duration(t.RetryBaseDelay)
}

func (t *Tuning) MaxDelay() time.Duration {
	return time.Duration(t.RetryMaxDelay)
}

func (t *Tuning) Window() time.Duration {
	return time.Duration(t.RefreshWindow)
}

func (t *Tuning) Interval() time.Duration {
	return time.Duration(t.RefreshInterval)
}

func (t *Tuning) Grace() time.Duration {
	return time.Duration(t.DeactivationGrace)
}
