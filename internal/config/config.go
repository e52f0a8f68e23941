package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"snapshot-sweeper/internal/batch"
	"snapshot-sweeper/internal/snapshot"
)

// DefaultAgeDays is the retention window used when no cutoff date is given.
const DefaultAgeDays = 30

type LoggingCfg struct {
	Level        string `yaml:"level" json:"level"`
	File         string `yaml:"file" json:"file"`                   // Optional log file, stderr only when empty
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

// Config is the fully resolved policy for one run. Every component receives
// it explicitly; nothing reads process-wide state.
type Config struct {
	Pool        string `yaml:"pool" json:"pool"`
	Date        string `yaml:"date" json:"date"` // Cutoff in snapshot.Layout, empty for now - 30 days
	ExcludeFile string `yaml:"exclude_file" json:"exclude_file"`
	Label       string `yaml:"label" json:"label"`
	BatchSize   int    `yaml:"batch_size" json:"batch_size"`

	DryRun       bool `yaml:"dry_run" json:"dry_run"`
	NoConfirm    bool `yaml:"no_confirm" json:"no_confirm"`
	ShowQueued   bool `yaml:"show_queued" json:"show_queued"`
	ShowExcluded bool `yaml:"show_excluded" json:"show_excluded"`
	ShowConfig   bool `yaml:"show_config" json:"show_config"`

	BatchInterval     time.Duration `yaml:"batch_interval" json:"batch_interval"` // Pause between batches, 0 disables
	ProtectedDatasets []string      `yaml:"protected_datasets" json:"protected_datasets"`
	DatabasePath      string        `yaml:"database_path" json:"database_path"`       // SQLite run history, disabled when empty
	MetricsTextfile   string        `yaml:"metrics_textfile" json:"metrics_textfile"` // node_exporter textfile output
	Logging           LoggingCfg    `yaml:"logging" json:"logging"`

	Cutoff time.Time `yaml:"-" json:"cutoff"`
}

// ErrConfiguration is matched by every error Resolve and Load return.
var ErrConfiguration = errors.New("configuration error")

var (
	ErrNoPool           = errors.New("pool name not provided, example: -p tank")
	ErrInvalidPool      = errors.New("pool name must not contain '@'")
	ErrInvalidDate      = errors.New("date must look like 2017-09-26-1111-00")
	ErrExcludeFile      = errors.New("exclude file does not exist")
	ErrNegativeInterval = errors.New("batch_interval cannot be negative")
)

// Error ties a configuration failure to the offending setting.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrConfiguration
}

// Default returns the configuration before any file or flag is applied.
func Default() *Config {
	return &Config{
		BatchSize: batch.DefaultSize,
		Logging: LoggingCfg{
			Level:        "info",
			RotationDays: 30,
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, &Error{Field: "config", Err: err}
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, &Error{Field: "config", Err: fmt.Errorf("open config: %w", err)}
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, &Error{Field: "config", Err: err}
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Resolve validates the configuration and computes the cutoff. It must run
// before any snapshot is listed; nothing is silently defaulted once set.
func (c *Config) Resolve(now time.Time) error {
	c.Pool = strings.TrimSpace(c.Pool)
	if c.Pool == "" {
		return &Error{Field: "pool", Err: ErrNoPool}
	}
	if strings.Contains(c.Pool, "@") {
		return &Error{Field: "pool", Err: ErrInvalidPool}
	}

	if c.BatchSize < 1 {
		return &Error{Field: "batch_size", Err: fmt.Errorf("%w, got %d", batch.ErrInvalidBatchSize, c.BatchSize)}
	}

	if c.BatchInterval < 0 {
		return &Error{Field: "batch_interval", Err: ErrNegativeInterval}
	}

	if c.Date == "" {
		c.Cutoff = now.AddDate(0, 0, -DefaultAgeDays)
	} else {
		cutoff, err := time.ParseInLocation(snapshot.Layout, c.Date, now.Location())
		if err != nil {
			return &Error{Field: "date", Err: fmt.Errorf("%w: %v", ErrInvalidDate, err)}
		}
		c.Cutoff = cutoff
	}

	if c.ExcludeFile != "" {
		p, err := homedir.Expand(c.ExcludeFile)
		if err != nil {
			return &Error{Field: "exclude_file", Err: err}
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return &Error{Field: "exclude_file", Err: fmt.Errorf("%w: %s", ErrExcludeFile, c.ExcludeFile)}
		}
		c.ExcludeFile = p
	}

	for _, field := range []*string{&c.DatabasePath, &c.MetricsTextfile, &c.Logging.File} {
		if *field == "" {
			continue
		}
		p, err := homedir.Expand(*field)
		if err != nil {
			return &Error{Field: "path", Err: err}
		}
		*field = p
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}
	return nil
}
