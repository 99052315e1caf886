// Package config loads the ambient settings of the probe from an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/capatazlib/go-daemoncheck/internal/census"
	"github.com/capatazlib/go-daemoncheck/internal/freshness"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

// Config holds every setting that is not an evaluation input of the command
// line
type Config struct {
	Timeout    time.Duration `yaml:"timeout"`
	Label      string        `yaml:"label"`
	LineFormat string        `yaml:"line_format"`
	Census     CensusConfig  `yaml:"census"`
	Log        LogConfig     `yaml:"log"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Checks     []CheckConfig `yaml:"checks"`
}

// CensusConfig selects the process listing command
type CensusConfig struct {
	Command []string `yaml:"command"`
}

// LogConfig sets the level and format of the logs written to stderr
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig sets where the evaluation gauges are written
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// CheckConfig is a named evaluation input served by the HTTP server. Only
// configured checks can be evaluated over HTTP.
type CheckConfig struct {
	Name          string `yaml:"name"`
	StatusLog     string `yaml:"status_log"`
	ExpireMinutes uint64 `yaml:"expire_minutes"`
	Process       string `yaml:"process"`
}

// Input returns the evaluation input of this check
func (c CheckConfig) Input() (probe.Input, error) {
	threshold, err := probe.StaleThresholdFromMinutes(c.ExpireMinutes)
	if err != nil {
		return probe.Input{}, err
	}
	in := probe.Input{
		StatusLogPath:     c.StatusLog,
		StaleThreshold:    threshold,
		ProcessMatchToken: c.Process,
	}
	return in, in.Validate()
}

// Default returns the configuration used when nothing is configured
func Default() *Config {
	return &Config{
		Timeout:    probe.DefaultTimeout,
		LineFormat: freshness.SuffixFormat.String(),
		Census: CensusConfig{
			Command: append([]string(nil), census.DefaultCommand...),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (when not
// empty) and then with the DAEMONCHECK_* environment variables. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DAEMONCHECK_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DAEMONCHECK_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup("DAEMONCHECK_LABEL"); ok {
		cfg.Label = v
	}
	if v, ok := lookup("DAEMONCHECK_LINE_FORMAT"); ok && v != "" {
		cfg.LineFormat = v
	}
	if v, ok := lookup("DAEMONCHECK_PS_COMMAND"); ok && v != "" {
		cfg.Census.Command = strings.Fields(v)
	}
	if v, ok := lookup("DAEMONCHECK_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup("DAEMONCHECK_LOG_FORMAT"); ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := lookup("DAEMONCHECK_METRICS_TEXTFILE"); ok {
		cfg.Metrics.Textfile = v
	}
	return nil
}

// Validate checks configuration correctness. It MUST NOT mutate the
// configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if len(c.Census.Command) == 0 || c.Census.Command[0] == "" {
		return errors.New("census command cannot be empty")
	}
	if _, err := freshness.ParseLineFormat(c.LineFormat); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	names := make(map[string]struct{}, len(c.Checks))
	for i, check := range c.Checks {
		if check.Name == "" {
			return fmt.Errorf("checks[%d]: name cannot be empty", i)
		}
		if _, dup := names[check.Name]; dup {
			return fmt.Errorf("checks[%d]: duplicate name %q", i, check.Name)
		}
		names[check.Name] = struct{}{}
		if _, err := check.Input(); err != nil {
			return fmt.Errorf("checks[%d] (%s): %w", i, check.Name, err)
		}
	}
	return nil
}

// CheckInputs returns the evaluation input of every configured check, keyed by
// check name
func (c *Config) CheckInputs() map[string]probe.Input {
	acc := make(map[string]probe.Input, len(c.Checks))
	for _, check := range c.Checks {
		// Validate already rejected invalid checks
		in, _ := check.Input()
		acc[check.Name] = in
	}
	return acc
}

// ProbeOpts returns the probe options derived from this configuration
func (c *Config) ProbeOpts() []probe.Opt {
	// Validate already rejected unknown formats
	format, _ := freshness.ParseLineFormat(c.LineFormat)
	return []probe.Opt{
		probe.WithTimeout(c.Timeout),
		probe.WithLabel(c.Label),
		probe.WithLineFormat(format),
		probe.WithCensus(census.New(census.WithCommand(c.Census.Command...))),
	}
}
