// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (GREMLIN_FSCK_GRAPH_ENDPOINT, ...).
const EnvPrefix = "GREMLIN_FSCK"

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Remediation modes.
const (
	RemediationAPI   = "api"
	RemediationGraph = "graph"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Graph       GraphConfig       `mapstructure:"graph" yaml:"graph"`
	Fsck        FsckConfig        `mapstructure:"fsck" yaml:"fsck"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Remediation RemediationConfig `mapstructure:"remediation" yaml:"remediation"`
}

// LoggerConfig defines all the settings for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// GraphConfig locates the graph store. The endpoint scheme picks the backend:
// ws://, wss:// or host:port for Gremlin Server, postgres:// for a snapshot,
// memory:// for a process local graph.
type GraphConfig struct {
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// FsckConfig selects what a run does.
type FsckConfig struct {
	// Checks to run, in order. Empty means every registered check.
	Checks []string `mapstructure:"checks" yaml:"checks"`
	// Tests to run instead of checks; "all" selects every test.
	Tests        []string      `mapstructure:"tests" yaml:"tests"`
	Clean        bool          `mapstructure:"clean" yaml:"clean"`
	Loop         bool          `mapstructure:"loop" yaml:"loop"`
	LoopInterval time.Duration `mapstructure:"loop_interval" yaml:"loop_interval"`
	Output       string        `mapstructure:"output" yaml:"output"`
	// OutputFile receives reports instead of stdout when set.
	OutputFile   string        `mapstructure:"output_file" yaml:"output_file"`
	CheckTimeout time.Duration `mapstructure:"check_timeout" yaml:"check_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
}

// RemediationConfig configures how cleans delete resources.
type RemediationConfig struct {
	Mode      string        `mapstructure:"mode" yaml:"mode"`
	APIURL    string        `mapstructure:"api_url" yaml:"api_url"`
	Token     string        `mapstructure:"token" yaml:"token"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// NewDefaultConfig creates a configuration populated with default values only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gremlin-fsck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Graph --
	v.SetDefault("graph.endpoint", "localhost:8182")
	v.SetDefault("graph.dial_timeout", "10s")

	// -- Fsck --
	v.SetDefault("fsck.checks", []string{})
	v.SetDefault("fsck.tests", []string{})
	v.SetDefault("fsck.clean", false)
	v.SetDefault("fsck.loop", false)
	v.SetDefault("fsck.loop_interval", "5m")
	v.SetDefault("fsck.output", OutputText)
	v.SetDefault("fsck.output_file", "")
	v.SetDefault("fsck.check_timeout", "0s")

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9111")
	v.SetDefault("metrics.prefix", "gremlin_fsck")

	// -- Remediation --
	v.SetDefault("remediation.mode", RemediationAPI)
	v.SetDefault("remediation.api_url", "http://localhost:8082")
	v.SetDefault("remediation.token", "")
	v.SetDefault("remediation.timeout", "30s")
	v.SetDefault("remediation.rate_limit", 10.0)
}

// BindLegacyEnv maps the environment variables older deployments use onto
// their configuration keys.
func BindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("graph.endpoint", "GREMLIN_FSCK_SERVER", "GREMLIN_FSCK_GRAPH_ENDPOINT")
	_ = v.BindEnv("fsck.clean", "GREMLIN_FSCK_CLEAN", "GREMLIN_FSCK_FSCK_CLEAN")
	_ = v.BindEnv("fsck.loop", "GREMLIN_FSCK_LOOP", "GREMLIN_FSCK_FSCK_LOOP")
	_ = v.BindEnv("fsck.loop_interval", "GREMLIN_FSCK_LOOP_INTERVAL", "GREMLIN_FSCK_FSCK_LOOP_INTERVAL")
	_ = v.BindEnv("remediation.token", "GREMLIN_FSCK_API_TOKEN", "GREMLIN_FSCK_REMEDIATION_TOKEN")
	_ = v.BindEnv("json", "GREMLIN_FSCK_JSON")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	BindLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// GREMLIN_FSCK_JSON=1 predates fsck.output.
	if legacy := v.GetString("json"); legacy != "" {
		if on, err := parseBool(legacy); err == nil && on {
			cfg.Fsck.Output = OutputJSON
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Graph.Endpoint == "" {
		return errors.New("graph.endpoint is a required configuration field")
	}
	if c.Graph.DialTimeout < 0 {
		return errors.New("graph.dial_timeout must not be negative")
	}
	if err := c.Fsck.Validate(); err != nil {
		return fmt.Errorf("fsck configuration invalid: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("metrics.address is required when metrics are enabled")
	}
	if c.Fsck.Clean || len(c.Fsck.Tests) > 0 {
		if err := c.Remediation.Validate(); err != nil {
			return fmt.Errorf("remediation configuration invalid: %w", err)
		}
	}
	return nil
}

// Validate checks the run selection.
func (f *FsckConfig) Validate() error {
	switch f.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, f.Output)
	}
	if f.Loop && f.LoopInterval <= 0 {
		return errors.New("loop_interval must be positive when looping")
	}
	if f.Loop && len(f.Tests) > 0 {
		return errors.New("tests cannot run in a loop")
	}
	if f.CheckTimeout < 0 {
		return errors.New("check_timeout must not be negative")
	}
	return nil
}

// Validate checks the remediation settings.
func (r *RemediationConfig) Validate() error {
	switch r.Mode {
	case RemediationGraph:
		return nil
	case RemediationAPI:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", RemediationAPI, RemediationGraph, r.Mode)
	}
	if r.APIURL == "" {
		return errors.New("api_url is required in api mode")
	}
	if r.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// secondsToDurationHook accepts bare numbers for durations and reads them as
// seconds, the unit GREMLIN_FSCK_LOOP_INTERVAL has always used.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		var seconds float64
		switch v := data.(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return data, nil
			}
			seconds = f
		case int:
			seconds = float64(v)
		case int64:
			seconds = float64(v)
		case float64:
			seconds = v
		default:
			return data, nil
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}
