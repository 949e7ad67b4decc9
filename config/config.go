// Package config loads the command line configuration from defaults, an
// optional YAML file, .env files and CHAINSIM_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/sarchlab/chainsim/logging"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/simulation"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "CHAINSIM"

// Config is the root configuration.
type Config struct {
	BufferSize         int           `mapstructure:"bufferSize"`
	MinArrivalInterval int           `mapstructure:"minArrivalInterval"`
	MaxArrivalInterval int           `mapstructure:"maxArrivalInterval"`
	MinServiceTime     int           `mapstructure:"minServiceTime"`
	MaxServiceTime     int           `mapstructure:"maxServiceTime"`
	ProcessCount       int           `mapstructure:"processCount"`
	TimeUnit           time.Duration `mapstructure:"timeUnit"`
	DrainOrder         string        `mapstructure:"drainOrder"`
	ArrivalPolicy      string        `mapstructure:"arrivalPolicy"`
	Seed               uint64        `mapstructure:"seed"`
	LogLevel           string        `mapstructure:"logLevel"`
	LogFormat          string        `mapstructure:"logFormat"`
	Monitor            MonitorConfig `mapstructure:"monitor"`
	Bench              BenchConfig   `mapstructure:"bench"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Port        int  `mapstructure:"port"`
	OpenBrowser bool `mapstructure:"openBrowser"`
}

// BenchConfig controls the reduction benchmark.
type BenchConfig struct {
	Elements int `mapstructure:"elements"`
	Workers  int `mapstructure:"workers"`
}

// Loader handles configuration loading and validation
type Loader struct {
	v        *viper.Viper
	envFiles []string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l := &Loader{
		v:        v,
		envFiles: []string{".env"},
	}
	l.setDefaults()

	return l
}

// Viper returns the underlying viper instance, so that command line flags
// can be bound to it.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// WithEnvFiles replaces the .env files read before the environment. Missing
// files are skipped.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// Load loads configuration from file and environment variables. An empty
// path skips the file.
func (l *Loader) Load(path string) (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *Loader) loadEnvFiles() error {
	for _, f := range l.envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	return nil
}

func (l *Loader) setDefaults() {
	d := simulation.DefaultConfig()

	l.v.SetDefault("bufferSize", d.BufferSize)
	l.v.SetDefault("minArrivalInterval", d.MinArrivalInterval)
	l.v.SetDefault("maxArrivalInterval", d.MaxArrivalInterval)
	l.v.SetDefault("minServiceTime", d.MinServiceTime)
	l.v.SetDefault("maxServiceTime", d.MaxServiceTime)
	l.v.SetDefault("processCount", d.ProcessCount)
	l.v.SetDefault("timeUnit", "1ms")
	l.v.SetDefault("drainOrder", string(d.DrainOrder))
	l.v.SetDefault("arrivalPolicy", string(d.ArrivalPolicy))
	l.v.SetDefault("seed", 0)
	l.v.SetDefault("logLevel", "info")
	l.v.SetDefault("logFormat", logging.FormatConsole)

	l.v.SetDefault("monitor.enabled", false)
	l.v.SetDefault("monitor.port", 0)
	l.v.SetDefault("monitor.openBrowser", false)

	l.v.SetDefault("bench.elements", 10)
	l.v.SetDefault("bench.workers", 4)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	params, err := c.Simulation()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.TimeUnit <= 0 {
		return fmt.Errorf("%w: time unit must be positive, got %s",
			ErrInvalidConfig, c.TimeUnit)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.LogFormat != logging.FormatConsole && c.LogFormat != logging.FormatJSON {
		return fmt.Errorf("%w: %w: %q",
			ErrInvalidConfig, logging.ErrUnknownFormat, c.LogFormat)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("%w: invalid monitor port: %d",
			ErrInvalidConfig, c.Monitor.Port)
	}

	if c.Bench.Elements <= 0 {
		return fmt.Errorf("%w: bench elements must be positive, got %d",
			ErrInvalidConfig, c.Bench.Elements)
	}

	if c.Bench.Workers <= 0 {
		return fmt.Errorf("%w: bench workers must be positive, got %d",
			ErrInvalidConfig, c.Bench.Workers)
	}

	return nil
}

// Simulation converts the settings into simulation parameters.
func (c *Config) Simulation() (simulation.Config, error) {
	order, err := queueing.ParseDrainOrder(c.DrainOrder)
	if err != nil {
		return simulation.Config{}, err
	}

	policy, err := queueing.ParseArrivalPolicy(c.ArrivalPolicy)
	if err != nil {
		return simulation.Config{}, err
	}

	return simulation.Config{
		BufferSize:         c.BufferSize,
		MinArrivalInterval: c.MinArrivalInterval,
		MaxArrivalInterval: c.MaxArrivalInterval,
		MinServiceTime:     c.MinServiceTime,
		MaxServiceTime:     c.MaxServiceTime,
		ProcessCount:       c.ProcessCount,
		DrainOrder:         order,
		ArrivalPolicy:      policy,
	}, nil
}
