package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thalesfsp/gpbench"
)

// EnvPrefix prefixes every environment override, e.g. GPBENCH_REPEAT.
const EnvPrefix = "GPBENCH"

// Config is the resolved run configuration.
type Config struct {
	Data         string  `mapstructure:"data"`
	Out          string  `mapstructure:"out"`
	Dim          int     `mapstructure:"dim"`
	Repeat       int     `mapstructure:"repeat"`
	Number       int     `mapstructure:"number"`
	Warmup       int     `mapstructure:"warmup"`
	LogHyper     float64 `mapstructure:"log_hyper"`
	LogNoise     float64 `mapstructure:"log_noise"`
	Settle       bool    `mapstructure:"settle"`
	Inspect      bool    `mapstructure:"inspect"`
	InspectLabel string  `mapstructure:"inspect_label"`
	Plot         string  `mapstructure:"plot"`
	Verbose      bool    `mapstructure:"verbose"`
}

// DefaultConfig mirrors the fixed literals of the benchmark.
func DefaultConfig() Config {
	return Config{
		Data:         "simdata.csv",
		Out:          "bench_results/GPy.csv",
		Dim:          10,
		Repeat:       20,
		Number:       1,
		Warmup:       0,
		LogHyper:     gpbench.DefaultLogHyper,
		LogNoise:     gpbench.DefaultLogHyper,
		Settle:       true,
		Inspect:      false,
		InspectLabel: "se",
		Plot:         "",
		Verbose:      false,
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"data":          "data",
	"out":           "out",
	"dim":           "dim",
	"repeat":        "repeat",
	"number":        "number",
	"warmup":        "warmup",
	"log-hyper":     "log_hyper",
	"log-noise":     "log_noise",
	"settle":        "settle",
	"inspect":       "inspect",
	"inspect-label": "inspect_label",
	"plot":          "plot",
	"verbose":       "verbose",
}

// loadConfig resolves the configuration from, in increasing precedence,
// defaults, the config file at path (if any), GPBENCH_* environment
// variables and explicitly set flags.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("data", defaults.Data)
	v.SetDefault("out", defaults.Out)
	v.SetDefault("dim", defaults.Dim)
	v.SetDefault("repeat", defaults.Repeat)
	v.SetDefault("number", defaults.Number)
	v.SetDefault("warmup", defaults.Warmup)
	v.SetDefault("log_hyper", defaults.LogHyper)
	v.SetDefault("log_noise", defaults.LogNoise)
	v.SetDefault("settle", defaults.Settle)
	v.SetDefault("inspect", defaults.Inspect)
	v.SetDefault("inspect_label", defaults.InspectLabel)
	v.SetDefault("plot", defaults.Plot)
	v.SetDefault("verbose", defaults.Verbose)

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}

			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Data == "":
		return fmt.Errorf("data path must not be empty")
	case c.Out == "":
		return fmt.Errorf("output path must not be empty")
	case c.Dim < 1:
		return fmt.Errorf("dim must be at least 1, got %d", c.Dim)
	case c.Repeat < 1:
		return fmt.Errorf("repeat must be at least 1, got %d", c.Repeat)
	case c.Number < 1:
		return fmt.Errorf("number must be at least 1, got %d", c.Number)
	case c.Warmup < 0:
		return fmt.Errorf("warmup must not be negative, got %d", c.Warmup)
	}

	return nil
}
