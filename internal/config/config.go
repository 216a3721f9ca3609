// Package config loads the roost configuration from an optional roost.yaml,
// ROOST_ prefixed environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration of a roost process.
type Config struct {
	StorageDir string `mapstructure:"storage_dir"`
	Log        struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Protocol struct {
		PumpInterval    time.Duration `mapstructure:"pump_interval"`
		StopTimeout     time.Duration `mapstructure:"stop_timeout"`
		DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
		HistoryLimit    int           `mapstructure:"history_limit"`
		Metrics         bool          `mapstructure:"metrics"`
	} `mapstructure:"protocol"`
	NATS struct {
		URL           string `mapstructure:"url"`
		SubjectPrefix string `mapstructure:"subject_prefix"`
		// Serve lists local agents that receive messages from the network.
		Serve []string `mapstructure:"serve"`
		// Remote lists agents living in other processes.
		Remote []Agent `mapstructure:"remote"`
	} `mapstructure:"nats"`
	Agents   []Agent   `mapstructure:"agents"`
	Mappings []Mapping `mapstructure:"mappings"`
}

// Agent describes a scripted agent. Outputs are text templates rendered with
// the activity inputs; without outputs the agent echoes its inputs.
type Agent struct {
	ID           string   `mapstructure:"id"`
	Capabilities []string `mapstructure:"capabilities"`
	Outputs      []Output `mapstructure:"outputs"`
}

// Output is one named output of a scripted agent. Names keep their case,
// unlike the keys of maps decoded by viper.
type Output struct {
	Name     string `mapstructure:"name"`
	Template string `mapstructure:"template"`
}

// Templates returns the outputs keyed by name.
func (a Agent) Templates() map[string]string {
	out := make(map[string]string, len(a.Outputs))
	for _, o := range a.Outputs {
		out[o.Name] = o.Template
	}
	return out
}

// Mapping declares the capabilities required to run an activity.
type Mapping struct {
	Framework    string   `mapstructure:"framework"`
	Activity     string   `mapstructure:"activity"`
	Capabilities []string `mapstructure:"capabilities"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_dir", "./frameworks")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("protocol.pump_interval", 100*time.Millisecond)
	v.SetDefault("protocol.stop_timeout", 5*time.Second)
	v.SetDefault("protocol.delivery_timeout", time.Duration(0))
	v.SetDefault("protocol.history_limit", 0)
	v.SetDefault("protocol.metrics", false)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "roost")
}

// Load reads the configuration. When path is empty roost.yaml is looked up in
// the working directory and $HOME/.config/roost; a missing file is not an error.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("ROOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("roost")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/roost")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Protocol.PumpInterval <= 0 {
		errs = append(errs, errors.New("protocol.pump_interval must be positive"))
	}
	if c.Protocol.StopTimeout <= 0 {
		errs = append(errs, errors.New("protocol.stop_timeout must be positive"))
	}
	if c.Protocol.DeliveryTimeout < 0 {
		errs = append(errs, errors.New("protocol.delivery_timeout must not be negative"))
	}
	if c.Protocol.HistoryLimit < 0 {
		errs = append(errs, errors.New("protocol.history_limit must not be negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	seen := map[string]bool{}
	for i, a := range append(append([]Agent{}, c.Agents...), c.NATS.Remote...) {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("agent %d has no id", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("agent %s is declared twice", a.ID))
		}
		seen[a.ID] = true
		for j, o := range a.Outputs {
			if o.Name == "" {
				errs = append(errs, fmt.Errorf("agent %s output %d has no name", a.ID, j))
			}
		}
	}
	for i, m := range c.Mappings {
		if m.Framework == "" || m.Activity == "" {
			errs = append(errs, fmt.Errorf("mapping %d needs a framework and an activity", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
