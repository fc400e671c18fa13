// Package mscconfig loads the YAML-described static service topology a
// container bootstraps from: which services exist, their mode, their
// aliases, and their dependency edges, plus the ambient logging/metrics/
// cron settings.
//
// Grounded on config/config.go (YAML-tagged struct tree, defaultXxx
// constants, SetDefaults/Validate/LoadConfig/Redacted shape) and
// server/config/config.go's CronTrigger list, adapted from one backup
// job's worth of settings to an arbitrary list of named services and
// their dependency edges.
package mscconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	defaultMetricsPrefix = "msc"

	defaultRetrySchedule = "*/5 * * * *"
	defaultAuditSchedule = "* * * * *"

	defaultMode        = "active"
	defaultRequirement = "required"
	defaultDemand      = "propagate"
	defaultLinkage     = "peer"
)

// Config is the complete static topology and ambient settings a container
// bootstraps from.
type Config struct {
	Services []ServiceSpec `yaml:"services"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Cron     CronConfig    `yaml:"cron"`
}

// DependencySpec describes one outgoing dependency edge.
type DependencySpec struct {
	// Name is the target service's name.
	Name string `yaml:"name"`
	// Requirement is "required" or "unrequired".
	Requirement string `yaml:"requirement"`
	// Demand is "propagate" or "no_demand".
	Demand string `yaml:"demand"`
	// Linkage is "peer" or "parent_child".
	Linkage string `yaml:"linkage"`
}

// ServiceSpec describes one service to install.
type ServiceSpec struct {
	Name         string           `yaml:"name"`
	Mode         string           `yaml:"mode"` // active, lazy, on_demand
	Aliases      []string         `yaml:"aliases"`
	Dependencies []DependencySpec `yaml:"dependencies"`
}

// LoggingConfig configures the container's base slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig configures mscmetrics. Exactly one of ScrapeAddr or PushURL
// is normally set.
type MetricsConfig struct {
	ScrapeAddr string `yaml:"scrape_addr"`
	PushURL    string `yaml:"push_url" sensitive:"true"`
	Prefix     string `yaml:"prefix"`
}

// CronConfig configures msccron's two maintenance sweeps.
type CronConfig struct {
	RetrySchedule string `yaml:"retry_schedule"`
	AuditSchedule string `yaml:"audit_schedule"`
}

// SetDefaults fills in unset optional fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.Metrics.Prefix == "" {
		c.Metrics.Prefix = defaultMetricsPrefix
	}
	if c.Cron.RetrySchedule == "" {
		c.Cron.RetrySchedule = defaultRetrySchedule
	}
	if c.Cron.AuditSchedule == "" {
		c.Cron.AuditSchedule = defaultAuditSchedule
	}
	for i := range c.Services {
		if c.Services[i].Mode == "" {
			c.Services[i].Mode = defaultMode
		}
		for j := range c.Services[i].Dependencies {
			d := &c.Services[i].Dependencies[j]
			if d.Requirement == "" {
				d.Requirement = defaultRequirement
			}
			if d.Demand == "" {
				d.Demand = defaultDemand
			}
			if d.Linkage == "" {
				d.Linkage = defaultLinkage
			}
		}
	}
}

// Validate checks the config for structural errors: duplicate or empty
// service names, unknown mode/requirement/demand/linkage strings, and
// dependencies naming a service not declared anywhere in the file.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Services))
	for _, s := range c.Services {
		if s.Name == "" {
			return fmt.Errorf("service name is required")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate service name %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Mode {
		case "active", "lazy", "on_demand":
		default:
			return fmt.Errorf("service %q: mode must be one of active, lazy, on_demand", s.Name)
		}

		for _, d := range s.Dependencies {
			if d.Name == "" {
				return fmt.Errorf("service %q: dependency name is required", s.Name)
			}
			switch d.Requirement {
			case "required", "unrequired":
			default:
				return fmt.Errorf("service %q: dependency %q: requirement must be required or unrequired", s.Name, d.Name)
			}
			switch d.Demand {
			case "propagate", "no_demand":
			default:
				return fmt.Errorf("service %q: dependency %q: demand must be propagate or no_demand", s.Name, d.Name)
			}
			switch d.Linkage {
			case "peer", "parent_child":
			default:
				return fmt.Errorf("service %q: dependency %q: linkage must be peer or parent_child", s.Name, d.Name)
			}
		}
	}

	for _, s := range c.Services {
		for _, d := range s.Dependencies {
			if !seen[d.Name] {
				return fmt.Errorf("service %q: dependency %q is not declared in this config", s.Name, d.Name)
			}
		}
	}

	return nil
}

// Load reads the YAML config at path, applies defaults, and validates it.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding YAML config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
