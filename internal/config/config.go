package config

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/viper"

	"github.com/jakenelson/devdock/internal/container"
	"github.com/jakenelson/devdock/internal/ports"
	"github.com/jakenelson/devdock/internal/shell"
)

// Config represents the full configuration structure
type Config struct {
	Docker    DockerConfig    `mapstructure:"docker" yaml:"docker"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Shell     ShellConfig     `mapstructure:"shell" yaml:"shell"`
	Ports     PortsConfig     `mapstructure:"ports" yaml:"ports"`
	Container ContainerConfig `mapstructure:"container" yaml:"container"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// DockerConfig configures the container CLI used in dispatched commands
type DockerConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// EngineConfig selects how cleanup and availability checks reach Docker
type EngineConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // cli, api
}

// ShellConfig configures the shell that runs command plans
type ShellConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PortsConfig configures host port allocation
type PortsConfig struct {
	Min         int `mapstructure:"min" yaml:"min"`
	Max         int `mapstructure:"max" yaml:"max"`
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ContainerConfig configures container runtime settings
type ContainerConfig struct {
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit"` // e.g., "4g", empty for no limit
}

// LogConfig configures diagnostic logging
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// LoadConfig loads configuration from viper with defaults
func LoadConfig() *Config {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		// Return defaults on error
		return DefaultConfig()
	}
	return cfg
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case BackendCLI, BackendAPI:
	default:
		return fmt.Errorf("invalid engine.backend %q (allowed: %s, %s)", c.Engine.Backend, BackendCLI, BackendAPI)
	}

	if c.Ports.Min < 1 || c.Ports.Max > 65535 || c.Ports.Min > c.Ports.Max {
		return fmt.Errorf("invalid port range %d-%d", c.Ports.Min, c.Ports.Max)
	}
	if c.Ports.MaxAttempts < 1 {
		return fmt.Errorf("ports.max_attempts must be positive, got %d", c.Ports.MaxAttempts)
	}

	if c.Container.MemoryLimit != "" {
		if _, err := units.RAMInBytes(c.Container.MemoryLimit); err != nil {
			return fmt.Errorf("invalid container.memory_limit %q: %w", c.Container.MemoryLimit, err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("docker.binary", container.DefaultBinary)
	viper.SetDefault("engine.backend", BackendCLI)
	viper.SetDefault("shell.path", shell.DefaultShell)

	viper.SetDefault("ports.min", ports.DefaultMin)
	viper.SetDefault("ports.max", ports.DefaultMax)
	viper.SetDefault("ports.max_attempts", ports.DefaultMaxAttempts)

	viper.SetDefault("container.memory_limit", "")
	viper.SetDefault("log.level", LogWarn)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Docker: DockerConfig{
			Binary: container.DefaultBinary,
		},
		Engine: EngineConfig{
			Backend: BackendCLI,
		},
		Shell: ShellConfig{
			Path: shell.DefaultShell,
		},
		Ports: PortsConfig{
			Min:         ports.DefaultMin,
			Max:         ports.DefaultMax,
			MaxAttempts: ports.DefaultMaxAttempts,
		},
		Container: ContainerConfig{
			MemoryLimit: "",
		},
		Log: LogConfig{
			Level: LogWarn,
		},
	}
}
