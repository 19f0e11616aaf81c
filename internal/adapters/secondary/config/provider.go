// Package config loads trustfabric configuration from files and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// Provider loads configuration through viper, layering an optional YAML
// file and TRUSTFABRIC_* environment variables over the interoperable
// defaults.
type Provider struct {
	v *viper.Viper
}

// NewProvider creates a configuration provider.
func NewProvider() *Provider {
	v := viper.New()
	v.SetEnvPrefix("TRUSTFABRIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Provider{v: v}
}

// Set forces a configuration value, taking precedence over the file and
// the environment. Used for command-line overrides.
func (p *Provider) Set(key string, value any) {
	p.v.Set(key, value)
}

// Load reads the configuration file at path (optional, empty means
// defaults plus environment) and returns a validated configuration.
func (p *Provider) Load(path string) (*ports.Configuration, error) {
	defaults := ports.DefaultConfiguration(p.v.GetString("network.domain"))
	p.v.SetDefault("storage.root", defaults.Storage.Root)

	if path != "" {
		p.v.SetConfigFile(path)
		if err := p.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config := ports.DefaultConfiguration(p.v.GetString("network.domain"))
	if err := p.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
