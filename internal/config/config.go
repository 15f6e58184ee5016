// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gavel.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultHeightInterval  = "1s"
	DefaultAdminAccount    = "admin"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

var ErrInvalidConfig = errors.New("invalid config")

type tempConfig struct {
	Config   map[string]any            `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"                                             split_words:"true"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"DATABASE_METADATA_PLUGIN"`
	BindAddr        string `yaml:"bindAddr"                                                 split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                          split_words:"true"`
	HeightInterval  string `yaml:"heightInterval"                                           split_words:"true"`
	AdminAccount    string `yaml:"adminAccount"                                             split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"                                              split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"                                                  split_words:"true"`
	// Governance parameters, in heights
	VotingDelay       uint64 `yaml:"votingDelay"       split_words:"true"`
	VotingPeriod      uint64 `yaml:"votingPeriod"      split_words:"true"`
	ProposalThreshold uint64 `yaml:"proposalThreshold" split_words:"true"`
	QuorumNumerator   uint64 `yaml:"quorumNumerator"   split_words:"true"`
	QuorumDenominator uint64 `yaml:"quorumDenominator" split_words:"true"`
	GracePeriod       uint64 `yaml:"gracePeriod"       split_words:"true"`
	MinimumDelay      uint64 `yaml:"minimumDelay"      split_words:"true"`
	// GenesisBalances are minted on first start. The environment form is
	// account:amount,account:amount
	GenesisBalances map[string]uint64 `yaml:"genesisBalances" split_words:"true"`
	TracingEnabled  bool              `yaml:"tracingEnabled"  split_words:"true"`
	TracingStdout   bool              `yaml:"tracingStdout"   split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:      ".gavel",
		BlobPlugin:        DefaultBlobPlugin,
		MetadataPlugin:    DefaultMetadataPlugin,
		BindAddr:          "0.0.0.0",
		ShutdownTimeout:   DefaultShutdownTimeout,
		HeightInterval:    DefaultHeightInterval,
		AdminAccount:      DefaultAdminAccount,
		MetricsPort:       12798,
		ApiPort:           8080,
		VotingDelay:       7200,
		VotingPeriod:      50400,
		ProposalThreshold: 0,
		QuorumNumerator:   4,
		QuorumDenominator: 100,
		GracePeriod:       0,
		MinimumDelay:      3600,
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.gavel/gavel.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gavel", "gavel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/gavel/gavel.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/gavel/gavel.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process("gavel", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// If config section exists, use it for main config
	if tempCfg.Config != nil {
		// Overlay only the keys present onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
		// Otherwise unmarshal the whole file as main config
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	// Handle database section if present
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			mergePluginSection(
				pluginConfig,
				"blob",
				tempCfg.Database.Blob,
				&globalConfig.BlobPlugin,
			)
		}
		if tempCfg.Database.Metadata != nil {
			mergePluginSection(
				pluginConfig,
				"metadata",
				tempCfg.Database.Metadata,
				&globalConfig.MetadataPlugin,
			)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf(
				"error processing plugin config: %w",
				err,
			)
		}
	}
	return nil
}

// mergePluginSection folds a database.<type> section into the plugin
// config. A "plugin" key selects the plugin, every other key is a per-plugin
// option map
func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
	pluginName *string,
) {
	// Extract plugin name if specified
	if pluginVal, exists := section["plugin"]; exists {
		if name, ok := pluginVal.(string); ok {
			*pluginName = name
			delete(section, "plugin")
		}
	}
	typeConfig := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			typeConfig[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			typeConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	// Merge with existing config instead of overwriting
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = typeConfig
	} else {
		maps.Copy(pluginConfig[pluginType], typeConfig)
	}
}

// Validate checks the governance parameters and durations
func (c *Config) Validate() error {
	if c.VotingPeriod == 0 {
		return fmt.Errorf("%w: votingPeriod must be at least 1", ErrInvalidConfig)
	}
	if c.QuorumDenominator == 0 {
		return fmt.Errorf("%w: quorumDenominator must not be zero", ErrInvalidConfig)
	}
	if c.QuorumNumerator > c.QuorumDenominator {
		return fmt.Errorf(
			"%w: quorumNumerator (%d) exceeds quorumDenominator (%d)",
			ErrInvalidConfig,
			c.QuorumNumerator,
			c.QuorumDenominator,
		)
	}
	if c.MinimumDelay == 0 {
		return fmt.Errorf("%w: minimumDelay must be at least 1", ErrInvalidConfig)
	}
	if c.AdminAccount == "" {
		return fmt.Errorf("%w: adminAccount must not be empty", ErrInvalidConfig)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.HeightIntervalDuration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	return parseDuration("shutdownTimeout", c.ShutdownTimeout, DefaultShutdownTimeout)
}

// HeightIntervalDuration returns the wall-clock duration of one height. 0
// disables the ticker
func (c *Config) HeightIntervalDuration() (time.Duration, error) {
	return parseDuration("heightInterval", c.HeightInterval, DefaultHeightInterval)
}

func parseDuration(name string, val string, def string) (time.Duration, error) {
	if val == "" {
		val = def
	}
	ret, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	if ret < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
	}
	return ret, nil
}

// ListPlugins writes the available plugins and returns ErrPluginListRequested
// when either plugin name is "list"
func (c *Config) ListPlugins(w io.Writer) error {
	listed := false
	if c.BlobPlugin == "list" {
		fmt.Fprintln(w, "Available blob plugins:")
		for _, p := range plugin.GetPlugins(plugin.PluginTypeBlob) {
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Description)
		}
		listed = true
	}
	if c.MetadataPlugin == "list" {
		fmt.Fprintln(w, "Available metadata plugins:")
		for _, p := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Description)
		}
		listed = true
	}
	if listed {
		return ErrPluginListRequested
	}
	return nil
}

func GetConfig() *Config {
	return globalConfig
}
