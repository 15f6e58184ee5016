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
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/gavel/database/plugin/metadata/sqlite"
)

func resetGlobalConfig(t *testing.T) {
	t.Helper()
	globalConfig = defaultConfig()
	// Keep the user and system config files out of the way
	t.Setenv("HOME", t.TempDir())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "gavel.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, uint64(7200), cfg.VotingDelay)
	assert.Equal(t, uint64(50400), cfg.VotingPeriod)
	assert.Equal(t, uint64(3600), cfg.MinimumDelay)
	assert.Equal(t, uint(12798), cfg.MetricsPort)
	assert.Equal(t, uint(8080), cfg.ApiPort)
	interval, err := cfg.HeightIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, interval)
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
databasePath: "/var/lib/gavel"
bindAddr: "127.0.0.1"
shutdownTimeout: "10s"
heightInterval: "12s"
adminAccount: "deployer"
metricsPort: 9000
apiPort: 9001
votingDelay: 1
votingPeriod: 10
proposalThreshold: 100
quorumNumerator: 1
quorumDenominator: 10
gracePeriod: 20
minimumDelay: 5
genesisBalances:
  alice: 10
  bob: 20
`)
	expected := defaultConfig()
	expected.DatabasePath = "/var/lib/gavel"
	expected.BindAddr = "127.0.0.1"
	expected.ShutdownTimeout = "10s"
	expected.HeightInterval = "12s"
	expected.AdminAccount = "deployer"
	expected.MetricsPort = 9000
	expected.ApiPort = 9001
	expected.VotingDelay = 1
	expected.VotingPeriod = 10
	expected.ProposalThreshold = 100
	expected.QuorumNumerator = 1
	expected.QuorumDenominator = 10
	expected.GracePeriod = 20
	expected.MinimumDelay = 5
	expected.GenesisBalances = map[string]uint64{"alice": 10, "bob": 20}

	actual, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestLoad_ConfigSectionAndPlugins(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
config:
  votingPeriod: 42
database:
  blob:
    plugin: badger
    badger:
      block-cache-size: 1048576
  metadata:
    plugin: sqlite
    sqlite:
      max-connections: 2
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.VotingPeriod)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoad_UnknownPluginOption(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
database:
  blob:
    missing:
      data-dir: "/tmp"
`)
	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
votingPeriod: 10
`)
	t.Setenv("GAVEL_VOTING_PERIOD", "99")
	t.Setenv("GAVEL_API_PORT", "3000")
	t.Setenv("GAVEL_GENESIS_BALANCES", "alice:5,bob:6")
	t.Setenv("GAVEL_DATABASE_METADATA_PLUGIN", "sqlite")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.VotingPeriod)
	assert.Equal(t, uint(3000), cfg.ApiPort)
	assert.Equal(t, map[string]uint64{"alice": 5, "bob": 6}, cfg.GenesisBalances)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoad_BadFile(t *testing.T) {
	resetGlobalConfig(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	tmpFile := writeConfigFile(t, "votingPeriod: [")
	_, err = LoadConfig(tmpFile)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero voting period", func(c *Config) { c.VotingPeriod = 0 }},
		{"zero quorum denominator", func(c *Config) { c.QuorumDenominator = 0 }},
		{"quorum above one", func(c *Config) { c.QuorumNumerator = 101 }},
		{"zero minimum delay", func(c *Config) { c.MinimumDelay = 0 }},
		{"empty admin", func(c *Config) { c.AdminAccount = "" }},
		{"bad shutdown timeout", func(c *Config) { c.ShutdownTimeout = "soon" }},
		{"negative height interval", func(c *Config) { c.HeightInterval = "-1s" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := defaultConfig()
			test.modify(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
	require.NoError(t, defaultConfig().Validate())
}

func TestListPlugins(t *testing.T) {
	cfg := defaultConfig()
	var buf bytes.Buffer
	require.NoError(t, cfg.ListPlugins(&buf))
	assert.Empty(t, buf.String())

	cfg.BlobPlugin = "list"
	require.ErrorIs(t, cfg.ListPlugins(&buf), ErrPluginListRequested)
	assert.Contains(t, buf.String(), "Available blob plugins:")
	assert.Contains(t, buf.String(), "badger")
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(t.Context()))
	cfg := defaultConfig()
	ctx := WithContext(t.Context(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
