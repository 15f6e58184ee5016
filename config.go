// Copyright 2026 Blink Labs Software
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

package gavel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultVotingDelay       = 7200
	DefaultVotingPeriod      = 50400
	DefaultQuorumNumerator   = 4
	DefaultQuorumDenominator = 100
	DefaultMinimumDelay      = 3600
	DefaultHeightInterval    = time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultAdminAccount      = "admin"
)

// GovernorConfig holds the proposal lifecycle parameters. Heights are
// counted in clock ticks
type GovernorConfig struct {
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold uint64
	QuorumNumerator   uint64
	QuorumDenominator uint64
	// GracePeriod of 0 disables expiry of succeeded proposals
	GracePeriod uint64
}

func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		VotingDelay:       DefaultVotingDelay,
		VotingPeriod:      DefaultVotingPeriod,
		QuorumNumerator:   DefaultQuorumNumerator,
		QuorumDenominator: DefaultQuorumDenominator,
	}
}

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	apiListenAddress string
	initialAdmin     string
	version          string
	genesisBalances  map[string]uint64
	governorConfig   GovernorConfig
	minimumDelay     uint64
	startHeight      uint64
	heightInterval   time.Duration
	shutdownTimeout  time.Duration
	tracing          bool
	tracingStdout    bool
}

func (n *Node) configValidate() error {
	gc := n.config.governorConfig
	if gc.VotingPeriod == 0 {
		return errors.New("voting period must be at least 1")
	}
	if gc.QuorumDenominator == 0 {
		return errors.New("quorum denominator must not be zero")
	}
	if gc.QuorumNumerator > gc.QuorumDenominator {
		return fmt.Errorf(
			"quorum numerator (%d) exceeds denominator (%d)",
			gc.QuorumNumerator,
			gc.QuorumDenominator,
		)
	}
	if n.config.minimumDelay == 0 {
		return errors.New("minimum delay must be at least 1")
	}
	if n.config.heightInterval < 0 {
		return fmt.Errorf(
			"invalid height interval: %s",
			n.config.heightInterval,
		)
	}
	if n.config.initialAdmin == "" {
		return errors.New("no initial admin account")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new gavel config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		governorConfig:  DefaultGovernorConfig(),
		minimumDelay:    DefaultMinimumDelay,
		heightInterval:  DefaultHeightInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		initialAdmin:    DefaultAdminAccount,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithGovernorConfig specifies the voting delay, voting period, proposal threshold, quorum fraction and grace period
func WithGovernorConfig(governorConfig GovernorConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.governorConfig = governorConfig
	}
}

// WithMinimumDelay specifies the timelock minimum delay in heights. It only applies on first start, afterwards the
// delay is changed through governance
func WithMinimumDelay(delay uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.minimumDelay = delay
	}
}

// WithHeightInterval specifies the wall-clock duration of one height. A value of 0 disables the ticker so the
// height only moves through Advance
func WithHeightInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.heightInterval = interval
	}
}

// WithStartHeight specifies the clock height used when no height was recorded yet
func WithStartHeight(height uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.startHeight = height
	}
}

// WithInitialAdmin specifies the account deploying the timelock. On first start it grants the governor its roles
// and then gives up its own admin role
func WithInitialAdmin(account string) ConfigOptionFunc {
	return func(c *Config) {
		c.initialAdmin = account
	}
}

// WithApiListenAddress specifies the REST API listen address. An empty value disables the API
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithGenesisBalances specifies the voting token balances minted on first start
func WithGenesisBalances(balances map[string]uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisBalances = balances
	}
}

// WithVersion specifies the version string reported by the API
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}
