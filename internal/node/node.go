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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// nodeOptions translates the loaded config into node options
func nodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]gavel.ConfigOptionFunc, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	heightInterval, err := cfg.HeightIntervalDuration()
	if err != nil {
		return nil, err
	}
	opts := []gavel.ConfigOptionFunc{
		gavel.WithLogger(logger),
		gavel.WithDatabasePath(cfg.DatabasePath),
		gavel.WithBlobPlugin(cfg.BlobPlugin),
		gavel.WithMetadataPlugin(cfg.MetadataPlugin),
		gavel.WithShutdownTimeout(shutdownTimeout),
		gavel.WithHeightInterval(heightInterval),
		gavel.WithInitialAdmin(cfg.AdminAccount),
		gavel.WithGenesisBalances(cfg.GenesisBalances),
		gavel.WithMinimumDelay(cfg.MinimumDelay),
		gavel.WithGovernorConfig(gavel.GovernorConfig{
			VotingDelay:       cfg.VotingDelay,
			VotingPeriod:      cfg.VotingPeriod,
			ProposalThreshold: cfg.ProposalThreshold,
			QuorumNumerator:   cfg.QuorumNumerator,
			QuorumDenominator: cfg.QuorumDenominator,
			GracePeriod:       cfg.GracePeriod,
		}),
		gavel.WithTracing(cfg.TracingEnabled),
		gavel.WithTracingStdout(cfg.TracingStdout),
		gavel.WithVersion(version.GetVersionString()),
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			gavel.WithApiListenAddress(
				net.JoinHostPort(cfg.BindAddr, fmt.Sprint(cfg.ApiPort)),
			),
		)
	}
	return opts, nil
}

// Run starts a node from the config and blocks until ctx is done, SIGINT or
// SIGTERM is received, or the node or metrics listener fails
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := nodeOptions(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ShutdownTimeoutDuration()
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts = append(opts, gavel.WithPrometheusRegistry(promRegistry))

	// The metrics listener is bound before the node is created
	var metricsListener net.Listener
	if cfg.MetricsPort > 0 {
		metricsListener, err = net.Listen(
			"tcp",
			net.JoinHostPort(cfg.BindAddr, fmt.Sprint(cfg.MetricsPort)),
		)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
	}
	n, err := gavel.New(gavel.NewConfig(opts...))
	if err != nil {
		if metricsListener != nil {
			metricsListener.Close()
		}
		return err
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	runCtx, runCancel := context.WithCancel(signalCtx)
	defer runCancel()
	g, gctx := errgroup.WithContext(runCtx)

	// Metrics listener
	if metricsListener != nil {
		listener := metricsListener
		mux := http.NewServeMux()
		mux.Handle(
			"/metrics",
			promhttp.HandlerFor(
				promRegistry,
				promhttp.HandlerOpts{Registry: promRegistry},
			),
		)
		metricsServer := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+listener.Addr().String(),
			"component", "node",
		)
		g.Go(func() error {
			err := metricsServer.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(
					"metrics server shutdown error",
					"component", "node",
					"error", err,
				)
			}
			return nil
		})
	}

	// Run node
	g.Go(func() error {
		//nolint:contextcheck
		err := n.Run(gctx)
		// A node stopping on its own takes the metrics listener down with it
		runCancel()
		return err
	})

	err = g.Wait()
	if signalCtx.Err() != nil {
		logger.Info("signal received, shutdown complete", "component", "node")
	}
	if err != nil {
		logger.Error("node error", "component", "node", "error", err)
		return err
	}
	logger.Info("node stopped", "component", "node")
	return nil
}
