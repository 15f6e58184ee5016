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

package node

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		BlobPlugin:        config.DefaultBlobPlugin,
		MetadataPlugin:    config.DefaultMetadataPlugin,
		BindAddr:          "127.0.0.1",
		ShutdownTimeout:   "5s",
		HeightInterval:    "10ms",
		AdminAccount:      "admin",
		VotingDelay:       1,
		VotingPeriod:      5,
		QuorumNumerator:   4,
		QuorumDenominator: 100,
		MinimumDelay:      10,
		GenesisBalances:   map[string]uint64{"admin": 1000},
	}
}

func freePort(t *testing.T) uint {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return uint(port)
}

func TestNodeOptions(t *testing.T) {
	cfg := testConfig()
	opts, err := nodeOptions(cfg, testLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	cfg.ShutdownTimeout = "later"
	_, err = nodeOptions(cfg, testLogger())
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testConfig()
	cfg.HeightInterval = "-1s"
	_, err = nodeOptions(cfg, testLogger())
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testConfig()
	cfg.MetricsPort = freePort(t)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg, testLogger())
	}()

	metricsURL := "http://127.0.0.1:" + strconv.Itoa(int(cfg.MetricsPort)) + "/metrics"
	testutil.WaitForCondition(t, func() bool {
		resp, err := http.Get(metricsURL) //nolint:noctx
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		return resp.StatusCode == http.StatusOK &&
			strings.Contains(string(body), "gavel_clock_height")
	}, 5*time.Second, "metrics endpoint")

	cancel()
	require.NoError(t, testutil.RequireReceive(t, errCh, 10*time.Second, "node stop"))
	http.DefaultClient.CloseIdleConnections()
}

func TestRunMetricsPortInUse(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testConfig()
	cfg.MetricsPort = uint(l.Addr().(*net.TCPAddr).Port)
	err = Run(t.Context(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics listener")
}

func TestRunInvalidConfig(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testConfig()
	cfg.AdminAccount = ""
	require.Error(t, Run(t.Context(), cfg, testLogger()))
}

func TestSimulate(t *testing.T) {
	defer goleak.VerifyNone(t)
	var out bytes.Buffer
	require.NoError(t, Simulate(t.Context(), testLogger(), &out))

	output := out.String()
	for _, expected := range []string{
		"quorum 40000 of supply 1000000",
		`proposal "setting Box Value 50": Pending -> Active`,
		`proposal "setting Box Value 50": Active -> Succeeded`,
		`proposal "setting Box Value 99": Active -> Defeated`,
		`queue "setting Box Value 99" rejected`,
		`early execute "setting Box Value 50" rejected`,
		`proposal "setting Box Value 50": Succeeded -> Queued`,
		`proposal "setting Box Value 50": Queued -> Executed`,
		"box value 50",
		"second execute of operation",
	} {
		assert.Contains(t, output, expected)
	}
	assert.NotContains(t, output, "unexpectedly accepted")
	assert.Equal(t, 4, strings.Count(output, " rejected: "))
}
