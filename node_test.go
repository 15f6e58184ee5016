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

package gavel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/api"
	"github.com/blinklabs-io/gavel/governor"
	internaltest "github.com/blinklabs-io/gavel/internal/test/testutil"
	"github.com/blinklabs-io/gavel/timelock"
)

const (
	testAdmin    = "admin"
	testVoter1   = "voter1"
	testVoter2   = "voter2"
	testMinDelay = 10
)

func testOptions(opts ...gavel.ConfigOptionFunc) []gavel.ConfigOptionFunc {
	return append(
		[]gavel.ConfigOptionFunc{
			gavel.WithGovernorConfig(gavel.GovernorConfig{
				VotingDelay:       1,
				VotingPeriod:      5,
				QuorumNumerator:   4,
				QuorumDenominator: 100,
			}),
			gavel.WithMinimumDelay(testMinDelay),
			gavel.WithHeightInterval(0),
			gavel.WithInitialAdmin(testAdmin),
			gavel.WithGenesisBalances(map[string]uint64{
				testAdmin:  920_000,
				testVoter1: 40_000,
				testVoter2: 40_000,
			}),
		},
		opts...,
	)
}

func startNode(t *testing.T, opts ...gavel.ConfigOptionFunc) *gavel.Node {
	t.Helper()
	n, err := gavel.New(gavel.NewConfig(testOptions(opts...)...))
	require.NoError(t, err)
	require.NoError(t, n.Start(t.Context()))
	return n
}

func advance(t *testing.T, n *gavel.Node, count uint64) {
	t.Helper()
	_, err := n.Advance(count)
	require.NoError(t, err)
}

func TestNodeInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opt  gavel.ConfigOptionFunc
	}{
		{
			name: "zero voting period",
			opt: gavel.WithGovernorConfig(gavel.GovernorConfig{
				QuorumNumerator:   4,
				QuorumDenominator: 100,
			}),
		},
		{
			name: "zero quorum denominator",
			opt: gavel.WithGovernorConfig(gavel.GovernorConfig{
				VotingPeriod: 10,
			}),
		},
		{
			name: "quorum above one",
			opt: gavel.WithGovernorConfig(gavel.GovernorConfig{
				VotingPeriod:      10,
				QuorumNumerator:   101,
				QuorumDenominator: 100,
			}),
		},
		{
			name: "zero minimum delay",
			opt:  gavel.WithMinimumDelay(0),
		},
		{
			name: "no admin",
			opt:  gavel.WithInitialAdmin(""),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := gavel.New(gavel.NewConfig(test.opt))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestNodeDefaultConfig(t *testing.T) {
	n, err := gavel.New(gavel.NewConfig())
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	assert.Equal(t, uint64(7200), gavel.DefaultGovernorConfig().VotingDelay)
	assert.Equal(t, uint64(50400), gavel.DefaultGovernorConfig().VotingPeriod)
}

func TestNodeEndToEnd(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := startNode(
		t,
		gavel.WithPrometheusRegistry(reg),
		gavel.WithApiListenAddress("127.0.0.1:0"),
	)
	defer n.Stop() //nolint:errcheck

	_, executed := n.EventBus().Subscribe(governor.ProposalExecutedEventType)

	// The deploying admin handed the timelock over to the governor
	gov := n.Governor()
	tl := n.Timelock()
	assert.False(t, tl.HasRole(timelock.RoleAdmin, testAdmin))
	assert.True(t, tl.HasRole(timelock.RoleProposer, gov.Account()))
	assert.True(t, tl.HasRole(timelock.RoleExecutor, gov.Account()))
	assert.Equal(t, uint64(1_000_000), n.Ledger().TotalSupply())

	advance(t, n, 1)
	id, err := gov.ProposeBatch(
		testAdmin,
		[]string{action.BoxTargetName},
		[]uint64{0},
		[][]byte{action.SetValueCalldata(50)},
		"setting Box Value 50",
	)
	require.NoError(t, err)
	advance(t, n, 1)
	for _, voter := range []string{testVoter1, testVoter2} {
		_, err := gov.CastVote(governor.Ballot{
			ProposalID: id,
			Voter:      voter,
			Support:    governor.SupportFor,
		})
		require.NoError(t, err)
	}
	advance(t, n, 6)
	_, err = gov.Queue(id)
	require.NoError(t, err)
	require.ErrorIs(t, gov.Execute(t.Context(), id), governor.ErrNotReady)
	advance(t, n, testMinDelay)
	require.NoError(t, gov.Execute(t.Context(), id))
	assert.Equal(t, uint64(50), n.Box().Value())

	evt := internaltest.RequireReceive(t, executed, time.Second, "executed event")
	assert.Equal(t, id, evt.Data.(governor.ProposalExecutedEvent).ID)
	assert.InDelta(
		t,
		float64(n.Clock().CurrentHeight()),
		gaugeValue(t, reg, "gavel_clock_height"),
		0,
	)
	count, err := testutil.GatherAndCount(reg, "gavel_governor_proposals_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	addr := n.ApiAddr()
	require.NotNil(t, addr)
	resp, err := http.Get(
		"http://" + addr.String() + "/api/v0/proposals/" + id.String(),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var proposal api.ProposalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposal))
	assert.Equal(t, governor.StateExecuted, proposal.State)
	assert.Equal(t, uint64(80_000), proposal.Tally.For)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.NotEmpty(t, family.GetMetric())
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.FailNow(t, "metric not found", name)
	return 0
}

func TestNodeRestart(t *testing.T) {
	dir := t.TempDir()
	n := startNode(t, gavel.WithDatabasePath(dir))
	advance(t, n, 1)
	id, err := n.Governor().ProposeBatch(
		testAdmin,
		[]string{action.BoxTargetName},
		[]uint64{0},
		[][]byte{action.SetValueCalldata(7)},
		"persisted",
	)
	require.NoError(t, err)
	advance(t, n, 1)
	_, err = n.Governor().CastVote(governor.Ballot{
		ProposalID: id,
		Voter:      testVoter1,
		Support:    governor.SupportFor,
	})
	require.NoError(t, err)
	height := n.Clock().CurrentHeight()
	require.NoError(t, n.Stop())

	// Genesis balances and role wiring are only applied once
	n = startNode(
		t,
		gavel.WithDatabasePath(dir),
		gavel.WithGenesisBalances(map[string]uint64{"late": 1}),
	)
	defer n.Stop() //nolint:errcheck
	assert.Equal(t, height, n.Clock().CurrentHeight())
	assert.Equal(t, uint64(1_000_000), n.Ledger().TotalSupply())
	assert.Equal(t, uint64(0), n.Ledger().Balance("late"))
	assert.False(t, n.Timelock().HasRole(timelock.RoleAdmin, testAdmin))

	state, err := n.Governor().State(id)
	require.NoError(t, err)
	assert.Equal(t, governor.StateActive, state)
	voted, err := n.Governor().HasVoted(id, testVoter1)
	require.NoError(t, err)
	assert.True(t, voted)
	tally, err := n.Governor().ProposalVotes(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(40_000), tally.For)
}

func TestNodeStartTwice(t *testing.T) {
	n := startNode(t)
	defer n.Stop() //nolint:errcheck
	require.Error(t, n.Start(context.Background()))
}

func TestNodeRunStopsOnCancel(t *testing.T) {
	n, err := gavel.New(gavel.NewConfig(testOptions()...))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	cancel()
	require.NoError(t, <-errCh)
	// Stopping again is a no-op
	require.NoError(t, n.Stop())
}
