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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/internal/version"
)

// Scenario parameters. The voting supply is 1,000,000 and the quorum is 4%
const (
	simAdmin        = "admin"
	simVoterAlice   = "alice"
	simVoterBob     = "bob"
	simVoterCarol   = "carol"
	simVotingDelay  = 1
	simVotingPeriod = 100
	simMinDelay     = 10
)

func simGenesis() map[string]uint64 {
	return map[string]uint64{
		simAdmin:      910_000,
		simVoterAlice: 40_000,
		simVoterBob:   40_000,
		simVoterCarol: 10_000,
	}
}

type simulation struct {
	node   *gavel.Node
	out    io.Writer
	states map[action.Hash]governor.State
	names  map[action.Hash]string
}

// Simulate runs the reference governance scenario against an in-memory node
// and writes each proposal state transition and rejected operation to w
func Simulate(ctx context.Context, logger *slog.Logger, w io.Writer) error {
	n, err := gavel.New(
		gavel.NewConfig(
			gavel.WithLogger(logger),
			gavel.WithHeightInterval(0),
			gavel.WithInitialAdmin(simAdmin),
			gavel.WithGenesisBalances(simGenesis()),
			gavel.WithMinimumDelay(simMinDelay),
			gavel.WithGovernorConfig(gavel.GovernorConfig{
				VotingDelay:       simVotingDelay,
				VotingPeriod:      simVotingPeriod,
				QuorumNumerator:   gavel.DefaultQuorumNumerator,
				QuorumDenominator: gavel.DefaultQuorumDenominator,
			}),
			gavel.WithVersion(version.GetVersionString()),
		),
	)
	if err != nil {
		return err
	}
	if err := n.Start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	sim := &simulation{
		node:   n,
		out:    w,
		states: make(map[action.Hash]governor.State),
		names:  make(map[action.Hash]string),
	}
	err = sim.run(ctx)
	return errors.Join(err, n.Stop())
}

func (s *simulation) run(ctx context.Context) error {
	gov := s.node.Governor()
	s.printf(
		"quorum %d of supply %d",
		governor.QuorumEvaluator{
			Numerator:   gavel.DefaultQuorumNumerator,
			Denominator: gavel.DefaultQuorumDenominator,
		}.Quorum(s.node.Ledger().TotalSupply()),
		s.node.Ledger().TotalSupply(),
	)
	if err := s.advance(1); err != nil {
		return err
	}
	passing, err := s.propose(50, "setting Box Value 50")
	if err != nil {
		return err
	}
	lowTurnout, err := s.propose(99, "setting Box Value 99")
	if err != nil {
		return err
	}
	if err := s.advance(simVotingDelay); err != nil {
		return err
	}
	for _, voter := range []string{simVoterAlice, simVoterBob} {
		if err := s.vote(passing, voter); err != nil {
			return err
		}
	}
	if err := s.vote(lowTurnout, simVoterCarol); err != nil {
		return err
	}
	// Attempting to vote twice is rejected
	s.expectRejected("second vote by "+simVoterAlice, s.vote(passing, simVoterAlice))
	if err := s.advance(simVotingPeriod + 1); err != nil {
		return err
	}
	opID, err := gov.Queue(passing)
	if err != nil {
		return err
	}
	s.printf("queued %s as operation %s", s.names[passing], opID)
	s.report()
	_, err = gov.Queue(lowTurnout)
	s.expectRejected("queue "+s.names[lowTurnout], err)
	s.expectRejected("early execute "+s.names[passing], gov.Execute(ctx, passing))
	if err := s.advance(simMinDelay); err != nil {
		return err
	}
	if err := gov.Execute(ctx, passing); err != nil {
		return err
	}
	s.report()
	s.printf("box value %d", s.node.Box().Value())
	s.expectRejected(
		"second execute of operation "+opID.String(),
		s.node.Timelock().Execute(ctx, gov.Account(), opID),
	)
	return nil
}

func (s *simulation) propose(value uint64, description string) (action.Hash, error) {
	id, err := s.node.Governor().ProposeBatch(
		simAdmin,
		[]string{action.BoxTargetName},
		[]uint64{0},
		[][]byte{action.SetValueCalldata(value)},
		description,
	)
	if err != nil {
		return action.Hash{}, err
	}
	s.names[id] = fmt.Sprintf("%q", description)
	s.printf("proposed %s as %s", s.names[id], id)
	s.report()
	return id, nil
}

func (s *simulation) vote(id action.Hash, voter string) error {
	weight, err := s.node.Governor().CastVote(governor.Ballot{
		ProposalID: id,
		Voter:      voter,
		Support:    governor.SupportFor,
	})
	if err != nil {
		return err
	}
	s.printf("%s voted For %s with weight %d", voter, s.names[id], weight)
	return nil
}

func (s *simulation) advance(count uint64) error {
	height, err := s.node.Advance(count)
	if err != nil {
		return err
	}
	s.printf("advanced to height %d", height)
	s.report()
	return nil
}

// report prints every proposal whose derived state changed since the last call
func (s *simulation) report() {
	gov := s.node.Governor()
	for _, p := range gov.Proposals() {
		state, err := gov.State(p.ID)
		if err != nil {
			s.printf("proposal %s: %s", s.names[p.ID], err)
			continue
		}
		prev, seen := s.states[p.ID]
		if seen && prev == state {
			continue
		}
		s.states[p.ID] = state
		if !seen {
			s.printf("proposal %s is %s", s.names[p.ID], state)
			continue
		}
		s.printf("proposal %s: %s -> %s", s.names[p.ID], prev, state)
	}
}

func (s *simulation) expectRejected(what string, err error) {
	if err == nil {
		s.printf("%s: unexpectedly accepted", what)
		return
	}
	s.printf("%s rejected: %s", what, err)
}

func (s *simulation) printf(format string, args ...any) {
	fmt.Fprintf(
		s.out,
		"[%d] %s\n",
		s.node.Clock().CurrentHeight(),
		fmt.Sprintf(format, args...),
	)
}
