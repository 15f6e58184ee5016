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

package governor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/blinklabs-io/gavel/votes"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAccount is the identity the governor uses towards the timelock
const DefaultAccount = "governor"

// Timelock is the part of the timelock the governor depends on
type Timelock interface {
	Schedule(
		caller string,
		calls []action.Call,
		predecessor action.Hash,
		salt action.Hash,
		delay uint64,
	) (action.Hash, error)
	Execute(ctx context.Context, caller string, id action.Hash) error
	OperationState(id action.Hash) timelock.OperationState
	Operation(id action.Hash) (timelock.Operation, error)
	MinDelay() uint64
}

// Store persists proposals. SaveProposal stores the record without its
// receipts. RecordVote stores a receipt together with the updated tally and
// must be atomic
type Store interface {
	SaveProposal(Proposal) error
	RecordVote(id action.Hash, tally Tally, receipt Receipt) error
	LoadProposals() ([]Proposal, error)
}

type Config struct {
	// Account is the governor's identity on the timelock
	Account           string
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold uint64
	QuorumNumerator   uint64
	QuorumDenominator uint64
	// GracePeriod is the number of heights after the voting window a
	// succeeded proposal may still be queued. 0 disables expiry
	GracePeriod  uint64
	Oracle       votes.Oracle
	Clock        clock.HeightSource
	Timelock     Timelock
	Store        Store
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
}

// Governor owns proposals and drives them through their lifecycle
type Governor struct {
	mu                sync.Mutex
	account           string
	votingDelay       uint64
	votingPeriod      uint64
	proposalThreshold uint64
	gracePeriod       uint64
	quorum            QuorumEvaluator
	oracle            votes.Oracle
	clock             clock.HeightSource
	timelock          Timelock
	store             Store
	logger            *slog.Logger
	eventBus          event.Publisher
	metrics           *governorMetrics
	proposals         map[action.Hash]*Proposal
}

func New(cfg Config) (*Governor, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("%w: no voting power oracle provided", ErrInvalidConfig)
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("%w: no height source provided", ErrInvalidConfig)
	}
	if cfg.Timelock == nil {
		return nil, fmt.Errorf("%w: no timelock provided", ErrInvalidConfig)
	}
	if cfg.VotingPeriod == 0 {
		return nil, fmt.Errorf("%w: voting period must be at least 1", ErrInvalidConfig)
	}
	quorum := QuorumEvaluator{
		Numerator:   cfg.QuorumNumerator,
		Denominator: cfg.QuorumDenominator,
	}
	if err := quorum.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Account == "" {
		cfg.Account = DefaultAccount
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	g := &Governor{
		account:           cfg.Account,
		votingDelay:       cfg.VotingDelay,
		votingPeriod:      cfg.VotingPeriod,
		proposalThreshold: cfg.ProposalThreshold,
		gracePeriod:       cfg.GracePeriod,
		quorum:            quorum,
		oracle:            cfg.Oracle,
		clock:             cfg.Clock,
		timelock:          cfg.Timelock,
		store:             cfg.Store,
		logger:            cfg.Logger.With("component", "governor"),
		eventBus:          cfg.EventBus,
		proposals:         make(map[action.Hash]*Proposal),
	}
	if cfg.PromRegistry != nil {
		g.metrics = newGovernorMetrics(cfg.PromRegistry)
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Governor) load() error {
	if g.store == nil {
		return nil
	}
	proposals, err := g.store.LoadProposals()
	if err != nil {
		return fmt.Errorf("load proposals: %w", err)
	}
	for _, p := range proposals {
		tmpProposal := p.clone()
		g.proposals[p.ID] = &tmpProposal
	}
	if len(proposals) > 0 {
		g.logger.Info(
			"loaded proposals",
			"count", len(proposals),
		)
	}
	return nil
}

// Account returns the governor's identity on the timelock
func (g *Governor) Account() string {
	return g.account
}

func (g *Governor) VotingDelay() uint64 {
	return g.votingDelay
}

func (g *Governor) VotingPeriod() uint64 {
	return g.votingPeriod
}

func (g *Governor) ProposalThreshold() uint64 {
	return g.proposalThreshold
}

// Propose creates a proposal for a batch of calls. Voting opens after the
// voting delay and voting power is read at that height
func (g *Governor) Propose(
	proposer string,
	calls []action.Call,
	description string,
) (action.Hash, error) {
	descriptionHash := DescriptionHash(description)
	id, err := HashProposal(calls, descriptionHash)
	if err != nil {
		return action.Hash{}, g.rejected("propose", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	height := g.clock.CurrentHeight()
	if g.proposalThreshold > 0 {
		power, err := g.oracle.VotingPowerAt(proposer, height)
		if err != nil {
			return action.Hash{}, fmt.Errorf("proposer voting power: %w", err)
		}
		if power < g.proposalThreshold {
			return action.Hash{}, g.rejected(
				"propose",
				fmt.Errorf(
					"%w: %d < %d",
					ErrBelowProposalThreshold,
					power,
					g.proposalThreshold,
				),
			)
		}
	}
	if _, ok := g.proposals[id]; ok {
		return action.Hash{}, g.rejected(
			"propose",
			fmt.Errorf("%w: %s", ErrDuplicateProposal, id),
		)
	}
	if g.votingDelay > math.MaxUint64-height ||
		g.votingPeriod > math.MaxUint64-height-g.votingDelay {
		return action.Hash{}, g.rejected("propose", ErrHeightOverflow)
	}
	snapshot := height + g.votingDelay
	p := &Proposal{
		ID:              id,
		Proposer:        proposer,
		Calls:           action.CloneBatch(calls),
		Description:     description,
		DescriptionHash: descriptionHash,
		CreatedHeight:   height,
		SnapshotHeight:  snapshot,
		VoteStart:       snapshot,
		VoteEnd:         snapshot + g.votingPeriod,
		Receipts:        make(map[string]Receipt),
	}
	if g.store != nil {
		if err := g.store.SaveProposal(p.clone()); err != nil {
			return action.Hash{}, fmt.Errorf("save proposal: %w", err)
		}
	}
	g.proposals[id] = p
	if g.metrics != nil {
		g.metrics.proposals.Inc()
	}
	g.logger.Info(
		"proposal created",
		"proposal", id.String(),
		"proposer", proposer,
		"calls", len(calls),
		"vote_start", p.VoteStart,
		"vote_end", p.VoteEnd,
	)
	g.publish(
		ProposalCreatedEventType,
		ProposalCreatedEvent{
			ID:             id,
			Proposer:       proposer,
			Calls:          action.CloneBatch(calls),
			Description:    description,
			SnapshotHeight: snapshot,
			VoteEnd:        p.VoteEnd,
		},
	)
	return id, nil
}

// ProposeBatch is Propose with the calls given as index-aligned target,
// value and calldata sequences
func (g *Governor) ProposeBatch(
	proposer string,
	targets []string,
	values []uint64,
	calldatas [][]byte,
	description string,
) (action.Hash, error) {
	calls, err := action.NewBatch(targets, values, calldatas)
	if err != nil {
		return action.Hash{}, g.rejected("propose", err)
	}
	return g.Propose(proposer, calls, description)
}

// CastVote records a vote weighted by the voter's power at the proposal
// snapshot and returns the recorded weight
func (g *Governor) CastVote(ballot Ballot) (uint64, error) {
	if !ballot.Support.Valid() {
		return 0, g.rejected(
			"vote",
			fmt.Errorf("%w: %d", ErrInvalidVoteType, ballot.Support),
		)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(ballot.ProposalID)
	if err != nil {
		return 0, g.rejected("vote", err)
	}
	height := g.clock.CurrentHeight()
	state, err := g.stateAt(p, height)
	if err != nil {
		return 0, err
	}
	if state != StateActive {
		return 0, g.rejected("vote", NewStateError(p.ID, state, ErrNotActive))
	}
	if _, ok := p.Receipts[ballot.Voter]; ok {
		return 0, g.rejected(
			"vote",
			fmt.Errorf("%w: %s", ErrAlreadyVoted, ballot.Voter),
		)
	}
	power, err := g.oracle.VotingPowerAt(ballot.Voter, p.SnapshotHeight)
	if err != nil {
		return 0, fmt.Errorf("voter power at snapshot: %w", err)
	}
	weight := power
	if ballot.Weight != nil {
		if *ballot.Weight > power {
			return 0, g.rejected(
				"vote",
				fmt.Errorf(
					"%w: %d > %d",
					ErrWeightExceedsPower,
					*ballot.Weight,
					power,
				),
			)
		}
		weight = *ballot.Weight
	}
	tally, err := p.Tally.Add(ballot.Support, weight)
	if err != nil {
		return 0, g.rejected("vote", err)
	}
	receipt := Receipt{
		Voter:   ballot.Voter,
		Support: ballot.Support,
		Weight:  weight,
		Reason:  ballot.Reason,
		Height:  height,
	}
	if g.store != nil {
		if err := g.store.RecordVote(p.ID, tally, receipt); err != nil {
			return 0, fmt.Errorf("record vote: %w", err)
		}
	}
	p.Tally = tally
	if p.Receipts == nil {
		p.Receipts = make(map[string]Receipt)
	}
	p.Receipts[ballot.Voter] = receipt
	if g.metrics != nil {
		g.metrics.votes.WithLabelValues(ballot.Support.String()).Inc()
		g.metrics.voteWeight.WithLabelValues(ballot.Support.String()).Add(float64(weight))
	}
	g.logger.Info(
		"vote cast",
		"proposal", p.ID.String(),
		"voter", ballot.Voter,
		"support", ballot.Support.String(),
		"weight", weight,
	)
	g.publish(
		VoteCastEventType,
		VoteCastEvent{
			ProposalID: p.ID,
			Voter:      ballot.Voter,
			Support:    ballot.Support,
			Weight:     weight,
			Reason:     ballot.Reason,
		},
	)
	return weight, nil
}

// Queue schedules the calls of a succeeded proposal in the timelock with the
// timelock's minimum delay and returns the operation id
func (g *Governor) Queue(id action.Hash) (action.Hash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return action.Hash{}, g.rejected("queue", err)
	}
	state, err := g.stateAt(p, g.clock.CurrentHeight())
	if err != nil {
		return action.Hash{}, err
	}
	if state != StateSucceeded {
		return action.Hash{}, g.rejected("queue", NewStateError(id, state, ErrNotSucceeded))
	}
	salt := operationSalt(g.account, p.DescriptionHash)
	opID, err := timelock.HashOperation(p.Calls, action.ZeroHash, salt)
	if err != nil {
		return action.Hash{}, err
	}
	var op timelock.Operation
	if g.timelock.OperationState(opID) == timelock.OperationUnset {
		if _, err := g.timelock.Schedule(
			g.account,
			p.Calls,
			action.ZeroHash,
			salt,
			g.timelock.MinDelay(),
		); err != nil {
			return action.Hash{}, g.rejected(
				"queue",
				fmt.Errorf("schedule proposal %s: %w", id, err),
			)
		}
	} else {
		// An earlier queue scheduled the operation but failed to record it
		g.logger.Warn(
			"adopting already scheduled operation",
			"proposal", id.String(),
			"operation", opID.String(),
		)
	}
	op, err = g.timelock.Operation(opID)
	if err != nil {
		return action.Hash{}, fmt.Errorf("scheduled operation: %w", err)
	}
	updated := p.clone()
	updated.Queued = true
	updated.OperationID = opID
	updated.Eta = op.ReadyHeight
	if g.store != nil {
		if err := g.store.SaveProposal(updated.clone()); err != nil {
			return action.Hash{}, fmt.Errorf("save queued proposal: %w", err)
		}
	}
	p.Queued = true
	p.OperationID = opID
	p.Eta = op.ReadyHeight
	if g.metrics != nil {
		g.metrics.queued.Inc()
	}
	g.logger.Info(
		"proposal queued",
		"proposal", id.String(),
		"operation", opID.String(),
		"eta", p.Eta,
	)
	g.publish(
		ProposalQueuedEventType,
		ProposalQueuedEvent{
			ID:          id,
			OperationID: opID,
			Eta:         p.Eta,
		},
	)
	return opID, nil
}

// Execute runs a queued proposal through the timelock once its operation is
// ready
func (g *Governor) Execute(ctx context.Context, id action.Hash) error {
	g.mu.Lock()
	p, err := g.proposal(id)
	if err != nil {
		g.mu.Unlock()
		return g.rejected("execute", err)
	}
	state, err := g.stateAt(p, g.clock.CurrentHeight())
	if err != nil {
		g.mu.Unlock()
		return err
	}
	if state != StateQueued {
		g.mu.Unlock()
		return g.rejected("execute", NewStateError(id, state, ErrNotQueued))
	}
	opID := p.OperationID
	g.mu.Unlock()

	// The timelock guarantees exactly-once execution. Targets run without the
	// governor lock held
	if err := g.timelock.Execute(ctx, g.account, opID); err != nil {
		if errors.Is(err, timelock.ErrNotReady) {
			return g.rejected(
				"execute",
				fmt.Errorf("%w: proposal %s: %w", ErrNotReady, id, err),
			)
		}
		return g.rejected(
			"execute",
			fmt.Errorf("execute proposal %s: %w", id, err),
		)
	}
	height := g.clock.CurrentHeight()
	if g.metrics != nil {
		g.metrics.executed.Inc()
	}
	g.logger.Info(
		"proposal executed",
		"proposal", id.String(),
		"operation", opID.String(),
		"height", height,
	)
	g.publish(
		ProposalExecutedEventType,
		ProposalExecutedEvent{
			ID:          id,
			OperationID: opID,
			Height:      height,
		},
	)
	return nil
}

// Cancel withdraws a proposal before voting starts. Only the proposer may
// cancel
func (g *Governor) Cancel(id action.Hash, caller string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return g.rejected("cancel", err)
	}
	if caller != p.Proposer {
		return g.rejected(
			"cancel",
			fmt.Errorf("%w: %s", ErrNotProposer, caller),
		)
	}
	state, err := g.stateAt(p, g.clock.CurrentHeight())
	if err != nil {
		return err
	}
	if state != StatePending {
		return g.rejected("cancel", NewStateError(id, state, ErrNotPending))
	}
	updated := p.clone()
	updated.Canceled = true
	if g.store != nil {
		if err := g.store.SaveProposal(updated.clone()); err != nil {
			return fmt.Errorf("save canceled proposal: %w", err)
		}
	}
	p.Canceled = true
	if g.metrics != nil {
		g.metrics.canceled.Inc()
	}
	g.logger.Info(
		"proposal canceled",
		"proposal", id.String(),
		"caller", caller,
	)
	g.publish(
		ProposalCanceledEventType,
		ProposalCanceledEvent{
			ID:     id,
			Caller: caller,
		},
	)
	return nil
}

// State returns the derived state of a proposal at the current height
func (g *Governor) State(id action.Hash) (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}
	return g.stateAt(p, g.clock.CurrentHeight())
}

// Proposal returns a copy of the stored proposal
func (g *Governor) Proposal(id action.Hash) (Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return Proposal{}, err
	}
	return p.clone(), nil
}

// Proposals returns copies of all proposals ordered by creation height
func (g *Governor) Proposals() []Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	ret := make([]Proposal, 0, len(g.proposals))
	for _, p := range g.proposals {
		ret = append(ret, p.clone())
	}
	slices.SortFunc(ret, func(a, b Proposal) int {
		switch {
		case a.CreatedHeight < b.CreatedHeight:
			return -1
		case a.CreatedHeight > b.CreatedHeight:
			return 1
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return ret
}

// Receipt returns the vote of voter on a proposal. The boolean is false if
// the voter has not voted
func (g *Governor) Receipt(id action.Hash, voter string) (Receipt, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return Receipt{}, false, err
	}
	receipt, ok := p.Receipts[voter]
	return receipt, ok, nil
}

// HasVoted reports whether voter has voted on a proposal
func (g *Governor) HasVoted(id action.Hash, voter string) (bool, error) {
	_, ok, err := g.Receipt(id, voter)
	return ok, err
}

// ProposalVotes returns the current tally of a proposal
func (g *Governor) ProposalVotes(id action.Hash) (Tally, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.proposal(id)
	if err != nil {
		return Tally{}, err
	}
	return p.Tally, nil
}

// ProposalSnapshot returns the height voting power is read at
func (g *Governor) ProposalSnapshot(id action.Hash) (uint64, error) {
	p, err := g.Proposal(id)
	if err != nil {
		return 0, err
	}
	return p.SnapshotHeight, nil
}

// ProposalDeadline returns the last height votes are accepted at
func (g *Governor) ProposalDeadline(id action.Hash) (uint64, error) {
	p, err := g.Proposal(id)
	if err != nil {
		return 0, err
	}
	return p.VoteEnd, nil
}

// ProposalEta returns the height the queued operation becomes ready at, or
// 0 if the proposal was never queued
func (g *Governor) ProposalEta(id action.Hash) (uint64, error) {
	p, err := g.Proposal(id)
	if err != nil {
		return 0, err
	}
	return p.Eta, nil
}

// Quorum returns the quorum for the total supply at height
func (g *Governor) Quorum(height uint64) (uint64, error) {
	supply, err := g.oracle.TotalSupplyAt(height)
	if err != nil {
		return 0, fmt.Errorf("total supply: %w", err)
	}
	return g.quorum.Quorum(supply), nil
}

func (g *Governor) proposal(id action.Hash) (*Proposal, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	return p, nil
}

// stateAt derives the state of p. Callers must hold the lock
func (g *Governor) stateAt(p *Proposal, height uint64) (State, error) {
	in := StateInputs{
		Height:      height,
		VoteStart:   p.VoteStart,
		VoteEnd:     p.VoteEnd,
		Tally:       p.Tally,
		GracePeriod: g.gracePeriod,
		Canceled:    p.Canceled,
		Queued:      p.Queued,
	}
	if p.Queued {
		in.Operation = g.timelock.OperationState(p.OperationID)
	}
	if !p.Canceled && !p.Queued && height > p.VoteEnd {
		quorum, err := g.Quorum(p.SnapshotHeight)
		if err != nil {
			return 0, fmt.Errorf("proposal %s quorum: %w", p.ID, err)
		}
		in.Quorum = quorum
	}
	return DeriveState(in), nil
}

func (g *Governor) rejected(op string, err error) error {
	g.logger.Debug(
		"governor request rejected",
		"op", op,
		"error", err,
	)
	return err
}

func (g *Governor) publish(eventType event.EventType, data any) {
	if g.eventBus == nil {
		return
	}
	g.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
