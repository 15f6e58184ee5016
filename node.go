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
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/api"
	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/blinklabs-io/gavel/votes"
)

var (
	ErrNotStarted = errors.New("node is not started")
	ErrStopped    = errors.New("node is stopped")
)

type Node struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	clock         *clock.Clock
	ticker        *clock.Ticker
	ledger        *votes.Ledger
	registry      *action.Registry
	box           *action.Box
	timelock      *timelock.Timelock
	governor      *governor.Governor
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	dbMu          sync.Mutex
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
	}
	if n.config.logger == nil {
		n.config.logger = NewConfig().logger
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n.eventBus = event.NewEventBus(cfg.promRegistry, n.config.logger)
	return n, nil
}

// Run starts the node and blocks until it is stopped or ctx is done
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	// Wait for shutdown signal
	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return n.Stop()
	}
}

// Start opens the database, restores the governance state and starts the
// height ticker and API server. It returns once the node is serving
func (n *Node) Start(ctx context.Context) error {
	err := errors.New("node already started")
	n.startOnce.Do(func() {
		err = n.start(ctx)
	})
	return err
}

func (n *Node) start(ctx context.Context) error {
	logger := n.config.logger
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(
		database.Config{
			Logger:         logger,
			BlobPlugin:     n.config.blobPlugin,
			MetadataPlugin: n.config.metadataPlugin,
			DataDir:        n.config.dataDir,
		},
	)
	if db != nil {
		n.dbMu.Lock()
		n.db = db
		n.dbMu.Unlock()
	}
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			logger.Error(
				"database stores are out of sync, refusing to start",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Restore clock
	startHeight := n.config.startHeight
	savedHeight, firstStart, err := n.loadHeight()
	if err != nil {
		return err
	}
	if !firstStart {
		startHeight = max(startHeight, savedHeight)
	}
	n.clock = clock.New(
		clock.Config{
			Start:        startHeight,
			Store:        nodeHeightStore{n: n},
			Logger:       logger,
			EventBus:     n.eventBus,
			PromRegistry: n.config.promRegistry,
		},
	)
	// Load voting ledger
	n.ledger, err = votes.NewLedger(
		votes.LedgerConfig{
			Clock:  n.clock,
			Store:  n.db,
			Logger: logger,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load voting ledger: %w", err)
	}
	// Register targets
	n.registry = action.NewRegistry()
	n.box = action.NewBox(timelock.DefaultAccount)
	if err := n.registry.Register(action.BoxTargetName, n.box); err != nil {
		return err
	}
	// Load timelock
	n.timelock, err = timelock.New(
		timelock.Config{
			Admin:        n.config.initialAdmin,
			MinDelay:     n.config.minimumDelay,
			Clock:        n.clock,
			Registry:     n.registry,
			Store:        n.db,
			Logger:       logger,
			EventBus:     n.eventBus,
			PromRegistry: n.config.promRegistry,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load timelock: %w", err)
	}
	// Load governor
	gc := n.config.governorConfig
	n.governor, err = governor.New(
		governor.Config{
			VotingDelay:       gc.VotingDelay,
			VotingPeriod:      gc.VotingPeriod,
			ProposalThreshold: gc.ProposalThreshold,
			QuorumNumerator:   gc.QuorumNumerator,
			QuorumDenominator: gc.QuorumDenominator,
			GracePeriod:       gc.GracePeriod,
			Oracle:            n.ledger,
			Clock:             n.clock,
			Timelock:          n.timelock,
			Store:             n.db,
			Logger:            logger,
			EventBus:          n.eventBus,
			PromRegistry:      n.config.promRegistry,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load governor: %w", err)
	}
	if firstStart {
		if err := n.bootstrap(); err != nil {
			return err
		}
	}
	// Start height ticker
	if n.config.heightInterval > 0 {
		n.ticker, err = clock.NewTicker(
			n.clock,
			n.config.heightInterval,
			logger,
		)
		if err != nil {
			return err
		}
		n.ticker.Start(ctx)
	}
	// Start API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
				Version:       n.config.version,
			},
			api.NewNodeAdapter(n.governor, n.timelock, n.ledger, n.clock),
			logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	logger.Info(
		"node started",
		"height", n.clock.CurrentHeight(),
		"proposals", len(n.governor.Proposals()),
		"min_delay", n.timelock.MinDelay(),
	)
	return nil
}

// loadHeight returns the recorded height and whether this is the first
// start against the database
func (n *Node) loadHeight() (uint64, bool, error) {
	height, found, err := n.db.LoadHeight()
	if err != nil {
		return 0, false, fmt.Errorf("failed to load height: %w", err)
	}
	return height, !found, nil
}

// bootstrap mints the genesis balances and hands the timelock over to the
// governor
func (n *Node) bootstrap() error {
	accounts := make([]string, 0, len(n.config.genesisBalances))
	for account := range n.config.genesisBalances {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	for _, account := range accounts {
		if err := n.ledger.Mint(account, n.config.genesisBalances[account]); err != nil {
			return fmt.Errorf("failed to mint genesis balance for %s: %w", account, err)
		}
	}
	if !n.timelock.HasRole(timelock.RoleProposer, n.governor.Account()) {
		if err := n.timelock.Wire(n.config.initialAdmin, n.governor.Account()); err != nil {
			return fmt.Errorf("failed to wire timelock roles: %w", err)
		}
	}
	if err := n.db.SaveHeight(n.clock.CurrentHeight()); err != nil {
		return fmt.Errorf("failed to save height: %w", err)
	}
	n.config.logger.Info(
		"bootstrapped governance",
		"accounts", len(accounts),
		"supply", n.ledger.TotalSupply(),
		"admin", n.config.initialAdmin,
	)
	return nil
}

// nodeHeightStore saves clock heights to the database while the node is
// running
type nodeHeightStore struct {
	n *Node
}

func (s nodeHeightStore) SaveHeight(height uint64) error {
	s.n.dbMu.Lock()
	defer s.n.dbMu.Unlock()
	if s.n.db == nil {
		return ErrStopped
	}
	return s.n.db.SaveHeight(height)
}

// Governor returns the proposal lifecycle engine
func (n *Node) Governor() *governor.Governor {
	return n.governor
}

// Timelock returns the delayed execution queue
func (n *Node) Timelock() *timelock.Timelock {
	return n.timelock
}

// Ledger returns the voting power ledger
func (n *Node) Ledger() *votes.Ledger {
	return n.ledger
}

// Clock returns the height source
func (n *Node) Clock() *clock.Clock {
	return n.clock
}

// Box returns the demo target
func (n *Node) Box() *action.Box {
	return n.box
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ApiAddr returns the bound API address, or nil if the API is not running
func (n *Node) ApiAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

// Advance moves the height forward by count
func (n *Node) Advance(count uint64) (uint64, error) {
	if n.clock == nil {
		return 0, ErrNotStarted
	}
	return n.clock.Advance(count)
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	if n.ticker != nil {
		n.ticker.Stop()
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	n.dbMu.Lock()
	if n.db != nil {
		if n.clock != nil {
			if saveErr := n.db.SaveHeight(n.clock.CurrentHeight()); saveErr != nil {
				err = errors.Join(err, fmt.Errorf("save height: %w", saveErr))
			}
		}
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
		n.db = nil
	}
	n.dbMu.Unlock()

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
