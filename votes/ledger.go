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

package votes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/blinklabs-io/gavel/clock"
)

// SupplyAccount is the reserved account under which total supply
// checkpoints are stored
const SupplyAccount = ""

var (
	ErrFutureLookup        = errors.New("voting power lookup for future height")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSupplyOverflow      = errors.New("total supply overflow")
	ErrInvalidAccount      = errors.New("invalid account")
)

// Oracle returns historical voting weight. Heights after the current height
// must be rejected with ErrFutureLookup
type Oracle interface {
	VotingPowerAt(account string, height uint64) (uint64, error)
	TotalSupplyAt(height uint64) (uint64, error)
}

// Checkpoint records the weight of an account starting at Height
type Checkpoint struct {
	Account string
	Height  uint64
	Weight  uint64
}

// Store persists checkpoints. SaveCheckpoints must be atomic
type Store interface {
	SaveCheckpoints([]Checkpoint) error
	LoadCheckpoints() ([]Checkpoint, error)
}

type LedgerConfig struct {
	Clock  clock.HeightSource
	Store  Store
	Logger *slog.Logger
}

// Ledger tracks per-account voting weight as a history of checkpoints. A
// balance change made at height h takes effect at h+1, so the weight at any
// height not after the current one is final
type Ledger struct {
	mu          sync.RWMutex
	clock       clock.HeightSource
	store       Store
	logger      *slog.Logger
	checkpoints map[string][]Checkpoint
}

func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Clock == nil {
		return nil, errors.New("no height source provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l := &Ledger{
		clock:       cfg.Clock,
		store:       cfg.Store,
		logger:      cfg.Logger.With("component", "votes"),
		checkpoints: make(map[string][]Checkpoint),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	if l.store == nil {
		return nil
	}
	cps, err := l.store.LoadCheckpoints()
	if err != nil {
		return fmt.Errorf("load voting checkpoints: %w", err)
	}
	for _, cp := range cps {
		l.checkpoints[cp.Account] = append(l.checkpoints[cp.Account], cp)
	}
	for account := range l.checkpoints {
		slices.SortFunc(l.checkpoints[account], func(a, b Checkpoint) int {
			switch {
			case a.Height < b.Height:
				return -1
			case a.Height > b.Height:
				return 1
			}
			return 0
		})
	}
	if len(cps) > 0 {
		l.logger.Debug(
			"loaded voting checkpoints",
			"count", len(cps),
		)
	}
	return nil
}

// VotingPowerAt returns the weight of account at height
func (l *Ledger) VotingPowerAt(account string, height uint64) (uint64, error) {
	if account == SupplyAccount {
		return 0, ErrInvalidAccount
	}
	return l.weightAt(account, height)
}

// TotalSupplyAt returns the total weight of all accounts at height
func (l *Ledger) TotalSupplyAt(height uint64) (uint64, error) {
	return l.weightAt(SupplyAccount, height)
}

func (l *Ledger) weightAt(account string, height uint64) (uint64, error) {
	current := l.clock.CurrentHeight()
	if height > current {
		return 0, fmt.Errorf(
			"%w: %d > %d",
			ErrFutureLookup,
			height,
			current,
		)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lookup(l.checkpoints[account], height), nil
}

// lookup returns the weight of the last checkpoint at or before height
func lookup(cps []Checkpoint, height uint64) uint64 {
	idx := sort.Search(len(cps), func(i int) bool {
		return cps[i].Height > height
	})
	if idx == 0 {
		return 0
	}
	return cps[idx-1].Weight
}

// Balance returns the latest weight of account, including changes not yet
// in effect
func (l *Ledger) Balance(account string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cps := l.checkpoints[account]
	if len(cps) == 0 {
		return 0
	}
	return cps[len(cps)-1].Weight
}

// TotalSupply returns the latest total supply, including changes not yet in
// effect
func (l *Ledger) TotalSupply() uint64 {
	return l.Balance(SupplyAccount)
}

// Accounts returns the sorted list of accounts with checkpoints
func (l *Ledger) Accounts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ret := make([]string, 0, len(l.checkpoints))
	for account := range l.checkpoints {
		if account == SupplyAccount {
			continue
		}
		ret = append(ret, account)
	}
	slices.Sort(ret)
	return ret
}

// Mint increases the balance of account and the total supply
func (l *Ledger) Mint(account string, amount uint64) error {
	if account == SupplyAccount {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	supply := l.latest(SupplyAccount)
	if amount > math.MaxUint64-supply {
		return ErrSupplyOverflow
	}
	balance := l.latest(account)
	return l.write(
		map[string]uint64{
			account:       balance + amount,
			SupplyAccount: supply + amount,
		},
	)
}

// Burn decreases the balance of account and the total supply
func (l *Ledger) Burn(account string, amount uint64) error {
	if account == SupplyAccount {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.latest(account)
	if amount > balance {
		return fmt.Errorf(
			"%w: %s has %d, need %d",
			ErrInsufficientBalance,
			account,
			balance,
			amount,
		)
	}
	return l.write(
		map[string]uint64{
			account:       balance - amount,
			SupplyAccount: l.latest(SupplyAccount) - amount,
		},
	)
}

// Transfer moves weight between accounts without changing the total supply
func (l *Ledger) Transfer(from string, to string, amount uint64) error {
	if from == SupplyAccount || to == SupplyAccount {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromBalance := l.latest(from)
	if amount > fromBalance {
		return fmt.Errorf(
			"%w: %s has %d, need %d",
			ErrInsufficientBalance,
			from,
			fromBalance,
			amount,
		)
	}
	if from == to {
		return nil
	}
	return l.write(
		map[string]uint64{
			from: fromBalance - amount,
			to:   l.latest(to) + amount,
		},
	)
}

func (l *Ledger) latest(account string) uint64 {
	cps := l.checkpoints[account]
	if len(cps) == 0 {
		return 0
	}
	return cps[len(cps)-1].Weight
}

// write records new weights effective at the next height. Callers must hold
// the write lock
func (l *Ledger) write(weights map[string]uint64) error {
	effective := l.clock.CurrentHeight() + 1
	accounts := make([]string, 0, len(weights))
	for account := range weights {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	batch := make([]Checkpoint, 0, len(accounts))
	for _, account := range accounts {
		batch = append(
			batch,
			Checkpoint{
				Account: account,
				Height:  effective,
				Weight:  weights[account],
			},
		)
	}
	if l.store != nil {
		if err := l.store.SaveCheckpoints(batch); err != nil {
			return fmt.Errorf("save voting checkpoints: %w", err)
		}
	}
	for _, cp := range batch {
		cps := l.checkpoints[cp.Account]
		if len(cps) > 0 && cps[len(cps)-1].Height >= effective {
			cps[len(cps)-1].Weight = cp.Weight
		} else {
			cps = append(cps, cp)
		}
		l.checkpoints[cp.Account] = cps
		l.logger.Debug(
			"voting weight updated",
			"account", cp.Account,
			"height", effective,
			"weight", cp.Weight,
		)
	}
	return nil
}
