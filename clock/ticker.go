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

package clock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

const DefaultTickInterval = time.Second

var ErrInvalidInterval = errors.New("tick interval must be positive")

// Ticker advances a Clock by one height per interval of wall-clock time
type Ticker struct {
	clock    *Clock
	interval time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	wg       sync.WaitGroup
}

func NewTicker(
	clock *Clock,
	interval time.Duration,
	logger *slog.Logger,
) (*Ticker, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ticker{
		clock:    clock,
		interval: interval,
		logger:   logger.With("component", "clock"),
	}, nil
}

// Start begins advancing the clock in a background goroutine. It returns
// immediately
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(runCtx)
	t.logger.Info(
		"height ticker started",
		"interval", t.interval.String(),
		"height", t.clock.CurrentHeight(),
	)
}

// Stop halts the ticker and waits for the tick loop to exit
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.cancel()
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Ticker) run(ctx context.Context) {
	defer t.wg.Done()
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := t.clock.Advance(1); err != nil {
				t.logger.Error(
					"failed to advance height",
					"error", err,
				)
				return
			}
		}
	}
}
