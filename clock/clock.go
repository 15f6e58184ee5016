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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const HeightEventType event.EventType = "clock.height"

var (
	ErrNonMonotonic = errors.New("height must not decrease")
	ErrOverflow     = errors.New("height overflow")
)

// HeightSource is a monotonically non-decreasing height counter
type HeightSource interface {
	CurrentHeight() uint64
}

// HeightEvent is published on the event bus each time the height changes
type HeightEvent struct {
	Previous uint64
	Height   uint64
}

// Store persists the height. A height becomes visible only after it was
// saved
type Store interface {
	SaveHeight(uint64) error
}

type Config struct {
	// Start is the initial height
	Start        uint64
	Store        Store
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
}

// Clock is a manually advanced height counter. Advancement is serialized
// and never moves backwards
type Clock struct {
	// advanceMu serializes Advance and Set, mu guards height
	advanceMu   sync.Mutex
	mu          sync.RWMutex
	height      uint64
	store       Store
	logger      *slog.Logger
	eventBus    event.Publisher
	heightGauge prometheus.Gauge
}

func New(cfg Config) *Clock {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c := &Clock{
		height:   cfg.Start,
		store:    cfg.Store,
		logger:   cfg.Logger.With("component", "clock"),
		eventBus: cfg.EventBus,
	}
	if cfg.PromRegistry != nil {
		c.heightGauge = promauto.With(cfg.PromRegistry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gavel_clock_height",
				Help: "current height",
			},
		)
		c.heightGauge.Set(float64(cfg.Start))
	}
	return c
}

// CurrentHeight returns the current height
func (c *Clock) CurrentHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Advance moves the height forward by n and returns the new height
func (c *Clock) Advance(n uint64) (uint64, error) {
	c.advanceMu.Lock()
	defer c.advanceMu.Unlock()
	prev := c.CurrentHeight()
	if n > math.MaxUint64-prev {
		return prev, fmt.Errorf("%w: %d + %d", ErrOverflow, prev, n)
	}
	if err := c.commit(prev, prev+n); err != nil {
		return prev, err
	}
	return prev + n, nil
}

// Set moves the height to h, which must not be lower than the current height
func (c *Clock) Set(h uint64) error {
	c.advanceMu.Lock()
	defer c.advanceMu.Unlock()
	prev := c.CurrentHeight()
	if h < prev {
		return fmt.Errorf("%w: %d < %d", ErrNonMonotonic, h, prev)
	}
	return c.commit(prev, h)
}

// commit persists height and then makes it visible. The caller holds
// advanceMu
func (c *Clock) commit(prev, height uint64) error {
	if prev == height {
		return nil
	}
	if c.store != nil {
		if err := c.store.SaveHeight(height); err != nil {
			return fmt.Errorf("save height %d: %w", height, err)
		}
	}
	c.mu.Lock()
	c.height = height
	c.mu.Unlock()
	c.notify(prev, height)
	return nil
}

func (c *Clock) notify(prev, height uint64) {
	if prev == height {
		return
	}
	if c.heightGauge != nil {
		c.heightGauge.Set(float64(height))
	}
	c.logger.Debug(
		"height advanced",
		"previous", prev,
		"height", height,
	)
	if c.eventBus != nil {
		c.eventBus.Publish(
			HeightEventType,
			event.NewEvent(
				HeightEventType,
				HeightEvent{Previous: prev, Height: height},
			),
		)
	}
}
