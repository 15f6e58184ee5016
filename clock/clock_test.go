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

package clock_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/event"
)

func TestClockAdvance(t *testing.T) {
	c := clock.New(clock.Config{Start: 10})
	assert.Equal(t, uint64(10), c.CurrentHeight())
	h, err := c.Advance(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), h)
	assert.Equal(t, uint64(15), c.CurrentHeight())
}

type heightStore struct {
	saved []uint64
	err   error
}

func (s *heightStore) SaveHeight(height uint64) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, height)
	return nil
}

func TestClockPersistsBeforeAdvancing(t *testing.T) {
	store := &heightStore{}
	c := clock.New(clock.Config{Start: 10, Store: store})
	_, err := c.Advance(2)
	require.NoError(t, err)
	require.NoError(t, c.Set(20))
	// Setting the current height again writes nothing
	require.NoError(t, c.Set(20))
	assert.Equal(t, []uint64{12, 20}, store.saved)

	store.err = errors.New("disk full")
	h, err := c.Advance(1)
	require.ErrorIs(t, err, store.err)
	assert.Equal(t, uint64(20), h)
	assert.Equal(t, uint64(20), c.CurrentHeight())
	require.ErrorIs(t, c.Set(30), store.err)
	assert.Equal(t, uint64(20), c.CurrentHeight())
}

func TestClockAdvanceOverflow(t *testing.T) {
	c := clock.New(clock.Config{Start: math.MaxUint64 - 1})
	_, err := c.Advance(2)
	require.ErrorIs(t, err, clock.ErrOverflow)
	assert.Equal(t, uint64(math.MaxUint64-1), c.CurrentHeight())
}

func TestClockSetMonotonic(t *testing.T) {
	c := clock.New(clock.Config{Start: 100})
	require.NoError(t, c.Set(100))
	require.NoError(t, c.Set(150))
	err := c.Set(149)
	require.ErrorIs(t, err, clock.ErrNonMonotonic)
	assert.Equal(t, uint64(150), c.CurrentHeight())
}

func TestClockConcurrentAdvance(t *testing.T) {
	c := clock.New(clock.Config{})
	var g errgroup.Group
	for range 50 {
		g.Go(func() error {
			_, err := c.Advance(1)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, uint64(50), c.CurrentHeight())
}

func TestClockMetricsAndEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch := bus.Subscribe(clock.HeightEventType)
	c := clock.New(
		clock.Config{
			Start:        1,
			EventBus:     bus,
			PromRegistry: reg,
		},
	)
	_, err := c.Advance(2)
	require.NoError(t, err)
	select {
	case evt := <-ch:
		data, ok := evt.Data.(clock.HeightEvent)
		require.True(t, ok)
		assert.Equal(t, clock.HeightEvent{Previous: 1, Height: 3}, data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for height event")
	}
	count, err := testutil.GatherAndCount(reg, "gavel_clock_height")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTicker(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := clock.New(clock.Config{})
	ticker, err := clock.NewTicker(c, 5*time.Millisecond, nil)
	require.NoError(t, err)
	ticker.Start(t.Context())
	require.Eventually(t, func() bool {
		return c.CurrentHeight() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	ticker.Stop()
	stopped := c.CurrentHeight()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, c.CurrentHeight())
	// Stop is idempotent
	ticker.Stop()
}

func TestTickerInvalidInterval(t *testing.T) {
	_, err := clock.NewTicker(clock.New(clock.Config{}), 0, nil)
	require.ErrorIs(t, err, clock.ErrInvalidInterval)
}
