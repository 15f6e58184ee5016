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

package timelock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type timelockMetrics struct {
	scheduled prometheus.Counter
	executed  prometheus.Counter
	canceled  prometheus.Counter
	failures  prometheus.Counter
	pending   prometheus.Gauge
}

func newTimelockMetrics(promRegistry prometheus.Registerer) *timelockMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &timelockMetrics{
		scheduled: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_operations_scheduled_total",
				Help: "total operations scheduled",
			},
		),
		executed: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_operations_executed_total",
				Help: "total operations executed",
			},
		),
		canceled: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_operations_canceled_total",
				Help: "total operations canceled",
			},
		),
		failures: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_execution_failures_total",
				Help: "total failed operation executions",
			},
		),
		pending: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gavel_timelock_operations_pending",
				Help: "operations scheduled but not yet executed",
			},
		),
	}
}
