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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governorMetrics struct {
	proposals  prometheus.Counter
	votes      *prometheus.CounterVec
	voteWeight *prometheus.CounterVec
	queued     prometheus.Counter
	executed   prometheus.Counter
	canceled   prometheus.Counter
}

func newGovernorMetrics(promRegistry prometheus.Registerer) *governorMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &governorMetrics{
		proposals: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_total",
				Help: "total proposals created",
			},
		),
		votes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_governor_votes_total",
				Help: "total votes cast",
			},
			[]string{"support"},
		),
		voteWeight: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_governor_vote_weight_total",
				Help: "total vote weight cast",
			},
			[]string{"support"},
		),
		queued: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_queued_total",
				Help: "total proposals queued in the timelock",
			},
		),
		executed: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_executed_total",
				Help: "total proposals executed",
			},
		),
		canceled: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_canceled_total",
				Help: "total proposals canceled",
			},
		),
	}
}
