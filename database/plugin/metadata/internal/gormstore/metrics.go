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

package gormstore

import "github.com/prometheus/client_golang/prometheus"

const metadataMetricNamePrefix = "database_metadata_"

// RegisterMetrics exposes connection pool statistics
func (s *Store) RegisterMetrics(registry prometheus.Registerer) {
	openConns := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metadataMetricNamePrefix + "open_connections",
			Help: "open connections to the metadata database",
		},
		func() float64 {
			sqlDB, err := s.db.DB()
			if err != nil {
				return 0
			}
			return float64(sqlDB.Stats().OpenConnections)
		},
	)
	inUse := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metadataMetricNamePrefix + "in_use_connections",
			Help: "metadata database connections currently in use",
		},
		func() float64 {
			sqlDB, err := s.db.DB()
			if err != nil {
				return 0
			}
			return float64(sqlDB.Stats().InUse)
		},
	)
	registry.MustRegister(openConns, inUse)
}
