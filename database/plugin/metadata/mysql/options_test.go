// Copyright 2025 Blink Labs Software
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

package mysql

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(3307),
		WithUser("gavel"),
		WithPassword("secret"),
		WithDatabase("governance"),
		WithSSLMode("skip-verify"),
		WithTimeZone("Europe/Berlin"),
		WithDSN("root:secret@tcp(localhost:3306)/gavel?parseTime=true"),
		WithLogger(logger),
		WithPromRegistry(reg),
	)
	require.NoError(t, err)
	assert.Equal(t, "db.local", m.host)
	assert.Equal(t, uint(3307), m.port)
	assert.Equal(t, "gavel", m.user)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "governance", m.database)
	assert.Equal(t, "skip-verify", m.sslMode)
	assert.Equal(t, "Europe/Berlin", m.timeZone)
	assert.Equal(t, "root:secret@tcp(localhost:3306)/gavel?parseTime=true", m.dsn)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, prometheus.Registerer(reg), m.promRegistry)
}

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "gavel", m.database)
	assert.Equal(t, "UTC", m.timeZone)
	assert.NotNil(t, m.logger)
	// Close before Start is a no-op
	require.NoError(t, m.Close())
}

func TestDSNHelpers(t *testing.T) {
	name, ok := parseMysqlDatabaseFromDSN("root:pw@tcp(localhost:3306)/gavel?parseTime=true")
	require.True(t, ok)
	assert.Equal(t, "gavel", name)
	_, ok = parseMysqlDatabaseFromDSN("root:pw@tcp(localhost:3306)/")
	assert.False(t, ok)

	admin, ok := stripDatabaseFromDSN("root:pw@tcp(localhost:3306)/gavel?parseTime=true")
	require.True(t, ok)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/?parseTime=true", admin)
	admin, ok = stripDatabaseFromDSN("root:pw@tcp(localhost:3306)/gavel")
	require.True(t, ok)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/", admin)
	_, ok = stripDatabaseFromDSN("nonsense")
	assert.False(t, ok)
}
