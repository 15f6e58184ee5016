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

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New(badger.WithGc(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetSetDelete(t *testing.T) {
	store := newMemStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("gp-1"), []byte("calls")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err := store.Get(txn, []byte("gp-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("calls"), val)
	_, err = store.Get(txn, []byte("gp-2"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("gp-1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("gp-1"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newMemStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestTxnValidation(t *testing.T) {
	store := newMemStore(t)
	other := newMemStore(t)

	_, err := store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)

	foreign := other.NewTransaction(false)
	defer foreign.Rollback() //nolint:errcheck
	_, err = store.Get(foreign, []byte("k"))
	require.ErrorIs(t, err, badger.ErrForeignTxn)

	txn := store.NewTransaction(true)
	require.NoError(t, txn.Commit())
	err = store.Set(txn, []byte("k"), []byte("v"))
	require.ErrorIs(t, err, types.ErrTxnFinished)
	// finishing twice is a no-op
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())
}

func TestCommitTimestamp(t *testing.T) {
	store := newMemStore(t)
	_, err := store.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)

	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestDiskStoreAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := badger.New(
		badger.WithDataDir(t.TempDir()),
		badger.WithBlockCacheSize(1<<20),
		badger.WithIndexCacheSize(1<<20),
		badger.WithGc(true),
		badger.WithPromRegistry(reg),
	)
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("to-1"), []byte("op")))
	require.NoError(t, txn.Commit())
	count, err := testutil.GatherAndCount(
		reg,
		"database_blob_lsm_size_bytes",
		"database_blob_vlog_size_bytes",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, store.Close())
}
