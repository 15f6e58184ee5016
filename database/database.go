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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/blinklabs-io/gavel/database/plugin/blob"
	_ "github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/plugin/metadata"
	_ "github.com/blinklabs-io/gavel/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type Config struct {
	Logger *slog.Logger
	// Blob and Metadata are used as-is when set. Otherwise the stores are
	// created from the named plugins.
	Blob           blob.BlobStore
	Metadata       metadata.MetadataStore
	BlobPlugin     string
	MetadataPlugin string
	// DataDir is passed to the plugins as their data-dir option. An empty
	// value selects in-memory storage.
	DataDir string
}

type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	d.logger = d.logger.With("component", "database")
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New opens the blob and metadata stores. On a commit timestamp mismatch the
// database is returned along with the error so it can be inspected.
func New(cfg Config) (*Database, error) {
	if cfg.BlobPlugin == "" {
		cfg.BlobPlugin = DefaultBlobPlugin
	}
	if cfg.MetadataPlugin == "" {
		cfg.MetadataPlugin = DefaultMetadataPlugin
	}
	db := &Database{
		logger:   cfg.Logger,
		blob:     cfg.Blob,
		metadata: cfg.Metadata,
		dataDir:  cfg.DataDir,
	}
	if db.blob == nil {
		if err := plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			cfg.BlobPlugin,
			"data-dir",
			cfg.DataDir,
		); err != nil {
			return nil, fmt.Errorf("configure blob plugin: %w", err)
		}
		blobDb, err := blob.New(cfg.BlobPlugin)
		if err != nil {
			return nil, err
		}
		db.blob = blobDb
	}
	if db.metadata == nil {
		if err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			cfg.MetadataPlugin,
			"data-dir",
			cfg.DataDir,
		); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure metadata plugin: %w", err)
		}
		metadataDb, err := metadata.New(cfg.MetadataPlugin)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		db.metadata = metadataDb
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
