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

package plugin_test

import (
	"strings"
	"testing"

	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock plugin implementation for testing
type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	testEntry := plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	}

	plugin.Register(testEntry)

	// Check that GetPlugin finds it
	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName)
	if p == nil {
		t.Error("plugin not found")
	}

	// Check that GetPlugins includes it
	plugins := plugin.GetPlugins(plugin.PluginTypeBlob)
	found := false
	for _, pl := range plugins {
		if pl.Name == pluginName && pl.Type == plugin.PluginTypeBlob {
			found = true
			break
		}
	}
	if !found {
		t.Error("plugin not in GetPlugins list")
	}
}

func TestGetPlugins(t *testing.T) {
	blobName1 := "blob-test-1-" + t.Name()
	blobName2 := "blob-test-2-" + t.Name()
	metaName := "meta-test-" + t.Name()

	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               blobName1,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               blobName2,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               metaName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	blobPlugins := plugin.GetPlugins(plugin.PluginTypeBlob)
	// Check that the registered blob plugins are in the list
	found1 := false
	found2 := false
	for _, pl := range blobPlugins {
		if pl.Name == blobName1 && pl.Type == plugin.PluginTypeBlob {
			found1 = true
		}
		if pl.Name == blobName2 && pl.Type == plugin.PluginTypeBlob {
			found2 = true
		}
	}
	if !found1 || !found2 {
		t.Error("not all blob plugins found")
	}

	metaPlugins := plugin.GetPlugins(plugin.PluginTypeMetadata)
	foundMeta := false
	for _, pl := range metaPlugins {
		if pl.Name == metaName && pl.Type == plugin.PluginTypeMetadata {
			foundMeta = true
			break
		}
	}
	if !foundMeta {
		t.Error("metadata plugin not found")
	}
}

func TestGetPlugin(t *testing.T) {
	pluginName := "test-get-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	// Test getting the plugin
	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName)
	if p == nil {
		t.Fatal("Expected plugin instance, got nil")
	}

	if _, ok := p.(*mockPlugin); !ok {
		t.Errorf("Expected plugin of type *mockPlugin, got %T", p)
	}

	// Test getting non-existent plugin
	nonExistentPlugin := plugin.GetPlugin(
		plugin.PluginTypeBlob,
		"non-existent-"+t.Name(),
	)
	if nonExistentPlugin != nil {
		t.Errorf(
			"Expected nil for non-existent plugin, got %v",
			nonExistentPlugin,
		)
	}
}

func registerOptionPlugin(t *testing.T, dest *string, count *uint64) string {
	t.Helper()
	name := "opts-" + strings.ToLower(t.Name())
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: "default",
				Dest:         dest,
			},
			{
				Name:         "count",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(1),
				Dest:         count,
			},
		},
	})
	return name
}

func TestPopulateCmdlineOptions(t *testing.T) {
	var dataDir string
	var count uint64
	name := registerOptionPlugin(t, &dataDir, &count)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	assert.Equal(t, "default", dataDir)
	assert.Equal(t, uint64(1), count)
	require.NoError(t, fs.Parse([]string{
		"--metadata-" + name + "-data-dir", "/tmp/x",
		"--metadata-" + name + "-count", "5",
	}))
	assert.Equal(t, "/tmp/x", dataDir)
	assert.Equal(t, uint64(5), count)
}

func TestProcessConfig(t *testing.T) {
	var dataDir string
	var count uint64
	name := registerOptionPlugin(t, &dataDir, &count)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {name: {"data-dir": "/var/lib/gavel", "count": 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/gavel", dataDir)
	assert.Equal(t, uint64(7), count)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {name: {"count": -1}},
	})
	require.Error(t, err)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"bogus": {},
	})
	require.Error(t, err)
}

func TestProcessEnvVars(t *testing.T) {
	var dataDir string
	var count uint64
	name := registerOptionPlugin(t, &dataDir, &count)
	prefix := "GAVEL_DATABASE_METADATA_" +
		strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	t.Setenv(prefix+"_DATA_DIR", "/srv/gavel")
	t.Setenv(prefix+"_COUNT", "9")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "/srv/gavel", dataDir)
	assert.Equal(t, uint64(9), count)

	t.Setenv(prefix+"_COUNT", "nope")
	require.Error(t, plugin.ProcessEnvVars())
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, "missing-"+t.Name())
	require.Error(t, err)
}
