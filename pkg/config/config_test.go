// Ticker Core
// Copyright (c) 2026 The Ticker Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ticker Core.
//
// Ticker Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ticker Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ticker Core.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigCreatesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := NewConfig(tmpDir, BaseDefaults)
	require.NoError(t, err)

	// config file should have been written to disk
	_, err = os.Stat(filepath.Join(tmpDir, CfgFile))
	require.NoError(t, err)

	assert.Equal(t, BaseDefaults.Service.APIPort, cfg.APIPort())
	assert.Equal(t, Hostname, cfg.Hostname())
	assert.False(t, cfg.DebugLogging())
}

func TestNewConfigGeneratesDeviceID(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := NewConfig(tmpDir, BaseDefaults)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	assert.NotEmpty(t, cfg.DeviceID())

	// a second load must keep the same id
	cfg2, err := NewConfig(tmpDir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, cfg.DeviceID(), cfg2.DeviceID())
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	tmpDir := t.TempDir()

	cfgPath := filepath.Join(tmpDir, CfgFile)
	data := "config_schema = 1\n\n[service]\napi_port = 9000\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))

	cfg, err := NewConfig(tmpDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.APIPort())
	// fields absent from the file retain their defaults
	url, _, country := cfg.NewsSource()
	assert.Equal(t, BaseDefaults.News.URL, url)
	assert.Equal(t, BaseDefaults.News.Country, country)
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	tmpDir := t.TempDir()

	cfgPath := filepath.Join(tmpDir, CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("config_schema = 99\n"), 0o600))

	_, err := NewConfig(tmpDir, BaseDefaults)
	require.Error(t, err)
}
