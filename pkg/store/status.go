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

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/TickerProject/ticker-core/pkg/config"
	toml "github.com/pelletier/go-toml/v2"
)

// LastStatus is the small boot-bookkeeping record: how often the device
// has rebooted and why it last went down. Read once at boot, rewritten
// on every boot and on a requested reboot.
type LastStatus struct {
	SavedAt   time.Time `toml:"saved_at"`
	LastReset string    `toml:"last_reset"`
	Reboots   uint32    `toml:"reboots"`
}

// LoadLastStatus reads the status record. A missing or undecodable
// record yields a zero status, never an error: first boot and corrupt
// flash look the same.
func LoadLastStatus(records RecordStore) LastStatus {
	var status LastStatus

	data, err := records.Get(config.StatusFile)
	if err != nil {
		return LastStatus{LastReset: "power-on"}
	}
	if err := toml.Unmarshal(data, &status); err != nil {
		return LastStatus{LastReset: "power-on"}
	}
	return status
}

// SaveLastStatus persists the status record, tolerating storage failure
// (the caller keeps running either way).
func SaveLastStatus(records RecordStore, status LastStatus) error {
	data, err := toml.Marshal(&status)
	if err != nil {
		return fmt.Errorf("failed to encode status record: %w", err)
	}
	if err := records.Put(config.StatusFile, data); err != nil {
		if errors.Is(err, ErrStorageFailure) {
			return err
		}
		return fmt.Errorf("failed to write status record: %w", err)
	}
	return nil
}
