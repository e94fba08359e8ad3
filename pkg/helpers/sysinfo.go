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

package helpers

import (
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"
)

// FreeMemory returns the available system memory in bytes, the closest
// analog to the firmware's free-heap reading. Returns zero if the
// reading fails; device info is best effort.
func FreeMemory() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug().Err(err).Msg("failed to read memory stats")
		return 0
	}
	return vm.Available
}
