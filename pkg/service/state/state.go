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

package state

import (
	"time"

	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/jonboulle/clockwork"
)

// State is the derived device status: boot bookkeeping plus uptime.
// It is computed state, not part of the stores' consistency domain.
type State struct {
	clock     clockwork.Clock
	startedAt time.Time
	lastReset string
	reboots   uint32
}

func NewState(status store.LastStatus, clock clockwork.Clock) *State {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &State{
		clock:     clock,
		startedAt: clock.Now(),
		lastReset: status.LastReset,
		reboots:   status.Reboots,
	}
}

func (s *State) Uptime() time.Duration {
	return s.clock.Now().Sub(s.startedAt)
}

func (s *State) Reboots() uint32 {
	return s.reboots
}

func (s *State) LastReset() string {
	return s.lastReset
}

func (s *State) Now() time.Time {
	return s.clock.Now()
}
