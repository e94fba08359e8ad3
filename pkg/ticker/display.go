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

package ticker

import "github.com/rs/zerolog/log"

// LogDisplay is the default render collaborator when no matrix driver
// is attached: it logs what would be scrolling.
type LogDisplay struct{}

func (LogDisplay) Render(text string, speed int) {
	log.Info().Int("speed", speed).Str("text", text).Msg("display")
}

func (LogDisplay) SetIntensity(level int) {
	log.Debug().Int("level", level).Msg("display intensity")
}

func (LogDisplay) Clear() {
	log.Info().Msg("display cleared")
}

// FixedSensor is a light sensor stub returning a constant reading, for
// hardware without an LDR attached.
type FixedSensor int

func (s FixedSensor) Read() int { return int(s) }
