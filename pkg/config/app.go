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

import "time"

var AppVersion = "v2.0.0"

const (
	AppName           = "ticker"
	Hostname          = "ticker"
	LogFile           = "core.log"
	PidFile           = "core.pid"
	CfgFile           = "config.toml"
	SettingsFile      = "settings.ini"
	StatusFile        = "status.toml"
	WordFilterFile    = "nonowords.txt"
	MessagesDir       = "messages"
	APIRequestTimeout = 30 * time.Second
)

// Compiled-in ceilings. Operator-configurable limits are clamped to
// these regardless of what the settings file asks for.
const (
	MaxMessageFiles  = 25
	MaxFilterWords   = 20
	MaxTextSpeed     = 50
	MaxLocalTextLen  = 255
	MaxNewsTextLen   = 512
	MaxIntensityCeil = 15
)
