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

package models

import "github.com/TickerProject/ticker-core/pkg/settings"

type DeviceInfo struct {
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	DeviceID  string `json:"deviceId"`
	LastReset string `json:"lastReset"`
	Uptime    int64  `json:"uptime"`
	FreeHeap  uint64 `json:"freeHeap"`
	Reboots   uint32 `json:"reboots"`
}

type DeviceTime struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

type SettingsResponse struct {
	Settings []settings.Info `json:"settings"`
}

// UpdateSettingsResult reports the outcome of one field of a settings
// post; every field is applied independently.
type UpdateSettingsResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type UpdateSettingsResponse struct {
	Fields []UpdateSettingsResult `json:"fields"`
}

type MessageObject struct {
	Text string `json:"text"`
	ID   int    `json:"id"`
}

type MessagesResponse struct {
	Messages []MessageObject `json:"messages"`
}

// PostMessageParams creates or overwrites a local message; a nil ID
// asks the store to allocate the smallest free one.
type PostMessageParams struct {
	ID   *int   `json:"id,omitempty"`
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	URI   string `json:"uri,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// Notification is a websocket push event, e.g. the message now being
// shown on the display.
type Notification struct {
	Params any    `json:"params,omitempty"`
	Method string `json:"method"`
}

const (
	NotificationShowing = "display.showing"
)
