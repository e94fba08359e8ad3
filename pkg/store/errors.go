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

import "errors"

var (
	// ErrNotFound is returned when a record or message id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is returned when a collection is already at
	// its configured maximum and a new id is requested.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrTextTooLong is returned when a message body exceeds the
	// collection's length bound.
	ErrTextTooLong = errors.New("text too long")
	// ErrInvalidValue is returned for ids or values outside their
	// allowed range.
	ErrInvalidValue = errors.New("invalid value")
	// ErrStorageFailure is returned when the storage medium keeps
	// failing after bounded retries. In-memory state stays usable.
	ErrStorageFailure = errors.New("storage failure")
)
