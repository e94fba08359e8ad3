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

package news

import (
	"strings"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/store"
)

// WordFilter drops headlines containing operator-listed words. The word
// list is a plain text record, one word per line, '#' starts a comment.
// At most config.MaxFilterWords entries are honored.
type WordFilter struct {
	words []string
}

// LoadWordFilter reads the filter record. A missing or unreadable
// record means an empty filter; ingestion never fails on filter
// problems.
func LoadWordFilter(records store.RecordStore) *WordFilter {
	filter := &WordFilter{}

	data, err := records.Get(config.WordFilterFile)
	if err != nil {
		return filter
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		filter.words = append(filter.words, strings.ToLower(line))
		if len(filter.words) >= config.MaxFilterWords {
			break
		}
	}
	return filter
}

// Blocked reports whether the text contains any filtered word,
// case-insensitively.
func (f *WordFilter) Blocked(text string) bool {
	if len(f.words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range f.words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
