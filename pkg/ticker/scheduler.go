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

// Package ticker decides what the display shows, in what order and how
// bright. It rotates through local messages first, then news, then
// wraps. It only ever reads the stores; the API layer and the news
// client are the writers.
package ticker

import (
	"sync"
	"time"

	"github.com/TickerProject/ticker-core/pkg/settings"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/rs/zerolog/log"
)

// Display is the render collaborator. The scheduler decides text, speed
// and intensity; the display owns pixels.
type Display interface {
	Render(text string, speed int)
	SetIntensity(level int)
	Clear()
}

// LightSensor supplies the ambient light reading used for brightness,
// nominally 0-1023 like the original LDR input.
type LightSensor interface {
	Read() int
}

// MessageSource is the read-only slice of the message store the
// scheduler consumes.
type MessageSource interface {
	List(c store.Collection) []store.Message
}

// Showing describes the message currently on the display.
type Showing struct {
	Text       string
	Collection store.Collection
	ID         int
}

// Scheduler is the ticker rotation state machine. It is driven by
// Tick(now) from the service loop and holds either nothing (idle) or
// the currently shown message.
type Scheduler struct {
	source    MessageSource
	settings  *settings.Store
	display   Display
	sensor    LightSensor
	onShow    func(Showing)
	current   Showing
	shownAt   time.Time
	intensity int
	showing   bool
	idle      bool
	mu        sync.Mutex
}

func NewScheduler(
	source MessageSource,
	st *settings.Store,
	display Display,
	sensor LightSensor,
	onShow func(Showing),
) *Scheduler {
	return &Scheduler{
		source:    source,
		settings:  st,
		display:   display,
		sensor:    sensor,
		onShow:    onShow,
		intensity: -1,
	}
}

// Tick advances the state machine. Brightness tracks the light sensor
// every tick; rotation advances once the current message has been shown
// for its display duration.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateIntensityLocked()

	if !s.showing {
		s.advanceLocked(now)
		return
	}

	elapsed := now.Sub(s.shownAt)
	if elapsed >= DisplayDuration(s.settings.TextSpeed(), len(s.current.Text)) {
		s.advanceLocked(now)
	}
}

// Current returns the message on display, if any.
func (s *Scheduler) Current() (Showing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.showing
}

func (s *Scheduler) updateIntensityLocked() {
	level := Intensity(
		s.sensor.Read(),
		s.settings.LDRLowOffset(),
		s.settings.LDRHighOffset(),
		s.settings.MaxIntensity(),
	)
	if level != s.intensity {
		s.intensity = level
		s.display.SetIntensity(level)
	}
}

// advanceLocked moves to the next message in rotation order. Entries
// deleted since the last tick are skipped naturally: the successor of a
// missing position is the next still-valid entry.
func (s *Scheduler) advanceLocked(now time.Time) {
	local := s.source.List(store.Local)
	news := s.source.List(store.News)

	if len(local) == 0 && len(news) == 0 {
		if !s.idle {
			log.Debug().Msg("no messages, display idle")
			s.display.Clear()
		}
		s.showing = false
		s.idle = true
		s.current = Showing{}
		return
	}

	var next *Showing
	if s.showing {
		next = successor(local, news, s.current)
	}
	if next == nil {
		next = first(local, news)
	}

	s.current = *next
	s.showing = true
	s.idle = false
	s.shownAt = now

	s.display.Render(s.current.Text, s.settings.TextSpeed())
	if s.onShow != nil {
		s.onShow(s.current)
	}
}

func first(local, news []store.Message) *Showing {
	if len(local) > 0 {
		return &Showing{Collection: store.Local, ID: local[0].ID, Text: local[0].Text}
	}
	return &Showing{Collection: store.News, ID: news[0].ID, Text: news[0].Text}
}

// successor finds the first entry strictly after the current position
// in rotation order (local ascending, then news ascending). Returns nil
// on wrap-around.
func successor(local, news []store.Message, current Showing) *Showing {
	if current.Collection == store.Local {
		for _, msg := range local {
			if msg.ID > current.ID {
				return &Showing{Collection: store.Local, ID: msg.ID, Text: msg.Text}
			}
		}
		if len(news) > 0 {
			return &Showing{Collection: store.News, ID: news[0].ID, Text: news[0].Text}
		}
		return nil
	}

	for _, msg := range news {
		if msg.ID > current.ID {
			return &Showing{Collection: store.News, ID: msg.ID, Text: msg.Text}
		}
	}
	return nil
}

// DisplayDuration is how long a message stays up: the time it takes to
// scroll its text across the matrix. speed is the frame delay in
// milliseconds (higher = slower), matching the hardware's notion of
// text speed.
func DisplayDuration(speed, textLen int) time.Duration {
	if speed < 1 {
		speed = 1
	}
	columns := textLen*8 + 64
	return time.Duration(columns*speed) * time.Millisecond
}

// Intensity maps an ambient light reading into [0, maxIntensity]
// through the configured low/high offsets. Out-of-range readings are
// clamped; there is no failure mode.
func Intensity(reading, lowOffset, highOffset, maxIntensity int) int {
	if maxIntensity < 0 {
		maxIntensity = 0
	}
	if highOffset <= lowOffset {
		return maxIntensity
	}

	if reading < lowOffset {
		reading = lowOffset
	}
	if reading > highOffset {
		reading = highOffset
	}

	level := (reading - lowOffset) * maxIntensity / (highOffset - lowOffset)
	if level > maxIntensity {
		level = maxIntensity
	}
	return level
}
