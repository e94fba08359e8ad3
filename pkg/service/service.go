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

// Package service wires the stores, the news client, the scheduler and
// the API together and runs the cooperative tick loop that drives
// everything time-based.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/TickerProject/ticker-core/pkg/api"
	"github.com/TickerProject/ticker-core/pkg/api/models"
	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/news"
	"github.com/TickerProject/ticker-core/pkg/service/state"
	"github.com/TickerProject/ticker-core/pkg/settings"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/TickerProject/ticker-core/pkg/ticker"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// tickPeriod drives scheduler rotation and news-due checks. API
// requests are serviced between ticks; nothing in the loop blocks
// longer than one bounded I/O operation.
const tickPeriod = 250 * time.Millisecond

type Options struct {
	Config     *config.Instance
	Filesystem afero.Fs
	Clock      clockwork.Clock
	Display    ticker.Display
	Sensor     ticker.LightSensor
	DataDir    string
}

type Service struct {
	cfg           *config.Instance
	records       store.RecordStore
	settings      *settings.Store
	messages      *store.MessageStore
	news          *news.Client
	sched         *ticker.Scheduler
	state         *state.State
	clock         clockwork.Clock
	notifications chan models.Notification
	stop          context.CancelFunc
	stopMu        sync.Mutex
	rebootOnce    sync.Once
}

func New(opts Options) (*Service, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	records := store.NewFlashStore(opts.Filesystem, opts.DataDir)
	st := settings.NewStore(records)

	messages, err := store.NewMessageStore(records, st, clock)
	if err != nil {
		return nil, err
	}

	// boot bookkeeping: bump the reboot counter and write it back
	status := store.LoadLastStatus(records)
	status.Reboots++
	status.SavedAt = clock.Now()
	if err := store.SaveLastStatus(records, status); err != nil {
		log.Error().Err(err).Msg("failed to persist boot status")
	}

	display := opts.Display
	if display == nil {
		display = ticker.LogDisplay{}
	}
	sensor := opts.Sensor
	if sensor == nil {
		sensor = ticker.FixedSensor(800)
	}

	s := &Service{
		cfg:           opts.Config,
		records:       records,
		settings:      st,
		messages:      messages,
		state:         state.NewState(status, clock),
		clock:         clock,
		notifications: make(chan models.Notification, 16),
	}

	s.news = news.NewClient(opts.Config, st, messages, records, clock)
	s.sched = ticker.NewScheduler(messages, st, display, sensor, s.notifyShowing)

	return s, nil
}

func (s *Service) notifyShowing(showing ticker.Showing) {
	notification := models.Notification{
		Method: models.NotificationShowing,
		Params: models.MessageObject{ID: showing.ID, Text: showing.Text},
	}
	// drop rather than block the tick loop on slow consumers
	select {
	case s.notifications <- notification:
	default:
	}
}

// Start runs the API server and the tick loop until ctx is canceled or
// a reboot is requested.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.stopMu.Lock()
	s.stop = cancel
	s.stopMu.Unlock()

	env := api.Env{
		Config:   s.cfg,
		Settings: s.settings,
		Messages: s.messages,
		State:    s.state,
		Control:  s,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Start(ctx, env, s.notifications)
	})
	g.Go(func() error {
		return s.runLoop(ctx)
	})

	log.Info().Uint32("reboots", s.state.Reboots()).Str("lastReset", s.state.LastReset()).
		Msg("ticker service started")
	return g.Wait()
}

func (s *Service) runLoop(ctx context.Context) error {
	tick := s.clock.NewTicker(tickPeriod)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.Chan():
			now := s.clock.Now()
			s.sched.Tick(now)

			if s.news.Due(now) {
				// a dead source costs at most one bounded fetch per interval
				if err := s.news.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("news refresh failed, retrying next interval")
				}
			}
		}
	}
}

// RequestReboot persists the reset reason and then shuts the service
// down; process supervision brings it back up, which is as close to a
// reboot as a daemon gets.
func (s *Service) RequestReboot(reason string) {
	s.rebootOnce.Do(func() {
		log.Info().Str("reason", reason).Msg("reboot requested")

		status := store.LastStatus{
			Reboots:   s.state.Reboots(),
			LastReset: reason,
			SavedAt:   s.clock.Now(),
		}
		if err := store.SaveLastStatus(s.records, status); err != nil {
			log.Error().Err(err).Msg("failed to persist reboot status")
		}

		s.stopMu.Lock()
		stop := s.stop
		s.stopMu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// FormatFS wipes both message collections, the word filter and resets
// every setting to its default, the daemon equivalent of formatting the
// flash filesystem.
func (s *Service) FormatFS() error {
	log.Warn().Msg("formatting filesystem")

	if err := s.messages.Format(); err != nil {
		return err
	}
	if err := s.records.Delete(config.WordFilterFile); err != nil {
		log.Debug().Err(err).Msg("no word filter record to remove")
	}
	return s.settings.Reset()
}
