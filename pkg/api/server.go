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

// Package api is the request/response layer of the ticker: a JSON REST
// surface over the settings store, the message store and device status,
// plus a websocket stream of display notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/TickerProject/ticker-core/pkg/api/models"
	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/service/state"
	"github.com/TickerProject/ticker-core/pkg/settings"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// Control is the slice of the service the API may poke: controlled
// reboot and a full filesystem format.
type Control interface {
	RequestReboot(reason string)
	FormatFS() error
}

// Env carries the collaborators every handler works against.
type Env struct {
	Config   *config.Instance
	Settings *settings.Store
	Messages *store.MessageStore
	State    *state.State
	Control  Control
}

// NewRouter builds the REST surface. The websocket session may be nil
// in tests that only exercise REST routes.
func NewRouter(env Env, session *melody.Melody) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(config.APIRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/devinfo", handleDeviceInfo(env))
		r.Get("/devtime", handleDeviceTime(env))
		r.Get("/settings", handleSettings(env))
		r.Post("/settings", handleSettingsUpdate(env))
		r.Get("/messages/local", handleMessages(env, store.Local))
		r.Get("/messages/news", handleMessages(env, store.News))
		r.Post("/messages/local", handleMessagePost(env))
		r.Delete("/messages/local/{id}", handleMessageDelete(env))
		r.Post("/reboot", handleReboot(env))
		r.Post("/format", handleFormat(env))

		if session != nil {
			r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
				if err := session.HandleRequest(w, r); err != nil {
					log.Error().Err(err).Msg("handling websocket request")
				}
			})
		}
	})

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)

	return r
}

// Start serves the API until ctx is canceled. Notifications are fanned
// out to every connected websocket client.
func Start(ctx context.Context, env Env, notifications <-chan models.Notification) error {
	session := melody.New()
	session.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }
	go broadcastNotifications(ctx, session, notifications)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(env.Config.APIPort()),
		Handler:           NewRouter(env, session),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down http server")
		}
	}()

	log.Info().Int("port", env.Config.APIPort()).Msg("starting api server")
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func broadcastNotifications(
	ctx context.Context,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case notification, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(notification)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal notification")
				continue
			}
			if err := session.Broadcast(data); err != nil {
				log.Debug().Err(err).Msg("error broadcasting notification")
			}
		}
	}
}
