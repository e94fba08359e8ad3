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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/TickerProject/ticker-core/pkg/api/models"
	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/helpers"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// statusForError maps store-level error kinds onto distinguishable
// response statuses. Nothing is silently swallowed.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, store.ErrTextTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrStorageFailure):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), models.ErrorResponse{Error: err.Error()})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.ErrorResponse{
		Error: "not found",
		URI:   r.URL.Path,
	})
}

func handleDeviceInfo(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.DeviceInfo{
			Version:   config.AppVersion,
			Hostname:  env.Config.Hostname(),
			DeviceID:  env.Config.DeviceID(),
			Uptime:    int64(env.State.Uptime().Seconds()),
			FreeHeap:  helpers.FreeMemory(),
			LastReset: env.State.LastReset(),
			Reboots:   env.State.Reboots(),
		})
	}
}

func handleDeviceTime(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		now := env.State.Now()
		writeJSON(w, http.StatusOK, models.DeviceTime{
			Time: now.Format("15:04:05"),
			Date: now.Format("02-01-2006"),
		})
	}
}

func handleSettings(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.SettingsResponse{
			Settings: env.Settings.List(),
		})
	}
}

// handleSettingsUpdate applies each posted field independently and
// reports per-field outcomes; one bad field never blocks the rest.
func handleSettingsUpdate(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil || len(params) == 0 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "bad request"})
			return
		}

		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)

		results := make([]models.UpdateSettingsResult, 0, len(names))
		for _, name := range names {
			result := models.UpdateSettingsResult{Name: name, Status: "accepted"}

			err := env.Settings.Set(name, rawValue(params[name]))
			switch {
			case err == nil:
			case errors.Is(err, store.ErrStorageFailure):
				// value is active in memory, flash write failed
				result.Status = "degraded"
				result.Error = err.Error()
			default:
				result.Status = "rejected"
				result.Error = err.Error()
			}

			log.Info().Str("setting", name).Str("status", result.Status).Msg("settings update")
			results = append(results, result)
		}

		writeJSON(w, http.StatusOK, models.UpdateSettingsResponse{Fields: results})
	}
}

// rawValue renders a decoded JSON value back to the settings store's
// string form. JSON numbers arrive as float64; integral ones must not
// grow a decimal point.
func rawValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		data, _ := json.Marshal(val)
		return string(data)
	}
}

func handleMessages(env Env, c store.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		msgs := env.Messages.List(c)
		resp := models.MessagesResponse{Messages: make([]models.MessageObject, 0, len(msgs))}
		for _, msg := range msgs {
			resp.Messages = append(resp.Messages, models.MessageObject{ID: msg.ID, Text: msg.Text})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleMessagePost(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params models.PostMessageParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "bad request"})
			return
		}
		if params.Text == "" {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "missing text"})
			return
		}

		id := -1
		if params.ID != nil {
			id = *params.ID
		} else {
			allocated, err := env.Messages.AllocateID(store.Local)
			if err != nil {
				writeError(w, err)
				return
			}
			id = allocated
		}

		if err := env.Messages.Put(store.Local, id, params.Text); err != nil {
			writeError(w, err)
			return
		}

		log.Info().Int("id", id).Msg("stored local message")
		writeJSON(w, http.StatusOK, models.MessageObject{ID: id, Text: params.Text})
	}
}

func handleMessageDelete(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "bad message id"})
			return
		}

		if err := env.Messages.Delete(store.Local, id); err != nil {
			writeError(w, err)
			return
		}

		log.Info().Int("id", id).Msg("deleted local message")
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: "deleted"})
	}
}

func handleReboot(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		env.Control.RequestReboot("api reboot")
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: "rebooting"})
	}
}

func handleFormat(env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := env.Control.FormatFS(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: "formatted"})
	}
}
