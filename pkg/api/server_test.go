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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TickerProject/ticker-core/pkg/api/models"
	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/service/state"
	"github.com/TickerProject/ticker-core/pkg/settings"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControl struct {
	rebootReason string
	formatted    bool
}

func (c *fakeControl) RequestReboot(reason string) { c.rebootReason = reason }
func (c *fakeControl) FormatFS() error             { c.formatted = true; return nil }

type testAPI struct {
	server   *httptest.Server
	env      Env
	control  *fakeControl
	messages *store.MessageStore
	settings *settings.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	records := store.NewFlashStore(afero.NewMemMapFs(), "/data")
	st := settings.NewStore(records)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 13, 37, 42, 0, time.UTC))
	messages, err := store.NewMessageStore(records, st, clock)
	require.NoError(t, err)

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	control := &fakeControl{}
	env := Env{
		Config:   cfg,
		Settings: st,
		Messages: messages,
		State:    state.NewState(store.LastStatus{Reboots: 7, LastReset: "power-on"}, clock),
		Control:  control,
	}

	server := httptest.NewServer(NewRouter(env, nil))
	t.Cleanup(server.Close)

	return &testAPI{
		server:   server,
		env:      env,
		control:  control,
		messages: messages,
		settings: st,
	}
}

func (a *testAPI) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (a *testAPI) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(a.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (a *testAPI) delete(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, a.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func TestDeviceInfo(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, body := a.get(t, "/api/v0/devinfo")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info models.DeviceInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, config.AppVersion, info.Version)
	assert.Equal(t, uint32(7), info.Reboots)
	assert.Equal(t, "power-on", info.LastReset)
	assert.Equal(t, config.Hostname, info.Hostname)
}

func TestDeviceTime(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, body := a.get(t, "/api/v0/devtime")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var devTime models.DeviceTime
	require.NoError(t, json.Unmarshal(body, &devTime))
	assert.Equal(t, "13:37:42", devTime.Time)
	assert.Equal(t, "01-04-2026", devTime.Date)
}

func TestGetSettingsCarriesBounds(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, body := a.get(t, "/api/v0/settings")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var settingsResp models.SettingsResponse
	require.NoError(t, json.Unmarshal(body, &settingsResp))
	require.NotEmpty(t, settingsResp.Settings)

	found := false
	for _, info := range settingsResp.Settings {
		if info.Name == "textSpeed" {
			found = true
			assert.Equal(t, "int", info.Type)
			assert.Equal(t, float64(config.MaxTextSpeed), info.Max)
		}
	}
	assert.True(t, found)
}

func TestPostSettingsPerFieldResults(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, body := a.post(t, "/api/v0/settings",
		`{"textSpeed": 40, "maxIntensity": 99, "nonsense": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var update models.UpdateSettingsResponse
	require.NoError(t, json.Unmarshal(body, &update))
	require.Len(t, update.Fields, 3)

	byName := make(map[string]models.UpdateSettingsResult)
	for _, field := range update.Fields {
		byName[field.Name] = field
	}

	assert.Equal(t, "accepted", byName["textSpeed"].Status)
	assert.Equal(t, "rejected", byName["maxIntensity"].Status)
	assert.Equal(t, "rejected", byName["nonsense"].Status)

	// accepted field applied, rejected field untouched
	assert.Equal(t, 40, a.settings.TextSpeed())
	assert.Equal(t, 6, a.settings.MaxIntensity())
}

func TestPostSettingsEmptyBody(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, _ := a.post(t, "/api/v0/settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessagesLifecycle(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	// create with explicit id
	resp, _ := a.post(t, "/api/v0/messages/local", `{"id": 2, "text": "second"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// create with allocated id: smallest free is 0
	resp, body := a.post(t, "/api/v0/messages/local", `{"text": "first free"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created models.MessageObject
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, 0, created.ID)

	resp, body = a.get(t, "/api/v0/messages/local")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.MessagesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "first free", list.Messages[0].Text)
	assert.Equal(t, "second", list.Messages[1].Text)

	resp = a.delete(t, "/api/v0/messages/local/2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// deleting again distinguishes "already gone" from success
	resp = a.delete(t, "/api/v0/messages/local/2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostMessageErrorMapping(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	resp, _ := a.post(t, "/api/v0/messages/local", `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	long := strings.Repeat("x", config.MaxLocalTextLen+1)
	resp, _ = a.post(t, "/api/v0/messages/local",
		fmt.Sprintf(`{"id": 0, "text": %q}`, long))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	// fill the collection, then one more must conflict
	max := a.settings.LocalMaxMessages()
	for id := 0; id < max; id++ {
		resp, _ = a.post(t, "/api/v0/messages/local",
			fmt.Sprintf(`{"id": %d, "text": "m%d"}`, id, id))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ = a.post(t, "/api/v0/messages/local", `{"text": "overflow"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNewsMessagesReadOnly(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	require.NoError(t, a.messages.ReplaceAllNews([]string{"headline"}))

	resp, body := a.get(t, "/api/v0/messages/news")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list models.MessagesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "headline", list.Messages[0].Text)

	// no write route for news
	resp, _ = a.post(t, "/api/v0/messages/news", `{"text": "nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteCarriesURI(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, body := a.get(t, "/api/doesNotExist")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "not found", errResp.Error)
	assert.Equal(t, "/api/doesNotExist", errResp.URI)
}

func TestRebootAndFormat(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	resp, _ := a.post(t, "/api/v0/reboot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "api reboot", a.control.rebootReason)

	resp, _ = a.post(t, "/api/v0/format", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, a.control.formatted)
}
