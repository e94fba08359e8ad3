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

// Package news pulls headlines from a newsapi.org-style endpoint on a
// configured interval and folds them into the message store's news
// collection. A failed cycle leaves the previous collection untouched
// and is retried when the next interval comes due.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/settings"
	"github.com/TickerProject/ticker-core/pkg/shared/httpclient"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTransportFailure covers network errors, timeouts and non-OK
	// responses from the news source.
	ErrTransportFailure = errors.New("transport failure")
	// ErrParseFailure covers responses that are not the expected JSON
	// shape.
	ErrParseFailure = errors.New("parse failure")
)

type apiResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"articles"`
}

// Client is the news ingestion client. It is driven by the service tick
// loop: Due says whether a refresh is owed, Refresh performs one cycle.
type Client struct {
	cfg         *config.Instance
	settings    *settings.Store
	messages    *store.MessageStore
	records     store.RecordStore
	clock       clockwork.Clock
	lastAttempt time.Time
	mu          sync.Mutex
}

func NewClient(
	cfg *config.Instance,
	st *settings.Store,
	messages *store.MessageStore,
	records store.RecordStore,
	clock clockwork.Clock,
) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		cfg:      cfg,
		settings: st,
		messages: messages,
		records:  records,
		clock:    clock,
	}
}

// Due reports whether a refresh cycle is owed at the given time. The
// interval is measured from the last attempt, success or not, so a dead
// source is retried once per interval rather than on every scheduler
// tick.
func (c *Client) Due(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastAttempt.IsZero() {
		return true
	}
	return now.Sub(c.lastAttempt) >= c.settings.NewsInterval()
}

// Refresh performs one fetch-parse-replace cycle. The fetch is bounded
// by the configured timeout on top of whatever deadline ctx carries.
func (c *Client) Refresh(ctx context.Context) error {
	err := c.refresh(ctx)

	c.mu.Lock()
	c.lastAttempt = c.clock.Now()
	c.mu.Unlock()

	return err
}

func (c *Client) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NewsFetchTimeout())
	defer cancel()

	titles, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	filter := LoadWordFilter(c.records)
	candidates := make([]string, 0, len(titles))
	dropped := 0
	for _, title := range titles {
		if filter.Blocked(title) {
			dropped++
			continue
		}
		candidates = append(candidates, title)
	}
	if dropped > 0 {
		log.Info().Int("dropped", dropped).Msg("word filter dropped headlines")
	}

	if err := c.messages.ReplaceAllNews(candidates); err != nil {
		return err
	}

	log.Info().Int("headlines", len(candidates)).Msg("news refreshed")
	return nil
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	endpoint, apiKey, country := c.cfg.NewsSource()

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad news endpoint: %w", err)
	}
	query := reqURL.Query()
	if country != "" {
		query.Set("country", country)
	}
	if apiKey != "" {
		query.Set("apiKey", apiKey)
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build news request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.Hostname()+"/"+config.AppVersion)

	client := httpclient.NewClientWithTimeout(c.cfg.NewsFetchTimeout())
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news fetch: %v: %w", err, ErrTransportFailure)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news source returned %d: %w", resp.StatusCode, ErrTransportFailure)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("news response: %v: %w", err, ErrParseFailure)
	}
	if parsed.Status != "" && parsed.Status != "ok" {
		return nil, fmt.Errorf("news source status %q: %w", parsed.Status, ErrTransportFailure)
	}

	titles := make([]string, 0, len(parsed.Articles))
	for _, article := range parsed.Articles {
		titles = append(titles, article.Title)
	}
	return titles, nil
}
