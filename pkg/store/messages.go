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

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/jonboulle/clockwork"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Collection identifies one of the two message collections.
type Collection string

const (
	Local Collection = "local"
	News  Collection = "news"
)

// Message is a single ticker message. FetchedAt is only set for news
// messages and records when the item was ingested.
type Message struct {
	FetchedAt time.Time `toml:"fetched_at,omitempty"`
	Text      string    `toml:"text"`
	ID        int       `toml:"-"`
}

// Limits supplies the operator-configured collection maxima. Implemented
// by the settings store; values are clamped to config.MaxMessageFiles.
type Limits interface {
	LocalMaxMessages() int
	NewsMaxMessages() int
}

const (
	localPrefix = config.MessagesDir + "/local"
	newsPrefix  = config.MessagesDir + "/news"
	newsPointer = newsPrefix + "/current"
)

// MessageStore owns the durable Local and News collections. Local
// messages are one record per id. News messages live in a numbered
// generation directory; a pointer record names the current generation,
// so a replace-all that dies partway leaves either the old or the new
// generation fully visible, never a mix.
type MessageStore struct {
	records RecordStore
	limits  Limits
	clock   clockwork.Clock
	local   map[int]Message
	news    map[int]Message
	newsGen uint64
	mu      sync.RWMutex
}

func NewMessageStore(records RecordStore, limits Limits, clock clockwork.Clock) (*MessageStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &MessageStore{
		records: records,
		limits:  limits,
		clock:   clock,
		local:   make(map[int]Message),
		news:    make(map[int]Message),
	}

	if err := s.loadLocal(); err != nil {
		return nil, err
	}
	if err := s.loadNews(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MessageStore) loadLocal() error {
	keys, err := s.records.List(localPrefix)
	if err != nil {
		return fmt.Errorf("failed to load local messages: %w", err)
	}

	for _, key := range keys {
		id, ok := idFromKey(key)
		if !ok {
			log.Warn().Str("key", key).Msg("skipping unrecognized local record")
			continue
		}

		data, err := s.records.Get(key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable local record")
			continue
		}

		text := string(data)
		if len(text) == 0 || len(text) > config.MaxLocalTextLen {
			log.Warn().Str("key", key).Msg("skipping length-invalid local record")
			continue
		}

		s.local[id] = Message{ID: id, Text: text}
	}

	return nil
}

func (s *MessageStore) loadNews() error {
	gen, err := s.currentNewsGen()
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidValue) {
			// transient read fault; never destroy generations over it
			return fmt.Errorf("failed to load news: %w", err)
		}
		// pointer lost or corrupt, e.g. a crash mid-flip. The newest
		// generation on flash is the last one fully written before the
		// pointer update, so adopt it instead of starting empty.
		recovered, ok := s.newestNewsGen()
		if !ok {
			log.Info().Msg("no news generations, starting empty")
			return nil
		}
		gen = recovered
		if err := s.records.Put(newsPointer, []byte(strconv.FormatUint(gen, 10))); err != nil {
			log.Warn().Err(err).Msg("failed to rewrite news generation pointer")
		}
		log.Info().Uint64("gen", gen).Msg("recovered newest news generation")
	}

	s.newsGen = gen
	genPrefix := newsGenPrefix(gen)

	keys, err := s.records.List(genPrefix)
	if err != nil {
		return fmt.Errorf("failed to load news messages: %w", err)
	}

	for _, key := range keys {
		id, ok := idFromKey(key)
		if !ok {
			continue
		}

		data, err := s.records.Get(key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable news record")
			continue
		}

		var msg Message
		if err := toml.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping undecodable news record")
			continue
		}
		if len(msg.Text) == 0 || len(msg.Text) > config.MaxNewsTextLen {
			continue
		}

		msg.ID = id
		s.news[id] = msg
	}

	s.dropStaleNewsGens(gen)
	return nil
}

func (s *MessageStore) currentNewsGen() (uint64, error) {
	data, err := s.records.Get(newsPointer)
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad news generation pointer: %w", ErrInvalidValue)
	}
	return gen, nil
}

// newestNewsGen scans the generation directories and returns the
// highest-numbered one present on flash.
func (s *MessageStore) newestNewsGen() (uint64, bool) {
	keys, err := s.records.List(newsPrefix)
	if err != nil {
		return 0, false
	}

	var newest uint64
	found := false
	for _, key := range keys {
		name, ok := strings.CutPrefix(path.Base(path.Dir(key)), "gen-")
		if !ok {
			continue
		}
		gen, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		if !found || gen > newest {
			newest = gen
			found = true
		}
	}
	return newest, found
}

// dropStaleNewsGens removes generation directories other than the
// current one, e.g. leftovers from an interrupted replace. Best effort.
func (s *MessageStore) dropStaleNewsGens(current uint64) {
	keys, err := s.records.List(newsPrefix)
	if err != nil {
		return
	}

	keep := newsGenPrefix(current)
	seen := make(map[string]bool)
	for _, key := range keys {
		dir := path.Dir(key)
		if dir == newsPrefix || dir == keep || seen[dir] {
			continue
		}
		seen[dir] = true
		if err := s.records.DeleteAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to drop stale news generation")
		}
	}
}

// List returns the collection's messages in ascending id order, which
// is also the scheduler's rotation order.
func (s *MessageStore) List(c Collection) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collection(c)
	msgs := make([]Message, 0, len(coll))
	for _, msg := range coll {
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs
}

func (s *MessageStore) Get(c Collection, id int) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.collection(c)[id]
	if !ok {
		return Message{}, fmt.Errorf("%s message %d: %w", c, id, ErrNotFound)
	}
	return msg, nil
}

func (s *MessageStore) Count(c Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collection(c))
}

// Put creates or overwrites a message. Overwrites are always allowed;
// a new id is admitted only while the collection is below its
// configured maximum. On storage failure the in-memory copy is still
// updated (degraded mode) and the error is surfaced to the caller.
func (s *MessageStore) Put(c Collection, id int, text string) error {
	if id < 0 || id >= config.MaxMessageFiles {
		return fmt.Errorf("message id %d out of range: %w", id, ErrInvalidValue)
	}
	if len(text) == 0 {
		return fmt.Errorf("empty message text: %w", ErrInvalidValue)
	}
	if len(text) > s.maxTextLen(c) {
		return fmt.Errorf("message text %d bytes, limit %d: %w", len(text), s.maxTextLen(c), ErrTextTooLong)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(c)
	if _, exists := coll[id]; !exists && len(coll) >= s.maxCount(c) {
		return fmt.Errorf("%s collection full at %d messages: %w", c, len(coll), ErrCapacityExceeded)
	}

	msg := Message{ID: id, Text: text}
	if c == News {
		msg.FetchedAt = s.clock.Now()
	}

	err := s.writeMessage(c, msg)
	coll[id] = msg
	if err != nil {
		log.Error().Err(err).Int("id", id).Str("collection", string(c)).
			Msg("message kept in memory only")
		return err
	}
	return nil
}

// Delete removes a message. Deleting an absent id is an explicit error,
// not a no-op.
func (s *MessageStore) Delete(c Collection, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(c)
	if _, ok := coll[id]; !ok {
		return fmt.Errorf("%s message %d: %w", c, id, ErrNotFound)
	}

	delete(coll, id)
	if err := s.records.Delete(s.messageKey(c, id)); err != nil {
		log.Error().Err(err).Int("id", id).Str("collection", string(c)).
			Msg("message removed from memory only")
	}
	return nil
}

// AllocateID returns the smallest id not currently in use, bounded by
// the collection's configured maximum.
func (s *MessageStore) AllocateID(c Collection) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collection(c)
	max := s.maxCount(c)
	for id := 0; id < max; id++ {
		if _, used := coll[id]; !used {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no free %s id: %w", c, ErrCapacityExceeded)
}

// ReplaceAllNews atomically replaces the news collection with the given
// candidate texts. Candidates are re-validated: blanks and duplicates
// dropped, over-long texts truncated, the remainder capped at the
// configured maximum. The new generation is fully written before the
// pointer record flips to it, so a crash partway leaves the previous
// generation intact.
func (s *MessageStore) ReplaceAllNews(texts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	maxCount := s.maxCount(News)

	seen := make(map[string]bool)
	msgs := make([]Message, 0, maxCount)
	for _, text := range texts {
		if len(msgs) >= maxCount {
			break
		}
		text = strings.TrimSpace(text)
		text = truncateUTF8(text, config.MaxNewsTextLen)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		msgs = append(msgs, Message{ID: len(msgs), Text: text, FetchedAt: now})
	}

	newGen := s.newsGen + 1
	genPrefix := newsGenPrefix(newGen)

	for _, msg := range msgs {
		data, err := toml.Marshal(&msg)
		if err != nil {
			return fmt.Errorf("failed to encode news message: %w", err)
		}
		if err := s.records.Put(genPrefix+"/"+idKey(msg.ID), data); err != nil {
			_ = s.records.DeleteAll(genPrefix)
			return err
		}
	}

	// commit point: flip the pointer to the new generation
	if err := s.records.Put(newsPointer, []byte(strconv.FormatUint(newGen, 10))); err != nil {
		_ = s.records.DeleteAll(genPrefix)
		return err
	}

	oldGen := s.newsGen
	s.newsGen = newGen
	s.news = make(map[int]Message, len(msgs))
	for _, msg := range msgs {
		s.news[msg.ID] = msg
	}

	if err := s.records.DeleteAll(newsGenPrefix(oldGen)); err != nil {
		log.Warn().Err(err).Uint64("gen", oldGen).Msg("failed to drop previous news generation")
	}
	return nil
}

// Format wipes both collections and their records. Used by the
// filesystem-format API operation.
func (s *MessageStore) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = make(map[int]Message)
	s.news = make(map[int]Message)
	s.newsGen = 0
	return s.records.DeleteAll(config.MessagesDir)
}

func (s *MessageStore) collection(c Collection) map[int]Message {
	if c == News {
		return s.news
	}
	return s.local
}

func (s *MessageStore) maxTextLen(c Collection) int {
	if c == News {
		return config.MaxNewsTextLen
	}
	return config.MaxLocalTextLen
}

func (s *MessageStore) maxCount(c Collection) int {
	var limit int
	if c == News {
		limit = s.limits.NewsMaxMessages()
	} else {
		limit = s.limits.LocalMaxMessages()
	}
	return clampCount(limit)
}

func (s *MessageStore) writeMessage(c Collection, msg Message) error {
	if c == Local {
		return s.records.Put(s.messageKey(c, msg.ID), []byte(msg.Text))
	}
	data, err := toml.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed to encode news message: %w", err)
	}
	// a fresh store has never committed a generation; write the pointer
	// first or the record would be invisible after a reload
	if s.newsGen == 0 {
		if err := s.records.Put(newsPointer, []byte("0")); err != nil {
			return err
		}
	}
	return s.records.Put(s.messageKey(c, msg.ID), data)
}

func (s *MessageStore) messageKey(c Collection, id int) string {
	if c == News {
		return newsGenPrefix(s.newsGen) + "/" + idKey(id)
	}
	return localPrefix + "/" + idKey(id)
}

func newsGenPrefix(gen uint64) string {
	return fmt.Sprintf("%s/gen-%06d", newsPrefix, gen)
}

func idKey(id int) string {
	return fmt.Sprintf("%03d", id)
}

func idFromKey(key string) (int, bool) {
	base := path.Base(key)
	id, err := strconv.Atoi(base)
	if err != nil || id < 0 || id >= config.MaxMessageFiles {
		return 0, false
	}
	return id, true
}

func clampCount(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > config.MaxMessageFiles {
		return config.MaxMessageFiles
	}
	return limit
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
