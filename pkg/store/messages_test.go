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
	"strings"
	"testing"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLimits struct {
	local int
	news  int
}

func (l fixedLimits) LocalMaxMessages() int { return l.local }
func (l fixedLimits) NewsMaxMessages() int  { return l.news }

// brokenPuts wraps a RecordStore and fails every Put after the first n,
// simulating flash dying partway through a multi-record operation.
type brokenPuts struct {
	RecordStore
	remaining int
}

func (b *brokenPuts) Put(key string, data []byte) error {
	if b.remaining <= 0 {
		return fmt.Errorf("flash write fault: %w", ErrStorageFailure)
	}
	b.remaining--
	return b.RecordStore.Put(key, data)
}

// failingGets wraps a RecordStore and fails reads of one key,
// simulating a transient flash read fault.
type failingGets struct {
	RecordStore
	key string
}

func (f *failingGets) Get(key string) ([]byte, error) {
	if key == f.key {
		return nil, fmt.Errorf("flash read fault: %w", ErrStorageFailure)
	}
	return f.RecordStore.Get(key)
}

func newTestStore(t *testing.T, limits Limits) (*MessageStore, RecordStore) {
	t.Helper()
	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	return s, records
}

func TestPutGetRoundTripAcrossReload(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	limits := fixedLimits{local: 10, news: 10}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)

	text := "MÃ¸tley CrÃ¼e tonight ðŸŽ¸"
	require.NoError(t, s.Put(Local, 7, text))

	// a fresh store over the same records must see identical text
	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)

	msg, err := s2.Get(Local, 7)
	require.NoError(t, err)
	assert.Equal(t, text, msg.Text)
}

func TestPutRejectsOverlongText(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 10, news: 10})

	err := s.Put(Local, 0, strings.Repeat("x", config.MaxLocalTextLen+1))
	require.ErrorIs(t, err, ErrTextTooLong)
	assert.Equal(t, 0, s.Count(Local))
}

func TestPutEnforcesCapacity(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 3, news: 10})

	for id := 0; id < 3; id++ {
		require.NoError(t, s.Put(Local, id, fmt.Sprintf("message %d", id)))
	}

	err := s.Put(Local, 3, "one too many")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, s.Count(Local))

	// overwriting an existing id is still allowed at capacity
	require.NoError(t, s.Put(Local, 1, "replacement"))
}

func TestDeleteAbsentIsError(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 10, news: 10})

	require.NoError(t, s.Put(Local, 2, "here"))
	require.NoError(t, s.Delete(Local, 2))

	err := s.Delete(Local, 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAllocateIDReusesSmallestFree(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 10, news: 10})

	for id := 0; id < 5; id++ {
		require.NoError(t, s.Put(Local, id, fmt.Sprintf("old %d", id)))
	}
	require.NoError(t, s.Delete(Local, 3))

	id, err := s.AllocateID(Local)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	require.NoError(t, s.Put(Local, id, "new content"))
	msg, err := s.Get(Local, 3)
	require.NoError(t, err)
	assert.Equal(t, "new content", msg.Text)
}

func TestAllocateIDAtCapacity(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 2, news: 10})

	require.NoError(t, s.Put(Local, 0, "a"))
	require.NoError(t, s.Put(Local, 1, "b"))

	_, err := s.AllocateID(Local)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestLimitsClampedToCompiledCeiling(t *testing.T) {
	t.Parallel()

	// operator asked for more than the flash layout supports
	s, _ := newTestStore(t, fixedLimits{local: 1000, news: 1000})

	for id := 0; id < config.MaxMessageFiles; id++ {
		require.NoError(t, s.Put(Local, id, fmt.Sprintf("m%d", id)))
	}

	_, err := s.AllocateID(Local)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestReplaceAllNewsValidatesCandidates(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, fixedLimits{local: 10, news: 3})

	err := s.ReplaceAllNews([]string{
		"  first headline  ",
		"",
		"first headline",
		strings.Repeat("y", config.MaxNewsTextLen+50),
		"second headline",
		"third headline",
		"dropped by capacity",
	})
	require.NoError(t, err)

	msgs := s.List(News)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first headline", msgs[0].Text)
	assert.Len(t, msgs[1].Text, config.MaxNewsTextLen)
	assert.Equal(t, "second headline", msgs[2].Text)
	for i, msg := range msgs {
		assert.Equal(t, i, msg.ID)
		assert.False(t, msg.FetchedAt.IsZero())
	}
}

func TestReplaceAllNewsInterruptedKeepsOldGeneration(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	limits := fixedLimits{local: 10, news: 5}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAllNews([]string{"old one", "old two"}))

	// let two record writes through, then the flash dies
	broken := &brokenPuts{RecordStore: records, remaining: 2}
	s.records = broken

	err = s.ReplaceAllNews([]string{"new one", "new two", "new three"})
	require.ErrorIs(t, err, ErrStorageFailure)

	// in-memory view is untouched
	msgs := s.List(News)
	require.Len(t, msgs, 2)
	assert.Equal(t, "old one", msgs[0].Text)
	assert.Equal(t, "old two", msgs[1].Text)

	// and so is the durable view, even across a reboot
	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	msgs = s2.List(News)
	require.Len(t, msgs, 2)
	assert.Equal(t, "old one", msgs[0].Text)

	// within capacity and no recycled-id leakage from the aborted batch
	assert.LessOrEqual(t, len(msgs), 5)
	for _, msg := range msgs {
		assert.NotContains(t, msg.Text, "new")
	}
}

func TestReplaceAllNewsDropsPreviousGeneration(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	s, err := NewMessageStore(records, fixedLimits{local: 10, news: 5}, nil)
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAllNews([]string{"gen one"}))
	require.NoError(t, s.ReplaceAllNews([]string{"gen two a", "gen two b"}))

	msgs := s.List(News)
	require.Len(t, msgs, 2)
	assert.Equal(t, "gen two a", msgs[0].Text)

	keys, err := records.List("messages/news")
	require.NoError(t, err)
	for _, key := range keys {
		assert.NotContains(t, key, "gen-000001", "first generation should be gone")
	}
}

func TestReloadRecoversNewestGenerationWhenPointerLost(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	records := NewFlashStore(fs, "/data")
	limits := fixedLimits{local: 10, news: 5}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAllNews([]string{"old one", "old two"}))

	// crash window during a pointer flip: the next generation is fully
	// on flash, the scratch pointer is written, but the old pointer was
	// removed and the rename never happened
	require.NoError(t, records.Put("messages/news/gen-000002/000",
		[]byte("text = 'newer one'\n")))
	require.NoError(t, afero.WriteFile(fs, "/data/messages/news/current.tmp",
		[]byte("2"), 0o600))
	require.NoError(t, fs.Remove("/data/messages/news/current"))

	// old-or-new: the collection must not come up empty
	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)

	msgs := s2.List(News)
	require.Len(t, msgs, 1)
	assert.Equal(t, "newer one", msgs[0].Text)

	// the recovered generation is committed again
	data, err := records.Get("messages/news/current")
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestPointerReadFaultDoesNotWipeGenerations(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	limits := fixedLimits{local: 10, news: 5}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAllNews([]string{"keep me"}))

	// a transient read fault on the pointer is an error, not license to
	// delete the news generations
	faulty := &failingGets{RecordStore: records, key: "messages/news/current"}
	_, err = NewMessageStore(faulty, limits, nil)
	require.ErrorIs(t, err, ErrStorageFailure)

	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	msgs := s2.List(News)
	require.Len(t, msgs, 1)
	assert.Equal(t, "keep me", msgs[0].Text)
}

func TestDirectNewsPutSurvivesReload(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	limits := fixedLimits{local: 10, news: 5}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(News, 0, "breaking"))

	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	msg, err := s2.Get(News, 0)
	require.NoError(t, err)
	assert.Equal(t, "breaking", msg.Text)

	// a later replace must still supersede the directly-put record
	require.NoError(t, s2.ReplaceAllNews([]string{"replaced"}))
	s3, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	msgs := s3.List(News)
	require.Len(t, msgs, 1)
	assert.Equal(t, "replaced", msgs[0].Text)
}

func TestFormatWipesEverything(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	limits := fixedLimits{local: 10, news: 5}

	s, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(Local, 0, "keep me not"))
	require.NoError(t, s.ReplaceAllNews([]string{"news"}))

	require.NoError(t, s.Format())
	assert.Equal(t, 0, s.Count(Local))
	assert.Equal(t, 0, s.Count(News))

	s2, err := NewMessageStore(records, limits, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Count(Local))
	assert.Equal(t, 0, s2.Count(News))
}

func TestLoadSkipsInvalidRecords(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	records := NewFlashStore(fs, "/data")

	require.NoError(t, records.Put("messages/local/001", []byte("good")))
	require.NoError(t, records.Put("messages/local/junk", []byte("bad id")))
	require.NoError(t, records.Put("messages/local/002",
		[]byte(strings.Repeat("z", config.MaxLocalTextLen+1))))

	s, err := NewMessageStore(records, fixedLimits{local: 10, news: 5}, nil)
	require.NoError(t, err)

	msgs := s.List(Local)
	require.Len(t, msgs, 1)
	assert.Equal(t, "good", msgs[0].Text)
}

func TestPutDegradesOnStorageFailure(t *testing.T) {
	t.Parallel()

	records := NewFlashStore(afero.NewMemMapFs(), "/data")
	s, err := NewMessageStore(records, fixedLimits{local: 10, news: 5}, nil)
	require.NoError(t, err)

	s.records = &brokenPuts{RecordStore: records, remaining: 0}

	err = s.Put(Local, 0, "memory only")
	require.ErrorIs(t, err, ErrStorageFailure)
	require.True(t, errors.Is(err, ErrStorageFailure))

	// degraded: the message still exists in memory and keeps the
	// device functional until reboot
	msg, err := s.Get(Local, 0)
	require.NoError(t, err)
	assert.Equal(t, "memory only", msg.Text)
}
