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
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// RecordStore is the minimal durable key/value contract everything in
// Ticker Core persists through. Keys are slash-separated paths relative
// to the store root. Implementations must make Put atomic: a record is
// either fully written or not visible at all.
type RecordStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	List(prefix string) ([]string, error)
	DeleteAll(prefix string) error
}

const writeRetries = 3

// FlashStore implements RecordStore on top of an afero filesystem,
// one file per record. On the appliance this is the flash filesystem;
// tests swap in an in-memory filesystem.
type FlashStore struct {
	fs   afero.Fs
	root string
}

func NewFlashStore(fs afero.Fs, root string) *FlashStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FlashStore{fs: fs, root: root}
}

func (s *FlashStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FlashStore) Get(key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("record %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return data, nil
}

// Put writes the record to a scratch file and renames it into place so
// an interrupted write never leaves a truncated record behind. The
// write is retried a bounded number of times before giving up with
// ErrStorageFailure.
func (s *FlashStore) Put(key string, data []byte) error {
	target := s.path(key)
	scratch := target + ".tmp"

	var lastErr error
	for attempt := 0; attempt < writeRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Str("key", key).Int("attempt", attempt+1).Msg("retrying record write")
		}

		lastErr = s.writeOnce(scratch, target, data)
		if lastErr == nil {
			return nil
		}
	}

	_ = s.fs.Remove(scratch)
	return fmt.Errorf("failed to write record %s: %v: %w", key, lastErr, ErrStorageFailure)
}

func (s *FlashStore) writeOnce(scratch, target string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, scratch, data, 0o600); err != nil {
		return fmt.Errorf("failed to write scratch file: %w", err)
	}
	// POSIX rename replaces an existing target atomically, so the record
	// is never absent. MemMapFs and Windows refuse to rename over an
	// existing file; only then remove the target and accept the brief
	// gap, which loadNews knows how to recover from.
	if err := s.fs.Rename(scratch, target); err == nil {
		return nil
	}
	if exists, _ := afero.Exists(s.fs, target); exists {
		if err := s.fs.Remove(target); err != nil {
			return fmt.Errorf("failed to remove previous record: %w", err)
		}
	}
	if err := s.fs.Rename(scratch, target); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

func (s *FlashStore) Delete(key string) error {
	err := s.fs.Remove(s.path(key))
	if os.IsNotExist(err) {
		return fmt.Errorf("record %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// List returns the keys of all records under the given prefix, sorted.
// Scratch files from interrupted writes are never listed.
func (s *FlashStore) List(prefix string) ([]string, error) {
	dir := s.path(prefix)
	if exists, _ := afero.DirExists(s.fs, dir); !exists {
		return nil, nil
	}

	var keys []string
	err := afero.Walk(s.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return fmt.Errorf("failed to resolve record key: %w", err)
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records under %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// DeleteAll removes every record under the given prefix. A missing
// prefix is not an error, so it can be used for cleanup of partial
// state.
func (s *FlashStore) DeleteAll(prefix string) error {
	dir := s.path(path.Clean(prefix))
	if exists, _ := afero.DirExists(s.fs, dir); !exists {
		return nil
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete records under %s: %w", prefix, err)
	}
	return nil
}
