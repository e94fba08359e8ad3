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

// Package settings is the operator-facing runtime configuration of the
// ticker: display speed and brightness, collection sizes and refresh
// intervals. Values live in memory, are bounds-checked on every write
// and are written through to a settings.ini record on the flash
// filesystem.
package settings

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/store"
	"github.com/rs/zerolog/log"
	ini "gopkg.in/ini.v1"
)

type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "int"
	}
}

// Definition declares one setting: its kind, default and (for numeric
// kinds) inclusive bounds.
type Definition struct {
	Name    string
	Kind    Kind
	Default float64
	Min     float64
	Max     float64
}

// Setting names and bounds. Maxima double as the compiled-in ceilings,
// so an accepted value can never exceed what the flash layout or the
// display hardware supports.
var definitions = []Definition{
	{Name: "textSpeed", Kind: KindInt, Default: 25, Min: 1, Max: config.MaxTextSpeed},
	{Name: "maxIntensity", Kind: KindInt, Default: 6, Min: 0, Max: config.MaxIntensityCeil},
	{Name: "ldrLowOffset", Kind: KindInt, Default: 40, Min: 0, Max: 1023},
	{Name: "ldrHighOffset", Kind: KindInt, Default: 1000, Min: 0, Max: 1023},
	{Name: "localMaxMsg", Kind: KindInt, Default: 10, Min: 1, Max: config.MaxMessageFiles},
	{Name: "newsMaxMsg", Kind: KindInt, Default: 10, Min: 1, Max: config.MaxMessageFiles},
	{Name: "newsInterval", Kind: KindInt, Default: 30, Min: 2, Max: 120},
	{Name: "weerLiveInterval", Kind: KindInt, Default: 10, Min: 0, Max: 120},
}

// Info is the read-side view of a setting, bounds included, as served
// by the settings API.
type Info struct {
	Value any     `json:"value"`
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Store holds all operator settings. Writes go through to the record
// store immediately; a failing medium degrades to in-memory operation
// with the failure surfaced to the caller.
type Store struct {
	records store.RecordStore
	numbers map[string]float64
	strs    map[string]string
	defs    map[string]Definition
	mu      sync.RWMutex
}

// NewStore builds the settings store and loads the durable record. A
// missing record is created from defaults; a corrupt one is replaced
// wholesale by defaults, never merged partially.
func NewStore(records store.RecordStore) *Store {
	s := &Store{
		records: records,
		numbers: make(map[string]float64),
		strs:    make(map[string]string),
		defs:    make(map[string]Definition, len(definitions)),
	}
	for _, def := range definitions {
		s.defs[def.Name] = def
	}
	s.LoadAll()
	return s
}

// LoadAll reads settings.ini into memory. Any key that is missing,
// unparsable or out of bounds falls back to its default (numeric values
// are clamped), and the gap is healed by rewriting the record.
func (s *Store) LoadAll() {
	s.mu.Lock()

	for _, def := range definitions {
		s.applyDefaultLocked(def)
	}

	heal := false
	data, err := s.records.Get(config.SettingsFile)
	switch {
	case err != nil:
		log.Info().Msg("no settings record, writing defaults")
		heal = true
	default:
		file, err := ini.Load(data)
		if err != nil {
			log.Error().Err(err).Msg("corrupt settings record, falling back to defaults")
			heal = true
			break
		}

		section := file.Section("")
		for _, def := range definitions {
			if !section.HasKey(def.Name) {
				heal = true
				continue
			}
			if !s.applyRawLocked(def, section.Key(def.Name).String()) {
				heal = true
			}
		}
	}

	s.mu.Unlock()

	if heal {
		if err := s.PersistAll(); err != nil {
			log.Error().Err(err).Msg("failed to heal settings record")
		}
	}
}

func (s *Store) applyDefaultLocked(def Definition) {
	if def.Kind == KindString {
		s.strs[def.Name] = ""
		return
	}
	s.numbers[def.Name] = def.Default
}

// applyRawLocked parses and applies a raw value from the durable
// record, clamping numeric values into bounds. Returns false when the
// record's value had to be repaired.
func (s *Store) applyRawLocked(def Definition, raw string) bool {
	switch def.Kind {
	case KindString:
		s.strs[def.Name] = raw
		return true
	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return false
		}
		clamped := clamp(v, def.Min, def.Max)
		s.numbers[def.Name] = clamped
		return clamped == v
	default:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		clamped := clamp(float64(v), def.Min, def.Max)
		s.numbers[def.Name] = clamped
		return clamped == float64(v)
	}
}

// PersistAll rewrites the whole settings record. The record store makes
// the replace atomic, so a failed write never truncates the previous
// content.
func (s *Store) PersistAll() error {
	s.mu.RLock()

	file := ini.Empty()
	section := file.Section("")
	for _, def := range definitions {
		section.Key(def.Name).SetValue(s.formatLocked(def))
	}

	var buf bytes.Buffer
	_, err := file.WriteTo(&buf)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return s.records.Put(config.SettingsFile, buf.Bytes())
}

func (s *Store) formatLocked(def Definition) string {
	switch def.Kind {
	case KindString:
		return s.strs[def.Name]
	case KindFloat:
		return strconv.FormatFloat(s.numbers[def.Name], 'f', -1, 64)
	default:
		return strconv.Itoa(int(s.numbers[def.Name]))
	}
}

// Set parses rawValue according to the setting's declared kind and
// applies it. Unknown names, parse failures and out-of-bounds values
// are rejected without touching the stored value. Accepted values are
// written through; a storage failure leaves the new value active in
// memory and is returned to the caller.
func (s *Store) Set(name, rawValue string) error {
	def, ok := s.defs[name]
	if !ok {
		return fmt.Errorf("setting %s: %w", name, store.ErrNotFound)
	}

	s.mu.Lock()
	switch def.Kind {
	case KindString:
		if len(rawValue) > config.MaxLocalTextLen {
			s.mu.Unlock()
			return fmt.Errorf("setting %s: %w", name, store.ErrInvalidValue)
		}
		s.strs[name] = rawValue
	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
		if err != nil || v < def.Min || v > def.Max {
			s.mu.Unlock()
			return fmt.Errorf("setting %s=%q: %w", name, rawValue, store.ErrInvalidValue)
		}
		s.numbers[name] = v
	default:
		v, err := strconv.Atoi(strings.TrimSpace(rawValue))
		if err != nil || float64(v) < def.Min || float64(v) > def.Max {
			s.mu.Unlock()
			return fmt.Errorf("setting %s=%q: %w", name, rawValue, store.ErrInvalidValue)
		}
		s.numbers[name] = float64(v)
	}
	s.mu.Unlock()

	// write-through, no batching
	return s.PersistAll()
}

// Get returns the current value and metadata for one setting.
func (s *Store) Get(name string) (Info, error) {
	def, ok := s.defs[name]
	if !ok {
		return Info{}, fmt.Errorf("setting %s: %w", name, store.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked(def), nil
}

// List returns every setting with its bounds, in declaration order.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(definitions))
	for _, def := range definitions {
		infos = append(infos, s.infoLocked(def))
	}
	return infos
}

func (s *Store) infoLocked(def Definition) Info {
	info := Info{
		Name: def.Name,
		Type: def.Kind.String(),
		Min:  def.Min,
		Max:  def.Max,
	}
	switch def.Kind {
	case KindString:
		info.Value = s.strs[def.Name]
	case KindFloat:
		info.Value = s.numbers[def.Name]
	default:
		info.Value = int(s.numbers[def.Name])
	}
	return info
}

func (s *Store) intValue(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.numbers[name])
}

func (s *Store) TextSpeed() int     { return s.intValue("textSpeed") }
func (s *Store) MaxIntensity() int  { return s.intValue("maxIntensity") }
func (s *Store) LDRLowOffset() int  { return s.intValue("ldrLowOffset") }
func (s *Store) LDRHighOffset() int { return s.intValue("ldrHighOffset") }

// LocalMaxMessages and NewsMaxMessages satisfy store.Limits.
func (s *Store) LocalMaxMessages() int { return s.intValue("localMaxMsg") }
func (s *Store) NewsMaxMessages() int  { return s.intValue("newsMaxMsg") }

func (s *Store) NewsInterval() time.Duration {
	return time.Duration(s.intValue("newsInterval")) * time.Minute
}

// WeerLiveInterval is the weather refresh period; zero disables it.
func (s *Store) WeerLiveInterval() time.Duration {
	return time.Duration(s.intValue("weerLiveInterval")) * time.Minute
}

// Reset restores every setting to its default and rewrites the record.
func (s *Store) Reset() error {
	s.mu.Lock()
	for _, def := range definitions {
		s.applyDefaultLocked(def)
	}
	s.mu.Unlock()
	return s.PersistAll()
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
