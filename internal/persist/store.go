// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package persist

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/faccxi/mcaixi/internal/agent"
)

// Format selects how a Store persists Snapshots, mirroring the
// --binary-io flag: Binary keeps a BadgerDB keyed by agent id, Text
// writes a single human-readable JSON document.
type Format int

const (
	Binary Format = iota
	Text
)

// StoreConfig configures a Store. Path is a BadgerDB directory in
// Binary mode, or the destination file in Text mode.
type StoreConfig struct {
	Path   string
	Format Format
	Logger *slog.Logger
}

// Store is the --agent-save/--agent-load backend. In Binary mode each
// saved Agent occupies one BadgerDB value keyed by its id (a generated
// UUID when Save is given an empty id), so
// a single store can hold an entire hive's worth of agents. In Text
// mode there is exactly one Snapshot per file: a single readable
// document rather than a database.
type Store struct {
	cfg StoreConfig
	db  *badger.DB // nil in Text mode
}

// Open prepares a Store for cfg.Format. In Binary mode this opens (and
// creates, if absent) the backing BadgerDB; in Text mode it only
// records the destination path, since there is no database to open
// until Save is called.
func Open(cfg StoreConfig) (*Store, error) {
	s := &Store{cfg: cfg}
	if cfg.Format == Binary {
		db, err := openBadger(DBConfig{Path: cfg.Path, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	return s, nil
}

// Close releases the underlying BadgerDB, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists a's replay log under id. If id is empty, a new UUID is
// generated and returned so callers without a stable identity yet
// (the first save of a session) can remember it for subsequent saves
// and for Load.
func (s *Store) Save(id string, a *agent.Agent) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	snap := Capture(id, a)

	if s.cfg.Format == Text {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return "", fmt.Errorf("persist: encode snapshot %s: %w", id, err)
		}
		if err := os.WriteFile(s.cfg.Path, data, 0600); err != nil {
			return "", fmt.Errorf("persist: write %s: %w", s.cfg.Path, err)
		}
		return id, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return "", fmt.Errorf("persist: encode snapshot %s: %w", id, err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id), buf.Bytes())
	})
	if err != nil {
		return "", fmt.Errorf("persist: store snapshot %s: %w", id, err)
	}
	return id, nil
}

// SaveHive persists every member of h, keying each under
// "<idPrefix>-<index>". It is a Binary-mode-only convenience: Text
// mode holds a single document and can't address more than one agent,
// so SaveHive on a Text store saves only the primary member (index 0).
func (s *Store) SaveHive(h *agent.Hive, idPrefix string) ([]string, error) {
	if s.cfg.Format == Text {
		id, err := s.Save(idPrefix, h.Member(0))
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	ids := make([]string, h.Size())
	for i := 0; i < h.Size(); i++ {
		id, err := s.Save(fmt.Sprintf("%s-%d", idPrefix, i), h.Member(i))
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Load reconstructs the Agent saved under id by replaying its
// Snapshot's events against a fresh agent.New. In Text mode id is
// ignored, since the store holds exactly one document.
func (s *Store) Load(id string, logger *slog.Logger) (*agent.Agent, error) {
	snap, err := s.loadSnapshot(id)
	if err != nil {
		return nil, err
	}
	return snap.Rebuild(logger)
}

func (s *Store) loadSnapshot(id string) (Snapshot, error) {
	var snap Snapshot

	if s.cfg.Format == Text {
		data, err := os.ReadFile(s.cfg.Path)
		if err != nil {
			return snap, fmt.Errorf("persist: read %s: %w", s.cfg.Path, err)
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			return snap, fmt.Errorf("persist: decode %s: %w", s.cfg.Path, err)
		}
		return snap, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&snap)
		})
	})
	if err != nil {
		return snap, fmt.Errorf("persist: load snapshot %s: %w", id, err)
	}
	return snap, nil
}
