// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package persist

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faccxi/mcaixi/internal/agent"
	"github.com/faccxi/mcaixi/internal/bit"
)

func testAgentOptions() agent.Options {
	return agent.Options{
		ObservationBits: 1,
		RewardBits:      2,
		NumActions:      4,
		CTDepth:         3,
		Horizon:         8,
		RewardEncoding:  agent.Base2,
		SelfModel:       true,
	}
}

// warm applies a deterministic sequence of action/percept updates,
// exercising both branches of Agent's event log.
func warm(t *testing.T, a *agent.Agent, cycles int) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < cycles; i++ {
		action := i % a.NumActions()
		require.NoError(t, a.ModelUpdateAction(action))
		percept := make([]bit.Symbol, a.ObservationBits()+a.RewardBits())
		for j := range percept {
			if rng.Float64() < 0.5 {
				percept[j] = bit.On
			}
		}
		require.NoError(t, a.ModelUpdatePercept(percept))
	}
}

func TestBinaryStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(StoreConfig{Path: filepath.Join(dir, "db"), Format: Binary})
	require.NoError(t, err)
	defer store.Close()

	a := agent.New(testAgentOptions())
	warm(t, a, 25)

	id, err := store.Save("", a)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := store.Load(id, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), loaded.Hash())
	assert.Equal(t, a.Age(), loaded.Age())
	assert.Equal(t, a.Reward(), loaded.Reward())
	assert.Equal(t, a.HistorySize(), loaded.HistorySize())
	assert.Equal(t, a.HashAfterAction(0), loaded.HashAfterAction(0))
}

func TestBinaryStoreSavesEachHiveMemberUnderItsOwnKey(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(StoreConfig{Path: filepath.Join(dir, "db"), Format: Binary})
	require.NoError(t, err)
	defer store.Close()

	seed := agent.New(testAgentOptions())
	warm(t, seed, 10)
	hive := agent.NewHiveFromAgent(3, seed)

	ids, err := store.SaveHive(hive, "session")
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, id := range ids {
		loaded, err := store.Load(id, nil)
		require.NoError(t, err)
		assert.Equal(t, hive.Member(i).Hash(), loaded.Hash())
	}
}

func TestTextStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	store, err := Open(StoreConfig{Path: path, Format: Text})
	require.NoError(t, err)
	defer store.Close()

	a := agent.New(testAgentOptions())
	warm(t, a, 15)

	_, err = store.Save("primary", a)
	require.NoError(t, err)

	loaded, err := store.Load("primary", nil)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), loaded.Hash())
	assert.Equal(t, a.Reward(), loaded.Reward())
}

func TestLoadUnknownIDFails(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(StoreConfig{Path: filepath.Join(dir, "db"), Format: Binary})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load("does-not-exist", nil)
	assert.Error(t, err)
}
