// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faccxi/mcaixi/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Controller = config.ControllerRandom
	cfg.ObservationBits = 1
	cfg.RewardBits = 1
	cfg.AgentActions = 2
	cfg.AgentHorizon = 4
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionRunsPerceptActionCycles(t *testing.T) {
	s, err := newSession(testConfig(), discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("00\n11\n01\n")
	var out bytes.Buffer

	code, err := s.run(context.Background(), input, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Len(t, line, s.hive.Member(0).ActionBits())
	}
	assert.EqualValues(t, 3, s.hive.Member(0).Age())
}

func TestSessionRejectsMalformedPercept(t *testing.T) {
	s, err := newSession(testConfig(), discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("not-binary\n")
	var out bytes.Buffer

	code, err := s.run(context.Background(), input, &out)
	assert.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestSessionHandlesQuitCommand(t *testing.T) {
	s, err := newSession(testConfig(), discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("00\n:quit\n01\n")
	var out bytes.Buffer

	code, err := s.run(context.Background(), input, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code, "no --agent-save configured, so :quit exits 0")
	assert.EqualValues(t, 1, s.hive.Member(0).Age(), "the percept after :quit is never processed")
}

func TestSessionSaveLoadRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.AgentSave = filepath.Join(t.TempDir(), "session.json")

	s, err := newSession(cfg, discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("00\n11\n:quit\n")
	var out bytes.Buffer

	code, err := s.run(context.Background(), input, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, code, "quit with --agent-save configured exits 1")

	loadCfg := testConfig()
	loadCfg.AgentLoad = cfg.AgentSave
	loaded, err := newSession(loadCfg, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, s.hive.Member(0).Hash(), loaded.hive.Member(0).Hash())
	assert.Equal(t, s.hive.Member(0).Age(), loaded.hive.Member(0).Age())
}

func TestSessionResetCommand(t *testing.T) {
	s, err := newSession(testConfig(), discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("00\n11\n:reset\n")
	var out bytes.Buffer

	_, err = s.run(context.Background(), input, &out)
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.hive.Member(0).Age())
}

func TestSessionAgeAndHorizonCommands(t *testing.T) {
	s, err := newSession(testConfig(), discardLogger())
	require.NoError(t, err)

	input := strings.NewReader("00\n:age\n:horizon\n")
	var out bytes.Buffer

	_, err = s.run(context.Background(), input, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1", lines[1])
	assert.Equal(t, "4", lines[2])
}
