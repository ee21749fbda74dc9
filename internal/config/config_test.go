// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "ct_depth: 5\nagent_actions: 8\ncontroller: mc\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.CTDepth)
	assert.Equal(t, 8, cfg.AgentActions)
	assert.Equal(t, ControllerMC, cfg.Controller)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ct_depth: 5\n"), 0644))

	t.Setenv("MCAIXI_CT_DEPTH", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.CTDepth)
}

func TestValidateRejectsTooFewActions(t *testing.T) {
	cfg := Default()
	cfg.AgentActions = 1
	assert.Error(t, cfg.Validate())
}

func TestValidateThreadsRequireMCTS(t *testing.T) {
	cfg := Default()
	cfg.Threads = 4
	cfg.Controller = ControllerRandom
	assert.Error(t, cfg.Validate())
}

func TestValidateMCTSRequiresExactlyOneBudget(t *testing.T) {
	cfg := Default()
	cfg.Controller = ControllerMCTS
	cfg.MCSimulations = 0 // Default() sets a simulation budget
	cfg.CycleLengthMS = 0

	assert.Error(t, cfg.Validate(), "neither mc-simulations nor cycle-length-ms set")

	cfg.MCSimulations = 1000
	cfg.CycleLengthMS = 200
	assert.Error(t, cfg.Validate(), "both set")

	cfg.CycleLengthMS = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidateExplorationIncompatibleWithRandom(t *testing.T) {
	cfg := Default()
	cfg.Controller = ControllerRandom
	cfg.Exploration = 0.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownRewardEncoding(t *testing.T) {
	cfg := Default()
	cfg.RewardEncoding = "gray"
	assert.Error(t, cfg.Validate())
}
