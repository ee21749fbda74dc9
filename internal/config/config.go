// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package config loads and validates the agent's CLI options, with an
// env > file > defaults priority order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Controller selects the action-selection strategy.
type Controller string

const (
	ControllerMC     Controller = "mc"
	ControllerMCTS   Controller = "mcts"
	ControllerRandom Controller = "random"
)

// RewardEncoding selects how percept reward bits decode to a scalar.
type RewardEncoding string

const (
	RewardEncodingBase2    RewardEncoding = "base2"
	RewardEncodingBitCount RewardEncoding = "bitcount"
)

// Config is the full set of --key=value CLI options the agent binary accepts.
//
// Thread Safety: safe to read concurrently once loaded; not safe to
// mutate after Load returns.
type Config struct {
	CTDepth              int            `json:"ct_depth" yaml:"ct_depth"`
	RewardBits           int            `json:"reward_bits" yaml:"reward_bits"`
	ObservationBits      int            `json:"observation_bits" yaml:"observation_bits"`
	CycleLengthMS        int            `json:"cycle_length_ms" yaml:"cycle_length_ms"`
	AgentHorizon         int            `json:"agent_horizon" yaml:"agent_horizon"`
	AgentActions         int            `json:"agent_actions" yaml:"agent_actions"`
	AgentLoad            string         `json:"agent_load" yaml:"agent_load"`
	AgentSave            string         `json:"agent_save" yaml:"agent_save"`
	RewardEncoding       RewardEncoding `json:"reward_encoding" yaml:"reward_encoding"`
	Controller           Controller     `json:"controller" yaml:"controller"`
	Threads              int            `json:"threads" yaml:"threads"`
	Exploration          float64        `json:"exploration" yaml:"exploration"`
	ExploreDecay         float64        `json:"explore_decay" yaml:"explore_decay"`
	BootstrappedPlayouts bool           `json:"bootstrapped_playouts" yaml:"bootstrapped_playouts"`
	TerminateAge         uint64         `json:"terminate_age" yaml:"terminate_age"`
	BinaryIO             bool           `json:"binary_io" yaml:"binary_io"`
	MemsearchMB          int            `json:"memsearch_mb" yaml:"memsearch_mb"`
	MCSimulations        int            `json:"mc_simulations" yaml:"mc_simulations"`
}

// Default returns the agent's default configuration.
func Default() Config {
	return Config{
		CTDepth:         3,
		RewardBits:      1,
		ObservationBits: 1,
		AgentHorizon:    16,
		AgentActions:    4,
		RewardEncoding:  RewardEncodingBase2,
		Controller:      ControllerMCTS,
		Threads:         1,
		ExploreDecay:    1.0,
		MemsearchMB:     32,
		MCSimulations:   10000,
	}
}

// Load builds a Config with priority env > file > defaults. configPath
// may be empty, in which case only defaults and environment overrides
// apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadConfigFile(configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("config: load file: %w", err)
		}
	}

	loadConfigFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) {
	if v := os.Getenv("MCAIXI_CT_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.CTDepth = i
		}
	}
	if v := os.Getenv("MCAIXI_REWARD_BITS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.RewardBits = i
		}
	}
	if v := os.Getenv("MCAIXI_OBSERVATION_BITS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.ObservationBits = i
		}
	}
	if v := os.Getenv("MCAIXI_CYCLE_LENGTH_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.CycleLengthMS = i
		}
	}
	if v := os.Getenv("MCAIXI_AGENT_HORIZON"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.AgentHorizon = i
		}
	}
	if v := os.Getenv("MCAIXI_AGENT_ACTIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.AgentActions = i
		}
	}
	if v := os.Getenv("MCAIXI_AGENT_LOAD"); v != "" {
		cfg.AgentLoad = v
	}
	if v := os.Getenv("MCAIXI_AGENT_SAVE"); v != "" {
		cfg.AgentSave = v
	}
	if v := os.Getenv("MCAIXI_REWARD_ENCODING"); v != "" {
		cfg.RewardEncoding = RewardEncoding(v)
	}
	if v := os.Getenv("MCAIXI_CONTROLLER"); v != "" {
		cfg.Controller = Controller(v)
	}
	if v := os.Getenv("MCAIXI_THREADS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Threads = i
		}
	}
	if v := os.Getenv("MCAIXI_EXPLORATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Exploration = f
		}
	}
	if v := os.Getenv("MCAIXI_EXPLORE_DECAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ExploreDecay = f
		}
	}
	if v := os.Getenv("MCAIXI_BOOTSTRAPPED_PLAYOUTS"); v != "" {
		cfg.BootstrappedPlayouts = v == "true" || v == "1"
	}
	if v := os.Getenv("MCAIXI_TERMINATE_AGE"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.TerminateAge = u
		}
	}
	if v := os.Getenv("MCAIXI_BINARY_IO"); v != "" {
		cfg.BinaryIO = v == "true" || v == "1"
	}
	if v := os.Getenv("MCAIXI_MEMSEARCH_MB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.MemsearchMB = i
		}
	}
	if v := os.Getenv("MCAIXI_MC_SIMULATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.MCSimulations = i
		}
	}
}

// Validate enforces the option-combination rules on top of
// per-field range checks.
func (c Config) Validate() error {
	if c.CTDepth < 1 {
		return fmt.Errorf("ct-depth must be >= 1")
	}
	if c.RewardBits < 1 {
		return fmt.Errorf("reward-bits must be >= 1")
	}
	if c.ObservationBits < 1 {
		return fmt.Errorf("observation-bits must be >= 1")
	}
	if c.AgentHorizon < 1 {
		return fmt.Errorf("agent-horizon must be >= 1")
	}
	if c.AgentActions < 2 {
		return fmt.Errorf("agent-actions must be >= 2")
	}
	if c.RewardEncoding != RewardEncodingBase2 && c.RewardEncoding != RewardEncodingBitCount {
		return fmt.Errorf("reward-encoding must be %q or %q", RewardEncodingBase2, RewardEncodingBitCount)
	}
	switch c.Controller {
	case ControllerMC, ControllerMCTS, ControllerRandom:
	default:
		return fmt.Errorf("controller must be %q, %q, or %q", ControllerMC, ControllerMCTS, ControllerRandom)
	}
	if c.Threads < 1 || c.Threads > 32 {
		return fmt.Errorf("threads must be between 1 and 32")
	}
	if c.Exploration < 0 || c.Exploration > 1 {
		return fmt.Errorf("exploration must be between 0 and 1")
	}
	if c.ExploreDecay < 0 || c.ExploreDecay > 1 {
		return fmt.Errorf("explore-decay must be between 0 and 1")
	}
	if c.MemsearchMB < 1 {
		return fmt.Errorf("memsearch must be >= 1")
	}

	if c.Threads > 1 && c.Controller != ControllerMCTS {
		return fmt.Errorf("threads > 1 requires controller=mcts")
	}
	if c.Controller == ControllerMCTS {
		haveSims := c.MCSimulations > 0
		haveCycle := c.CycleLengthMS > 0
		if haveSims == haveCycle {
			return fmt.Errorf("controller=mcts requires exactly one of mc-simulations or cycle-length-ms")
		}
	}
	if c.Exploration > 0 && c.Controller == ControllerRandom {
		return fmt.Errorf("exploration is incompatible with controller=random")
	}
	return nil
}
