// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/faccxi/mcaixi/internal/config"
)

var (
	configPath string
	cfg        config.Config

	ctDepth              int
	rewardBits           int
	observationBits      int
	cycleLengthMS        int
	agentHorizon         int
	agentActions         int
	agentLoad            string
	agentSave            string
	rewardEncoding       string
	controllerName       string
	threads              int
	exploration          float64
	exploreDecay         float64
	bootstrappedPlayouts bool
	terminateAge         uint64
	binaryIO             bool
	memsearchMB          int
	mcSimulations        int

	rootCmd = &cobra.Command{
		Use:   "mcaixi",
		Short: "Run an MC-AIXI(FAC-CTW) reinforcement-learning agent",
		Long: `mcaixi drives a general reinforcement-learning agent that combines a
factored context-tree-weighting predictor with a Monte-Carlo planner,
reading percepts and commands from stdin and writing actions to stdout.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			applyFlagOverrides(cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("mcaixi: invalid configuration: %w", err)
			}
			return nil
		},
		RunE: runAgent,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML/JSON configuration file")
	flags.IntVar(&ctDepth, "ct-depth", 0, "context tree depth")
	flags.IntVar(&rewardBits, "reward-bits", 0, "reward bit width")
	flags.IntVar(&observationBits, "observation-bits", 0, "observation bit width")
	flags.IntVar(&cycleLengthMS, "cycle-length-ms", 0, "search wall-clock budget in milliseconds")
	flags.IntVar(&agentHorizon, "agent-horizon", 0, "planning horizon in cycles")
	flags.IntVar(&agentActions, "agent-actions", 0, "number of distinct actions")
	flags.StringVar(&agentLoad, "agent-load", "", "path to load the primary agent from at startup")
	flags.StringVar(&agentSave, "agent-save", "", "default path to save the primary agent to")
	flags.StringVar(&rewardEncoding, "reward-encoding", "", "reward decoding scheme: base2 or bitcount")
	flags.StringVar(&controllerName, "controller", "", "action-selection controller: mc, mcts, or random")
	flags.IntVar(&threads, "threads", 0, "search worker thread count (mcts only)")
	flags.Float64Var(&exploration, "exploration", 0, "epsilon-greedy exploration rate")
	flags.Float64Var(&exploreDecay, "explore-decay", 0, "epsilon-greedy decay factor per cycle")
	flags.BoolVar(&bootstrappedPlayouts, "bootstrapped-playouts", false, "enable the self-model-driven playout policy")
	flags.Uint64Var(&terminateAge, "terminate-age", 0, "stop the session once this age is reached")
	flags.BoolVar(&binaryIO, "binary-io", false, "save/load in binary (BadgerDB) rather than text (JSON) form")
	flags.IntVar(&memsearchMB, "memsearch", 0, "search-node pool memory budget in megabytes")
	flags.IntVar(&mcSimulations, "mc-simulations", 0, "search simulation-count budget (mcts only)")
}

// applyFlagOverrides copies every flag the caller explicitly set onto
// the config.Load result, so a flag always wins over the file/env
// layers underneath it without needing its own zero value to be
// distinguishable from "not set".
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("ct-depth") {
		cfg.CTDepth = ctDepth
	}
	if flags.Changed("reward-bits") {
		cfg.RewardBits = rewardBits
	}
	if flags.Changed("observation-bits") {
		cfg.ObservationBits = observationBits
	}
	if flags.Changed("cycle-length-ms") {
		cfg.CycleLengthMS = cycleLengthMS
	}
	if flags.Changed("agent-horizon") {
		cfg.AgentHorizon = agentHorizon
	}
	if flags.Changed("agent-actions") {
		cfg.AgentActions = agentActions
	}
	if flags.Changed("agent-load") {
		cfg.AgentLoad = agentLoad
	}
	if flags.Changed("agent-save") {
		cfg.AgentSave = agentSave
	}
	if flags.Changed("reward-encoding") {
		cfg.RewardEncoding = config.RewardEncoding(rewardEncoding)
	}
	if flags.Changed("controller") {
		cfg.Controller = config.Controller(controllerName)
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("exploration") {
		cfg.Exploration = exploration
	}
	if flags.Changed("explore-decay") {
		cfg.ExploreDecay = exploreDecay
	}
	if flags.Changed("bootstrapped-playouts") {
		cfg.BootstrappedPlayouts = bootstrappedPlayouts
	}
	if flags.Changed("terminate-age") {
		cfg.TerminateAge = terminateAge
	}
	if flags.Changed("binary-io") {
		cfg.BinaryIO = binaryIO
	}
	if flags.Changed("memsearch") {
		cfg.MemsearchMB = memsearchMB
	}
	if flags.Changed("mc-simulations") {
		cfg.MCSimulations = mcSimulations
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := newSession(cfg, log)
	if err != nil {
		return err
	}

	exitCode, err := s.run(context.Background(), os.Stdin, os.Stdout)
	if err != nil {
		log.Error("session ended with an error", "error", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
