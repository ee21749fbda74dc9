// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/faccxi/mcaixi/internal/agent"
	"github.com/faccxi/mcaixi/internal/config"
	"github.com/faccxi/mcaixi/internal/persist"
	"github.com/faccxi/mcaixi/internal/protocol"
	"github.com/faccxi/mcaixi/internal/search"
)

// primaryID is the persisted identity of the single agent cmd/mcaixi
// operates on. The session's Hive has exactly one member; the search
// controller makes its own worker-local clones (see internal/search), so
// the session loop only ever advances member 0's real history.
const primaryID = "primary"

// session owns the running agent, the configured controller, and the
// REPL dispatcher wired to this session's own load/save/reset/age/
// horizon operations.
type session struct {
	cfg        config.Config
	log        *slog.Logger
	hive       *agent.Hive
	controller search.Controller
	dispatcher *protocol.Dispatcher
	rng        *rand.Rand

	cycles      uint64
	startedAt   time.Time
	startReward float64
}

func newSession(cfg config.Config, log *slog.Logger) (*session, error) {
	opts := agentOptions(cfg, log)

	var hive *agent.Hive
	if cfg.AgentLoad != "" {
		loaded, err := loadPrimary(cfg, cfg.AgentLoad, log)
		if err != nil {
			return nil, fmt.Errorf("mcaixi: load %s: %w", cfg.AgentLoad, err)
		}
		hive = agent.NewHiveFromAgent(1, loaded)
	} else {
		hive = agent.NewHive(1, opts)
	}

	s := &session{
		cfg:       cfg,
		log:       log,
		hive:      hive,
		rng:       rand.New(rand.NewSource(1)),
		startedAt: time.Now(),
	}
	s.startReward = s.hive.Member(0).Reward()
	s.controller = buildController(cfg, log)
	s.dispatcher = protocol.NewDispatcher(protocol.Handlers{
		Load:    s.load,
		Save:    s.save,
		Reset:   s.reset,
		Age:     s.age,
		Horizon: s.horizon,
	}, cfg.AgentLoad, cfg.AgentSave)
	return s, nil
}

func agentOptions(cfg config.Config, log *slog.Logger) agent.Options {
	encoding := agent.Base2
	if cfg.RewardEncoding == config.RewardEncodingBitCount {
		encoding = agent.BitCount
	}
	return agent.Options{
		ObservationBits: cfg.ObservationBits,
		RewardBits:      cfg.RewardBits,
		NumActions:      cfg.AgentActions,
		CTDepth:         cfg.CTDepth,
		Horizon:         cfg.AgentHorizon,
		RewardEncoding:  encoding,
		SelfModel:       cfg.BootstrappedPlayouts,
		Logger:          log,
	}
}

func buildController(cfg config.Config, log *slog.Logger) search.Controller {
	metrics := search.NewMetrics(nil)

	var inner search.Controller
	switch cfg.Controller {
	case config.ControllerRandom:
		return search.NewRandomController()
	case config.ControllerMC:
		inner = search.NewNaiveMCController(search.NaiveMCConfig{
			CycleLength: time.Duration(cfg.CycleLengthMS) * time.Millisecond,
			Logger:      log,
			Metrics:     metrics,
		})
	default:
		inner = search.NewMCTSController(search.MCTSConfig{
			Threads:       cfg.Threads,
			MCSimulations: cfg.MCSimulations,
			CycleLength:   time.Duration(cfg.CycleLengthMS) * time.Millisecond,
			MaxSearchNodes: memsearchToNodes(cfg.MemsearchMB),
			Logger:        log,
			Metrics:       metrics,
		})
	}

	if cfg.Exploration > 0 {
		return search.NewEpsilonGreedy(inner, cfg.Exploration, cfg.ExploreDecay)
	}
	return inner
}

// memsearchToNodes converts the --memsearch budget (megabytes) into a
// node-count cap, using a generous 256 bytes per node to cover the
// mutex, atomic counters, and small fixed fields search.Node carries.
func memsearchToNodes(mb int) int {
	const bytesPerNode = 256
	return mb * 1024 * 1024 / bytesPerNode
}

func openStore(cfg config.Config, path string) (*persist.Store, error) {
	format := persist.Text
	if cfg.BinaryIO {
		format = persist.Binary
	}
	return persist.Open(persist.StoreConfig{Path: path, Format: format, Logger: nil})
}

func loadPrimary(cfg config.Config, path string, log *slog.Logger) (*agent.Agent, error) {
	store, err := openStore(cfg, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(primaryID, log)
}

func (s *session) load(filename string) error {
	loaded, err := loadPrimary(s.cfg, filename, s.log)
	if err != nil {
		return err
	}
	s.hive = agent.NewHiveFromAgent(1, loaded)
	return nil
}

func (s *session) save(filename string) error {
	store, err := openStore(s.cfg, filename)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Save(primaryID, s.hive.Member(0))
	return err
}

func (s *session) reset() {
	s.hive = agent.NewHive(1, agentOptions(s.cfg, s.log))
	s.startReward = 0
	s.cycles = 0
	s.startedAt = time.Now()
}

func (s *session) age() uint64 { return s.hive.Member(0).Age() }

func (s *session) horizon() int { return s.hive.Member(0).Horizon() }

// run drives the percept/action loop against r/w until a :quit command,
// a --terminate-age cutoff, or a fatal protocol error. It returns the
// process exit code assigned to the way the session ended.
func (s *session) run(ctx context.Context, r io.Reader, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	perceptWidth := s.cfg.ObservationBits + s.cfg.RewardBits

	for scanner.Scan() {
		line := scanner.Text()

		if protocol.IsCommand(line) {
			result, err := s.dispatcher.Dispatch(line)
			if err != nil {
				s.log.Error("command failed", "line", line, "error", err)
				fmt.Fprintln(w, "error: "+err.Error())
				continue
			}
			if result.Output != "" {
				fmt.Fprintln(w, result.Output)
			}
			if result.Quit {
				s.logSummary()
				return result.ExitCode, nil
			}
			continue
		}

		percept, err := protocol.DecodePercept(line, perceptWidth)
		if err != nil {
			return 1, fmt.Errorf("mcaixi: fatal protocol error: %w", err)
		}
		if err := s.hive.ModelUpdatePercept(percept); err != nil {
			return 1, fmt.Errorf("mcaixi: model update percept: %w", err)
		}

		action, err := s.controller.SelectAction(ctx, s.hive.Member(0), s.rng)
		if err != nil {
			s.log.Warn("search failed, falling back to random action", "error", err)
			action = s.hive.Member(0).SelectRandomAction(s.rng)
		}
		if err := s.hive.ModelUpdateAction(action); err != nil {
			return 1, fmt.Errorf("mcaixi: model update action: %w", err)
		}
		fmt.Fprintln(w, protocol.EncodeAction(action, s.hive.Member(0).ActionBits()))
		s.cycles++

		if s.cfg.TerminateAge > 0 && s.hive.Member(0).Age() >= s.cfg.TerminateAge {
			if s.cfg.AgentSave != "" {
				if err := s.save(s.cfg.AgentSave); err != nil {
					s.log.Error("save on terminate-age failed", "error", err)
				}
			}
			s.logSummary()
			return 0, nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return 1, fmt.Errorf("mcaixi: read input: %w", err)
	}
	s.logSummary()
	return 0, nil
}

func (s *session) logSummary() {
	primary := s.hive.Member(0)
	elapsed := time.Since(s.startedAt).Seconds()
	var cyclesPerSec float64
	if elapsed > 0 {
		cyclesPerSec = float64(s.cycles) / elapsed
	}
	var avgReward float64
	if s.cycles > 0 {
		avgReward = (primary.Reward() - s.startReward) / float64(s.cycles)
	}
	s.log.Info("session summary",
		"age", primary.Age(),
		"cycles", s.cycles,
		"average_reward", avgReward,
		"cycles_per_second", cyclesPerSec,
	)
}
