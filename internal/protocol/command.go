// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const helpText = `:help              print this command list
:quit              save (if --agent-save is set) and exit
:load [filename]   rebuild the hive from filename, or --agent-load
:save [filename]   save the primary agent to filename, or --agent-save
:reset             clear all agents' models and histories
:age               print the current age
:horizon           print the planning horizon`

// Handlers are the session-level operations a Dispatcher delegates to.
// Kept as plain function fields rather than an interface so cmd/mcaixi
// can wire closures over its own agent.Hive/persist.Store instances
// without protocol importing either package.
type Handlers struct {
	Load    func(filename string) error
	Save    func(filename string) error
	Reset   func()
	Age     func() uint64
	Horizon func() int
}

// Result is what a dispatched command produced.
type Result struct {
	// Output is the text to print to stdout, if any.
	Output string
	// Quit reports whether the session should end after this command.
	Quit bool
	// ExitCode is the process exit code to use when Quit is true.
	ExitCode int
}

// Dispatcher parses and executes REPL commands (lines beginning with
// ':'). defaultSave configures :quit's save-then-exit-1 behavior: a
// non-empty defaultSave means a save destination is configured.
type Dispatcher struct {
	h                        Handlers
	defaultLoad, defaultSave string
}

// NewDispatcher builds a Dispatcher. defaultLoad/defaultSave are the
// --agent-load/--agent-save CLI values, used when :load/:save are
// given no explicit filename argument.
func NewDispatcher(h Handlers, defaultLoad, defaultSave string) *Dispatcher {
	return &Dispatcher{h: h, defaultLoad: defaultLoad, defaultSave: defaultSave}
}

// IsCommand reports whether line is a REPL command rather than a
// percept.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.TrimRight(line, "\r\n")), ":")
}

// Dispatch parses and executes one command line. line must satisfy
// IsCommand; callers route percept lines to DecodePercept instead.
func (d *Dispatcher) Dispatch(line string) (Result, error) {
	fields := strings.Fields(strings.TrimRight(line, "\r\n"))
	if len(fields) == 0 {
		return Result{}, ErrUnknownCommand
	}
	name := fields[0]
	args := fields[1:]

	switch name {
	case ":help":
		return Result{Output: helpText}, nil

	case ":quit":
		if d.defaultSave != "" {
			if err := d.h.Save(d.defaultSave); err != nil {
				return Result{}, fmt.Errorf("protocol: save on quit: %w", err)
			}
			return Result{Quit: true, ExitCode: 1}, nil
		}
		return Result{Quit: true, ExitCode: 0}, nil

	case ":load":
		filename := d.defaultLoad
		if len(args) > 0 {
			filename = args[0]
		}
		if err := d.h.Load(filename); err != nil {
			return Result{}, fmt.Errorf("protocol: load: %w", err)
		}
		return Result{Output: "loaded " + filename}, nil

	case ":save":
		filename := d.defaultSave
		if len(args) > 0 {
			filename = args[0]
		}
		if err := d.h.Save(filename); err != nil {
			return Result{}, fmt.Errorf("protocol: save: %w", err)
		}
		return Result{Output: "saved " + filename}, nil

	case ":reset":
		d.h.Reset()
		return Result{Output: "reset"}, nil

	case ":age":
		return Result{Output: strconv.FormatUint(d.h.Age(), 10)}, nil

	case ":horizon":
		return Result{Output: strconv.Itoa(d.h.Horizon())}, nil

	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}
