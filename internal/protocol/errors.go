// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package protocol implements the line-based wire format the agent's
// environment loop speaks: percept lines in, action lines and REPL
// commands out.
package protocol

import "errors"

// ErrMalformedPercept is returned by DecodePercept when a line is the
// wrong length or contains a character other than '0'/'1'. Per the
// error handling design, this is fatal: the caller aborts the session.
var ErrMalformedPercept = errors.New("protocol: malformed percept line")

// ErrUnknownCommand is returned when a line begins with ':' but does not
// match any known REPL command.
var ErrUnknownCommand = errors.New("protocol: unknown command")
