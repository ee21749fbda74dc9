// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package search

import "errors"

// ErrBudgetExhausted is returned by a Controller when neither a
// simulation-count nor a wall-clock budget was configured (a
// configuration error the search package itself has no default for; the
// config package rejects this combination before the loop ever starts).
var ErrBudgetExhausted = errors.New("search: no simulation or wall-clock budget configured")

// ErrNoActions is returned when a controller is asked to select an
// action but the agent's NumActions is zero.
var ErrNoActions = errors.New("search: agent has zero actions")
