// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// initTracing installs a process-wide SDK TracerProvider so
// internal/search's "mcaixi.search" spans are actually sampled and
// built rather than discarded by the no-op provider otel.Tracer
// returns by default. No exporter is registered here: spans are
// recorded in-process (visible to anything that reads the current span
// from context, e.g. a future exporter) and dropped at Shutdown rather
// than sent anywhere.
func initTracing() func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
