/*
Package log provides structured logging for the trace analyzer using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

# Architecture

The logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("reconstruct")             │          │
	│  │  - WithHost("robot-1")                      │          │
	│  │  - WithTrace("run-abc123")                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "warn",                         │          │
	│  │    "component": "reconstruct",              │          │
	│  │    "time": "2024-10-13T10:30:00Z",         │          │
	│  │    "message": "correlation miss"            │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM WRN correlation miss component=reconstruct │  │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initialize once in main, before the pipeline starts:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Derive child loggers per concern and pass them down:

	logger := log.WithComponent("reconstruct")
	logger.Warn().Str("topic", topic).Msg("correlation miss")

The reconstruction engine logs every non-fatal anomaly (repeated
initialization with a differing value, correlation misses, orphan
publications, stub creation for racing inits, mid-trace-start message
fabrication) at Warn or Debug level; fatal conditions are returned as
errors instead of logged, so the pipeline boundary reports them exactly
once.
*/
package log
