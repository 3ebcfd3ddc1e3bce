// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the agent loop, the tool registry and the runner use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - LoopLogger with component/session context and tool/model/session helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a, err := agent.New(m, registry, func(o *agent.Options) { o.Logger = logger })
//
// The design keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
