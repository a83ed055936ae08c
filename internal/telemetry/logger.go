// Package telemetry provides the logger handle injected into every
// long-lived component (feed workers, adapters, the broker). There is no
// package-level logger: per design note "Global singletons → explicit
// context" in spec.md §9, every constructor takes a *zap.Logger and falls
// back to a no-op logger rather than reaching for a process-wide one.
package telemetry

import "go.uber.org/zap"

// NopLogger returns a logger that discards everything, used when a caller
// passes nil rather than wiring a real sink.
func NopLogger() *zap.Logger {
	return zap.NewNop()
}

// OrDefault returns l, or a no-op logger if l is nil.
func OrDefault(l *zap.Logger) *zap.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}
