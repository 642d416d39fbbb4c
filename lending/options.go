package lending

import "time"

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives one observation per engine operation.
type Metrics interface {
	ObserveDecision(operation, outcome string, elapsed time.Duration)
}

// ConflictCounter is told about every lock wait that ran out of time.
type ConflictCounter interface {
	LockConflict(backend string)
}

// Option defines a functional option for configuring the Service.
type Option func(*engine) error

// WithLogger sets the logger.
// Debug carries the numbers behind every capacity decision, Info the decisions,
// Warn best-effort failures, Error store failures.
func WithLogger(logger Logger) Option {
	return func(e *engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

func WithClock(clock Clock) Option {
	return func(e *engine) error {
		if clock != nil {
			e.clock = clock
		}
		return nil
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *engine) error {
		if m != nil {
			e.metrics = m
		}
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(string, string, time.Duration) {}
