// Package logger wraps log/slog with the process-wide handler and a few
// call-tracing helpers shared by services and store backends.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Initialize sets up the global logger writing to stdout.
func Initialize(level, format string) {
	InitializeWriter(os.Stdout, level, format)
}

// InitializeWriter sets up the global logger on w. Tests use it to capture output.
func InitializeWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// Get returns the default logger
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		return Get()
	}
	return l
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// WithComponent returns a logger tagged with a component name (service, job, backend).
func WithComponent(name string) *slog.Logger {
	return Get().With("component", name)
}

// WithHandoff returns a logger tagged with a hand-off event.
func WithHandoff(kind, eventID string) *slog.Logger {
	return Get().With("handoff_kind", kind, "event_id", eventID)
}

// EnterMethod logs method entry (process tracking)
func EnterMethod(methodName string, args ...any) {
	Get().Debug("→ Method entered", append([]any{"method", methodName, "event", "enter"}, args...)...)
}

// ExitMethod logs method exit (process tracking)
func ExitMethod(methodName string, args ...any) {
	Get().Debug("← Method exited", append([]any{"method", methodName, "event", "exit"}, args...)...)
}

// ExitMethodWithError logs method exit with error. Expected business outcomes such as
// validation failures are logged at warn, everything else at error.
func ExitMethodWithError(methodName string, err error, args ...any) {
	all := append([]any{"method", methodName, "event", "exit", "error", err}, args...)
	if isExpected(err) {
		Get().Warn("← Method exited with error", all...)
		return
	}
	Get().Error("← Method exited with error", all...)
}

// expectedError is implemented by errors the domain treats as ordinary outcomes.
type expectedError interface {
	Expected() bool
}

var expectedCheck func(error) bool

// SetExpectedErrorCheck registers the predicate used by ExitMethodWithError.
func SetExpectedErrorCheck(fn func(error) bool) {
	mu.Lock()
	expectedCheck = fn
	mu.Unlock()
}

func isExpected(err error) bool {
	mu.RLock()
	fn := expectedCheck
	mu.RUnlock()
	if fn != nil {
		return fn(err)
	}
	e, ok := err.(expectedError)
	return ok && e.Expected()
}

// StoreCall logs a document store operation.
func StoreCall(operation, path string, args ...any) {
	Get().Debug("→ Store call", append([]any{"operation", operation, "path", path}, args...)...)
}

// StoreResult logs the outcome of a document store operation.
func StoreResult(operation, path string, err error, args ...any) {
	all := append([]any{"operation", operation, "path", path}, args...)
	if err != nil {
		Get().Warn("← Store call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("← Store call succeeded", all...)
}

// DatabaseCall logs a SQL statement.
func DatabaseCall(operation, query string, args ...any) {
	Get().Debug("→ Database call", append([]any{"operation", operation, "query", query}, args...)...)
}

// DatabaseResult logs the outcome of a SQL statement.
func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	all := append([]any{"operation", operation, "rows_affected", rowsAffected}, args...)
	if err != nil {
		Get().Warn("← Database call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("← Database call succeeded", all...)
}

// ExternalServiceCall logs a call to a third-party service (push, email, blob storage).
func ExternalServiceCall(service, operation string, args ...any) {
	Get().Debug("→ External service call", append([]any{"service", service, "operation", operation}, args...)...)
}

// ExternalServiceResult logs the outcome of a third-party call.
func ExternalServiceResult(service, operation string, err error, args ...any) {
	all := append([]any{"service", service, "operation", operation}, args...)
	if err != nil {
		Get().Warn("← External service call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("← External service call succeeded", all...)
}
