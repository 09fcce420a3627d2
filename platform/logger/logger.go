// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and user_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("user_id", userID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// MonitorPass logs the summary of one SLA monitor pass.
func (l *Logger) MonitorPass(processed, alertsCreated, escalated, skipped int, durationMs float64) {
	l.Info("sla_monitor_pass",
		slog.Int("processed", processed),
		slog.Int("alerts_created", alertsCreated),
		slog.Int("escalated", escalated),
		slog.Int("skipped", skipped),
		slog.Float64("duration_ms", durationMs),
	)
}

// MonitorItemSkipped logs a single reclamation that failed during a monitor pass.
func (l *Logger) MonitorItemSkipped(reclamationID string, err error) {
	l.Warn("sla_monitor_item_skipped",
		slog.String("reclamation_id", reclamationID),
		slog.String("error", err.Error()),
	)
}

// SLABreach logs a reclamation that went past its deadline.
func (l *Logger) SLABreach(reclamationID string) {
	l.Warn("sla_breach",
		slog.String("reclamation_id", reclamationID),
	)
}

// AssignmentDecision logs the outcome of a workload-based assignment.
func (l *Logger) AssignmentDecision(reclamationID, workerID string, workload int) {
	l.Info("assignment_decision",
		slog.String("reclamation_id", reclamationID),
		slog.String("worker_id", workerID),
		slog.Int("workload", workload),
	)
}

// UnknownStatus logs a raw status string the normalizer did not recognize.
func (l *Logger) UnknownStatus(raw string) {
	l.Warn("unknown_status_input",
		slog.String("raw", raw),
	)
}

// ConfigurationError logs an invalid SLA configuration that was replaced
// by the system default.
func (l *Logger) ConfigurationError(subject string, detail string) {
	l.Error("configuration_error",
		slog.String("subject", subject),
		slog.String("detail", detail),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
