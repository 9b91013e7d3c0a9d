// Package logging provides structured logging with trace id and
// tenant id propagation, built on logrus.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/titan-aas/titan-aas/internal/tenancy"
)

// ContextKey is the type for this package's own context keys.
type ContextKey string

// TraceIDKey is the context key for the request trace id.
const TraceIDKey ContextKey = "trace_id"

// Logger wraps logrus.Logger, tagging every entry with the service
// name and (when present in ctx) trace id and tenant id.
type Logger struct {
	*logrus.Logger
	service string
}

// New constructs a Logger for service, with level and format strings
// as accepted by logrus.ParseLevel ("debug", "info", ...) and "json"
// or "text".
func New(service, level, format string) *Logger {
	l := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l, service: service}
}

// NewFromEnv builds a Logger using LOG_LEVEL and LOG_FORMAT
// environment variables, defaulting to "info" and "json".
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext returns an entry tagged with service, trace id (if set)
// and tenant id (if set via internal/tenancy).
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if tenantID, ok := tenancy.Lookup(ctx); ok {
		entry = entry.WithField("tenant_id", tenantID)
	}
	return entry
}

// WithTraceID returns an entry tagged with service and trace id.
func (l *Logger) WithTraceID(traceID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"service": l.service, "trace_id": traceID})
}

// WithError returns an entry tagged with service and the error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"service": l.service, "error": err.Error()})
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace id stored in ctx, or "" if unset.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// NewTraceID generates a fresh trace id.
func NewTraceID() string {
	return uuid.New().String()
}

// LogRequest logs one completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}).Info("http request")
}

// LogMutation logs a repository mutation at debug level with the
// resulting etag, per the documented "every repository mutation logs
// at debug with identifier and resulting etag" convention.
func (l *Logger) LogMutation(ctx context.Context, kind, identifier, etag string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"kind":       kind,
		"identifier": identifier,
		"etag":       etag,
	}).Debug("repository mutation")
}

// LogJobTransition logs a job status transition at info level.
func (l *Logger) LogJobTransition(ctx context.Context, jobID, task, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"job_id": jobID,
		"task":   task,
		"from":   from,
		"to":     to,
	}).Info("job transition")
}
