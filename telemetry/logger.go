package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plcforge/pullgov/types"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(component string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for governance events

// LogVerdict logs the outcome of a gate decision
func (l *Logger) LogVerdict(ctx context.Context, d types.PullRequestDescriptor, v types.Verdict) {
	l.WithContext(ctx).Info().
		Str("user_id", d.Actor.UserID).
		Str("role", string(d.Actor.Role)).
		Str("runtime_id", d.Runtime.ID).
		Str("environment", string(d.Runtime.Environment)).
		Str("verdict", string(v.Kind)).
		Str("approval_request_id", v.ApprovalRequestID).
		Str("denial_reason", v.DenialReason).
		Msg("pull decision")
}

// LogServiceError logs a failed call to a remote collaborator
func (l *Logger) LogServiceError(ctx context.Context, service, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("service", service).
		Str("operation", operation).
		Msg("remote service call failed")
}

// LogSpooled logs an audit entry diverted to the local spool
func (l *Logger) LogSpooled(ctx context.Context, entryID string, depth int, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("entry_id", entryID).
		Int("spool_depth", depth).
		Msg("audit write failed, entry spooled locally")
}
