package shared

import (
	"context"
	"log/slog"
	"time"
)

// Security event kinds.
const (
	SecurityAuthRequired     = "auth_required"
	SecurityPermissionDenied = "permission_denied"
	SecurityPublicViolation  = "public_violation"
	SecurityMisconfigured    = "rule_misconfigured"
)

// SecurityEvent describes a refused call.
type SecurityEvent struct {
	Kind      string    `json:"kind"`
	Identity  string    `json:"identity,omitempty"`
	Method    string    `json:"method"`
	Path      string    `json:"path,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Required  []string  `json:"required,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher ships events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// SecurityLog records security events to the structured log and, when
// configured, to the event bus.
type SecurityLog struct {
	logger    *slog.Logger
	publisher EventPublisher
}

// NewSecurityLog builds a SecurityLog. publisher may be nil.
func NewSecurityLog(logger *slog.Logger, publisher EventPublisher) *SecurityLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityLog{logger: logger, publisher: publisher}
}

// Record logs the event and forwards it.
func (l *SecurityLog) Record(ctx context.Context, ev SecurityEvent) {
	if l == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if ev.RequestID == "" {
		ev.RequestID = RequestIDFromContext(ctx)
	}
	l.logger.WarnContext(ctx, "access refused",
		slog.String("event", "security"),
		slog.String("kind", ev.Kind),
		slog.String("identity", ev.Identity),
		slog.String("method", ev.Method),
		slog.String("path", ev.Path),
		slog.Any("required", ev.Required),
	)
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, ev.Kind, ev); err != nil {
		l.logger.Warn("publish security event", slog.Any("error", err))
	}
}
