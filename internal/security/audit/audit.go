package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits the structured audit trail of who decided what. It writes
// through slog; shipping the trail anywhere durable is the log pipeline's
// job.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDecision(ctx context.Context, actorID, decision, requestID, status, details string) {
	al.LogAction(ctx, actorID, decision, "join_request", requestID, status, details)
}

func (al *Logger) LogLogin(ctx context.Context, actorID, status, details string) {
	al.LogAction(ctx, actorID, "login", "session", "", status, details)
}

func (al *Logger) LogDenied(ctx context.Context, actorID, reason string) {
	al.LogAction(ctx, actorID, "access_denied", "api", "", "denied", reason)
}
