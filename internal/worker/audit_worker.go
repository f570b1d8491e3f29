package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// StartAuditWorker subscribes a structured audit log to every auth event.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := logger.Named("audit")
	handler := func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("subject", event.Subject),
			zap.Time("at", event.Timestamp),
		}
		if event.Payload != nil {
			fields = append(fields, zap.Any("payload", event.Payload))
		}
		switch event.Type {
		case events.EventLoginFailed, events.EventLoginRateLimited:
			audit.Warn("auth event", fields...)
		default:
			audit.Info("auth event", fields...)
		}
		return nil
	}

	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventLoginRateLimited,
		events.EventRefreshTokenRevoked,
	} {
		dispatcher.Subscribe(t, handler)
	}
}
