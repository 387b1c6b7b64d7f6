package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/access-token-service/internal/events"
)

// AuditService writes authentication events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", baseFields(event)...)
	return nil
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	fields := baseFields(event)
	if p, ok := event.Payload.(events.LoginSucceededPayload); ok {
		fields = append(fields,
			zap.String("token_id", p.TokenID),
			zap.Time("expires_at", p.ExpiresAt),
			zap.Int("abilities", p.Abilities))
	}
	a.logger.Info("LoginSucceeded", fields...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := baseFields(event)
	if p, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields, zap.String("reason", p.Reason))
	}
	a.logger.Warn("LoginFailed", fields...)
	return nil
}

func (a *AuditService) handleTokenRejected(_ context.Context, event events.Event) error {
	fields := baseFields(event)
	if p, ok := event.Payload.(events.TokenRejectedPayload); ok {
		fields = append(fields, zap.String("method", p.Method), zap.String("path", p.Path))
	}
	a.logger.Info("TokenRejected", fields...)
	return nil
}

func baseFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.SubjectID != 0 {
		fields = append(fields, zap.Int64("subject_id", event.SubjectID))
	}
	if event.ClientIP != "" {
		fields = append(fields, zap.String("client_ip", event.ClientIP))
	}
	return fields
}
