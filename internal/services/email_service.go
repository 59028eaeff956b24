package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"platform_backend/internal/email"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"
)

// EmailService отправляет письма, запрошенные через notification.topic
type EmailService struct {
	provider  email.Provider
	renderer  email.TemplateRenderer
	validator *validator.Validator
	metrics   *metrics.Metrics
}

func NewEmailService(provider email.Provider, renderer email.TemplateRenderer, v *validator.Validator, m *metrics.Metrics) *EmailService {
	return &EmailService{
		provider:  provider,
		renderer:  renderer,
		validator: v,
		metrics:   m,
	}
}

// SendRequested рендерит шаблон и отправляет письмо
func (s *EmailService) SendRequested(ctx context.Context, req events.EmailRequested) (err error) {
	defer func() { s.count(req.Template, err) }()

	if err := s.validator.Validate(req); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.ValidationError(vErr.Errors)
		}
		return apperrors.NewBadRequestError(err.Error())
	}
	if !s.renderer.Has(req.Template) {
		return apperrors.NewBadRequestError(fmt.Sprintf("unknown email template %q", req.Template))
	}

	html, err := s.renderer.Render(req.Template, email.TemplateData(req.Data))
	if err != nil {
		return apperrors.InternalError(err)
	}

	msg := &email.Email{
		To:       []string{req.To},
		Subject:  req.Subject,
		HTMLBody: html,
		Template: req.Template,
		EventID:  logger.GetCorrelationID(ctx),
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		return apperrors.Wrap(err, apperrors.CodeExternalServiceError, "email", "Failed to send email", http.StatusBadGateway)
	}

	logger.CtxInfo(ctx, "email sent", "template", req.Template)
	return nil
}

// HandleMessage - обработчик очереди email_notifications_queue
func (s *EmailService) HandleMessage(ctx context.Context, body []byte) error {
	var req events.EmailRequested
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.NewBadRequestError("malformed email request: " + err.Error())
	}
	return s.SendRequested(ctx, req)
}

func (s *EmailService) count(template string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	s.metrics.EmailsSent.WithLabelValues(template, outcome).Inc()
}
