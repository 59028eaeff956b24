package services_test

import (
	"context"
	"errors"
	"testing"

	"platform_backend/internal/email"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/services"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail_SendsRenderedTemplate(t *testing.T) {
	provider := email.NewMockProvider()
	svc := services.NewEmailService(provider, email.NewTemplateManager(), validator.New(), nil)

	ctx := logger.WithCorrelationID(context.Background(), "msg-7")
	err := svc.HandleMessage(ctx, []byte(`{
		"to": "ann@example.com",
		"subject": "Payment received",
		"template": "payment_success",
		"data": {"name": "Ann", "amount": "15.00", "currency": "usd", "planType": "premium"}
	}`))
	require.NoError(t, err)

	sent := provider.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ann@example.com"}, sent[0].To)
	assert.Equal(t, "Payment received", sent[0].Subject)
	assert.Contains(t, sent[0].HTMLBody, "Hello, Ann!")
	assert.Contains(t, sent[0].HTMLBody, "premium")
	assert.Equal(t, "payment_success", sent[0].Template)
	assert.Equal(t, "msg-7", sent[0].EventID)
}

func TestEmail_UnknownTemplate(t *testing.T) {
	provider := email.NewMockProvider()
	svc := services.NewEmailService(provider, email.NewTemplateManager(), validator.New(), nil)

	err := svc.SendRequested(context.Background(), events.EmailRequested{To: "ann@example.com", Subject: "x", Template: "newsletter"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
	assert.Empty(t, provider.SentEmails())
}

func TestEmail_InvalidRequestAndMalformedBody(t *testing.T) {
	svc := services.NewEmailService(email.NewMockProvider(), email.NewTemplateManager(), validator.New(), nil)

	err := svc.SendRequested(context.Background(), events.EmailRequested{To: "nope", Template: "payment_success"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	err = svc.HandleMessage(context.Background(), []byte(`{`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestEmail_ProviderFailure(t *testing.T) {
	provider := email.NewMockProvider()
	provider.Err = errors.New("smtp down")
	svc := services.NewEmailService(provider, email.NewTemplateManager(), validator.New(), nil)

	err := svc.SendRequested(context.Background(), events.EmailRequested{To: "ann@example.com", Subject: "x", Template: "subscription_expired"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExternalServiceError))
}
