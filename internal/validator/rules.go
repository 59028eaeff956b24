package validator

import (
	"log"

	"platform_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует правила на основе перечислений из models
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-payment-method", validatePaymentMethod)
	mustRegister("is-notification-type", validateNotificationType)
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустое значение проверяет 'required'
	}
	switch models.PaymentMethod(value) {
	case models.PaymentMethodCard,
		models.PaymentMethodPayPal,
		models.PaymentMethodApplePay,
		models.PaymentMethodGooglePay:
		return true
	}
	return false
}

func validateNotificationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.NotificationType(value).Valid()
}
