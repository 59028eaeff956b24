package email

import "context"

// Provider отправляет готовые письма
type Provider interface {
	Send(ctx context.Context, email *Email) error

	// Validate проверяет конфигурацию провайдера
	Validate() error

	Close() error
}

// TemplateRenderer рендерит HTML тело письма по имени шаблона
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
	AddTemplate(name string, template string) error
	Has(name string) bool
}
