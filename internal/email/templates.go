package email

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
)

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range defaultTemplates {
		if err := tm.AddTemplate(name, body); err != nil {
			panic(err)
		}
	}
	return tm
}

// defaultTemplates - письма, которые публикует сервис платежей (notification.email.<name>)
var defaultTemplates = map[string]string{
	"payment_success": `<p>Hello{{with .name}}, {{.}}{{end}}!</p>
<p>We received your payment of {{.amount}} {{.currency}} for the {{.planType}} plan.</p>`,
	"payment_failed": `<p>Hello{{with .name}}, {{.}}{{end}}!</p>
<p>We could not charge your payment method for the {{.planType}} plan.{{with .reason}} Reason: {{.}}.{{end}}</p>`,
	"subscription_cancelled": `<p>Your {{.planType}} subscription has been cancelled.</p>`,
	"subscription_expired": `<p>Your {{.planType}} subscription has expired.</p>`,
	"subscription_past_due": `<p>Your {{.planType}} subscription is past due. Please update your payment method.</p>`,
	"auto_payment_cancelled": `<p>Automatic renewal of your {{.planType}} subscription is turned off.</p>`,
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

// Has сообщает, зарегистрирован ли шаблон
func (tm *TemplateManager) Has(name string) bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	_, ok := tm.templates[name]
	return ok
}

// TemplateNames возвращает список имен загруженных шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
