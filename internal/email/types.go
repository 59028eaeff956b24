package email

import (
	"errors"
	"strings"
)

var ErrNoRecipients = errors.New("no recipients specified")

// Заголовки, по которым письмо находится в логах consumer'а
const (
	HeaderTemplate = "X-Template"
	HeaderEventID  = "X-Event-ID"
)

// Email - письмо, собранное из события notification.email.*
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string

	Template string
	EventID  string

	Attachments []Attachment
}

type Attachment struct {
	Name        string
	Content     []byte
	ContentType string
}

// Recipients возвращает адреса без пробелов и пустых строк
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To))
	for _, addr := range e.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// TemplateData - данные события для html/template
type TemplateData map[string]any
