package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// dialer - часть gomail.Dialer, которая нужна провайдеру
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// GomailProvider отправляет письма через SMTP с помощью gomail
type GomailProvider struct {
	config *SMTPConfig
	dialer dialer
}

func NewGomailProvider(config *SMTPConfig) *GomailProvider {
	return &GomailProvider{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (p *GomailProvider) Send(ctx context.Context, email *Email) error {
	if err := p.Validate(); err != nil {
		return err
	}
	to := email.Recipients()
	if len(to) == 0 {
		return ErrNoRecipients
	}

	msg := p.buildMessage(email, to)

	// gomail не принимает контекст, поэтому отправка идет в отдельной горутине
	done := make(chan error, 1)
	go func() { done <- p.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

func (p *GomailProvider) buildMessage(email *Email, to []string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.config.FromEmail, p.config.FromName)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", email.Subject)
	if email.Template != "" {
		m.SetHeader(HeaderTemplate, email.Template)
	}
	if email.EventID != "" {
		m.SetHeader(HeaderEventID, email.EventID)
	}

	switch {
	case email.HTMLBody != "" && email.Body != "":
		m.SetBody("text/plain", email.Body)
		m.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		m.SetBody("text/html", email.HTMLBody)
	default:
		m.SetBody("text/plain", email.Body)
	}

	for _, a := range email.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Name, settings...)
	}
	return m
}

func (p *GomailProvider) Validate() error {
	if p.config.Host == "" {
		return errors.New("smtp host is required")
	}
	if p.config.FromEmail == "" {
		return errors.New("from email is required")
	}
	return nil
}

func (p *GomailProvider) Close() error { return nil }
