package email

import (
	"context"
	"sync"
)

// MockProvider складывает письма в память (тесты и окружения без SMTP)
type MockProvider struct {
	mu   sync.Mutex
	Sent []*Email
	Err  error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Send(_ context.Context, email *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, email)
	return nil
}

func (m *MockProvider) Validate() error { return nil }
func (m *MockProvider) Close() error    { return nil }

func (m *MockProvider) SentEmails() []*Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Email, len(m.Sent))
	copy(out, m.Sent)
	return out
}
