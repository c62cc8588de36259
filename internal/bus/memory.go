package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Memory delivers synchronously inside the process. It backs local
// development and tests.
type Memory struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	failures  map[string]error
	published []Message
}

func NewMemory() *Memory {
	return &Memory{
		handlers: make(map[string][]Handler),
		failures: make(map[string]error),
	}
}

func (m *Memory) Publish(ctx context.Context, subject string, body []byte) error {
	m.mu.Lock()
	if err := m.failures[subject]; err != nil {
		m.mu.Unlock()
		return fmt.Errorf("Publish: %s: %w", subject, err)
	}
	msg := Message{Subject: subject, Body: append([]byte(nil), body...)}
	m.published = append(m.published, msg)
	handlers := append([]Handler(nil), m.handlers[subject]...)
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			slog.Default().Warn("memory bus handler failed", "subject", subject, "error", err)
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, subject string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[subject] = append(m.handlers[subject], h)
	return nil
}

// FailSubject makes every publish to subject fail with err until cleared
// with a nil err.
func (m *Memory) FailSubject(subject string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, subject)
		return
	}
	m.failures[subject] = err
}

func (m *Memory) Published() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.published...)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
