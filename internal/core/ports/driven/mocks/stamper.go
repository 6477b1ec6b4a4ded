package mocks

import (
	"context"
	"sync"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// MockStamper is a mock implementation of Stamper for testing.
// It records every call and returns canned output.
type MockStamper struct {
	mu    sync.Mutex
	calls []StampCall

	// Output is returned on success; defaults to a marker payload
	Output []byte

	// Err makes Stamp fail when set
	Err error
}

// StampCall captures the arguments of one Stamp invocation
type StampCall struct {
	Base        []byte
	Annotations []*domain.Annotation
	Images      map[string][]byte
}

// NewMockStamper creates a new MockStamper
func NewMockStamper() *MockStamper {
	return &MockStamper{Output: []byte("%PDF stamped")}
}

func (m *MockStamper) Stamp(ctx context.Context, base []byte, anns []*domain.Annotation, images map[string][]byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, StampCall{Base: base, Annotations: anns, Images: images})
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]byte, len(m.Output))
	copy(out, m.Output)
	return out, nil
}

// Calls returns all recorded invocations
func (m *MockStamper) Calls() []StampCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StampCall(nil), m.calls...)
}

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification

	// Err makes Send fail when set
	Err error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns all delivered notifications
func (m *MockNotifier) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.sent...)
}
