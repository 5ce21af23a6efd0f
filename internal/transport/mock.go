package transport

import "sync"

// MockPublisher collects published messages for tests and dry runs.
type MockPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads []any
}

func (m *MockPublisher) Publish(channel string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
	m.payloads = append(m.payloads, payload)
	return nil
}

// Published returns copies of the recorded channel names and payloads.
func (m *MockPublisher) Published() ([]string, []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.channels...), append([]any(nil), m.payloads...)
}

func (m *MockPublisher) Close() error { return nil }
