package provider

import (
	"context"
	"sync"
)

// MockProvider is a scripted Protocol implementation for tests. It records
// how many calls were made so tests can assert that validation failures never
// reach the network.
type MockProvider struct {
	mu          sync.Mutex
	calls       int
	Response    *MessageResponse
	Err         error
	Unavailable bool
}

func (m *MockProvider) Name() string { return "Mock" }

func (m *MockProvider) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Unavailable
}

func (m *MockProvider) CreateMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response != nil {
		return m.Response, nil
	}
	return &MessageResponse{Text: "ok"}, nil
}

// SetAPIKey flips availability so config-endpoint tests can exercise the
// runtime credential swap.
func (m *MockProvider) SetAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unavailable = key == ""
}

// Calls returns the number of CreateMessage invocations.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Protocol = (*MockProvider)(nil)
