package limiter

import "sync"

// MockLimiter is a test double for the Limiter interface
type MockLimiter struct {
	mu sync.Mutex

	AllowResult bool

	AllowCalls  []string
	CloseCalled bool
	CloseError  error
}

// NewMockLimiter returns a limiter that always answers allow
func NewMockLimiter(allow bool) *MockLimiter {
	return &MockLimiter{
		AllowResult: allow,
		AllowCalls:  []string{},
	}
}

// Allow implements the Limiter interface
func (m *MockLimiter) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AllowCalls = append(m.AllowCalls, key)
	return m.AllowResult
}

// SetAllow changes the answer for subsequent calls
func (m *MockLimiter) SetAllow(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AllowResult = allow
}

// Calls returns a copy of the recorded Allow arguments
func (m *MockLimiter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.AllowCalls...)
}

// Close implements the Limiter interface
func (m *MockLimiter) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
