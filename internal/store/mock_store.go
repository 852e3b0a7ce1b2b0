package store

import (
	"sync"

	"github.com/evyataryagoni/geoip-service/internal/models"
)

// MockStore is a test double for the Store interface.
// Lookups are exact-match on the IP string.
type MockStore struct {
	mu sync.Mutex

	// Data maps IP address to the record returned for it
	Data map[string]*models.RawLocation

	// Recorded calls
	FindByIPCalls []string
	CloseCalled   bool

	// Behavior overrides
	FindByIPError error
	FindByIPPanic any
	CloseError    error
}

// NewMockStore creates a mock store with a few well-known addresses
func NewMockStore() *MockStore {
	return &MockStore{
		Data: map[string]*models.RawLocation{
			"66.249.68.102": {
				LL:      []float64{37.4, -122.1},
				Country: "US",
				City:    "Mountain View",
			},
			"8.8.8.8": {
				LL:      []float64{37.751, -97.822},
				Country: "US",
			},
			"2607:f0d0:1002:0051:0000:0000:0000:0004": {
				LL:      []float64{29.4227, -98.4927},
				Country: "US",
				City:    "San Antonio",
			},
		},
		FindByIPCalls: []string{},
	}
}

// NewEmptyMockStore creates a mock store with no data
func NewEmptyMockStore() *MockStore {
	return &MockStore{
		Data:          map[string]*models.RawLocation{},
		FindByIPCalls: []string{},
	}
}

// FindByIP implements the Store interface
func (m *MockStore) FindByIP(ip string) (*models.RawLocation, error) {
	m.mu.Lock()
	m.FindByIPCalls = append(m.FindByIPCalls, ip)
	m.mu.Unlock()

	if m.FindByIPPanic != nil {
		panic(m.FindByIPPanic)
	}
	if m.FindByIPError != nil {
		return nil, m.FindByIPError
	}

	loc, ok := m.Data[ip]
	if !ok {
		return nil, ErrNotFound
	}
	return loc, nil
}

// Calls returns a copy of the recorded FindByIP arguments
func (m *MockStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.FindByIPCalls...)
}

// Close implements the Store interface
func (m *MockStore) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
