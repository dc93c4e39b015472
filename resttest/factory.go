package resttest

import (
	"fmt"

	"github.com/vedsharma/drivethru/rest"
)

// MockFactory is a rest.Factory handing out mock clients. Asking twice for
// the same base URL returns the same mock, so tests can program the mock
// that the code under test will receive.
type MockFactory struct {
	mocks map[string]*MockClient
}

var _ rest.Factory = (*MockFactory)(nil)

// NewMockFactory returns an empty factory.
func NewMockFactory() *MockFactory {
	return &MockFactory{mocks: make(map[string]*MockClient)}
}

// Mock returns the mock client for defaultBaseURL, creating it if needed.
func (f *MockFactory) Mock(defaultBaseURL string) *MockClient {
	mock, ok := f.mocks[defaultBaseURL]
	if !ok {
		mock = NewMockClient(defaultBaseURL)
		f.mocks[defaultBaseURL] = mock
	}
	return mock
}

// Client implements rest.Factory.
func (f *MockFactory) Client(defaultBaseURL string) (*rest.Client, error) {
	return f.Mock(defaultBaseURL).Client, nil
}

// MappedFactory is a rest.Factory returning clients registered ahead of
// time for each base URL.
type MappedFactory struct {
	mapping map[string]*rest.Client
}

var _ rest.Factory = (*MappedFactory)(nil)

// NewMappedFactory returns an empty factory.
func NewMappedFactory() *MappedFactory {
	return &MappedFactory{mapping: make(map[string]*rest.Client)}
}

// Map registers client for defaultBaseURL, replacing any earlier mapping.
func (f *MappedFactory) Map(defaultBaseURL string, client *rest.Client) {
	f.mapping[defaultBaseURL] = client
}

// CreateMappedClient creates a mock client for defaultBaseURL and maps it.
func (f *MappedFactory) CreateMappedClient(defaultBaseURL string) *MockClient {
	mock := NewMockClient(defaultBaseURL)
	f.Map(defaultBaseURL, mock.Client)
	return mock
}

// Client returns the client mapped to defaultBaseURL.
func (f *MappedFactory) Client(defaultBaseURL string) (*rest.Client, error) {
	client, ok := f.mapping[defaultBaseURL]
	if !ok {
		return nil, fmt.Errorf("no client mapped for base URL %q", defaultBaseURL)
	}
	return client, nil
}
