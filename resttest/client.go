package resttest

import (
	"github.com/vedsharma/drivethru/rest"
)

// MockClient is a rest.Client that replays expectations registered on its
// embedded Recorder.
type MockClient struct {
	*rest.Client
	*Recorder
}

// NewMockClient returns a mock client resolving paths against
// defaultBaseURL and using the JSON transformer.
func NewMockClient(defaultBaseURL string) *MockClient {
	recorder := NewRecorder()
	return &MockClient{
		Client:   rest.NewClientWithExecutor(NewExecutor(recorder, defaultBaseURL), nil),
		Recorder: recorder,
	}
}

// TypedMockClient is a rest.TypedClient that replays expectations
// registered on its embedded Recorder.
type TypedMockClient[T any] struct {
	*rest.TypedClient[T]
	*Recorder
}

// NewTypedMockClient returns a typed mock client for defaultBaseURL.
func NewTypedMockClient[T any](defaultBaseURL string) *TypedMockClient[T] {
	mock := NewMockClient(defaultBaseURL)
	return &TypedMockClient[T]{
		TypedClient: rest.NewTypedClient[T](mock.Client),
		Recorder:    mock.Recorder,
	}
}
