package rest

// Factory creates clients for a default base URL. Code that depends on a
// Factory can be handed a mock factory in tests.
type Factory interface {
	Client(defaultBaseURL string) (*Client, error)
}

// DefaultFactory creates network clients from a template config.
type DefaultFactory struct {
	// Config is copied for every client. Its DefaultBaseURL is replaced.
	Config Config
}

// Client returns a new network client for defaultBaseURL.
func (f DefaultFactory) Client(defaultBaseURL string) (*Client, error) {
	cfg := f.Config
	cfg.DefaultBaseURL = defaultBaseURL
	return NewClient(cfg)
}

// NewTypedClientFrom creates a client from f and binds it to T.
func NewTypedClientFrom[T any](f Factory, defaultBaseURL string) (*TypedClient[T], error) {
	client, err := f.Client(defaultBaseURL)
	if err != nil {
		return nil, err
	}
	return NewTypedClient[T](client), nil
}
