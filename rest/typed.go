package rest

import (
	"context"

	"github.com/vedsharma/drivethru/resturl"
)

// TypedClient is a Client whose GET responses always decode into T.
type TypedClient[T any] struct {
	*Client
}

// NewTypedClient wraps client.
func NewTypedClient[T any](client *Client) *TypedClient[T] {
	return &TypedClient[T]{Client: client}
}

// Get fetches path and decodes it into a new T.
func (c *TypedClient[T]) Get(ctx context.Context, path string) (T, error) {
	return c.GetURL(ctx, resturl.New().SetPath(path))
}

// GetURL is Get for a fully built URL.
func (c *TypedClient[T]) GetURL(ctx context.Context, u *resturl.URL) (T, error) {
	var out T
	if err := c.Client.GetURL(ctx, u, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
