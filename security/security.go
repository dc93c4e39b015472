// Package security provides rest.SecurityProvider implementations that
// authorize outgoing requests.
package security

import (
	"net/http"

	"github.com/vedsharma/drivethru/rest"
)

// Func adapts a function to rest.SecurityProvider.
type Func func(req *http.Request) error

// Sign calls f(req).
func (f Func) Sign(req *http.Request) error { return f(req) }

// Chain runs providers in order and stops at the first failure.
type Chain []rest.SecurityProvider

// Sign signs req with every provider in the chain.
func (c Chain) Sign(req *http.Request) error {
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := p.Sign(req); err != nil {
			return err
		}
	}
	return nil
}
