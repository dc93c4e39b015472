package rest

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is an HTTP verb.
type Method int

const (
	GET Method = iota
	POST
	PUT
	DELETE
	PATCH
	OPTIONS
	HEAD
	TRACE
)

// Methods lists every supported verb in declaration order.
var Methods = []Method{GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD, TRACE}

// String returns the wire name of the verb.
func (m Method) String() string {
	switch m {
	case GET:
		return http.MethodGet
	case POST:
		return http.MethodPost
	case PUT:
		return http.MethodPut
	case DELETE:
		return http.MethodDelete
	case PATCH:
		return http.MethodPatch
	case OPTIONS:
		return http.MethodOptions
	case HEAD:
		return http.MethodHead
	case TRACE:
		return http.MethodTrace
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// AllowsBody reports whether requests of this verb may carry an entity.
func (m Method) AllowsBody() bool {
	switch m {
	case POST, PUT, PATCH:
		return true
	default:
		return false
	}
}

// ParseMethod parses a verb name, ignoring case. "OPTION" is accepted as an
// alias of OPTIONS.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case http.MethodGet:
		return GET, nil
	case http.MethodPost:
		return POST, nil
	case http.MethodPut:
		return PUT, nil
	case http.MethodDelete:
		return DELETE, nil
	case http.MethodPatch:
		return PATCH, nil
	case http.MethodOptions, "OPTION":
		return OPTIONS, nil
	case http.MethodHead:
		return HEAD, nil
	case http.MethodTrace:
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown HTTP method: %q", s)
	}
}
