package rest

import "net/http"

// Status codes the outcome policies refer to.
const (
	StatusOK        = http.StatusOK
	StatusCreated   = http.StatusCreated
	StatusAccepted  = http.StatusAccepted
	StatusNoContent = http.StatusNoContent
)

// IsInformational reports whether code is 1xx.
func IsInformational(code int) bool { return code >= 100 && code < 200 }

// IsSuccess reports whether code is 2xx.
func IsSuccess(code int) bool { return code >= 200 && code < 300 }

// IsRedirect reports whether code is 3xx.
func IsRedirect(code int) bool { return code >= 300 && code < 400 }

// IsClientError reports whether code is 4xx.
func IsClientError(code int) bool { return code >= 400 && code < 500 }

// IsServerError reports whether code is 5xx.
func IsServerError(code int) bool { return code >= 500 && code < 600 }
