package resttest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/vedsharma/drivethru/rest"
)

// Exchange is one request and the response it produced.
type Exchange struct {
	Request  ExchangeRequest  `json:"request"`
	Response ExchangeResponse `json:"response"`
}

// ExchangeRequest is the recorded part of a request. The body is not
// recorded because replay matches on method and URL only.
type ExchangeRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ExchangeResponse is a recorded response. Textual bodies are stored as
// strings and anything else as base64 bytes.
type ExchangeResponse struct {
	StatusCode    int               `json:"status_code"`
	StatusMessage string            `json:"status_message,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	BodyString    string            `json:"body_string,omitempty"`
	BodyBytes     []byte            `json:"body_bytes,omitempty"`
}

func (r ExchangeResponse) body() []byte {
	if len(r.BodyBytes) > 0 {
		return r.BodyBytes
	}
	if r.BodyString != "" {
		return []byte(r.BodyString)
	}
	return nil
}

// NewExchange records req and resp. req.URL must already carry a base URL.
func NewExchange(req *rest.Request, resp *rest.Response) Exchange {
	ex := Exchange{
		Request: ExchangeRequest{
			URL:     req.URL.String(),
			Method:  req.Method.String(),
			Headers: cloneHeaders(req.Headers),
		},
		Response: ExchangeResponse{
			StatusCode:    resp.StatusCode,
			StatusMessage: resp.StatusMessage,
			Headers:       cloneHeaders(resp.Headers),
		},
	}

	if utf8.Valid(resp.Body) {
		ex.Response.BodyString = string(resp.Body)
	} else {
		ex.Response.BodyBytes = resp.Body
	}
	return ex
}

func cloneHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// WriteFixture writes exchanges to file as indented JSON.
func WriteFixture(file string, exchanges []Exchange) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create fixture: %w", err)
	}
	return writeFixture(f, exchanges)
}

// writeFixture encodes exchanges to w and closes it. A failed close fails
// the write.
func writeFixture(w io.WriteCloser, exchanges []Exchange) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exchanges); err != nil {
		w.Close()
		return fmt.Errorf("failed to write fixture: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close fixture: %w", err)
	}
	return nil
}

// ReadFixture reads exchanges written by WriteFixture.
func ReadFixture(file string) ([]Exchange, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	var exchanges []Exchange
	if err := json.NewDecoder(f).Decode(&exchanges); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return exchanges, nil
}
