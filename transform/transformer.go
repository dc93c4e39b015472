// Package transform converts between typed values and raw request/response
// bodies. A Transformer declares the MIME type it produces and accepts.
package transform

import (
	"github.com/pkg/errors"
)

// MIME types for the built-in transformers.
const (
	MIMEJSON        = "application/json"
	MIMEYAML        = "application/yaml"
	MIMEText        = "text/plain"
	MIMEOctetStream = "application/octet-stream"
)

// Transformer is the body codec used by the REST client.
type Transformer interface {
	// MIME is the content type written on requests and required on responses.
	MIME() string

	// Write serializes v into a request body.
	Write(v any) ([]byte, error)

	// Read deserializes body into v, which must be a pointer.
	Read(body []byte, v any) error
}

// StringCodec is the narrow contract for text-based formats. String adapts
// it into a Transformer.
type StringCodec interface {
	ReadString(s string, v any) error
	WriteString(v any) (string, error)
}

// String is a Transformer backed by a StringCodec.
type String struct {
	Codec StringCodec
	Mime  string
}

var _ Transformer = (*String)(nil)

// MIME implements Transformer.
func (s *String) MIME() string {
	return s.Mime
}

// Read implements Transformer.
func (s *String) Read(body []byte, v any) error {
	if err := s.Codec.ReadString(string(body), v); err != nil {
		return errors.Wrap(err, "failed to deserialize from string")
	}
	return nil
}

// Write implements Transformer.
func (s *String) Write(v any) ([]byte, error) {
	str, err := s.Codec.WriteString(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize object to string")
	}
	return []byte(str), nil
}
