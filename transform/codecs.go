package transform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type jsonCodec struct{}

func (jsonCodec) ReadString(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

func (jsonCodec) WriteString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

type yamlCodec struct{}

func (yamlCodec) ReadString(s string, v any) error {
	return yaml.Unmarshal([]byte(s), v)
}

func (yamlCodec) WriteString(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type textCodec struct{}

func (textCodec) ReadString(s string, v any) error {
	switch p := v.(type) {
	case *string:
		*p = s
	case *[]byte:
		*p = []byte(s)
	default:
		return fmt.Errorf("text body can only be read into *string or *[]byte, got %T", v)
	}
	return nil
}

func (textCodec) WriteString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// JSON returns the default transformer, encoding bodies as application/json.
func JSON() Transformer {
	return &String{Codec: jsonCodec{}, Mime: MIMEJSON}
}

// YAML returns a transformer encoding bodies as application/yaml.
func YAML() Transformer {
	return &String{Codec: yamlCodec{}, Mime: MIMEYAML}
}

// Text returns a transformer for text/plain bodies.
func Text() Transformer {
	return &String{Codec: textCodec{}, Mime: MIMEText}
}

// Bytes passes bodies through untouched as application/octet-stream.
type Bytes struct{}

var _ Transformer = Bytes{}

// MIME implements Transformer.
func (Bytes) MIME() string {
	return MIMEOctetStream
}

// Write implements Transformer. v must be a []byte.
func (Bytes) Write(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("byte transformer cannot write %T", v)
	}
	return b, nil
}

// Read implements Transformer. v must be a *[]byte.
func (Bytes) Read(body []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return errors.Errorf("byte transformer cannot read into %T", v)
	}
	*p = body
	return nil
}
