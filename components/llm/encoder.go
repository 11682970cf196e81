package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bububa/instructor-go"
	dummyenc "github.com/bububa/instructor-go/encoding/dummy"
	jsonenc "github.com/bububa/instructor-go/encoding/json"

	"github.com/bububa/atomic-cookbook/schema"
)

// JSONEncoder decodes JSON replies into output schemas.
// The first JSON value of the reply wins, anything after it is ignored.
// Replies which are not valid JSON are repaired before giving up.
type JSONEncoder struct {
	*jsonenc.Encoder
}

var (
	_ instructor.Encoder   = (*JSONEncoder)(nil)
	_ instructor.Validator = (*JSONEncoder)(nil)
)

// NewJSONEncoder returns a JSONEncoder describing out
func NewJSONEncoder(out any) (*JSONEncoder, error) {
	enc, err := jsonenc.NewEncoder(out)
	if err != nil {
		return nil, fmt.Errorf("output schema %T: %w", out, err)
	}
	return &JSONEncoder{Encoder: enc}, nil
}

// Unmarshal implements instructor.Encoder interface
func (e *JSONEncoder) Unmarshal(bs []byte, ret any) error {
	bs = bytes.TrimSpace(bs)
	if len(bs) == 0 {
		return ErrEmptyResponse
	}
	if start := bytes.IndexAny(bs, "{["); start >= 0 {
		if err := json.NewDecoder(bytes.NewReader(bs[start:])).Decode(ret); err == nil {
			return nil
		}
	}
	if err := e.Encoder.Unmarshal(bs, ret); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return nil
}

// Validate implements instructor.Validator interface
func (e *JSONEncoder) Validate(ret any) error {
	if err := schema.Validate(ret); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return nil
}

// TextEncoder passes plain text replies through, blank replies are rejected
type TextEncoder struct {
	*dummyenc.Encoder
}

var _ instructor.Encoder = (*TextEncoder)(nil)

// NewTextEncoder returns a new TextEncoder
func NewTextEncoder() *TextEncoder {
	return &TextEncoder{Encoder: dummyenc.NewEncoder()}
}

// Unmarshal implements instructor.Encoder interface
func (e *TextEncoder) Unmarshal(bs []byte, ret any) error {
	if strings.TrimSpace(string(bs)) == "" {
		return ErrEmptyResponse
	}
	return e.Encoder.Unmarshal(bs, ret)
}
