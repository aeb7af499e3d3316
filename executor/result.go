package executor

import (
	"bytes"
	"encoding/json"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Result is the tagged outcome of one call: exactly one of Payload or Err
// is set.
type Result struct {
	Payload *Payload
	Err     *goerrors.Error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// ErrorOrNil returns Err as a plain error, or an untyped nil on success.
func (r Result) ErrorOrNil() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Payload is a decoded 2xx response. Data, Pagination and Message are lifted
// from the usual {data, pagination, message} envelope; Body keeps the raw
// document for responses with a different shape.
type Payload struct {
	StatusCode int
	Data       json.RawMessage
	Pagination *Pagination
	Message    string
	Body       json.RawMessage
}

// Pagination mirrors the backend's paging block.
type Pagination struct {
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Clone returns a deep copy so callers can patch it without touching the
// original.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := *p
	out.Data = append(json.RawMessage(nil), p.Data...)
	out.Body = append(json.RawMessage(nil), p.Body...)
	if p.Pagination != nil {
		pg := *p.Pagination
		out.Pagination = &pg
	}
	return &out
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Message    string          `json:"message"`
}

var errNotObject = errors.New("response body is not a JSON object")

func decodePayload(status int, body []byte) (*Payload, error) {
	p := &Payload{StatusCode: status}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return p, nil
	}
	if trimmed[0] != '{' {
		return nil, errNotObject
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	p.Data = env.Data
	p.Pagination = env.Pagination
	p.Message = env.Message
	p.Body = append(json.RawMessage(nil), trimmed...)
	return p, nil
}

// DecodeData unmarshals the envelope's data field into T.
func DecodeData[T any](p *Payload) (T, error) {
	var out T
	if p == nil || len(p.Data) == 0 || string(p.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(p.Data, &out); err != nil {
		return out, goerrors.Wrap(err, goerrors.CategoryExternal, "decode response data").
			WithTextCode(TextCodeDecode)
	}
	return out, nil
}

// DecodeBody unmarshals the whole response document into T.
func DecodeBody[T any](p *Payload) (T, error) {
	var out T
	if p == nil || len(p.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(p.Body, &out); err != nil {
		return out, goerrors.Wrap(err, goerrors.CategoryExternal, "decode response body").
			WithTextCode(TextCodeDecode)
	}
	return out, nil
}

// WithData returns a copy of p whose data field is v, re-encoded. The raw
// Body is rewritten to match.
func (p *Payload) WithData(v any) (*Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	if out == nil {
		out = &Payload{StatusCode: 200}
	}
	out.Data = raw

	doc := map[string]json.RawMessage{}
	if len(out.Body) > 0 {
		if err := json.Unmarshal(out.Body, &doc); err != nil {
			return nil, err
		}
	}
	doc["data"] = raw
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}
