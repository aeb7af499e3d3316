package executor

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/endpoint"
)

const (
	TextCodeNetwork        = "NETWORK_ERROR"
	TextCodeDecode         = "DECODE_ERROR"
	TextCodeBadRequestArgs = "BAD_REQUEST_ARGS"
)

// StatusCode returns the HTTP status carried by err, or 0 when the request
// never got a response.
func StatusCode(err error) int {
	var gerr *goerrors.Error
	if goerrors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	var gerr *goerrors.Error
	return goerrors.As(err, &gerr) && gerr.TextCode == TextCodeNetwork
}

func networkError(op endpoint.Operation, req endpoint.Request, err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "request "+op.Name+" failed").
		WithTextCode(TextCodeNetwork).
		WithMetadata(requestMetadata(op, req))
}

type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func serverError(op endpoint.Operation, req endpoint.Request, status int, body []byte) *goerrors.Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	msg := strings.TrimSpace(parsed.Message)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "unexpected status"
	}

	meta := requestMetadata(op, req)
	if parsed.Error != nil {
		meta["error"] = parsed.Error
	}

	return goerrors.New(msg, goerrors.HTTPStatusToCategory(status)).
		WithCode(status).
		WithTextCode(goerrors.HTTPStatusToTextCode(status)).
		WithMetadata(meta)
}

func decodeError(op endpoint.Operation, req endpoint.Request, status int, err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "unexpected response for "+op.Name).
		WithCode(status).
		WithTextCode(TextCodeDecode).
		WithMetadata(requestMetadata(op, req))
}

func requestMetadata(op endpoint.Operation, req endpoint.Request) map[string]any {
	return map[string]any{
		"operation": op.Name,
		"method":    req.Method,
		"path":      req.Path,
	}
}
