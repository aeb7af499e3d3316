package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/endpoint"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
)

// TokenSource reports the current session token. It is consulted on every
// call, never cached by the executor.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// Executor issues the HTTP call for one operation invocation.
type Executor struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	logger    *zap.Logger
	userAgent string
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		if c != nil {
			e.client = c
		}
	}
}

// WithTokenSource attaches a bearer token to requests whenever ts has one.
func WithTokenSource(ts TokenSource) Option {
	return func(e *Executor) {
		e.tokens = ts
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(e *Executor) {
		e.userAgent = ua
	}
}

// New creates an executor rooted at baseURL.
func New(baseURL string, opts ...Option) *Executor {
	e := &Executor{
		baseURL: baseURL,
		client:  http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BaseURL returns the root every operation path is joined to.
func (e *Executor) BaseURL() string { return e.baseURL }

// Execute performs op with args. Failures are reported in Result.Err; the
// method itself never fails.
func (e *Executor) Execute(ctx context.Context, op endpoint.Operation, args any) Result {
	requestID := uuid.NewString()
	logger := e.logger.With(
		zap.String("operation", op.Name),
		zap.String("request_id", requestID),
	)

	built, err := op.BuildRequest(args)
	if err != nil {
		return Result{Err: buildFailure(op, err).WithRequestID(requestID)}
	}

	req, err := e.newRequest(ctx, built, requestID)
	if err != nil {
		return Result{Err: buildFailure(op, err).WithRequestID(requestID)}
	}

	logger.Debug("executing request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Warn("request failed", zap.Error(err))
		return Result{Err: networkError(op, built, err).WithRequestID(requestID)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("reading response failed", zap.Error(err))
		return Result{Err: networkError(op, built, err).WithRequestID(requestID)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := serverError(op, built, resp.StatusCode, body).WithRequestID(requestID)
		logger.Info("server returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", serr.Message),
		)
		return Result{Err: serr}
	}

	payload, err := decodePayload(resp.StatusCode, body)
	if err != nil {
		logger.Warn("decoding response failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return Result{Err: decodeError(op, built, resp.StatusCode, err).WithRequestID(requestID)}
	}

	logger.Debug("request completed", zap.Int("status", resp.StatusCode))
	return Result{Payload: payload}
}

func (e *Executor) newRequest(ctx context.Context, built endpoint.Request, requestID string) (*http.Request, error) {
	var body io.Reader
	if built.HasBody() {
		raw, err := json.Marshal(built.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, built.Method, built.URL(e.baseURL), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if e.tokens != nil {
		if token, ok := e.tokens.Token(); ok && token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}
	return req, nil
}

func buildFailure(op endpoint.Operation, err error) *goerrors.Error {
	var gerr *goerrors.Error
	if goerrors.As(err, &gerr) {
		return gerr.Clone()
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "operation "+op.Name+": cannot build request").
		WithTextCode(TextCodeBadRequestArgs)
}
