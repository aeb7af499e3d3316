// Package executor turns an endpoint.Operation invocation into one HTTP call.
//
// Execute never returns a Go error. Every failure is folded into
// Result.Err as a *errors.Error from github.com/goliatone/go-errors:
//
//   - no response (dial, TLS, reset): category external, text code NETWORK_ERROR
//   - non-2xx status: category derived from the status, Code set to it and the
//     message taken from the body's "message" field
//   - 2xx status with a body that is not a JSON object: DECODE_ERROR
//
// The executor does not retry and does not touch any cache.
package executor
