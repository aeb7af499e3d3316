// Package session keeps the auth token used by outbound requests and
// persists it so it survives a restart.
package session
