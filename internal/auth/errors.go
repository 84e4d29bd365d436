package auth

import "errors"

var (
	// ErrConfiguration indicates missing or invalid OAuth setup. Not retryable.
	ErrConfiguration = errors.New("missing or invalid oauth configuration")

	// ErrCsrfMismatch indicates the callback state did not match the one
	// issued for this session. Possible attack or stale callback; the flow
	// must be restarted.
	ErrCsrfMismatch = errors.New("oauth state mismatch")

	// ErrAuthorizationDenied indicates the user declined consent at the
	// provider (callback carried an error parameter).
	ErrAuthorizationDenied = errors.New("authorization denied by user")

	// ErrTokenExchange indicates the provider rejected the code or refresh
	// token exchange. The flow must be restarted.
	ErrTokenExchange = errors.New("token exchange rejected")

	// ErrReauthorizationRequired indicates the session can no longer produce
	// a valid access token; the full authorization flow must run again.
	ErrReauthorizationRequired = errors.New("reauthorization required")
)
