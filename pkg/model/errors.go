package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller
	ErrNotFound = goerr.New("not found")

	// ErrUnauthorized is returned for missing, invalid or mismatching credentials
	ErrUnauthorized = goerr.New("unauthorized")

	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = goerr.New("invalid input")

	// ErrConflict is returned when a unique constraint is violated
	ErrConflict = goerr.New("conflict")

	// ErrProviderAuth means the completion provider rejected our credentials
	ErrProviderAuth = goerr.New("completion provider authentication failed")

	// ErrProviderQuota means the completion provider is rate limited or out of quota
	ErrProviderQuota = goerr.New("completion provider rate limit or quota exceeded")

	// ErrProviderFailure covers every other provider error: timeouts, 5xx, malformed responses
	ErrProviderFailure = goerr.New("completion provider failed")
)
