package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Client request errors
	ErrBadRequest    = fmt.Errorf("bad request")
	ErrStateMismatch = fmt.Errorf("state token mismatch")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrDecryptFailed    = fmt.Errorf("token decryption failed")

	// Upstream API errors
	ErrUpstream    = fmt.Errorf("upstream API request failed")
	ErrRateLimited = fmt.Errorf("upstream API rate limit in effect")
	ErrNotFound    = fmt.Errorf("resource not found")
)
