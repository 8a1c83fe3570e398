package models

import (
	"fmt"
	"time"
)

// StateTokenLength is the length of a hex-encoded state token (8 bytes of entropy).
const StateTokenLength = 16

// StateToken pairs a client-generated nonce with a server-generated anti-CSRF
// state token for the duration of one login attempt.
//
// A record is written when a login is initiated and consumed exactly once by
// the OAuth callback. Consumption is destructive so a (nonce, token) pair can
// never validate twice.
type StateToken struct {
	Nonce     string
	Token     string
	CreatedAt time.Time
}

// Validate checks if the record's data is valid and returns an error if not.
func (s *StateToken) Validate() error {
	if s.Nonce == "" {
		return fmt.Errorf("state token record requires a nonce")
	}
	if len(s.Token) != StateTokenLength {
		return fmt.Errorf("state token must be %d characters, got %d", StateTokenLength, len(s.Token))
	}
	for _, c := range s.Token {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("state token must be lowercase hex")
		}
	}
	return nil
}
