package domain

import "time"

// Principal is the authenticated subject, owned by the user directory. It is
// immutable for the duration of a token-issuing request.
type Principal struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string // argon2 encoded, opaque to the token layer
	Roles        []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
