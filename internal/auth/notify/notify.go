// Package notify delivers user-facing messages for the token flows: reset
// links, one-time codes. Delivery failures are surfaced to the caller so the
// service can decide whether the operation still succeeds.
package notify

import "context"

type Notifier interface {
	// SendPasswordReset delivers a reset link carrying the token to the
	// address on file.
	SendPasswordReset(ctx context.Context, email, token, continueURL string) error

	// SendOTP delivers a numeric one-time code to the identifier.
	SendOTP(ctx context.Context, identifier, otpType, code string) error
}

// Nop discards every message. Used in tests and local development.
type Nop struct{}

func (Nop) SendPasswordReset(context.Context, string, string, string) error { return nil }
func (Nop) SendOTP(context.Context, string, string, string) error           { return nil }
