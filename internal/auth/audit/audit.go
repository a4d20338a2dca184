// Package audit records security-relevant authentication events. Sinks are
// best effort: a failing sink never fails the operation that emitted the
// event.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types emitted by the token flows.
const (
	EventLogin              = "auth.login"
	EventLoginFailed        = "auth.login_failed"
	EventRefresh            = "auth.token_refreshed"
	EventReuseDetected      = "auth.token_reuse_detected"
	EventLogout             = "auth.logout"
	EventResetRequested     = "auth.password_reset_requested"
	EventResetCompleted     = "auth.password_reset_completed"
	EventSsoExchangeIssued  = "auth.sso_exchange_issued"
	EventSsoExchangeRedeem  = "auth.sso_exchange_redeemed"
	EventOTPGenerated    = "auth.otp_generated"
	EventOTPVerified     = "auth.otp_verified"
	EventOTPVerifyFailed = "auth.otp_verify_failed"
	EventOTPThrottled    = "auth.otp_throttled"
)

type Event struct {
	Type       string            `json:"type"`
	UserID     string            `json:"user_id,omitempty"`
	Identifier string            `json:"identifier,omitempty"` // email or username the caller presented
	IPAddress  string            `json:"ip_address,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	At         time.Time         `json:"at"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// LogSink writes events to the contextual structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Record(ctx context.Context, ev Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}

	attrs := []any{
		slog.String("event", ev.Type),
		slog.Time("at", ev.At),
	}
	if ev.UserID != "" {
		attrs = append(attrs, slog.String("user_id", ev.UserID))
	}
	if ev.Identifier != "" {
		attrs = append(attrs, slog.String("identifier", ev.Identifier))
	}
	if ev.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ev.IPAddress))
	}
	if ev.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", ev.UserAgent))
	}
	for k, v := range ev.Detail {
		attrs = append(attrs, slog.String("detail."+k, v))
	}

	l.InfoContext(ctx, "audit event", attrs...)
}

// NopSink discards everything. Useful in tests.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}
