package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newResetEnv(t *testing.T) (*PasswordResetService, *TokenService, *captureNotifier) {
	t.Helper()

	st := newTestStore(t)
	issuer := newTestIssuer(t)
	notifier := &captureNotifier{}

	reset := &PasswordResetService{Store: st, Issuer: issuer, Notifier: notifier}
	tokens := &TokenService{Store: st, Issuer: issuer}
	return reset, tokens, notifier
}

func TestRequestReset_UnknownEmailAcksGenerically(t *testing.T) {
	reset, _, notifier := newResetEnv(t)

	err := reset.RequestReset(context.Background(), "nobody@example.com", "", testMeta)
	require.NoError(t, err)
	require.Empty(t, notifier.resetTokens)
}

func TestResetPassword_SetsPasswordAndRevokesSessions(t *testing.T) {
	reset, tokens, notifier := newResetEnv(t)
	ctx := context.Background()

	createUser(t, reset.Store, "alice@example.com", "old password 123")

	// Two live sessions before the reset.
	session1, err := tokens.Login(ctx, "alice@example.com", "old password 123", testMeta)
	require.NoError(t, err)
	session2, err := tokens.Login(ctx, "alice@example.com", "old password 123", testMeta)
	require.NoError(t, err)

	require.NoError(t, reset.RequestReset(ctx, "alice@example.com", "https://app.example.com/reset", testMeta))
	token := notifier.lastResetToken()
	require.NotEmpty(t, token)

	require.NoError(t, reset.ResetPassword(ctx, token, "new password 456", testMeta))

	// Old credential is gone, new one works.
	_, err = tokens.Login(ctx, "alice@example.com", "old password 123", testMeta)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = tokens.Login(ctx, "alice@example.com", "new password 456", testMeta)
	require.NoError(t, err)

	// Every pre-reset session was revoked.
	_, err = tokens.Refresh(ctx, session1.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = tokens.Refresh(ctx, session2.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	reset, _, notifier := newResetEnv(t)
	ctx := context.Background()

	createUser(t, reset.Store, "alice@example.com", "old password 123")
	require.NoError(t, reset.RequestReset(ctx, "alice@example.com", "", testMeta))
	token := notifier.lastResetToken()

	require.NoError(t, reset.ResetPassword(ctx, token, "new password 456", testMeta))

	err := reset.ResetPassword(ctx, token, "another password 789", testMeta)
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_WeakPasswordLeavesTokenUnconsumed(t *testing.T) {
	reset, _, notifier := newResetEnv(t)
	ctx := context.Background()

	createUser(t, reset.Store, "alice@example.com", "old password 123")
	require.NoError(t, reset.RequestReset(ctx, "alice@example.com", "", testMeta))
	token := notifier.lastResetToken()

	err := reset.ResetPassword(ctx, token, "short", testMeta)
	require.ErrorIs(t, err, ErrWeakPassword)

	// Long enough but a single character class.
	err = reset.ResetPassword(ctx, token, "onlyletters", testMeta)
	require.ErrorIs(t, err, ErrWeakPassword)

	// The rejected attempts did not burn the token.
	require.NoError(t, reset.ResetPassword(ctx, token, "new password 456", testMeta))
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	reset, _, notifier := newResetEnv(t)
	ctx := context.Background()

	createUser(t, reset.Store, "alice@example.com", "old password 123")

	stale := *reset.Issuer
	stale.ResetTTL = -time.Second
	staleReset := &PasswordResetService{Store: reset.Store, Issuer: &stale, Notifier: notifier}

	require.NoError(t, staleReset.RequestReset(ctx, "alice@example.com", "", testMeta))
	token := notifier.lastResetToken()

	err := reset.ResetPassword(ctx, token, "new password 456", testMeta)
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_GarbageToken(t *testing.T) {
	reset, _, _ := newResetEnv(t)

	// A forged token is reported as invalid even when the password would
	// also have failed policy.
	err := reset.ResetPassword(context.Background(), "not-a-token", "short", testMeta)
	require.ErrorIs(t, err, ErrInvalidResetToken)

	err = reset.ResetPassword(context.Background(), "not-a-token", "new password 456", testMeta)
	require.ErrorIs(t, err, ErrInvalidResetToken)
}
