package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/microplate/platform/pkg/jwtc"
)

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	return &TokenService{
		Store:  newTestStore(t),
		Issuer: newTestIssuer(t),
	}
}

func TestLogin(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")

	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)

	// Access token carries identity and the access type tag.
	claims, err := svc.Issuer.Codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, claims.ValidateType(jwtc.TypeAccess))
	require.Equal(t, "alice@example.com", claims.Email)

	_, err = svc.Login(ctx, "alice@example.com", "wrong password", testMeta)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "whatever", testMeta)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")
	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.NotEmpty(t, rotated.AccessToken)

	// The rotated token stays in the family opened at login.
	first, err := svc.Issuer.Codec.Verify(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, first.Family)
	next, err := svc.Issuer.Codec.Verify(rotated.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, first.Family, next.Family)

	// The new token keeps working.
	again, err := svc.Refresh(ctx, rotated.RefreshToken, testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, again.RefreshToken)
}

func TestRefresh_ReplayRevokesFamily(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")
	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.NoError(t, err)

	// Replaying the consumed token is the theft signal.
	_, err = svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrReuseDetected)

	// The whole family died with it, including the legitimately rotated
	// descendant.
	_, err = svc.Refresh(ctx, rotated.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Replaying the same token again reports it as plain invalid; the alarm
	// fires once per family, not once per attempt.
	_, err = svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")
	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		fails int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken, testMeta)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				fails++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, workers-1, fails)
}

func TestRefresh_Expired(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")

	// Issue a pair whose refresh token is already past its expiry.
	stale := *svc.Issuer
	stale.RefreshTTL = -time.Second
	staleSvc := &TokenService{Store: svc.Store, Issuer: &stale}

	pair, err := staleSvc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrRefreshExpired)
}

func TestRefresh_RejectsWrongTokenKinds(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")
	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	// An access token is not a refresh token.
	_, err = svc.Refresh(ctx, pair.AccessToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.Refresh(ctx, "not-a-token", testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout(t *testing.T) {
	svc := newTokenService(t)
	ctx := context.Background()

	createUser(t, svc.Store, "alice@example.com", "correct horse battery")
	pair, err := svc.Login(ctx, "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, testMeta))

	_, err = svc.Refresh(ctx, pair.RefreshToken, testMeta)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Idempotent: repeating and presenting garbage both succeed.
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, testMeta))
	require.NoError(t, svc.Logout(ctx, "not-a-token", testMeta))
}
