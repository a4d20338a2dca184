package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, email string) domain.Principal {
	t.Helper()

	now := time.Now().UTC()
	p := domain.Principal{
		ID:           idx.New().String(),
		Email:        email,
		Username:     "tester",
		PasswordHash: "$argon2id$v=19$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		Roles:        []string{"user"},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), p))
	return p
}

func seedRefreshToken(t *testing.T, s *Store, userID, hash, family string, expiresAt time.Time) domain.RefreshTokenRecord {
	t.Helper()

	rec := domain.RefreshTokenRecord{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: hash,
		Family:    family,
		IPAddress: "127.0.0.1",
		UserAgent: "go-test",
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(context.Background(), rec))
	return rec
}

func TestUsers_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedUser(t, s, "alice@example.com")

	got, err := s.Users().GetUserByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Email, got.Email)
	require.Equal(t, []string{"user"}, got.Roles)

	// Lookup is case/whitespace normalized.
	got, err = s.Users().GetUserByEmail(ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	seedUser(t, s, "alice@example.com")

	dup := domain.Principal{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		Username:     "other",
		PasswordHash: "x",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := s.Users().CreateUser(context.Background(), dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_UpdatePasswordHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedUser(t, s, "alice@example.com")

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, p.ID, "new-hash"))

	got, err := s.Users().GetUserByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
}

func TestRefreshTokens_ConsumeIsSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "hash-1", "fam-1", now.Add(time.Hour))

	consumed, err := s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-1", now)
	require.NoError(t, err)
	require.True(t, consumed)

	// Second presentation of the same token loses.
	consumed, err = s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-1", now)
	require.NoError(t, err)
	require.False(t, consumed)

	rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, rec.Reused)
}

func TestRefreshTokens_ConcurrentConsumeOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "hash-1", "fam-1", now.Add(time.Hour))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumed, err := s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-1", now)
			require.NoError(t, err)
			if consumed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

func TestRefreshTokens_ConsumeExpiredOrRevoked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "expired", "fam-1", now.Add(-time.Minute))
	seedRefreshToken(t, s, p.ID, "revoked", "fam-1", now.Add(time.Hour))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "revoked", now))

	consumed, err := s.RefreshTokens().ConsumeRefreshToken(ctx, "expired", now)
	require.NoError(t, err)
	require.False(t, consumed)

	consumed, err = s.RefreshTokens().ConsumeRefreshToken(ctx, "revoked", now)
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestRefreshTokens_RevokeFamily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "a", "fam-1", now.Add(time.Hour))
	seedRefreshToken(t, s, p.ID, "b", "fam-1", now.Add(time.Hour))
	seedRefreshToken(t, s, p.ID, "c", "fam-2", now.Add(time.Hour))

	require.NoError(t, s.RefreshTokens().RevokeFamily(ctx, "fam-1", now))

	for _, hash := range []string{"a", "b"} {
		rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err)
		require.NotNil(t, rec.RevokedAt)
	}

	rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "c")
	require.NoError(t, err)
	require.Nil(t, rec.RevokedAt)
}

func TestRefreshTokens_RevokeAllForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")
	seedRefreshToken(t, s, alice.ID, "a1", "fam-a1", now.Add(time.Hour))
	seedRefreshToken(t, s, alice.ID, "a2", "fam-a2", now.Add(time.Hour))
	seedRefreshToken(t, s, bob.ID, "b1", "fam-b1", now.Add(time.Hour))

	require.NoError(t, s.RefreshTokens().RevokeAllUserRefreshTokens(ctx, alice.ID, now))

	for _, hash := range []string{"a1", "a2"} {
		rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err)
		require.NotNil(t, rec.RevokedAt)
	}

	rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "b1")
	require.NoError(t, err)
	require.Nil(t, rec.RevokedAt)
}

func TestRefreshTokens_DeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "stale", "fam-1", now.Add(-time.Hour))
	seedRefreshToken(t, s, p.ID, "live", "fam-2", now.Add(time.Hour))

	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "live")
	require.NoError(t, err)
}

func TestResetTokens_ConsumeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	rec := domain.PasswordResetTokenRecord{
		TokenHash: "reset-hash",
		UserID:    p.ID,
		ExpiresAt: now.Add(30 * time.Minute),
		IPAddress: "127.0.0.1",
		UserAgent: "go-test",
		CreatedAt: now,
	}
	require.NoError(t, s.ResetTokens().CreateResetToken(ctx, rec))

	got, err := s.ResetTokens().GetActiveResetTokenByHash(ctx, "reset-hash", now)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.UserID)

	consumed, err := s.ResetTokens().ConsumeResetToken(ctx, "reset-hash", now)
	require.NoError(t, err)
	require.True(t, consumed)

	consumed, err = s.ResetTokens().ConsumeResetToken(ctx, "reset-hash", now)
	require.NoError(t, err)
	require.False(t, consumed)

	_, err = s.ResetTokens().GetActiveResetTokenByHash(ctx, "reset-hash", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetTokens_ExpiredNotActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	rec := domain.PasswordResetTokenRecord{
		TokenHash: "reset-hash",
		UserID:    p.ID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.ResetTokens().CreateResetToken(ctx, rec))

	_, err := s.ResetTokens().GetActiveResetTokenByHash(ctx, "reset-hash", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	consumed, err := s.ResetTokens().ConsumeResetToken(ctx, "reset-hash", now)
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestOTPs_GenerateInvalidatesPredecessors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.OTPRecord{
		ID:             idx.New().String(),
		UserIdentifier: "alice@example.com",
		OTPType:        "email_verify",
		Value:          "111111",
		TokenHash:      "t1",
		IssuedAt:       now.Add(-time.Minute),
	}
	require.NoError(t, s.OTPs().CreateOTP(ctx, first))

	require.NoError(t, s.OTPs().InvalidateActiveOTPs(ctx, "alice@example.com", "email_verify"))

	second := domain.OTPRecord{
		ID:             idx.New().String(),
		UserIdentifier: "alice@example.com",
		OTPType:        "email_verify",
		Value:          "222222",
		TokenHash:      "t2",
		IssuedAt:       now,
	}
	require.NoError(t, s.OTPs().CreateOTP(ctx, second))

	_, err := s.OTPs().GetActiveOTP(ctx, "alice@example.com", "email_verify", "111111")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.OTPs().GetActiveOTP(ctx, "alice@example.com", "email_verify", "222222")
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)
}

func TestOTPs_CountIssuedSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, issued := range []time.Time{now.Add(-90 * time.Second), now.Add(-30 * time.Second), now.Add(-5 * time.Second)} {
		rec := domain.OTPRecord{
			ID:             idx.New().String(),
			UserIdentifier: "alice@example.com",
			OTPType:        "login",
			Value:          "00000" + string(rune('0'+i)),
			TokenHash:      "t" + string(rune('0'+i)),
			IssuedAt:       issued,
		}
		require.NoError(t, s.OTPs().CreateOTP(ctx, rec))
	}

	count, err := s.OTPs().CountOTPsIssuedSince(ctx, "alice@example.com", "login", now.Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := seedUser(t, s, "alice@example.com")
	seedRefreshToken(t, s, p.ID, "hash-1", "fam-1", now.Add(time.Hour))

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, p.ID, now); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	rec, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Nil(t, rec.RevokedAt)
}
