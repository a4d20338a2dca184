package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/internal/auth/store/drivers/sqlite"
	"github.com/microplate/platform/pkg/cryptox"
	"github.com/microplate/platform/pkg/idx"
	"github.com/microplate/platform/pkg/jwtc"
)

var testMeta = RequestMeta{IPAddress: "127.0.0.1", UserAgent: "go-test"}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	codec, err := jwtc.New([]byte("test-secret-at-least-32-bytes-long"), "plate-auth", "plate-api")
	require.NoError(t, err)

	return &TokenIssuer{
		Codec:       codec,
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  30 * 24 * time.Hour,
		ResetTTL:    30 * time.Minute,
		ExchangeTTL: 30 * time.Second,
		OTPTTL:      5 * time.Minute,
	}
}

func createUser(t *testing.T, st store.Store, email, password string) domain.Principal {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	p := domain.Principal{
		ID:           idx.New().String(),
		Email:        email,
		Username:     "tester",
		PasswordHash: hash,
		Roles:        []string{"user"},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), p))
	return p
}

// captureNotifier records outbound messages so tests can pull tokens and
// codes off the wire.
type captureNotifier struct {
	mu          sync.Mutex
	resetTokens []string
	otpCodes    []string
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, _, token, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetTokens = append(c.resetTokens, token)
	return nil
}

func (c *captureNotifier) SendOTP(_ context.Context, _, _, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.otpCodes = append(c.otpCodes, code)
	return nil
}

func (c *captureNotifier) lastResetToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resetTokens) == 0 {
		return ""
	}
	return c.resetTokens[len(c.resetTokens)-1]
}

func (c *captureNotifier) lastOTPCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.otpCodes) == 0 {
		return ""
	}
	return c.otpCodes[len(c.otpCodes)-1]
}
