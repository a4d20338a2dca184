package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/microplate/platform/internal/auth/store"
)

// HousekeepingService periodically deletes expired database records to
// prevent unbounded growth of refresh_tokens, password_reset_tokens and
// otps.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// OTPRetention is how long settled OTP rows are kept around for audit
	// trails before deletion.
	OTPRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:        st,
		Logger:       logger,
		Interval:     interval,
		OTPRetention: 24 * time.Hour,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes expired records. Each deletion is independent; a failure
// in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Logger.Info("starting housekeeping cleanup")

	var successful int

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		successful++
	}

	if err := s.Store.ResetTokens().DeleteExpiredResetTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired password reset tokens", "error", err)
	} else {
		successful++
	}

	if err := s.Store.OTPs().DeleteOTPsIssuedBefore(ctx, now.Add(-s.OTPRetention)); err != nil {
		s.Logger.Error("failed to delete stale otps", "error", err)
	} else {
		successful++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", successful)
}
