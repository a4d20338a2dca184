package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microplate/platform/internal/auth/audit"
	httpapi "github.com/microplate/platform/internal/auth/http"
	"github.com/microplate/platform/internal/auth/notify"
	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/internal/auth/store/drivers/sqlite"
	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtc.Codec

	auditDispatcher *audit.Dispatcher
	notifier        notify.Notifier

	tokenService        *service.TokenService
	resetService        *service.PasswordResetService
	ssoService          *service.SSOExchangeService
	otpService          *service.OTPService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	codec, err := jwtc.New([]byte(cfg.SigningSecret), cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Drain pending audit events before the database goes away.
	app.auditDispatcher.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.auditDispatcher = audit.NewDispatcher(
		&audit.LogSink{Logger: app.logger.With("component", "audit")},
		app.cfg.AuditQueueSize,
	)

	if app.cfg.SMTPHost != "" {
		app.notifier = &notify.SMTP{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		}
		app.logger.Info("smtp notifier enabled", "host", app.cfg.SMTPHost)
	} else {
		app.notifier = notify.Nop{}
		app.logger.Warn("no SMTP host configured, outbound email disabled")
	}

	issuer := &service.TokenIssuer{
		Codec:       app.codec,
		AccessTTL:   app.cfg.AccessTokenTTL,
		RefreshTTL:  app.cfg.RefreshTokenTTL,
		ResetTTL:    app.cfg.ResetTokenTTL,
		ExchangeTTL: app.cfg.ExchangeTokenTTL,
		OTPTTL:      app.cfg.OTPTokenTTL,
	}

	app.tokenService = &service.TokenService{
		Store:  app.db,
		Issuer: issuer,
		Audit:  app.auditDispatcher,
	}

	app.resetService = &service.PasswordResetService{
		Store:     app.db,
		Issuer:    issuer,
		Audit:     app.auditDispatcher,
		Notifier:  app.notifier,
		MinLength: app.cfg.MinPasswordLength,
	}

	app.ssoService = &service.SSOExchangeService{
		Store:  app.db,
		Issuer: issuer,
		Audit:  app.auditDispatcher,
	}

	app.otpService = &service.OTPService{
		Store:        app.db,
		Issuer:       issuer,
		Audit:        app.auditDispatcher,
		Notifier:     app.notifier,
		Digits:         app.cfg.OTPDigits,
		ThrottleLimit:  app.cfg.OTPThrottleLimit,
		ThrottleWindow: app.cfg.OTPThrottleWindow,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)

	router.TokenService = app.tokenService
	router.ResetService = app.resetService
	router.SSOService = app.ssoService
	router.OTPService = app.otpService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
