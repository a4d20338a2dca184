// Package http wires the token, reset, SSO and OTP services to their JSON
// endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"

	_ "github.com/microplate/platform/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtc.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService *service.TokenService
	ResetService *service.PasswordResetService
	SSOService   *service.SSOExchangeService
	OTPService   *service.OTPService
}

func NewRouter(codec *jwtc.Codec, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerPasswordReset()
	r.registerSSO()
	r.registerOTP()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
//
//	@title			Microplate Authentication Service API
//	@version		0.1.0
//	@description	Token issuance and session rotation: login, refresh token rotation with reuse detection, password reset, SSO session handoff and one-time codes.
//	@description
//	@description				All tokens are HS256-signed JWTs carrying a type tag; refresh tokens are single use and rotate on every refresh.
//
//	@contact.name				Microplate Platform Team
//	@contact.url				https://github.com/microplate/platform
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	login := &LoginHandler{TokenService: r.TokenService}
	refresh := &RefreshHandler{TokenService: r.TokenService}
	logout := &LogoutHandler{TokenService: r.TokenService}

	// Credential endpoint: strict limit keyed by IP to slow brute force.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	userinfo := &UserInfoHandler{Store: r.store}
	r.Mux.Handle("GET /v1/auth/userinfo",
		httpx.Chain(userinfo,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	forgot := &ForgotPasswordHandler{ResetService: r.ResetService}
	reset := &ResetPasswordHandler{ResetService: r.ResetService}

	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(forgot,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(reset,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSSO() {
	issue := &SSOIssueHandler{SSOService: r.SSOService}
	exchange := &SSOExchangeHandler{SSOService: r.SSOService}

	// Minting an exchange token requires an authenticated caller.
	r.Mux.Handle("POST /v1/auth/sso/issue",
		httpx.Chain(issue,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/sso/exchange",
		httpx.Chain(exchange,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerOTP() {
	generate := &OTPGenerateHandler{OTPService: r.OTPService}
	verify := &OTPVerifyHandler{OTPService: r.OTPService}
	resend := &OTPResendHandler{OTPService: r.OTPService}

	r.Mux.Handle("POST /v1/auth/otp/generate",
		httpx.Chain(generate,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/otp/verify",
		httpx.Chain(verify,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/otp/resend",
		httpx.Chain(resend,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// metaFromRequest captures client context for audit trails and stored token
// records.
func metaFromRequest(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if di := r.Header.Get("X-Device-Info"); di != "" {
		meta.DeviceInfo = &di
	}
	return meta
}
