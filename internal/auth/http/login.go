package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/microplate/platform/internal/auth/domain"
	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// TokenResponse is the JSON shape of every endpoint that issues a session.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

func newTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
	}
}

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	TokenService *service.TokenService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Verifies email and password and opens a new session: a short-lived access token plus a rotating refresh token.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	httpx.Error		"error, error_description"
//	@Failure		401		{object}	httpx.Error		"error, error_description"
//	@Failure		500		{object}	httpx.Error		"error, error_description"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	pair, err := h.TokenService.Login(ctx, req.Email, req.Password, metaFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
