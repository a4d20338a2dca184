package http

import (
	"errors"
	"net/http"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// RefreshHandler serves POST /v1/auth/refresh.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP godoc
//
//	@Summary		Refresh session
//	@Description	Rotates a refresh token: the presented token is consumed and a new access/refresh pair is issued. Presenting an already-used token revokes every session descended from the same login.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	httpx.Error		"error, error_description"
//	@Failure		401		{object}	httpx.Error		"error, error_description"
//	@Failure		500		{object}	httpx.Error		"error, error_description"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReuseDetected):
			ErrTokenReuseDetected.WriteError(w)
		case errors.Is(err, service.ErrRefreshExpired):
			ErrRefreshTokenExpired.WriteError(w)
		case errors.Is(err, service.ErrInvalidRefresh):
			ErrInvalidRefreshToken.WriteError(w)
		default:
			log.Error("refresh failed", "err", err)
			httpx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
