package http

import (
	"net/http"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// LogoutHandler serves POST /v1/auth/logout.
type LogoutHandler struct {
	TokenService *service.TokenService
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revokes the presented refresh token. Idempotent: unknown and already-revoked tokens succeed.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body	logoutRequest	true	"Refresh token"
//	@Success		204		"Session revoked"
//	@Failure		400		{object}	httpx.Error	"error, error_description"
//	@Failure		500		{object}	httpx.Error	"error, error_description"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req logoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	if err := h.TokenService.Logout(ctx, req.RefreshToken, metaFromRequest(r)); err != nil {
		log.Error("logout failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
