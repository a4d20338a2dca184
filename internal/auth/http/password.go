package http

import (
	"errors"
	"net/http"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// ForgotPasswordHandler serves POST /v1/auth/forgot-password.
type ForgotPasswordHandler struct {
	ResetService *service.PasswordResetService
}

type forgotPasswordRequest struct {
	Email       string `json:"email"`
	ContinueURL string `json:"continue_url,omitempty"`
}

type forgotPasswordResponse struct {
	Message string `json:"message"`
}

// ServeHTTP godoc
//
//	@Summary		Request password reset
//	@Description	Sends a single-use reset link to the account email. The response is the same whether or not the email matches an account.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		forgotPasswordRequest	true	"Account email and optional continue URL"
//	@Success		200		{object}	forgotPasswordResponse	"message"
//	@Failure		400		{object}	httpx.Error				"error, error_description"
//	@Failure		500		{object}	httpx.Error				"error, error_description"
//	@Router			/v1/auth/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.Email == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	if err := h.ResetService.RequestReset(ctx, req.Email, req.ContinueURL, metaFromRequest(r)); err != nil {
		log.Error("password reset request failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, forgotPasswordResponse{
		Message: "If that email matches an account, a reset link has been sent.",
	})
}

// ResetPasswordHandler serves POST /v1/auth/reset-password.
type ResetPasswordHandler struct {
	ResetService *service.PasswordResetService
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ServeHTTP godoc
//
//	@Summary		Reset password
//	@Description	Consumes a reset token, sets the new password and revokes every outstanding session for the account.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body	resetPasswordRequest	true	"Reset token and new password"
//	@Success		204		"Password updated"
//	@Failure		400		{object}	httpx.Error	"error, error_description"
//	@Failure		500		{object}	httpx.Error	"error, error_description"
//	@Router			/v1/auth/reset-password [post].
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	if err := h.ResetService.ResetPassword(ctx, req.Token, req.NewPassword, metaFromRequest(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			ErrWeakPassword.WriteError(w)
		case errors.Is(err, service.ErrInvalidResetToken):
			ErrInvalidResetToken.WriteError(w)
		default:
			log.Error("password reset failed", "err", err)
			httpx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
