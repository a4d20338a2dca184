package http

import (
	"errors"
	"net/http"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// Accepted OTP purposes. Unknown purposes are rejected at the edge so the
// table never accumulates junk types.
var otpTypes = map[string]bool{
	"email_verify": true,
	"login":        true,
	"phone_verify": true,
}

// OTPGenerateHandler serves POST /v1/auth/otp/generate.
type OTPGenerateHandler struct {
	OTPService *service.OTPService
}

type otpGenerateRequest struct {
	Identifier string `json:"identifier"`
	OTPType    string `json:"otp_type"`
}

type otpGenerateResponse struct {
	OTPToken string `json:"otp_token"`
}

// ServeHTTP godoc
//
//	@Summary		Generate OTP
//	@Description	Issues a numeric one-time code for the identifier and delivers it out of band. The returned token must accompany the code at verification.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		otpGenerateRequest	true	"Identifier and purpose"
//	@Success		200		{object}	otpGenerateResponse	"otp_token"
//	@Failure		400		{object}	httpx.Error			"error, error_description"
//	@Failure		500		{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/otp/generate [post].
func (h *OTPGenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req otpGenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.Identifier == "" || !otpTypes[req.OTPType] {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	token, err := h.OTPService.Generate(ctx, req.Identifier, req.OTPType, nil, metaFromRequest(r))
	if err != nil {
		log.Error("otp generation failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, otpGenerateResponse{OTPToken: token})
}

// OTPVerifyHandler serves POST /v1/auth/otp/verify.
type OTPVerifyHandler struct {
	OTPService *service.OTPService
}

type otpVerifyRequest struct {
	OTPToken string `json:"otp_token"`
	Code     string `json:"code"`
}

type otpVerifyResponse struct {
	IsValid bool    `json:"is_valid"`
	UserID  *string `json:"user_id,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Verify OTP
//	@Description	Checks a code against the active record bound to the token. Missing, stale, mismatched and already-used codes all report is_valid=false.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		otpVerifyRequest	true	"Companion token and code"
//	@Success		200		{object}	otpVerifyResponse	"is_valid, user_id"
//	@Failure		400		{object}	httpx.Error			"error, error_description"
//	@Failure		500		{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/otp/verify [post].
func (h *OTPVerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req otpVerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.OTPToken == "" || req.Code == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	result, err := h.OTPService.Verify(ctx, req.OTPToken, req.Code, metaFromRequest(r))
	if err != nil {
		log.Error("otp verification failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, otpVerifyResponse{
		IsValid: result.IsValid,
		UserID:  result.UserID,
	})
}

// OTPResendHandler serves POST /v1/auth/otp/resend.
type OTPResendHandler struct {
	OTPService *service.OTPService
}

type otpResendRequest struct {
	OTPToken string `json:"otp_token"`
}

// ServeHTTP godoc
//
//	@Summary		Resend OTP
//	@Description	Issues a replacement code for the identifier bound to the token, throttled per identifier.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		otpResendRequest	true	"Companion token"
//	@Success		200		{object}	otpGenerateResponse	"otp_token"
//	@Failure		400		{object}	httpx.Error			"error, error_description"
//	@Failure		429		{object}	httpx.Error			"error, error_description"
//	@Failure		500		{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/otp/resend [post].
func (h *OTPResendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req otpResendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.OTPToken == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	token, err := h.OTPService.Resend(ctx, req.OTPToken, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOTPRateLimited):
			ErrOTPRateLimited.WriteError(w)
		case errors.Is(err, service.ErrInvalidOTPToken):
			ErrInvalidOTPToken.WriteError(w)
		default:
			log.Error("otp resend failed", "err", err)
			httpx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, otpGenerateResponse{OTPToken: token})
}
