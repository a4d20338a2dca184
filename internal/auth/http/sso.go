package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/microplate/platform/internal/auth/service"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// SSOIssueHandler serves POST /v1/auth/sso/issue.
type SSOIssueHandler struct {
	SSOService *service.SSOExchangeService
}

type ssoIssueRequest struct {
	ContinueURL string `json:"continue_url,omitempty"`
}

type ssoIssueResponse struct {
	ExchangeToken string `json:"exchange_token"`
	ExpiresIn     int64  `json:"expires_in"` // seconds
}

// ServeHTTP godoc
//
//	@Summary		Issue SSO exchange token
//	@Description	Mints a seconds-lived exchange token for the authenticated caller, to be redeemed on another origin.
//	@Tags			SSO
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ssoIssueRequest		true	"Optional continue URL"
//	@Success		200		{object}	ssoIssueResponse	"exchange_token, expires_in"
//	@Failure		400		{object}	httpx.Error			"error, error_description"
//	@Failure		401		{object}	httpx.Error			"error, error_description"
//	@Failure		500		{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/sso/issue [post].
func (h *SSOIssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.ErrUnauthorized.WriteError(w)
		return
	}

	var req ssoIssueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	token, ttl, err := h.SSOService.IssueExchangeToken(ctx, userID, req.ContinueURL, metaFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.ErrUnauthorized.WriteError(w)
			return
		}
		log.Error("sso exchange token issue failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ssoIssueResponse{
		ExchangeToken: token,
		ExpiresIn:     int64(ttl / time.Second),
	})
}

// SSOExchangeHandler serves POST /v1/auth/sso/exchange.
type SSOExchangeHandler struct {
	SSOService *service.SSOExchangeService
}

type ssoExchangeRequest struct {
	ExchangeToken string `json:"exchange_token"`
}

type ssoExchangeResponse struct {
	TokenResponse
	ContinueURL string `json:"continue_url,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Redeem SSO exchange token
//	@Description	Swaps an exchange token minted by a trusted origin for a full session on this one.
//	@Tags			SSO
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ssoExchangeRequest	true	"Exchange token"
//	@Success		200		{object}	ssoExchangeResponse	"access_token, refresh_token, token_type, expires_in, continue_url"
//	@Failure		400		{object}	httpx.Error			"error, error_description"
//	@Failure		401		{object}	httpx.Error			"error, error_description"
//	@Failure		500		{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/sso/exchange [post].
func (h *SSOExchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ssoExchangeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}
	if req.ExchangeToken == "" {
		httpx.ErrInvalidRequestBody.WriteError(w)
		return
	}

	pair, continueURL, err := h.SSOService.Redeem(ctx, req.ExchangeToken, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExchangeExpired):
			ErrExchangeTokenExpired.WriteError(w)
		case errors.Is(err, service.ErrInvalidExchangeToken):
			ErrInvalidExchangeToken.WriteError(w)
		default:
			log.Error("sso exchange failed", "err", err)
			httpx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ssoExchangeResponse{
		TokenResponse: newTokenResponse(pair),
		ContinueURL:   continueURL,
	})
}
