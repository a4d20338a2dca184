package http

import (
	"errors"
	"net/http"

	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

// UserInfoHandler serves GET /v1/auth/userinfo.
type UserInfoHandler struct {
	Store store.Store
}

type userInfoResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		User info
//	@Description	Returns the profile of the authenticated caller.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	userInfoResponse	"id, email, username, roles"
//	@Failure		401	{object}	httpx.Error			"error, error_description"
//	@Failure		500	{object}	httpx.Error			"error, error_description"
//	@Router			/v1/auth/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok || userID == "" {
		httpx.ErrUnauthorized.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.ErrUnauthorized.WriteError(w)
			return
		}
		log.Error("userinfo lookup failed", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userInfoResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Roles:    user.Roles,
	})
}
