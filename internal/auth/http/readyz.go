package http

import (
	"context"
	"net/http"
	"time"

	"github.com/microplate/platform/internal/auth/store"
	"github.com/microplate/platform/pkg/httpx"
	"github.com/microplate/platform/pkg/slogx"
)

type readyResponse struct {
	Status string `json:"status"`
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Returns 200 when the database is reachable, 503 otherwise.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	readyResponse	"status"
//	@Failure		503	{object}	readyResponse	"status"
//	@Router			/readyz [get].
func ReadyzHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			slogx.FromContext(r.Context()).Warn("readiness check failed", "err", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable"})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, readyResponse{Status: "ready"})
	}
}
