package httpx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/microplate/platform/pkg/jwtc"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

// UserIDFromContext returns the authenticated subject, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyUserID).(string)
	return id, ok
}

// ClaimsFromContext returns the verified access-token claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtc.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtc.Claims)
	return c, ok
}

// ClientIP extracts the originating client address, honouring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
