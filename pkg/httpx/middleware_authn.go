package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/microplate/platform/pkg/jwtc"
	"github.com/microplate/platform/pkg/slogx"
)

// AuthnMiddleware verifies a Bearer access token and injects its claims into
// the request context. Issuer, audience and the access type tag are all
// enforced here since the codec leaves them to callers.
func AuthnMiddleware(codec *jwtc.Codec) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := codec.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtc.ErrExpired) {
					writeBearerError(w, "token expired")
					return
				}
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if claims.ValidateType(jwtc.TypeAccess) != nil ||
				claims.ValidateIssuer(codec.Issuer()) != nil ||
				claims.ValidateAudience(codec.Audience()) != nil {
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
