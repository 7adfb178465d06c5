package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims RequireSession attached.
func ClaimsFromContext(ctx context.Context) (*authcore.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.SessionClaims)
	return claims, ok
}

// RequireSession rejects requests without a bearer session token that
// verifies against a live session.
func RequireSession(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if engine == nil || !ok {
				reject(w, `Bearer realm="studentopia"`)
				return
			}

			claims, err := engine.VerifySessionToken(r.Context(), token)
			if err != nil {
				reject(w, `Bearer realm="studentopia", error="invalid_token"`)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
