package middleware

import (
	"net"
	"net/http"

	authcore "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000"
)

// ClientIP copies the peer address into the request context so audit events
// carry it. Mount chi's RealIP first when running behind a trusted proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(authcore.WithClientIP(r.Context(), ip)))
	})
}
