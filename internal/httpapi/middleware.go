package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"todochat/internal/apperr"
	"todochat/internal/auth"
)

type contextKey int

const claimsContextKey contextKey = 0

// withLogging logs every request with latency.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

// withCORS allows calls from a web front-end.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isPublicRoute reports whether a path is reachable without a token. The
// tool surface under /mcp/ is collaborator-facing and carries its own
// trust boundary.
func isPublicRoute(path string) bool {
	if path == "/" || path == "/health" {
		return true
	}
	return strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, "/mcp/")
}

// authMiddleware validates the bearer token and stores its claims on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, apperr.Unauthorized("missing or malformed authorization header"))
			return
		}
		claims, err := s.tokens.Validate(token)
		if err != nil {
			writeError(w, apperr.Unauthorized("invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the authenticated claims, or nil on public routes.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// chainMiddlewares applies middlewares in order, innermost first.
func chainMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
