package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/security/audit"
	"github.com/workorbit/workorbit/internal/security/auth"
	"github.com/workorbit/workorbit/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// publicPath reports whether a request needs no bearer token: health probes,
// metrics, the registration/login endpoints, and the code-validation lookups
// used by registration forms before an account exists. The websocket feed
// authenticates itself from a query token because browsers cannot set
// headers on the upgrade request.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		strings.HasPrefix(path, "/api/auth/") ||
		strings.HasPrefix(path, "/api/hierarchy/validate/") ||
		strings.HasPrefix(path, "/ws/notifications")
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"success":false,"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"success":false,"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				http.Error(w, `{"success":false,"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles gates a handler to the given roles and writes denied access
// to the audit trail. It assumes JWTMiddleware already ran; a request with
// no claims is rejected outright.
func RequireRoles(log *slog.Logger, auditLog *audit.Logger, next http.Handler, roles ...domain.Role) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(log)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims == nil {
			http.Error(w, `{"success":false,"error":"missing auth"}`, http.StatusUnauthorized)
			return
		}
		for _, role := range roles {
			if domain.Role(claims.Role) == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		log.Warn("role denied",
			slog.String("path", r.URL.Path),
			slog.String("role", claims.Role),
			slog.String("user_id", claims.UserID),
		)
		auditLog.LogDenied(r.Context(), claims.UserID, "role "+claims.Role+" not permitted on "+r.URL.Path)
		http.Error(w, `{"success":false,"error":"insufficient role"}`, http.StatusForbidden)
	})
}

// RateLimitMiddleware applies the per-user sliding window to authenticated
// traffic and a much tighter per-address window to login attempts.
func RateLimitMiddleware(limiter *ratelimit.Limiter, loginLimit int, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/auth/login" {
				if !limiter.AllowStrict(remoteHost(r), loginLimit, time.Minute) {
					log.Warn("login rate limit exceeded", slog.String("remote", remoteHost(r)))
					http.Error(w, `{"success":false,"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			subject := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				subject = claims.UserID
			}

			if !limiter.Allow(subject) {
				http.Error(w, `{"success":false,"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				actorID = claims.UserID
			}

			if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/hierarchy/requests/") {
				switch {
				case strings.HasSuffix(r.URL.Path, "/approve"):
					auditLog.LogDecision(r.Context(), actorID, "approve", decisionID(r.URL.Path), "initiated", "")
				case strings.HasSuffix(r.URL.Path, "/reject"):
					auditLog.LogDecision(r.Context(), actorID, "reject", decisionID(r.URL.Path), "initiated", "")
				}
			}
			if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
				auditLog.LogLogin(r.Context(), remoteHost(r), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// decisionID pulls the request id out of
// /api/hierarchy/requests/{id}/approve-or-reject. The audit record is
// written before ServeMux routing, so r.PathValue is not populated yet.
func decisionID(path string) string {
	rest := strings.TrimPrefix(path, "/api/hierarchy/requests/")
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i]
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
