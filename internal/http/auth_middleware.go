package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/passdepot/passdepot/pkg/token"
)

type authContextKey string

type authInfo struct {
	Username string
}

const contextKeyAuth authContextKey = "passdepot-auth-info"

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid session token, from either
// the Authorization header or the session cookie, before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		raw := sessionToken(req)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := token.Parse(raw, r.secret)
		if err != nil {
			r.logger.Warn("session token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}
		ctx := context.WithValue(req.Context(), contextKeyAuth, authInfo{Username: claims.Username})
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// sessionToken extracts the session token. A present Authorization header
// wins over the cookie.
func sessionToken(req *http.Request) string {
	if header := strings.TrimSpace(req.Header.Get("Authorization")); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := req.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}
