// Package web serves the embedded browser pages and guards the main page
// behind the session cookie.
package web

import (
	"embed"
	"net/http"

	"log/slog"

	"github.com/passdepot/passdepot/pkg/token"
)

//go:embed static
var staticFS embed.FS

// SessionCookieName mirrors the cookie issued by the login endpoint.
const SessionCookieName = "session"

// Handler serves the static UI.
type Handler struct {
	secret string
	logger *slog.Logger
}

// NewHandler constructs a Handler. secret verifies session cookies on the
// gated main page.
func NewHandler(secret string, logger *slog.Logger) *Handler {
	return &Handler{secret: secret, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	switch req.URL.Path {
	case "/":
		if !h.sessionValid(req) {
			http.Redirect(w, req, "/login", http.StatusFound)
			return
		}
		h.serve(w, "static/index.html", "text/html; charset=utf-8")
	case "/login":
		h.serve(w, "static/login.html", "text/html; charset=utf-8")
	case "/setup":
		h.serve(w, "static/setup.html", "text/html; charset=utf-8")
	case "/styles.css":
		h.serve(w, "static/styles.css", "text/css; charset=utf-8")
	case "/script.js":
		h.serve(w, "static/script.js", "text/javascript; charset=utf-8")
	default:
		http.NotFound(w, req)
	}
}

// sessionValid verifies the signature of the session cookie. A cookie
// fabricated by the client fails here.
func (h *Handler) sessionValid(req *http.Request) bool {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	if _, err := token.Parse(cookie.Value, h.secret); err != nil {
		return false
	}
	return true
}

func (h *Handler) serve(w http.ResponseWriter, name, contentType string) {
	data, err := staticFS.ReadFile(name)
	if err != nil {
		h.logger.Error("embedded asset missing", "asset", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
