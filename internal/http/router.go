package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
	"github.com/passdepot/passdepot/internal/service/account"
	"github.com/passdepot/passdepot/internal/service/category"
	"github.com/passdepot/passdepot/internal/service/user"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	accounts    account.Service
	categories  category.Service
	users       user.Service
	web         http.Handler
	limiter     RateLimiter
	secret      string
	sessionTTL  time.Duration
	storeHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitSetup     = 5
	rateLimitLogin     = 12
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies. web serves the browser pages
// mounted at "/"; storeHealth feeds the health endpoint.
func NewRouter(logger *slog.Logger, accountSvc account.Service, categorySvc category.Service, userSvc user.Service, web http.Handler, limiter RateLimiter, secret string, sessionTTL time.Duration, storeHealth func(context.Context) error) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		accounts:    accountSvc,
		categories:  categorySvc,
		users:       userSvc,
		web:         web,
		limiter:     limiter,
		secret:      secret,
		sessionTTL:  sessionTTL,
		storeHealth: storeHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP applies the CORS contract to every response, short-circuits
// preflight, and delegates to the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	applyCORS(w)
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/accounts", r.audit(r.requireAuth(r.handleAccounts)))
	r.mux.HandleFunc("/api/categories", r.audit(r.requireAuth(r.handleCategories)))
	r.mux.HandleFunc("/api/users/setup", r.audit(r.withRateLimit("/api/users/setup", rateLimitSetup, rateWindowDefault, r.handleUserSetup)))
	r.mux.HandleFunc("/api/users/login", r.audit(r.withRateLimit("/api/users/login", rateLimitLogin, rateWindowDefault, r.handleUserLogin)))
	r.mux.HandleFunc("/api/users/password", r.audit(r.requireAuth(r.handleUserPassword)))
	r.mux.HandleFunc("/api/users/info", r.audit(r.handleUserInfo))
	r.mux.HandleFunc("/api/users/check", r.audit(r.handleUserCheck))
	r.mux.HandleFunc("/api/", r.audit(func(w http.ResponseWriter, req *http.Request) {
		r.notFound(w)
	}))
	if r.web != nil {
		r.mux.Handle("/", r.web)
	}
}

func (r *Router) handleAccounts(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		accounts, err := r.accounts.List(req.Context())
		if err != nil {
			r.storageError(w, req, "list accounts", err)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	case http.MethodPost:
		var payload domain.Account
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		stored, err := r.accounts.Create(req.Context(), payload)
		if err != nil {
			r.storageError(w, req, "create account", err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	case http.MethodPut:
		var payload domain.Account
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		stored, err := r.accounts.Update(req.Context(), payload)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Account not found")
				return
			}
			r.storageError(w, req, "update account", err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	case http.MethodDelete:
		id := req.URL.Query().Get("id")
		if err := r.accounts.Delete(req.Context(), id); err != nil {
			if errors.Is(err, account.ErrMissingID) {
				writeError(w, http.StatusBadRequest, "Account ID required")
				return
			}
			r.storageError(w, req, "delete account", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleCategories(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		categories, err := r.categories.List(req.Context())
		if err != nil {
			r.storageError(w, req, "list categories", err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var payload domain.Category
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		stored, err := r.categories.Create(req.Context(), payload)
		if err != nil {
			r.storageError(w, req, "create category", err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	case http.MethodDelete:
		id := req.URL.Query().Get("id")
		if err := r.categories.Delete(req.Context(), id); err != nil {
			if errors.Is(err, category.ErrMissingID) {
				writeError(w, http.StatusBadRequest, "Category ID required")
				return
			}
			r.storageError(w, req, "delete category", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleUserSetup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.users.Setup(req.Context(), payload.Username, payload.Password); err != nil {
		r.userError(w, req, "setup", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Initial user created successfully",
	})
}

func (r *Router) handleUserLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	username, signed, err := r.users.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		r.userError(w, req, "login", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(r.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": username,
		"message":  "Login successful",
		"token":    signed,
	})
}

func (r *Router) handleUserPassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.users.ChangePassword(req.Context(), payload.CurrentPassword, payload.NewPassword); err != nil {
		r.userError(w, req, "password change", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated successfully",
	})
}

func (r *Router) handleUserInfo(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, err := r.users.Info(req.Context())
	if err != nil {
		r.userError(w, req, "user info", err)
		return
	}
	// The password hash never leaves the server.
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  info.Username,
		"createdAt": info.CreatedAt,
		"updatedAt": info.UpdatedAt,
	})
}

func (r *Router) handleUserCheck(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	set, err := r.users.IsSet(req.Context())
	if err != nil {
		r.storageError(w, req, "user check", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isUserSet": set})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.storeHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.storeHealth(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// userError maps credential-service errors onto the status-code contract.
func (r *Router) userError(w http.ResponseWriter, req *http.Request, op string, err error) {
	switch {
	case errors.Is(err, user.ErrMissingFields),
		errors.Is(err, user.ErrUsernameTooShort),
		errors.Is(err, user.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrCurrentPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, user.ErrNoUser):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrAlreadySet):
		writeError(w, http.StatusConflict, err.Error())
	default:
		r.storageError(w, req, op, err)
	}
}

func (r *Router) storageError(w http.ResponseWriter, req *http.Request, op string, err error) {
	r.logger.Error("storage failure", "op", op, "path", req.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not Found")
}

// audit logs every request and feeds the request metrics.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		fields = append(fields, "request_id", reqID)
		if info, ok := authInfoFromContext(ctx); ok {
			fields = append(fields, "username", info.Username)
		}

		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
