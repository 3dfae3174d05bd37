package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shubekshya11/BlogApp/internal/auth"
	"github.com/shubekshya11/BlogApp/internal/config"
	"github.com/shubekshya11/BlogApp/internal/migrations"
	"github.com/shubekshya11/BlogApp/internal/observability"
	"github.com/shubekshya11/BlogApp/internal/posts"
)

type AuthService interface {
	Register(email, password, name string) (auth.User, error)
	Login(email, password string) (auth.User, error)
}

type PostService interface {
	Create(in posts.CreateInput) (posts.Post, error)
	List() ([]posts.Post, error)
	Get(id int) (posts.Post, error)
	Update(id int, title, content string) (posts.Post, error)
	Delete(id int) (posts.Post, error)
}

type MigrationLedger interface {
	Files() ([]migrations.File, error)
	Status() ([]migrations.Record, error)
	MarkApplied(name string, at time.Time) error
}

type AuditLogger interface {
	Log(actor, action, target, outcome, detail string) error
}

type Deps struct {
	Auth            AuthService
	Posts           PostService
	Migrations      MigrationLedger
	Audit           AuditLogger
	Metrics         *observability.Metrics
	Logger          *slog.Logger
	SessionTTL      time.Duration
	FrontendDistDir string
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	handler := NewHandler(deps)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      loggingMiddleware(deps, handler),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "blogapp-api",
			"version": "0.1.0",
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	registerAuthHandlers(mux, deps)
	registerPostHandlers(mux, deps)
	registerMigrationHandlers(mux, deps)
	registerFrontendHandlers(mux, deps)

	return mux
}

type authRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func registerAuthHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("/api/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if deps.Auth == nil {
			writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			return
		}

		var req authRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		switch req.Action {
		case "register":
			handleRegister(w, r, deps, req)
		case "login":
			handleLogin(w, r, deps, req)
		default:
			writeError(w, http.StatusBadRequest, "Invalid action. Use 'register' or 'login'")
		}
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		// Logout only clears the issuing client's cookie. Any other client
		// holding the same value stays logged in until its cookie expires.
		http.SetCookie(w, auth.RevokeCookie())
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
	})
}

func handleRegister(w http.ResponseWriter, r *http.Request, deps Deps, req authRequest) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := deps.Auth.Register(req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, inputMessage(err))
		case errors.Is(err, auth.ErrDuplicateEmail):
			auditReq(deps.Audit, r, auth.NormalizeEmail(req.Email), "auth.register", "", "denied", "duplicate email")
			writeError(w, http.StatusBadRequest, "User with this email already exists")
		default:
			auditReq(deps.Audit, r, auth.NormalizeEmail(req.Email), "auth.register", "", "failed", err.Error())
			writeError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}

	auditReq(deps.Audit, r, strconv.Itoa(user.ID), "auth.register", "", "success", "")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Account created successfully! You can now login.",
		"user":    user.Public(),
	})
}

func handleLogin(w http.ResponseWriter, r *http.Request, deps Deps, req authRequest) {
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := deps.Auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// One message for unknown email and wrong password alike, so the
			// endpoint cannot be used to probe which emails exist.
			countDenial(deps.Metrics, "invalid_credentials")
			auditReq(deps.Audit, r, auth.NormalizeEmail(req.Email), "auth.login", "", "denied", "invalid credentials")
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		auditReq(deps.Audit, r, auth.NormalizeEmail(req.Email), "auth.login", "", "failed", err.Error())
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, auth.IssueCookie(user.ID, deps.SessionTTL))
	auditReq(deps.Audit, r, strconv.Itoa(user.ID), "auth.login", "", "success", "")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful!",
		"user":    user.Public(),
	})
}

func registerPostHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		if deps.Posts == nil {
			writeError(w, http.StatusServiceUnavailable, "post service unavailable")
			return
		}

		switch r.Method {
		case http.MethodGet:
			list, err := deps.Posts.List()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to fetch posts")
				return
			}
			writeJSON(w, http.StatusOK, list)
		case http.MethodPost:
			var in posts.CreateInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			created, err := deps.Posts.Create(in)
			if err != nil {
				if errors.Is(err, posts.ErrInvalidInput) {
					writeError(w, http.StatusBadRequest, "Missing required fields")
					return
				}
				writeError(w, http.StatusInternalServerError, "Failed to add post")
				return
			}
			auditReq(deps.Audit, r, strconv.Itoa(in.UserID), "post.create", strconv.Itoa(created.ID), "success", "")
			writeJSON(w, http.StatusOK, created)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
		if deps.Posts == nil {
			writeError(w, http.StatusServiceUnavailable, "post service unavailable")
			return
		}

		rawID := strings.TrimPrefix(r.URL.Path, "/api/posts/")
		if rawID == "" || strings.Contains(rawID, "/") {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			handleGetPost(w, deps, id)
		case http.MethodPut:
			handleUpdatePost(w, r, deps, id)
		case http.MethodDelete:
			handleDeletePost(w, r, deps, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func handleGetPost(w http.ResponseWriter, deps Deps, id int) {
	p, err := deps.Posts.Get(id)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func handleUpdatePost(w http.ResponseWriter, r *http.Request, deps Deps, id int) {
	caller, ok := auth.ResolveIdentity(r)
	if !ok {
		countDenial(deps.Metrics, "unauthenticated")
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Missing title or content")
		return
	}

	// Existence before ownership: a missing post must answer 404 even to a
	// caller who would have been forbidden.
	target, ok := loadPostForMutation(w, r, deps, caller, id, "post.update")
	if !ok {
		return
	}

	updated, err := deps.Posts.Update(id, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), "post.update", strconv.Itoa(target.ID), "failed", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}

	auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), "post.update", strconv.Itoa(updated.ID), "success", "")
	writeJSON(w, http.StatusOK, updated)
}

func handleDeletePost(w http.ResponseWriter, r *http.Request, deps Deps, id int) {
	caller, ok := auth.ResolveIdentity(r)
	if !ok {
		countDenial(deps.Metrics, "unauthenticated")
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	target, ok := loadPostForMutation(w, r, deps, caller, id, "post.delete")
	if !ok {
		return
	}

	deleted, err := deps.Posts.Delete(id)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), "post.delete", strconv.Itoa(target.ID), "failed", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}

	auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), "post.delete", strconv.Itoa(deleted.ID), "success", "")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Post deleted successfully",
		"deletedPost": deleted,
	})
}

// loadPostForMutation fetches the target post and runs the owner-or-admin
// check, writing the 404/403/500 responses itself. Denials are audited with
// both the caller id and the target id.
func loadPostForMutation(w http.ResponseWriter, r *http.Request, deps Deps, caller auth.Identity, id int, action string) (posts.Post, bool) {
	target, err := deps.Posts.Get(id)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return posts.Post{}, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch post")
		return posts.Post{}, false
	}

	if !auth.CanMutate(caller, target.UserID) {
		countDenial(deps.Metrics, "forbidden")
		auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), action, strconv.Itoa(target.ID), "denied", "not owner or admin")
		writeError(w, http.StatusForbidden, "Forbidden: You are not the owner of this post")
		return posts.Post{}, false
	}
	return target, true
}

func registerMigrationHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("/api/system/migrations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		admin, ok := requireAdmin(w, r, deps)
		if !ok {
			return
		}
		if deps.Migrations == nil {
			writeError(w, http.StatusServiceUnavailable, "migration service unavailable")
			return
		}

		files, err := deps.Migrations.Files()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list migrations failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": files})
		auditReq(deps.Audit, r, strconv.Itoa(admin.UserID), "migration.list", "", "success", "")
	})

	mux.HandleFunc("/api/system/migrations/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		admin, ok := requireAdmin(w, r, deps)
		if !ok {
			return
		}
		if deps.Migrations == nil {
			writeError(w, http.StatusServiceUnavailable, "migration service unavailable")
			return
		}

		status, err := deps.Migrations.Status()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "migration status failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": status})
		auditReq(deps.Audit, r, strconv.Itoa(admin.UserID), "migration.status", "", "success", "")
	})

	mux.HandleFunc("/api/system/migrations/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		admin, ok := requireAdmin(w, r, deps)
		if !ok {
			return
		}
		if deps.Migrations == nil {
			writeError(w, http.StatusServiceUnavailable, "migration service unavailable")
			return
		}

		trimmed := strings.TrimPrefix(r.URL.Path, "/api/system/migrations/")
		if !strings.HasSuffix(trimmed, "/apply") {
			writeError(w, http.StatusNotFound, "migration route not found")
			return
		}
		name := strings.TrimSuffix(strings.TrimSuffix(trimmed, "/apply"), "/")
		if name == "" || strings.Contains(name, "/") {
			writeError(w, http.StatusBadRequest, "invalid migration name")
			return
		}

		if err := deps.Migrations.MarkApplied(name, time.Now()); err != nil {
			auditReq(deps.Audit, r, strconv.Itoa(admin.UserID), "migration.apply", name, "failed", err.Error())
			switch {
			case errors.Is(err, migrations.ErrBadName):
				writeError(w, http.StatusBadRequest, "invalid migration name")
			case errors.Is(err, migrations.ErrUnknownMigration):
				writeError(w, http.StatusNotFound, "migration not found")
			default:
				writeError(w, http.StatusInternalServerError, "mark migration applied failed")
			}
			return
		}
		auditReq(deps.Audit, r, strconv.Itoa(admin.UserID), "migration.apply", name, "success", "")
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied", "name": name})
	})
}

// editPathPattern matches the post-edit page, e.g. /posts/42/edit.
var editPathPattern = regexp.MustCompile(`^/posts/[^/]+/edit$`)

// protectedPath reports whether a navigation path requires a session cookie
// to view: the authoring pages only. Post reading stays public.
func protectedPath(p string) bool {
	return p == "/new" || editPathPattern.MatchString(p)
}

func registerFrontendHandlers(mux *http.ServeMux, deps Deps) {
	distDir := strings.TrimSpace(deps.FrontendDistDir)
	if distDir == "" {
		return
	}
	indexPath := filepath.Join(distDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		return
	}

	fileServer := http.FileServer(http.Dir(distDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
			http.NotFound(w, r)
			return
		}

		// The gate checks cookie presence only. A stale or fabricated id
		// still gets the page; the mutation endpoints enforce ownership.
		if protectedPath(r.URL.Path) && !auth.HasSessionCookie(r) {
			countDenial(deps.Metrics, "gate_redirect")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		cleanPath := path.Clean(r.URL.Path)
		if cleanPath == "." || cleanPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		fullPath := filepath.Join(distDir, strings.TrimPrefix(cleanPath, "/"))
		info, err := os.Stat(fullPath)
		if err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		// SPA fallback.
		http.ServeFile(w, r, indexPath)
	})
}

// requireAdmin resolves the caller and insists on the admin role. The
// asserted identity (headers or cookie) is trusted as-is, same as on the
// post mutation endpoints.
func requireAdmin(w http.ResponseWriter, r *http.Request, deps Deps) (auth.Identity, bool) {
	caller, ok := auth.ResolveIdentity(r)
	if !ok {
		countDenial(deps.Metrics, "unauthenticated")
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return auth.Identity{}, false
	}
	if !caller.Role.IsAdmin() {
		countDenial(deps.Metrics, "forbidden")
		auditReq(deps.Audit, r, strconv.Itoa(caller.UserID), "system.access", r.URL.Path, "denied", "admin role required")
		writeError(w, http.StatusForbidden, "Forbidden: admin role required")
		return auth.Identity{}, false
	}
	return caller, true
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// inputMessage strips the sentinel prefix from a validation error so the
// client sees "Password must be at least 6 characters", not the wrapper.
func inputMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		rest := msg[idx+2:]
		return strings.ToUpper(rest[:1]) + rest[1:]
	}
	return msg
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(deps Deps, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routePattern(r.URL.Path)
		if deps.Metrics != nil {
			deps.Metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			deps.Metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		if deps.Logger != nil {
			deps.Logger.Info("http request",
				"rid", reqID,
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"ip", clientIP(r),
			)
		}
	})
}

// routePattern collapses id-bearing paths onto their pattern so metric
// labels stay low-cardinality.
func routePattern(p string) string {
	switch {
	case strings.HasPrefix(p, "/api/posts/"):
		return "/api/posts/{id}"
	case strings.HasPrefix(p, "/api/system/migrations/") && strings.HasSuffix(p, "/apply"):
		return "/api/system/migrations/{name}/apply"
	case editPathPattern.MatchString(p):
		return "/posts/{id}/edit"
	case strings.HasPrefix(p, "/api/") || p == "/healthz" || p == "/readyz" || p == "/metrics" || p == "/new" || p == "/login" || p == "/":
		return p
	default:
		return "/static"
	}
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func countDenial(m *observability.Metrics, kind string) {
	if m != nil {
		m.AuthDenials.WithLabelValues(kind).Inc()
	}
}

// auditReq decorates an audit entry with request context before handing it
// to the logger. Audit write failures never fail the request.
func auditReq(a AuditLogger, r *http.Request, actor, action, target, outcome, detail string) {
	if a == nil {
		return
	}
	parts := []string{
		"rid=" + requestIDFromContext(r.Context()),
		"ip=" + clientIP(r),
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		parts = append(parts, "ua="+ua)
	}
	if strings.TrimSpace(detail) != "" {
		parts = append(parts, "detail="+strings.TrimSpace(detail))
	}
	_ = a.Log(actor, action, target, outcome, strings.Join(parts, " | "))
}
