// Package authapi exposes the HTTP surface of the auth service: login,
// registration, refresh-token rotation, logout and the authenticated
// identity echo, plus the session and CSRF middleware protecting them.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pazar/cmd/identity"
	"pazar/cmd/internal/auth/session"
	"pazar/cmd/internal/metrics"
	"pazar/cmd/security/password"
	"pazar/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the HTTP auth endpoints to the identity store, the token
// issuer and the refresh-token session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	tokens   *token.Issuer
	pw       password.Config

	metrics  *metrics.Metrics
	throttle *loginThrottle

	// dummyHash is verified against when the login email is unknown, so
	// unknown-email and bad-password responses cost the same time.
	dummyHash string
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithUserStore overrides the Postgres-backed user directory.
func WithUserStore(s identity.Store) HandlerOption {
	return func(h *Handler) {
		if s != nil {
			h.users = s
		}
	}
}

// WithSessionService overrides the Postgres-backed session service.
func WithSessionService(s *session.Service) HandlerOption {
	return func(h *Handler) {
		if s != nil {
			h.sessions = s
		}
	}
}

// NewHandler constructs the auth Handler and its collaborators from the
// shared pool and configs.
func NewHandler(log *slog.Logger, pool *pgxpool.Pool, cfg Config, tokCfg token.Config, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}

	tokens, err := token.NewIssuer(tokCfg)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		tokens:   tokens,
		pw:       password.LoadConfigFromEnv(),
		throttle: newLoginThrottle(cfg),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	if h.users == nil {
		if pool == nil {
			return nil, errors.New("auth: nil db pool")
		}
		users, err := identity.NewPostgresStore(pool, h.pw)
		if err != nil {
			return nil, err
		}
		h.users = users
	}

	if h.sessions == nil {
		if pool == nil {
			return nil, errors.New("auth: nil db pool")
		}
		store, err := session.NewPostgresStore(pool)
		if err != nil {
			return nil, err
		}
		sessOpts := []session.Option{session.WithLogger(log)}
		if h.metrics != nil {
			m := h.metrics
			sessOpts = append(sessOpts, session.WithReuseHook(func(string) { m.ReuseDetected() }))
		}
		h.sessions = session.NewService(pool, store, tokens, sessOpts...)
	}

	if hash, err := h.pw.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires the auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/register-client", h.handleRegister(identity.RoleClient))
	mux.HandleFunc("/auth/register-seller", h.handleRegister(identity.RoleSeller))
	mux.Handle("/auth/register-admin",
		h.RequireCSRF(h.RequireAuth(http.HandlerFunc(h.handleRegister(identity.RoleAdmin)), identity.RoleAdmin)))
	mux.HandleFunc("/auth/access-token", h.handleAccessToken)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.Handle("/auth/logout-all", h.RequireCSRF(h.RequireAuth(http.HandlerFunc(h.handleLogoutAll))))
	mux.Handle("/me", h.RequireAuth(http.HandlerFunc(h.handleMe)))
}

// Sessions returns the underlying session service.
func (h *Handler) Sessions() *session.Service {
	if h == nil {
		return nil
	}
	return h.sessions
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	pw := strings.TrimSpace(req.Password)
	if email == "" || pw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)

	// The throttle keys accounts by the submitted email, so unknown
	// addresses are throttled exactly like real ones.
	if blocked, retry := h.throttle.Check(now, ip, email); blocked {
		h.log.Warn("auth.login.throttled", "ip", ip)
		writeRateLimited(w, retry)
		return
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Unknown email burns the same hash cost as a real verification.
		if h.dummyHash != "" {
			_, _ = h.pw.Verify(h.dummyHash, pw)
		}
		h.throttle.Failure(now, ip, email)
		h.observeLogin(false)
		writeUnauthorized(w)
		return
	}

	ok, err := h.pw.Verify(user.PasswordHash, pw)
	if err != nil || !ok {
		h.throttle.Failure(now, ip, email)
		h.observeLogin(false)
		writeUnauthorized(w)
		return
	}
	h.throttle.Success(email)

	if err := h.issueCookies(w, r, now, user); err != nil {
		h.log.Error("auth.login.issue.fail", "err", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.observeLogin(true)
	h.log.Info("auth.login.ok", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{User: toUserResponse(user)})
}

// handleRegister builds the registration handler for one role. The admin
// variant is additionally wrapped in auth+CSRF middleware at Register time.
func (h *Handler) handleRegister(role identity.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req registerRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}

		ctx := r.Context()
		now := time.Now().UTC()

		user, err := h.users.CreateUser(ctx, identity.CreateUserInput{
			FullName: strings.TrimSpace(req.FullName),
			Email:    req.Email,
			Phone:    strings.TrimSpace(req.Phone),
			Password: req.Password,
			Role:     role,
			Now:      now,
		})
		if err != nil {
			switch {
			case identity.IsConflict(err):
				h.observeRegister(role, false)
				writeError(w, http.StatusConflict, "email_taken", "email already registered")
			case identity.IsInvalidInput(err):
				h.observeRegister(role, false)
				writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
			default:
				h.log.Error("auth.register.fail", "err", err, "role", string(role))
				writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			}
			return
		}

		// Registration signs the user in: same cookie set and refresh
		// record as a login.
		if err := h.issueCookies(w, r, now, user); err != nil {
			h.log.Error("auth.register.issue.fail", "err", err, "user_id", user.ID)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}

		h.observeRegister(role, true)
		h.log.Info("auth.register.ok", "user_id", user.ID, "role", string(role))
		writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(user)})
	}
}

func (h *Handler) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	oldRaw, _ := h.refreshTokenFromCookie(r)
	if oldRaw == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err == nil {
			oldRaw = strings.TrimSpace(req.RefreshToken)
		}
	}
	if oldRaw == "" {
		h.observeRefresh("denied")
		h.clearAuthCookies(w)
		writeUnauthorized(w)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	claims, err := h.tokens.VerifyRefresh(oldRaw, now)
	if err != nil {
		h.observeRefresh("denied")
		h.clearAuthCookies(w)
		writeUnauthorized(w)
		return
	}

	// Roles are re-read from the store so a role change lands in the next
	// token pair instead of surviving for the whole refresh lifetime.
	user, err := h.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.refresh.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		h.observeRefresh("denied")
		h.clearAuthCookies(w)
		writeUnauthorized(w)
		return
	}

	access, accessExp, err := h.tokens.IssueAccess(user.ID, user.Roles, now)
	if err != nil {
		h.log.Error("auth.refresh.issue_access.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	newRaw, _, refreshExp, err := h.tokens.IssueRefresh(user.ID, user.Roles, now)
	if err != nil {
		h.log.Error("auth.refresh.issue_refresh.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	meta := session.Meta{
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IP:        clientIP(r, h.cfg.TrustProxy),
	}
	if _, _, err := h.sessions.Rotate(ctx, now, oldRaw, newRaw, meta); err != nil {
		switch {
		case errors.Is(err, session.ErrReuseDetected):
			h.observeRefresh("reuse")
			h.log.Warn("auth.refresh.reuse", "user_id", user.ID)
		case errors.Is(err, session.ErrTokenInvalid),
			errors.Is(err, session.ErrTokenNotFound),
			errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrTokenRevoked),
			errors.Is(err, session.ErrSubjectMismatch):
			h.observeRefresh("denied")
		default:
			h.log.Error("auth.refresh.rotate.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		h.clearAuthCookies(w)
		writeUnauthorized(w)
		return
	}

	h.setAuthCookies(w, now, access, accessExp, newRaw, refreshExp)
	h.observeRefresh("success")
	h.log.Info("auth.refresh.ok", "user_id", user.ID)
	writeJSON(w, http.StatusOK, refreshResponse{User: toUserResponse(user)})
}

// handleLogout revokes the presented refresh token best-effort and always
// answers 200 with cleared cookies, so a logout never fails visibly.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, _ := h.refreshTokenFromCookie(r)
	if raw == "" && r.ContentLength != 0 {
		var req logoutRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err == nil {
			raw = strings.TrimSpace(req.RefreshToken)
		}
	}

	if raw != "" {
		now := time.Now().UTC()
		if err := h.sessions.Remove(r.Context(), now, raw); err != nil {
			h.log.Debug("auth.logout.revoke.skip", "err", err)
		}
	}

	h.observeLogout("single")
	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	now := time.Now().UTC()
	if err := h.sessions.RevokeAllForUser(r.Context(), now, id.UserID); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.observeLogout("all")
	h.log.Info("auth.logout_all.ok", "user_id", id.UserID)
	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	// Re-fetch so the response reflects live roles, not the token snapshot.
	user, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeUnauthorized(w)
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

// ---- helpers ----

// issueCookies signs a fresh token pair for user, records the refresh
// token server-side and writes the cookie set.
func (h *Handler) issueCookies(w http.ResponseWriter, r *http.Request, now time.Time, user identity.User) error {
	access, accessExp, err := h.tokens.IssueAccess(user.ID, user.Roles, now)
	if err != nil {
		return err
	}
	refresh, _, refreshExp, err := h.tokens.IssueRefresh(user.ID, user.Roles, now)
	if err != nil {
		return err
	}

	meta := session.Meta{
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IP:        clientIP(r, h.cfg.TrustProxy),
	}
	if _, err := h.sessions.Create(r.Context(), now, user.ID, refresh, meta); err != nil {
		return err
	}

	h.setAuthCookies(w, now, access, accessExp, refresh, refreshExp)
	return nil
}

func (h *Handler) observeLogin(ok bool) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(ok)
	}
}

func (h *Handler) observeRegister(role identity.Role, ok bool) {
	if h.metrics != nil {
		h.metrics.ObserveRegister(string(role), ok)
	}
}

func (h *Handler) observeRefresh(result string) {
	if h.metrics != nil {
		h.metrics.ObserveRefresh(result)
	}
}

func (h *Handler) observeLogout(scope string) {
	if h.metrics != nil {
		h.metrics.ObserveLogout(scope)
	}
}
