package authapi

import (
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pazar/cmd/identity"
	"pazar/cmd/security/token"
)

func testTokenConfig(t *testing.T) token.Config {
	t.Helper()

	access := make([]byte, 32)
	refresh := make([]byte, 32)
	if _, err := rand.Read(access); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	if _, err := rand.Read(refresh); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return token.Config{
		Issuer:        "pazar",
		AccessSecret:  access,
		RefreshSecret: refresh,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    14 * 24 * time.Hour,
	}
}

func issueAccessFor(t *testing.T, h *Handler, userID string, roles ...identity.Role) string {
	t.Helper()

	raw, _, err := h.tokens.IssueAccess(userID, roles, time.Now().UTC())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return raw
}

func TestRequireAuth_CookieAndBearer(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	var gotID Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := h.RequireAuth(next)

	access := issueAccessFor(t, h, "user-1", identity.RoleClient)

	// Access cookie.
	r := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.AddCookie(&http.Cookie{Name: h.cfg.AccessCookieName, Value: access})
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth: expected 200, got %d", w.Code)
	}
	if gotID.UserID != "user-1" {
		t.Fatalf("expected user-1 in context, got %q", gotID.UserID)
	}

	// Bearer fallback.
	r = httptest.NewRequest(http.MethodGet, "/me", nil)
	r.Header.Set("Authorization", "Bearer "+access)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer auth: expected 200, got %d", w.Code)
	}

	// Cookie wins over a garbage header.
	r = httptest.NewRequest(http.MethodGet, "/me", nil)
	r.AddCookie(&http.Cookie{Name: h.cfg.AccessCookieName, Value: access})
	r.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie priority: expected 200, got %d", w.Code)
	}
}

func TestRequireAuth_UniformUnauthorized(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	protected := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	expired, _, err := func() (string, time.Time, error) {
		return h.tokens.IssueAccess("user-1", nil, time.Now().UTC().Add(-time.Hour))
	}()
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no credentials", func(*http.Request) {}},
		{"garbage cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: h.cfg.AccessCookieName, Value: "garbage"})
		}},
		{"expired token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: h.cfg.AccessCookieName, Value: expired})
		}},
		{"malformed bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic abc")
		}},
	}

	var bodies []string
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		tc.setup(r)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}

	// All failure modes must be indistinguishable to the caller.
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("expected uniform 401 bodies, got %q vs %q", bodies[0], bodies[i])
		}
	}
}

func TestRequireAuth_RoleGate(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	adminOnly := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), identity.RoleAdmin)
	adminOrSeller := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), identity.RoleAdmin, identity.RoleSeller)

	seller := issueAccessFor(t, h, "user-s", identity.RoleSeller)
	admin := issueAccessFor(t, h, "user-a", identity.RoleAdmin)
	noRoles := issueAccessFor(t, h, "user-n")

	check := func(handler http.Handler, access string, want int) {
		t.Helper()
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.AddCookie(&http.Cookie{Name: h.cfg.AccessCookieName, Value: access})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != want {
			t.Fatalf("expected %d, got %d", want, w.Code)
		}
	}

	check(adminOnly, seller, http.StatusForbidden)
	check(adminOnly, admin, http.StatusOK)
	check(adminOnly, noRoles, http.StatusForbidden)
	check(adminOrSeller, seller, http.StatusOK)
	check(adminOrSeller, admin, http.StatusOK)
	check(adminOrSeller, noRoles, http.StatusForbidden)
}

func TestRequireCSRF_Matrix(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	guarded := h.RequireCSRF(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		method string
		cookie string
		header string
		want   int
	}{
		{"post match", http.MethodPost, "tok-1", "tok-1", http.StatusOK},
		{"post mismatch", http.MethodPost, "tok-1", "tok-2", http.StatusForbidden},
		{"post missing header", http.MethodPost, "tok-1", "", http.StatusForbidden},
		{"post missing cookie", http.MethodPost, "", "tok-1", http.StatusForbidden},
		{"post missing both", http.MethodPost, "", "", http.StatusForbidden},
		{"put mismatch", http.MethodPut, "tok-1", "tok-2", http.StatusForbidden},
		{"patch mismatch", http.MethodPatch, "tok-1", "tok-2", http.StatusForbidden},
		{"delete mismatch", http.MethodDelete, "tok-1", "tok-2", http.StatusForbidden},
		{"get bypasses", http.MethodGet, "", "", http.StatusOK},
		{"head bypasses", http.MethodHead, "", "", http.StatusOK},
		{"options bypasses", http.MethodOptions, "", "", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, "/x", nil)
			if tc.cookie != "" {
				r.AddCookie(&http.Cookie{Name: h.cfg.CSRFCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				r.Header.Set(h.cfg.CSRFHeaderName, tc.header)
			}
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, r)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
