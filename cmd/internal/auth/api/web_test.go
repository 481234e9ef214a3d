package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetAuthCookies_Attributes(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	now := time.Now().UTC()

	w := httptest.NewRecorder()
	csrf := h.setAuthCookies(w, now, "access-value", now.Add(15*time.Minute), "refresh-value", now.Add(14*24*time.Hour))
	if csrf == "" {
		t.Fatalf("expected a minted csrf value")
	}

	res := w.Result()
	cookies := map[string]*http.Cookie{}
	for _, c := range res.Cookies() {
		cookies[c.Name] = c
	}

	access := cookies["access_token"]
	refresh := cookies["refresh_token"]
	csrfCookie := cookies["csrf_token"]
	if access == nil || refresh == nil || csrfCookie == nil {
		t.Fatalf("expected all three cookies, got %v", res.Header["Set-Cookie"])
	}

	for name, c := range map[string]*http.Cookie{"access": access, "refresh": refresh} {
		if !c.HttpOnly {
			t.Fatalf("%s cookie must be HttpOnly", name)
		}
	}
	if csrfCookie.HttpOnly {
		t.Fatalf("csrf cookie must be readable by the frontend")
	}
	if csrfCookie.Value != csrf {
		t.Fatalf("csrf cookie must carry the minted value")
	}

	for name, c := range cookies {
		if !c.Secure {
			t.Fatalf("%s cookie must be Secure", name)
		}
		if c.SameSite != http.SameSiteNoneMode {
			t.Fatalf("%s cookie must be SameSite=None, got %v", name, c.SameSite)
		}
		if c.Path != "/" {
			t.Fatalf("%s cookie path must be /, got %q", name, c.Path)
		}
	}

	if !refresh.Expires.After(access.Expires) {
		t.Fatalf("refresh cookie must outlive the access cookie")
	}
}

func TestClearAuthCookies(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.clearAuthCookies(w)

	res := w.Result()
	if len(res.Cookies()) != 3 {
		t.Fatalf("expected three expired cookies, got %d", len(res.Cookies()))
	}
	for _, c := range res.Cookies() {
		if c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("expected %s cleared, got value=%q maxage=%d", c.Name, c.Value, c.MaxAge)
		}
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"case insensitive", "bearer abc", "abc"},
		{"basic rejected", "Basic abc", ""},
		{"no token", "Bearer", ""},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(r); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestSecureStringEqual(t *testing.T) {
	t.Parallel()

	if !secureStringEqual("abc", "abc") {
		t.Fatalf("expected equal strings to match")
	}
	if secureStringEqual("abc", "abd") {
		t.Fatalf("expected different strings to differ")
	}
	if secureStringEqual("", "") {
		t.Fatalf("empty strings must not validate")
	}
	if secureStringEqual("abc", "abcd") {
		t.Fatalf("length mismatch must not validate")
	}
}
