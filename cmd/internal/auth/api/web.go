package authapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// setAuthCookies writes the full cookie set for an authenticated browser
// session: HttpOnly access and refresh cookies plus a readable CSRF cookie.
// A fresh CSRF value is minted on every call (login and refresh).
func (h *Handler) setAuthCookies(w http.ResponseWriter, now time.Time, access string, accessExp time.Time, refresh string, refreshExp time.Time) string {
	csrf := uuid.NewString()

	h.setCookie(w, h.cfg.AccessCookieName, access, accessExp, true)
	h.setCookie(w, h.cfg.RefreshCookieName, refresh, refreshExp, true)
	h.setCookie(w, h.cfg.CSRFCookieName, csrf, now.Add(h.cfg.CSRFTTL), false)
	return csrf
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName, true)
	h.expireCookie(w, h.cfg.RefreshCookieName, true)
	h.expireCookie(w, h.cfg.CSRFCookieName, false)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: httpOnly,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string, httpOnly bool) {
	if strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

// accessTokenFromRequest prefers the HttpOnly cookie and falls back to an
// Authorization bearer header for non-browser clients.
func (h *Handler) accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.cfg.AccessCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	return bearerToken(r)
}

func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.cfg.RefreshCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

// csrfDoubleSubmitValid compares the readable CSRF cookie against the
// request header in constant time. Absence of either fails the check.
func (h *Handler) csrfDoubleSubmitValid(r *http.Request) bool {
	c, err := r.Cookie(h.cfg.CSRFCookieName)
	if err != nil {
		return false
	}
	cv := strings.TrimSpace(c.Value)
	hv := strings.TrimSpace(r.Header.Get(h.cfg.CSRFHeaderName))
	if cv == "" || hv == "" {
		return false
	}
	return secureStringEqual(cv, hv)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
