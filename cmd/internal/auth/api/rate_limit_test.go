package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pazar/cmd/identity"
)

func TestEvaluateWindowThrottle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	failures := []time.Time{
		now.Add(-1 * time.Minute),
		now.Add(-2 * time.Minute),
		now.Add(-6 * time.Minute),
	}

	blocked, retry := evaluateWindowThrottle(now, failures, 2, 5*time.Minute)
	if !blocked {
		t.Fatalf("expected window throttle to block")
	}
	if retry != 3*time.Minute {
		t.Fatalf("expected retry=3m, got %v", retry)
	}

	blocked, retry = evaluateWindowThrottle(now, failures, 3, 5*time.Minute)
	if blocked {
		t.Fatalf("expected window throttle to allow")
	}
	if retry != 0 {
		t.Fatalf("expected retry=0, got %v", retry)
	}
}

func TestEvaluateProgressiveLockout_ShortTier(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	failures := []time.Time{
		now.Add(-30 * time.Second),
		now.Add(-1 * time.Minute),
		now.Add(-2 * time.Minute),
		now.Add(-3 * time.Minute),
		now.Add(-4 * time.Minute),
	}

	blocked, retry := evaluateProgressiveLockout(now, failures, []lockoutTier{
		{Threshold: 20, Duration: 2 * time.Hour},
		{Threshold: 10, Duration: 30 * time.Minute},
		{Threshold: 5, Duration: 5 * time.Minute},
	})
	if !blocked {
		t.Fatalf("expected short-tier lockout")
	}
	if retry != 4*time.Minute+30*time.Second {
		t.Fatalf("unexpected retry duration: %v", retry)
	}
}

func TestEvaluateProgressiveLockout_ClearsAfterDuration(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	failures := []time.Time{
		now.Add(-6 * time.Minute),
		now.Add(-7 * time.Minute),
		now.Add(-8 * time.Minute),
		now.Add(-9 * time.Minute),
		now.Add(-10 * time.Minute),
	}

	blocked, retry := evaluateProgressiveLockout(now, failures, []lockoutTier{
		{Threshold: 5, Duration: 5 * time.Minute},
	})
	if blocked {
		t.Fatalf("expected lockout to clear, retry=%v", retry)
	}
	if retry != 0 {
		t.Fatalf("expected retry=0, got %v", retry)
	}
}

func TestEvaluateProgressiveLockout_SevereTierWins(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	failures := make([]time.Time, 0, 20)
	for i := 0; i < 20; i++ {
		failures = append(failures, now.Add(-time.Duration(i+1)*time.Minute))
	}

	blocked, retry := evaluateProgressiveLockout(now, failures, []lockoutTier{
		{Threshold: 20, Duration: 2 * time.Hour},
		{Threshold: 10, Duration: 30 * time.Minute},
		{Threshold: 5, Duration: 5 * time.Minute},
	})
	if !blocked {
		t.Fatalf("expected severe-tier lockout")
	}

	want := failures[0].Add(2 * time.Hour).Sub(now)
	if retry != want {
		t.Fatalf("expected retry=%v, got %v", want, retry)
	}
}

func TestLoginThrottle_SuccessClearsAccount(t *testing.T) {
	t.Parallel()

	th := newLoginThrottle(LoadConfigFromEnv())
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		th.Failure(now, "203.0.113.9", "buyer@example.com")
	}
	if blocked, _ := th.Check(now, "203.0.113.9", "buyer@example.com"); !blocked {
		t.Fatalf("expected account lockout after repeated failures")
	}

	th.Success("buyer@example.com")
	if blocked, _ := th.Check(now, "203.0.113.9", "buyer@example.com"); blocked {
		t.Fatalf("expected success to clear the account history")
	}
}

func TestHandleLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.users.add(t, "locked@example.com", "hunter2-secret", identity.RoleClient)

	attempt := func(password string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		env.h.handleLogin(w, postJSON(t, "/auth/login", `{"email":"locked@example.com","password":"`+password+`"}`))
		return w
	}

	for i := 0; i < 5; i++ {
		if w := attempt("wrong-password"); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	// The account is locked now, even for the correct password.
	w := attempt("hunter2-secret")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after lockout, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After hint on the throttled response")
	}
}

func TestHandleLogin_ThrottlesUnknownEmailAlike(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	attempt := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		env.h.handleLogin(w, postJSON(t, "/auth/login", `{"email":"ghost@example.com","password":"whatever-secret"}`))
		return w
	}

	for i := 0; i < 5; i++ {
		if w := attempt(); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	if w := attempt(); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected unknown accounts to lock out identically, got %d", w.Code)
	}
}
