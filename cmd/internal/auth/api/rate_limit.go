package authapi

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// lockoutTier pairs a failure-count threshold with the lockout duration it
// triggers. Tiers are evaluated highest threshold first.
type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// evaluateWindowThrottle blocks when at least max failures fall inside the
// trailing window. The retry hint is the time until the oldest in-window
// failure ages out.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}

	cut := now.Add(-window)
	var count int
	var oldest time.Time
	for _, f := range failures {
		if f.Before(cut) {
			continue
		}
		count++
		if oldest.IsZero() || f.Before(oldest) {
			oldest = f
		}
	}
	if count < max {
		return false, 0
	}
	return true, oldest.Add(window).Sub(now)
}

// evaluateProgressiveLockout blocks when the total failure count reaches a
// tier threshold and the tier's lockout, measured from the most recent
// failure, has not yet elapsed.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}

	latest := failures[0]
	for _, f := range failures[1:] {
		if f.After(latest) {
			latest = f
		}
	}

	sorted := append([]lockoutTier{}, tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })

	for _, tier := range sorted {
		if tier.Threshold <= 0 || len(failures) < tier.Threshold {
			continue
		}
		retry := latest.Add(tier.Duration).Sub(now)
		if retry <= 0 {
			return false, 0
		}
		return true, retry
	}
	return false, 0
}

// loginThrottle tracks recent login failures per source IP and per target
// account. Accounts are keyed by the normalized email as submitted, so
// unknown addresses throttle exactly like real ones and the 429 is not an
// account-existence oracle.
type loginThrottle struct {
	mu        sync.Mutex
	byIP      map[string][]time.Time
	byAccount map[string][]time.Time

	ipMax    int
	ipWindow time.Duration
	tiers    []lockoutTier
}

func newLoginThrottle(cfg Config) *loginThrottle {
	return &loginThrottle{
		byIP:      make(map[string][]time.Time),
		byAccount: make(map[string][]time.Time),
		ipMax:     cfg.LoginIPMax,
		ipWindow:  cfg.LoginIPWindow,
		tiers: []lockoutTier{
			{Threshold: cfg.LockoutSevereThreshold, Duration: cfg.LockoutSevereDuration},
			{Threshold: cfg.LockoutLongThreshold, Duration: cfg.LockoutLongDuration},
			{Threshold: cfg.LockoutShortThreshold, Duration: cfg.LockoutShortDuration},
		},
	}
}

// Check reports whether a login attempt from ip against account must be
// rejected, with a Retry-After hint.
func (t *loginThrottle) Check(now time.Time, ip, account string) (bool, time.Duration) {
	if t == nil {
		return false, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)

	if ip != "" {
		if blocked, retry := evaluateWindowThrottle(now, t.byIP[ip], t.ipMax, t.ipWindow); blocked {
			return true, retry
		}
	}
	if account != "" {
		if blocked, retry := evaluateProgressiveLockout(now, t.byAccount[account], t.tiers); blocked {
			return true, retry
		}
	}
	return false, 0
}

// Failure records one failed attempt.
func (t *loginThrottle) Failure(now time.Time, ip, account string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if ip != "" {
		t.byIP[ip] = append(t.byIP[ip], now)
	}
	if account != "" {
		t.byAccount[account] = append(t.byAccount[account], now)
	}
}

// Success clears the account's failure history. IP history is kept; a
// password spray does not earn a reset by guessing one account right.
func (t *loginThrottle) Success(account string) {
	if t == nil || account == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byAccount, account)
}

// prune drops failures too old to influence any decision. Caller holds mu.
func (t *loginThrottle) prune(now time.Time) {
	cut := now.Add(-t.retention())
	for key, times := range t.byIP {
		if kept := keepAfter(times, cut); len(kept) == 0 {
			delete(t.byIP, key)
		} else {
			t.byIP[key] = kept
		}
	}
	for key, times := range t.byAccount {
		if kept := keepAfter(times, cut); len(kept) == 0 {
			delete(t.byAccount, key)
		} else {
			t.byAccount[key] = kept
		}
	}
}

func (t *loginThrottle) retention() time.Duration {
	max := t.ipWindow
	for _, tier := range t.tiers {
		if tier.Duration > max {
			max = tier.Duration
		}
	}
	if max <= 0 {
		max = time.Hour
	}
	return max
}

func keepAfter(times []time.Time, cut time.Time) []time.Time {
	kept := times[:0]
	for _, ts := range times {
		if !ts.Before(cut) {
			kept = append(kept, ts)
		}
	}
	return kept
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
