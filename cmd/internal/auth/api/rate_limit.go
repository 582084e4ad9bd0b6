package authapi

import (
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/internal/httpio"
)

// lockoutTier locks an account for Duration after its Threshold-th failure.
type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// failureLog keeps recent login failures per key in process memory.
type failureLog struct {
	mu     sync.Mutex
	byKey  map[string][]time.Time
	retain time.Duration
}

const failureLogSweepAt = 10000

func newFailureLog(retain time.Duration) *failureLog {
	return &failureLog{byKey: make(map[string][]time.Time), retain: retain}
}

func (l *failureLog) record(key string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.retain)
	if len(l.byKey) >= failureLogSweepAt {
		for k, ts := range l.byKey {
			if len(ts) == 0 || !ts[0].After(cut) {
				delete(l.byKey, k)
			}
		}
	}
	ts := append([]time.Time{now}, l.byKey[key]...)
	if i := slices.IndexFunc(ts, func(t time.Time) bool { return !t.After(cut) }); i >= 0 {
		ts = ts[:i]
	}
	l.byKey[key] = ts
}

// recent returns the failures of key newer than since, newest first.
func (l *failureLog) recent(key string, since time.Time) []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []time.Time
	for _, t := range l.byKey[key] {
		if !t.After(since) {
			break
		}
		out = append(out, t)
	}
	return out
}

func (l *failureLog) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byKey, key)
}

// evaluateWindowThrottle blocks once max failures fall inside the trailing
// window. retry is the time until the oldest of them leaves the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	var inWindow []time.Time
	for _, t := range failures {
		if t.After(cut) && !t.After(now) {
			inWindow = append(inWindow, t)
		}
	}
	if len(inWindow) < max {
		return false, 0
	}
	oldest := slices.MinFunc(inWindow, func(a, b time.Time) int { return a.Compare(b) })
	return true, oldest.Add(window).Sub(now)
}

// evaluateProgressiveLockout applies the first tier whose threshold the
// failures reach. The lockout runs from the newest failure.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}
	newest := slices.MaxFunc(failures, func(a, b time.Time) int { return a.Compare(b) })
	for _, tier := range tiers {
		if tier.Threshold <= 0 || len(failures) < tier.Threshold {
			continue
		}
		retry := newest.Add(tier.Duration).Sub(now)
		if retry <= 0 {
			return false, 0
		}
		return true, retry
	}
	return false, 0
}

func (h *Handler) lockoutTiers() []lockoutTier {
	return []lockoutTier{
		{Threshold: h.cfg.LockoutSevereThreshold, Duration: h.cfg.LockoutSevereDuration},
		{Threshold: h.cfg.LockoutLongThreshold, Duration: h.cfg.LockoutLongDuration},
		{Threshold: h.cfg.LockoutShortThreshold, Duration: h.cfg.LockoutShortDuration},
	}
}

func (h *Handler) failureRetention() time.Duration {
	return max(h.cfg.LoginIPWindow, h.cfg.LoginUserWindow,
		h.cfg.LockoutShortDuration, h.cfg.LockoutLongDuration, h.cfg.LockoutSevereDuration)
}

func ipKey(ip net.IP) string { return "ip:" + ip.String() }

func userKey(username string) string { return "user:" + identity.NormalizeUsername(username) }

func (h *Handler) checkLoginIPThrottle(ip net.IP, now time.Time) (bool, time.Duration) {
	if ip == nil {
		return false, 0
	}
	failures := h.failures.recent(ipKey(ip), now.Add(-h.cfg.LoginIPWindow))
	return evaluateWindowThrottle(now, failures, h.cfg.LoginIPMax, h.cfg.LoginIPWindow)
}

func (h *Handler) checkLoginUserThrottle(username string, now time.Time) (bool, time.Duration) {
	all := h.failures.recent(userKey(username), now.Add(-h.failureRetention()))
	if len(all) == 0 {
		return false, 0
	}
	// Count the burst that ended with the newest failure.
	burst := all[:0:0]
	for _, t := range all {
		if t.After(all[0].Add(-h.cfg.LoginUserWindow)) {
			burst = append(burst, t)
		}
	}
	return evaluateProgressiveLockout(now, burst, h.lockoutTiers())
}

func (h *Handler) recordLoginFailure(ip net.IP, username string, now time.Time) {
	if ip != nil {
		h.failures.record(ipKey(ip), now)
	}
	h.failures.record(userKey(username), now)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	httpio.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
