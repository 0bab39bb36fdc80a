package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

const (
	// windowLength is the trailing period each per-key request window covers.
	windowLength = 60 * time.Second

	// windowPadding is added when waiting for a saturated key so the oldest
	// request has fully left the window before the next one is recorded.
	windowPadding = time.Second
)

// AdmissionController decides, per outbound call, which credential may be
// used without exceeding its per-minute ceiling. Selection is round-robin
// across the pool so concurrent callers fan out over distinct keys.
//
// Dual-strategy limiting, as with provider API clients: a proactive token
// bucket smooths the aggregate request rate, and per-key sliding windows
// enforce the hard per-minute ceiling.
type AdmissionController struct {
	pool   *CredentialPool
	bucket *rate.Limiter

	mu      sync.Mutex
	maxRPM  int
	cursor  int
	windows [][]time.Time

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAdmissionController creates a controller over the pool's credentials
// with a per-key requests-per-minute ceiling.
func NewAdmissionController(pool *CredentialPool, maxRPM int) *AdmissionController {
	n := pool.Size()
	aggregate := float64(n*maxRPM) / 60.0
	a := &AdmissionController{
		pool:    pool,
		maxRPM:  maxRPM,
		windows: make([][]time.Time, n),
		bucket:  rate.NewLimiter(rate.Limit(aggregate), n),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	logger.Info("admission controller: %d keys, %d RPM each (%d RPM total)", n, maxRPM, n*maxRPM)
	return a
}

// SetCeiling replaces the per-key per-minute ceiling. Applied to subsequent
// admission decisions; the proactive bucket is resized to match.
func (a *AdmissionController) SetCeiling(maxRPM int) {
	if maxRPM <= 0 {
		return
	}
	a.mu.Lock()
	a.maxRPM = maxRPM
	a.mu.Unlock()
	a.bucket.SetLimit(rate.Limit(float64(a.pool.Size()*maxRPM) / 60.0))
	logger.Info("admission ceiling updated to %d RPM per key", maxRPM)
}

// Ceiling returns the current per-key per-minute ceiling.
func (a *AdmissionController) Ceiling() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxRPM
}

// NextAvailable returns a credential that may issue one request now, and how
// long the caller waited for it. The rotating cursor advances before each
// eligibility check so concurrent callers land on distinct keys. If every
// eligible key is saturated, it waits for the one whose oldest in-window
// request expires soonest; the wait is bounded by the window length.
//
// The internal lock covers bookkeeping only, never a network call or sleep,
// so two callers can be in flight on two credentials simultaneously.
func (a *AdmissionController) NextAvailable(ctx context.Context) (domain.Credential, time.Duration, error) {
	start := a.now()

	// Proactive throttle first, outside the lock.
	if err := a.bucket.Wait(ctx); err != nil {
		return domain.Credential{}, a.now().Sub(start), err
	}

	for {
		cred, wait, ok, err := a.trySelect()
		if err != nil {
			return domain.Credential{}, a.now().Sub(start), err
		}
		if ok {
			return cred, a.now().Sub(start), nil
		}

		logger.Debug("all keys rate limited, waiting %.1fs", wait.Seconds())
		if err := a.sleep(ctx, wait); err != nil {
			return domain.Credential{}, a.now().Sub(start), err
		}
		// Re-run the sweep after sleeping: the window invariant must hold at
		// the instant the timestamp is recorded, and pool health may have
		// changed while we slept.
	}
}

// trySelect performs one full sweep under the lock. It returns the selected
// credential, or the duration to wait before the soonest key frees up.
func (a *AdmissionController) trySelect() (domain.Credential, time.Duration, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.pool.Size()
	now := a.now()

	attempts := 0
	for attempts < 2*n {
		idx := a.cursor
		// Advance immediately, before the eligibility check, so concurrent
		// callers fan out across distinct credentials even under contention.
		a.cursor = (a.cursor + 1) % n
		attempts++

		if !a.pool.Eligible(idx) {
			continue
		}

		a.purge(idx, now)
		if len(a.windows[idx]) < a.maxRPM {
			a.windows[idx] = append(a.windows[idx], now)
			cred, _ := a.pool.Credential(idx)
			logger.Debug("using API key #%d (%s), request %d/%d this minute",
				idx+1, cred.MaskedSecret(), len(a.windows[idx]), a.maxRPM)
			return cred, 0, true, nil
		}
	}

	// Full sweep found no admissible key. Pick the eligible key whose oldest
	// in-window request expires soonest and report how long until then.
	best := -1
	var bestWait time.Duration
	for idx := 0; idx < n; idx++ {
		if !a.pool.Eligible(idx) || len(a.windows[idx]) == 0 {
			continue
		}
		oldest := a.windows[idx][0]
		wait := windowLength + windowPadding - now.Sub(oldest)
		if best < 0 || wait < bestWait {
			best = idx
			bestWait = wait
		}
	}
	if best < 0 {
		// No key carries any window entries yet nothing was admissible:
		// every key is blocked or unhealthy.
		return domain.Credential{}, 0, false, domain.ErrNoCredentials
	}
	if bestWait < 0 {
		bestWait = 0
	}
	return domain.Credential{}, bestWait, false, nil
}

// Release hands back an admission slot that was claimed but never spent on
// a request, removing the key's most recent window entry. Entries are
// appended in time order, so the newest is last.
func (a *AdmissionController) Release(idx int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx < 0 || idx >= len(a.windows) {
		return
	}
	if n := len(a.windows[idx]); n > 0 {
		a.windows[idx] = a.windows[idx][:n-1]
	}
}

// purge drops window entries older than the trailing window. Entries are
// appended in time order, so the slice stays sorted and the head is the
// oldest request.
func (a *AdmissionController) purge(idx int, now time.Time) {
	cutoff := now.Add(-windowLength)
	w := a.windows[idx]
	keep := 0
	for keep < len(w) && !w[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		a.windows[idx] = append(w[:0], w[keep:]...)
	}
}

// windowCount returns the current in-window request count for a key.
// Used by tests to assert the ceiling invariant.
func (a *AdmissionController) windowCount(idx int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.purge(idx, a.now())
	return len(a.windows[idx])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
