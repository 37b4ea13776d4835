package engine

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

const (
	windowShards  = 16
	windowSeconds = 60

	ReasonRateLimited = "rate_limited"
)

// Decision is the outcome of a rate-limit check. Denial is a first-class
// result, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

var allowed = Decision{Allowed: true}

func denied(reason string) Decision {
	return Decision{Reason: reason}
}

type windowShard struct {
	mu      sync.Mutex
	windows map[string]*domain.RateWindow
}

// RateLimiter tracks rolling 60-second message windows per phone number.
// Concurrent checks for the same phone serialize through a shard mutex so
// counter updates are never lost. Block state changes are written through to
// the window store so blocks survive a restart.
type RateLimiter struct {
	settings SettingsSource
	store    WindowStore
	now      func() time.Time
	shards   [windowShards]windowShard
}

func NewRateLimiter(settings SettingsSource, store WindowStore) *RateLimiter {
	r := &RateLimiter{
		settings: settings,
		store:    store,
		now:      time.Now,
	}
	for i := range r.shards {
		r.shards[i].windows = make(map[string]*domain.RateWindow)
	}
	return r
}

func (r *RateLimiter) shard(phone string) *windowShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return &r.shards[h.Sum32()%windowShards]
}

// CheckAndRecord looks up or creates the window for phone, applies the rolling
// window rules and records the message. limitOverride, when positive, replaces
// the configured default limit (per-tier/per-user limits).
func (r *RateLimiter) CheckAndRecord(phone string, limitOverride int) Decision {
	st := r.settings.SecuritySettings()
	limit := st.DefaultMessageLimit
	if limitOverride > 0 {
		limit = limitOverride
	}

	s := r.shard(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := r.now()
	w := s.windows[phone]
	if w == nil {
		w = r.loadWindow(phone, now)
		s.windows[phone] = w
	}

	if w.Blocked {
		if now.Before(w.BlockExpiry) {
			return denied(w.BlockReason)
		}
		w.Blocked = false
		w.BlockReason = ""
		w.MessageCount = 0
		w.WindowStart = now
		r.persist(w)
	}

	if now.Sub(w.WindowStart) >= windowSeconds*time.Second {
		w.MessageCount = 0
		w.WindowStart = now
	}

	w.MessageCount++
	if w.MessageCount > limit {
		w.Blocked = true
		w.BlockReason = ReasonRateLimited
		w.BlockExpiry = now.Add(st.BlockCooldown)
		r.persist(w)
		zap.L().Warn("rate limit exceeded",
			zap.String("phone", phone),
			zap.Int("count", w.MessageCount),
			zap.Int("limit", limit),
			zap.Time("block_expiry", w.BlockExpiry))
		return denied(ReasonRateLimited)
	}

	return allowed
}

// Unblock clears the block and window counters for a phone (admin reset).
func (r *RateLimiter) Unblock(phone string) {
	s := r.shard(phone)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := r.now()
	w := s.windows[phone]
	if w == nil {
		w = r.loadWindow(phone, now)
		s.windows[phone] = w
	}
	w.Blocked = false
	w.BlockReason = ""
	w.MessageCount = 0
	w.WindowStart = now
	r.persist(w)
}

// Window returns a copy of the current window state for observability.
func (r *RateLimiter) Window(phone string) (domain.RateWindow, bool) {
	s := r.shard(phone)
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.windows[phone]
	if w == nil {
		return domain.RateWindow{}, false
	}
	return *w, true
}

func (r *RateLimiter) loadWindow(phone string, now time.Time) *domain.RateWindow {
	if r.store != nil {
		if w, err := r.store.Load(phone); err != nil {
			zap.L().Error("rate window load failed", zap.String("phone", phone), zap.Error(err))
		} else if w != nil {
			return w
		}
	}
	return &domain.RateWindow{Phone: phone, WindowStart: now}
}

// persist is best-effort: losing a mirror write never blocks a decision.
func (r *RateLimiter) persist(w *domain.RateWindow) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(w); err != nil {
		zap.L().Error("rate window save failed", zap.String("phone", w.Phone), zap.Error(err))
	}
}
