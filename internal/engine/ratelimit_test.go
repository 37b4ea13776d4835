package engine

import (
	"testing"
	"time"

	"github.com/talkbase/wadash/internal/domain"
)

func limiterSettings() SecuritySettings {
	s := DefaultSecuritySettings()
	s.DefaultMessageLimit = 3
	s.BlockCooldown = 60 * time.Second
	return s
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	r := NewRateLimiter(staticSettings(limiterSettings()), nil)
	r.now = clock.Now

	for i := 0; i < 3; i++ {
		if dec := r.CheckAndRecord("628111", 0); !dec.Allowed {
			t.Fatalf("message %d: denied, want allowed", i+1)
		}
	}
	dec := r.CheckAndRecord("628111", 0)
	if dec.Allowed {
		t.Fatal("4th message within the window allowed, want denied")
	}
	if dec.Reason != ReasonRateLimited {
		t.Fatalf("Reason = %q, want %q", dec.Reason, ReasonRateLimited)
	}

	// still inside the cooldown
	clock.Advance(30 * time.Second)
	if dec := r.CheckAndRecord("628111", 0); dec.Allowed {
		t.Fatal("message during cooldown allowed, want denied")
	}

	// cooldown elapsed, block lifts automatically
	clock.Advance(31 * time.Second)
	if dec := r.CheckAndRecord("628111", 0); !dec.Allowed {
		t.Fatalf("message after cooldown denied: %q", dec.Reason)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	r := NewRateLimiter(staticSettings(limiterSettings()), nil)
	r.now = clock.Now

	for i := 0; i < 3; i++ {
		r.CheckAndRecord("628222", 0)
	}
	clock.Advance(61 * time.Second)
	for i := 0; i < 3; i++ {
		if dec := r.CheckAndRecord("628222", 0); !dec.Allowed {
			t.Fatalf("message %d in fresh window denied: %q", i+1, dec.Reason)
		}
	}
}

func TestRateLimiterPerUserOverride(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	r := NewRateLimiter(staticSettings(limiterSettings()), nil)
	r.now = clock.Now

	if dec := r.CheckAndRecord("628333", 1); !dec.Allowed {
		t.Fatal("first message denied with override limit 1")
	}
	if dec := r.CheckAndRecord("628333", 1); dec.Allowed {
		t.Fatal("second message allowed with override limit 1")
	}
}

func TestRateLimiterUnblock(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	r := NewRateLimiter(staticSettings(limiterSettings()), nil)
	r.now = clock.Now

	for i := 0; i < 4; i++ {
		r.CheckAndRecord("628444", 0)
	}
	if dec := r.CheckAndRecord("628444", 0); dec.Allowed {
		t.Fatal("blocked phone allowed before unblock")
	}
	r.Unblock("628444")
	if dec := r.CheckAndRecord("628444", 0); !dec.Allowed {
		t.Fatalf("message after unblock denied: %q", dec.Reason)
	}
}

func TestRateLimiterPersistsBlockState(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	windows := newFakeWindows()
	r := NewRateLimiter(staticSettings(limiterSettings()), windows)
	r.now = clock.Now

	for i := 0; i < 4; i++ {
		r.CheckAndRecord("628555", 0)
	}
	w, err := windows.Load("628555")
	if err != nil || w == nil {
		t.Fatalf("window not persisted: %v", err)
	}
	if !w.Blocked || w.BlockReason != ReasonRateLimited {
		t.Fatalf("persisted window = %+v, want blocked with %q", w, ReasonRateLimited)
	}
}

func TestRateLimiterRestoresBlockFromStore(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	windows := newFakeWindows()
	_ = windows.Save(&domain.RateWindow{
		Phone:       "628666",
		Blocked:     true,
		BlockReason: ReasonRateLimited,
		BlockExpiry: clock.Now().Add(time.Minute),
		WindowStart: clock.Now(),
	})

	r := NewRateLimiter(staticSettings(limiterSettings()), windows)
	r.now = clock.Now
	if dec := r.CheckAndRecord("628666", 0); dec.Allowed {
		t.Fatal("restored block ignored, message allowed")
	}
}
