package engine

import (
	"testing"

	"github.com/talkbase/wadash/internal/domain"
)

func TestRegistryListAvailableOrdering(t *testing.T) {
	t.Parallel()
	r := registryWith(
		Session{ID: 1, Priority: 1, MaxLoad: 5},
		Session{ID: 2, Priority: 5, MaxLoad: 5},
		Session{ID: 3, Priority: 5, MaxLoad: 5},
	)
	// session 2 carries load, 3 is idle: among equal priority the idle one wins
	_ = r.UpdateLoad(2, +1)

	avail := r.ListAvailable()
	if len(avail) != 3 {
		t.Fatalf("len(avail) = %d, want 3", len(avail))
	}
	if avail[0].ID != 3 || avail[1].ID != 2 || avail[2].ID != 1 {
		t.Fatalf("order = [%d %d %d], want [3 2 1]", avail[0].ID, avail[1].ID, avail[2].ID)
	}
}

func TestRegistryAvailabilityFilters(t *testing.T) {
	t.Parallel()
	r := registryWith(
		Session{ID: 1, MaxLoad: 1},
		Session{ID: 2, MaxLoad: 1},
		Session{ID: 3, MaxLoad: 1},
		Session{ID: 4, MaxLoad: 1},
	)
	_ = r.SetConnected(1, false)       // offline
	_ = r.SetSuspended(2, true)        // suspended
	_ = r.UpdateLoad(3, +1)            // at max load

	avail := r.ListAvailable()
	if len(avail) != 1 || avail[0].ID != 4 {
		t.Fatalf("avail = %+v, want only session 4", avail)
	}
}

func TestRegistryLoadClamping(t *testing.T) {
	t.Parallel()
	r := registryWith(Session{ID: 1, MaxLoad: 2})

	_ = r.UpdateLoad(1, -1)
	if s, _ := r.Get(1); s.CurrentLoad != 0 {
		t.Fatalf("load after negative delta = %d, want clamp to 0", s.CurrentLoad)
	}

	_ = r.UpdateLoad(1, +5)
	if s, _ := r.Get(1); s.CurrentLoad != 2 {
		t.Fatalf("load after oversized delta = %d, want clamp to MaxLoad", s.CurrentLoad)
	}
}

func TestRegistryUnknownSession(t *testing.T) {
	t.Parallel()
	r := NewSessionRegistry(nil)
	if err := r.UpdateLoad(99, +1); err != ErrSessionNotFound {
		t.Fatalf("UpdateLoad on unknown session = %v, want ErrSessionNotFound", err)
	}
	if err := r.SetConnected(99, true); err != ErrSessionNotFound {
		t.Fatalf("SetConnected on unknown session = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryRestore(t *testing.T) {
	t.Parallel()
	store := newFakeSessions()
	_ = store.Save(&domain.WaSession{ID: 1, Phone: "628001", Priority: 3, MaxLoad: 4, IsActive: true, IsConnected: true})
	_ = store.Save(&domain.WaSession{ID: 2, Phone: "628002", IsActive: false})

	r := NewSessionRegistry(store)
	if err := r.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	s, ok := r.Get(1)
	if !ok {
		t.Fatal("active session not restored")
	}
	if s.IsConnected {
		t.Fatal("restored session reported connected before the client confirmed")
	}
	if s.Priority != 3 || s.MaxLoad != 4 {
		t.Fatalf("restored session = %+v, want priority 3 max_load 4", s)
	}
	if _, ok := r.Get(2); ok {
		t.Fatal("inactive session restored")
	}
}

func TestRegistryRegisterDefaultsMaxLoad(t *testing.T) {
	t.Parallel()
	r := NewSessionRegistry(nil)
	r.Register(Session{ID: 7})
	if s, _ := r.Get(7); s.MaxLoad != 1 {
		t.Fatalf("MaxLoad = %d, want default 1", s.MaxLoad)
	}
}
