package engine

import (
	"testing"

	"github.com/talkbase/wadash/internal/domain"
)

func TestSelectorPicksBestAvailable(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	r := registryWith(
		Session{ID: 1, Priority: 1, MaxLoad: 5},
		Session{ID: 2, Priority: 5, MaxLoad: 5},
	)
	sel := NewSessionSelector(r, users)

	u, _ := users.GetOrCreate("628700")
	sid, err := sel.Select(u)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sid != 2 {
		t.Fatalf("selected session %d, want highest priority 2", sid)
	}
	if got := users.get("628700"); got.SessionId != 2 {
		t.Fatalf("sticky binding not persisted: %d", got.SessionId)
	}
}

func TestSelectorStickyAffinity(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	r := registryWith(
		Session{ID: 1, Priority: 1, MaxLoad: 5},
		Session{ID: 2, Priority: 5, MaxLoad: 5},
	)
	sel := NewSessionSelector(r, users)

	// user already bound to the lower-priority session
	users.put(domain.WaUser{Phone: "628701", SessionId: 1})
	u, _ := users.GetOrCreate("628701")
	sid, err := sel.Select(u)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sid != 1 {
		t.Fatalf("selected session %d, want sticky session 1", sid)
	}
}

func TestSelectorRebindsWhenStickyUnavailable(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	r := registryWith(
		Session{ID: 1, Priority: 5, MaxLoad: 1},
		Session{ID: 2, Priority: 1, MaxLoad: 5},
	)
	sel := NewSessionSelector(r, users)

	users.put(domain.WaUser{Phone: "628702", SessionId: 1})
	_ = r.UpdateLoad(1, +1) // sticky session now full

	u, _ := users.GetOrCreate("628702")
	sid, err := sel.Select(u)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sid != 2 {
		t.Fatalf("selected session %d, want spill to 2", sid)
	}
	if got := users.get("628702"); got.SessionId != 2 {
		t.Fatalf("binding not moved: %d", got.SessionId)
	}
}

func TestSelectorNoSessionAvailable(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	r := NewSessionRegistry(nil)
	r.Register(Session{ID: 1, MaxLoad: 1}) // never connected
	sel := NewSessionSelector(r, users)

	u, _ := users.GetOrCreate("628703")
	if _, err := sel.Select(u); err != ErrNoSessionAvailable {
		t.Fatalf("Select = %v, want ErrNoSessionAvailable", err)
	}
}
