package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

// Session is the registry's view of one WhatsApp connection.
type Session struct {
	ID           int64     `json:"id,string"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Priority     int       `json:"priority"`
	MaxLoad      int       `json:"max_load"`
	CurrentLoad  int       `json:"current_load"`
	IsConnected  bool      `json:"is_connected"`
	IsSuspended  bool      `json:"is_suspended"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionRegistry exclusively owns the live session state. Mutations for the
// same session serialize through the registry mutex; the durable WaSession row
// is mirrored best-effort for the dashboard.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	store    SessionStore
	now      func() time.Time
}

func NewSessionRegistry(store SessionStore) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*Session),
		store:    store,
		now:      time.Now,
	}
}

// Restore loads previously persisted sessions into the registry. Restored
// sessions start disconnected until the client reports connectivity.
func (r *SessionRegistry) Restore() error {
	if r.store == nil {
		return nil
	}
	rows, err := r.store.List()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		r.sessions[row.ID] = &Session{
			ID:          row.ID,
			Phone:       row.Phone,
			Name:        row.Name,
			Priority:    row.Priority,
			MaxLoad:     row.MaxLoad,
			IsSuspended: row.IsSuspended,
		}
	}
	return nil
}

// Register adds (or replaces) a session. Load starts at zero.
func (r *SessionRegistry) Register(s Session) {
	if s.MaxLoad <= 0 {
		s.MaxLoad = 1
	}
	s.CurrentLoad = 0
	r.mu.Lock()
	cp := s
	r.sessions[s.ID] = &cp
	r.mu.Unlock()
	r.mirror(&cp, true)
	zap.L().Info("session registered",
		zap.Int64("session_id", s.ID),
		zap.String("phone", s.Phone),
		zap.Int("priority", s.Priority),
		zap.Int("max_load", s.MaxLoad))
}

// Unregister retires a session on explicit disconnect.
func (r *SessionRegistry) Unregister(id int64) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		s.IsConnected = false
		r.mirror(s, false)
		zap.L().Info("session unregistered", zap.Int64("session_id", id))
	}
}

// SetConnected records a connectivity signal from the client layer.
func (r *SessionRegistry) SetConnected(id int64, connected bool) error {
	return r.update(id, func(s *Session) {
		s.IsConnected = connected
		if connected {
			s.LastActivity = r.now()
		}
	})
}

// SetSuspended takes effect immediately for new selections; in-flight
// dispatches to the session still complete.
func (r *SessionRegistry) SetSuspended(id int64, suspended bool) error {
	return r.update(id, func(s *Session) {
		s.IsSuspended = suspended
	})
}

// UpdateLoad applies a load delta, clamping to [0, MaxLoad]. Load bookkeeping
// is best-effort, so an out-of-range result is clamped and logged rather than
// failed.
func (r *SessionRegistry) UpdateLoad(id int64, delta int) error {
	return r.update(id, func(s *Session) {
		next := s.CurrentLoad + delta
		if next < 0 {
			zap.L().Warn("session load would go negative, clamping",
				zap.Int64("session_id", id), zap.Int("load", s.CurrentLoad), zap.Int("delta", delta))
			next = 0
		}
		if next > s.MaxLoad {
			zap.L().Warn("session load would exceed max, clamping",
				zap.Int64("session_id", id), zap.Int("load", s.CurrentLoad), zap.Int("delta", delta))
			next = s.MaxLoad
		}
		s.CurrentLoad = next
		s.LastActivity = r.now()
	})
}

func (r *SessionRegistry) update(id int64, fn func(s *Session)) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	fn(s)
	cp := *s
	r.mu.Unlock()
	r.mirror(&cp, true)
	return nil
}

// Get returns a copy of one session.
func (r *SessionRegistry) Get(id int64) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// List returns copies of all sessions, ordered by id.
func (r *SessionRegistry) List() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAvailable returns sessions eligible for new assignments: connected, not
// suspended, below max load. Ordered by priority descending, then current
// load ascending (least loaded first among equal priority).
func (r *SessionRegistry) ListAvailable() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.IsConnected && !s.IsSuspended && s.CurrentLoad < s.MaxLoad {
			out = append(out, *s)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].CurrentLoad != out[j].CurrentLoad {
			return out[i].CurrentLoad < out[j].CurrentLoad
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// mirror writes the durable WaSession row; failures are logged, never raised.
func (r *SessionRegistry) mirror(s *Session, active bool) {
	if r.store == nil {
		return
	}
	row := &domain.WaSession{
		ID:           s.ID,
		Phone:        s.Phone,
		Name:         s.Name,
		Priority:     s.Priority,
		MaxLoad:      s.MaxLoad,
		CurrentLoad:  s.CurrentLoad,
		IsActive:     active,
		IsConnected:  s.IsConnected,
		IsSuspended:  s.IsSuspended,
		LastActivity: s.LastActivity,
	}
	if err := r.store.Save(row); err != nil {
		zap.L().Error("session mirror save failed", zap.Int64("session_id", s.ID), zap.Error(err))
	}
}
