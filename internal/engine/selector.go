package engine

import (
	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

// SessionSelector chooses the session to carry a send. Sticky affinity keeps
// a user's conversation on one session; the binding is a cache hint and is
// always re-validated against the available list before use.
type SessionSelector struct {
	registry *SessionRegistry
	users    UserStore
}

func NewSessionSelector(registry *SessionRegistry, users UserStore) *SessionSelector {
	return &SessionSelector{registry: registry, users: users}
}

// Select returns the session id for the user's next send, or
// ErrNoSessionAvailable when every session is offline, suspended or full.
func (s *SessionSelector) Select(u *domain.WaUser) (int64, error) {
	avail := s.registry.ListAvailable()
	if len(avail) == 0 {
		return 0, ErrNoSessionAvailable
	}

	if u.SessionId != 0 {
		for _, c := range avail {
			if c.ID == u.SessionId {
				return c.ID, nil
			}
		}
	}

	chosen := avail[0].ID
	if u.SessionId != chosen {
		u.SessionId = chosen
		if err := s.users.Save(u); err != nil {
			// the binding is only a hint, a failed save costs one re-selection
			zap.L().Warn("sticky session save failed", zap.String("phone", u.Phone), zap.Error(err))
		}
	}
	return chosen, nil
}
