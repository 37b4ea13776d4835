package engine

import (
	"time"

	"github.com/talkbase/wadash/internal/domain"
)

// The engine treats persistence as a synchronous read/write dependency with
// per-record atomic upserts; the gorm-backed implementations live in
// internal/store.

type UserStore interface {
	GetOrCreate(phone string) (*domain.WaUser, error)
	Save(u *domain.WaUser) error
	// ListUnblocked returns the broadcast cohort snapshot.
	ListUnblocked() ([]domain.WaUser, error)
}

type WindowStore interface {
	// Load returns nil when no window row exists for the phone.
	Load(phone string) (*domain.RateWindow, error)
	Save(w *domain.RateWindow) error
}

type SessionStore interface {
	Save(s *domain.WaSession) error
	List() ([]domain.WaSession, error)
}

type ScheduleStore interface {
	DueMessages(now time.Time, limit int) ([]domain.ScheduledMessage, error)
	DueReminders(now time.Time, limit int) ([]domain.Reminder, error)
	// MarkMessageQueued moves pending -> queued and reports whether the
	// transition happened, so a repeated promotion tick is a no-op.
	MarkMessageQueued(id int64) (bool, error)
	MarkReminderQueued(id int64) (bool, error)
	// Finish transitions are conditional on the row still being queued, so a
	// row cancelled while its item was in flight keeps its terminal status.
	FinishMessage(id int64, status string, errMsg string, sentAt time.Time) (bool, error)
	FinishReminder(id int64, status string, errMsg string) (bool, error)
	GetMessage(id int64) (*domain.ScheduledMessage, error)
	CreateMessage(m *domain.ScheduledMessage) error
}

type DispatchLog interface {
	Append(l *domain.MessageLog) error
}
