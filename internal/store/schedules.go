package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"gorm.io/gorm"
)

// Schedules drives the scheduled-message and reminder state machines.
type Schedules struct {
	db *gorm.DB
}

func NewSchedules(db *gorm.DB) *Schedules {
	return &Schedules{db: db}
}

func (s *Schedules) DueMessages(now time.Time, limit int) ([]domain.ScheduledMessage, error) {
	var msgs []domain.ScheduledMessage
	err := s.db.Where("status = ? AND scheduled_at <= ?", domain.SchedulePending, now).
		Order("scheduled_at").Limit(limit).Find(&msgs).Error
	return msgs, errors.Wrap(err, "due scheduled messages")
}

func (s *Schedules) DueReminders(now time.Time, limit int) ([]domain.Reminder, error) {
	var rems []domain.Reminder
	err := s.db.Where("status = ? AND remind_at <= ?", domain.ReminderActive, now).
		Order("remind_at").Limit(limit).Find(&rems).Error
	return rems, errors.Wrap(err, "due reminders")
}

// MarkMessageQueued is a conditional pending -> queued transition; the row
// count tells the caller whether this promotion won.
func (s *Schedules) MarkMessageQueued(id int64) (bool, error) {
	res := s.db.Model(&domain.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, domain.SchedulePending).
		Updates(map[string]interface{}{"status": domain.ScheduleQueued, "updated_at": time.Now()})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "mark message queued")
}

func (s *Schedules) MarkReminderQueued(id int64) (bool, error) {
	res := s.db.Model(&domain.Reminder{}).
		Where("id = ? AND status = ?", id, domain.ReminderActive).
		Updates(map[string]interface{}{"status": domain.ScheduleQueued, "updated_at": time.Now()})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "mark reminder queued")
}

// FinishMessage is a conditional queued -> terminal transition. A row that
// already left the queued state (cancelled while its item was in flight) is
// left untouched and reported as not finished.
func (s *Schedules) FinishMessage(id int64, status string, errMsg string, sentAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"updated_at":    time.Now(),
	}
	if !sentAt.IsZero() {
		updates["sent_at"] = sentAt
	}
	res := s.db.Model(&domain.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, domain.ScheduleQueued).
		Updates(updates)
	return res.RowsAffected > 0, errors.Wrap(res.Error, "finish scheduled message")
}

func (s *Schedules) FinishReminder(id int64, status string, errMsg string) (bool, error) {
	res := s.db.Model(&domain.Reminder{}).
		Where("id = ? AND status = ?", id, domain.ScheduleQueued).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "finish reminder")
}

func (s *Schedules) GetMessage(id int64) (*domain.ScheduledMessage, error) {
	var m domain.ScheduledMessage
	err := s.db.Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get scheduled message")
	}
	return &m, nil
}

func (s *Schedules) CreateMessage(m *domain.ScheduledMessage) error {
	return errors.Wrap(s.db.Create(m).Error, "create scheduled message")
}

func (s *Schedules) CreateReminder(r *domain.Reminder) error {
	return errors.Wrap(s.db.Create(r).Error, "create reminder")
}

// CancelMessage marks a pending or queued message cancelled (admin action).
// For a queued row the caller also purges the matching lane item; an item
// already in flight finishes naturally, and the conditional finish transition
// keeps this row terminal.
func (s *Schedules) CancelMessage(id int64) (bool, error) {
	res := s.db.Model(&domain.ScheduledMessage{}).
		Where("id = ? AND status IN ?", id, []string{domain.SchedulePending, domain.ScheduleQueued}).
		Updates(map[string]interface{}{"status": domain.ScheduleCancelled, "updated_at": time.Now()})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "cancel scheduled message")
}

func (s *Schedules) CancelReminder(id int64) (bool, error) {
	res := s.db.Model(&domain.Reminder{}).
		Where("id = ? AND status IN ?", id, []string{domain.ReminderActive, domain.ScheduleQueued}).
		Updates(map[string]interface{}{"status": domain.ScheduleCancelled, "updated_at": time.Now()})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "cancel reminder")
}
