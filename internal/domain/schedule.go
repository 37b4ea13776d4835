package domain

import "time"

// Scheduled message / reminder statuses. A row moves pending|active -> queued
// when promoted into the dispatch queue, then to a terminal status. Recurrence
// is modeled by chaining a fresh pending row, never by mutating a sent one.
const (
	SchedulePending   = "pending"
	ScheduleQueued    = "queued"
	ScheduleSent      = "sent"
	ScheduleFailed    = "failed"
	ScheduleCancelled = "cancelled"

	ReminderActive    = "active"
	ReminderTriggered = "triggered"
)

// Repeat types for scheduled messages.
const (
	RepeatNone    = ""
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

type ScheduledMessage struct {
	ID           int64      `json:"id,string" gorm:"primaryKey"`
	Phone        string     `json:"phone" gorm:"index"`
	Content      string     `json:"content"`
	MessageType  string     `json:"message_type"`
	ScheduledAt  time.Time  `json:"scheduled_at" gorm:"index"`
	Status       string     `json:"status" gorm:"index"`
	RepeatType   string     `json:"repeat_type"`
	ErrorMessage string     `json:"error_message"`
	SentAt       *time.Time `json:"sent_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (ScheduledMessage) TableName() string {
	return "wa_scheduled_message"
}

// NextOccurrence returns the follow-up fire time for a repeating message,
// or the zero time when the message does not repeat.
func (s *ScheduledMessage) NextOccurrence() time.Time {
	switch s.RepeatType {
	case RepeatDaily:
		return s.ScheduledAt.AddDate(0, 0, 1)
	case RepeatWeekly:
		return s.ScheduledAt.AddDate(0, 0, 7)
	case RepeatMonthly:
		return s.ScheduledAt.AddDate(0, 1, 0)
	}
	return time.Time{}
}

type Reminder struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Phone        string    `json:"phone" gorm:"index"`
	Content      string    `json:"content"`
	RemindAt     time.Time `json:"remind_at" gorm:"index"`
	Status       string    `json:"status" gorm:"index"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Reminder) TableName() string {
	return "wa_reminder"
}
