package domain

import "time"

// User classification values.
const (
	ClassNormal = "normal"
	ClassTest   = "test"
	ClassSpam   = "spam"
)

// WaUser is a known contact keyed by phone number.
type WaUser struct {
	ID             int64     `json:"id,string" gorm:"primaryKey"`
	Phone          string    `json:"phone" gorm:"uniqueIndex"`
	Name           string    `json:"name"`
	Classification string    `json:"classification" gorm:"index"`
	Tier           string    `json:"tier"`
	IsBlocked      bool      `json:"is_blocked" gorm:"index"`
	BlockReason    string    `json:"block_reason"`
	MessageLimit   int       `json:"message_limit"` // messages/minute, 0 = use default
	TotalSent      int64     `json:"total_sent"`
	TotalReceived  int64     `json:"total_received"`
	MessagesToday  int64     `json:"messages_today"`
	SessionId      int64     `json:"session_id,string"` // sticky session affinity
	ErrorCount     int       `json:"error_count"`
	LastError      string    `json:"last_error"`
	LastActivity   time.Time `json:"last_activity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (WaUser) TableName() string {
	return "wa_user"
}
