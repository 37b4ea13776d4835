package domain

import "time"

// Message log directions and statuses.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"

	LogStatusSent   = "sent"
	LogStatusFailed = "failed"
)

// MessageLog is the append-only record of every dispatch attempt.
type MessageLog struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Direction    string    `json:"direction" gorm:"index"`
	Phone        string    `json:"phone" gorm:"index"`
	SessionId    int64     `json:"session_id,string" gorm:"index"`
	Content      string    `json:"content"`
	MessageType  string    `json:"message_type" gorm:"index"` // broadcast | scheduled | reminder | chat
	Status       string    `json:"status" gorm:"index"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

func (MessageLog) TableName() string {
	return "wa_message_log"
}
