package domain

import "time"

// RateWindow mirrors the rolling per-phone rate window. The in-memory window
// inside the engine is authoritative; rows are written through on block state
// changes so blocks survive restarts.
type RateWindow struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Phone        string    `json:"phone" gorm:"uniqueIndex"`
	MessageCount int       `json:"message_count"`
	WindowStart  time.Time `json:"window_start"`
	Blocked      bool      `json:"blocked"`
	BlockReason  string    `json:"block_reason"`
	BlockExpiry  time.Time `json:"block_expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (RateWindow) TableName() string {
	return "wa_rate_window"
}
