package domain

import "time"

// WaSession is the durable record of one authenticated WhatsApp connection.
// The live load/suspension state is owned by the engine registry; this row
// mirrors it for the dashboard and survives restarts.
type WaSession struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Phone        string    `json:"phone" gorm:"index"`
	Name         string    `json:"name"`
	Jid          string    `json:"jid"` // populated after pairing
	Priority     int       `json:"priority"`
	MaxLoad      int       `json:"max_load"`
	CurrentLoad  int       `json:"current_load"`
	IsActive     bool      `json:"is_active"`
	IsConnected  bool      `json:"is_connected"`
	IsSuspended  bool      `json:"is_suspended"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (WaSession) TableName() string {
	return "wa_session"
}
