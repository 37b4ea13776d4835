package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sessions mirrors the registry's live session state into the database.
type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Save(row *domain.WaSession) error {
	row.UpdatedAt = time.Now()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phone", "name", "jid", "priority", "max_load", "current_load",
			"is_active", "is_connected", "is_suspended", "last_activity", "updated_at",
		}),
	}).Create(row).Error
	return errors.Wrap(err, "save session")
}

func (s *Sessions) List() ([]domain.WaSession, error) {
	var rows []domain.WaSession
	err := s.db.Order("priority DESC, id").Find(&rows).Error
	return rows, errors.Wrap(err, "list sessions")
}
