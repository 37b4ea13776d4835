package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Windows persists rate windows; the in-memory state inside the engine is
// authoritative and rows are written through on block transitions.
type Windows struct {
	db *gorm.DB
}

func NewWindows(db *gorm.DB) *Windows {
	return &Windows{db: db}
}

func (s *Windows) Load(phone string) (*domain.RateWindow, error) {
	var w domain.RateWindow
	err := s.db.Where("phone = ?", phone).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load rate window")
	}
	return &w, nil
}

func (s *Windows) Save(w *domain.RateWindow) error {
	if w.ID == 0 {
		w.ID = common.UUIDint64()
	}
	w.UpdatedAt = time.Now()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"message_count", "window_start", "blocked", "block_reason", "block_expiry", "updated_at",
		}),
	}).Create(w).Error
	return errors.Wrap(err, "save rate window")
}
