package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"gorm.io/gorm"
)

// Users is the gorm-backed user store consumed by the engine.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) GetOrCreate(phone string) (*domain.WaUser, error) {
	phone = common.NormalizePhone(phone)
	var u domain.WaUser
	err := s.db.Where("phone = ?", phone).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "query user")
	}
	u = domain.WaUser{
		ID:             common.UUIDint64(),
		Phone:          phone,
		Classification: domain.ClassNormal,
		LastActivity:   time.Now(),
	}
	if err := s.db.Create(&u).Error; err != nil {
		// a concurrent create may have won, re-read
		if err2 := s.db.Where("phone = ?", phone).First(&u).Error; err2 == nil {
			return &u, nil
		}
		return nil, errors.Wrap(err, "create user")
	}
	return &u, nil
}

func (s *Users) Save(u *domain.WaUser) error {
	return errors.Wrap(s.db.Save(u).Error, "save user")
}

func (s *Users) ListUnblocked() ([]domain.WaUser, error) {
	var users []domain.WaUser
	err := s.db.Where("is_blocked = ?", false).Order("id").Find(&users).Error
	return users, errors.Wrap(err, "list unblocked users")
}

// List returns a page of users for the admin API.
func (s *Users) List(offset, limit int) ([]domain.WaUser, int64, error) {
	var total int64
	if err := s.db.Model(&domain.WaUser{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}
	var users []domain.WaUser
	err := s.db.Order("id DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, errors.Wrap(err, "list users")
}

// ResetDailyCounters zeroes messages_today for all users (midnight job).
func (s *Users) ResetDailyCounters() (int64, error) {
	res := s.db.Model(&domain.WaUser{}).Where("messages_today > 0").Update("messages_today", 0)
	return res.RowsAffected, errors.Wrap(res.Error, "reset daily counters")
}
