package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"gorm.io/gorm"
)

// Logs is the append-only dispatch log.
type Logs struct {
	db *gorm.DB
}

func NewLogs(db *gorm.DB) *Logs {
	return &Logs{db: db}
}

func (s *Logs) Append(l *domain.MessageLog) error {
	return errors.Wrap(s.db.Create(l).Error, "append message log")
}

// LogFilter narrows admin log queries.
type LogFilter struct {
	Phone       string
	Status      string
	MessageType string
	Since       time.Time
	Until       time.Time
}

func (s *Logs) query(f LogFilter) *gorm.DB {
	q := s.db.Model(&domain.MessageLog{})
	if f.Phone != "" {
		q = q.Where("phone = ?", f.Phone)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MessageType != "" {
		q = q.Where("message_type = ?", f.MessageType)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at <= ?", f.Until)
	}
	return q
}

func (s *Logs) List(f LogFilter, offset, limit int) ([]domain.MessageLog, int64, error) {
	var total int64
	if err := s.query(f).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count message logs")
	}
	var logs []domain.MessageLog
	err := s.query(f).Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, errors.Wrap(err, "list message logs")
}

// Export returns all logs matching the filter for CSV/XLSX export.
func (s *Logs) Export(f LogFilter, max int) ([]domain.MessageLog, error) {
	var logs []domain.MessageLog
	err := s.query(f).Order("created_at DESC").Limit(max).Find(&logs).Error
	return logs, errors.Wrap(err, "export message logs")
}

// TrimBefore deletes log rows older than the cutoff (retention job).
func (s *Logs) TrimBefore(cutoff time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", cutoff).Delete(&domain.MessageLog{})
	return res.RowsAffected, errors.Wrap(res.Error, "trim message logs")
}
