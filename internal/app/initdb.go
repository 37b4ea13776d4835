package app

import (
	"errors"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "wadash"

	var operator domain.SysOpr
	err := a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashed, herr := common.HashPassword(defaultPassword)
		if herr != nil {
			zap.L().Error("failed to hash default password", zap.Error(herr))
			return
		}
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashed,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
	}
}

type configSchema struct {
	Name        string
	Default     string
	Description string
}

var securitySchemas = []configSchema{
	{"default_message_limit", "10", "Default messages per minute per user"},
	{"spam_threshold", "5", "Error count at which auto-block triggers"},
	{"auto_block_enabled", "true", "Automatically block users reaching the spam threshold"},
	{"safe_mode_enabled", "false", "Stricter auto-block posture for incident response"},
	{"safe_mode_factor", "0.5", "Fraction of spam_threshold applied in safe mode"},
	{"max_messages_per_day", "500", "Daily outbound cap per user"},
	{"block_cooldown_sec", "60", "Rate-limit block duration in seconds"},
	{"pacing_delay_ms", "5000", "Inter-item delay within a broadcast run"},
	{"retry_max", "3", "Requeue budget per dispatch item"},
	{"retry_backoff_sec", "5", "Requeue backoff in seconds"},
	{"scheduler_interval_sec", "30", "Scheduled message promotion interval"},
}

// checkSettings seeds missing security configuration rows with defaults.
func (a *Application) checkSettings() {
	for sortid, schema := range securitySchemas {
		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", SecurityCategory, schema.Name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				Sort:   sortid,
				Type:   SecurityCategory,
				Name:   schema.Name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", SecurityCategory+"."+schema.Name),
				zap.String("default", schema.Default))
		}
	}
}
