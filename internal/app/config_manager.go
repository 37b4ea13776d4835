package app

import (
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/internal/engine"
	"go.uber.org/zap"
)

// ConfigManager caches sys_config rows and exposes typed accessors. Admin
// writes invalidate the cache so subsequent decisions see the latest values.
type ConfigManager struct {
	app   DBProvider
	mu    sync.RWMutex
	cache map[string]string
}

func NewConfigManager(app DBProvider) *ConfigManager {
	return &ConfigManager{
		app:   app,
		cache: make(map[string]string),
	}
}

func (m *ConfigManager) get(category, name string) string {
	key := category + "." + name
	m.mu.RLock()
	v, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return v
	}

	var row domain.SysConfig
	if err := m.app.DB().Where("type = ? AND name = ?", category, name).First(&row).Error; err != nil {
		return ""
	}
	m.mu.Lock()
	m.cache[key] = row.Value
	m.mu.Unlock()
	return row.Value
}

func (m *ConfigManager) GetString(category, name string) string {
	return m.get(category, name)
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.get(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.get(category, name))
}

func (m *ConfigManager) GetFloat64(category, name string) float64 {
	return cast.ToFloat64(m.get(category, name))
}

// Set writes a configuration value and invalidates the cache entry.
func (m *ConfigManager) Set(category, name, value string) error {
	res := m.app.DB().Model(&domain.SysConfig{}).
		Where("type = ? AND name = ?", category, name).
		Updates(map[string]interface{}{"value": value, "updated_at": time.Now()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update config")
	}
	if res.RowsAffected == 0 {
		if err := m.app.DB().Create(&domain.SysConfig{
			Type:  category,
			Name:  name,
			Value: value,
		}).Error; err != nil {
			return errors.Wrap(err, "create config")
		}
	}
	m.mu.Lock()
	delete(m.cache, category+"."+name)
	m.mu.Unlock()
	return nil
}

// Invalidate drops all cached values.
func (m *ConfigManager) Invalidate() {
	m.mu.Lock()
	m.cache = make(map[string]string)
	m.mu.Unlock()
}

const SecurityCategory = "security"

// securityForm is the flat wire representation of the security settings;
// durations are carried as seconds/milliseconds.
type securityForm struct {
	DefaultMessageLimit  int     `mapstructure:"default_message_limit" json:"default_message_limit"`
	SpamThreshold        int     `mapstructure:"spam_threshold" json:"spam_threshold"`
	AutoBlockEnabled     bool    `mapstructure:"auto_block_enabled" json:"auto_block_enabled"`
	SafeModeEnabled      bool    `mapstructure:"safe_mode_enabled" json:"safe_mode_enabled"`
	SafeModeFactor       float64 `mapstructure:"safe_mode_factor" json:"safe_mode_factor"`
	MaxMessagesPerDay    int     `mapstructure:"max_messages_per_day" json:"max_messages_per_day"`
	BlockCooldownSec     int     `mapstructure:"block_cooldown_sec" json:"block_cooldown_sec"`
	PacingDelayMs        int     `mapstructure:"pacing_delay_ms" json:"pacing_delay_ms"`
	RetryMax             int     `mapstructure:"retry_max" json:"retry_max"`
	RetryBackoffSec      int     `mapstructure:"retry_backoff_sec" json:"retry_backoff_sec"`
	SchedulerIntervalSec int     `mapstructure:"scheduler_interval_sec" json:"scheduler_interval_sec"`
}

func (f securityForm) toSettings() engine.SecuritySettings {
	return engine.SecuritySettings{
		DefaultMessageLimit: f.DefaultMessageLimit,
		SpamThreshold:       f.SpamThreshold,
		AutoBlockEnabled:    f.AutoBlockEnabled,
		SafeModeEnabled:     f.SafeModeEnabled,
		SafeModeFactor:      f.SafeModeFactor,
		MaxMessagesPerDay:   f.MaxMessagesPerDay,
		BlockCooldown:       time.Duration(f.BlockCooldownSec) * time.Second,
		PacingDelay:         time.Duration(f.PacingDelayMs) * time.Millisecond,
		RetryMax:            f.RetryMax,
		RetryBackoff:        time.Duration(f.RetryBackoffSec) * time.Second,
		SchedulerInterval:   time.Duration(f.SchedulerIntervalSec) * time.Second,
	}
}

// SecuritySettings assembles the engine policy snapshot from sys_config.
// Implements engine.SettingsSource.
func (m *ConfigManager) SecuritySettings() engine.SecuritySettings {
	def := engine.DefaultSecuritySettings()
	f := securityForm{
		DefaultMessageLimit:  int(m.GetInt64(SecurityCategory, "default_message_limit")),
		SpamThreshold:        int(m.GetInt64(SecurityCategory, "spam_threshold")),
		AutoBlockEnabled:     m.GetBool(SecurityCategory, "auto_block_enabled"),
		SafeModeEnabled:      m.GetBool(SecurityCategory, "safe_mode_enabled"),
		SafeModeFactor:       m.GetFloat64(SecurityCategory, "safe_mode_factor"),
		MaxMessagesPerDay:    int(m.GetInt64(SecurityCategory, "max_messages_per_day")),
		BlockCooldownSec:     int(m.GetInt64(SecurityCategory, "block_cooldown_sec")),
		PacingDelayMs:        int(m.GetInt64(SecurityCategory, "pacing_delay_ms")),
		RetryMax:             int(m.GetInt64(SecurityCategory, "retry_max")),
		RetryBackoffSec:      int(m.GetInt64(SecurityCategory, "retry_backoff_sec")),
		SchedulerIntervalSec: int(m.GetInt64(SecurityCategory, "scheduler_interval_sec")),
	}
	st := f.toSettings()
	if err := st.Validate(); err != nil {
		// fall back rather than dispatch with broken policy
		zap.L().Warn("stored security settings invalid, using defaults", zap.Error(err))
		return def
	}
	return st
}

// SaveSecuritySettings decodes an admin payload, validates it and persists
// each field as a sys_config row. Invalid settings never reach the engine.
func (m *ConfigManager) SaveSecuritySettings(values map[string]interface{}) error {
	f := m.currentSecurityForm()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "settings decoder")
	}
	if err := decoder.Decode(values); err != nil {
		return errors.Wrap(err, "settings decode")
	}
	if err := f.toSettings().Validate(); err != nil {
		return errors.Wrap(err, "settings validation")
	}

	fields := map[string]string{
		"default_message_limit":  cast.ToString(f.DefaultMessageLimit),
		"spam_threshold":         cast.ToString(f.SpamThreshold),
		"auto_block_enabled":     cast.ToString(f.AutoBlockEnabled),
		"safe_mode_enabled":      cast.ToString(f.SafeModeEnabled),
		"safe_mode_factor":       cast.ToString(f.SafeModeFactor),
		"max_messages_per_day":   cast.ToString(f.MaxMessagesPerDay),
		"block_cooldown_sec":     cast.ToString(f.BlockCooldownSec),
		"pacing_delay_ms":        cast.ToString(f.PacingDelayMs),
		"retry_max":              cast.ToString(f.RetryMax),
		"retry_backoff_sec":      cast.ToString(f.RetryBackoffSec),
		"scheduler_interval_sec": cast.ToString(f.SchedulerIntervalSec),
	}
	for name, value := range fields {
		if err := m.Set(SecurityCategory, name, value); err != nil {
			return err
		}
	}
	zap.L().Info("security settings updated")
	return nil
}

// SecurityForm returns the current settings in wire form for the admin API.
func (m *ConfigManager) SecurityForm() map[string]interface{} {
	f := m.currentSecurityForm()
	var out map[string]interface{}
	_ = mapstructure.Decode(f, &out)
	return out
}

func (m *ConfigManager) currentSecurityForm() securityForm {
	st := m.SecuritySettings()
	return securityForm{
		DefaultMessageLimit:  st.DefaultMessageLimit,
		SpamThreshold:        st.SpamThreshold,
		AutoBlockEnabled:     st.AutoBlockEnabled,
		SafeModeEnabled:      st.SafeModeEnabled,
		SafeModeFactor:       st.SafeModeFactor,
		MaxMessagesPerDay:    st.MaxMessagesPerDay,
		BlockCooldownSec:     int(st.BlockCooldown / time.Second),
		PacingDelayMs:        int(st.PacingDelay / time.Millisecond),
		RetryMax:             st.RetryMax,
		RetryBackoffSec:      int(st.RetryBackoff / time.Second),
		SchedulerIntervalSec: int(st.SchedulerInterval / time.Second),
	}
}
