package engine

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// SecuritySettings is the process-wide dispatch policy. Decisions always read
// a snapshot; administrative updates take effect for subsequently evaluated
// items only.
type SecuritySettings struct {
	DefaultMessageLimit int           `json:"default_message_limit" mapstructure:"default_message_limit"`
	SpamThreshold       int           `json:"spam_threshold" mapstructure:"spam_threshold"`
	AutoBlockEnabled    bool          `json:"auto_block_enabled" mapstructure:"auto_block_enabled"`
	SafeModeEnabled     bool          `json:"safe_mode_enabled" mapstructure:"safe_mode_enabled"`
	SafeModeFactor      float64       `json:"safe_mode_factor" mapstructure:"safe_mode_factor"`
	MaxMessagesPerDay   int           `json:"max_messages_per_day" mapstructure:"max_messages_per_day"`
	BlockCooldown       time.Duration `json:"block_cooldown" mapstructure:"block_cooldown"`
	PacingDelay         time.Duration `json:"pacing_delay" mapstructure:"pacing_delay"`
	RetryMax            int           `json:"retry_max" mapstructure:"retry_max"`
	RetryBackoff        time.Duration `json:"retry_backoff" mapstructure:"retry_backoff"`
	SchedulerInterval   time.Duration `json:"scheduler_interval" mapstructure:"scheduler_interval"`
}

func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		DefaultMessageLimit: 10,
		SpamThreshold:       5,
		AutoBlockEnabled:    true,
		SafeModeEnabled:     false,
		SafeModeFactor:      0.5,
		MaxMessagesPerDay:   500,
		BlockCooldown:       60 * time.Second,
		PacingDelay:         5000 * time.Millisecond,
		RetryMax:            3,
		RetryBackoff:        5 * time.Second,
		SchedulerInterval:   30 * time.Second,
	}
}

// Validate rejects inconsistent settings at the administrative boundary so
// invalid configuration never reaches a dispatch decision.
func (s SecuritySettings) Validate() error {
	if s.DefaultMessageLimit <= 0 {
		return errors.New("default_message_limit must be positive")
	}
	if s.SpamThreshold <= 0 {
		return errors.New("spam_threshold must be positive")
	}
	if s.SafeModeFactor <= 0 || s.SafeModeFactor > 1 {
		return errors.New("safe_mode_factor must be in (0,1]")
	}
	if s.MaxMessagesPerDay < 0 {
		return errors.New("max_messages_per_day must not be negative")
	}
	if s.BlockCooldown <= 0 || s.PacingDelay < 0 {
		return errors.New("block_cooldown must be positive and pacing_delay not negative")
	}
	if s.RetryMax < 0 || s.RetryBackoff < 0 {
		return errors.New("retry budget must not be negative")
	}
	if s.SchedulerInterval < time.Second {
		return errors.New("scheduler_interval must be at least 1s")
	}
	return nil
}

// EffectiveSpamThreshold applies the safe-mode posture: when enabled,
// auto-block triggers at a stricter fraction of the configured threshold.
func (s SecuritySettings) EffectiveSpamThreshold() int {
	if !s.SafeModeEnabled {
		return s.SpamThreshold
	}
	t := int(math.Ceil(float64(s.SpamThreshold) * s.SafeModeFactor))
	if t < 1 {
		t = 1
	}
	return t
}

// SettingsSource yields the current policy snapshot for a decision.
type SettingsSource interface {
	SecuritySettings() SecuritySettings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() SecuritySettings

func (f SettingsFunc) SecuritySettings() SecuritySettings { return f() }
