package engine

import (
	"testing"
	"time"
)

func TestSettingsValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*SecuritySettings)
		valid  bool
	}{
		{name: "defaults", mutate: func(*SecuritySettings) {}, valid: true},
		{name: "zero limit", mutate: func(s *SecuritySettings) { s.DefaultMessageLimit = 0 }, valid: false},
		{name: "zero spam threshold", mutate: func(s *SecuritySettings) { s.SpamThreshold = 0 }, valid: false},
		{name: "factor over one", mutate: func(s *SecuritySettings) { s.SafeModeFactor = 1.5 }, valid: false},
		{name: "factor exactly one", mutate: func(s *SecuritySettings) { s.SafeModeFactor = 1 }, valid: true},
		{name: "negative daily cap", mutate: func(s *SecuritySettings) { s.MaxMessagesPerDay = -1 }, valid: false},
		{name: "daily cap disabled", mutate: func(s *SecuritySettings) { s.MaxMessagesPerDay = 0 }, valid: true},
		{name: "zero cooldown", mutate: func(s *SecuritySettings) { s.BlockCooldown = 0 }, valid: false},
		{name: "negative pacing", mutate: func(s *SecuritySettings) { s.PacingDelay = -time.Second }, valid: false},
		{name: "zero pacing", mutate: func(s *SecuritySettings) { s.PacingDelay = 0 }, valid: true},
		{name: "negative retries", mutate: func(s *SecuritySettings) { s.RetryMax = -1 }, valid: false},
		{name: "sub-second scheduler", mutate: func(s *SecuritySettings) { s.SchedulerInterval = 100 * time.Millisecond }, valid: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSecuritySettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.valid && err != nil {
				t.Fatalf("Validate() = %v, want valid", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}

func TestEffectiveSpamThreshold(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		threshold int
		safeMode  bool
		factor    float64
		want      int
	}{
		{name: "safe mode off", threshold: 5, safeMode: false, factor: 0.5, want: 5},
		{name: "half rounds up", threshold: 5, safeMode: true, factor: 0.5, want: 3},
		{name: "exact fraction", threshold: 10, safeMode: true, factor: 0.5, want: 5},
		{name: "floor of one", threshold: 1, safeMode: true, factor: 0.1, want: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := SecuritySettings{SpamThreshold: tt.threshold, SafeModeEnabled: tt.safeMode, SafeModeFactor: tt.factor}
			if got := s.EffectiveSpamThreshold(); got != tt.want {
				t.Fatalf("EffectiveSpamThreshold() = %d, want %d", got, tt.want)
			}
		})
	}
}
