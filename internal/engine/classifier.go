package engine

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

// Outcome of a dispatch attempt as seen by the classifier.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

const classifierShards = 16

// UserClassifier maintains classification (normal/test/spam) and block state
// per user. Error counts only grow; there is no automatic decay, an explicit
// admin unblock is the only reset.
type UserClassifier struct {
	settings SettingsSource
	users    UserStore
	onBlock  func(u *domain.WaUser)
	now      func() time.Time
	locks    [classifierShards]sync.Mutex
}

func NewUserClassifier(settings SettingsSource, users UserStore) *UserClassifier {
	return &UserClassifier{
		settings: settings,
		users:    users,
		now:      time.Now,
	}
}

// OnAutoBlock registers a hook fired when a user is auto-blocked as spam
// (alerting, event publication). The hook runs inside the per-user critical
// section and must not call back into the classifier.
func (c *UserClassifier) OnAutoBlock(fn func(u *domain.WaUser)) {
	c.onBlock = fn
}

func (c *UserClassifier) lock(phone string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return &c.locks[h.Sum32()%classifierShards]
}

// RecordOutcome updates user counters after a dispatch attempt. On error the
// error count is incremented and, once it reaches the effective spam
// threshold with auto-block enabled, the user flips to spam/blocked on that
// same call.
func (c *UserClassifier) RecordOutcome(phone string, outcome Outcome, detail string) {
	mu := c.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	u, err := c.users.GetOrCreate(phone)
	if err != nil {
		zap.L().Error("classifier user lookup failed", zap.String("phone", phone), zap.Error(err))
		return
	}

	now := c.now()
	u.LastActivity = now

	switch outcome {
	case OutcomeSuccess:
		u.TotalSent++
		u.MessagesToday++
	case OutcomeError:
		u.ErrorCount++
		u.LastError = detail
		st := c.settings.SecuritySettings()
		if st.AutoBlockEnabled && u.ErrorCount >= st.EffectiveSpamThreshold() && !u.IsBlocked {
			u.Classification = domain.ClassSpam
			u.IsBlocked = true
			u.BlockReason = "auto_block"
			zap.L().Warn("user auto-blocked as spam",
				zap.String("phone", phone),
				zap.Int("error_count", u.ErrorCount),
				zap.Int("threshold", st.EffectiveSpamThreshold()))
			if c.onBlock != nil {
				c.onBlock(u)
			}
		}
	}

	if err := c.users.Save(u); err != nil {
		zap.L().Error("classifier user save failed", zap.String("phone", phone), zap.Error(err))
	}
}

// Classify sets an explicit classification (admin action). Blocked state is
// not touched: isBlocked overrides classification for delivery decisions.
func (c *UserClassifier) Classify(phone string, class string) error {
	mu := c.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	u, err := c.users.GetOrCreate(phone)
	if err != nil {
		return err
	}
	u.Classification = class
	return c.users.Save(u)
}

// Block marks a user blocked with a reason (admin action).
func (c *UserClassifier) Block(phone string, reason string) error {
	mu := c.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	u, err := c.users.GetOrCreate(phone)
	if err != nil {
		return err
	}
	u.IsBlocked = true
	u.BlockReason = reason
	return c.users.Save(u)
}

// Unblock lifts the block and clears the error counters. This is the only
// path that resets ErrorCount.
func (c *UserClassifier) Unblock(phone string) error {
	mu := c.lock(phone)
	mu.Lock()
	defer mu.Unlock()

	u, err := c.users.GetOrCreate(phone)
	if err != nil {
		return err
	}
	u.IsBlocked = false
	u.BlockReason = ""
	u.ErrorCount = 0
	u.LastError = ""
	if u.Classification == domain.ClassSpam {
		u.Classification = domain.ClassNormal
	}
	return c.users.Save(u)
}
