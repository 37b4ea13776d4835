package engine

import (
	"context"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
)

const promoteBatch = 200

// SchedulerLoop periodically promotes due scheduled messages and reminders
// into the scheduled dispatch lane. Rows move to a transitional queued status
// on promotion, which makes a repeated tick over the same rows a no-op.
// Recurrence is chained: a repeating message creates a fresh pending row after
// a successful send, the fired row itself stays terminal.
type SchedulerLoop struct {
	store    ScheduleStore
	users    UserStore
	queue    *DispatchQueue
	settings SettingsSource
	now      func() time.Time
}

func NewSchedulerLoop(store ScheduleStore, users UserStore, queue *DispatchQueue, settings SettingsSource) *SchedulerLoop {
	return &SchedulerLoop{
		store:    store,
		users:    users,
		queue:    queue,
		settings: settings,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (l *SchedulerLoop) Run(ctx context.Context) {
	interval := l.settings.SecuritySettings().SchedulerInterval
	if interval < time.Second {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	zap.L().Info("scheduler loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler loop stopped")
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick promotes everything currently due. Safe to call concurrently with the
// loop (admin "run now"): the queued transition is conditional.
func (l *SchedulerLoop) Tick() {
	now := l.now()

	msgs, err := l.store.DueMessages(now, promoteBatch)
	if err != nil {
		zap.L().Error("due scheduled messages query failed", zap.Error(err))
	} else {
		for i := range msgs {
			l.promoteMessage(&msgs[i])
		}
	}

	rems, err := l.store.DueReminders(now, promoteBatch)
	if err != nil {
		zap.L().Error("due reminders query failed", zap.Error(err))
	} else {
		for i := range rems {
			l.promoteReminder(&rems[i])
		}
	}
}

func (l *SchedulerLoop) promoteMessage(m *domain.ScheduledMessage) {
	if l.userBlocked(m.Phone) {
		// left pending so it fires once the user is unblocked
		return
	}
	ok, err := l.store.MarkMessageQueued(m.ID)
	if err != nil {
		zap.L().Error("scheduled message queue transition failed", zap.Int64("id", m.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	l.queue.Enqueue(DispatchItem{
		RefID:   m.ID,
		Kind:    KindScheduled,
		Phone:   m.Phone,
		Payload: m.Content,
	})
	zap.L().Debug("scheduled message promoted", zap.Int64("id", m.ID), zap.String("phone", m.Phone))
}

func (l *SchedulerLoop) promoteReminder(r *domain.Reminder) {
	if l.userBlocked(r.Phone) {
		return
	}
	ok, err := l.store.MarkReminderQueued(r.ID)
	if err != nil {
		zap.L().Error("reminder queue transition failed", zap.Int64("id", r.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	l.queue.Enqueue(DispatchItem{
		RefID:   r.ID,
		Kind:    KindReminder,
		Phone:   r.Phone,
		Payload: r.Content,
	})
	zap.L().Debug("reminder promoted", zap.Int64("id", r.ID), zap.String("phone", r.Phone))
}

func (l *SchedulerLoop) userBlocked(phone string) bool {
	u, err := l.users.GetOrCreate(phone)
	if err != nil {
		zap.L().Error("scheduler user lookup failed", zap.String("phone", phone), zap.Error(err))
		return false
	}
	return u.IsBlocked
}

// onItemDone consumes terminal results for scheduled/reminder items and
// drives the row state machine. Registered with the queue by the engine.
func (l *SchedulerLoop) onItemDone(res ItemResult) {
	if res.Item.RefID == 0 {
		return
	}
	switch res.Item.Kind {
	case KindScheduled:
		l.finishMessage(res)
	case KindReminder:
		l.finishReminder(res)
	}
}

func (l *SchedulerLoop) finishMessage(res ItemResult) {
	id := res.Item.RefID
	if res.Status != StatusSent {
		if _, err := l.store.FinishMessage(id, domain.ScheduleFailed, res.Reason, time.Time{}); err != nil {
			zap.L().Error("scheduled message finish failed", zap.Int64("id", id), zap.Error(err))
		}
		return
	}
	now := l.now()
	done, err := l.store.FinishMessage(id, domain.ScheduleSent, "", now)
	if err != nil {
		zap.L().Error("scheduled message finish failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	if !done {
		// cancelled while the item was in flight, the row stays terminal
		return
	}
	l.chainRecurrence(id)
}

// chainRecurrence creates the next pending occurrence of a repeating message.
func (l *SchedulerLoop) chainRecurrence(id int64) {
	m, err := l.store.GetMessage(id)
	if err != nil {
		zap.L().Error("recurrence source load failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	if m == nil || m.RepeatType == domain.RepeatNone {
		return
	}
	next := m.NextOccurrence()
	now := l.now()
	// catch up past occurrences so a long outage does not burst-fire
	for !next.After(now) {
		prev := *m
		prev.ScheduledAt = next
		next = prev.NextOccurrence()
	}
	nm := &domain.ScheduledMessage{
		ID:          common.UUIDint64(),
		Phone:       m.Phone,
		Content:     m.Content,
		MessageType: m.MessageType,
		ScheduledAt: next,
		Status:      domain.SchedulePending,
		RepeatType:  m.RepeatType,
	}
	if err := l.store.CreateMessage(nm); err != nil {
		zap.L().Error("recurrence chain create failed", zap.Int64("source_id", id), zap.Error(err))
		return
	}
	zap.L().Info("recurring message chained",
		zap.Int64("source_id", id),
		zap.Int64("next_id", nm.ID),
		zap.Time("next_at", next))
}

func (l *SchedulerLoop) finishReminder(res ItemResult) {
	id := res.Item.RefID
	status := domain.ReminderTriggered
	if res.Status != StatusSent {
		status = domain.ScheduleFailed
	}
	if _, err := l.store.FinishReminder(id, status, res.Reason); err != nil {
		zap.L().Error("reminder finish failed", zap.Int64("id", id), zap.Error(err))
	}
}
