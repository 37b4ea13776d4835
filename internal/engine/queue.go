package engine

import (
	"context"
	"sync"
	"time"

	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
)

// ItemKind selects the dispatch lane.
type ItemKind string

const (
	KindBroadcast ItemKind = "broadcast"
	KindScheduled ItemKind = "scheduled"
	KindReminder  ItemKind = "reminder"
)

// Item statuses reported in results.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Terminal failure reasons.
const (
	FailUserBlocked  = "user_blocked"
	FailDailyCap     = "daily_cap"
	FailRetryBudget  = "retry_budget_exhausted"
	FailRunCancelled = "run_cancelled"
	FailCancelled    = "cancelled"
)

// DispatchItem is one unit of outbound work. Items are transient: the queue
// references users and sessions by key only and never owns their state.
type DispatchItem struct {
	ID        int64
	RunID     int64 // broadcast run id, 0 otherwise
	RefID     int64 // scheduled message / reminder row id, 0 otherwise
	Kind      ItemKind
	Phone     string
	Payload   string
	NotBefore time.Time
	Attempts  int
}

// ItemResult is the terminal outcome of an item.
type ItemResult struct {
	Item      DispatchItem
	SessionID int64
	Status    string
	Reason    string
	Latency   time.Duration // provider send latency, zero when never sent
}

// DispatchQueue orders and throttles outbound work. Broadcast items share one
// FIFO lane; scheduled and reminder items share another that wins when both
// are ready. A single drain goroutine serializes the actual sends, which is
// what makes the global broadcast pacing gap possible.
type DispatchQueue struct {
	settings   SettingsSource
	limiter    *RateLimiter
	selector   *SessionSelector
	registry   *SessionRegistry
	classifier *UserClassifier
	users      UserStore
	client     WaClient

	mu        sync.Mutex
	broadcast []*DispatchItem
	scheduled []*DispatchItem
	lastPaced time.Time // time of the last broadcast-lane send
	wake      chan struct{}

	onResult func(ItemResult)
	onLog    func(l *domain.MessageLog)
	now      func() time.Time
}

func NewDispatchQueue(
	settings SettingsSource,
	limiter *RateLimiter,
	selector *SessionSelector,
	registry *SessionRegistry,
	classifier *UserClassifier,
	users UserStore,
	client WaClient,
) *DispatchQueue {
	return &DispatchQueue{
		settings:   settings,
		limiter:    limiter,
		selector:   selector,
		registry:   registry,
		classifier: classifier,
		users:      users,
		client:     client,
		wake:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// OnResult registers the terminal-result observer (broadcast progress,
// scheduler status transitions).
func (q *DispatchQueue) OnResult(fn func(ItemResult)) { q.onResult = fn }

// OnLog registers the dispatch-log sink for every attempt outcome.
func (q *DispatchQueue) OnLog(fn func(l *domain.MessageLog)) { q.onLog = fn }

// Enqueue appends an item to its lane.
func (q *DispatchQueue) Enqueue(item DispatchItem) {
	if item.ID == 0 {
		item.ID = common.UUIDint64()
	}
	q.mu.Lock()
	if item.Kind == KindBroadcast {
		q.broadcast = append(q.broadcast, &item)
	} else {
		q.scheduled = append(q.scheduled, &item)
	}
	q.mu.Unlock()
	q.poke()
}

// CancelRun removes all pending broadcast items belonging to a run. The item
// currently in flight, if any, finishes naturally. Each removed item is
// reported as failed with a cancellation reason.
func (q *DispatchQueue) CancelRun(runID int64) int {
	q.mu.Lock()
	kept := q.broadcast[:0]
	var removed []*DispatchItem
	for _, it := range q.broadcast {
		if it.RunID == runID {
			removed = append(removed, it)
		} else {
			kept = append(kept, it)
		}
	}
	q.broadcast = kept
	q.mu.Unlock()

	for _, it := range removed {
		q.finish(ItemResult{Item: *it, Status: StatusFailed, Reason: FailRunCancelled})
	}
	return len(removed)
}

// CancelRef removes pending scheduled-lane items referencing a cancelled
// scheduled message or reminder row. The item currently in flight, if any,
// finishes naturally; the row's conditional finish transition then keeps it
// cancelled.
func (q *DispatchQueue) CancelRef(refID int64) int {
	q.mu.Lock()
	kept := q.scheduled[:0]
	var removed []*DispatchItem
	for _, it := range q.scheduled {
		if it.RefID == refID {
			removed = append(removed, it)
		} else {
			kept = append(kept, it)
		}
	}
	q.scheduled = kept
	q.mu.Unlock()

	for _, it := range removed {
		q.finish(ItemResult{Item: *it, Status: StatusFailed, Reason: FailCancelled})
	}
	return len(removed)
}

// Pending reports lane depths for observability.
func (q *DispatchQueue) Pending() (broadcast, scheduled int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.broadcast), len(q.scheduled)
}

func (q *DispatchQueue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until the context is cancelled. Per-item processing is
// isolated: one bad item never blocks the lane beyond its own retry budget.
func (q *DispatchQueue) Run(ctx context.Context) {
	zap.L().Info("dispatch queue started")
	for {
		if ctx.Err() != nil {
			zap.L().Info("dispatch queue stopped")
			return
		}
		item, wait := q.next()
		if item != nil {
			q.process(ctx, item)
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("dispatch queue stopped")
			return
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// next pops the first eligible item, scheduled lane first. When nothing is
// eligible it returns the duration until the earliest item could become so.
func (q *DispatchQueue) next() (*DispatchItem, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	wait := time.Second

	for i, it := range q.scheduled {
		if !it.NotBefore.After(now) {
			q.scheduled = append(q.scheduled[:i], q.scheduled[i+1:]...)
			return it, 0
		}
		if d := it.NotBefore.Sub(now); d < wait {
			wait = d
		}
	}

	pacing := q.settings.SecuritySettings().PacingDelay
	pacedAt := q.lastPaced.Add(pacing)
	for i, it := range q.broadcast {
		if it.NotBefore.After(now) {
			if d := it.NotBefore.Sub(now); d < wait {
				wait = d
			}
			continue
		}
		if now.Before(pacedAt) {
			// inter-item pacing gap within a broadcast run
			if d := pacedAt.Sub(now); d < wait {
				wait = d
			}
			break
		}
		q.broadcast = append(q.broadcast[:i], q.broadcast[i+1:]...)
		return it, 0
	}

	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return nil, wait
}

func (q *DispatchQueue) process(ctx context.Context, item *DispatchItem) {
	st := q.settings.SecuritySettings()

	u, err := q.users.GetOrCreate(item.Phone)
	if err != nil {
		zap.L().Error("dispatch user lookup failed", zap.String("phone", item.Phone), zap.Error(err))
		q.requeue(item, st, err.Error())
		return
	}

	if u.IsBlocked {
		q.fail(item, 0, FailUserBlocked)
		return
	}
	if st.MaxMessagesPerDay > 0 && u.MessagesToday >= int64(st.MaxMessagesPerDay) {
		q.fail(item, 0, FailDailyCap)
		return
	}

	if dec := q.limiter.CheckAndRecord(item.Phone, u.MessageLimit); !dec.Allowed {
		q.requeue(item, st, dec.Reason)
		return
	}

	sid, err := q.selector.Select(u)
	if err != nil {
		q.requeue(item, st, ErrNoSessionAvailable.Error())
		return
	}

	// load held for the duration of the provider call
	_ = q.registry.UpdateLoad(sid, +1)
	start := q.now()
	sendErr := q.client.Send(ctx, sid, item.Phone, item.Payload)
	_ = q.registry.UpdateLoad(sid, -1)

	if item.Kind == KindBroadcast {
		q.mu.Lock()
		q.lastPaced = q.now()
		q.mu.Unlock()
	}

	if sendErr != nil {
		q.classifier.RecordOutcome(item.Phone, OutcomeError, sendErr.Error())
		q.log(item, sid, domain.LogStatusFailed, sendErr.Error())
		zap.L().Warn("dispatch send failed",
			zap.Int64("item_id", item.ID),
			zap.String("phone", item.Phone),
			zap.Int64("session_id", sid),
			zap.Int("attempt", item.Attempts+1),
			zap.Error(sendErr))
		q.requeue(item, st, sendErr.Error())
		return
	}

	latency := q.now().Sub(start)
	q.classifier.RecordOutcome(item.Phone, OutcomeSuccess, "")
	q.log(item, sid, domain.LogStatusSent, "")
	zap.L().Debug("dispatch send ok",
		zap.Int64("item_id", item.ID),
		zap.String("phone", item.Phone),
		zap.Int64("session_id", sid),
		zap.Duration("latency", latency))
	q.finish(ItemResult{Item: *item, SessionID: sid, Status: StatusSent, Latency: latency})
}

// requeue pushes the item back with a backoff unless its retry budget is
// exhausted, in which case it turns terminal.
func (q *DispatchQueue) requeue(item *DispatchItem, st SecuritySettings, reason string) {
	item.Attempts++
	if item.Attempts > st.RetryMax {
		q.fail(item, 0, FailRetryBudget+": "+reason)
		return
	}
	item.NotBefore = q.now().Add(st.RetryBackoff)
	q.mu.Lock()
	if item.Kind == KindBroadcast {
		q.broadcast = append(q.broadcast, item)
	} else {
		q.scheduled = append(q.scheduled, item)
	}
	q.mu.Unlock()
	q.poke()
}

func (q *DispatchQueue) fail(item *DispatchItem, sid int64, reason string) {
	q.log(item, sid, domain.LogStatusFailed, reason)
	q.finish(ItemResult{Item: *item, SessionID: sid, Status: StatusFailed, Reason: reason})
}

func (q *DispatchQueue) finish(res ItemResult) {
	if q.onResult != nil {
		q.onResult(res)
	}
}

func (q *DispatchQueue) log(item *DispatchItem, sid int64, status, errMsg string) {
	if q.onLog == nil {
		return
	}
	q.onLog(&domain.MessageLog{
		ID:           common.UUIDint64(),
		Direction:    domain.DirectionOutbound,
		Phone:        item.Phone,
		SessionId:    sid,
		Content:      item.Payload,
		MessageType:  string(item.Kind),
		Status:       status,
		ErrorMessage: errMsg,
		CreatedAt:    q.now(),
	})
}
