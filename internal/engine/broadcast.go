package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
)

// maxFinishedRuns bounds how many completed run states stay queryable. The
// oldest finished runs are evicted first; running runs are never evicted.
const maxFinishedRuns = 64

// BroadcastResult aggregates the terminal counts of a run.
type BroadcastResult struct {
	RunID   int64 `json:"run_id,string"`
	Total   int   `json:"total"`
	Success int   `json:"success"`
	Failed  int   `json:"failed"`
}

// RunStatus is the observable progress of a broadcast run.
type RunStatus struct {
	RunID     int64     `json:"run_id,string"`
	Total     int       `json:"total"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Running   bool      `json:"running"`
	Cancelled bool      `json:"cancelled"`
	StartedAt time.Time `json:"started_at"`
	DoneAt    time.Time `json:"done_at"`
}

type runState struct {
	status RunStatus
	done   chan struct{}
}

// BroadcastNotifier is told when a run completes (webhook callbacks).
type BroadcastNotifier interface {
	BroadcastDone(result BroadcastResult)
}

// BroadcastRunner drives bulk sends through the dispatch queue. The cohort is
// a snapshot of non-blocked users taken at invocation time; a run interrupted
// by a restart loses its remaining progress by design.
type BroadcastRunner struct {
	users    UserStore
	queue    *DispatchQueue
	notifier BroadcastNotifier

	mu   sync.RWMutex
	runs map[int64]*runState
}

func NewBroadcastRunner(users UserStore, queue *DispatchQueue) *BroadcastRunner {
	return &BroadcastRunner{
		users: users,
		queue: queue,
		runs:  make(map[int64]*runState),
	}
}

func (b *BroadcastRunner) SetNotifier(n BroadcastNotifier) { b.notifier = n }

// Start snapshots the cohort and enqueues one broadcast item per member. It
// returns immediately with the run id; progress is available via Status.
func (b *BroadcastRunner) Start(body string) (int64, error) {
	cohort, err := b.users.ListUnblocked()
	if err != nil {
		return 0, errors.Wrap(err, "broadcast cohort snapshot")
	}
	if len(cohort) == 0 {
		return 0, errors.New("broadcast cohort is empty")
	}

	runID := common.UUIDint64()
	st := &runState{
		status: RunStatus{
			RunID:     runID,
			Total:     len(cohort),
			Running:   true,
			StartedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.runs[runID] = st
	b.pruneLocked()
	b.mu.Unlock()

	zap.L().Info("broadcast run started",
		zap.Int64("run_id", runID),
		zap.Int("cohort", len(cohort)))

	for _, u := range cohort {
		b.queue.Enqueue(DispatchItem{
			RunID:   runID,
			Kind:    KindBroadcast,
			Phone:   u.Phone,
			Payload: body,
		})
	}
	return runID, nil
}

// pruneLocked evicts the oldest finished run states beyond the retention cap.
// Caller holds b.mu.
func (b *BroadcastRunner) pruneLocked() {
	var finished []*runState
	for _, st := range b.runs {
		if !st.status.Running {
			finished = append(finished, st)
		}
	}
	if len(finished) <= maxFinishedRuns {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].status.DoneAt.Before(finished[j].status.DoneAt)
	})
	for _, st := range finished[:len(finished)-maxFinishedRuns] {
		delete(b.runs, st.status.RunID)
	}
}

// Run starts a broadcast and blocks until it completes or ctx is cancelled.
func (b *BroadcastRunner) Run(ctx context.Context, body string) (BroadcastResult, error) {
	runID, err := b.Start(body)
	if err != nil {
		return BroadcastResult{}, err
	}
	return b.Wait(ctx, runID)
}

// Wait blocks until the run finishes and returns its final result.
func (b *BroadcastRunner) Wait(ctx context.Context, runID int64) (BroadcastResult, error) {
	b.mu.RLock()
	st, ok := b.runs[runID]
	b.mu.RUnlock()
	if !ok {
		return BroadcastResult{}, errors.Errorf("unknown broadcast run %d", runID)
	}
	select {
	case <-ctx.Done():
		return BroadcastResult{}, ctx.Err()
	case <-st.done:
	}
	s, _ := b.Status(runID)
	return BroadcastResult{RunID: runID, Total: s.Total, Success: s.Sent, Failed: s.Failed}, nil
}

// Status returns a copy of the run's progress.
func (b *BroadcastRunner) Status(runID int64) (RunStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.runs[runID]
	if !ok {
		return RunStatus{}, false
	}
	return st.status, true
}

// Stop cancels the remaining lane items of a run. The in-flight item, if any,
// finishes naturally and is counted normally.
func (b *BroadcastRunner) Stop(runID int64) (int, error) {
	b.mu.Lock()
	st, ok := b.runs[runID]
	if ok {
		st.status.Cancelled = true
	}
	b.mu.Unlock()
	if !ok {
		return 0, errors.Errorf("unknown broadcast run %d", runID)
	}
	removed := b.queue.CancelRun(runID)
	zap.L().Info("broadcast run stopped", zap.Int64("run_id", runID), zap.Int("removed", removed))
	return removed, nil
}

// onItemDone consumes terminal item results for broadcast items. Registered
// with the queue by the engine.
func (b *BroadcastRunner) onItemDone(res ItemResult) {
	if res.Item.RunID == 0 {
		return
	}
	b.mu.Lock()
	st, ok := b.runs[res.Item.RunID]
	if !ok {
		b.mu.Unlock()
		return
	}
	if res.Status == StatusSent {
		st.status.Sent++
	} else {
		st.status.Failed++
	}
	finished := st.status.Sent+st.status.Failed >= st.status.Total && st.status.Running
	if finished {
		st.status.Running = false
		st.status.DoneAt = time.Now()
		close(st.done)
	}
	status := st.status
	b.mu.Unlock()

	if finished {
		zap.L().Info("broadcast run finished",
			zap.Int64("run_id", status.RunID),
			zap.Int("total", status.Total),
			zap.Int("sent", status.Sent),
			zap.Int("failed", status.Failed),
			zap.Duration("elapsed", status.DoneAt.Sub(status.StartedAt)))
		if b.notifier != nil {
			b.notifier.BroadcastDone(BroadcastResult{
				RunID:   status.RunID,
				Total:   status.Total,
				Success: status.Sent,
				Failed:  status.Failed,
			})
		}
	}
}
