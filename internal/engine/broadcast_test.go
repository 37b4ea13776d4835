package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/talkbase/wadash/internal/domain"
)

type recordingNotifier struct {
	mu      sync.Mutex
	results []BroadcastResult
}

func (n *recordingNotifier) BroadcastDone(r BroadcastResult) {
	n.mu.Lock()
	n.results = append(n.results, r)
	n.mu.Unlock()
}

func broadcastHarness() (*queueHarness, *BroadcastRunner) {
	h := newQueueHarness(queueSettings(), okClient)
	runner := NewBroadcastRunner(h.users, h.queue)
	h.queue.OnResult(func(res ItemResult) {
		h.results = append(h.results, res)
		runner.onItemDone(res)
	})
	return h, runner
}

func TestBroadcastCohortExcludesBlocked(t *testing.T) {
	t.Parallel()
	h, runner := broadcastHarness()
	h.users.put(domain.WaUser{Phone: "628900"})
	h.users.put(domain.WaUser{Phone: "628901"})
	h.users.put(domain.WaUser{Phone: "628902", IsBlocked: true})

	runID, err := runner.Start("hello")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	status, ok := runner.Status(runID)
	if !ok {
		t.Fatal("run not tracked")
	}
	if status.Total != 2 {
		t.Fatalf("Total = %d, want blocked user excluded", status.Total)
	}
	if broadcast, _ := h.queue.Pending(); broadcast != 2 {
		t.Fatalf("broadcast pending = %d, want 2", broadcast)
	}
}

func TestBroadcastEmptyCohort(t *testing.T) {
	t.Parallel()
	_, runner := broadcastHarness()
	if _, err := runner.Start("hello"); err == nil {
		t.Fatal("Start with empty cohort succeeded, want error")
	}
}

func TestBroadcastRunToCompletion(t *testing.T) {
	t.Parallel()
	h, runner := broadcastHarness()
	notifier := &recordingNotifier{}
	runner.SetNotifier(notifier)

	h.users.put(domain.WaUser{Phone: "628910"})
	h.users.put(domain.WaUser{Phone: "628911"})
	h.users.put(domain.WaUser{Phone: "628912"})

	runID, err := runner.Start("promo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for h.step() {
	}

	res, err := runner.Wait(context.Background(), runID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Total != 3 || res.Success != 3 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 3/3/0", res)
	}

	status, _ := runner.Status(runID)
	if status.Running {
		t.Fatal("run still marked running after completion")
	}
	if len(notifier.results) != 1 || notifier.results[0].Success != 3 {
		t.Fatalf("notifier results = %+v, want one completion with 3 successes", notifier.results)
	}
}

func TestBroadcastCountsFailures(t *testing.T) {
	t.Parallel()
	h := newQueueHarness(queueSettings(), okClient)
	runner := NewBroadcastRunner(h.users, h.queue)
	h.queue.OnResult(runner.onItemDone)

	h.users.put(domain.WaUser{Phone: "628920"})
	h.users.put(domain.WaUser{Phone: "628921", IsBlocked: false})

	runID, err := runner.Start("promo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// one of the users gets blocked between snapshot and dispatch
	h.users.put(domain.WaUser{ID: h.users.get("628921").ID, Phone: "628921", IsBlocked: true})

	for h.step() {
	}

	status, _ := runner.Status(runID)
	if status.Sent != 1 || status.Failed != 1 {
		t.Fatalf("status = %+v, want 1 sent and 1 failed", status)
	}
	if status.Running {
		t.Fatal("run not finished after all items resolved")
	}
}

func TestBroadcastStopCancelsRemaining(t *testing.T) {
	t.Parallel()
	h, runner := broadcastHarness()
	h.users.put(domain.WaUser{Phone: "628930"})
	h.users.put(domain.WaUser{Phone: "628931"})
	h.users.put(domain.WaUser{Phone: "628932"})

	runID, err := runner.Start("promo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// one item goes out, then the operator stops the run
	h.step()
	removed, err := runner.Stop(runID)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2 remaining items", removed)
	}

	status, _ := runner.Status(runID)
	if !status.Cancelled {
		t.Fatal("run not marked cancelled")
	}
	if status.Sent != 1 || status.Failed != 2 {
		t.Fatalf("status = %+v, want 1 sent and 2 cancelled-as-failed", status)
	}
}

func TestBroadcastFinishedRunsEvicted(t *testing.T) {
	t.Parallel()
	h, runner := broadcastHarness()
	h.users.put(domain.WaUser{Phone: "628940"})

	for i := 0; i < maxFinishedRuns+8; i++ {
		runID, err := runner.Start("ping")
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		for h.step() {
		}
		if status, ok := runner.Status(runID); !ok || status.Running {
			t.Fatalf("run %d not finished: %+v", i, status)
		}
	}

	runner.mu.RLock()
	tracked := len(runner.runs)
	runner.mu.RUnlock()
	// the newest run finishes after the last prune, hence the one extra
	if tracked > maxFinishedRuns+1 {
		t.Fatalf("tracked runs = %d, want at most %d retained", tracked, maxFinishedRuns+1)
	}
}

func TestBroadcastStopUnknownRun(t *testing.T) {
	t.Parallel()
	_, runner := broadcastHarness()
	if _, err := runner.Stop(12345); err == nil {
		t.Fatal("Stop on unknown run succeeded, want error")
	}
}
