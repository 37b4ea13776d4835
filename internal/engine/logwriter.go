package engine

import (
	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

// Bus topics published by the engine.
const (
	TopicDispatchLog     = "dispatch.log"
	TopicDispatchResult  = "dispatch.result"
	TopicUserAutoBlocked = "user.autoblocked"
)

const logWriterPoolSize = 8

// LogWriter drains dispatch-log events off the bus into the append-only
// message log. Writes go through a small worker pool so a slow database never
// stalls the dispatch loop.
type LogWriter struct {
	store DispatchLog
	pool  *ants.Pool
	bus   EventBus.Bus
}

func NewLogWriter(store DispatchLog, bus EventBus.Bus) (*LogWriter, error) {
	pool, err := ants.NewPool(logWriterPoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	w := &LogWriter{store: store, pool: pool, bus: bus}
	if err := bus.SubscribeAsync(TopicDispatchLog, w.handle, false); err != nil {
		pool.Release()
		return nil, err
	}
	return w, nil
}

func (w *LogWriter) handle(l *domain.MessageLog) {
	err := w.pool.Submit(func() {
		if err := w.store.Append(l); err != nil {
			zap.L().Error("message log append failed",
				zap.String("phone", l.Phone),
				zap.String("status", l.Status),
				zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("message log submit failed", zap.Error(err))
	}
}

// Close unsubscribes and releases the pool after queued writes finish.
func (w *LogWriter) Close() {
	_ = w.bus.Unsubscribe(TopicDispatchLog, w.handle)
	w.bus.WaitAsync()
	w.pool.Release()
}
