package engine

import (
	"context"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/domain"
	"go.uber.org/zap"
)

// Deps are the collaborators the engine is built from. The WhatsApp protocol
// client, the store and the administrative surface all live outside.
type Deps struct {
	Settings  SettingsSource
	Users     UserStore
	Windows   WindowStore
	Sessions  SessionStore
	Schedules ScheduleStore
	Logs      DispatchLog
	Client    WaClient
	Bus       EventBus.Bus
}

// Engine is the session & dispatch core: session registry and selection,
// rate limiting, user classification, queued dispatch with pacing, broadcast
// runs and scheduled promotion.
type Engine struct {
	Limiter    *RateLimiter
	Classifier *UserClassifier
	Registry   *SessionRegistry
	Selector   *SessionSelector
	Queue      *DispatchQueue
	Broadcasts *BroadcastRunner
	Scheduler  *SchedulerLoop

	bus       EventBus.Bus
	logWriter *LogWriter
}

func New(d Deps) (*Engine, error) {
	if d.Settings == nil || d.Users == nil || d.Client == nil {
		return nil, errors.New("engine: settings, users and client are required")
	}
	if d.Bus == nil {
		d.Bus = EventBus.New()
	}

	e := &Engine{bus: d.Bus}
	e.Limiter = NewRateLimiter(d.Settings, d.Windows)
	e.Classifier = NewUserClassifier(d.Settings, d.Users)
	e.Registry = NewSessionRegistry(d.Sessions)
	e.Selector = NewSessionSelector(e.Registry, d.Users)
	e.Queue = NewDispatchQueue(d.Settings, e.Limiter, e.Selector, e.Registry, e.Classifier, d.Users, d.Client)
	e.Broadcasts = NewBroadcastRunner(d.Users, e.Queue)
	e.Scheduler = NewSchedulerLoop(d.Schedules, d.Users, e.Queue, d.Settings)

	e.Queue.OnResult(func(res ItemResult) {
		e.Broadcasts.onItemDone(res)
		e.Scheduler.onItemDone(res)
		e.bus.Publish(TopicDispatchResult, res)
	})
	e.Queue.OnLog(func(l *domain.MessageLog) {
		e.bus.Publish(TopicDispatchLog, l)
	})
	e.Classifier.OnAutoBlock(func(u *domain.WaUser) {
		cp := *u
		e.bus.Publish(TopicUserAutoBlocked, &cp)
	})

	if d.Logs != nil {
		w, err := NewLogWriter(d.Logs, d.Bus)
		if err != nil {
			return nil, errors.Wrap(err, "engine: log writer")
		}
		e.logWriter = w
	}
	return e, nil
}

// Bus exposes the engine event bus for external subscribers (metrics,
// alerting).
func (e *Engine) Bus() EventBus.Bus { return e.bus }

// Start restores persisted sessions and launches the long-lived loops. The
// loops exit when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Registry.Restore(); err != nil {
		zap.L().Error("session registry restore failed", zap.Error(err))
	}
	go e.Queue.Run(ctx)
	go e.Scheduler.Run(ctx)
	zap.L().Info("dispatch engine started")
	return nil
}

// Release flushes and stops background workers.
func (e *Engine) Release() {
	if e.logWriter != nil {
		e.logWriter.Close()
	}
}
