package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/talkbase/wadash/internal/engine"
	"github.com/talkbase/wadash/pkg/metrics"
	"go.uber.org/zap"
)

// SubscribeMetrics records every terminal dispatch result in the embedded
// time-series storage.
func (a *Application) SubscribeMetrics(bus EventBus.Bus) {
	err := bus.SubscribeAsync(engine.TopicDispatchResult, func(res engine.ItemResult) {
		metrics.RecordDispatch(res.Status, res.Latency)
	}, false)
	if err != nil {
		zap.L().Error("failed to subscribe metrics recorder", zap.Error(err))
	}
}
