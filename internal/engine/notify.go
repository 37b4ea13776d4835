package engine

import (
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// WebhookNotifier posts broadcast completion callbacks to a configured URL.
type WebhookNotifier struct {
	URL     string
	Timeout time.Duration
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Timeout: 10 * time.Second}
}

func (n *WebhookNotifier) BroadcastDone(result BroadcastResult) {
	if n.URL == "" {
		return
	}
	var code int
	err := gout.POST(n.URL).
		SetTimeout(n.Timeout).
		SetJSON(gout.H{
			"event":   "broadcast.done",
			"run_id":  result.RunID,
			"total":   result.Total,
			"success": result.Success,
			"failed":  result.Failed,
		}).
		Code(&code).
		Do()
	if err != nil || code >= 300 {
		zap.L().Warn("broadcast webhook notify failed",
			zap.String("url", n.URL),
			zap.Int("code", code),
			zap.Error(err))
		return
	}
	zap.L().Info("broadcast webhook notified", zap.Int64("run_id", result.RunID))
}
