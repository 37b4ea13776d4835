package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// GatewayClient sends messages through an HTTP provider gateway. The gateway
// owns the actual WhatsApp connections; this process only addresses them by
// session id.
type GatewayClient struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewGatewayClient(baseURL, token string) *GatewayClient {
	return &GatewayClient{BaseURL: baseURL, Token: token, Timeout: 30 * time.Second}
}

func (g *GatewayClient) Send(ctx context.Context, sessionID int64, phone, payload string) error {
	var code int
	err := gout.POST(g.BaseURL+"/send").
		WithContext(ctx).
		SetTimeout(g.Timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + g.Token}).
		SetJSON(gout.H{
			"session_id": fmt.Sprintf("%d", sessionID),
			"phone":      phone,
			"body":       payload,
		}).
		Code(&code).
		Do()
	if err != nil {
		return &SendError{Reason: "gateway_unreachable", Err: err}
	}
	if code >= 300 {
		return &SendError{Reason: fmt.Sprintf("gateway_status_%d", code)}
	}
	return nil
}

// LoopbackClient accepts every send and only logs it. Used when no gateway is
// configured, typically in development.
type LoopbackClient struct{}

func (LoopbackClient) Send(_ context.Context, sessionID int64, phone, payload string) error {
	zap.L().Debug("loopback send",
		zap.Int64("session_id", sessionID),
		zap.String("phone", phone),
		zap.Int("bytes", len(payload)))
	return nil
}
