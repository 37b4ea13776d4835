package engine

import "context"

// WaClient is the outbound messaging primitive. The protocol implementation
// (pairing, QR, websockets) lives outside the engine; connectivity changes are
// fed into the SessionRegistry by whoever owns the client.
type WaClient interface {
	Send(ctx context.Context, sessionID int64, phone string, payload string) error
}

// WaClientFunc adapts a function to the WaClient interface.
type WaClientFunc func(ctx context.Context, sessionID int64, phone string, payload string) error

func (f WaClientFunc) Send(ctx context.Context, sessionID int64, phone string, payload string) error {
	return f(ctx, sessionID, phone, payload)
}
