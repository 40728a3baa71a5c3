package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"mailchain/core/types"
	"mailchain/observability"
)

const (
	wsWriteTimeout     = 10 * time.Second
	wsSubscriberBuffer = 128
)

// handleEventStream streams committed events. The optional "type" query
// parameter keeps only events whose type starts with the given prefix.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.allow(clientSource(r)) {
		observability.ModuleMetrics().RecordThrottle("ws", "rate_limit")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	prefix := strings.TrimSpace(r.URL.Query().Get("type"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	observability.ModuleMetrics().StreamOpened()
	defer observability.ModuleMetrics().StreamClosed()

	// CloseRead keeps control frames flowing and cancels ctx when the peer leaves.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, prefix); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, prefix string) error {
	updates := s.broker.Subscribe(ctx, wsSubscriberBuffer)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if prefix != "" && !strings.HasPrefix(evt.Type, prefix) {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
