package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piotrgredowski/memes-ranker/internal/hub"
	"github.com/piotrgredowski/memes-ranker/internal/model"
)

const (
	writeTimeout = 3 * time.Second
	// Clients must show some sign of life within this window; any inbound
	// frame counts.
	readTimeout = 90 * time.Second
)

// Handler upgrades the request and registers the connection in the given
// hub group. Frames queued by the hub flow out through a dedicated writer
// goroutine; inbound frames are treated as liveness signals and echoed.
func Handler(h *hub.Hub, group string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := group + "-" + uuid.NewString()
		out := make(chan []byte, 16)

		if err := h.Connect(group, clientID, out); err != nil {
			log.Warn("rejected connection", zap.String("group", group), zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "unknown group")
			return
		}
		defer h.Disconnect(clientID)

		// Writer goroutine: drains the hub outbox until the hub closes it.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Timeout or broken pipe; hub.Disconnect in defer.
				return
			}

			echo, err := model.NewEnvelope(model.TypeEcho, map[string]interface{}{
				"message": string(data),
			}).Marshal()
			if err != nil {
				continue
			}
			_ = conn.Write(r.Context(), websocket.MessageText, echo)
		}
	}
}
