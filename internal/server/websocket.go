package server

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quasar/launchercore/internal/events"
)

const wsWriteTimeout = 5 * time.Second

type wireEvent struct {
	Kind    events.Kind `json:"kind"`
	Payload any         `json:"payload"`
}

// handleEventStream upgrades to a websocket and forwards every bus event
// to the connection until it disconnects. Each connection gets its own
// buffered relay channel so a slow client never blocks Emit for everyone
// else.
func (s *Server) handleEventStream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()
	relay := make(chan wireEvent, 256)

	unsubscribe := s.bus.Subscribe(func(kind events.Kind, payload any) {
		select {
		case relay <- wireEvent{Kind: kind, Payload: payload}:
		default:
			s.log.Warn("dropping event, websocket relay buffer full", zap.String("kind", string(kind)))
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client disconnected")
			return
		case ev := <-relay:
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
