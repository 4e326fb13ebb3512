package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)

	// playback
	wsrouter.Handle(mux, "video_control", c.handleVideoControl)
	wsrouter.Handle(mux, "time_sync", c.handleTimeSync)
	wsrouter.Handle(mux, "change_video", c.handleChangeVideo)

	// queue
	wsrouter.Handle(mux, "add_to_queue", c.handleAddToQueue)
	wsrouter.Handle(mux, "vote_video", c.handleVoteVideo)
	wsrouter.Handle(mux, "play_next", c.handlePlayNext)
	wsrouter.Handle(mux, "change_mode", c.handleChangeMode)

	// membership
	wsrouter.Handle(mux, "kick_user", c.handleKickUser)
	wsrouter.Handle(mux, "request_sync", c.handleRequestSync)

	// chat
	wsrouter.Handle(mux, "send_message", c.handleSendMessage)

	return mux
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[json.RawMessage]) wsrouter.HandlerFunc[json.RawMessage] {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))

			start := time.Now()
			err := next(ctx, conn, payload)
			c.logger.DebugContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
			)

			return err
		}
	}
}

// handleWSError maps engine errors to the channel. Denials go back to the
// sender only; missing rooms and items are dropped because the client is
// expected to recover with request_sync.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	switch {
	case errors.Is(err, room.ErrPermissionDenied), errors.Is(err, room.ErrAccessDenied):
		c.writeOutput(ctx, conn, &Output{
			Type:    "access_denied",
			Payload: map[string]any{"reason": "not allowed"},
		})
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrMemberNotFound),
		errors.Is(err, room.ErrQueueItemNotFound):
		c.logger.DebugContext(ctx, "command dropped", "error", err)
	default:
		c.logger.WarnContext(ctx, "failed to handle message", "error", err)
	}
}
