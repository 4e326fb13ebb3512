package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
)

// joinRoom upgrades the connection, redeems the connect token, joins the
// room, pushes the initial snapshot, and then serves the message loop.
// The join runs after the upgrade so a denial reaches the client as an
// access_denied event rather than a bare http error.
func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		c.logger.DebugContext(r.Context(), "empty room id")
		return
	}

	connectToken := r.URL.Query().Get("connect-token")

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	joinRoomResponse, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		ConnectToken: connectToken,
		RoomId:       roomId,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to join room", "error", err)
		c.writeOutput(r.Context(), conn, &Output{
			Type:    "access_denied",
			Payload: map[string]any{"reason": joinDenialReason(err)},
		})
		return
	}

	memberId := joinRoomResponse.JoinedMember.Id

	ctx := context.WithValue(r.Context(), roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, memberIdCtxKey, memberId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("member_id", memberId))

	// cleanup must run however the connection ends
	defer c.disconnect(ctx, memberId, roomId)

	if err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     conn,
		MemberId: memberId,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to connect member", "error", err)
		return
	}

	c.writeOutput(ctx, conn, &Output{
		Type:    "room_snapshot",
		Payload: joinRoomResponse.RoomState,
	})

	c.broadcast(ctx, joinRoomResponse.Conns, &Output{
		Type: "member_joined",
		Payload: map[string]any{
			"joined_member": joinRoomResponse.JoinedMember,
			"members":       joinRoomResponse.RoomState.Members,
		},
	})

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "conn closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, memberId, roomId string) {
	resp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
		MemberId: memberId,
		RoomId:   roomId,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		return
	}
	if resp.IsRoomDeleted {
		return
	}

	c.broadcast(ctx, resp.Conns, &Output{
		Type: "member_left",
		Payload: map[string]any{
			"member_id": memberId,
			"members":   resp.Members,
			"host_id":   resp.HostId,
		},
	})
}

func joinDenialReason(err error) string {
	switch {
	case errors.Is(err, room.ErrAccessDenied):
		return "wrong secret"
	case errors.Is(err, room.ErrMembersLimitReached):
		return "room is full"
	case errors.Is(err, room.ErrInvalidConnectToken):
		return "invalid connect token"
	default:
		return "unable to join"
	}
}
