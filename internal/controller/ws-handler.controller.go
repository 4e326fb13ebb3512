package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type VideoControlInput struct {
	Action string   `json:"action" validate:"required,oneof=play pause seek"`
	Time   *float64 `json:"time"`
}

func (c controller) handleVideoControl(ctx context.Context, _ *websocket.Conn, input VideoControlInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	videoControlResp, err := c.roomService.VideoControl(ctx, &room.VideoControlParams{
		Action:   room.Action(input.Action),
		Time:     input.Time,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to apply video control: %w", err)
	}

	c.broadcast(ctx, videoControlResp.Conns, &Output{
		Type:    "sync_state",
		Payload: videoControlResp.Player,
	})

	return nil
}

type TimeSyncInput struct {
	Position  float64 `json:"position"`
	IsPlaying bool    `json:"is_playing"`
}

func (c controller) handleTimeSync(ctx context.Context, _ *websocket.Conn, input TimeSyncInput) error {
	timeSyncResp, err := c.roomService.TimeSync(ctx, &room.TimeSyncParams{
		Position:  input.Position,
		IsPlaying: input.IsPlaying,
		SenderId:  c.getMemberIdFromCtx(ctx),
		RoomId:    c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		// heartbeats from non-hosts are ignored, not answered
		if errors.Is(err, room.ErrPermissionDenied) {
			return nil
		}
		return fmt.Errorf("failed to apply time sync: %w", err)
	}

	c.broadcast(ctx, timeSyncResp.Conns, &Output{
		Type:    "sync_state",
		Payload: timeSyncResp.Player,
	})

	return nil
}

type ChangeModeInput struct {
	Mode string `json:"mode" validate:"required,oneof=dictatorship suggestion democracy"`
}

func (c controller) handleChangeMode(ctx context.Context, _ *websocket.Conn, input ChangeModeInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	changeModeResp, err := c.roomService.ChangeMode(ctx, &room.ChangeModeParams{
		Mode:     input.Mode,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to change mode: %w", err)
	}

	c.broadcast(ctx, changeModeResp.Conns, &Output{
		Type:    "mode_changed",
		Payload: map[string]any{"mode": changeModeResp.Mode},
	})

	return nil
}

type AddToQueueInput struct {
	Url   string `json:"url" validate:"required"`
	Title string `json:"title" validate:"max=256"`
}

func (c controller) handleAddToQueue(ctx context.Context, _ *websocket.Conn, input AddToQueueInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	addToQueueResp, err := c.roomService.AddToQueue(ctx, &room.AddToQueueParams{
		Url:      input.Url,
		Title:    input.Title,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	c.broadcast(ctx, addToQueueResp.Conns, &Output{
		Type: "queue_updated",
		Payload: map[string]any{
			"added_item": addToQueueResp.AddedItem,
			"queue":      addToQueueResp.Queue,
		},
	})

	return nil
}

type VoteVideoInput struct {
	ItemId string `json:"item_id" validate:"required"`
}

func (c controller) handleVoteVideo(ctx context.Context, _ *websocket.Conn, input VoteVideoInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	voteVideoResp, err := c.roomService.VoteVideo(ctx, &room.VoteVideoParams{
		ItemId:   input.ItemId,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to vote: %w", err)
	}
	if !voteVideoResp.Changed {
		return nil
	}

	c.broadcast(ctx, voteVideoResp.Conns, &Output{
		Type:    "queue_updated",
		Payload: map[string]any{"queue": voteVideoResp.Queue},
	})

	return nil
}

type PlayNextInput struct {
	ItemId *string `json:"item_id"`
}

func (c controller) handlePlayNext(ctx context.Context, _ *websocket.Conn, input PlayNextInput) error {
	playNextResp, err := c.roomService.PlayNext(ctx, &room.PlayNextParams{
		ForcedItemId: input.ItemId,
		SenderId:     c.getMemberIdFromCtx(ctx),
		RoomId:       c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to play next: %w", err)
	}

	c.broadcast(ctx, playNextResp.Conns, &Output{
		Type: "video_changed",
		Payload: map[string]any{
			"player": playNextResp.Player,
			"queue":  playNextResp.Queue,
		},
	})

	return nil
}

type ChangeVideoInput struct {
	Url   string `json:"url" validate:"required"`
	Title string `json:"title" validate:"max=256"`
}

func (c controller) handleChangeVideo(ctx context.Context, _ *websocket.Conn, input ChangeVideoInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	changeVideoResp, err := c.roomService.ChangeVideo(ctx, &room.ChangeVideoParams{
		Url:      input.Url,
		Title:    input.Title,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	c.broadcast(ctx, changeVideoResp.Conns, &Output{
		Type: "video_changed",
		Payload: map[string]any{
			"player": changeVideoResp.Player,
			"queue":  changeVideoResp.Queue,
		},
	})

	return nil
}

type KickUserInput struct {
	MemberId string `json:"member_id" validate:"required"`
}

func (c controller) handleKickUser(ctx context.Context, _ *websocket.Conn, input KickUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	kickResp, err := c.roomService.KickMember(ctx, &room.KickMemberParams{
		TargetId: input.MemberId,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}

	if kickResp.TargetConn != nil {
		c.writeOutput(ctx, kickResp.TargetConn, &Output{
			Type:    "kicked",
			Payload: map[string]any{"reason": "kicked by host"},
		})
		kickResp.TargetConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4001, "kicked"))
		kickResp.TargetConn.Close()
	}

	c.broadcast(ctx, kickResp.Conns, &Output{
		Type: "member_left",
		Payload: map[string]any{
			"member_id": input.MemberId,
			"members":   kickResp.Members,
			"host_id":   kickResp.HostId,
		},
	})

	return nil
}

func (c controller) handleRequestSync(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	roomState, err := c.roomService.GetRoomState(ctx, c.getRoomIdFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	c.writeOutput(ctx, conn, &Output{
		Type:    "room_snapshot",
		Payload: roomState,
	})

	return nil
}

type SendMessageInput struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	relayResp, err := c.roomService.RelayMessage(ctx, &room.RelayMessageParams{
		Text:     input.Message,
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to relay message: %w", err)
	}

	c.broadcast(ctx, relayResp.Conns, &Output{
		Type: "receive_message",
		Payload: map[string]any{
			"from":    relayResp.Sender,
			"message": input.Message,
		},
	})

	return nil
}
