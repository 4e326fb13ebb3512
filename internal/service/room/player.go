package room

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

type Action string

const (
	ActionPlay  Action = "play"
	ActionPause Action = "pause"
	ActionSeek  Action = "seek"
)

type VideoControlParams struct {
	Action   Action
	Time     *float64
	SenderId string
	RoomId   string
}

type VideoControlResponse struct {
	Player Player
	Conns  []*websocket.Conn
}

// VideoControl applies a play/pause/seek command. The sender's reported
// time wins over the reconciled one when present: the issuer just
// observed their own player, which is closer to truth for that instant.
func (s service) VideoControl(ctx context.Context, params *VideoControlParams) (VideoControlResponse, error) {
	now := time.Now()

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if !canControl(r, params.SenderId) {
			return ErrPermissionDenied
		}

		switch params.Action {
		case ActionPlay:
			// reconcile first: a play arriving while already playing must
			// not rewind to the stale base position
			base := position(r, now)
			if params.Time != nil {
				base = *params.Time
			}
			r.BasePosition = base
			r.IsPlaying = true
		case ActionPause:
			base := position(r, now)
			if params.Time != nil {
				base = *params.Time
			}
			r.BasePosition = base
			r.IsPlaying = false
		case ActionSeek:
			if params.Time == nil {
				return ErrInvalidCommand
			}
			r.BasePosition = *params.Time
		default:
			return ErrInvalidCommand
		}

		r.LastActionTime = now
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return VideoControlResponse{}, ErrRoomNotFound
		}
		return VideoControlResponse{}, err
	}

	return VideoControlResponse{
		Player: s.playerView(&snapshot, now),
		Conns:  s.getConns(&snapshot),
	}, nil
}

type TimeSyncParams struct {
	Position  float64
	IsPlaying bool
	SenderId  string
	RoomId    string
}

type TimeSyncResponse struct {
	Player Player
	// Conns excludes the host: the heartbeat corrects everyone else.
	Conns []*websocket.Conn
}

// TimeSync absorbs the host's heartbeat. The host is the time authority,
// so its observed position replaces the stored base state; heartbeats
// from anyone else are rejected.
func (s service) TimeSync(ctx context.Context, params *TimeSyncParams) (TimeSyncResponse, error) {
	now := time.Now()

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if params.SenderId != r.HostId {
			return ErrPermissionDenied
		}

		r.BasePosition = params.Position
		r.IsPlaying = params.IsPlaying
		r.LastActionTime = now
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return TimeSyncResponse{}, ErrRoomNotFound
		}
		return TimeSyncResponse{}, err
	}

	return TimeSyncResponse{
		Player: s.playerView(&snapshot, now),
		Conns:  s.getConns(&snapshot, params.SenderId),
	}, nil
}

type ChangeVideoParams struct {
	Url      string
	Title    string
	SenderId string
	RoomId   string
}

type ChangeVideoResponse struct {
	Player Player
	Queue  []QueueItem
	Conns  []*websocket.Conn
}

// ChangeVideo swaps the current video and resets playback to a paused
// zero position.
func (s service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (ChangeVideoResponse, error) {
	now := time.Now()

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if !canControl(r, params.SenderId) {
			return ErrPermissionDenied
		}

		r.CurrentVideo = &room.Video{Url: params.Url, Title: params.Title}
		r.BasePosition = 0
		r.IsPlaying = false
		r.LastActionTime = now
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ChangeVideoResponse{}, ErrRoomNotFound
		}
		return ChangeVideoResponse{}, err
	}

	return ChangeVideoResponse{
		Player: s.playerView(&snapshot, now),
		Queue:  queueView(snapshot.Queue),
		Conns:  s.getConns(&snapshot),
	}, nil
}
