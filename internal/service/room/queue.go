package room

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

type AddToQueueParams struct {
	Url      string
	Title    string
	SenderId string
	RoomId   string
}

type AddToQueueResponse struct {
	AddedItem QueueItem
	Queue     []QueueItem
	Conns     []*websocket.Conn
}

// AddToQueue appends a pending video. In dictatorship mode only the host
// may enqueue; in suggestion and democracy any member may.
func (s service) AddToQueue(ctx context.Context, params *AddToQueueParams) (AddToQueueResponse, error) {
	var addedItem room.QueueItem

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		member, ok := r.Member(params.SenderId)
		if !ok {
			return ErrMemberNotFound
		}
		if r.Mode == room.ModeDictatorship && params.SenderId != r.HostId {
			return ErrPermissionDenied
		}
		if s.cfg.QueueLimit > 0 && len(r.Queue) >= s.cfg.QueueLimit {
			return ErrQueueLimitReached
		}

		seq := 0
		for _, item := range r.Queue {
			if item.Seq >= seq {
				seq = item.Seq + 1
			}
		}

		addedItem = room.QueueItem{
			Id:      uuid.NewString(),
			Url:     params.Url,
			Title:   params.Title,
			AddedBy: member.DisplayName,
			Seq:     seq,
		}
		r.Queue = append(r.Queue, addedItem)
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return AddToQueueResponse{}, ErrRoomNotFound
		}
		return AddToQueueResponse{}, err
	}

	return AddToQueueResponse{
		AddedItem: QueueItem{
			Id:      addedItem.Id,
			Url:     addedItem.Url,
			Title:   addedItem.Title,
			AddedBy: addedItem.AddedBy,
		},
		Queue: queueView(snapshot.Queue),
		Conns: s.getConns(&snapshot),
	}, nil
}

type VoteVideoParams struct {
	ItemId   string
	SenderId string
	RoomId   string
}

type VoteVideoResponse struct {
	Queue []QueueItem
	Conns []*websocket.Conn
	// Changed is false when the vote was ignored (non-democracy mode).
	Changed bool
}

// VoteVideo toggles the sender's vote on a queue item: voting for the
// item again removes the vote, voting for a different one moves it. The
// queue is re-ranked on every vote so the visible order is live.
func (s service) VoteVideo(ctx context.Context, params *VoteVideoParams) (VoteVideoResponse, error) {
	changed := false

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if _, ok := r.Member(params.SenderId); !ok {
			return ErrMemberNotFound
		}
		if r.Mode != room.ModeDemocracy {
			return nil
		}

		idx := slices.IndexFunc(r.Queue, func(item room.QueueItem) bool {
			return item.Id == params.ItemId
		})
		if idx < 0 {
			return ErrQueueItemNotFound
		}

		hadVote := slices.Contains(r.Queue[idx].Votes, params.SenderId)
		stripVote(r.Queue, params.SenderId)
		if !hadVote {
			r.Queue[idx].Votes = append(r.Queue[idx].Votes, params.SenderId)
		}

		if err := checkSingleVote(r.Queue); err != nil {
			return err
		}

		r.Queue = rankQueue(r.Queue)
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return VoteVideoResponse{}, ErrRoomNotFound
		}
		return VoteVideoResponse{}, err
	}

	return VoteVideoResponse{
		Queue:   queueView(snapshot.Queue),
		Conns:   s.getConns(&snapshot),
		Changed: changed,
	}, nil
}

type PlayNextParams struct {
	ForcedItemId *string
	SenderId     string
	RoomId       string
}

type PlayNextResponse struct {
	Player Player
	Queue  []QueueItem
	Conns  []*websocket.Conn
}

// PlayNext advances the queue (host-only). Outside democracy the host may
// force a specific item past the queue order; in democracy the ranked
// head always wins. An empty queue drains the room; advancing a drained
// room again is a no-op, not an error.
func (s service) PlayNext(ctx context.Context, params *PlayNextParams) (PlayNextResponse, error) {
	now := time.Now()

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if params.SenderId != r.HostId {
			return ErrPermissionDenied
		}

		if len(r.Queue) == 0 {
			r.CurrentVideo = nil
			r.IsPlaying = false
			r.BasePosition = 0
			r.LastActionTime = now
			return nil
		}

		idx := 0
		if params.ForcedItemId != nil && r.Mode != room.ModeDemocracy {
			idx = slices.IndexFunc(r.Queue, func(item room.QueueItem) bool {
				return item.Id == *params.ForcedItemId
			})
			if idx < 0 {
				return ErrQueueItemNotFound
			}
		}

		next := r.Queue[idx]
		r.Queue = slices.Delete(r.Queue, idx, idx+1)

		r.CurrentVideo = &room.Video{Url: next.Url, Title: next.Title}
		r.BasePosition = 0
		r.IsPlaying = true
		r.LastActionTime = now
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return PlayNextResponse{}, ErrRoomNotFound
		}
		return PlayNextResponse{}, err
	}

	return PlayNextResponse{
		Player: s.playerView(&snapshot, now),
		Queue:  queueView(snapshot.Queue),
		Conns:  s.getConns(&snapshot),
	}, nil
}

type ChangeModeParams struct {
	Mode     string
	SenderId string
	RoomId   string
}

type ChangeModeResponse struct {
	Mode  room.Mode
	Conns []*websocket.Conn
}

// ChangeMode switches the governance policy (host-only). Leaving
// democracy clears all votes; the ranked order at that moment is kept.
func (s service) ChangeMode(ctx context.Context, params *ChangeModeParams) (ChangeModeResponse, error) {
	mode := room.Mode(params.Mode)
	if !mode.Valid() {
		return ChangeModeResponse{}, ErrInvalidCommand
	}

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if params.SenderId != r.HostId {
			return ErrPermissionDenied
		}

		r.Mode = mode
		if mode != room.ModeDemocracy {
			for i := range r.Queue {
				r.Queue[i].Votes = nil
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ChangeModeResponse{}, ErrRoomNotFound
		}
		return ChangeModeResponse{}, err
	}

	return ChangeModeResponse{
		Mode:  snapshot.Mode,
		Conns: s.getConns(&snapshot),
	}, nil
}
