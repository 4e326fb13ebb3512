package room

import (
	"context"
	"errors"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

type DisconnectMemberParams struct {
	MemberId string
	RoomId   string
}

type DisconnectMemberResponse struct {
	Conns         []*websocket.Conn
	Members       []Member
	HostId        string
	IsRoomDeleted bool
}

// DisconnectMember removes a participant, strips their votes, and hands
// the host role to the first remaining member in join order. It is
// idempotent: a second disconnect for the same participant, or one racing
// room teardown, is a no-op rather than an error.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	if _, err := s.connRepo.RemoveByMemberId(params.MemberId); err != nil {
		s.logger.DebugContext(ctx, "conn already removed", "member_id", params.MemberId)
	}

	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		removeMember(r, params.MemberId)
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return DisconnectMemberResponse{}, nil
		}
		return DisconnectMemberResponse{}, err
	}

	if len(snapshot.Members) == 0 {
		deleted, err := s.roomRepo.DeleteIfEmpty(ctx, params.RoomId)
		if err != nil {
			return DisconnectMemberResponse{}, err
		}
		if deleted {
			s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)

			return DisconnectMemberResponse{IsRoomDeleted: true}, nil
		}

		// a join slipped in between the removal and the teardown check,
		// so the room lives on with the new membership
		snapshot, err = s.roomRepo.Snapshot(ctx, params.RoomId)
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				return DisconnectMemberResponse{IsRoomDeleted: true}, nil
			}
			return DisconnectMemberResponse{}, err
		}
	}

	return DisconnectMemberResponse{
		Conns:   s.getConns(&snapshot),
		Members: membersView(&snapshot),
		HostId:  snapshot.HostId,
	}, nil
}

type KickMemberParams struct {
	TargetId string
	SenderId string
	RoomId   string
}

type KickMemberResponse struct {
	TargetConn *websocket.Conn
	Conns      []*websocket.Conn
	Members    []Member
	HostId     string
}

// KickMember is a host-only forced leave. The target's connection is
// returned so the gateway can notify and close it; the target's own
// disconnect then runs as the usual idempotent no-op.
func (s service) KickMember(ctx context.Context, params *KickMemberParams) (KickMemberResponse, error) {
	snapshot, err := s.roomRepo.Mutate(ctx, params.RoomId, func(r *room.Room) error {
		if params.SenderId != r.HostId {
			return ErrPermissionDenied
		}
		if _, ok := r.Member(params.TargetId); !ok {
			return ErrMemberNotFound
		}

		removeMember(r, params.TargetId)
		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return KickMemberResponse{}, ErrRoomNotFound
		}
		return KickMemberResponse{}, err
	}

	targetConn, err := s.connRepo.GetConn(params.TargetId)
	if err != nil {
		s.logger.DebugContext(ctx, "kicked member has no conn", "member_id", params.TargetId)
	}

	return KickMemberResponse{
		TargetConn: targetConn,
		Conns:      s.getConns(&snapshot, params.TargetId),
		Members:    membersView(&snapshot),
		HostId:     snapshot.HostId,
	}, nil
}

// removeMember takes a participant out of the room record: membership,
// votes, and the host slot if it was theirs. Removing an already-absent
// participant changes nothing.
func removeMember(r *room.Room, memberId string) {
	before := len(r.Members)
	r.Members = slices.DeleteFunc(r.Members, func(p room.Participant) bool {
		return p.Id == memberId
	})
	if len(r.Members) == before {
		return
	}

	stripVote(r.Queue, memberId)
	r.Queue = rankQueue(r.Queue)

	if r.HostId == memberId {
		if len(r.Members) > 0 {
			r.HostId = r.Members[0].Id
		} else {
			r.HostId = ""
		}
	}
}
