package room

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

type RelayMessageParams struct {
	Text     string
	SenderId string
	RoomId   string
}

type RelayMessageResponse struct {
	Sender Member
	Conns  []*websocket.Conn
}

// RelayMessage resolves the sender and the other members' connections for
// a chat broadcast. Messages are not stored; chat is a pure relay.
func (s service) RelayMessage(ctx context.Context, params *RelayMessageParams) (RelayMessageResponse, error) {
	snapshot, err := s.roomRepo.Snapshot(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RelayMessageResponse{}, ErrRoomNotFound
		}
		return RelayMessageResponse{}, err
	}

	sender, ok := snapshot.Member(params.SenderId)
	if !ok {
		return RelayMessageResponse{}, ErrMemberNotFound
	}

	return RelayMessageResponse{
		Sender: memberView(&snapshot, sender),
		Conns:  s.getConns(&snapshot, params.SenderId),
	}, nil
}
