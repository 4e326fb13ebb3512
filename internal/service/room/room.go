package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
	"github.com/cinesync/server/internal/repository/session"
)

const defaultDisplayName = "Anonymous"

type CreateJoinSessionParams struct {
	DisplayName   string
	RoomId        string
	Secret        string
	VideoUrl      string
	VideoTitle    string
	ControlPolicy string
}

type CreateJoinSessionResponse struct {
	ConnectToken string
	RoomId       string
}

// CreateJoinSession validates a join request ahead of the websocket
// connect and stores it behind a single-use token. An empty room id means
// the caller is creating a room; the id is generated here.
func (s service) CreateJoinSession(ctx context.Context, params *CreateJoinSessionParams) (CreateJoinSessionResponse, error) {
	roomId := params.RoomId
	if roomId == "" {
		roomId = s.generator.GenerateRandomString(8)
	}

	connectToken := uuid.NewString()
	if err := s.sessionRepo.SetJoinSession(ctx, &session.SetJoinSessionParams{
		Id:            connectToken,
		DisplayName:   params.DisplayName,
		RoomId:        roomId,
		Secret:        params.Secret,
		VideoUrl:      params.VideoUrl,
		VideoTitle:    params.VideoTitle,
		ControlPolicy: params.ControlPolicy,
	}); err != nil {
		return CreateJoinSessionResponse{}, fmt.Errorf("failed to set join session: %w", err)
	}

	return CreateJoinSessionResponse{
		ConnectToken: connectToken,
		RoomId:       roomId,
	}, nil
}

type JoinRoomParams struct {
	ConnectToken string
	RoomId       string
}

type JoinRoomResponse struct {
	JoinedMember Member
	RoomState    RoomState
	// Conns are the connections of the members already in the room, for
	// the member_joined broadcast.
	Conns []*websocket.Conn
}

// JoinRoom redeems a connect token and puts the participant into the
// room, creating it on first join for an unknown id. The joiner of a
// fresh room, or of a room whose host slot is empty, becomes host.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	joinSession, err := s.sessionRepo.PopJoinSession(ctx, params.ConnectToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return JoinRoomResponse{}, ErrInvalidConnectToken
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to pop join session: %w", err)
	}

	if joinSession.RoomId != params.RoomId {
		return JoinRoomResponse{}, ErrInvalidConnectToken
	}

	displayName := joinSession.DisplayName
	if displayName == "" {
		displayName = defaultDisplayName
	}

	now := time.Now()
	member := room.Participant{
		Id:          uuid.NewString(),
		DisplayName: displayName,
		JoinedAt:    now,
	}

	create := func() room.Room {
		controlPolicy := room.ControlPolicy(joinSession.ControlPolicy)
		if !controlPolicy.Valid() {
			controlPolicy = s.cfg.DefaultControlPolicy
		}

		r := room.Room{
			Id:             params.RoomId,
			Members:        []room.Participant{member},
			HostId:         member.Id,
			IsPlaying:      false,
			BasePosition:   0,
			LastActionTime: now,
			Mode:           room.ModeDictatorship,
			ControlPolicy:  controlPolicy,
			AccessSecret:   joinSession.Secret,
			CreatedAt:      now,
		}
		if joinSession.VideoUrl != "" {
			r.CurrentVideo = &room.Video{Url: joinSession.VideoUrl, Title: joinSession.VideoTitle}
		}

		return r
	}

	update := func(r *room.Room) error {
		if r.AccessSecret != "" && r.AccessSecret != joinSession.Secret {
			return ErrAccessDenied
		}
		if s.cfg.MembersLimit > 0 && len(r.Members) >= s.cfg.MembersLimit {
			return ErrMembersLimitReached
		}

		r.Members = append(r.Members, member)
		if r.HostId == "" {
			r.HostId = member.Id
		}

		return nil
	}

	snapshot, created, err := s.roomRepo.Upsert(ctx, params.RoomId, create, update)
	if err != nil {
		return JoinRoomResponse{}, err
	}
	if created {
		s.logger.InfoContext(ctx, "room created", "room_id", params.RoomId)
	}

	return JoinRoomResponse{
		JoinedMember: memberView(&snapshot, member),
		RoomState:    s.roomState(&snapshot, now),
		Conns:        s.getConns(&snapshot, member.Id),
	}, nil
}

type ConnectMemberParams struct {
	Conn     *websocket.Conn
	MemberId string
}

func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if err := s.connRepo.Add(params.Conn, params.MemberId); err != nil {
		s.logger.InfoContext(ctx, "failed to connect member", "error", err)
		return err
	}

	return nil
}

// GetRoomState serves request_sync: a fresh snapshot with the reconciled
// position.
func (s service) GetRoomState(ctx context.Context, roomId string) (RoomState, error) {
	snapshot, err := s.roomRepo.Snapshot(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RoomState{}, ErrRoomNotFound
		}
		return RoomState{}, err
	}

	return s.roomState(&snapshot, time.Now()), nil
}

// ListRooms returns the room directory, busiest rooms first.
func (s service) ListRooms(ctx context.Context) ([]RoomListItem, error) {
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]RoomListItem, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, RoomListItem{
			RoomId:      r.Id,
			MemberCount: len(r.Members),
			Video:       videoView(r.CurrentVideo),
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].MemberCount > list[j].MemberCount
	})

	return list, nil
}
