package room

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connInmemory "github.com/cinesync/server/internal/repository/connection/inmemory"
	"github.com/cinesync/server/internal/repository/room"
	roomInmemory "github.com/cinesync/server/internal/repository/room/inmemory"
	sessionRedis "github.com/cinesync/server/internal/repository/session/redis"
)

func newTestService(t *testing.T, cfg Config) *service {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	sessionRepo := sessionRedis.NewRepo(rc, 10*time.Minute)
	roomRepo := roomInmemory.NewRepo()
	connRepo := connInmemory.NewRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(roomRepo, connRepo, sessionRepo, logger, &cfg)
}

func joinAs(t *testing.T, service *service, roomId, displayName, secret string) JoinRoomResponse {
	t.Helper()
	ctx := context.Background()

	sessionResp, err := service.CreateJoinSession(ctx, &CreateJoinSessionParams{
		DisplayName: displayName,
		RoomId:      roomId,
		Secret:      secret,
	})
	require.NoError(t, err)

	joinResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	require.NoError(t, err)

	err = service.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		MemberId: joinResp.JoinedMember.Id,
	})
	require.NoError(t, err)

	return joinResp
}

func TestJoinFlow(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	sessionResp, err := service.CreateJoinSession(ctx, &CreateJoinSessionParams{
		DisplayName: "alice",
		VideoUrl:    "https://example.com/v1",
		VideoTitle:  "first",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sessionResp.ConnectToken, "connect token is empty")
	assert.NotEmpty(t, sessionResp.RoomId, "room id is empty")

	joinResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joinResp.JoinedMember.Id)
	assert.Equal(t, "alice", joinResp.JoinedMember.DisplayName)
	assert.True(t, joinResp.JoinedMember.IsOwner, "first joiner must be host")
	assert.Equal(t, joinResp.JoinedMember.Id, joinResp.RoomState.HostId)
	assert.Equal(t, 1, len(joinResp.RoomState.Members))
	assert.Equal(t, 0, len(joinResp.Conns), "nobody to notify on first join")
	require.NotNil(t, joinResp.RoomState.Player.Video)
	assert.Equal(t, "https://example.com/v1", joinResp.RoomState.Player.Video.Url)
	assert.False(t, joinResp.RoomState.Player.IsPlaying, "room starts paused")

	err = service.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		MemberId: joinResp.JoinedMember.Id,
	})
	require.NoError(t, err)

	joinResp2 := joinAs(t, service, sessionResp.RoomId, "bob", "")
	assert.False(t, joinResp2.JoinedMember.IsOwner)
	assert.Equal(t, joinResp.JoinedMember.Id, joinResp2.RoomState.HostId, "host must not change on later joins")
	assert.Equal(t, 2, len(joinResp2.RoomState.Members))
	assert.Equal(t, 1, len(joinResp2.Conns), "host must be notified")
}

func TestJoinDefaultDisplayName(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})

	joinResp := joinAs(t, service, "", "", "")
	assert.Equal(t, "Anonymous", joinResp.JoinedMember.DisplayName)
}

func TestJoinInvalidConnectToken(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	_, err := service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: "bogus",
		RoomId:       "whatever",
	})
	assert.ErrorIs(t, err, ErrInvalidConnectToken)

	// a redeemed token must not work twice
	sessionResp, err := service.CreateJoinSession(ctx, &CreateJoinSessionParams{DisplayName: "alice"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	assert.ErrorIs(t, err, ErrInvalidConnectToken)
}

func TestJoinWrongSecret(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "hunter2")
	roomId := host.RoomState.RoomId

	sessionResp, err := service.CreateJoinSession(ctx, &CreateJoinSessionParams{
		DisplayName: "mallory",
		RoomId:      roomId,
		Secret:      "wrong",
	})
	require.NoError(t, err)

	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       roomId,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// the rejected join must leave the room untouched
	state, err := service.GetRoomState(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, 1, len(state.Members))
}

func TestJoinMembersLimit(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 2, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId
	joinAs(t, service, roomId, "bob", "")

	sessionResp, err := service.CreateJoinSession(ctx, &CreateJoinSessionParams{
		DisplayName: "carol",
		RoomId:      roomId,
	})
	require.NoError(t, err)

	_, err = service.JoinRoom(ctx, &JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       roomId,
	})
	assert.ErrorIs(t, err, ErrMembersLimitReached)
}

func TestHostSuccession(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId
	second := joinAs(t, service, roomId, "bob", "")
	third := joinAs(t, service, roomId, "carol", "")

	disconnectResp, err := service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.False(t, disconnectResp.IsRoomDeleted)
	assert.Equal(t, second.JoinedMember.Id, disconnectResp.HostId, "host must pass to the earliest remaining joiner")
	assert.Equal(t, 2, len(disconnectResp.Members))

	disconnectResp, err = service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: second.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.Equal(t, third.JoinedMember.Id, disconnectResp.HostId)

	// non-host leaving must not move the host slot
	fourth := joinAs(t, service, roomId, "dave", "")
	disconnectResp, err = service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: fourth.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.Equal(t, third.JoinedMember.Id, disconnectResp.HostId)
}

func TestDisconnectIdempotent(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId
	joinAs(t, service, roomId, "bob", "")

	_, err := service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)

	// second disconnect of the same member is a no-op
	resp, err := service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsRoomDeleted)

	state, err := service.GetRoomState(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, 1, len(state.Members))
}

// joinBeforeTeardownRepo lands a join right before the empty-room
// teardown check runs, reproducing a join racing the last disconnect.
type joinBeforeTeardownRepo struct {
	iRoomRepo
	join func()
}

func (r *joinBeforeTeardownRepo) DeleteIfEmpty(ctx context.Context, roomId string) (bool, error) {
	r.join()
	return r.iRoomRepo.DeleteIfEmpty(ctx, roomId)
}

func TestDisconnectRacingJoinKeepsRoom(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	inner := roomInmemory.NewRepo()
	wrapped := &joinBeforeTeardownRepo{iRoomRepo: inner}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(wrapped, connInmemory.NewRepo(), sessionRedis.NewRepo(rc, 10*time.Minute), logger, &Config{
		MembersLimit: 9,
		QueueLimit:   25,
	})

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId
	ctx := context.Background()

	wrapped.join = func() {
		_, _, err := inner.Upsert(ctx, roomId, func() room.Room {
			return room.Room{Id: roomId, Members: []room.Participant{{Id: "late"}}, HostId: "late"}
		}, func(r *room.Room) error {
			r.Members = append(r.Members, room.Participant{Id: "late", DisplayName: "dave"})
			if r.HostId == "" {
				r.HostId = "late"
			}
			return nil
		})
		require.NoError(t, err)
	}

	resp, err := service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsRoomDeleted, "room with a fresh joiner must survive")
	require.Equal(t, 1, len(resp.Members))
	assert.Equal(t, "late", resp.Members[0].Id)
	assert.Equal(t, "late", resp.HostId)

	state, err := service.GetRoomState(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, 1, len(state.Members))
}

func TestLastMemberLeavesRoomDeleted(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId

	resp, err := service.DisconnectMember(ctx, &DisconnectMemberParams{
		MemberId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.True(t, resp.IsRoomDeleted)

	_, err = service.GetRoomState(ctx, roomId)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestKickMember(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	host := joinAs(t, service, "", "alice", "")
	roomId := host.RoomState.RoomId
	target := joinAs(t, service, roomId, "bob", "")

	_, err := service.KickMember(ctx, &KickMemberParams{
		TargetId: host.JoinedMember.Id,
		SenderId: target.JoinedMember.Id,
		RoomId:   roomId,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = service.KickMember(ctx, &KickMemberParams{
		TargetId: "nobody",
		SenderId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	kickResp, err := service.KickMember(ctx, &KickMemberParams{
		TargetId: target.JoinedMember.Id,
		SenderId: host.JoinedMember.Id,
		RoomId:   roomId,
	})
	require.NoError(t, err)
	assert.NotNil(t, kickResp.TargetConn, "target conn is needed to notify and close")
	assert.Equal(t, 1, len(kickResp.Members))
	assert.Equal(t, host.JoinedMember.Id, kickResp.HostId)
}

func TestListRooms(t *testing.T) {
	service := newTestService(t, Config{MembersLimit: 9, QueueLimit: 25})
	ctx := context.Background()

	small := joinAs(t, service, "", "alice", "")
	big := joinAs(t, service, "", "bob", "")
	joinAs(t, service, big.RoomState.RoomId, "carol", "")

	list, err := service.ListRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, len(list))
	assert.Equal(t, big.RoomState.RoomId, list[0].RoomId, "busiest room first")
	assert.Equal(t, 2, list[0].MemberCount)
	assert.Equal(t, small.RoomState.RoomId, list[1].RoomId)
}
