package app

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
	roomRepo "github.com/cinesync/server/internal/repository/room"
	roomInmemory "github.com/cinesync/server/internal/repository/room/inmemory"
	sessionRedis "github.com/cinesync/server/internal/repository/session/redis"
	"github.com/cinesync/server/internal/service/room"
)

func TestRoomLifecycle(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := room.NewService(
		roomInmemory.NewRepo(),
		connInmemory.NewRepo(),
		sessionRedis.NewRepo(rc, 10*time.Minute),
		logger,
		&room.Config{
			MembersLimit:         9,
			QueueLimit:           25,
			DefaultControlPolicy: roomRepo.ControlPolicyHost,
			HeartbeatInterval:    2 * time.Second,
			DriftTolerance:       2 * time.Second,
		},
	)

	ctx := context.Background()

	// create room
	sessionResp, err := service.CreateJoinSession(ctx, &room.CreateJoinSessionParams{
		DisplayName: "user1",
		VideoUrl:    "some-video-url",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sessionResp.ConnectToken, "connect token is empty")
	assert.NotEmpty(t, sessionResp.RoomId, "room id is empty")

	hostResp, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		ConnectToken: sessionResp.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	require.NoError(t, err)
	assert.True(t, hostResp.JoinedMember.IsOwner, "creator must be host")

	err = service.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     &websocket.Conn{},
		MemberId: hostResp.JoinedMember.Id,
	})
	require.NoError(t, err)
	t.Log("room created")

	// member join room
	sessionResp2, err := service.CreateJoinSession(ctx, &room.CreateJoinSessionParams{
		DisplayName: "user2",
		RoomId:      sessionResp.RoomId,
	})
	require.NoError(t, err)

	joinResp, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		ConnectToken: sessionResp2.ConnectToken,
		RoomId:       sessionResp.RoomId,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joinResp.JoinedMember.Id)
	assert.Equal(t, "user2", joinResp.JoinedMember.DisplayName, "display name is not equal")
	assert.False(t, joinResp.JoinedMember.IsOwner, "joiner must not be host")
	assert.Equal(t, 2, len(joinResp.RoomState.Members), "room must contain 2 members")

	err = service.ConnectMember(ctx, &room.ConnectMemberParams{
		Conn:     &websocket.Conn{},
		MemberId: joinResp.JoinedMember.Id,
	})
	require.NoError(t, err)
	t.Log("member joined")

	// host adds a video to the queue
	addResp, err := service.AddToQueue(ctx, &room.AddToQueueParams{
		Url:      "another-video-url",
		SenderId: hostResp.JoinedMember.Id,
		RoomId:   sessionResp.RoomId,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, len(addResp.Queue), "queue must contain 1 item")
	assert.Equal(t, 2, len(addResp.Conns), "conns must contain 2 conns")
	assert.Equal(t, "another-video-url", addResp.AddedItem.Url, "video url is not equal")
	assert.Equal(t, "user1", addResp.AddedItem.AddedBy, "added by is not equal")
	t.Log("video added")

	// member 2 disconnects
	disconnectResp, err := service.DisconnectMember(ctx, &room.DisconnectMemberParams{
		MemberId: joinResp.JoinedMember.Id,
		RoomId:   sessionResp.RoomId,
	})
	require.NoError(t, err)
	assert.False(t, disconnectResp.IsRoomDeleted, "room must not be deleted")
	assert.Equal(t, 1, len(disconnectResp.Members), "room must contain 1 member")
	assert.Equal(t, hostResp.JoinedMember.Id, disconnectResp.Members[0].Id, "member id is not equal")
	t.Log("member 2 disconnected")

	t.Log(rc.Keys(ctx, "*").Val())
}
