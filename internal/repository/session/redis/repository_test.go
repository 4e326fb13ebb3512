package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/session"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	return NewRepo(rc, 10*time.Minute), s
}

func TestJoinSession(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	err := repo.SetJoinSession(ctx, &session.SetJoinSessionParams{
		Id:            "token-1",
		DisplayName:   "alice",
		RoomId:        "r1",
		Secret:        "hunter2",
		VideoUrl:      "https://example.com/v1",
		VideoTitle:    "first",
		ControlPolicy: "anyone",
	})
	require.NoError(t, err)

	joinSession, err := repo.PopJoinSession(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", joinSession.DisplayName)
	assert.Equal(t, "r1", joinSession.RoomId)
	assert.Equal(t, "hunter2", joinSession.Secret)
	assert.Equal(t, "https://example.com/v1", joinSession.VideoUrl)
	assert.Equal(t, "first", joinSession.VideoTitle)
	assert.Equal(t, "anyone", joinSession.ControlPolicy)

	// tokens are single use
	_, err = repo.PopJoinSession(ctx, "token-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestPopUnknownToken(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.PopJoinSession(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestJoinSessionExpires(t *testing.T) {
	repo, s := newTestRepo(t)
	ctx := context.Background()

	err := repo.SetJoinSession(ctx, &session.SetJoinSessionParams{
		Id:     "token-1",
		RoomId: "r1",
	})
	require.NoError(t, err)

	s.FastForward(11 * time.Minute)

	_, err = repo.PopJoinSession(ctx, "token-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
