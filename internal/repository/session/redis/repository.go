package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinesync/server/internal/repository/session"
)

const joinSessionPrefix = "join-session"

type repo struct {
	rc         *redis.Client
	expireTime time.Duration
}

func NewRepo(rc *redis.Client, expireTime time.Duration) *repo {
	return &repo{
		rc:         rc,
		expireTime: expireTime,
	}
}

func (r repo) SetJoinSession(ctx context.Context, params *session.SetJoinSessionParams) error {
	pipe := r.rc.TxPipeline()

	joinSession := session.JoinSession{
		DisplayName:   params.DisplayName,
		RoomId:        params.RoomId,
		Secret:        params.Secret,
		VideoUrl:      params.VideoUrl,
		VideoTitle:    params.VideoTitle,
		ControlPolicy: params.ControlPolicy,
	}
	joinSessionKey := joinSessionPrefix + ":" + params.Id
	pipe.HSet(ctx, joinSessionKey, joinSession)
	pipe.Expire(ctx, joinSessionKey, r.expireTime)

	_, err := pipe.Exec(ctx)
	return err
}

// PopJoinSession redeems a connect token. Tokens are single use.
func (r repo) PopJoinSession(ctx context.Context, id string) (session.JoinSession, error) {
	joinSessionKey := joinSessionPrefix + ":" + id

	var joinSession session.JoinSession
	if err := r.rc.HGetAll(ctx, joinSessionKey).Scan(&joinSession); err != nil {
		return session.JoinSession{}, err
	}

	if joinSession.RoomId == "" {
		return session.JoinSession{}, session.ErrSessionNotFound
	}

	if err := r.rc.Del(ctx, joinSessionKey).Err(); err != nil {
		return session.JoinSession{}, err
	}

	return joinSession, nil
}
