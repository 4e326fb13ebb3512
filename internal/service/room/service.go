package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
	"github.com/cinesync/server/internal/repository/session"
	"github.com/cinesync/server/pkg/randstr"
)

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAccessDenied        = errors.New("access denied")
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrQueueItemNotFound   = errors.New("queue item not found")
	ErrQueueLimitReached   = errors.New("queue limit reached")
	ErrMembersLimitReached = errors.New("members limit reached")
	ErrInvalidConnectToken = errors.New("invalid connect token")
	ErrInvalidCommand      = errors.New("invalid command")
)

// errInvariantViolation marks a mutation that would corrupt room state. It
// stays internal: the store discards the whole mutation and the room is
// left as it was.
var errInvariantViolation = errors.New("invariant violation")

type iRoomRepo interface {
	Upsert(ctx context.Context, roomId string, create func() room.Room, update func(*room.Room) error) (room.Room, bool, error)
	Mutate(ctx context.Context, roomId string, fn func(*room.Room) error) (room.Room, error)
	Snapshot(ctx context.Context, roomId string) (room.Room, error)
	DeleteIfEmpty(ctx context.Context, roomId string) (bool, error)
	List(ctx context.Context) ([]room.Room, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, memberId string) error
	RemoveByMemberId(memberId string) (*websocket.Conn, error)
	GetConn(memberId string) (*websocket.Conn, error)
}

type iSessionRepo interface {
	SetJoinSession(ctx context.Context, params *session.SetJoinSessionParams) error
	PopJoinSession(ctx context.Context, id string) (session.JoinSession, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit         int
	QueueLimit           int
	DefaultControlPolicy room.ControlPolicy
	HeartbeatInterval    time.Duration
	DriftTolerance       time.Duration
}

type service struct {
	roomRepo    iRoomRepo
	connRepo    iConnRepo
	sessionRepo iSessionRepo
	generator   iGenerator
	logger      *slog.Logger
	cfg         Config
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, sessionRepo iSessionRepo, logger *slog.Logger, cfg *Config) *service {
	s := service{
		roomRepo:    roomRepo,
		connRepo:    connRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
		cfg:         *cfg,
	}

	if s.cfg.DefaultControlPolicy == "" {
		s.cfg.DefaultControlPolicy = room.ControlPolicyHost
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
