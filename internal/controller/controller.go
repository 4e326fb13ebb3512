package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/validator"
	"github.com/cinesync/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateJoinSession(context.Context, *room.CreateJoinSessionParams) (room.CreateJoinSessionResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	ConnectMember(context.Context, *room.ConnectMemberParams) error
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	KickMember(context.Context, *room.KickMemberParams) (room.KickMemberResponse, error)
	GetRoomState(context.Context, string) (room.RoomState, error)
	ListRooms(context.Context) ([]room.RoomListItem, error)
	VideoControl(context.Context, *room.VideoControlParams) (room.VideoControlResponse, error)
	TimeSync(context.Context, *room.TimeSyncParams) (room.TimeSyncResponse, error)
	ChangeVideo(context.Context, *room.ChangeVideoParams) (room.ChangeVideoResponse, error)
	AddToQueue(context.Context, *room.AddToQueueParams) (room.AddToQueueResponse, error)
	VoteVideo(context.Context, *room.VoteVideoParams) (room.VoteVideoResponse, error)
	PlayNext(context.Context, *room.PlayNextParams) (room.PlayNextResponse, error)
	ChangeMode(context.Context, *room.ChangeModeParams) (room.ChangeModeResponse, error)
	RelayMessage(context.Context, *room.RelayMessageParams) (room.RelayMessageResponse, error)
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
