package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/rest"
)

type validateRoomRequest struct {
	DisplayName   string `json:"display_name" validate:"max=32"`
	Secret        string `json:"secret" validate:"max=64"`
	VideoUrl      string `json:"video_url"`
	VideoTitle    string `json:"video_title" validate:"max=256"`
	ControlPolicy string `json:"control_policy" validate:"omitempty,oneof=host anyone"`
}

type validateRoomResponse struct {
	ConnectToken string `json:"connect_token"`
	RoomId       string `json:"room_id"`
}

// validateCreateRoom validates a create-room request and hands back a
// connect token plus the generated room id. The room itself is created
// lazily on the websocket join.
func (c controller) validateCreateRoom(w http.ResponseWriter, r *http.Request) {
	c.validateRoom(w, r, "")
}

func (c controller) validateJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	c.validateRoom(w, r, roomId)
}

func (c controller) validateRoom(w http.ResponseWriter, r *http.Request, roomId string) {
	var req validateRoomRequest

	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.DebugContext(r.Context(), "invalid request", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateJoinSession(r.Context(), &room.CreateJoinSessionParams{
		DisplayName:   req.DisplayName,
		RoomId:        roomId,
		Secret:        req.Secret,
		VideoUrl:      req.VideoUrl,
		VideoTitle:    req.VideoTitle,
		ControlPolicy: req.ControlPolicy,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to create join session", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": validateRoomResponse{
		ConnectToken: resp.ConnectToken,
		RoomId:       resp.RoomId,
	}})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to list rooms", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}
