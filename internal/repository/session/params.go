package session

// JoinSession carries the validated join request between the REST
// validate endpoint and the websocket connect.
type JoinSession struct {
	DisplayName   string `redis:"display_name"`
	RoomId        string `redis:"room_id"`
	Secret        string `redis:"secret"`
	VideoUrl      string `redis:"video_url"`
	VideoTitle    string `redis:"video_title"`
	ControlPolicy string `redis:"control_policy"`
}

type SetJoinSessionParams struct {
	Id            string
	DisplayName   string
	RoomId        string
	Secret        string
	VideoUrl      string
	VideoTitle    string
	ControlPolicy string
}
