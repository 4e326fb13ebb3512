package room

import "github.com/cinesync/server/internal/repository/room"

type Video struct {
	Url   string `json:"url"`
	Title string `json:"title"`
}

type Member struct {
	Id          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsOwner     bool   `json:"is_owner"`
}

type QueueItem struct {
	Id      string `json:"id"`
	Url     string `json:"url"`
	Title   string `json:"title"`
	AddedBy string `json:"added_by"`
	Votes   int    `json:"votes"`
}

type Player struct {
	Video     *Video  `json:"video"`
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
}

// SyncConfig tells clients how the host heartbeat is tuned, so the
// drift-correction decision uses the same numbers on every side.
type SyncConfig struct {
	HeartbeatIntervalSec float64 `json:"heartbeat_interval_sec"`
	DriftToleranceSec    float64 `json:"drift_tolerance_sec"`
}

// RoomState is the full catch-up view sent on join and on request_sync.
// Player.Position is already reconciled, there is no replay log.
type RoomState struct {
	RoomId        string             `json:"room_id"`
	Mode          room.Mode          `json:"mode"`
	ControlPolicy room.ControlPolicy `json:"control_policy"`
	HostId        string             `json:"host_id"`
	Player        Player             `json:"player"`
	Members       []Member           `json:"members"`
	Queue         []QueueItem        `json:"queue"`
	Sync          SyncConfig         `json:"sync"`
}

type RoomListItem struct {
	RoomId      string `json:"room_id"`
	MemberCount int    `json:"member_count"`
	Video       *Video `json:"video"`
}
