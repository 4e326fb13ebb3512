package room

import (
	"slices"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

// getConns collects the live connections of a room's members. Members
// without a connection (joined but not yet connected, or mid-disconnect)
// are skipped: broadcast is best-effort and must not fail the mutation
// that triggered it.
func (s service) getConns(r *room.Room, excludeIds ...string) []*websocket.Conn {
	conns := make([]*websocket.Conn, 0, len(r.Members))
	for _, member := range r.Members {
		if slices.Contains(excludeIds, member.Id) {
			continue
		}

		conn, err := s.connRepo.GetConn(member.Id)
		if err != nil {
			s.logger.Debug("no conn for member", "member_id", member.Id)
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}

func memberView(r *room.Room, p room.Participant) Member {
	return Member{
		Id:          p.Id,
		DisplayName: p.DisplayName,
		IsOwner:     p.Id == r.HostId,
	}
}

func membersView(r *room.Room) []Member {
	members := make([]Member, 0, len(r.Members))
	for _, member := range r.Members {
		members = append(members, memberView(r, member))
	}

	return members
}

func queueView(items []room.QueueItem) []QueueItem {
	queue := make([]QueueItem, 0, len(items))
	for _, item := range items {
		queue = append(queue, QueueItem{
			Id:      item.Id,
			Url:     item.Url,
			Title:   item.Title,
			AddedBy: item.AddedBy,
			Votes:   len(item.Votes),
		})
	}

	return queue
}

func videoView(v *room.Video) *Video {
	if v == nil {
		return nil
	}

	return &Video{Url: v.Url, Title: v.Title}
}

func (s service) playerView(r *room.Room, now time.Time) Player {
	return Player{
		Video:     videoView(r.CurrentVideo),
		IsPlaying: r.IsPlaying,
		Position:  position(r, now),
	}
}

func (s service) roomState(r *room.Room, now time.Time) RoomState {
	return RoomState{
		RoomId:        r.Id,
		Mode:          r.Mode,
		ControlPolicy: r.ControlPolicy,
		HostId:        r.HostId,
		Player:        s.playerView(r, now),
		Members:       membersView(r),
		Queue:         queueView(r.Queue),
		Sync: SyncConfig{
			HeartbeatIntervalSec: s.cfg.HeartbeatInterval.Seconds(),
			DriftToleranceSec:    s.cfg.DriftTolerance.Seconds(),
		},
	}
}

// rankQueue orders items by descending vote count; equal counts fall back
// to arrival order, so a withdrawn vote returns the queue to the order
// items came in.
func rankQueue(items []room.QueueItem) []room.QueueItem {
	sort.Slice(items, func(i, j int) bool {
		if len(items[i].Votes) != len(items[j].Votes) {
			return len(items[i].Votes) > len(items[j].Votes)
		}

		return items[i].Seq < items[j].Seq
	})

	return items
}

func canControl(r *room.Room, senderId string) bool {
	if r.ControlPolicy == room.ControlPolicyAnyone {
		_, ok := r.Member(senderId)
		return ok
	}

	return senderId == r.HostId
}

// stripVote removes the participant's vote from every queue item,
// maintaining the one-vote-per-participant rule.
func stripVote(queue []room.QueueItem, memberId string) {
	for i := range queue {
		queue[i].Votes = slices.DeleteFunc(queue[i].Votes, func(id string) bool {
			return id == memberId
		})
	}
}

// checkSingleVote verifies no participant is counted twice across the
// queue. A violation rejects the surrounding mutation wholesale.
func checkSingleVote(queue []room.QueueItem) error {
	seen := make(map[string]struct{})
	for _, item := range queue {
		for _, id := range item.Votes {
			if _, ok := seen[id]; ok {
				return errInvariantViolation
			}
			seen[id] = struct{}{}
		}
	}

	return nil
}
