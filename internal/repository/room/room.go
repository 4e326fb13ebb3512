package room

import "time"

type Mode string

const (
	ModeDictatorship Mode = "dictatorship"
	ModeSuggestion   Mode = "suggestion"
	ModeDemocracy    Mode = "democracy"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeDictatorship, ModeSuggestion, ModeDemocracy:
		return true
	}
	return false
}

type ControlPolicy string

const (
	ControlPolicyHost   ControlPolicy = "host"
	ControlPolicyAnyone ControlPolicy = "anyone"
)

func (p ControlPolicy) Valid() bool {
	return p == ControlPolicyHost || p == ControlPolicyAnyone
}

type Video struct {
	Url   string
	Title string
}

type Participant struct {
	Id          string
	DisplayName string
	JoinedAt    time.Time
}

type QueueItem struct {
	Id      string
	Url     string
	Title   string
	AddedBy string
	// Seq records arrival order, which ranking falls back to on equal
	// vote counts.
	Seq int
	// Votes holds participant ids. Meaningful in democracy mode only.
	Votes []string
}

// Room is the stored record. Members keeps join order, which is the
// host succession order.
type Room struct {
	Id             string
	Members        []Participant
	HostId         string
	CurrentVideo   *Video
	IsPlaying      bool
	BasePosition   float64
	LastActionTime time.Time
	Mode           Mode
	ControlPolicy  ControlPolicy
	Queue          []QueueItem
	AccessSecret   string
	CreatedAt      time.Time
}

// Clone returns a deep copy, so a snapshot can be read or a mutation
// prepared without touching the stored record.
func (r Room) Clone() Room {
	c := r

	c.Members = make([]Participant, len(r.Members))
	copy(c.Members, r.Members)

	c.Queue = make([]QueueItem, len(r.Queue))
	for i, item := range r.Queue {
		item.Votes = append([]string(nil), item.Votes...)
		c.Queue[i] = item
	}

	if r.CurrentVideo != nil {
		video := *r.CurrentVideo
		c.CurrentVideo = &video
	}

	return c
}

func (r Room) Member(memberId string) (Participant, bool) {
	for _, member := range r.Members {
		if member.Id == memberId {
			return member, true
		}
	}

	return Participant{}, false
}
