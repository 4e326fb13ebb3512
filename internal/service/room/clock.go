package room

import (
	"math"
	"time"

	"github.com/cinesync/server/internal/repository/room"
)

// position computes where the room's video is at the given instant from
// the stored base position and the time elapsed since the last
// authoritative action. Pure: safe to call on any snapshot, no ticking
// timer needed.
func position(r *room.Room, now time.Time) float64 {
	if !r.IsPlaying {
		return r.BasePosition
	}

	return r.BasePosition + now.Sub(r.LastActionTime).Seconds()
}

// NeedsCorrection reports whether a participant should hard-seek to the
// host's reported position. Divergence exactly at the tolerance does not
// trigger a seek; small jitter is left to the local player.
func NeedsCorrection(reported, predicted, tolerance float64) bool {
	return math.Abs(reported-predicted) > tolerance
}
