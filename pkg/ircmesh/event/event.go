package event

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// Event is one atomic mutation to network state, carrying its causal
// dependency clock. Target names the object the event mutates; Clock names
// the set of events this event causally depends on.
type Event struct {
	ID ids.EventId
	Timestamp int64
	Clock clock.EventClock
	Target ids.ObjectId
	Details Details
}

// DependsOn reports whether this event causally depends on id: i.e. whether
// id's (server, epoch, seq) is named, directly or transitively, by the
// event's clock.
func (e Event) DependsOn(id ids.EventId) bool {
	entry, ok := e.Clock.Get(id.Server)
	if !ok {
		return false
	}
	return id.Epoch == entry.Epoch && id.Seq <= entry.Seq || id.Epoch < entry.Epoch
}

// after is the tie-break total order over events that touch the same
// target: (timestamp, ServerId) ascending. Concurrent
// events are otherwise incomparable by Clock alone, so this is what the
// reducer falls back on for non-commutative mutations.
func after(a, b Event) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.ID.Server > b.ID.Server
}

// Before reports whether a must be applied before b under the tie-break
// total order, given that a and b are concurrent (neither causally precedes
// the other).
func Before(a, b Event) bool {
	return !after(a, b)
}
