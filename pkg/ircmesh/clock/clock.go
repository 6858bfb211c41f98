// Package clock implements the EventClock vector clock used to express the
// causal order of replicated events. Unlike a classic vector clock indexed by
// process number, an EventClock is indexed by ServerId and carries an EpochId
// alongside each server's highest-seen sequence number, so that a restarted
// node's fresh sequence space is never confused with its previous lifetime's.
package clock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// EpochSeq names the highest sequence number observed for a server within a
// specific epoch of that server's lifetime.
type EpochSeq struct {
	Epoch ids.EpochId
	Seq uint64
}

// lessOrEqual compares two EpochSeq values the way EventClock needs to: a later
// epoch always wins regardless of sequence, and within the same epoch the
// higher sequence wins.
func (a EpochSeq) lessOrEqual(b EpochSeq) bool {
	if a.Epoch != b.Epoch {
		return a.Epoch < b.Epoch
	}
	return a.Seq <= b.Seq
}

// EventClock maps ServerId to the highest (epoch, sequence) pair seen for
// that server. The zero value is a valid, empty clock.
type EventClock struct {
	entries map[ids.ServerId]EpochSeq
}

// New returns an empty EventClock.
func New() EventClock {
	return EventClock{entries: make(map[ids.ServerId]EpochSeq)}
}

// Get returns the EpochSeq recorded for server, and whether one exists.
func (c EventClock) Get(server ids.ServerId) (EpochSeq, bool) {
	v, ok := c.entries[server]
	return v, ok
}

// Clone returns an independent copy of the clock, safe to mutate.
func (c EventClock) Clone() EventClock {
	n := make(map[ids.ServerId]EpochSeq, len(c.entries))
	for k, v := range c.entries {
		n[k] = v
	}
	return EventClock{entries: n}
}

// UpdateWithId advances the clock so that it reflects having seen the given
// EventId: the recorded (epoch, seq) for id.Server becomes the greater of the
// current entry and id's own epoch/sequence.
func (c EventClock) UpdateWithId(id ids.EventId) EventClock {
	out := c.Clone()
	candidate := EpochSeq{Epoch: id.Epoch, Seq: id.Seq}
	current, ok := out.entries[id.Server]
	if !ok || current.lessOrEqual(candidate) {
		out.entries[id.Server] = candidate
	}
	return out
}

// Merge returns a new clock that is the entrywise maximum of c and other,
// used when a node folds a peer's reported clock into its own.
func (c EventClock) Merge(other EventClock) EventClock {
	out := c.Clone()
	for server, os := range other.entries {
		cs, ok := out.entries[server]
		if !ok || cs.lessOrEqual(os) {
			out.entries[server] = os
		}
	}
	return out
}

// LessOrEqual implements the partial order from spec: A <= B iff for every
// server present in A, B contains the same epoch with sequence >= A's, or a
// later epoch.
func (c EventClock) LessOrEqual(other EventClock) bool {
	for server, cs := range c.entries {
		os, ok := other.entries[server]
		if !ok {
			return false
		}
		if !cs.lessOrEqual(os) {
			return false
		}
	}
	return true
}

// Less implements A < B iff A <= B and A != B.
func (c EventClock) Less(other EventClock) bool {
	return c.LessOrEqual(other) && !c.Equal(other)
}

// Concurrent reports whether neither clock is <= the other.
func (c EventClock) Concurrent(other EventClock) bool {
	return !c.LessOrEqual(other) && !other.LessOrEqual(c)
}

// Equal reports whether both clocks carry exactly the same entries.
func (c EventClock) Equal(other EventClock) bool {
	if len(c.entries) != len(other.entries) {
		return false
	}
	for server, cs := range c.entries {
		os, ok := other.entries[server]
		if !ok || os != cs {
			return false
		}
	}
	return true
}

// MissingFrom returns the dependencies of c that are not yet satisfied by
// have: the set of (server, epoch, seq) entries in c for which have either
// lacks the server entirely or is behind it. The event log uses this to
// decide whether a remote event is deliverable yet, and to key it in the
// pending set if not.
func (c EventClock) MissingFrom(have EventClock) []ids.EventId {
	var missing []ids.EventId
	for server, cs := range c.entries {
		hs, ok := have.entries[server]
		if ok && hs.lessOrEqual(cs) && hs == cs {
			continue
		}
		if ok && cs.lessOrEqual(hs) {
			continue
		}
		missing = append(missing, ids.EventId{Server: server, Epoch: cs.Epoch, Seq: cs.Seq})
	}
	return missing
}

// Entries returns a copy of the clock's per-server map, for the peer
// transport's wire serialization. — nothing in-process
// needs to enumerate a clock's entries besides that.
func (c EventClock) Entries() map[ids.ServerId]EpochSeq {
	out := make(map[ids.ServerId]EpochSeq, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// WithEntry returns a copy of c with server's entry set directly to v,
// used only by the peer transport's wire decoder to reconstruct a clock
// from its serialized form.
func (c EventClock) WithEntry(server ids.ServerId, v EpochSeq) EventClock {
	out := c.Clone()
	out.entries[server] = v
	return out
}

// String renders the clock in a stable, sorted form suitable for logging.
func (c EventClock) String() string {
	servers := make([]ids.ServerId, 0, len(c.entries))
	for s := range c.entries {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i] < servers[j] })

	var b strings.Builder
	b.WriteByte('{')
	for i, s := range servers {
		if i > 0 {
			b.WriteString(", ")
		}
		v := c.entries[s]
		fmt.Fprintf(&b, "%s:(%d,%d)", s, uint64(v.Epoch), v.Seq)
	}
	b.WriteByte('}')
	return b.String()
}
