// Package peer implements the gRPC transport between cluster nodes
// described here and this: a bidirectional
// EventStream for gossip plus a Resync unary-request/server-stream
// response for catching up a reconnecting peer. No .proto file is
// compiled here — see codec.go for why — so this file defines the wire
// envelope by hand instead of using generated message types.
package peer

import (
	"encoding/json"
	"fmt"

	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// wireEvent is the JSON-serialisable form of event.Event. event.Details is
// a closed interface, so it round-trips through a (kind, payload) envelope
// rather than relying on concrete-type JSON unmarshalling, which can't
// recover an interface value on its own.
type wireEvent struct {
	ID wireEventID `json:"id"`
	Timestamp int64 `json:"ts"`
	Clock wireClock `json:"clock"`
	Target wireObjectID `json:"target"`
	Kind string `json:"kind"`
	Details json.RawMessage `json:"details"`
}

type wireEventID struct {
	Server uint32 `json:"server"`
	Epoch uint64 `json:"epoch"`
	Seq uint64 `json:"seq"`
}

type wireClock struct {
	Entries map[uint32]wireClockEntry `json:"entries"`
}

type wireClockEntry struct {
	Epoch uint64 `json:"epoch"`
	Seq uint64 `json:"seq"`
}

// wireObjectID carries enough of an ids.ObjectId to reconstruct the
// concrete typed id on the receiving side: which kind it is, plus the
// (server, seq) pair every entity id type shares.
type wireObjectID struct {
	Kind string `json:"kind"`
	Server uint32 `json:"server"`
	Seq uint64 `json:"seq"`
}

// EncodeEvent converts e to its wire form.
func EncodeEvent(e event.Event) (wireEvent, error) {
	kind, raw, err := encodeDetails(e.Details)
	if err != nil {
		return wireEvent{}, err
	}
	return wireEvent{
		ID: wireEventID{Server: uint32(e.ID.Server), Epoch: uint64(e.ID.Epoch), Seq: e.ID.Seq},
		Timestamp: e.Timestamp,
		Clock: encodeClock(e.Clock),
		Target: encodeObjectID(e.Target),
		Kind: kind,
		Details: raw,
	}, nil
}

// DecodeEvent reconstructs an event.Event from its wire form.
func DecodeEvent(w wireEvent) (event.Event, error) {
	details, err := decodeDetails(w.Kind, w.Details)
	if err != nil {
		return event.Event{}, err
	}
	target, err := decodeObjectID(w.Target)
	if err != nil {
		return event.Event{}, err
	}
	return event.Event{
		ID: ids.EventId{Server: ids.ServerId(w.ID.Server), Epoch: ids.EpochId(w.ID.Epoch), Seq: w.ID.Seq},
		Timestamp: w.Timestamp,
		Clock: decodeClock(w.Clock),
		Target: target,
		Details: details,
	}, nil
}

func encodeClock(c clock.EventClock) wireClock {
	w := wireClock{Entries: make(map[uint32]wireClockEntry)}
	for server, entry := range c.Entries() {
		w.Entries[uint32(server)] = wireClockEntry{Epoch: uint64(entry.Epoch), Seq: entry.Seq}
	}
	return w
}

func decodeClock(w wireClock) clock.EventClock {
	c := clock.New()
	for server, entry := range w.Entries {
		c = c.WithEntry(ids.ServerId(server), clock.EpochSeq{Epoch: ids.EpochId(entry.Epoch), Seq: entry.Seq})
	}
	return c
}

const (
	kindUser = "user"
	kindChannel = "channel"
	kindMembership = "membership"
	kindServer = "server"
	kindAuditLog = "audit_log"
)

func encodeObjectID(o ids.ObjectId) wireObjectID {
	switch v := o.(type) {
	case ids.UserId:
		return wireObjectID{Kind: kindUser, Server: uint32(v.Server), Seq: uint64(v.Seq)}
	case ids.ChannelId:
		return wireObjectID{Kind: kindChannel, Server: uint32(v.Server), Seq: uint64(v.Seq)}
	case ids.MembershipId:
		return wireObjectID{Kind: kindMembership, Server: uint32(v.Server), Seq: uint64(v.Seq)}
	case ids.AuditLogEntryId:
		return wireObjectID{Kind: kindAuditLog, Server: uint32(v.Server), Seq: uint64(v.Seq)}
	case ids.ServerId:
		return wireObjectID{Kind: kindServer, Server: uint32(v)}
	default:
		return wireObjectID{}
	}
}

func decodeObjectID(w wireObjectID) (ids.ObjectId, error) {
	switch w.Kind {
	case kindUser:
		return ids.NewUserId(ids.ServerId(w.Server), w.Seq), nil
	case kindChannel:
		return ids.NewChannelId(ids.ServerId(w.Server), w.Seq), nil
	case kindMembership:
		return ids.NewMembershipId(ids.ServerId(w.Server), w.Seq), nil
	case kindAuditLog:
		return ids.NewAuditLogEntryId(ids.ServerId(w.Server), w.Seq), nil
	case kindServer:
		return ids.ServerId(w.Server), nil
	default:
		return nil, fmt.Errorf("peer: unknown object id kind %q", w.Kind)
	}
}

