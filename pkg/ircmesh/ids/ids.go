// Package ids defines the typed object identifiers shared across the
// replication engine. Every first-class entity (user, channel, membership,
// message, audit log entry, event, connection, listener) has its own named
// type so values can never cross-assign by accident between collections.
package ids

import "fmt"

// ServerId identifies a single node in the cluster. It is stable for the
// lifetime of that node's installation, unlike EpochId which changes on
// every restart.
type ServerId uint32

func (s ServerId) String() string {
	return fmt.Sprintf("srv%d", uint32(s))
}

func (s ServerId) objectId() {}

// EpochId increments once per process start of a given server, so that a
// sequence number from a prior lifetime of the same ServerId can never be
// confused with one from the current lifetime.
type EpochId uint64

func (e EpochId) String() string {
	return fmt.Sprintf("epoch%d", uint64(e))
}

// localSeq is the monotone counter local to a single (ServerId, EpochId)
// pair, shared shape for every ID variant below that is minted locally.
type localSeq uint64

// UserId is (ServerId, local sequence). The ServerId identifies which node
// is authoritative for minting further facts about this user.
type UserId struct {
	Server ServerId
	Seq localSeq
}

func NewUserId(server ServerId, seq uint64) UserId {
	return UserId{Server: server, Seq: localSeq(seq)}
}

func (u UserId) String() string {
	return fmt.Sprintf("user:%d:%d", uint32(u.Server), uint64(u.Seq))
}

func (u UserId) objectId() {}

// ChannelId identifies a channel, unique across the whole network.
type ChannelId struct {
	Server ServerId
	Seq localSeq
}

func NewChannelId(server ServerId, seq uint64) ChannelId {
	return ChannelId{Server: server, Seq: localSeq(seq)}
}

func (c ChannelId) String() string {
	return fmt.Sprintf("chan:%d:%d", uint32(c.Server), uint64(c.Seq))
}

func (c ChannelId) objectId() {}

// MembershipId identifies a single (user, channel) relationship.
type MembershipId struct {
	Server ServerId
	Seq localSeq
}

func NewMembershipId(server ServerId, seq uint64) MembershipId {
	return MembershipId{Server: server, Seq: localSeq(seq)}
}

func (m MembershipId) String() string {
	return fmt.Sprintf("memb:%d:%d", uint32(m.Server), uint64(m.Seq))
}

func (m MembershipId) objectId() {}

// MessageId identifies a single PRIVMSG/NOTICE delivered into the history
// log.
type MessageId struct {
	Server ServerId
	Seq localSeq
}

func NewMessageId(server ServerId, seq uint64) MessageId {
	return MessageId{Server: server, Seq: localSeq(seq)}
}

func (m MessageId) String() string {
	return fmt.Sprintf("msg:%d:%d", uint32(m.Server), uint64(m.Seq))
}

func (m MessageId) objectId() {}

// AuditLogEntryId identifies a single entry in the append-only audit log.
type AuditLogEntryId struct {
	Server ServerId
	Seq localSeq
}

func NewAuditLogEntryId(server ServerId, seq uint64) AuditLogEntryId {
	return AuditLogEntryId{Server: server, Seq: localSeq(seq)}
}

func (a AuditLogEntryId) String() string {
	return fmt.Sprintf("audit:%d:%d", uint32(a.Server), uint64(a.Seq))
}

func (a AuditLogEntryId) objectId() {}

// EventId identifies a single event in the log: the server that minted it,
// the epoch of that server's lifetime, and a sequence within that epoch.
type EventId struct {
	Server ServerId
	Epoch EpochId
	Seq uint64
}

func (e EventId) String() string {
	return fmt.Sprintf("evt:%d:%d:%d", uint32(e.Server), uint64(e.Epoch), e.Seq)
}

// Less orders EventIds for use as map/index keys; it carries no causal
// meaning of its own (see clock.EventClock for that).
func (e EventId) Less(o EventId) bool {
	if e.Server != o.Server {
		return e.Server < o.Server
	}
	if e.Epoch != o.Epoch {
		return e.Epoch < o.Epoch
	}
	return e.Seq < o.Seq
}

// ConnectionId and ListenerId are not replicated, so they are minted with a
// random generator (uuid) rather than a per-server sequence: see
// NewConnectionId/NewListenerId in generator.go.
type ConnectionId string

func (c ConnectionId) String() string { return string(c) }

type ListenerId string

func (l ListenerId) String() string { return string(l) }

// ObjectId is the set of identifiers an Event's Target field may name. It is
// a closed marker interface over the replicated entity ID types only —
// ConnectionId/ListenerId are intentionally excluded, since connections are
// never replicated.
type ObjectId interface {
	fmt.Stringer
	objectId()
}
