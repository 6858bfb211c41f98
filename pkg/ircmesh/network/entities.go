package network

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// User is the network-visible state of a single registered client,
// replicated across the cluster.
type User struct {
	ID ids.UserId
	Nickname string
	Username string
	Hostname string
	Realname string
	Modes map[event.UserModeFlag]struct{}
	Server ids.ServerId

	// NickTimestamp/NickServer record the (Timestamp, ServerId) of
	// whichever NewUser/NickChange event last granted this user's current
	// nickname, so a later nickname collision can be arbitrated by the
	// (timestamp, ServerId) tie-break instead of by local apply order.
	NickTimestamp int64
	NickServer ids.ServerId
}

func (u User) hasMode(m event.UserModeFlag) bool {
	_, ok := u.Modes[m]
	return ok
}

// withModes returns a copy of u with added applied and removed cleared.
func (u User) withModes(added, removed []event.UserModeFlag) User {
	next := make(map[event.UserModeFlag]struct{}, len(u.Modes)+len(added))
	for m := range u.Modes {
		next[m] = struct{}{}
	}
	for _, m := range removed {
		delete(next, m)
	}
	for _, m := range added {
		next[m] = struct{}{}
	}
	u.Modes = next
	return u
}

// Channel is the network-visible state of a channel: its name, topic, and
// channel-level modes. Per-member privileges live on
// Membership, not here.
type Channel struct {
	ID ids.ChannelId
	Name string
	Topic string
	Modes map[event.ChannelModeFlag]string
}

func (c Channel) withModes(added map[event.ChannelModeFlag]string, removed map[event.ChannelModeFlag]struct{}) Channel {
	next := make(map[event.ChannelModeFlag]string, len(c.Modes)+len(added))
	for k, v := range c.Modes {
		next[k] = v
	}
	for k := range removed {
		delete(next, k)
	}
	for k, v := range added {
		next[k] = v
	}
	c.Modes = next
	return c
}

// Membership links one User to one Channel with a set of per-member flags
// (op, voice, halfop). Per this invariants, at most one Membership
// exists per (user, channel) pair.
type Membership struct {
	ID ids.MembershipId
	User ids.UserId
	Channel ids.ChannelId
	Flags map[event.MembershipFlag]struct{}

	// JoinTimestamp/JoinServer record the (Timestamp, ServerId) of the
	// ChannelJoin event that created this membership, used to arbitrate
	// two concurrent joins of the same (user, channel) pair deterministically
	// regardless of which node sees them in which order.
	JoinTimestamp int64
	JoinServer ids.ServerId
}

func (m Membership) hasFlag(f event.MembershipFlag) bool {
	_, ok := m.Flags[f]
	return ok
}

func (m Membership) withFlags(added, removed []event.MembershipFlag) Membership {
	next := make(map[event.MembershipFlag]struct{}, len(m.Flags)+len(added))
	for f := range m.Flags {
		next[f] = struct{}{}
	}
	for _, f := range removed {
		delete(next, f)
	}
	for _, f := range added {
		next[f] = struct{}{}
	}
	m.Flags = next
	return m
}

// ChannelRegistration is a persistent, name-unique registration of a
// channel name, independent of whether the channel currently has any users
// joined to it.
type ChannelRegistration struct {
	Name string
	RegisteredBy ids.UserId
	Timestamp int64
	Server ids.ServerId
}

// Account is a persistent, name-unique account registration.
type Account struct {
	Name string
	Owner ids.UserId
	Timestamp int64
	Server ids.ServerId
}

// AuditLogEntry is a single append-only audit log record, grounded on
// original_source/sable_network/src/network/network/audit_log.rs.
type AuditLogEntry struct {
	ID ids.AuditLogEntryId
	Timestamp int64
	Category string
	Fields map[string]string
}
