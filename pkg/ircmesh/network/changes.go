package network

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// Change is the output of applying a single event to a Network: the new
// snapshot plus a description of what observably changed, so that the
// dispatch package can decide which connected clients need to be told about
// it without re-deriving the diff from two Network values.
type Change struct {
	Details ChangeDetails

	// Notify is the set of UserId whose connections should be told about
	// this change('s "notify set"), computed by the reducer
	// branch that produced Details since only it knows which snapshot
	// (pre- or post-mutation) the relevant membership lists live in. Empty
	// or nil for Rejected changes and for changes with no live audience.
	Notify map[ids.UserId]struct{}
}

// notifySet builds a Notify set from a variadic list of UserIds.
func notifySet(users ...ids.UserId) map[ids.UserId]struct{} {
	out := make(map[ids.UserId]struct{}, len(users))
	for _, u := range users {
		out[u] = struct{}{}
	}
	return out
}

// notifyMemberships adds every membership's User to a Notify set.
func notifyMemberships(into map[ids.UserId]struct{}, memberships []Membership) {
	for _, m := range memberships {
		into[m.User] = struct{}{}
	}
}

// ChangeDetails mirrors event.Details one-for-one for every variant that
// produces an externally observable change, plus Rejected for the branches
// that silently drop an event (e.g. nick collision) and ServerQuitBulk for
// the one case (ServerQuit) that fans out into many simultaneous removals.
type ChangeDetails interface {
	isChangeDetails()
}

// UserJoined announces a newly created user.
type UserJoined struct {
	User User
}

func (UserJoined) isChangeDetails() {}

// NicknameChanged announces a live user's nickname changing.
type NicknameChanged struct {
	User User
	OldNick string
	NewNick string
}

func (NicknameChanged) isChangeDetails() {}

// UserQuit announces a user's departure, along with every membership that
// was dropped as a result so notification fanout doesn't need a second
// lookup against the pre-change snapshot.
type UserQuit struct {
	User User
	Memberships []Membership
	Reason string
}

func (UserQuit) isChangeDetails() {}

// ChannelJoin announces a membership being created, possibly alongside the
// channel itself if this was the first join.
type ChannelJoin struct {
	Membership Membership
	Channel Channel
	ChannelCreated bool
}

func (ChannelJoin) isChangeDetails() {}

// ChannelPart announces a membership being dropped, possibly alongside the
// channel itself if this was the last member.
type ChannelPart struct {
	Membership Membership
	Channel Channel
	Reason string
	ChannelEmptied bool
}

func (ChannelPart) isChangeDetails() {}

// ChannelModeChanged announces channel-level mode flags changing.
type ChannelModeChanged struct {
	Channel ids.ChannelId
	Added map[event.ChannelModeFlag]string
	Removed []event.ChannelModeFlag
}

func (ChannelModeChanged) isChangeDetails() {}

// MembershipModeChanged announces a single member's privilege flags
// changing within a channel.
type MembershipModeChanged struct {
	Membership Membership
	Added []event.MembershipFlag
	Removed []event.MembershipFlag
}

func (MembershipModeChanged) isChangeDetails() {}

// TopicChanged announces a channel's topic being replaced.
type TopicChanged struct {
	Channel ids.ChannelId
	Topic string
	SetBy ids.UserId
}

func (TopicChanged) isChangeDetails() {}

// MessageDelivered announces a PRIVMSG/NOTICE entering the history log.
type MessageDelivered struct {
	Message ids.MessageId
	From ids.UserId
}

func (MessageDelivered) isChangeDetails() {}

// ChannelRegistered announces a persistent channel name registration.
type ChannelRegistered struct {
	Registration ChannelRegistration
}

func (ChannelRegistered) isChangeDetails() {}

// AccountRegistered announces a persistent account registration.
type AccountRegistered struct {
	Account Account
}

func (AccountRegistered) isChangeDetails() {}

// AuditLogAppended announces a new audit log entry.
type AuditLogAppended struct {
	Entry AuditLogEntry
}

func (AuditLogAppended) isChangeDetails() {}

// ServerQuitBulk announces every user removed in a single ServerQuit event.
type ServerQuitBulk struct {
	Server ids.ServerId
	Users []User
	Memberships []Membership
}

func (ServerQuitBulk) isChangeDetails() {}

// Rejected announces that an event was applied but produced no state
// change, because it violated an invariant the reducer enforces silently
// (e.g. a nickname collision, this). Reason is for logging only.
type Rejected struct {
	Reason string
}

func (Rejected) isChangeDetails() {}
