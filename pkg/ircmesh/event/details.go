package event

import "github.com/ircmesh/ircd/pkg/ircmesh/ids"

// Details is the tagged variant enumerating every possible network state
// mutation. Each concrete type below implements Details by way of the
// unexported isDetails marker, closing the set to the variants named in
// this (plus NewAccountRegistration and MembershipModeChange, both
// supplemented from original_source/sable — see DESIGN.md).
type Details interface {
	isDetails()
	// Describe returns a short, human-readable summary for logging.
	Describe() string
}

// NewUser requests the creation of a user with the given identity. The
// NetworkState reducer rejects this silently (no update emitted) if
// Nickname collides with a live user.
type NewUser struct {
	User ids.UserId
	Nickname string
	Username string
	Hostname string
	Realname string
	Modes []UserModeFlag
}

func (NewUser) isDetails() {}
func (d NewUser) Describe() string { return "NewUser(" + d.Nickname + ")" }

// NickChange renames a live user. Supplemented from original_source(
// the own language — "non-commutative ones (nick changes, mode
// changes)" — names nick changes as an event kind its explicit
// EventDetails enumeration in omits).
type NickChange struct {
	User ids.UserId
	NewNickname string
}

func (NickChange) isDetails() {}
func (d NickChange) Describe() string { return "NickChange(" + d.User.String() + "->" + d.NewNickname + ")" }

// UserQuit removes a user and every membership they held.
type UserQuit struct {
	User ids.UserId
	Reason string
}

func (UserQuit) isDetails() {}
func (d UserQuit) Describe() string { return "UserQuit(" + d.User.String() + ")" }

// ChannelJoin adds User to Channel with the given initial membership flags,
// creating Channel first if it does not yet exist.
type ChannelJoin struct {
	Membership ids.MembershipId
	User ids.UserId
	Channel ids.ChannelId
	ChannelName string
	Flags []MembershipFlag
}

func (ChannelJoin) isDetails() {}
func (d ChannelJoin) Describe() string {
	return "ChannelJoin(" + d.User.String() + "," + d.ChannelName + ")"
}

// ChannelPart removes a single membership.
type ChannelPart struct {
	Membership ids.MembershipId
	Reason string
}

func (ChannelPart) isDetails() {}
func (d ChannelPart) Describe() string { return "ChannelPart(" + d.Membership.String() + ")" }

// ChannelModeChange applies added/removed channel-level mode flags. This is
// the channel-scoped half of the "ModeChange" variant; the
// member-scoped half is MembershipModeChange below (see this).
type ChannelModeChange struct {
	Channel ids.ChannelId
	Added map[ChannelModeFlag]string
	Removed map[ChannelModeFlag]struct{}
}

func (ChannelModeChange) isDetails() {}
func (d ChannelModeChange) Describe() string {
	return "ChannelModeChange(" + d.Channel.String() + ")"
}

// MembershipModeChange applies added/removed per-member flags such as op or
// voice (e.g. MODE #chan +o nick). Supplemented from
// original_source/irc_server/src/utils/channel_modes.rs.
type MembershipModeChange struct {
	Membership ids.MembershipId
	Added []MembershipFlag
	Removed []MembershipFlag
}

func (MembershipModeChange) isDetails() {}
func (d MembershipModeChange) Describe() string {
	return "MembershipModeChange(" + d.Membership.String() + ")"
}

// TopicChange sets a channel's topic. Supplemented from original_source:
// Network State data model names Channel.topic as mutable
// state, and the TOPIC wire command needs a corresponding event, but
// explicit EventDetails enumeration omits it (its list ends in
// "…", an open set).
type TopicChange struct {
	Channel ids.ChannelId
	Topic string
	SetBy ids.UserId
}

func (TopicChange) isDetails() {}
func (d TopicChange) Describe() string { return "TopicChange(" + d.Channel.String() + ")" }

// NewMessage delivers a PRIVMSG/NOTICE into the history log. It never
// mutates persistent network state beyond the bounded history ring.
type NewMessage struct {
	Message ids.MessageId
	From ids.UserId
	ToChannel *ids.ChannelId
	ToUser *ids.UserId
	Text string
	IsNotice bool
	Tags map[string]string
}

func (NewMessage) isDetails() {}
func (d NewMessage) Describe() string { return "NewMessage(" + d.Message.String() + ")" }

// NewChannelRegistration registers a persistent, name-unique channel
// registration (distinct from the in-memory Channel created by
// ChannelJoin).
type NewChannelRegistration struct {
	ChannelName string
	RegisteredBy ids.UserId
}

func (NewChannelRegistration) isDetails() {}
func (d NewChannelRegistration) Describe() string {
	return "NewChannelRegistration(" + d.ChannelName + ")"
}

// NewAccountRegistration registers a name-unique account. Supplemented from
// original_source (the REGISTER wire command and the "NewAccount" reducer
// case this imply this, but explicit EventDetails
// list omits the event itself).
type NewAccountRegistration struct {
	AccountName string
	Owner ids.UserId
}

func (NewAccountRegistration) isDetails() {}
func (d NewAccountRegistration) Describe() string {
	return "NewAccountRegistration(" + d.AccountName + ")"
}

// NewAuditLogEntry appends an entry to the append-only audit log. Grounded
// verbatim on original_source/sable_network/src/network/network/audit_log.rs.
type NewAuditLogEntry struct {
	Entry ids.AuditLogEntryId
	Category string
	Fields map[string]string
}

func (NewAuditLogEntry) isDetails() {}
func (d NewAuditLogEntry) Describe() string {
	return "NewAuditLogEntry(" + d.Category + ")"
}

// ServerPing is a liveness heartbeat from a peer; it carries no state
// mutation but resets the peer's ping timer and is still routed through the
// event log so its clock contribution is recorded like any other event.
type ServerPing struct {
	Server ids.ServerId
}

func (ServerPing) isDetails() {}
func (d ServerPing) Describe() string { return "ServerPing(" + d.Server.String() + ")" }

// ServerQuit removes every user whose Server matches the departing server,
// either because the peer sent an explicit quit or because its ping timer
// expired (by design).
type ServerQuit struct {
	Server ids.ServerId
	Epoch ids.EpochId
}

func (ServerQuit) isDetails() {}
func (d ServerQuit) Describe() string { return "ServerQuit(" + d.Server.String() + ")" }

// UserModeFlag is a single user mode character (e.g. "i" invisible, "o"
// operator).
type UserModeFlag string

// ChannelModeFlag is a single channel mode character (e.g. "n", "t", "m",
// "k", "l").
type ChannelModeFlag string

// MembershipFlag is a single per-member channel privilege (e.g. "o" op, "v"
// voice, "h" halfop).
type MembershipFlag string

const (
	MembershipOp MembershipFlag = "o"
	MembershipVoice MembershipFlag = "v"
	MembershipHalfop MembershipFlag = "h"
)
