// Package format renders replicated network state into wire-ready IRC
// lines, tagged and capability-gated per connection. It is grounded on
// original_source/sable_ircd/src/messages/mod.rs's MessageSource/
// MessageTarget traits, translated from Rust trait objects into a Go tagged
// interface closed over the small set of concrete shapes this
// implementation actually needs to name as a message's prefix or target.
package format

import "github.com/ircmesh/ircd/pkg/ircmesh/network"

// Source is anything that can appear as a message's sender prefix.
type Source interface {
	formatSource() string
}

// Target is anything that can appear as a message's destination.
type Target interface {
	formatTarget() string
}

// ServerSource names the local or a remote server as a message's origin.
type ServerSource struct {
	Name string
}

func (s ServerSource) formatSource() string { return s.Name }

// UserSource names a live network.User as a message's origin, rendered as
// the standard nick!user@host prefix.
type UserSource struct {
	User network.User
}

func (s UserSource) formatSource() string {
	return s.User.Nickname + "!" + s.User.Username + "@" + s.User.Hostname
}

// HistoricUser captures a user's identity as it was at the moment a
// history entry was recorded, independent of whatever that user's current
// live Nickname/Username/Hostname are by the time CHATHISTORY replays it —
// grounded on original_source's update::HistoricUser, which exists for
// exactly this reason (a user who has since changed nick or quit must still
// render correctly in a replay).
type HistoricUser struct {
	Nickname string
	Username string
	Hostname string
}

func (h HistoricUser) formatSource() string {
	return h.Nickname + "!" + h.Username + "@" + h.Hostname
}

func (h HistoricUser) formatTarget() string { return h.Nickname }

// HistoricServer captures a server's name as of a recorded history entry.
type HistoricServer struct {
	Name string
}

func (s HistoricServer) formatSource() string { return s.Name }
func (s HistoricServer) formatTarget() string { return s.Name }

// UnknownSource/UnknownTarget stand in for a message whose source or
// target cannot be named — a pre-registration connection, or a notice
// broadcast to many unrelated recipients — rendered as "*" per
// original_source's UnknownTarget placeholder.
type UnknownSource struct{}
type UnknownTarget struct{}

func (UnknownSource) formatSource() string { return "*" }
func (UnknownTarget) formatTarget() string { return "*" }

// UserTarget names a live network.User as a message's destination.
type UserTarget struct {
	User network.User
}

func (t UserTarget) formatTarget() string { return t.User.Nickname }

// ChannelTarget names a live network.Channel as a message's destination.
type ChannelTarget struct {
	Channel network.Channel
}

func (t ChannelTarget) formatTarget() string { return t.Channel.Name }

// NameTarget is a bare string target (used for synthetic / history-replay
// targets that don't resolve back to a live Channel/User, e.g. after the
// channel has since been destroyed).
type NameTarget string

func (t NameTarget) formatTarget() string { return string(t) }

// HistoricSourceOf builds the Source a history entry should render with for
// a user, from the User snapshot the reducer's Change carried at the time —
// never the live, possibly since-renamed network.User.
func HistoricSourceOf(u network.User) Source {
	return HistoricUser{Nickname: u.Nickname, Username: u.Username, Hostname: u.Hostname}
}

// HistoricTargetOf builds the Target form of the same snapshot.
func HistoricTargetOf(u network.User) Target {
	return HistoricUser{Nickname: u.Nickname, Username: u.Username, Hostname: u.Hostname}
}
