// Package network holds the replicated network state and the pure reducer
// that turns a causally-ordered event.Event stream into successive
// immutable Network snapshots.
package network

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// Apply folds a single event into n, returning the resulting snapshot and a
// description of what changed. Apply never returns an error: an event that
// violates an invariant (e.g. a nick collision) is applied as a no-op with
// a Rejected Change rather than rejected at the log layer, since by the
// time an event reaches here every node in the cluster has already agreed,
// via the causal clock, to apply it in this order.
func Apply(n Network, e event.Event) (Network, Change) {
	switch d := e.Details.(type) {
	case event.NewUser:
		return applyNewUser(n, e, d)
	case event.NickChange:
		return applyNickChange(n, e, d)
	case event.UserQuit:
		return applyUserQuit(n, d)
	case event.ChannelJoin:
		return applyChannelJoin(n, e, d)
	case event.ChannelPart:
		return applyChannelPart(n, d)
	case event.ChannelModeChange:
		return applyChannelModeChange(n, d)
	case event.MembershipModeChange:
		return applyMembershipModeChange(n, d)
	case event.TopicChange:
		return applyTopicChange(n, d)
	case event.NewMessage:
		return applyNewMessage(n, d)
	case event.NewChannelRegistration:
		return applyNewChannelRegistration(n, e, d)
	case event.NewAccountRegistration:
		return applyNewAccountRegistration(n, e, d)
	case event.NewAuditLogEntry:
		return applyNewAuditLogEntry(n, e, d)
	case event.ServerPing:
		return n, Change{Details: Rejected{Reason: "ServerPing carries no state"}}
	case event.ServerQuit:
		return applyServerQuit(n, d)
	default:
		return n, Change{Details: Rejected{Reason: "unknown event details type"}}
	}
}

// winsOver reports whether e should be treated as the surviving writer
// against an existing holder whose nickname/registration was last granted
// by an event with the given (timestamp, server), per the event package's
// (Timestamp, ServerId) tie-break. This is evaluated against every
// collision regardless of which side the log happened to apply first
// locally, so two nodes that apply the same pair of conflicting events in
// opposite local order still converge on the same winner. The challenger
// must be strictly earlier in both directions of event.Before: an exact
// (timestamp, server) tie — only possible in practice between an event and
// itself, or in tests that leave Timestamp at its zero value — leaves the
// incumbent in place rather than flip-flopping.
func winsOver(e event.Event, holderTimestamp int64, holderServer ids.ServerId) bool {
	ref := event.Event{Timestamp: holderTimestamp, ID: ids.EventId{Server: holderServer}}
	return event.Before(e, ref) && !event.Before(ref, e)
}

// removeUserCascade evicts u and every membership it holds, with no Change
// emitted — used only to retract a user that a later-arriving but
// tie-break-winning event supersedes.
func removeUserCascade(n Network, u User) Network {
	for _, m := range n.MembershipsOfUser(u.ID) {
		n = n.removeMembership(m)
	}
	return n.removeUser(u)
}

// applyNewUser rejects the event if Nickname is already held by a live user
// and that user's own claim wins the (timestamp, ServerId) tie-break. If
// the incoming event instead wins the tie-break — possible when this node
// applied the eventual loser's NewUser locally before the winner's event
// arrived from a peer — the existing holder is evicted and replaced, so the
// nickname always converges to the same winner regardless of local arrival
// order (spec worked scenario (c)).
func applyNewUser(n Network, e event.Event, d event.NewUser) (Network, Change) {
	if holder, taken := n.UserByNick(d.Nickname); taken {
		if !winsOver(e, holder.NickTimestamp, holder.NickServer) {
			return n, Change{Details: Rejected{Reason: "nickname in use: " + d.Nickname}}
		}
		n = removeUserCascade(n, holder)
	}
	u := User{
		ID: d.User,
		Nickname: d.Nickname,
		Username: d.Username,
		Hostname: d.Hostname,
		Realname: d.Realname,
		Server: e.ID.Server,
		NickTimestamp: e.Timestamp,
		NickServer: e.ID.Server,
	}
	u = u.withModes(d.Modes, nil)
	n = n.putUser(u)
	return n, Change{Details: UserJoined{User: u}, Notify: notifySet(u.ID)}
}

// applyNickChange rejects the rename if NewNickname is already held by a
// different live user whose claim wins the (timestamp, ServerId) tie-break
// against e; otherwise — including when the existing holder was only
// applied first locally but loses the tie-break — that holder is evicted
// and the rename proceeds, the same convergence rule applyNewUser uses.
func applyNickChange(n Network, e event.Event, d event.NickChange) (Network, Change) {
	u, ok := n.User(d.User)
	if !ok {
		return n, Change{Details: Rejected{Reason: "nick change for unknown user"}}
	}
	if holder, taken := n.UserByNick(d.NewNickname); taken && holder.ID != d.User {
		if !winsOver(e, holder.NickTimestamp, holder.NickServer) {
			return n, Change{Details: Rejected{Reason: "nickname in use: " + d.NewNickname}}
		}
		n = removeUserCascade(n, holder)
	}
	old := u.Nickname
	notify := notifySet(u.ID)
	for _, m := range n.MembershipsOfUser(u.ID) {
		notifyMemberships(notify, n.MembershipsOfChannel(m.Channel))
	}
	u.NickTimestamp = e.Timestamp
	u.NickServer = e.ID.Server
	n = n.renameUser(u, d.NewNickname)
	return n, Change{Details: NicknameChanged{User: u, OldNick: old, NewNick: d.NewNickname}, Notify: notify}
}

func applyUserQuit(n Network, d event.UserQuit) (Network, Change) {
	u, ok := n.User(d.User)
	if !ok {
		return n, Change{Details: Rejected{Reason: "quit for unknown user"}}
	}
	memberships := n.MembershipsOfUser(d.User)
	notify := notifySet(u.ID)
	for _, m := range memberships {
		notifyMemberships(notify, n.MembershipsOfChannel(m.Channel))
		n = n.removeMembership(m)
		if len(n.MembershipsOfChannel(m.Channel)) == 0 {
			if ch, ok := n.Channel(m.Channel); ok {
				if _, registered := n.ChannelRegistration(ch.Name); !registered {
					n = n.removeChannel(ch)
				}
			}
		}
	}
	n = n.removeUser(u)
	return n, Change{Details: UserQuit{User: u, Memberships: memberships, Reason: d.Reason}, Notify: notify}
}

// applyChannelJoin creates Channel first if this is its first member,
// per the "a channel exists for as long as it has at least one
// member, or a persistent registration". A user may hold at most one
// membership per channel (§3 invariant): if one already exists, the join
// is rejected unless e wins the (timestamp, ServerId) tie-break against
// the existing membership's originating join, in which case the existing
// one is retracted and replaced — the same convergence rule
// applyNewUser uses, so two concurrent joins of the same (user, channel)
// pair always settle on the same surviving Membership regardless of which
// node saw which one first.
func applyChannelJoin(n Network, e event.Event, d event.ChannelJoin) (Network, Change) {
	if existing, exists := n.MembershipOf(d.User, d.Channel); exists {
		if !winsOver(e, existing.JoinTimestamp, existing.JoinServer) {
			return n, Change{Details: Rejected{Reason: "already a member"}}
		}
		n = n.removeMembership(existing)
	}

	channel, existed := n.Channel(d.Channel)
	created := false
	if !existed {
		channel = Channel{ID: d.Channel, Name: d.ChannelName, Modes: map[event.ChannelModeFlag]string{}}
		created = true
	}
	n = n.putChannel(channel)

	m := Membership{ID: d.Membership, User: d.User, Channel: d.Channel, JoinTimestamp: e.Timestamp, JoinServer: e.ID.Server}
	m = m.withFlags(d.Flags, nil)
	n = n.putMembership(m)

	notify := notifySet()
	notifyMemberships(notify, n.MembershipsOfChannel(d.Channel))
	return n, Change{Details: ChannelJoin{Membership: m, Channel: channel, ChannelCreated: created}, Notify: notify}
}

// applyChannelPart removes the membership and, if it was the last one and
// the channel carries no persistent registration, drops the channel too
// (by design).
func applyChannelPart(n Network, d event.ChannelPart) (Network, Change) {
	m, ok := n.Membership(d.Membership)
	if !ok {
		return n, Change{Details: Rejected{Reason: "part for unknown membership"}}
	}
	channel, _ := n.Channel(m.Channel)
	notify := notifySet()
	notifyMemberships(notify, n.MembershipsOfChannel(m.Channel)) // includes the parting user
	n = n.removeMembership(m)

	emptied := false
	if remaining := n.MembershipsOfChannel(m.Channel); len(remaining) == 0 {
		if _, registered := n.ChannelRegistration(channel.Name); !registered {
			n = n.removeChannel(channel)
			emptied = true
		}
	}
	return n, Change{Details: ChannelPart{Membership: m, Channel: channel, Reason: d.Reason, ChannelEmptied: emptied}, Notify: notify}
}

func applyChannelModeChange(n Network, d event.ChannelModeChange) (Network, Change) {
	channel, ok := n.Channel(d.Channel)
	if !ok {
		return n, Change{Details: Rejected{Reason: "mode change for unknown channel"}}
	}
	channel = channel.withModes(d.Added, d.Removed)
	n = n.putChannel(channel)

	removed := make([]event.ChannelModeFlag, 0, len(d.Removed))
	for f := range d.Removed {
		removed = append(removed, f)
	}
	notify := notifySet()
	notifyMemberships(notify, n.MembershipsOfChannel(d.Channel))
	return n, Change{Details: ChannelModeChanged{Channel: d.Channel, Added: d.Added, Removed: removed}, Notify: notify}
}

func applyMembershipModeChange(n Network, d event.MembershipModeChange) (Network, Change) {
	m, ok := n.Membership(d.Membership)
	if !ok {
		return n, Change{Details: Rejected{Reason: "mode change for unknown membership"}}
	}
	m = m.withFlags(d.Added, d.Removed)
	n.memberships = n.memberships.insert(m.ID.String(), m)
	notify := notifySet()
	notifyMemberships(notify, n.MembershipsOfChannel(m.Channel))
	return n, Change{Details: MembershipModeChanged{Membership: m, Added: d.Added, Removed: d.Removed}, Notify: notify}
}

func applyTopicChange(n Network, d event.TopicChange) (Network, Change) {
	channel, ok := n.Channel(d.Channel)
	if !ok {
		return n, Change{Details: Rejected{Reason: "topic change for unknown channel"}}
	}
	channel.Topic = d.Topic
	n = n.putChannel(channel)
	notify := notifySet()
	notifyMemberships(notify, n.MembershipsOfChannel(d.Channel))
	return n, Change{Details: TopicChanged{Channel: d.Channel, Topic: d.Topic, SetBy: d.SetBy}, Notify: notify}
}

// applyNewMessage never mutates persistent state; the history package
// consumes Change events of this kind to append into its own bounded ring,
// per the Non-goals ("message history is not part of the
// replicated network state").
func applyNewMessage(n Network, d event.NewMessage) (Network, Change) {
	notify := notifySet()
	switch {
	case d.ToChannel != nil:
		notifyMemberships(notify, n.MembershipsOfChannel(*d.ToChannel))
	case d.ToUser != nil:
		notify[d.From] = struct{}{}
		notify[*d.ToUser] = struct{}{}
	}
	return n, Change{Details: MessageDelivered{Message: d.Message, From: d.From}, Notify: notify}
}

// applyNewChannelRegistration enforces name uniqueness; a concurrent
// registration for the same name is arbitrated by the (timestamp,
// ServerId) tie-break rather than by which one this node happened to apply
// first, so every node converges on the same registration owner.
func applyNewChannelRegistration(n Network, e event.Event, d event.NewChannelRegistration) (Network, Change) {
	if holder, taken := n.ChannelRegistration(d.ChannelName); taken {
		if !winsOver(e, holder.Timestamp, holder.Server) {
			return n, Change{Details: Rejected{Reason: "channel already registered: " + d.ChannelName}}
		}
	}
	r := ChannelRegistration{Name: d.ChannelName, RegisteredBy: d.RegisteredBy, Timestamp: e.Timestamp, Server: e.ID.Server}
	n = n.putChannelRegistration(r)
	return n, Change{Details: ChannelRegistered{Registration: r}, Notify: notifySet(d.RegisteredBy)}
}

// applyNewAccountRegistration is the Account analogue of
// applyNewChannelRegistration: a concurrent registration for the same name
// is arbitrated by the (timestamp, ServerId) tie-break.
func applyNewAccountRegistration(n Network, e event.Event, d event.NewAccountRegistration) (Network, Change) {
	if holder, taken := n.Account(d.AccountName); taken {
		if !winsOver(e, holder.Timestamp, holder.Server) {
			return n, Change{Details: Rejected{Reason: "account already registered: " + d.AccountName}}
		}
	}
	a := Account{Name: d.AccountName, Owner: d.Owner, Timestamp: e.Timestamp, Server: e.ID.Server}
	n = n.putAccount(a)
	return n, Change{Details: AccountRegistered{Account: a}, Notify: notifySet(d.Owner)}
}

func applyNewAuditLogEntry(n Network, e event.Event, d event.NewAuditLogEntry) (Network, Change) {
	entry := AuditLogEntry{ID: d.Entry, Timestamp: e.Timestamp, Category: d.Category, Fields: d.Fields}
	n = n.putAuditLogEntry(entry)
	return n, Change{Details: AuditLogAppended{Entry: entry}}
}

// applyServerQuit removes every user whose Server matches the departing
// peer, along with every membership they held, in a single Change so
// dispatch can fan out one combined notification rather than one per user
// (by design).
func applyServerQuit(n Network, d event.ServerQuit) (Network, Change) {
	var users []User
	var memberships []Membership
	n.users.each(func(_ string, u User) bool {
		if u.Server == d.Server {
			users = append(users, u)
		}
		return true
	})
	notify := notifySet()
	for _, u := range users {
		ms := n.MembershipsOfUser(u.ID)
		memberships = append(memberships, ms...)
		for _, m := range ms {
			notifyMemberships(notify, n.MembershipsOfChannel(m.Channel))
		}
	}
	for _, m := range memberships {
		n = n.removeMembership(m)
		if len(n.MembershipsOfChannel(m.Channel)) == 0 {
			if ch, ok := n.Channel(m.Channel); ok {
				if _, registered := n.ChannelRegistration(ch.Name); !registered {
					n = n.removeChannel(ch)
				}
			}
		}
	}
	for _, u := range users {
		n = n.removeUser(u)
	}
	return n, Change{Details: ServerQuitBulk{Server: d.Server, Users: users, Memberships: memberships}, Notify: notify}
}
