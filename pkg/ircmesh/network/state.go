package network

import "github.com/ircmesh/ircd/pkg/ircmesh/ids"

// Network is an immutable snapshot of the whole replicated network state.
// Every mutating method on Network returns a new Network value; the
// receiver is left untouched. A command handler that holds a Network value
// across an await point (or simply across goroutines) sees a frozen view
// even as the reducer goroutine commits further events, which is exactly
// the "reference-counted snapshot" design note here.
type Network struct {
	users collection[User] // key: UserId.String
	channels collection[Channel] // key: ChannelId.String
	memberships collection[Membership] // key: MembershipId.String
	channelRegs collection[ChannelRegistration] // key: lowercased channel name
	accounts collection[Account] // key: lowercased account name
	auditLog collection[AuditLogEntry] // key: AuditLogEntryId.String

	nickIndex collection[ids.UserId] // key: lowercased nickname
	channelNameIndex collection[ids.ChannelId] // key: lowercased channel name
	membershipsByUser collection[[]ids.MembershipId] // key: UserId.String
	membershipsByChannel collection[[]ids.MembershipId] // key: ChannelId.String
}

// New returns an empty Network snapshot.
func New() Network {
	return Network{
		users: newCollection[User](),
		channels: newCollection[Channel](),
		memberships: newCollection[Membership](),
		channelRegs: newCollection[ChannelRegistration](),
		accounts: newCollection[Account](),
		auditLog: newCollection[AuditLogEntry](),
		nickIndex: newCollection[ids.UserId](),
		channelNameIndex: newCollection[ids.ChannelId](),
		membershipsByUser: newCollection[[]ids.MembershipId](),
		membershipsByChannel: newCollection[[]ids.MembershipId](),
	}
}

// User looks up a user by id.
func (n Network) User(id ids.UserId) (User, bool) { return n.users.get(id.String()) }

// UserByNick looks up a user by case-folded nickname.
func (n Network) UserByNick(nick string) (User, bool) {
	id, ok := n.nickIndex.get(foldNick(nick))
	if !ok {
		return User{}, false
	}
	return n.users.get(id.String())
}

// Channel looks up a channel by id.
func (n Network) Channel(id ids.ChannelId) (Channel, bool) { return n.channels.get(id.String()) }

// ChannelByName looks up a channel by case-folded name.
func (n Network) ChannelByName(name string) (Channel, bool) {
	id, ok := n.channelNameIndex.get(foldChannelName(name))
	if !ok {
		return Channel{}, false
	}
	return n.channels.get(id.String())
}

// Membership looks up a single membership by id.
func (n Network) Membership(id ids.MembershipId) (Membership, bool) {
	return n.memberships.get(id.String())
}

// MembershipOf returns the membership linking user to channel, if any.
func (n Network) MembershipOf(user ids.UserId, channel ids.ChannelId) (Membership, bool) {
	mids, _ := n.membershipsByUser.get(user.String())
	for _, mid := range mids {
		m, ok := n.memberships.get(mid.String())
		if ok && m.Channel == channel {
			return m, true
		}
	}
	return Membership{}, false
}

// MembershipsOfUser returns every membership a user currently holds.
func (n Network) MembershipsOfUser(user ids.UserId) []Membership {
	mids, _ := n.membershipsByUser.get(user.String())
	return n.resolveMemberships(mids)
}

// MembershipsOfChannel returns every membership currently in a channel.
func (n Network) MembershipsOfChannel(channel ids.ChannelId) []Membership {
	mids, _ := n.membershipsByChannel.get(channel.String())
	return n.resolveMemberships(mids)
}

func (n Network) resolveMemberships(mids []ids.MembershipId) []Membership {
	out := make([]Membership, 0, len(mids))
	for _, mid := range mids {
		if m, ok := n.memberships.get(mid.String()); ok {
			out = append(out, m)
		}
	}
	return out
}

// ChannelRegistration looks up a persistent channel registration by
// case-folded name.
func (n Network) ChannelRegistration(name string) (ChannelRegistration, bool) {
	return n.channelRegs.get(foldChannelName(name))
}

// Account looks up a persistent account registration by case-folded name.
func (n Network) Account(name string) (Account, bool) {
	return n.accounts.get(foldNick(name))
}

// AuditLogEntry looks up a single audit log entry by id.
func (n Network) AuditLogEntry(id ids.AuditLogEntryId) (AuditLogEntry, bool) {
	return n.auditLog.get(id.String())
}

// AuditLog returns every audit log entry, in insertion order being not
// guaranteed (radix iteration order is key order, not insertion order);
// callers that need chronological order should sort by Timestamp.
func (n Network) AuditLog() []AuditLogEntry { return n.auditLog.values() }

// --- mutation helpers, used only by reducer.go ---

func (n Network) putUser(u User) Network {
	n.users = n.users.insert(u.ID.String(), u)
	n.nickIndex = n.nickIndex.insert(foldNick(u.Nickname), u.ID)
	return n
}

func (n Network) removeUser(u User) Network {
	n.users = n.users.delete(u.ID.String())
	n.nickIndex = n.nickIndex.delete(foldNick(u.Nickname))
	n.membershipsByUser = n.membershipsByUser.delete(u.ID.String())
	return n
}

// renameUser replaces u's nickname, moving its nickIndex entry from the old
// case-folded key to the new one. Used only by applyNickChange.
func (n Network) renameUser(u User, newNick string) Network {
	n.nickIndex = n.nickIndex.delete(foldNick(u.Nickname))
	u.Nickname = newNick
	n.users = n.users.insert(u.ID.String(), u)
	n.nickIndex = n.nickIndex.insert(foldNick(newNick), u.ID)
	return n
}

func (n Network) putChannel(c Channel) Network {
	n.channels = n.channels.insert(c.ID.String(), c)
	n.channelNameIndex = n.channelNameIndex.insert(foldChannelName(c.Name), c.ID)
	return n
}

func (n Network) removeChannel(c Channel) Network {
	n.channels = n.channels.delete(c.ID.String())
	n.channelNameIndex = n.channelNameIndex.delete(foldChannelName(c.Name))
	n.membershipsByChannel = n.membershipsByChannel.delete(c.ID.String())
	return n
}

func (n Network) putMembership(m Membership) Network {
	n.memberships = n.memberships.insert(m.ID.String(), m)
	n.membershipsByUser = n.membershipsByUser.insert(m.User.String(), appendMembership(n.membershipsByUser, m.User.String(), m.ID))
	n.membershipsByChannel = n.membershipsByChannel.insert(m.Channel.String(), appendMembership(n.membershipsByChannel, m.Channel.String(), m.ID))
	return n
}

func appendMembership(c collection[[]ids.MembershipId], key string, id ids.MembershipId) []ids.MembershipId {
	existing, _ := c.get(key)
	out := make([]ids.MembershipId, len(existing), len(existing)+1)
	copy(out, existing)
	return append(out, id)
}

func (n Network) removeMembership(m Membership) Network {
	n.memberships = n.memberships.delete(m.ID.String())
	n.membershipsByUser = n.membershipsByUser.insert(m.User.String(), removeMembershipID(n.membershipsByUser, m.User.String(), m.ID))
	n.membershipsByChannel = n.membershipsByChannel.insert(m.Channel.String(), removeMembershipID(n.membershipsByChannel, m.Channel.String(), m.ID))
	return n
}

func removeMembershipID(c collection[[]ids.MembershipId], key string, id ids.MembershipId) []ids.MembershipId {
	existing, _ := c.get(key)
	out := make([]ids.MembershipId, 0, len(existing))
	for _, mid := range existing {
		if mid != id {
			out = append(out, mid)
		}
	}
	return out
}

func (n Network) putChannelRegistration(r ChannelRegistration) Network {
	n.channelRegs = n.channelRegs.insert(foldChannelName(r.Name), r)
	return n
}

func (n Network) putAccount(a Account) Network {
	n.accounts = n.accounts.insert(foldNick(a.Name), a)
	return n
}

func (n Network) putAuditLogEntry(e AuditLogEntry) Network {
	n.auditLog = n.auditLog.insert(e.ID.String(), e)
	return n
}

func foldNick(s string) string { return asciiLower(s) }
func foldChannelName(s string) string { return asciiLower(s) }

// asciiLower folds ASCII letters only. IRC casemapping (rfc1459) also folds
// {}|^ to []\~, but Non-goals exclude casemapping negotiation, so
// plain ASCII folding is used uniformly.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
