package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

func evt(id ids.EventId, target ids.ObjectId, d event.Details) event.Event {
	return event.Event{ID: id, Target: target, Details: d}
}

func evtAt(id ids.EventId, ts int64, target ids.ObjectId, d event.Details) event.Event {
	return event.Event{ID: id, Timestamp: ts, Target: target, Details: d}
}

func TestApplyNewUserThenLookup(t *testing.T) {
	n := network.New()
	uid := ids.NewUserId(1, 1)
	n, change := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, uid, event.NewUser{
		User: uid, Nickname: "alice", Username: "a", Hostname: "h", Realname: "Alice",
	}))
	require.IsType(t, network.UserJoined{}, change.Details)

	u, ok := n.UserByNick("ALICE")
	require.True(t, ok, "nickname lookup should be case-insensitive")
	require.Equal(t, uid, u.ID)
}

// Two NewUser events for the same nickname with equal timestamps: the
// (timestamp, ServerId) tie-break gives the nickname to the lower ServerId,
// here the first writer, and the reducer must reject the second
// deterministically rather than letting both survive.
func TestNickCollisionRejectsSecondWriter(t *testing.T) {
	n := network.New()
	first := ids.NewUserId(1, 1)
	second := ids.NewUserId(2, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, first, event.NewUser{
		User: first, Nickname: "bob",
	}))
	n, change := network.Apply(n, evt(ids.EventId{Server: 2, Seq: 1}, second, event.NewUser{
		User: second, Nickname: "bob",
	}))

	require.IsType(t, network.Rejected{}, change.Details)
	u, ok := n.UserByNick("bob")
	require.True(t, ok)
	require.Equal(t, first, u.ID, "first writer should own the nickname")
}

// Worked scenario (c): two nodes concurrently apply NewUser(nick="alice")
// at timestamps 100 and 101. One node happens to receive the eventual
// loser (ts=101) first via SubmitLocal and applies it immediately, only
// seeing the winner (ts=100) later from the peer. Regardless of that local
// arrival order, the (timestamp, ServerId) tie-break must leave exactly one
// "alice" in state: the one timestamped 100.
func TestNickCollisionRaceConvergesRegardlessOfArrivalOrder(t *testing.T) {
	loser := ids.NewUserId(2, 1)
	winner := ids.NewUserId(1, 1)

	// Node that sees the loser (ts=101) first, then the winner (ts=100).
	n := network.New()
	n, _ = network.Apply(n, evtAt(ids.EventId{Server: 2, Seq: 1}, 101, loser, event.NewUser{
		User: loser, Nickname: "alice",
	}))
	n, change := network.Apply(n, evtAt(ids.EventId{Server: 1, Seq: 1}, 100, winner, event.NewUser{
		User: winner, Nickname: "alice",
	}))
	require.IsType(t, network.UserJoined{}, change.Details, "the timestamp-100 event must win even arriving second")

	u, ok := n.UserByNick("alice")
	require.True(t, ok)
	require.Equal(t, winner, u.ID)
	_, ok = n.User(loser)
	require.False(t, ok, "the loser's UserId must be absent from state")

	// The other node sees them in causal/timestamp order (winner first);
	// it must converge on the exact same state.
	other := network.New()
	other, _ = network.Apply(other, evtAt(ids.EventId{Server: 1, Seq: 1}, 100, winner, event.NewUser{
		User: winner, Nickname: "alice",
	}))
	other, _ = network.Apply(other, evtAt(ids.EventId{Server: 2, Seq: 1}, 101, loser, event.NewUser{
		User: loser, Nickname: "alice",
	}))

	ou, ok := other.UserByNick("alice")
	require.True(t, ok)
	require.Equal(t, winner, ou.ID)
	_, ok = other.User(loser)
	require.False(t, ok)
}

// Two concurrent ChannelJoin events for the same (user, channel) pair must
// converge on exactly one Membership regardless of which one a given node
// applies first, per the §3 invariant ("at most one [membership] per
// (user, channel)").
func TestConcurrentJoinsOfSameUserAndChannelConverge(t *testing.T) {
	uid := ids.NewUserId(1, 1)
	cid := ids.NewChannelId(1, 1)
	earlyMid := ids.NewMembershipId(1, 1)
	lateMid := ids.NewMembershipId(2, 1)

	build := func(firstTimestamp, secondTimestamp int64, firstID, secondID ids.EventId, firstMid, secondMid ids.MembershipId) network.Network {
		n := network.New()
		n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 0}, uid, event.NewUser{User: uid, Nickname: "moss"}))
		n, _ = network.Apply(n, evtAt(firstID, firstTimestamp, uid, event.ChannelJoin{
			Membership: firstMid, User: uid, Channel: cid, ChannelName: "#race",
		}))
		n, _ = network.Apply(n, evtAt(secondID, secondTimestamp, uid, event.ChannelJoin{
			Membership: secondMid, User: uid, Channel: cid, ChannelName: "#race",
		}))
		return n
	}

	// Node A sees the earlier-timestamped join first (the natural order).
	a := build(10, 20, ids.EventId{Server: 1, Seq: 1}, ids.EventId{Server: 2, Seq: 1}, earlyMid, lateMid)
	// Node B sees the later-timestamped join first.
	b := build(20, 10, ids.EventId{Server: 2, Seq: 1}, ids.EventId{Server: 1, Seq: 1}, lateMid, earlyMid)

	memA := a.MembershipsOfUser(uid)
	memB := b.MembershipsOfUser(uid)
	require.Len(t, memA, 1)
	require.Len(t, memB, 1)
	require.Equal(t, earlyMid, memA[0].ID, "the earlier-timestamped join must survive")
	require.Equal(t, memA[0].ID, memB[0].ID, "both nodes must converge on the same surviving membership")
}

// Joining then quitting must leave no dangling membership and, since no
// other member remains and the channel was never registered, the channel
// itself disappears too.
func TestJoinThenQuitCleansUpMembershipAndChannel(t *testing.T) {
	n := network.New()
	uid := ids.NewUserId(1, 1)
	cid := ids.NewChannelId(1, 1)
	mid := ids.NewMembershipId(1, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, uid, event.NewUser{User: uid, Nickname: "carol"}))
	n, joinChange := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, uid, event.ChannelJoin{
		Membership: mid, User: uid, Channel: cid, ChannelName: "#test",
	}))
	jc := joinChange.Details.(network.ChannelJoin)
	require.True(t, jc.ChannelCreated)

	_, ok := n.Channel(cid)
	require.True(t, ok)

	n, quitChange := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 3}, uid, event.UserQuit{User: uid, Reason: "bye"}))
	uq := quitChange.Details.(network.UserQuit)
	require.Len(t, uq.Memberships, 1)
	require.Equal(t, mid, uq.Memberships[0].ID)

	_, ok = n.Channel(cid)
	require.False(t, ok, "channel with no members and no registration should be removed")
	require.Empty(t, n.MembershipsOfUser(uid))
	require.Empty(t, n.MembershipsOfChannel(cid))
}

func TestChannelSurvivesPartWhenRegistered(t *testing.T) {
	n := network.New()
	uid := ids.NewUserId(1, 1)
	cid := ids.NewChannelId(1, 1)
	mid := ids.NewMembershipId(1, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, uid, event.NewUser{User: uid, Nickname: "dave"}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, uid, event.ChannelJoin{
		Membership: mid, User: uid, Channel: cid, ChannelName: "#persist",
	}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 3}, cid, event.NewChannelRegistration{
		ChannelName: "#persist", RegisteredBy: uid,
	}))
	n, partChange := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 4}, mid, event.ChannelPart{
		Membership: mid, Reason: "leaving",
	}))

	pc := partChange.Details.(network.ChannelPart)
	require.False(t, pc.ChannelEmptied)
	_, ok := n.ChannelByName("#persist")
	require.True(t, ok)
}

func TestServerQuitRemovesOnlyThatServersUsers(t *testing.T) {
	n := network.New()
	u1 := ids.NewUserId(1, 1)
	u2 := ids.NewUserId(2, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, u1, event.NewUser{User: u1, Nickname: "eve"}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 2, Seq: 1}, u2, event.NewUser{User: u2, Nickname: "frank"}))

	n, change := network.Apply(n, evt(ids.EventId{Server: 2, Seq: 2}, ids.ServerId(2), event.ServerQuit{Server: 2}))

	bulk := change.Details.(network.ServerQuitBulk)
	require.Len(t, bulk.Users, 1)
	require.Equal(t, u2, bulk.Users[0].ID)

	_, ok := n.User(u1)
	require.True(t, ok)
	_, ok = n.User(u2)
	require.False(t, ok)
}

func TestMembershipModeChangeAddsAndRemovesFlags(t *testing.T) {
	n := network.New()
	uid := ids.NewUserId(1, 1)
	cid := ids.NewChannelId(1, 1)
	mid := ids.NewMembershipId(1, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, uid, event.NewUser{User: uid, Nickname: "gail"}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, uid, event.ChannelJoin{
		Membership: mid, User: uid, Channel: cid, ChannelName: "#ops",
	}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 3}, mid, event.MembershipModeChange{
		Membership: mid, Added: []event.MembershipFlag{event.MembershipOp},
	}))

	m, ok := n.Membership(mid)
	require.True(t, ok)
	require.Contains(t, m.Flags, event.MembershipOp)
}
