package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

func TestNickUniquenessAcrossConcurrentRegistrations(t *testing.T) {
	n := network.New()
	a := ids.NewUserId(1, 1)
	b := ids.NewUserId(1, 2)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, a, event.NewUser{User: a, Nickname: "zoe"}))
	n, change := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, b, event.NewUser{User: b, Nickname: "Zoe"}))

	require.IsType(t, network.Rejected{}, change.Details, "nickname comparison must be case-insensitive")
	_, ok := n.User(b)
	require.False(t, ok)
}

func TestMembershipNeverOutlivesItsUser(t *testing.T) {
	n := network.New()
	uid := ids.NewUserId(1, 1)
	cid := ids.NewChannelId(1, 1)
	mid := ids.NewMembershipId(1, 1)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, uid, event.NewUser{User: uid, Nickname: "hank"}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, uid, event.ChannelJoin{
		Membership: mid, User: uid, Channel: cid, ChannelName: "#x",
	}))
	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 3}, uid, event.UserQuit{User: uid}))

	_, ok := n.Membership(mid)
	require.False(t, ok, "membership must not survive its user's departure")
}

func TestChannelRegistrationNameUniqueness(t *testing.T) {
	n := network.New()
	a := ids.NewUserId(1, 1)
	b := ids.NewUserId(1, 2)

	n, _ = network.Apply(n, evt(ids.EventId{Server: 1, Seq: 1}, a, event.NewChannelRegistration{
		ChannelName: "#taken", RegisteredBy: a,
	}))
	n, change := network.Apply(n, evt(ids.EventId{Server: 1, Seq: 2}, b, event.NewChannelRegistration{
		ChannelName: "#taken", RegisteredBy: b,
	}))

	require.IsType(t, network.Rejected{}, change.Details)
	reg, ok := n.ChannelRegistration("#taken")
	require.True(t, ok)
	require.Equal(t, a, reg.RegisteredBy)
}
