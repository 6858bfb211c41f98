package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/history"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

func entry(id uint64, ts int64, target string, users ...ids.UserId) history.Entry {
	notify := make(map[ids.UserId]struct{}, len(users))
	for _, u := range users {
		notify[u] = struct{}{}
	}
	return history.Entry{
		ID: ids.EventId{Server: 1, Epoch: 1, Seq: id},
		Timestamp: ts,
		Target: target,
		Details: network.Change{Details: network.Rejected{Reason: "test fixture"}},
		UsersToNotify: notify,
	}
}

func TestAppendAndEntriesForChannel(t *testing.T) {
	l := history.NewLog(10, nil)
	l.Append(entry(1, 10, "#chan"))
	l.Append(entry(2, 20, "#chan"))
	l.Append(entry(3, 30, "#other"))

	entries := l.EntriesForChannel("#chan")
	require.Len(t, entries, 2)
	require.Equal(t, int64(10), entries[0].Timestamp)
	require.Equal(t, int64(20), entries[1].Timestamp)
}

func TestAppendEvictsOldestOnceOverCapacity(t *testing.T) {
	l := history.NewLog(2, nil)
	l.Append(entry(1, 10, "#chan"))
	l.Append(entry(2, 20, "#chan"))
	l.Append(entry(3, 30, "#chan"))

	entries := l.EntriesForChannel("#chan")
	require.Len(t, entries, 2)
	require.Equal(t, int64(20), entries[0].Timestamp)
	require.Equal(t, int64(30), entries[1].Timestamp)
}

func TestEntriesForUserReverseOrder(t *testing.T) {
	u := ids.NewUserId(1, 1)
	l := history.NewLog(10, nil)
	l.Append(entry(1, 10, "#chan", u))
	l.Append(entry(2, 20, "#chan", u))

	rev := l.EntriesForUserReverse(u)
	require.Len(t, rev, 2)
	require.Equal(t, int64(20), rev[0].Timestamp)
	require.Equal(t, int64(10), rev[1].Timestamp)
}

func TestEvictionRemovesFromUserIndexToo(t *testing.T) {
	u := ids.NewUserId(1, 1)
	l := history.NewLog(1, nil)
	l.Append(entry(1, 10, "#chan", u))
	l.Append(entry(2, 20, "#chan", u))

	require.Len(t, l.EntriesForUser(u), 1)
	require.Equal(t, int64(20), l.EntriesForUser(u)[0].Timestamp)
}

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	a := ids.NewUserId(1, 1)
	b := ids.NewUserId(1, 2)
	require.Equal(t, history.ConversationKey(a, b), history.ConversationKey(b, a))
}
