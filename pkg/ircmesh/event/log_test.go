package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

func newTestLog() *event.Log {
	return event.NewLog(1, 1, nil, nil, 0)
}

func drain(t *testing.T, l *event.Log, n int) []event.Event {
	t.Helper()
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case e := <-l.StreamUpdates():
			out = append(out, e)
		default:
			t.Fatalf("expected %d delivered events, got %d", n, i)
		}
	}
	return out
}

func TestSubmitLocalIsImmediatelyDeliverable(t *testing.T) {
	l := newTestLog()
	id, err := l.SubmitLocal(ids.UserId{}, event.NewUser{Nickname: "alice"})
	require.NoError(t, err)
	require.Equal(t, ids.ServerId(1), id.Server)

	events := drain(t, l, 1)
	require.Equal(t, id, events[0].ID)
}

// A remote event whose clock names a dependency the log has not yet seen
// sits in the pending set until that dependency arrives.
func TestApplyRemoteDefersOnMissingDependency(t *testing.T) {
	l := newTestLog()

	dep := ids.EventId{Server: 2, Epoch: 1, Seq: 1}
	blocked := ids.EventId{Server: 2, Epoch: 1, Seq: 2}

	blockedEvent := event.Event{
		ID: blocked,
		Clock: clock.New().UpdateWithId(dep),
		Target: ids.UserId{},
		Details: event.NewUser{Nickname: "bob"},
	}
	require.NoError(t, l.ApplyRemote(blockedEvent))

	select {
	case <-l.StreamUpdates():
		t.Fatal("blocked event should not have been delivered yet")
	default:
	}

	depEvent := event.Event{
		ID: dep,
		Clock: clock.New(),
		Target: ids.UserId{},
		Details: event.NewUser{Nickname: "carol"},
	}
	require.NoError(t, l.ApplyRemote(depEvent))

	delivered := drain(t, l, 2)
	require.Equal(t, dep, delivered[0].ID)
	require.Equal(t, blocked, delivered[1].ID)
}

func TestApplyRemoteDuplicateIsIgnored(t *testing.T) {
	l := newTestLog()
	e := event.Event{
		ID: ids.EventId{Server: 2, Epoch: 1, Seq: 1},
		Clock: clock.New(),
		Target: ids.UserId{},
		Details: event.NewUser{Nickname: "dora"},
	}
	require.NoError(t, l.ApplyRemote(e))
	require.NoError(t, l.ApplyRemote(e))

	drain(t, l, 1)
	select {
	case <-l.StreamUpdates():
		t.Fatal("duplicate event should not have been redelivered")
	default:
	}
}

// The applied-event index is bounded: once more than capacity events have
// been applied, the oldest drop out of both Missing's backing order and
// the duplicate-detection index, per the memory-resident/bounded-retention
// Non-goal here.
func TestAppliedEventsAreBoundedByCapacity(t *testing.T) {
	l := event.NewLog(1, 1, nil, nil, 2)

	var ids3 [3]ids.EventId
	for i := 0; i < 3; i++ {
		id, err := l.SubmitLocal(ids.UserId{}, event.NewUser{Nickname: "user"})
		require.NoError(t, err)
		ids3[i] = id
	}
	drain(t, l, 3)

	missing := l.Missing(clock.New())
	require.Len(t, missing, 2, "only the 2 most recent applied events should be retained")
	require.Equal(t, ids3[1], missing[0].ID)
	require.Equal(t, ids3[2], missing[1].ID)
}

func TestMissingReturnsEventsAfterPeerClock(t *testing.T) {
	l := newTestLog()
	id1, err := l.SubmitLocal(ids.UserId{}, event.NewUser{Nickname: "erin"})
	require.NoError(t, err)
	drain(t, l, 1)
	peerClock := l.CurrentClock()

	id2, err := l.SubmitLocal(ids.UserId{}, event.NewUser{Nickname: "frank"})
	require.NoError(t, err)
	drain(t, l, 1)

	missing := l.Missing(clock.New())
	require.Len(t, missing, 2)

	missingAfterFirst := l.Missing(peerClock)
	require.Len(t, missingAfterFirst, 1)
	require.Equal(t, id2, missingAfterFirst[0].ID)
	_ = id1
}
