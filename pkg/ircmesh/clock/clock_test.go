package clock_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

func id(server, epoch, seq uint64) ids.EventId {
	return ids.EventId{Server: ids.ServerId(server), Epoch: ids.EpochId(epoch), Seq: seq}
}

func clockFrom(idList ...ids.EventId) clock.EventClock {
	c := clock.New()
	for _, i := range idList {
		c = c.UpdateWithId(i)
	}
	return c
}

// Reproduces sable_network's clock_comparison test: two servers each
// contribute a sequence of events, and clocks built from prefixes of those
// sequences compare the way the causal partial order requires.
func TestClockComparison(t *testing.T) {
	ids1 := []ids.EventId{id(1, 1, 1), id(1, 1, 2), id(1, 1, 3), id(1, 2, 1)}
	ids2 := []ids.EventId{id(2, 1, 1), id(2, 1, 2), id(2, 1, 3)}

	clock1 := clockFrom(ids1[0], ids2[0])
	clock2 := clockFrom(ids1[1], ids2[1])
	require.True(t, clock1.LessOrEqual(clock2))

	clock3 := clockFrom(ids1[1])
	clock4 := clockFrom(ids1[1], ids2[1])
	require.True(t, clock3.LessOrEqual(clock4))

	clock5 := clockFrom(ids1[2])
	clock6 := clockFrom(ids1[3])
	require.True(t, clock5.Less(clock6))
}

// Worked example (b) : {S1:(1,2)} <= {S1:(1,2),S2:(1,2)}, but
// {S1:(1,2)} and {S2:(1,2)} are incomparable.
func TestClockOrderingWorkedExample(t *testing.T) {
	a := clockFrom(id(1, 1, 2))
	b := clockFrom(id(1, 1, 2), id(2, 1, 2))
	require.True(t, a.LessOrEqual(b))
	require.True(t, a.Less(b))

	c := clockFrom(id(1, 1, 2))
	d := clockFrom(id(2, 1, 2))
	require.True(t, c.Concurrent(d))
	require.False(t, c.LessOrEqual(d))
	require.False(t, d.LessOrEqual(c))
}

func TestClockEqualAndMerge(t *testing.T) {
	a := clockFrom(id(1, 1, 5))
	b := clockFrom(id(1, 1, 5))
	require.True(t, a.Equal(b))
	require.False(t, a.Less(b))

	merged := a.Merge(clockFrom(id(2, 1, 3)))
	require.True(t, a.LessOrEqual(merged))
	require.True(t, clockFrom(id(2, 1, 3)).LessOrEqual(merged))
}

func TestMissingFrom(t *testing.T) {
	have := clockFrom(id(1, 1, 2))
	want := clockFrom(id(1, 1, 2), id(2, 1, 1))

	missing := want.MissingFrom(have)
	require.Len(t, missing, 1)
	require.Equal(t, ids.ServerId(2), missing[0].Server)
}
