package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/history"
)

func timestamps(entries []history.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Timestamp
	}
	return out
}

func fixtureLog(t *testing.T) *history.Log {
	t.Helper()
	l := history.NewLog(100, nil)
	for i, ts := range []int64{10, 20, 30, 40, 50} {
		l.Append(entry(uint64(i+1), ts, "#c"))
	}
	return l
}

// this: BETWEEN #c 15 45 10 on timestamps {10,20,30,40,50} returns
// the three messages at {20,30,40} in forward order.
func TestChathistoryBetweenExclusiveBothEnds(t *testing.T) {
	l := fixtureLog(t)
	got := l.Between("#c", 15, 45, 10)
	require.Equal(t, []int64{20, 30, 40}, timestamps(got))
}

func TestChathistoryBeforeIsMostRecentFirstAndExclusive(t *testing.T) {
	l := fixtureLog(t)
	got := l.Before("#c", 30, 10)
	require.Equal(t, []int64{20, 10}, timestamps(got))
}

func TestChathistoryAfterIsOldestFirstAndExclusive(t *testing.T) {
	l := fixtureLog(t)
	got := l.After("#c", 30, 10)
	require.Equal(t, []int64{40, 50}, timestamps(got))
}

func TestChathistoryLatestRespectsFromCap(t *testing.T) {
	l := fixtureLog(t)
	got := l.Latest("#c", true, 20, 10)
	require.Equal(t, []int64{50, 40, 30}, timestamps(got))
}

func TestChathistoryLatestWithoutFromCapReturnsNewestUpToLimit(t *testing.T) {
	l := fixtureLog(t)
	got := l.Latest("#c", false, 0, 3)
	require.Equal(t, []int64{50, 40, 30}, timestamps(got))
}

func TestChathistoryAroundSplitsLimitBeforeAndAfter(t *testing.T) {
	l := fixtureLog(t)
	got := l.Around("#c", 30, 4)
	require.Equal(t, []int64{10, 20, 40, 50}, timestamps(got))
}

func TestChathistoryTargetsCollectsDistinctTargetsInRange(t *testing.T) {
	l := history.NewLog(100, nil)
	l.Append(entry(1, 10, "#a"))
	l.Append(entry(2, 20, "#b"))
	l.Append(entry(3, 30, "#a"))
	l.Append(entry(4, 60, "#c")) // outside range, excluded

	got := l.Targets(5, 45, 10)
	require.Equal(t, []string{"#a", "#b"}, got)
}
