package peer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/peer"
)

type recordingSubmitter struct {
	mu sync.Mutex
	targets []ids.ObjectId
	details []event.Details
}

func (r *recordingSubmitter) SubmitLocal(target ids.ObjectId, details event.Details) (ids.EventId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	r.details = append(r.details, details)
	return ids.EventId{}, nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.details)
}

// A peer that stays silent for longer than the configured timeout gets a
// synthesized ServerQuit for the epoch it was last seen in, 
// .
func TestPingMonitorSynthesizesServerQuitOnSilence(t *testing.T) {
	sub := &recordingSubmitter{}
	m := peer.NewPingMonitor(sub, 20*time.Millisecond, nil)

	m.Touch(ids.ServerId(7), ids.EpochId(3))

	require.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 5*time.Millisecond)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	require.Equal(t, ids.ServerId(7), sub.targets[0])
	require.Equal(t, event.ServerQuit{Server: 7, Epoch: 3}, sub.details[0])
}

// Repeated activity keeps resetting the timer, so no ServerQuit fires
// while the peer stays live.
func TestPingMonitorTouchResetsTimer(t *testing.T) {
	sub := &recordingSubmitter{}
	m := peer.NewPingMonitor(sub, 30*time.Millisecond, nil)

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		m.Touch(ids.ServerId(1), ids.EpochId(1))
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 0, sub.count())

	require.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 5*time.Millisecond)
}

// Stop cancels a pending timer outright, for the case where this node
// already learned of an explicit ServerQuit from the peer itself.
func TestPingMonitorStopCancelsTimer(t *testing.T) {
	sub := &recordingSubmitter{}
	m := peer.NewPingMonitor(sub, 15*time.Millisecond, nil)

	m.Touch(ids.ServerId(9), ids.EpochId(2))
	m.Stop(ids.ServerId(9))

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, sub.count())
}
