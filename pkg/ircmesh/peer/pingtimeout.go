package peer

import (
	"sync"
	"time"

	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// Submitter is the event log's local-submission surface, narrowed so
// PingMonitor doesn't need the rest of *event.Log's API (and tests can
// supply a fake that records calls instead of standing up a whole Log).
type Submitter interface {
	SubmitLocal(target ids.ObjectId, details event.Details) (ids.EventId, error)
}

// PingMonitor tracks per-peer liveness and synthesizes a local ServerQuit
// event for a peer that has gone silent longer than Timeout. The timer
// itself — like the ping/liveness loop generally — lives outside the
// core's own responsibility (the Non-goals), but the *reaction*,
// synthesizing ServerQuit, belongs here because it is a replicated state
// mutation that must flow through SubmitLocal like any other event.
type PingMonitor struct {
	mu sync.Mutex
	timers map[ids.ServerId]*time.Timer
	epochs map[ids.ServerId]ids.EpochId
	timeout time.Duration
	submit Submitter
	log definition.Logger
}

// NewPingMonitor builds a PingMonitor that submits through submit. timeout
// is expected to be definition.DefaultPeerPingTimeout in production
// (240s); tests pass something far shorter.
func NewPingMonitor(submit Submitter, timeout time.Duration, log definition.Logger) *PingMonitor {
	return &PingMonitor{
		timers: make(map[ids.ServerId]*time.Timer),
		epochs: make(map[ids.ServerId]ids.EpochId),
		timeout: timeout,
		submit: submit,
		log: log,
	}
}

// Touch records a frame received from server in the given epoch and
// (re)arms its silence timer. Called once per received EventStream frame
// (including a ServerPing heartbeat) and once when a Link to a new peer is
// first established. A higher epoch than previously seen replaces the
// tracked one outright — the "if the peer returns with a higher
// EpochId, its events are accepted and reconciled by the reducer as a
// fresh server instance" — so a synthesized ServerQuit for the old epoch
// that is still in flight does not cancel monitoring of the new one.
func (m *PingMonitor) Touch(server ids.ServerId, epoch ids.EpochId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epochs[server] = epoch
	if t, ok := m.timers[server]; ok {
		t.Stop()
	}
	m.timers[server] = time.AfterFunc(m.timeout, func() { m.fire(server) })
}

// Stop cancels monitoring of server, used when this node itself learns of
// an explicit ServerQuit (no need to synthesize one after the fact).
func (m *PingMonitor) Stop(server ids.ServerId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[server]; ok {
		t.Stop()
		delete(m.timers, server)
	}
	delete(m.epochs, server)
}

// fire runs when server's silence timer expires: it submits a local
// ServerQuit for the epoch last seen from that peer.
func (m *PingMonitor) fire(server ids.ServerId) {
	m.mu.Lock()
	epoch, ok := m.epochs[server]
	delete(m.timers, server)
	delete(m.epochs, server)
	m.mu.Unlock()
	if !ok {
		return
	}

	if m.log != nil {
		m.log.Warnf("peer %s silent for %s, synthesizing ServerQuit", server, m.timeout)
	}
	if _, err := m.submit.SubmitLocal(server, event.ServerQuit{Server: server, Epoch: epoch}); err != nil && m.log != nil {
		m.log.Errorf("peer %s: failed submitting synthesized ServerQuit: %v", server, err)
	}
}
