package event

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

var (
	// ErrLogCorruption names the condition of an event that references a
	// target which should already exist by virtue of its clock but does
	// not. Nothing in this package returns it: Log does not inspect event
	// targets, and the network reducer answers such an event with a
	// Rejected change rather than shutting the log down.
	ErrLogCorruption = errors.New("event log: referenced target missing a prior creating event")

	// ErrLogClosed is returned by SubmitLocal/ApplyRemote once Shutdown has
	// been called.
	ErrLogClosed = errors.New("event log: closed")
)

// Broadcaster forwards newly committed local events to peers. It is
// implemented by pkg/ircmesh/peer and injected at construction time, the
// same way go-mcast's Peer takes a Transport — this keeps the event log
// ignorant of the wire protocol used to reach other nodes.
type Broadcaster interface {
	Broadcast(e Event) error
}

// pendingEvent is a remote event that arrived before its causal
// dependencies were satisfied.
type pendingEvent struct {
	event Event
}

// Log is the append-only, causally-ordered event log every node maintains.
// It owns exactly one thing: the order in which events become observable
// (StreamUpdates) to the rest of the node. It does not interpret event
// content at all — that is the network reducer's job.
type Log struct {
	mu sync.Mutex

	server ids.ServerId
	epoch ids.EpochId
	gen *ids.SeqGenerator

	clk clock.EventClock

	// capacity bounds both appliedIDs and order: this is a memory-resident
	// log with bounded retention, not a durable one, so the
	// already-applied-ID index cannot be allowed to grow for the life of
	// the process.
	capacity int

	// appliedIDs guards against re-delivering a duplicate EventId. Each
	// entry's value is its *list.Element in order, so evicting the oldest
	// applied event is an O(1) removal from both structures at once — the
	// same node/list pairing history.Log uses for its own bounded ring.
	appliedIDs map[ids.EventId]*list.Element

	// pending holds remote events still waiting on an unmet dependency,
	// re-scanned after every successful apply.
	pending []pendingEvent

	// order is the applied history, oldest at Front, used to answer
	// Missing and bounded to capacity entries. A resync request for an
	// event older than the oldest retained one simply cannot be answered
	// beyond that point, per the Non-goals here.
	order *list.List

	broadcaster Broadcaster
	out chan Event
	log definition.Logger
	closed bool
}

// NewLog constructs a Log for the given server/epoch. broadcaster may be
// nil for a single-node deployment or in tests. capacity bounds the
// applied-event retention (appliedIDs/order); zero or negative falls back
// to definition.DefaultHistoryCapacity.
func NewLog(server ids.ServerId, epoch ids.EpochId, broadcaster Broadcaster, logger definition.Logger, capacity int) *Log {
	if capacity <= 0 {
		capacity = definition.DefaultHistoryCapacity
	}
	return &Log{
		server: server,
		epoch: epoch,
		gen: ids.NewSeqGenerator(server, epoch),
		clk: clock.New(),
		capacity: capacity,
		appliedIDs: make(map[ids.EventId]*list.Element),
		order: list.New(),
		broadcaster: broadcaster,
		out: make(chan Event, 256),
		log: logger,
	}
}

// SetBroadcaster wires b as the log's peer fan-out target. Exists because
// a node's peer.Manager needs a reference to the Log to satisfy the
// EventLog interface it consumes, while the Log needs a reference to the
// Manager to satisfy Broadcaster — cmd/ircmesh resolves the cycle by
// constructing the Log first with a nil broadcaster and wiring the
// Manager in immediately afterward, before any event is submitted.
func (l *Log) SetBroadcaster(b Broadcaster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcaster = b
}

// CurrentClock returns a snapshot of the log's current clock.
func (l *Log) CurrentClock() clock.EventClock {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clk
}

// StreamUpdates returns the channel of events as they become causally
// deliverable, in delivery order. It is read by exactly one consumer: the
// network reducer goroutine.
func (l *Log) StreamUpdates() <-chan Event {
	return l.out
}

// SubmitLocal builds an event whose clock is the log's current max clock,
// assigns the next local sequence, appends it, and forwards it to peers.
func (l *Log) SubmitLocal(target ids.ObjectId, details Details) (ids.EventId, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ids.EventId{}, ErrLogClosed
	}
	id := ids.EventId{Server: l.server, Epoch: l.epoch, Seq: l.gen.Next()}
	e := Event{
		ID: id,
		Timestamp: nowUnixMilli(),
		Clock: l.clk,
		Target: target,
		Details: details,
	}
	l.deliver(e)
	l.mu.Unlock()

	if l.broadcaster != nil {
		if err := l.broadcaster.Broadcast(e); err != nil && l.log != nil {
			l.log.Errorf("event log: failed broadcasting %s: %v", id, err)
		}
	}
	return id, nil
}

// ApplyRemote places event in the pending set until event.Clock is
// satisfied by the log's current clock, then delivers it (and anything
// else in the pending set that clears as a result).
func (l *Log) ApplyRemote(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLogClosed
	}
	if _, dup := l.appliedIDs[e.ID]; dup {
		if l.log != nil {
			l.log.Debugf("event log: ignoring duplicate %s", e.ID)
		}
		return nil
	}
	for _, p := range l.pending {
		if p.event.ID == e.ID {
			return nil
		}
	}

	if len(e.Clock.MissingFrom(l.clk)) > 0 {
		l.pending = append(l.pending, pendingEvent{event: e})
		return nil
	}

	l.deliver(e)
	l.drainPending()
	return nil
}

// drainPending re-scans the pending set, delivering anything whose
// dependencies now clear. Repeats until a full pass makes no progress,
// since delivering one event can unblock another in the same batch.
func (l *Log) drainPending() {
	for {
		progressed := false
		remaining := l.pending[:0]
		for _, p := range l.pending {
			if len(p.event.Clock.MissingFrom(l.clk)) == 0 {
				l.deliver(p.event)
				progressed = true
			} else {
				remaining = append(remaining, p)
			}
		}
		l.pending = remaining
		if !progressed {
			return
		}
	}
}

// deliver advances the log's clock past e, records it as applied, and
// pushes it onto the output stream. Must be called with l.mu held.
func (l *Log) deliver(e Event) {
	l.clk = l.clk.UpdateWithId(e.ID)
	l.appliedIDs[e.ID] = l.order.PushBack(e)
	if l.order.Len() > l.capacity {
		l.evictOldestApplied()
	}
	select {
	case l.out <- e:
	default:
		// The consumer (network reducer) never suspends mid-event per
		// this, so it must keep up; a full buffer here means the
		// reducer has stalled. Block until there is room rather than
		// drop an applied event.
		l.out <- e
	}
}

// evictOldestApplied drops the oldest applied event from both order and
// appliedIDs once the log is over capacity. Must be called with l.mu held.
func (l *Log) evictOldestApplied() {
	front := l.order.Front()
	if front == nil {
		return
	}
	l.order.Remove(front)
	delete(l.appliedIDs, front.Value.(Event).ID)
}

// Missing returns, in causal order, every applied event strictly after
// peerClock — used to answer a peer's resync request. A peer whose clock
// is older than the oldest retained event cannot be fully resynced from
// this call alone, per the bounded-retention Non-goal here.
func (l *Log) Missing(peerClock clock.EventClock) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for elem := l.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(Event)
		if !dependencySatisfied(peerClock, e.ID) {
			out = append(out, e)
		}
	}
	return out
}

// dependencySatisfied reports whether peerClock already reflects having
// seen id.
func dependencySatisfied(peerClock clock.EventClock, id ids.EventId) bool {
	entry, ok := peerClock.Get(id.Server)
	if !ok {
		return false
	}
	if entry.Epoch != id.Epoch {
		return entry.Epoch > id.Epoch
	}
	return entry.Seq >= id.Seq
}

// Shutdown closes the log for further submission/application and closes
// the StreamUpdates channel, which ends the reducer loop; the surrounding
// process still gets to flush logs and close peer connections cleanly
// rather than being hard-exited here.
func (l *Log) Shutdown(reason error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.log != nil {
		l.log.Errorf("event log: shutting down: %v", reason)
	}
	close(l.out)
}

// nowUnixMilli is overridable in tests that need deterministic timestamps.
var nowUnixMilli = func() int64 { return time.Now().UnixMilli() }
