package peer

import (
	"context"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ircmesh/ircd/pkg/ircmesh/clock"
	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// EventLog is the subset of *event.Log the Manager needs: enough to fold
// inbound peer events in, read the local clock for a Resync request, and
// answer another peer's Resync request against our own backlog.
type EventLog interface {
	Submitter
	ApplyRemote(e event.Event) error
	CurrentClock() clock.EventClock
	Missing(peerClock clock.EventClock) []event.Event
}

// Manager owns every outbound Link this node keeps to its configured
// peers, and implements PeerServer for inbound connections from them —
// realizing the "Peer interface" and this's
// connection-lifecycle description (dial, retry-with-backoff, re-resync
// on reconnect) grounded on matgreaves-rig's grpc.Dial-based connection
// setup. It also implements event.Broadcaster, so the event log can hand
// it locally-submitted events to fan out without knowing anything about
// gRPC.
type Manager struct {
	log EventLog
	server ids.ServerId
	epoch ids.EpochId
	logger definition.Logger
	monitor *PingMonitor

	mu sync.Mutex
	links map[string]*Link
}

// NewManager builds a Manager. pingTimeout is typically
// definition.DefaultPeerPingTimeout; tests may pass something shorter.
func NewManager(log EventLog, server ids.ServerId, epoch ids.EpochId, pingTimeout time.Duration, logger definition.Logger) *Manager {
	m := &Manager{
		log: log,
		server: server,
		epoch: epoch,
		logger: logger,
		links: make(map[string]*Link),
	}
	m.monitor = NewPingMonitor(log, pingTimeout, logger)
	return m
}

// Broadcast implements event.Broadcaster: it fans e out to every
// currently-connected Link. A Link that has gone away simply drops the
// send — failure model tolerates peer disconnect and
// re-syncs on reconnect via Missing, so there is nothing to retry here.
func (m *Manager) Broadcast(e event.Event) error {
	w, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mu.Unlock()
	for _, l := range links {
		l.send(&w)
	}
	return nil
}

// Dial establishes an outbound Link to addr, identified by peerServer for
// ping-monitor bookkeeping, and starts its gossip/resync goroutines. It
// retries with exponential backoff (capped at 30s) until ctx is
// cancelled, matching the "retry-with-backoff" connection
// lifecycle.
func (m *Manager) Dial(ctx context.Context, addr string, peerServer ids.ServerId) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		cc, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			m.logf("peer %s: dial %s failed: %v", peerServer, addr, err)
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		link := newLink(peerServer, NewPeerClient(cc))
		m.addLink(addr, link)
		m.monitor.Touch(peerServer, 0)

		m.resync(ctx, link)
		m.runLink(ctx, link)

		m.removeLink(addr)
		_ = cc.Close()
		if ctx.Err() != nil {
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
		if !sleepOrDone(ctx, backoff) {
			return
		}
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// resync asks link's peer for everything it holds that we are missing,
// .1's "missing(peer_clock)" resync sub-protocol, applying
// each returned event through ApplyRemote.
func (m *Manager) resync(ctx context.Context, link *Link) {
	stream, err := link.client.Resync(ctx, &ResyncRequest{Since: encodeClock(m.log.CurrentClock())})
	if err != nil {
		m.logf("peer %s: resync request failed: %v", link.server, err)
		return
	}
	for {
		w, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			m.logf("peer %s: resync stream error: %v", link.server, err)
			return
		}
		m.applyWire(w)
	}
}

// runLink drains link's EventStream, applying every inbound event and
// touching the ping monitor on each frame received (including a bare
// ServerPing heartbeat), until the stream ends or ctx is cancelled.
func (m *Manager) runLink(ctx context.Context, link *Link) {
	stream, err := link.client.EventStream(ctx)
	if err != nil {
		m.logf("peer %s: event stream open failed: %v", link.server, err)
		return
	}
	link.attachStream(stream)
	defer link.detachStream()

	for {
		w, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				m.logf("peer %s: event stream recv error: %v", link.server, err)
			}
			return
		}
		m.monitor.Touch(link.server, ids.EpochId(w.ID.Epoch))
		m.applyWire(w)
	}
}

func (m *Manager) applyWire(w *wireEvent) {
	e, err := DecodeEvent(*w)
	if err != nil {
		m.logf("peer: failed decoding wire event: %v", err)
		return
	}
	if err := m.log.ApplyRemote(e); err != nil {
		m.logf("peer: failed applying remote event %s: %v", e.ID, err)
	}
}

func (m *Manager) addLink(addr string, l *Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[addr] = l
}

func (m *Manager) removeLink(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, addr)
}

func (m *Manager) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Warnf(format, args...)
	}
}

// EventStream is the server side of an inbound peer connection: every
// frame received is applied the same way an outbound Link's would be.
// Locally broadcast events are not written to inbound streams; Broadcast
// reaches only outbound Links.
func (m *Manager) EventStream(stream EventStreamServer) error {
	errs := make(chan error, 1)
	go func() {
		for {
			w, err := stream.Recv()
			if err != nil {
				errs <- err
				return
			}
			m.monitor.Touch(ids.ServerId(w.ID.Server), ids.EpochId(w.ID.Epoch))
			m.applyWire(w)
		}
	}()
	select {
	case <-stream.Context().Done():
		return stream.Context().Err()
	case err := <-errs:
		return err
	}
}

// Resync serves a peer's request for every event we hold that it is
// missing.
func (m *Manager) Resync(req *ResyncRequest, stream ResyncServer) error {
	since := decodeClock(req.Since)
	for _, e := range m.log.Missing(since) {
		w, err := EncodeEvent(e)
		if err != nil {
			return err
		}
		if err := stream.Send(&w); err != nil {
			return err
		}
	}
	return nil
}

// Link is one outbound gRPC connection to a single peer.
type Link struct {
	server ids.ServerId
	client PeerClient

	mu sync.Mutex
	stream EventStreamClient
}

func newLink(server ids.ServerId, client PeerClient) *Link {
	return &Link{server: server, client: client}
}

func (l *Link) attachStream(s EventStreamClient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stream = s
}

func (l *Link) detachStream() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stream = nil
}

// send writes w to the link's currently open EventStream, if any. A Link
// without a live stream yet (still dialing/resyncing) silently drops the
// frame — the next resync will catch the receiving peer up regardless.
func (l *Link) send(w *wireEvent) {
	l.mu.Lock()
	stream := l.stream
	l.mu.Unlock()
	if stream == nil {
		return
	}
	_ = stream.Send(w)
}
