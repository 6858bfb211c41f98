// Package engine wires the per-node subsystems — event log, network
// reducer, history log, dispatcher, connection registry, command processor
// and peer transport — into the single running node the data-flow
// diagram describes. It owns the one goroutine that matters for
// correctness: the reducer loop draining event.Log.StreamUpdates, since
// this requires network.Network to be mutated by exactly one
// goroutine at a time.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ircmesh/ircd/pkg/ircmesh/command"
	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/dispatch"
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/format"
	"github.com/ircmesh/ircd/pkg/ircmesh/history"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
	"github.com/ircmesh/ircd/pkg/ircmesh/peer"
	"github.com/ircmesh/ircd/pkg/ircmesh/registry"
)

// Node bundles one server instance's subsystems. Peers is left nil until
// SetPeers is called, the same two-phase construction the event.Log /
// peer.Manager cycle already requires (see event.Log.SetBroadcaster).
type Node struct {
	Config definition.Configuration
	Server ids.ServerId
	Epoch ids.EpochId
	Log *event.Log
	History *history.Log
	Registry *registry.Registry
	Dispatch *dispatch.Dispatcher
	Command *command.Processor
	Peers *peer.Manager
	Metrics *definition.Metrics

	logger definition.Logger

	mu sync.RWMutex
	network network.Network
}

// New builds every subsystem except the peer transport (which needs a
// reference back to Log and is wired by the caller via SetPeers once both
// sides exist — mirroring cmd/ircmesh's construction order).
func New(ctx context.Context, cfg definition.Configuration, server ids.ServerId, epoch ids.EpochId, logger definition.Logger, metrics *definition.Metrics) *Node {
	cfg = cfg.WithDefaults()
	reg := registry.NewRegistry(ctx, logger)
	n := &Node{
		Config: cfg,
		Server: server,
		Epoch: epoch,
		Log: event.NewLog(server, epoch, nil, logger, cfg.HistoryCapacity),
		History: history.NewLog(cfg.HistoryCapacity, metrics),
		Registry: reg,
		Dispatch: dispatch.New(reg, cfg.ServerName, logger),
		logger: logger,
		network: network.New(),
		Metrics: metrics,
	}
	n.Command = command.NewProcessor(nil)
	return n
}

// SetPeers wires the node's peer transport in, and in turn wires it back
// into the event log as its Broadcaster — resolving the construction cycle
// documented on event.Log.SetBroadcaster.
func (n *Node) SetPeers(p *peer.Manager) {
	n.Peers = p
	n.Log.SetBroadcaster(p)
}

// Network returns a consistent snapshot of the current network state. Safe
// to call concurrently with the reducer loop: network.Network is an
// immutable value, so a snapshot read under RLock never races with the
// reducer's next write.
func (n *Node) Network() network.Network {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.network
}

// Run drains the event log's applied-event stream and feeds the reducer,
// history log and dispatcher, until ctx is cancelled or the log is shut
// down. Intended to be run in its own goroutine, 's
// "one reducer goroutine" line in the concurrency table.
func (n *Node) Run(ctx context.Context) {
	updates := n.Log.StreamUpdates()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-updates:
			if !ok {
				return
			}
			n.applyEvent(e)
		}
	}
}

// applyEvent is the reducer loop's body for a single causally-delivered
// event: fold it into the Network snapshot, record it in the history log
// when it belongs to a queryable conversation, and hand it to the
// dispatcher for local fan-out. Never suspends mid-event (no blocking call
// other than the dispatcher's bounded Submit).
func (n *Node) applyEvent(e event.Event) {
	n.mu.Lock()
	newNet, change := network.Apply(n.network, e)
	n.network = newNet
	n.mu.Unlock()

	if n.Metrics != nil {
		n.Metrics.EventsApplied.WithLabelValues(fmt.Sprintf("%T", e.Details)).Inc()
	}

	if _, rejected := change.Details.(network.Rejected); rejected {
		if n.logger != nil {
			n.logger.Debugf("engine: event %s rejected: %v", e.ID, change.Details)
		}
		return
	}

	entry := history.Entry{ID: e.ID, Timestamp: e.Timestamp, Details: change, UsersToNotify: change.Notify}
	if target, ok := conversationTarget(e, newNet, change); ok {
		entry.Target = target
		n.History.Append(entry)
	}

	item := dispatch.Item{Entry: entry, Network: newNet}
	if msg, ok := e.Details.(event.NewMessage); ok {
		p := &format.MessagePayload{From: format.UnknownSource{}, Target: format.NameTarget(entry.Target), Text: msg.Text, IsNotice: msg.IsNotice, MsgID: msg.Message.String()}
		if u, ok := newNet.User(msg.From); ok {
			p.From = format.UserSource{User: u}
		}
		if to := msg.ToUser; to != nil {
			if u, ok := newNet.User(*to); ok {
				p.Target = format.UserTarget{User: u}
			}
		}
		item.Message = p
	}
	n.Dispatch.Submit(item)
}

// conversationTarget names the CHATHISTORY conversation a Change belongs
// to, if any. Not every Change is conversational (a nick change or account
// registration has nothing for CHATHISTORY to replay against); those
// report ok=false and are still dispatched in real time but never recorded
// in the history ring, keeping CHATHISTORY TARGETS free of noise.
func conversationTarget(e event.Event, n network.Network, c network.Change) (string, bool) {
	switch d := c.Details.(type) {
	case network.ChannelJoin:
		return d.Channel.Name, true
	case network.ChannelPart:
		return d.Channel.Name, true
	case network.ChannelModeChanged:
		if ch, ok := n.Channel(d.Channel); ok {
			return ch.Name, true
		}
		return d.Channel.String(), true
	case network.MembershipModeChanged:
		if ch, ok := n.Channel(d.Membership.Channel); ok {
			return ch.Name, true
		}
		return d.Membership.Channel.String(), true
	case network.TopicChanged:
		if ch, ok := n.Channel(d.Channel); ok {
			return ch.Name, true
		}
		return d.Channel.String(), true
	case network.MessageDelivered:
		msg, ok := e.Details.(event.NewMessage)
		if !ok {
			return "", false
		}
		switch {
		case msg.ToChannel != nil:
			if ch, ok := n.Channel(*msg.ToChannel); ok {
				return ch.Name, true
			}
			return msg.ToChannel.String(), true
		case msg.ToUser != nil:
			return history.ConversationKey(msg.From, *msg.ToUser), true
		}
		return "", false
	default:
		return "", false
	}
}
