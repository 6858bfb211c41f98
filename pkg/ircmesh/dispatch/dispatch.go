// Package dispatch implements the update dispatcher described here
// : a single goroutine that turns each applied network.Change into
// wire lines for every locally-connected client named in its Notify set.
package dispatch

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/format"
	"github.com/ircmesh/ircd/pkg/ircmesh/history"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
	"github.com/ircmesh/ircd/pkg/ircmesh/registry"
)

// Item is one applied update the dispatcher fans out: the history.Entry
// that was (or would be, for an update the history log chooses not to
// retain) recorded, the Network snapshot the reducer produced it against
// (needed to resolve names a bare ChangeDetails doesn't carry, e.g. a
// channel's Name from its ChannelId), and an optional MessagePayload for
// the one ChangeDetails variant (MessageDelivered) that needs extra live
// context beyond what the entry itself records.
type Item struct {
	Entry history.Entry
	Network network.Network
	Message *format.MessagePayload
}

// ConnLookup resolves a UserId to every local registry.Connection
// currently attached to it. Narrowed from *registry.Registry to an
// interface so tests can supply a fake without starting the registry's
// goroutine.
type ConnLookup interface {
	LookupByUser(user ids.UserId) []registry.Connection
}

// Dispatcher owns the single goroutine this describes: it never
// touches network.Network or the event log directly, only the Items
// handed to it and the registry's UserId -> []Connection index.
type Dispatcher struct {
	conns ConnLookup
	serverName string
	log definition.Logger

	in chan Item
}

// New builds a Dispatcher. Run must be called to begin consuming.
func New(conns ConnLookup, serverName string, log definition.Logger) *Dispatcher {
	return &Dispatcher{conns: conns, serverName: serverName, log: log, in: make(chan Item, 256)}
}

// Submit hands one Item to the dispatcher. Safe to call from the reducer
// goroutine; blocks only if the dispatcher has fallen behind its buffer.
func (d *Dispatcher) Submit(item Item) {
	d.in <- item
}

// Run consumes Items until done is closed, rendering and delivering each
// one to every locally-connected recipient in its Notify set. Intended to
// be the body of the dispatcher's dedicated goroutine.
func (d *Dispatcher) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case item := <-d.in:
			d.deliver(item)
		}
	}
}

func (d *Dispatcher) deliver(item Item) {
	for user := range item.Entry.Details.Notify {
		for _, conn := range d.conns.LookupByUser(user) {
			if conn.Send == nil {
				continue
			}
			caps := format.Capabilities(conn.Caps)
			sink := func(line string) { conn.Send(line) }
			format.SendRealtimeItem(sink, d.serverName, item.Network, item.Entry.Details, caps, item.Entry.Timestamp, item.Message)
		}
	}
}
