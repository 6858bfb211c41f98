package registry

import (
	"context"

	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// op is the tagged request type the registry goroutine consumes. Every
// method on Registry builds one of these and blocks on its reply channel,
// mirroring go-mcast's Peer.poll message-pump (a single goroutine owns
// all registry state; callers never touch the maps directly), 
// the "Connection registry: owned by a dedicated task; handlers post to
// it via messages."
type op struct {
	kind opKind
	reply chan opResult
	args opArgs
}

type opKind int

const (
	opRegister opKind = iota
	opAttach
	opUpdateCaps
	opDisconnect
	opLookup
	opLookupByUser
	opSave
	opRestore
	opSetPre
)

// preField names which PreClient field opSetPre should write, so NICK, USER
// and the hostname-resolver callback can all share the single write-once
// code path in run.
type preField int

const (
	preNick preField = iota
	preUser
	preHost
	preRealname
)

type opArgs struct {
	conn Connection
	connID ids.ConnectionId
	user ids.UserId
	caps map[string]struct{}
	connData ConnectionData
	preField preField
	preValue string
}

type opResult struct {
	conn Connection
	conns []Connection
	ok bool
}

// Registry is the dedicated goroutine owning every local connection's
// state. The zero value is not usable; construct with NewRegistry.
type Registry struct {
	requests chan op
	log definition.Logger
}

// NewRegistry starts the registry goroutine and returns a handle to it.
// The goroutine runs until ctx is cancelled.
func NewRegistry(ctx context.Context, log definition.Logger) *Registry {
	r := &Registry{
		requests: make(chan op),
		log: log,
	}
	go r.run(ctx)
	return r
}

func (r *Registry) run(ctx context.Context) {
	byConn := make(map[ids.ConnectionId]Connection)
	byUser := make(map[ids.UserId][]ids.ConnectionId)

	for {
		select {
		case <-ctx.Done():
			return
		case request := <-r.requests:
			switch request.kind {
			case opRegister:
				c := request.args.conn
				byConn[c.ID] = c
				request.reply <- opResult{conn: c, ok: true}

			case opAttach:
				c, ok := byConn[request.args.connID]
				if !ok {
					request.reply <- opResult{ok: false}
					continue
				}
				user := request.args.user
				c.User = &user
				c.Pre = nil
				byConn[c.ID] = c
				byUser[user] = appendConnID(byUser[user], c.ID)
				request.reply <- opResult{conn: c, ok: true}

			case opUpdateCaps:
				c, ok := byConn[request.args.connID]
				if !ok {
					request.reply <- opResult{ok: false}
					continue
				}
				c.Caps = request.args.caps
				byConn[c.ID] = c
				request.reply <- opResult{conn: c, ok: true}

			case opDisconnect:
				c, ok := byConn[request.args.connID]
				if ok {
					delete(byConn, c.ID)
					if c.User != nil {
						byUser[*c.User] = removeConnID(byUser[*c.User], c.ID)
						if len(byUser[*c.User]) == 0 {
							delete(byUser, *c.User)
						}
					}
				}
				request.reply <- opResult{conn: c, ok: ok}

			case opLookup:
				c, ok := byConn[request.args.connID]
				request.reply <- opResult{conn: c, ok: ok}

			case opLookupByUser:
				var conns []Connection
				for _, id := range byUser[request.args.user] {
					if c, ok := byConn[id]; ok {
						conns = append(conns, c)
					}
				}
				request.reply <- opResult{conns: conns, ok: len(conns) > 0}

			case opSave:
				c, ok := byConn[request.args.connID]
				request.reply <- opResult{conn: c, ok: ok}

			case opRestore:
				d := request.args.connData
				c := Connection{ID: d.ID, RemoteAddr: d.RemoteAddr, TLSInfo: d.TLSInfo, Pre: &PreClient{}, Send: request.args.conn.Send}
				byConn[c.ID] = c
				request.reply <- opResult{conn: c, ok: true}

			case opSetPre:
				c, ok := byConn[request.args.connID]
				if !ok || c.Pre == nil {
					request.reply <- opResult{ok: false}
					continue
				}
				var err error
				switch request.args.preField {
				case preNick:
					err = c.Pre.SetNick(request.args.preValue)
				case preUser:
					err = c.Pre.SetUser(request.args.preValue)
				case preHost:
					err = c.Pre.SetHost(request.args.preValue)
				case preRealname:
					err = c.Pre.SetRealname(request.args.preValue)
				}
				byConn[c.ID] = c
				request.reply <- opResult{conn: c, ok: err == nil}
			}
		}
	}
}

func appendConnID(ids_ []ids.ConnectionId, id ids.ConnectionId) []ids.ConnectionId {
	for _, existing := range ids_ {
		if existing == id {
			return ids_
		}
	}
	return append(ids_, id)
}

func removeConnID(ids_ []ids.ConnectionId, id ids.ConnectionId) []ids.ConnectionId {
	out := make([]ids.ConnectionId, 0, len(ids_))
	for _, existing := range ids_ {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func (r *Registry) call(o op) opResult {
	o.reply = make(chan opResult, 1)
	r.requests <- o
	return <-o.reply
}

// Register inserts a brand-new, pre-registration connection, wired to send
// as its transport side.
func (r *Registry) Register(id ids.ConnectionId, remoteAddr, tlsInfo string, send Sink) Connection {
	c := Connection{ID: id, RemoteAddr: remoteAddr, TLSInfo: tlsInfo, Pre: &PreClient{}, Send: send}
	result := r.call(op{kind: opRegister, args: opArgs{conn: c}})
	return result.conn
}

// Attach marks a connection as having completed registration and attached
// to user. Returns false if the connection is not known.
func (r *Registry) Attach(connID ids.ConnectionId, user ids.UserId) (Connection, bool) {
	result := r.call(op{kind: opAttach, args: opArgs{connID: connID, user: user}})
	return result.conn, result.ok
}

// UpdateCaps replaces a connection's negotiated capability set.
func (r *Registry) UpdateCaps(connID ids.ConnectionId, caps map[string]struct{}) (Connection, bool) {
	result := r.call(op{kind: opUpdateCaps, args: opArgs{connID: connID, caps: caps}})
	return result.conn, result.ok
}

// Disconnect removes a connection entirely.
func (r *Registry) Disconnect(connID ids.ConnectionId) (Connection, bool) {
	result := r.call(op{kind: opDisconnect, args: opArgs{connID: connID}})
	return result.conn, result.ok
}

// Lookup returns the connection for connID, if any.
func (r *Registry) Lookup(connID ids.ConnectionId) (Connection, bool) {
	result := r.call(op{kind: opLookup, args: opArgs{connID: connID}})
	return result.conn, result.ok
}

// LookupByUser returns every connection currently attached to user.
func (r *Registry) LookupByUser(user ids.UserId) []Connection {
	result := r.call(op{kind: opLookupByUser, args: opArgs{user: user}})
	return result.conns
}

// Save serialises a connection's identity for later Restore.
func (r *Registry) Save(connID ids.ConnectionId) (ConnectionData, bool) {
	result := r.call(op{kind: opSave, args: opArgs{connID: connID}})
	return result.conn.Save(), result.ok
}

// Restore re-inserts a previously Saved connection, wired to send as the
// reconnecting external listener's new transport side.
func (r *Registry) Restore(data ConnectionData, send Sink) Connection {
	result := r.call(op{kind: opRestore, args: opArgs{connData: data, conn: Connection{Send: send}}})
	return result.conn
}

// SetNick accumulates a PreClient's nickname during registration. Returns
// false if connID is unknown, already attached, or the field was already
// set by an earlier NICK.
func (r *Registry) SetNick(connID ids.ConnectionId, nick string) (Connection, bool) {
	result := r.call(op{kind: opSetPre, args: opArgs{connID: connID, preField: preNick, preValue: nick}})
	return result.conn, result.ok
}

// SetUser accumulates a PreClient's username during registration.
func (r *Registry) SetUser(connID ids.ConnectionId, user string) (Connection, bool) {
	result := r.call(op{kind: opSetPre, args: opArgs{connID: connID, preField: preUser, preValue: user}})
	return result.conn, result.ok
}

// SetHost accumulates a PreClient's hostname, set either from the wire
// (WEBIRC-style) or by the external DNS resolver callback.
func (r *Registry) SetHost(connID ids.ConnectionId, host string) (Connection, bool) {
	result := r.call(op{kind: opSetPre, args: opArgs{connID: connID, preField: preHost, preValue: host}})
	return result.conn, result.ok
}

// SetRealname accumulates a PreClient's real name during registration.
func (r *Registry) SetRealname(connID ids.ConnectionId, realname string) (Connection, bool) {
	result := r.call(op{kind: opSetPre, args: opArgs{connID: connID, preField: preRealname, preValue: realname}})
	return result.conn, result.ok
}
