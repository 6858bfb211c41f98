// Package registry tracks local client connections: their pre-registration
// state, attached user (once registered), capability set, and the
// save/restore protocol used to survive an external listener reconnect,
// /.
package registry

import (
	"errors"

	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// ErrAlreadySet is returned by PreClient's setters when a field has
// already been written once; this requires each PreClient field be
// set exactly once.
var ErrAlreadySet = errors.New("registry: preclient field already set")

// PreClient holds the fields a connection accumulates before it has
// completed NICK/USER registration and been attached to a UserId. Each
// field is nil until first set and rejects a second write.
type PreClient struct {
	Nick *string
	User *string
	Host *string
	Realname *string
}

func setOnce(field **string, value string) error {
	if *field != nil {
		return ErrAlreadySet
	}
	v := value
	*field = &v
	return nil
}

// SetNick sets the nickname exactly once.
func (p *PreClient) SetNick(nick string) error { return setOnce(&p.Nick, nick) }

// SetUser sets the username exactly once.
func (p *PreClient) SetUser(user string) error { return setOnce(&p.User, user) }

// SetHost sets the hostname exactly once.
func (p *PreClient) SetHost(host string) error { return setOnce(&p.Host, host) }

// SetRealname sets the real name exactly once.
func (p *PreClient) SetRealname(realname string) error { return setOnce(&p.Realname, realname) }

// Ready reports whether every field NICK/USER registration requires has
// been set.
func (p *PreClient) Ready() bool {
	return p.Nick != nil && p.User != nil && p.Host != nil && p.Realname != nil
}

// Sink delivers one already-rendered wire line to whatever owns the actual
// socket for a connection. The registry and dispatch never see bytes or a
// net.Conn directly — wiring Sink to a real transport is the external
// listener's job (the Non-goals), so this is the one place the
// core touches that boundary at all.
type Sink func(line string)

// Connection is the registry's record of a single local client connection.
type Connection struct {
	ID ids.ConnectionId
	RemoteAddr string
	TLSInfo string
	Caps map[string]struct{}

	// User is nil until the connection completes registration and attaches
	// to a UserId.
	User *ids.UserId

	// Pre is non-nil only before registration completes.
	Pre *PreClient

	// Send is nil only for a restored connection stub that hasn't yet been
	// reattached to a live listener socket.
	Send Sink
}

// ConnectionData is the serialised form of a Connection used by the
// save/restore protocol.: exactly {id, remote_addr,
// tls_info}, nothing more — registration state and caps are not carried
// across a restore, since the reconnecting listener re-derives them.
type ConnectionData struct {
	ID ids.ConnectionId
	RemoteAddr string
	TLSInfo string
}

// Save captures c's serialisable identity.
func (c Connection) Save() ConnectionData {
	return ConnectionData{ID: c.ID, RemoteAddr: c.RemoteAddr, TLSInfo: c.TLSInfo}
}
