package command

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/history"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
	"github.com/ircmesh/ircd/pkg/ircmesh/registry"
)

// ServerInfo names the local node a Context is bound to; handlers that need
// to mint a new entity id (NewUser, ChannelJoin, ...) consult it for the
// ServerId half of every id they construct.
type ServerInfo struct {
	ID ids.ServerId
	Name string
}

// Context is the ambient argument bundle every Handler receives: the
// connection a command arrived on, a read-only Network snapshot taken at
// the processing boundary, and the local server's identity. A Handler holds
// no other means of observing or mutating state — the read-then-emit
// invariant is enforced structurally by this being the only state a Handler
// can see.
type Context struct {
	Connection ids.ConnectionId
	RemoteAddr string

	// User is the attached UserId, or nil if the connection is still a
	// PreClient.
	User *ids.UserId
	Pre *registry.PreClient

	Network network.Network
	Server ServerInfo

	// History backs CHATHISTORY queries. It is a read query
	// surface, not part of the replicated Network snapshot — queries never
	// produce Actions.
	History *history.Log

	// Registry lets NICK/USER accumulate PreClient fields directly. This is
	// the one handler-visible mutation path that bypasses the Action
	// taxonomy, and it is safe precisely because connection/PreClient state
	// is local bookkeeping, never replicated — the read-then-emit
	// invariant here *network* state mutation, which
	// still flows exclusively through StateChange.
	Registry *registry.Registry

	// NextID mints a fresh local sequence for a new entity id, scoped to
	// Server.ID. Supplied by the owning server rather than a package-level
	// generator, so tests can inject a deterministic one.
	NextID func() uint64
}

// SourceUser returns the Context's attached user from the Network snapshot,
// if any. Returns false for a still-pre-registration connection or one
// whose user has since quit (a concurrent UserQuit that the snapshot
// predates).
func (c Context) SourceUser() (network.User, bool) {
	if c.User == nil {
		return network.User{}, false
	}
	return c.Network.User(*c.User)
}
