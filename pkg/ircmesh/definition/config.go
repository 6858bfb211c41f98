package definition

import "time"

// PeerAddress is how this node's configuration names another cluster
// member's peer-transport endpoint (host:port for the gRPC peer service,
// see pkg/ircmesh/peer).
type PeerAddress string

// Configuration holds everything a node needs to bootstrap its event log,
// network state, and peer transport. It generalizes go-mcast's
// BaseConfiguration/ClusterConfiguration split (local node identity plus
// cluster membership) into one struct, since unlike go-mcast's partitioned
// groups an ircmesh node has a single flat peer set.
type Configuration struct {
	// ServerName is the human-readable name this node presents to clients
	// and peers (e.g. "irc.example.org").
	ServerName string

	// ProtocolVersion is the replication wire-protocol version this node
	// speaks (1 if left zero). It is not sent to peers, and peers are not
	// checked against it.
	ProtocolVersion uint32

	// Peers lists the other cluster members this node gossips events with.
	Peers []PeerAddress

	// ListenAddress is this node's own peer-transport listen address.
	ListenAddress string

	// HistoryCapacity bounds the history log ring buffer. Defaults to
	// DefaultHistoryCapacity if zero( Open Question, resolved
	// in DESIGN.md).
	HistoryCapacity int

	// PeerPingTimeout is how long a peer may stay silent before this node
	// synthesizes a ServerQuit for it (by design). Defaults to
	// DefaultPeerPingTimeout if zero.
	PeerPingTimeout time.Duration

	// MetricsListenAddress, if non-empty, serves the Prometheus /metrics
	// endpoint.
	MetricsListenAddress string
}

// DefaultHistoryCapacity is the default per-node history ring size: 10,000
// entries, chosen as a sensible default per the open question
// (documented in DESIGN.md).
const DefaultHistoryCapacity = 10_000

// DefaultPeerPingTimeout is the 240-second silence threshold named in
// this/.
const DefaultPeerPingTimeout = 240 * time.Second

// WithDefaults returns a copy of c with zero-valued optional fields filled
// in with their documented defaults.
func (c Configuration) WithDefaults() Configuration {
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.PeerPingTimeout == 0 {
		c.PeerPingTimeout = DefaultPeerPingTimeout
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = 1
	}
	return c
}
