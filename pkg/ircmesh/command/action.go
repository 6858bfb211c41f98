package command

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// Action is the deferred-effect taxonomy : a Handler never
// mutates the connection registry or event log directly, it only returns a
// slice of these, which the owning server applies — exactly
// original_source/sable_ircd's server/command_action.rs's apply_action
// match, translated into a Go tagged interface.
type Action interface {
	isAction()
}

// RegisterClient requests that conn's PreClient (now Ready) be promoted: a
// NewUser event submitted and, once accepted, the connection attached to the
// resulting UserId.
type RegisterClient struct {
	Connection ids.ConnectionId
}

func (RegisterClient) isAction() {}

// AttachToUser attaches an already-registered connection to an existing
// UserId (used by session-resume/reattach flows).
type AttachToUser struct {
	Connection ids.ConnectionId
	User ids.UserId
}

func (AttachToUser) isAction() {}

// UpdateConnectionCaps replaces a connection's negotiated CAP set.
type UpdateConnectionCaps struct {
	Connection ids.ConnectionId
	Capabilities map[string]struct{}
}

func (UpdateConnectionCaps) isAction() {}

// DisconnectUser requests that a user (and every connection attached to it)
// be removed; the caller is expected to submit a corresponding UserQuit
// event.
type DisconnectUser struct {
	User ids.UserId
	Reason string
}

func (DisconnectUser) isAction() {}

// StateChange is the only Action that touches replicated state: it carries
// an event.Details payload the owning server submits to the event log via
// Log.SubmitLocal(Target, Details). This is the sole channel through which
// command handling can ever mutate network state, enforcing the
// read-then-emit invariant of this.
type StateChange struct {
	Target ids.ObjectId
	Details event.Details
}

func (StateChange) isAction() {}
