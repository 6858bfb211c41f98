// Package history holds the bounded, indexed ring of applied state-change
// updates that backs CHATHISTORY replay queries.
package history

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

// Entry is a single recorded state change, tagged with the conversation it
// belongs to and the set of users who should be notified of it.
type Entry struct {
	ID ids.EventId
	Timestamp int64

	// Target names the conversation this entry belongs to for CHATHISTORY
	// purposes: a channel's Name (its ChannelId.String if the channel is no
	// longer in the snapshot), or for a direct message the key built by
	// ConversationKey in log.go from both participants' UserIds.
	Target string

	Details network.Change
	UsersToNotify map[ids.UserId]struct{}
}
