package ids

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SeqGenerator hands out a monotone, gap-free sequence of local-sequence
// numbers for one (ServerId, EpochId) pair. It has no notion of what kind of
// ID it is minting; callers wrap the returned uint64 in the ID type they
// need (UserId, ChannelId, ...). This mirrors go-mcast's single
// incrementing counter per peer, generalized from one counter (message UID)
// to one counter per entity collection plus one for the event log itself.
type SeqGenerator struct {
	server ServerId
	epoch EpochId
	next uint64
}

func NewSeqGenerator(server ServerId, epoch EpochId) *SeqGenerator {
	return &SeqGenerator{server: server, epoch: epoch}
}

// Next returns the next local sequence number, starting at 1 so that the
// zero value of a localSeq can keep meaning "unset".
func (g *SeqGenerator) Next() uint64 {
	return atomic.AddUint64(&g.next, 1)
}

func (g *SeqGenerator) Server() ServerId { return g.server }
func (g *SeqGenerator) Epoch() EpochId { return g.epoch }

// NewConnectionId mints a fresh, non-replicated connection identifier.
// Connections carry no causal ordering requirements, so a random UUID (as
// used for the same purpose by cuemby-warren and moby-moby) is sufficient
// and avoids coordinating a sequence across listener workers.
func NewConnectionId() ConnectionId {
	return ConnectionId(uuid.NewString())
}

// NewListenerId mints a fresh listener identifier, same rationale as
// NewConnectionId.
func NewListenerId() ListenerId {
	return ListenerId(uuid.NewString())
}
