// Package fuzzy holds randomized convergence/determinism property tests
// for the network reducer. It plays the same role the teacher's own
// fuzzy package does (Test_SequentialCommands/Test_ConcurrentCommands
// drove a multi-node alphabet-commit scenario to a single converged
// value) but, since this reducer is a pure function rather than a live
// multi-node commit protocol, drives network.Apply directly: each round
// generates a batch of concurrent events and applies it in two different
// linear extensions, asserting the resulting Network values converge.
package fuzzy

import (
	"log"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

const (
	fuzzUsers = 6
	fuzzChannels = 3
	fuzzRounds = 40
	fuzzMaxBatch = 4
)

type pair struct {
	user int
	channel int
}

// fuzzModel mints fresh ids for the events this test generates and, purely
// as a test-side bookkeeping aid (not part of what's being verified),
// tracks which (user, channel) pairs are currently joined so Part/
// MembershipModeChange events always target a membership that exists.
type fuzzModel struct {
	rng *rand.Rand
	userIDs [fuzzUsers]ids.UserId
	channelIDs [fuzzChannels]ids.ChannelId
	channelNames [fuzzChannels]string
	memberships map[pair]ids.MembershipId
	joined map[pair]bool
	nextSeq uint64
}

func newFuzzModel(seed int64) *fuzzModel {
	m := &fuzzModel{
		rng: rand.New(rand.NewSource(seed)),
		memberships: make(map[pair]ids.MembershipId),
		joined: make(map[pair]bool),
	}
	for i := 0; i < fuzzUsers; i++ {
		m.userIDs[i] = ids.NewUserId(ids.ServerId(1+i%3), uint64(i+1))
	}
	for i := 0; i < fuzzChannels; i++ {
		m.channelIDs[i] = ids.NewChannelId(1, uint64(i+1))
		m.channelNames[i] = "#chan" + string(rune('a'+i))
	}
	return m
}

func (m *fuzzModel) seq() uint64 {
	m.nextSeq++
	return m.nextSeq
}

func (m *fuzzModel) joinedPairs() []pair {
	out := make([]pair, 0, len(m.joined))
	for p, ok := range m.joined {
		if ok {
			out = append(out, p)
		}
	}
	return out
}

// generateBatch returns between 1 and fuzzMaxBatch concurrent events, each
// touching a distinct (user, channel) pair (messages touch no persistent
// state at all), so no two events in a batch conflict over the same
// target — exactly the "commutative" mutations spec.md §4.1 requires
// either application order to agree on.
func (m *fuzzModel) generateBatch() []event.Event {
	n := 1 + m.rng.Intn(fuzzMaxBatch)
	used := make(map[pair]bool)
	events := make([]event.Event, 0, n)

	for len(events) < n {
		switch m.rng.Intn(4) {
		case 0: // join
			p := pair{m.rng.Intn(fuzzUsers), m.rng.Intn(fuzzChannels)}
			if used[p] || m.joined[p] {
				continue
			}
			used[p] = true
			mid := ids.NewMembershipId(m.userIDs[p.user].Server, m.seq())
			m.memberships[p] = mid
			m.joined[p] = true
			events = append(events, event.Event{
				ID: ids.EventId{Server: m.userIDs[p.user].Server, Seq: m.seq()},
				Target: m.userIDs[p.user],
				Details: event.ChannelJoin{
					Membership: mid,
					User: m.userIDs[p.user],
					Channel: m.channelIDs[p.channel],
					ChannelName: m.channelNames[p.channel],
				},
			})
		case 1: // part
			candidates := m.joinedPairs()
			if len(candidates) == 0 {
				continue
			}
			p := candidates[m.rng.Intn(len(candidates))]
			if used[p] {
				continue
			}
			used[p] = true
			mid := m.memberships[p]
			delete(m.joined, p)
			delete(m.memberships, p)
			events = append(events, event.Event{
				ID: ids.EventId{Server: m.userIDs[p.user].Server, Seq: m.seq()},
				Target: mid,
				Details: event.ChannelPart{Membership: mid, Reason: "fuzz"},
			})
		case 2: // membership mode change
			candidates := m.joinedPairs()
			if len(candidates) == 0 {
				continue
			}
			p := candidates[m.rng.Intn(len(candidates))]
			if used[p] {
				continue
			}
			used[p] = true
			mid := m.memberships[p]
			events = append(events, event.Event{
				ID: ids.EventId{Server: m.userIDs[p.user].Server, Seq: m.seq()},
				Target: mid,
				Details: event.MembershipModeChange{Membership: mid, Added: []event.MembershipFlag{event.MembershipVoice}},
			})
		default: // message: no persistent state touched at all
			from := m.userIDs[m.rng.Intn(fuzzUsers)]
			to := m.channelIDs[m.rng.Intn(fuzzChannels)]
			events = append(events, event.Event{
				ID: ids.EventId{Server: from.Server, Seq: m.seq()},
				Target: to,
				Details: event.NewMessage{
					Message: ids.NewMessageId(from.Server, m.seq()),
					From: from,
					ToChannel: &to,
					Text: "fuzz",
				},
			})
		}
	}
	return events
}

func applyAll(n network.Network, events []event.Event) network.Network {
	for _, e := range events {
		n, _ = network.Apply(n, e)
	}
	return n
}

func shuffled(rng *rand.Rand, events []event.Event) []event.Event {
	out := make([]event.Event, len(events))
	copy(out, events)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// TestConvergenceAcrossRandomLinearExtensions reproduces spec.md §8's
// universal properties (2) Convergence and (3) Reducer determinism: for
// many random batches of concurrent events, applying the same batch in two
// different orders must leave network.Network in an identical state.
func TestConvergenceAcrossRandomLinearExtensions(t *testing.T) {
	model := newFuzzModel(42)

	base := network.New()
	for i, uid := range model.userIDs {
		base, _ = network.Apply(base, event.Event{
			ID: ids.EventId{Server: uid.Server, Seq: model.seq()},
			Target: uid,
			Details: event.NewUser{User: uid, Nickname: "user" + string(rune('a'+i))},
		})
	}

	for round := 0; round < fuzzRounds; round++ {
		batch := model.generateBatch()
		log.Printf("fuzzy round %d: %d concurrent events", round, len(batch))

		a := applyAll(base, batch)
		b := applyAll(base, shuffled(model.rng, batch))

		for i, uid := range model.userIDs {
			ua, okA := a.User(uid)
			ub, okB := b.User(uid)
			require.Equal(t, okA, okB, "user %d presence must converge", i)
			require.Equal(t, ua, ub, "user %d state must converge", i)
		}
		for ci, cid := range model.channelIDs {
			ca, okA := a.Channel(cid)
			cb, okB := b.Channel(cid)
			require.Equal(t, okA, okB, "channel %d presence must converge", ci)
			require.Equal(t, ca, cb, "channel %d state must converge", ci)
		}
		for i := range model.userIDs {
			for c := range model.channelIDs {
				ma, okA := a.MembershipOf(model.userIDs[i], model.channelIDs[c])
				mb, okB := b.MembershipOf(model.userIDs[i], model.channelIDs[c])
				require.Equal(t, okA, okB, "membership (%d,%d) presence must converge", i, c)
				require.Equal(t, ma, mb, "membership (%d,%d) state must converge", i, c)
			}
		}

		base = a
	}
}
