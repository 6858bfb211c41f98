package history

import (
	"container/list"
	"sort"
	"sync"

	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
)

// node is the value stored in every list.Element this log maintains. A
// single Entry lives in several places at once — the global order
// list plus its per-target list and one per-user list per notified user —
// so that evicting the oldest entry is an O(1) removal from each index
// rather than a linear scan, matching go-mcast's bounded `types.Log`
// dump shape generalized to an evict-oldest ring.
type node struct {
	entry Entry
	orderElem *list.Element
	targetElem *list.Element
	userElems map[ids.UserId]*list.Element
}

// Log is the bounded, per-target and per-user indexed ring of history
// entries every node maintains locally.
type Log struct {
	mu sync.Mutex
	capacity int

	order *list.List // oldest at Front, newest at Back
	byTarget map[string]*list.List
	byUser map[ids.UserId]*list.List

	metrics *definition.Metrics
}

// NewLog constructs a Log bounded to capacity entries. metrics may be nil.
func NewLog(capacity int, metrics *definition.Metrics) *Log {
	if capacity <= 0 {
		capacity = definition.DefaultHistoryCapacity
	}
	return &Log{
		capacity: capacity,
		order: list.New(),
		byTarget: make(map[string]*list.List),
		byUser: make(map[ids.UserId]*list.List),
		metrics: metrics,
	}
}

// ConversationKey builds the Target string for a direct-message history
// entry between two users: order-independent, so both participants'
// CHATHISTORY queries resolve to the same target.
func ConversationKey(a, b ids.UserId) string {
	sa, sb := a.String(), b.String()
	if sa > sb {
		sa, sb = sb, sa
	}
	return "dm:" + sa + ":" + sb
}

// Append records e, evicting the oldest entry first if the log is at
// capacity.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := &node{entry: e, userElems: make(map[ids.UserId]*list.Element, len(e.UsersToNotify))}
	n.orderElem = l.order.PushBack(n)

	tl, ok := l.byTarget[e.Target]
	if !ok {
		tl = list.New()
		l.byTarget[e.Target] = tl
	}
	n.targetElem = tl.PushBack(n)

	for u := range e.UsersToNotify {
		ul, ok := l.byUser[u]
		if !ok {
			ul = list.New()
			l.byUser[u] = ul
		}
		n.userElems[u] = ul.PushBack(n)
	}

	if l.order.Len() > l.capacity {
		l.evictOldest()
	}
	if l.metrics != nil {
		l.metrics.HistoryOccupancy.Set(float64(l.order.Len()))
	}
}

func (l *Log) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}
	evicted := front.Value.(*node)
	l.order.Remove(front)

	if tl, ok := l.byTarget[evicted.entry.Target]; ok {
		tl.Remove(evicted.targetElem)
		if tl.Len() == 0 {
			delete(l.byTarget, evicted.entry.Target)
		}
	}
	for u, elem := range evicted.userElems {
		if ul, ok := l.byUser[u]; ok {
			ul.Remove(elem)
			if ul.Len() == 0 {
				delete(l.byUser, u)
			}
		}
	}
}

// EntriesForUser returns every recorded entry naming user in
// UsersToNotify, oldest first.
func (l *Log) EntriesForUser(user ids.UserId) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return collect(l.byUser[user])
}

// EntriesForUserReverse is EntriesForUser in reverse chronological order.
func (l *Log) EntriesForUserReverse(user ids.UserId) []Entry {
	entries := l.EntriesForUser(user)
	reverse(entries)
	return entries
}

// EntriesForChannel returns every recorded entry for a channel target,
// oldest first.
func (l *Log) EntriesForChannel(target string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return collect(l.byTarget[target])
}

func collect(l *list.List) []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*node).entry)
	}
	return out
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// targetEntriesSorted returns the entries recorded against target, sorted
// ascending by timestamp. Delivery order already tracks causal order, and
// causal order tracks timestamp order for the overwhelming majority of
// traffic, but a defensive sort keeps CHATHISTORY's ordering guarantees
// correct even across the rare cross-server race where it doesn't.
func (l *Log) targetEntriesSorted(target string) []Entry {
	l.mu.Lock()
	entries := collect(l.byTarget[target])
	l.mu.Unlock()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries
}

// allEntriesSorted returns every entry across every target, ascending by
// timestamp — used only by the TARGETS selector, which must scan across
// targets rather than within one.
func (l *Log) allEntriesSorted() []Entry {
	l.mu.Lock()
	entries := collect(l.order)
	l.mu.Unlock()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries
}
