package command

import (
	"strings"
	"sync"
)

// Reply is a single line the processor should send straight back to the
// originating connection, synchronously, bypassing the event log/dispatch
// round trip (e.g. a numeric for a lookup failure, or PONG). It is never
// used to confirm success of a state-mutating command — see this's
// read-then-emit invariant, enforced here by simply never constructing a
// Reply for the success path of a StateChange-producing handler.
type Reply struct {
	Code int // 0 means Line is already fully formatted (e.g. PONG)
	Args []string // used when Code != 0
	Line string // used when Code == 0
}

// Handler is a unit of command logic: validated and executed purely over a
// Context snapshot, producing deferred Actions plus any synchronous Replies,
// .4 and the "Handler capability" design note.
type Handler interface {
	// Name is the wire command name this handler answers to, upper-cased.
	Name() string
	// MinParams is the minimum number of positional arguments required;
	// fewer than this yields NotEnoughParameters before Handle is called.
	MinParams() int
	// Handle runs the handler over ctx and the remaining positional
	// arguments (args[0] already consumed the command name itself).
	Handle(ctx *Context, args []string) ([]Action, []Reply, *Error)
}

// HandlerFunc adapts a plain function to the Handler interface for the
// common case of a handler with no extra validation step.
type HandlerFunc struct {
	name string
	minParams int
	fn func(ctx *Context, args []string) ([]Action, []Reply, *Error)
}

func (h HandlerFunc) Name() string { return h.name }
func (h HandlerFunc) MinParams() int { return h.minParams }
func (h HandlerFunc) Handle(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	return h.fn(ctx, args)
}

// Registry is the static name -> Handler mapping built once at program
// start, generalizing go-mcast's InvokerInstance singleton
// (pkg/mcast/core's package-level Invoker) from one global worker pool to
// one global command dispatch table.
type Registry struct {
	handlers map[string]Handler
}

var (
	defaultRegistry *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide Handler registry, building it on
// first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterDefaultHandlers(defaultRegistry)
	})
	return defaultRegistry
}

// NewRegistry returns an empty Registry — used directly by tests that want
// a hermetic handler set rather than the process-wide default.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h to the registry under its upper-cased Name.
func (r *Registry) Register(h Handler) {
	r.handlers[strings.ToUpper(h.Name())] = h
}

// Lookup returns the handler for an upper-cased command name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[strings.ToUpper(name)]
	return h, ok
}
