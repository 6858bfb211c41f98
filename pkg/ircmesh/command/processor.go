package command

import "strings"

// Processor ties the tokenizer to the Handler registry: one Processor is
// shared by every connection (it holds no per-connection state of its own —
// all of that lives in the Context each call is given), 
// the "Input: (ConnectionId, command_name, args[])".
type Processor struct {
	registry *Registry
}

// NewProcessor builds a Processor over reg. Pass nil to use the process-wide
// DefaultRegistry.
func NewProcessor(reg *Registry) *Processor {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Processor{registry: reg}
}

// ProcessLine tokenizes line and dispatches it to the matching Handler.
// Returns (nil, nil, nil) for a blank line('s "Empty input
// yields no message"). A tokenizer failure or unknown command name yields a
// single Reply carrying the corresponding error, never a fatal return — per
// this a ParseError leaves the connection open.
func (p *Processor) ProcessLine(ctx *Context, line string) ([]Action, []Reply) {
	parsed, ok, err := Tokenize(line)
	if err != nil {
		return nil, []Reply{replyFor(Parse("*", err.Error()))}
	}
	if !ok {
		return nil, nil
	}
	return p.Process(ctx, parsed.Command, parsed.Args)
}

// Process dispatches an already-tokenized command. Exposed separately from
// ProcessLine so callers that receive pre-split commands (tests, and the
// peer-synthesized commands used for replay) can skip re-tokenizing.
func (p *Processor) Process(ctx *Context, name string, args []string) ([]Action, []Reply) {
	upper := strings.ToUpper(name)
	h, ok := p.registry.Lookup(upper)
	if !ok {
		return nil, []Reply{replyFor(&Error{Kind: ErrUnknownCommand, Command: upper, Detail: "unknown command"})}
	}
	if len(args) < h.MinParams() {
		return nil, []Reply{replyFor(NotEnoughParameters(upper))}
	}
	actions, replies, cerr := h.Handle(ctx, args)
	if cerr != nil {
		replies = append(replies, replyFor(cerr))
	}
	return actions, replies
}

// replyFor converts a handler *Error into its wire Reply form.
func replyFor(e *Error) Reply {
	if e.IsFailForm() {
		line := "FAIL " + e.Command + " INVALID_PARAMS"
		if e.Context != "" {
			line += " " + e.Context
		}
		return Reply{Line: line + " :" + e.Detail}
	}
	n := e.ToNumeric()
	return Reply{Code: n.Code, Args: n.Args}
}
