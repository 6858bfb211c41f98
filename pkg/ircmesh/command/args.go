package command

import (
	"strconv"
	"strings"

	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

// argList is the per-invocation cursor over a ParsedLine's Args, used by
// every handler's argument binding to consume positionals one at a time —
// the Go rendering of
// original_source/sable_ircd/src/command/plumbing/argument_type.rs's
// ArgListIter, without the trait-object machinery Rust needs and Go
// doesn't.
type argList struct {
	args []string
	pos int
}

func newArgList(args []string) *argList { return &argList{args: args} }

// next consumes and returns the next token, or ("", false) if exhausted.
func (a *argList) next() (string, bool) {
	if a.pos >= len(a.args) {
		return "", false
	}
	v := a.args[a.pos]
	a.pos++
	return v, true
}

// require consumes the next token or returns NotEnoughParameters(cmd).
func (a *argList) require(cmd string) (string, *Error) {
	v, ok := a.next()
	if !ok {
		return "", NotEnoughParameters(cmd)
	}
	return v, nil
}

// optional consumes the next token if present, else returns ("", false)
// with no error — the Go equivalent of PositionalArgument's blanket
// Option<T> impl.
func (a *argList) optional() (string, bool) {
	return a.next()
}

// rest returns every remaining token, space-joined, without consuming them —
// used by handlers like TOPIC/QUIT whose final argument is free text that
// the tokenizer has already folded out of the trailing ":" parameter into
// one Args entry, but which may legitimately still be empty.
func (a *argList) rest() string {
	if a.pos >= len(a.args) {
		return ""
	}
	return strings.Join(a.args[a.pos:], " ")
}

// parseNickname validates a nickname token against the minimal grammar this
// implementation enforces: non-empty, no space, ':' or ',' anywhere, and no
// leading '#'.
func parseNickname(cmd, token string) (string, *Error) {
	if token == "" || strings.ContainsAny(token, " :,") || strings.HasPrefix(token, "#") {
		return "", Parse(cmd, "invalid nickname: "+token)
	}
	return token, nil
}

// parseChannelName validates a channel name token: must start with '#'.
func parseChannelName(cmd, token string) (string, *Error) {
	if !strings.HasPrefix(token, "#") || strings.ContainsAny(token, ",") {
		return "", Parse(cmd, "invalid channel name: "+token)
	}
	return token, nil
}

// parseInt parses a base-10 non-negative integer argument.
func parseInt(cmd, token string) (int64, *Error) {
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil || v < 0 {
		return 0, Parse(cmd, "invalid integer: "+token)
	}
	return v, nil
}

// lookupUser resolves a nickname token to a live network.User.
func lookupUser(n network.Network, cmd, token string) (network.User, *Error) {
	nick, perr := parseNickname(cmd, token)
	if perr != nil {
		return network.User{}, perr
	}
	u, ok := n.UserByNick(nick)
	if !ok {
		return network.User{}, NoSuchNick(cmd, nick)
	}
	return u, nil
}

// lookupChannel resolves a channel-name token to a live network.Channel.
func lookupChannel(n network.Network, cmd, token string) (network.Channel, *Error) {
	name, perr := parseChannelName(cmd, token)
	if perr != nil {
		return network.Channel{}, perr
	}
	c, ok := n.ChannelByName(name)
	if !ok {
		return network.Channel{}, NoSuchChannel(cmd, name)
	}
	return c, nil
}
