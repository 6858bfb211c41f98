package command

import (
	"strings"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

// RegisterDefaultHandlers populates reg with every handler this
// implementation supports, mirroring
// original_source/sable_ircd/src/command/handlers's per-command module
// layout collapsed into one registration pass (the command table).
func RegisterDefaultHandlers(reg *Registry) {
	reg.Register(HandlerFunc{name: "NICK", minParams: 1, fn: handleNick})
	reg.Register(HandlerFunc{name: "USER", minParams: 4, fn: handleUser})
	reg.Register(HandlerFunc{name: "PING", minParams: 0, fn: handlePing})
	reg.Register(HandlerFunc{name: "PONG", minParams: 0, fn: handlePong})
	reg.Register(HandlerFunc{name: "QUIT", minParams: 0, fn: handleQuit})
	reg.Register(HandlerFunc{name: "JOIN", minParams: 1, fn: handleJoin})
	reg.Register(HandlerFunc{name: "PART", minParams: 1, fn: handlePart})
	reg.Register(HandlerFunc{name: "TOPIC", minParams: 1, fn: handleTopic})
	reg.Register(HandlerFunc{name: "PRIVMSG", minParams: 2, fn: handlePrivmsg})
	reg.Register(HandlerFunc{name: "NOTICE", minParams: 2, fn: handleNotice})
	reg.Register(HandlerFunc{name: "MODE", minParams: 1, fn: handleMode})
	reg.Register(HandlerFunc{name: "WHOIS", minParams: 1, fn: handleWhois})
	reg.Register(HandlerFunc{name: "CAP", minParams: 1, fn: handleCap})
	reg.Register(HandlerFunc{name: "REGISTER", minParams: 1, fn: handleRegister})
	reg.Register(HandlerFunc{name: "AUTHENTICATE", minParams: 1, fn: handleAuthenticate})
	reg.Register(HandlerFunc{name: "CHATHISTORY", minParams: 2, fn: handleChatHistory})
}

// requireRegistered returns NoSuchNick-shaped rejection text... actually we
// want a dedicated helper: a command that needs an attached user fails with
// ErrNotEnoughParameters-style numeric 451 (ERR_NOTREGISTERED) in real IRC,
// but the table has no such kind; reuse ErrPermission since the
// effect (reject, stay open) is the same and this implementation's numeric
// table does not promise full RFC coverage.
func requireRegistered(ctx *Context, cmd string) (network.User, *Error) {
	u, ok := ctx.SourceUser()
	if !ok {
		return u, Permission(cmd, "not registered")
	}
	return u, nil
}

// handleNick accumulates the PreClient nickname before registration, or
// emits a StateChange/NickChange once already attached. Collision checks
// happen only at the reducer. — this handler never reads the
// nick index itself, since doing so against a stale Context snapshot would
// just race the reducer's authoritative check.
func handleNick(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	a := newArgList(args)
	token, perr := a.require("NICK")
	if perr != nil {
		return nil, nil, perr
	}
	nick, perr := parseNickname("NICK", token)
	if perr != nil {
		return nil, nil, perr
	}

	if ctx.User == nil {
		if _, ok := ctx.Registry.SetNick(ctx.Connection, nick); !ok {
			return nil, nil, &Error{Kind: ErrAlreadyRegistered, Command: "NICK", Detail: "nick already set"}
		}
		var actions []Action
		if ctx.Pre != nil && ctx.Pre.Nick != nil && ctx.Pre.Ready {
			actions = append(actions, RegisterClient{Connection: ctx.Connection})
		}
		return actions, nil, nil
	}

	return []Action{StateChange{
		Target: *ctx.User,
		Details: event.NickChange{User: *ctx.User, NewNickname: nick},
	}}, nil, nil
}

// handleUser accumulates the three remaining PreClient fields in one shot,
// per RFC 2812's USER grammar (username, unused mode mask, unused servername,
// realname) adapted to the field set (no mode mask field kept, since
// User carries Modes as a separate replicated concept set only by
// the server, never the client).
func handleUser(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	if ctx.User != nil {
		return nil, nil, &Error{Kind: ErrAlreadyRegistered, Command: "USER", Detail: "already registered"}
	}
	a := newArgList(args)
	username, perr := a.require("USER")
	if perr != nil {
		return nil, nil, perr
	}
	_, perr = a.require("USER") // unused mode mask
	if perr != nil {
		return nil, nil, perr
	}
	_, perr = a.require("USER") // unused servername
	if perr != nil {
		return nil, nil, perr
	}
	realname, perr := a.require("USER")
	if perr != nil {
		return nil, nil, perr
	}

	if _, ok := ctx.Registry.SetUser(ctx.Connection, username); !ok {
		return nil, nil, &Error{Kind: ErrAlreadyRegistered, Command: "USER", Detail: "user already set"}
	}
	ctx.Registry.SetRealname(ctx.Connection, realname)

	var actions []Action
	if ctx.Pre != nil && ctx.Pre.Ready {
		actions = append(actions, RegisterClient{Connection: ctx.Connection})
	}
	return actions, nil, nil
}

// handlePing answers a client-originated PING with a synchronous PONG
// Reply, bypassing the event log entirely — liveness has no observable
// network state of its own( ServerPing for
// peer-to-peer liveness; client PING/PONG is purely connection-local).
func handlePing(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	token := ""
	if len(args) > 0 {
		token = args[0]
	}
	return nil, []Reply{{Line: "PONG " + ctx.Server.Name + " :" + token}}, nil
}

// handlePong acknowledges a server-originated PING; it resets the
// connection's liveness timer, which is tracked outside the replicated
// Network state (the owning server's connection loop does this, not a
// Handler), so there is nothing further to do here.
func handlePong(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	return nil, nil, nil
}

// handleQuit emits a UserQuit for the caller's own user and requests the
// connection be dropped afterward.
func handleQuit(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := requireRegistered(ctx, "QUIT")
	if perr != nil {
		return nil, nil, perr
	}
	reason := "Client Quit"
	if len(args) > 0 {
		reason = strings.Join(args, " ")
	}
	return []Action{
		StateChange{Target: u.ID, Details: event.UserQuit{User: u.ID, Reason: reason}},
		DisconnectUser{User: u.ID, Reason: reason},
	}, nil, nil
}

// handleJoin emits one StateChange/ChannelJoin per comma-separated channel
// name, minting a fresh MembershipId from ctx.NextID for each.
func handleJoin(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := requireRegistered(ctx, "JOIN")
	if perr != nil {
		return nil, nil, perr
	}
	names := strings.Split(args[0], ",")
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		name, perr := parseChannelName("JOIN", name)
		if perr != nil {
			return actions, nil, perr
		}
		var channelID ids.ChannelId
		if existing, ok := ctx.Network.ChannelByName(name); ok {
			channelID = existing.ID
		} else {
			channelID = ids.NewChannelId(ctx.Server.ID, ctx.NextID())
		}
		actions = append(actions, StateChange{
			Target: u.ID,
			Details: event.ChannelJoin{
				Membership: ids.NewMembershipId(ctx.Server.ID, ctx.NextID()),
				User: u.ID,
				Channel: channelID,
				ChannelName: name,
			},
		})
	}
	return actions, nil, nil
}

// handlePart emits one StateChange/ChannelPart per comma-separated channel
// name the caller currently holds a membership in.
func handlePart(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := requireRegistered(ctx, "PART")
	if perr != nil {
		return nil, nil, perr
	}
	reason := ""
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}
	names := strings.Split(args[0], ",")
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		channel, perr := lookupChannel(ctx.Network, "PART", name)
		if perr != nil {
			return actions, nil, perr
		}
		m, ok := ctx.Network.MembershipOf(u.ID, channel.ID)
		if !ok {
			return actions, nil, Permission("PART", "not on channel "+channel.Name)
		}
		actions = append(actions, StateChange{
			Target: u.ID,
			Details: event.ChannelPart{Membership: m.ID, Reason: reason},
		})
	}
	return actions, nil, nil
}

// handleTopic views (no args beyond the channel) or sets the topic.
func handleTopic(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := requireRegistered(ctx, "TOPIC")
	if perr != nil {
		return nil, nil, perr
	}
	channel, perr := lookupChannel(ctx.Network, "TOPIC", args[0])
	if perr != nil {
		return nil, nil, perr
	}
	if len(args) < 2 {
		return nil, []Reply{{Line: "332 " + channel.Name + " :" + channel.Topic}}, nil
	}
	topic := strings.Join(args[1:], " ")
	return []Action{StateChange{
		Target: channel.ID,
		Details: event.TopicChange{Channel: channel.ID, Topic: topic, SetBy: u.ID},
	}}, nil, nil
}

// handlePrivmsg resolves the target (nick or channel) and emits a
// StateChange/NewMessage; delivery/fanout happens entirely in dispatch,
// driven off the Change's Notify set.
func handlePrivmsg(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	return deliverMessage(ctx, args, false)
}

func handleNotice(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	return deliverMessage(ctx, args, true)
}

func deliverMessage(ctx *Context, args []string, isNotice bool) ([]Action, []Reply, *Error) {
	cmd := "PRIVMSG"
	if isNotice {
		cmd = "NOTICE"
	}
	u, perr := requireRegistered(ctx, cmd)
	if perr != nil {
		return nil, nil, perr
	}
	target := args[0]
	text := strings.Join(args[1:], " ")

	d := event.NewMessage{
		Message: ids.NewMessageId(ctx.Server.ID, ctx.NextID()),
		From: u.ID,
		Text: text,
		IsNotice: isNotice,
	}
	var stateTarget ids.ObjectId
	if strings.HasPrefix(target, "#") {
		channel, perr := lookupChannel(ctx.Network, cmd, target)
		if perr != nil {
			if isNotice {
				return nil, nil, nil // NOTICE never replies with an error (RFC 2812)
			}
			return nil, nil, perr
		}
		d.ToChannel = &channel.ID
		stateTarget = channel.ID
	} else {
		to, perr := lookupUser(ctx.Network, cmd, target)
		if perr != nil {
			if isNotice {
				return nil, nil, nil
			}
			return nil, nil, perr
		}
		d.ToUser = &to.ID
		stateTarget = to.ID
	}
	return []Action{StateChange{Target: stateTarget, Details: d}}, nil, nil
}
