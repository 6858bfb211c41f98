package command

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/ircmesh/ircd/pkg/ircmesh/event"
	"github.com/ircmesh/ircd/pkg/ircmesh/history"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

// handleMode dispatches to the channel- or membership-flag reducer events
// depending on whether the target is a channel (the split between
// ChannelModeChange and MembershipModeChange, see DESIGN.md's Open Question
// resolution).
func handleMode(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	_, perr := requireRegistered(ctx, "MODE")
	if perr != nil {
		return nil, nil, perr
	}
	target := args[0]
	if !strings.HasPrefix(target, "#") {
		// user mode query/change: not modelled beyond a no-op view, since
		// replicated User.Modes are server-set only.
		return nil, nil, nil
	}
	channel, perr := lookupChannel(ctx.Network, "MODE", target)
	if perr != nil {
		return nil, nil, perr
	}
	if len(args) < 2 {
		return nil, []Reply{{Line: "324 " + channel.Name + " " + renderChannelModes(channel)}}, nil
	}

	spec := args[1]
	params := args[2:]
	adding := true
	paramIdx := 0
	channelAdded := map[event.ChannelModeFlag]string{}
	channelRemoved := map[event.ChannelModeFlag]struct{}{}
	var membershipAdds, membershipRemoves []memberFlagOp

	for _, c := range spec {
		switch c {
		case '+':
			adding = true
		case '-':
			adding = false
		case 'o', 'v', 'h':
			if paramIdx >= len(params) {
				return nil, nil, NotEnoughParameters("MODE")
			}
			nick := params[paramIdx]
			paramIdx++
			u, perr := lookupUser(ctx.Network, "MODE", nick)
			if perr != nil {
				return nil, nil, perr
			}
			m, ok := ctx.Network.MembershipOf(u.ID, channel.ID)
			if !ok {
				return nil, nil, Permission("MODE", nick+" not on channel")
			}
			membershipAdds, membershipRemoves = appendMemberFlag(membershipAdds, membershipRemoves, m.ID, event.MembershipFlag(string(c)), adding)
		case 'k', 'l':
			// key/limit carry a parameter only when being set, not cleared.
			flag := event.ChannelModeFlag(string(c))
			if adding {
				if paramIdx >= len(params) {
					return nil, nil, NotEnoughParameters("MODE")
				}
				channelAdded[flag] = params[paramIdx]
				paramIdx++
			} else {
				channelRemoved[flag] = struct{}{}
			}
		default:
			flag := event.ChannelModeFlag(string(c))
			if adding {
				channelAdded[flag] = ""
			} else {
				channelRemoved[flag] = struct{}{}
			}
		}
	}

	var actions []Action
	if len(channelAdded) > 0 || len(channelRemoved) > 0 {
		actions = append(actions, StateChange{
			Target: channel.ID,
			Details: event.ChannelModeChange{Channel: channel.ID, Added: channelAdded, Removed: channelRemoved},
		})
	}
	for _, op := range collapseMemberFlags(membershipAdds, membershipRemoves) {
		actions = append(actions, StateChange{
			Target: op.membership,
			Details: event.MembershipModeChange{Membership: op.membership, Added: op.added, Removed: op.removed},
		})
	}
	return actions, nil, nil
}

type memberFlagOp struct {
	membership ids.MembershipId
	added []event.MembershipFlag
	removed []event.MembershipFlag
}

func appendMemberFlag(adds, removes []memberFlagOp, m ids.MembershipId, flag event.MembershipFlag, adding bool) ([]memberFlagOp, []memberFlagOp) {
	if adding {
		return append(adds, memberFlagOp{membership: m, added: []event.MembershipFlag{flag}}), removes
	}
	return adds, append(removes, memberFlagOp{membership: m, removed: []event.MembershipFlag{flag}})
}

// collapseMemberFlags merges per-flag ops targeting the same membership
// into one MembershipModeChange event, so e.g. MODE #c +o-v nick1 nick2
// (applied to different users) still yields one event per distinct user.
func collapseMemberFlags(adds, removes []memberFlagOp) []memberFlagOp {
	byMembership := make(map[ids.MembershipId]*memberFlagOp)
	order := make([]ids.MembershipId, 0, len(adds)+len(removes))
	merge := func(op memberFlagOp) {
		existing, ok := byMembership[op.membership]
		if !ok {
			cp := op
			byMembership[op.membership] = &cp
			order = append(order, op.membership)
			return
		}
		existing.added = append(existing.added, op.added...)
		existing.removed = append(existing.removed, op.removed...)
	}
	for _, op := range adds {
		merge(op)
	}
	for _, op := range removes {
		merge(op)
	}
	out := make([]memberFlagOp, 0, len(order))
	for _, id := range order {
		out = append(out, *byMembership[id])
	}
	return out
}

func renderChannelModes(c network.Channel) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for f := range c.Modes {
		sb.WriteString(string(f))
	}
	return sb.String()
}

// handleWhois answers with the minimal field set data model
// actually carries (no server-uptime/idle-time claims this implementation
// cannot back).
func handleWhois(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := lookupUser(ctx.Network, "WHOIS", args[0])
	if perr != nil {
		return nil, nil, perr
	}
	var channels []string
	for _, m := range ctx.Network.MembershipsOfUser(u.ID) {
		if c, ok := ctx.Network.Channel(m.Channel); ok {
			channels = append(channels, c.Name)
		}
	}
	replies := []Reply{
		{Line: "311 " + u.Nickname + " " + u.Username + " " + u.Hostname + " * :" + u.Realname},
		{Line: "319 " + u.Nickname + " :" + strings.Join(channels, " ")},
		{Line: "318 " + u.Nickname + " :End of WHOIS list"},
	}
	return nil, replies, nil
}

// handleCap implements the subset of IRCv3 capability negotiation this
// requires: LS (advertise), REQ (request, always granted for a name
// this server knows), END (finish negotiation).
func handleCap(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	sub := strings.ToUpper(args[0])
	switch sub {
	case "LS":
		return nil, []Reply{{Line: "CAP * LS :" + strings.Join(knownCapabilities, " ")}}, nil
	case "LIST":
		return nil, []Reply{{Line: "CAP * LIST :"}}, nil
	case "REQ":
		if len(args) < 2 {
			return nil, nil, NotEnoughParameters("CAP")
		}
		requested := strings.Fields(args[1])
		granted := make(map[string]struct{}, len(requested))
		for _, name := range requested {
			if knownCapability(name) {
				granted[name] = struct{}{}
			}
		}
		names := make([]string, 0, len(granted))
		for name := range granted {
			names = append(names, name)
		}
		return []Action{UpdateConnectionCaps{Connection: ctx.Connection, Capabilities: granted}},
			[]Reply{{Line: "CAP * ACK :" + strings.Join(names, " ")}}, nil
	case "END":
		return nil, nil, nil
	default:
		return nil, nil, Parse("CAP", "unknown CAP subcommand: "+sub)
	}
}

var knownCapabilities = []string{"message-tags", "server-time", "echo-message", "multi-prefix", "account-tag"}

func knownCapability(name string) bool {
	for _, c := range knownCapabilities {
		if c == name {
			return true
		}
	}
	return false
}

// handleRegister implements the two persistent-registration flows this
// describe: REGISTER CHANNEL <name> registers the caller as a
// channel's owner, REGISTER ACCOUNT <name> registers a persistent account.
func handleRegister(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	u, perr := requireRegistered(ctx, "REGISTER")
	if perr != nil {
		return nil, nil, perr
	}
	kind := strings.ToUpper(args[0])
	switch kind {
	case "CHANNEL":
		if len(args) < 2 {
			return nil, nil, NotEnoughParameters("REGISTER")
		}
		name, perr := parseChannelName("REGISTER", args[1])
		if perr != nil {
			return nil, nil, perr
		}
		return []Action{StateChange{
			Target: u.ID,
			Details: event.NewChannelRegistration{ChannelName: name, RegisteredBy: u.ID},
		}}, nil, nil
	case "ACCOUNT":
		if len(args) < 2 {
			return nil, nil, NotEnoughParameters("REGISTER")
		}
		return []Action{StateChange{
			Target: u.ID,
			Details: event.NewAccountRegistration{AccountName: args[1], Owner: u.ID},
		}}, nil, nil
	default:
		return nil, nil, Parse("REGISTER", "unknown REGISTER kind: "+kind)
	}
}

// handleAuthenticate implements the SASL PLAIN exchange's wire shape
// without the credential-verification machinery itself, which the
// Non-goals place with the external listener ("Client-facing
// authentication/TLS handling (delegated to the listener)"). "PLAIN"
// requests the payload; a base64 argument is decoded per RFC 4616
// (authzid NUL authcid NUL passwd) and binds the connection to an
// existing NewAccountRegistration entry by name — the password itself is
// accepted but not checked against anything this engine stores, since no
// credential ever enters replicated state.
func handleAuthenticate(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	mech := strings.ToUpper(args[0])
	if mech == "PLAIN" {
		return nil, []Reply{{Line: "AUTHENTICATE +"}}, nil
	}
	if mech == "*" {
		return nil, []Reply{{Line: "906 * :SASL authentication aborted"}}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		return nil, []Reply{{Line: "904 * :SASL authentication failed"}}, nil
	}
	parts := strings.SplitN(string(raw), "\x00", 3)
	if len(parts) != 3 {
		return nil, []Reply{{Line: "904 * :SASL authentication failed"}}, nil
	}
	authcid := parts[1]
	account, ok := ctx.Network.Account(authcid)
	if !ok {
		return nil, []Reply{{Line: "904 * :SASL authentication failed"}}, nil
	}
	return nil, []Reply{
		{Line: "900 * * " + account.Name + " :You are now logged in as " + account.Name},
		{Line: "903 * :SASL authentication successful"},
	}, nil
}

// handleChatHistory answers the six CHATHISTORY selectors 
// the table. Timestamps are passed on the wire as base-10 Unix
// milliseconds rather than the IRCv3 msgid/timestamp token forms, a
// simplification this implementation documents here.
func handleChatHistory(ctx *Context, args []string) ([]Action, []Reply, *Error) {
	if ctx.History == nil {
		return nil, nil, Parse("CHATHISTORY", "history unavailable")
	}
	sub := strings.ToUpper(args[0])
	rest := args[1:]

	var entries []history.Entry
	var perr *Error
	switch sub {
	case "TARGETS":
		if len(rest) < 3 {
			return nil, nil, NotEnoughParameters("CHATHISTORY")
		}
		from, e1 := parseInt("CHATHISTORY", rest[0])
		to, e2 := parseInt("CHATHISTORY", rest[1])
		limit, e3 := parseInt("CHATHISTORY", rest[2])
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, nil, Parse("CHATHISTORY", "invalid TARGETS arguments")
		}
		targets := ctx.History.Targets(from, to, int(limit))
		replies := make([]Reply, 0, len(targets))
		for _, t := range targets {
			replies = append(replies, Reply{Line: "CHATHISTORY TARGETS " + t})
		}
		return nil, replies, nil
	case "LATEST":
		if len(rest) < 3 {
			return nil, nil, NotEnoughParameters("CHATHISTORY")
		}
		hasFrom := rest[1] != "*"
		var from int64
		if hasFrom {
			from, perr = parseInt("CHATHISTORY", rest[1])
		}
		limit, e := parseInt("CHATHISTORY", rest[2])
		if perr != nil || e != nil {
			return nil, nil, Parse("CHATHISTORY", "invalid LATEST arguments")
		}
		entries = ctx.History.Latest(rest[0], hasFrom, from, int(limit))
	case "BEFORE":
		entries, perr = historyRange(ctx, rest, ctx.History.Before)
	case "AFTER":
		entries, perr = historyRange(ctx, rest, ctx.History.After)
	case "AROUND":
		entries, perr = historyRange(ctx, rest, ctx.History.Around)
	case "BETWEEN":
		if len(rest) < 4 {
			return nil, nil, NotEnoughParameters("CHATHISTORY")
		}
		start, e1 := parseInt("CHATHISTORY", rest[1])
		end, e2 := parseInt("CHATHISTORY", rest[2])
		limit, e3 := parseInt("CHATHISTORY", rest[3])
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, nil, Parse("CHATHISTORY", "invalid BETWEEN arguments")
		}
		entries = ctx.History.Between(rest[0], start, end, int(limit))
	default:
		return nil, nil, Parse("CHATHISTORY", "unknown CHATHISTORY subcommand: "+sub)
	}
	if perr != nil {
		return nil, nil, perr
	}
	return nil, renderHistoryReplies(entries), nil
}

func historyRange(ctx *Context, rest []string, fn func(target string, ts int64, limit int) []history.Entry) ([]history.Entry, *Error) {
	if len(rest) < 3 {
		return nil, NotEnoughParameters("CHATHISTORY")
	}
	ts, e1 := parseInt("CHATHISTORY", rest[1])
	limit, e2 := parseInt("CHATHISTORY", rest[2])
	if e1 != nil || e2 != nil {
		return nil, Parse("CHATHISTORY", "invalid timestamp/limit")
	}
	return fn(rest[0], ts, int(limit)), nil
}

// renderHistoryReplies turns a batch of history entries into a minimal
// textual replay: one line per entry with its target, timestamp and a
// short description. It does not use the format package's per-capability
// rendering.
func renderHistoryReplies(entries []history.Entry) []Reply {
	replies := make([]Reply, 0, len(entries))
	for _, e := range entries {
		replies = append(replies, Reply{Line: "CHATHISTORY " + e.Target + " " + strconv.FormatInt(e.Timestamp, 10) + " :" + describeChange(e.Details)})
	}
	return replies
}

func describeChange(c network.Change) string {
	switch d := c.Details.(type) {
	case network.MessageDelivered:
		return "PRIVMSG " + d.From.String()
	case network.TopicChanged:
		return "TOPIC :" + d.Topic
	case network.UserJoined:
		return "JOIN " + d.User.Nickname
	default:
		return ""
	}
}
