package format

import (
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/network"
)

// RenderChange turns a single network.Change into the wire lines a
// specific viewer's connection should receive, given that connection's
// negotiated capabilities and the Network snapshot the Change was produced
// against (used only to resolve names the ChangeDetails variant itself
// doesn't carry, e.g. TopicChanged's Channel id). This is the realtime
// counterpart to a CHATHISTORY replay: dispatch calls it once per (Change,
// recipient) pair resolved from the Change's Notify set.
func RenderChange(serverName string, n network.Network, c network.Change, caps Capabilities, serverTime int64) []Line {
	switch d := c.Details.(type) {
	case network.UserJoined:
		return []Line{Command(ServerSource{Name: serverName}, "NOTICE", []string{d.User.Nickname, "registered"}, caps, serverTime, "")}
	case network.NicknameChanged:
		return []Line{Command(UserSource{User: d.User}, "NICK", []string{d.NewNick}, caps, serverTime, "")}
	case network.UserQuit:
		return []Line{Command(UserSource{User: d.User}, "QUIT", []string{d.Reason}, caps, serverTime, "")}
	case network.ChannelJoin:
		return []Line{Command(userSourceOf(n, d.Membership.User), "JOIN", []string{d.Channel.Name}, caps, serverTime, "")}
	case network.ChannelPart:
		return []Line{Command(userSourceOf(n, d.Membership.User), "PART", []string{d.Channel.Name, d.Reason}, caps, serverTime, "")}
	case network.TopicChanged:
		name := d.Channel.String()
		if ch, ok := n.Channel(d.Channel); ok {
			name = ch.Name
		}
		return []Line{Command(userSourceOf(n, d.SetBy), "TOPIC", []string{name, d.Topic}, caps, serverTime, "")}
	case network.MessageDelivered:
		return nil // rendered by SendRealtimeItem from a MessagePayload, which has the text/target this variant doesn't carry
	case network.ServerQuitBulk:
		lines := make([]Line, 0, len(d.Users))
		for _, u := range d.Users {
			lines = append(lines, Command(UserSource{User: u}, "QUIT", []string{"*.net *.split"}, caps, serverTime, ""))
		}
		return lines
	default:
		return nil
	}
}

// userSourceOf resolves a live UserSource for id against n, falling back to
// UnknownSource if the user has since been removed from the snapshot (a
// concurrent quit the caller's snapshot predates).
func userSourceOf(n network.Network, id ids.UserId) Source {
	u, ok := n.User(id)
	if !ok {
		return UnknownSource{}
	}
	return UserSource{User: u}
}

// SendRealtimeItem renders a Change plus the extra live context a bare
// history replay doesn't carry (e.g. a PRIVMSG's sender/target/text, which
// network.MessageDelivered alone can't supply) and pushes it straight to
// sink, for a dispatcher delivering a just-applied Change to a connected
// client.
func SendRealtimeItem(sink func(string), serverName string, n network.Network, c network.Change, caps Capabilities, serverTime int64, msg *MessagePayload) {
	if msg != nil {
		sink(Command(msg.From, msg.commandName(), []string{msg.Target.formatTarget(), msg.Text}, caps, serverTime, msg.MsgID).Text)
		return
	}
	for _, line := range RenderChange(serverName, n, c, caps, serverTime) {
		sink(line.Text)
	}
}

// SendHistoryItem renders a single history.Entry (an already-recorded
// Change plus whichever snapshot fields it needs) for CHATHISTORY replay,
// and pushes it to sink. It is SendRealtimeItem with the server-time tag
// taken from recordedAt.
func SendHistoryItem(sink func(string), serverName string, n network.Network, c network.Change, caps Capabilities, recordedAt int64, msg *MessagePayload) {
	SendRealtimeItem(sink, serverName, n, c, caps, recordedAt, msg)
}

// MessagePayload carries the extra fields a PRIVMSG/NOTICE delivery needs
// beyond what network.MessageDelivered records. The engine builds one for
// each applied NewMessage event and passes it in dispatch.Item.Message.
type MessagePayload struct {
	From Source
	Target Target
	Text string
	IsNotice bool
	MsgID string
}

func (m *MessagePayload) commandName() string {
	if m.IsNotice {
		return "NOTICE"
	}
	return "PRIVMSG"
}

// RenderNumeric is a thin convenience wrapper around Numeric for dispatch
// call sites that already have a *command.Error's Numeric value.
func RenderNumeric(serverName string, code int, target Target, args ...string) Line {
	return Numeric(serverName, code, target, args)
}
