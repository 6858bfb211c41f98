package format

import (
	"strconv"
	"strings"
	"time"

	irc "gopkg.in/irc.v3"
)

// Capabilities is the set of IRCv3 capability names a single connection has
// negotiated. A nil map behaves like an empty one.
type Capabilities map[string]struct{}

// Has reports whether cap is present.
func (c Capabilities) Has(cap string) bool {
	_, ok := c[cap]
	return ok
}

// Line is a fully rendered wire line plus whatever server-time tag it was
// stamped with, in case the caller wants to log the timestamp without
// re-parsing the rendered text.
type Line struct {
	Text string
	Timestamp int64
}

// Command builds a line sent as a non-numeric command (JOIN, PRIVMSG,
// TOPIC, ...), with source, command, and positional params, the last one
// sent as a trailing (":"-prefixed) argument when it contains a space or is
// empty, exactly as gopkg.in/irc.v3's Message.String already does —
// rendering is delegated to the same codec the tokenizer uses, per
// the "don't hand-roll a second copy of the wire grammar".
func Command(src Source, command string, params []string, caps Capabilities, serverTime int64, msgid string) Line {
	msg := &irc.Message{Command: command, Params: params}
	if src != nil {
		msg.Prefix = &irc.Prefix{Name: src.formatSource()}
		if u, ok := src.(UserSource); ok {
			msg.Prefix = &irc.Prefix{Name: u.User.Nickname, User: u.User.Username, Host: u.User.Hostname}
		}
		if h, ok := src.(HistoricUser); ok {
			msg.Prefix = &irc.Prefix{Name: h.Nickname, User: h.Username, Host: h.Hostname}
		}
	}
	tags := irc.Tags{}
	if caps.Has("server-time") && serverTime != 0 {
		tags["time"] = irc.TagValue(formatServerTime(serverTime))
	}
	if caps.Has("message-tags") && msgid != "" {
		tags["msgid"] = irc.TagValue(msgid)
	}
	if len(tags) > 0 {
		msg.Tags = tags
	}
	return Line{Text: msg.String(), Timestamp: serverTime}
}

// Numeric builds a classic three-digit numeric reply line, of the form
// ":<server> <code> <target> <args...>" .
func Numeric(serverName string, code int, target Target, args []string) Line {
	t := "*"
	if target != nil {
		t = target.formatTarget()
	}
	params := make([]string, 0, len(args)+1)
	params = append(params, t)
	params = append(params, args...)
	msg := &irc.Message{
		Prefix: &irc.Prefix{Name: serverName},
		Command: padCode(code),
		Params: params,
	}
	return Line{Text: msg.String()}
}

func padCode(code int) string {
	s := strconv.Itoa(code)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// StandardReply builds an IRCv3 standard reply line (FAIL/WARN/NOTE), used
// for ParseError and CHATHISTORY's own malformed-parameter responses per
// this.
func StandardReply(serverName, kind, command, code, description string) Line {
	msg := &irc.Message{
		Prefix: &irc.Prefix{Name: serverName},
		Command: kind,
		Params: []string{command, code, description},
	}
	return Line{Text: msg.String()}
}

// formatServerTime renders the wire form the server-time capability
// requires: RFC3339 with millisecond precision (2011-10-19T16:40:51.620Z).
func formatServerTime(unixMillis int64) string {
	return time.UnixMilli(unixMillis).UTC().Format("2006-01-02T15:04:05.000Z")
}

// JoinParams renders a PRIVMSG/NOTICE payload as a two-element params
// slice (target, text), with the text left to irc.Message.String's own
// trailing-argument logic.
func JoinParams(target string, rest ...string) []string {
	return append([]string{target}, strings.Join(rest, " "))
}
