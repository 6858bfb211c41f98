package command

import (
	"strings"

	irc "gopkg.in/irc.v3"
)

// ParsedLine is the normalized form of a single wire line: a command name
// (left exactly as received — callers case-fold when looking the name up in
// the Handler registry) and a flat argument list, with the IRCv3 trailing
// (":"-prefixed) argument already folded in as the final element.
type ParsedLine struct {
	Command string
	Args []string
	Tags map[string]string
}

// Tokenize splits a trimmed line on single spaces into tokens; a token
// prefixed with ":" makes the remainder of the line (after the colon) a
// single trailing argument and ends tokenization; empty tokens (double
// spaces, a trailing space, or a lone ":") are dropped; an empty line
// yields no message at all.
//
// The real splitting/trailing-argument grammar is delegated to
// gopkg.in/irc.v3's ParseMessage (the same wire codec
// other_examples/delthas-soju uses) rather than a hand-rolled splitter —
// this function only adapts its output to the (command, args) shape and
// enforces the empty-token-drop rule explicitly, since irc.v3 is written
// for real wire traffic and does
// not itself promise to drop a bare ":" token.
func Tokenize(line string) (ParsedLine, bool, error) {
	trimmed := strings.Trim(line, " \r\n\t")
	if trimmed == "" || trimmed == ":" {
		return ParsedLine{}, false, nil
	}

	msg, err := irc.ParseMessage(trimmed)
	if err != nil {
		if err == irc.ErrZeroLengthMessage {
			return ParsedLine{}, false, nil
		}
		return ParsedLine{}, false, err
	}

	args := make([]string, 0, len(msg.Params))
	for _, p := range msg.Params {
		if p == "" {
			continue
		}
		args = append(args, p)
	}

	var tags map[string]string
	if len(msg.Tags) > 0 {
		tags = make(map[string]string, len(msg.Tags))
		for k, v := range msg.Tags {
			tags[string(k)] = string(v)
		}
	}

	// irc.v3 upper-cases the command; recover the token as it was received.
	command := msg.Command
	for _, field := range strings.Fields(trimmed) {
		if !strings.HasPrefix(field, "@") && !strings.HasPrefix(field, ":") {
			command = field
			break
		}
	}

	return ParsedLine{Command: command, Args: args, Tags: tags}, true, nil
}
