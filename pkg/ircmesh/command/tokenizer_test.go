package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ircmesh/ircd/pkg/ircmesh/command"
)

// Worked examples (a): the wire-tokeniser scenarios from the spec.
func TestTokenizeWorkedExamples(t *testing.T) {
	line, ok, err := command.Tokenize("command arg1 arg2 :arg three")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "command", line.Command)
	require.Equal(t, []string{"arg1", "arg2", "arg three"}, line.Args)

	line, ok, err = command.Tokenize("command arg1  arg2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "command", line.Command)
	require.Equal(t, []string{"arg1", "arg2"}, line.Args)

	_, ok, err = command.Tokenize("")
	require.NoError(t, err)
	require.False(t, ok)

	line, ok, err = command.Tokenize("    command arg1 arg2 :arg three")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "command", line.Command)
	require.Equal(t, []string{"arg1", "arg2", "arg three"}, line.Args)
}

func TestTokenizeDropsEmptyTokens(t *testing.T) {
	line, ok, err := command.Tokenize("command   arg1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"arg1"}, line.Args)

	_, ok, err = command.Tokenize(":")
	require.NoError(t, err)
	require.False(t, ok)
}

// Round trip property (5): tokenizing a line built from a token sequence
// with no embedded spaces (except an optional trailing multi-word arg)
// recovers the same tokens.
func TestTokenizeRoundTrip(t *testing.T) {
	cases := [][]string{
		{"NICK", "alice"},
		{"JOIN", "#chan"},
		{"PRIVMSG", "#chan", "hello there friend"},
		{"MODE", "#chan", "+o", "alice"},
	}

	for _, tokens := range cases {
		encoded := tokens[0]
		for i, tok := range tokens[1:] {
			isLast := i == len(tokens)-2
			if isLast && containsSpace(tok) {
				encoded += " :" + tok
			} else {
				encoded += " " + tok
			}
		}

		line, ok, err := command.Tokenize(encoded)
		require.NoError(t, err)
		require.True(t, ok)

		got := append([]string{line.Command}, line.Args...)
		require.Equal(t, tokens, got)
	}
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}
