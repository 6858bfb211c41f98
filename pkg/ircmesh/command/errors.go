// Package command implements the client-protocol front end described in
// this: the wire tokenizer, the typed positional/ambient argument
// binder, the static Handler registry, and the CommandAction taxonomy a
// handler emits instead of mutating network state directly.
package command

import "fmt"

// ErrorKind enumerates the client-facing error taxonomy .
// Internal kinds (CausalDependencyMissing, DuplicateEventId, LogCorruption)
// live in pkg/ircmesh/event instead, since they never reach a handler.
type ErrorKind int

const (
	// ParseError is malformed wire input; the connection stays open.
	ParseError ErrorKind = iota
	// ErrNoSuchNick, ErrNoSuchChannel, ErrNoSuchServer are the three
	// LookupError varieties.
	ErrNoSuchNick
	ErrNoSuchChannel
	ErrNoSuchServer
	// ErrPermission covers insufficient channel- or user-mode privilege.
	ErrPermission
	// ErrNotEnoughParameters is a missing required positional argument.
	ErrNotEnoughParameters
	// ErrNicknameInUse is the NewUser/NICK-specific collision numeric;
	// not named in the table but required by ERR_NICKNAMEINUSE
	// (433), the standard IRC response to the NewUser reducer rejection
	// described here.
	ErrNicknameInUse
	// ErrAlreadyRegistered is returned when NICK/USER completes
	// registration twice.
	ErrAlreadyRegistered
	// ErrUnknownCommand is returned for a command name with no registered
	// Handler.
	ErrUnknownCommand
)

// Error is the typed value every Handler returns instead of a bare error
// string, mirroring original_source/sable_ircd's CommandError enum
// (translated here to a Kind discriminant plus free-form Context/Detail
// fields rather than a Rust-style payload-carrying variant).
type Error struct {
	Kind ErrorKind
	Command string
	Context string // the offending token/argument, where applicable
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("command %s: %s (%s)", e.Command, e.Detail, e.Context)
}

// NotEnoughParameters builds the 461 error for cmd.
func NotEnoughParameters(cmd string) *Error {
	return &Error{Kind: ErrNotEnoughParameters, Command: cmd, Detail: "not enough parameters"}
}

// NoSuchNick builds the 401 error for a failed nickname lookup.
func NoSuchNick(cmd, nick string) *Error {
	return &Error{Kind: ErrNoSuchNick, Command: cmd, Context: nick, Detail: "no such nick"}
}

// NoSuchChannel builds the 403 error for a failed channel lookup.
func NoSuchChannel(cmd, name string) *Error {
	return &Error{Kind: ErrNoSuchChannel, Command: cmd, Context: name, Detail: "no such channel"}
}

// NoSuchServer builds the 402 error for a failed server lookup.
func NoSuchServer(cmd, name string) *Error {
	return &Error{Kind: ErrNoSuchServer, Command: cmd, Context: name, Detail: "no such server"}
}

// Permission builds a permission-denied error for cmd.
func Permission(cmd, detail string) *Error {
	return &Error{Kind: ErrPermission, Command: cmd, Detail: detail}
}

// Parse builds a malformed-input error for cmd.
func Parse(cmd, detail string) *Error {
	return &Error{Kind: ParseError, Command: cmd, Detail: detail}
}

// Numeric is a reply code plus its formatted argument list, not yet bound to
// a source/target pair (format.Formatter does that binding).
type Numeric struct {
	Code int
	Args []string
}

// ToNumeric translates e into the wire numeric/FAIL form the table
// names. ParseError and a handful of kinds without a classic numeric use the
// IRCv3 standard-reply form (FAIL/WARN) instead, formatted by the caller
// with the command name and a human-readable description.
func (e *Error) ToNumeric() Numeric {
	switch e.Kind {
	case ErrNoSuchNick:
		return Numeric{Code: 401, Args: []string{e.Context, "No such nick/channel"}}
	case ErrNoSuchServer:
		return Numeric{Code: 402, Args: []string{e.Context, "No such server"}}
	case ErrNoSuchChannel:
		return Numeric{Code: 403, Args: []string{e.Context, "No such channel"}}
	case ErrNotEnoughParameters:
		return Numeric{Code: 461, Args: []string{e.Command, "Not enough parameters"}}
	case ErrNicknameInUse:
		return Numeric{Code: 433, Args: []string{e.Context, "Nickname is already in use"}}
	case ErrAlreadyRegistered:
		return Numeric{Code: 462, Args: []string{"You may not reregister"}}
	case ErrPermission:
		return Numeric{Code: 482, Args: []string{e.Context, "You're not a channel operator"}}
	default:
		return Numeric{Code: 421, Args: []string{e.Command, "Unknown command"}}
	}
}

// IsFailForm reports whether e should be rendered as a standard reply
// (FAIL/WARN/NOTE) rather than a classic three-digit numeric, 
// the "standard replies" form. Only ParseError and CHATHISTORY's own
// INVALID_PARAMS use this form in this implementation.
func (e *Error) IsFailForm() bool {
	return e.Kind == ParseError
}
