// Package command builds and encodes IMAP4rev1 commands: the Command
// record that names what to send, and the Encode step that picks the
// atom/quoted/literal representation of each opaque argument the way
// ymaplib.IMAPParser's cmd_* methods do on the original source's send
// side, adapted here to produce wire bytes instead of building up a
// Python string.
package command

import (
	"fmt"
	"strings"
)

// Arg is one element of a Command. The first element of every Command is
// always a Verbatim naming the command itself — never a Str, since a
// command name must never be quoted or turned into a literal.
type Arg interface {
	arg()
}

// Verbatim is emitted byte-for-byte with no escaping: command names, flag
// lists the caller has already parenthesised, atoms like message sets.
type Verbatim string

func (Verbatim) arg() {}

// Str is an opaque argument whose wire representation (atom, quoted
// string, or literal) is chosen by Encode based on its content, per RFC
// 3501 §4 and LITERAL+ (RFC 7888) when the connection supports it.
type Str string

func (Str) arg() {}

// Mechanism names a SASL mechanism for AUTHENTICATE; it is encoded as a
// verbatim atom (the mechanism name), never quoted.
type Mechanism string

func (Mechanism) arg() {}

// Command is an ordered sequence of arguments: Command[0] names the verb.
type Command []Arg

// Name returns the command verb (Command[0]). Panics if cmd is empty,
// which would mean a constructor bug, not caller error.
func (cmd Command) Name() string {
	return string(cmd[0].(Verbatim))
}

func atomVerb(name string, rest ...Arg) Command {
	return append(Command{Verbatim(name)}, rest...)
}

// --- constructors for each IMAP4rev1 command -------------------------------

func CmdCapability() Command { return atomVerb("CAPABILITY") }
func CmdNoop() Command       { return atomVerb("NOOP") }
func CmdLogout() Command     { return atomVerb("LOGOUT") }
func CmdStartTLS() Command   { return atomVerb("STARTTLS") }

func CmdLogin(user, pass string) Command {
	return atomVerb("LOGIN", Str(user), Str(pass))
}

func CmdAuthenticate(mech Mechanism, initial *string) Command {
	cmd := atomVerb("AUTHENTICATE", mech)
	if initial != nil {
		cmd = append(cmd, Str(*initial))
	}
	return cmd
}

func CmdSelect(mailbox string) Command   { return atomVerb("SELECT", Str(mailbox)) }
func CmdExamine(mailbox string) Command  { return atomVerb("EXAMINE", Str(mailbox)) }
func CmdCreate(mailbox string) Command   { return atomVerb("CREATE", Str(mailbox)) }
func CmdDelete(mailbox string) Command   { return atomVerb("DELETE", Str(mailbox)) }
func CmdSubscribe(m string) Command      { return atomVerb("SUBSCRIBE", Str(m)) }
func CmdUnsubscribe(m string) Command    { return atomVerb("UNSUBSCRIBE", Str(m)) }
func CmdClose() Command                  { return atomVerb("CLOSE") }
func CmdUnselect() Command               { return atomVerb("UNSELECT") }
func CmdCheck() Command                  { return atomVerb("CHECK") }
func CmdExpunge() Command                { return atomVerb("EXPUNGE") }

func CmdRename(from, to string) Command {
	return atomVerb("RENAME", Str(from), Str(to))
}

func CmdList(ref, pattern string) Command {
	return atomVerb("LIST", Str(ref), Str(pattern))
}

func CmdLSub(ref, pattern string) Command {
	return atomVerb("LSUB", Str(ref), Str(pattern))
}

// CmdStatus renders the item list as one pre-formatted parenthesised
// atom list, per RFC 3501 §6.3.10 — it must never be treated as an
// opaque Str, since "(MESSAGES UIDNEXT)" is not a quotable/literal-able
// single token but a verbatim-formatted group.
func CmdStatus(mailbox string, items []string) Command {
	return atomVerb("STATUS", Str(mailbox), Verbatim("("+strings.Join(items, " ")+")"))
}

func CmdFetch(seqSet, items string) Command {
	return atomVerb("FETCH", Verbatim(seqSet), Verbatim(items))
}

func CmdUIDFetch(seqSet, items string) Command {
	return atomVerb("UID", Verbatim("FETCH"), Verbatim(seqSet), Verbatim(items))
}

func CmdStore(seqSet, item, value string) Command {
	return atomVerb("STORE", Verbatim(seqSet), Verbatim(item), Verbatim(value))
}

func CmdCopy(seqSet, mailbox string) Command {
	return atomVerb("COPY", Verbatim(seqSet), Str(mailbox))
}

func CmdUIDCopy(seqSet, mailbox string) Command {
	return atomVerb("UID", Verbatim("COPY"), Verbatim(seqSet), Str(mailbox))
}

func CmdSearch(criteria string) Command {
	return atomVerb("SEARCH", Verbatim(criteria))
}

func CmdUIDSearch(criteria string) Command {
	return atomVerb("UID", Verbatim("SEARCH"), Verbatim(criteria))
}

func CmdSort(sortCriteria, charset, searchCriteria string) Command {
	return atomVerb("SORT", Verbatim("("+sortCriteria+")"), Verbatim(charset), Verbatim(searchCriteria))
}

func CmdUIDSort(sortCriteria, charset, searchCriteria string) Command {
	return atomVerb("UID", Verbatim("SORT"), Verbatim("("+sortCriteria+")"), Verbatim(charset), Verbatim(searchCriteria))
}

func CmdThread(algorithm, charset, searchCriteria string) Command {
	return atomVerb("THREAD", Verbatim(algorithm), Verbatim(charset), Verbatim(searchCriteria))
}

func CmdUIDThread(algorithm, charset, searchCriteria string) Command {
	return atomVerb("UID", Verbatim("THREAD"), Verbatim(algorithm), Verbatim(charset), Verbatim(searchCriteria))
}

func CmdNamespace() Command { return atomVerb("NAMESPACE") }

func CmdIdle() Command { return atomVerb("IDLE") }

// CmdAppend builds an APPEND command with optional flag list and internal
// date, both omittable, per RFC 3501 §6.3.11 — a feature the distilled
// spec left implicit in the generic Command model; restored here from
// ymaplib.IMAPParser.cmd_append.
func CmdAppend(mailbox string, flags []string, internalDate string, msg Str) Command {
	cmd := atomVerb("APPEND", Str(mailbox))
	if len(flags) > 0 {
		cmd = append(cmd, Verbatim("("+strings.Join(flags, " ")+")"))
	}
	if internalDate != "" {
		cmd = append(cmd, Str(internalDate))
	}
	cmd = append(cmd, msg)
	return cmd
}

// CmdXAtom rejects any unrecognised X-command at construction time rather
// than silently sending something the encoder can't attribute to a known
// verb — mirrors ymaplib's cmd_xatom, which always raised "not
// implemented"; this returns an error instead of panicking or raising.
func CmdXAtom(name string) (Command, error) {
	return nil, fmt.Errorf("command %q is not implemented", name)
}
