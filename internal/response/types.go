// Package response implements the client-side IMAP4rev1 response parser:
// turning a line (plus, for literals, access to the transport they arrived
// on) into a typed Record, per RFC 3501 §7.
package response

import (
	"strconv"
	"strings"
)

// AString carries IMAP's NIL-vs-empty-string distinction through any field
// that RFC 3501 grammar allows to be either an astring or NIL — most
// prominently the four slots of an address structure. A zero AString
// (IsNIL false, Value "") is the empty string, not NIL; they are never
// conflated, matching ymaplib.IMAPNIL's singleton semantics.
type AString struct {
	IsNIL bool
	Value string
}

// NILAString is the canonical NIL value for an AString-typed field.
var NILAString = AString{IsNIL: true}

// String renders the value for display; NIL renders as the literal text
// "NIL" so logs and %v formatting read the way a protocol trace would.
func (a AString) String() string {
	if a.IsNIL {
		return "NIL"
	}
	return a.Value
}

// Kind identifies which shape Record.Data holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindStatus       // OK/NO/BAD/PREAUTH/BYE — Data is nil, text in Record.Text
	KindCapability
	KindExists
	KindRecent
	KindExpunge
	KindFetch
	KindFlags
	KindList
	KindLSub
	KindSearch
	KindESearch
	KindSort
	KindThread
	KindStatusAttrs // response to the STATUS command (mailbox attribute values)
	KindNamespace
)

// Code is a parsed response code: the bracketed "[NAME ...]" segment that
// can follow a status response, e.g. "[UIDVALIDITY 42]" or "[READ-ONLY]".
// Payload is nil, int64, string or []string depending on Name.
type Code struct {
	Name    string
	Payload any
}

// Record is the parsed shape of one server response line: either a tagged
// completion ("a1 OK ...") or an untagged data/status response
// ("* 4 EXISTS", "* LIST (...) "/" INBOX"). Tag is wire.Untagged ("") for
// untagged responses.
type Record struct {
	Tag    string
	Status wireStatus
	Kind   Kind
	Code   Code
	Text   string
	Data   any
}

// wireStatus is the upper-cased status atom of a Record ("OK", "NO",
// "BAD", "PREAUTH", "BYE"). It holds the same values as wire.Status but is
// a separate type; callers compare it against string constants directly.
type wireStatus string

func (s wireStatus) String() string { return string(s) }

// Address is one (name route mailbox host) tuple of an envelope address
// list, per RFC 3501 §7.4.2. Route is carried for completeness but is
// always NIL on the wire in practice (SMTP source routes are obsolete).
type Address struct {
	Name, Route, Mailbox, Host AString
}

// Envelope is the ten-field ENVELOPE structure from a FETCH response.
type Envelope struct {
	Date, Subject          AString
	From, Sender           []Address
	ReplyTo, To, Cc, Bcc   []Address
	InReplyTo, MessageID   AString
}

// ThreadNode is one node of a THREAD response tree (RFC 5256). IsRoot
// marks a synthetic node with no ID of its own, used where one thread
// group holds several top-level members (as in "((3)(5))"); it groups
// them as its Children. Nodes that carry a message ID have IsRoot false,
// including the entries of a THREAD response's top-level list.
type ThreadNode struct {
	ID       int
	IsRoot   bool
	Children []*ThreadNode
}

func (n *ThreadNode) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *ThreadNode) write(b *strings.Builder) {
	if !n.IsRoot {
		b.WriteString(strconv.Itoa(n.ID))
	}
	if len(n.Children) == 0 {
		return
	}
	b.WriteString("(")
	for i, c := range n.Children {
		if i > 0 {
			b.WriteString(" ")
		}
		c.write(b)
	}
	b.WriteString(")")
}
