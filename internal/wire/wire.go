// Package wire holds protocol-level constants shared across the lexer,
// response parser and command encoder: the pieces that all need to agree on
// what a tag looks like or how a line ends without importing each other.
package wire

const (
	// CRLF terminates every line on the wire, requests and responses alike.
	CRLF = "\r\n"

	// TagPrefix is prepended to the monotonically increasing tag counter to
	// build a command tag, e.g. "ym1", "ym2". RFC 3501 only requires tags be
	// alphanumeric and distinct; the prefix just makes ours recognisable in
	// a packet capture.
	TagPrefix = "ym"

	// Untagged is the synthetic tag used for "* ..." server responses that
	// carry no real tag, and for continuation requests ("+ ...").
	Untagged = ""

	// ContinuationTag marks a "+ " continuation request line.
	ContinuationTag = "+"
)

// Status is the completion status of a tagged response, or the kind of an
// untagged status response (RFC 3501 §7.1).
type Status string

const (
	StatusOK      Status = "OK"
	StatusNO      Status = "NO"
	StatusBAD     Status = "BAD"
	StatusPreAuth Status = "PREAUTH"
	StatusBye     Status = "BYE"
)

// ParseStatus reports whether s names one of the five recognised status
// atoms. Callers upper-case s first; RFC 3501 status atoms are otherwise
// case-insensitive on the wire.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusOK, StatusNO, StatusBAD, StatusPreAuth, StatusBye:
		return Status(s), true
	default:
		return "", false
	}
}
