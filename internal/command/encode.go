package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"ymap/internal/wire"
)

// ErrAborted is returned by a Waiter to tell Encode the server rejected a
// synchronizing literal with a tagged response instead of "+ ..."; Encode
// stops immediately without writing the literal's octets or anything
// after them, matching RFC 3501 §7's synchronizing-literal abort path.
var ErrAborted = errors.New("command: synchronizing literal rejected by server")

// Waiter blocks until the server sends a continuation request for a
// synchronizing literal, or returns ErrAborted if it sent a tagged
// response instead. Only consulted when literalPlus is false.
type Waiter func() error

// kind classifies how a Str argument must be represented on the wire.
type kind int

const (
	kindAtom kind = iota
	kindQuoted
	kindLiteral
)

func classify(s string) kind {
	if s == "" {
		return kindQuoted
	}
	if strings.ContainsAny(s, "\r\n\x00") {
		return kindLiteral
	}
	if isPlainAtom(s) {
		return kindAtom
	}
	return kindQuoted
}

func isPlainAtom(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isDigit := c >= '0' && c <= '9'
		isUpper := c >= 'A' && c <= 'Z'
		isLower := c >= 'a' && c <= 'z'
		if !isDigit && !isUpper && !isLower {
			return false
		}
	}
	return true
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// Encode writes "<tag> <cmd...>\r\n" to w, choosing atom/quoted/literal
// representation for each Str argument. literalPlus selects non-
// synchronizing literals ("{n+}") when true; otherwise Encode calls wait
// after announcing a literal's length and blocks for the server's "+"
// before writing its octets, per RFC 3501 §7 / RFC 7888.
//
// Returns true if the command was aborted mid-stream by the server
// rejecting a synchronizing literal (ErrAborted from wait); the caller
// should treat the command as not sent and surface the tagged response
// it got instead.
func Encode(w io.Writer, tag string, cmd Command, literalPlus bool, wait Waiter) (aborted bool, err error) {
	if len(cmd) == 0 {
		return false, fmt.Errorf("command: empty command")
	}
	if _, ok := cmd[0].(Verbatim); !ok {
		return false, fmt.Errorf("command: first argument must name the command")
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(tag + " "); err != nil {
		return false, err
	}

	for i, a := range cmd {
		if i > 0 {
			if err := bw.WriteByte(' '); err != nil {
				return false, err
			}
		}
		switch v := a.(type) {
		case Verbatim:
			if _, err := bw.WriteString(string(v)); err != nil {
				return false, err
			}
		case Mechanism:
			if _, err := bw.WriteString(string(v)); err != nil {
				return false, err
			}
		case Str:
			switch classify(string(v)) {
			case kindAtom:
				if _, err := bw.WriteString(string(v)); err != nil {
					return false, err
				}
			case kindQuoted:
				if _, err := bw.WriteString(quote(string(v))); err != nil {
					return false, err
				}
			case kindLiteral:
				aborted, err = writeLiteral(bw, string(v), literalPlus, wait)
				if err != nil || aborted {
					return aborted, err
				}
			}
		default:
			return false, fmt.Errorf("command: unknown argument type %T", a)
		}
	}

	if _, err := bw.WriteString(wire.CRLF); err != nil {
		return false, err
	}
	return false, bw.Flush()
}

func writeLiteral(bw *bufio.Writer, s string, literalPlus bool, wait Waiter) (aborted bool, err error) {
	if literalPlus {
		if _, err := fmt.Fprintf(bw, "{%d+}\r\n", len(s)); err != nil {
			return false, err
		}
		if _, err := bw.WriteString(s); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := fmt.Fprintf(bw, "{%d}\r\n", len(s)); err != nil {
		return false, err
	}
	if err := bw.Flush(); err != nil {
		return false, err
	}
	if wait == nil {
		return false, fmt.Errorf("command: synchronizing literal requires a Waiter")
	}
	if err := wait(); err != nil {
		if errors.Is(err, ErrAborted) {
			return true, nil
		}
		return false, err
	}
	if _, err := bw.WriteString(s); err != nil {
		return false, err
	}
	return false, nil
}
