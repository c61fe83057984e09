package response

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"ymap/internal/lexer"
)

// FetchData is the parsed body of a "<seq> FETCH (...)" response: its data
// items keyed by their upper-cased, possibly bracketed name, e.g. "FLAGS",
// "UID", "BODY[HEADER.FIELDS (TO FROM)]". The order the server sent the
// items in is not kept.
type FetchData struct {
	Seq   int
	Items map[string]any
}

func parseFetch(seq int, rest []byte, src lexer.Source) (FetchData, error) {
	lx := lexer.New(rest, src)

	open, err := lx.Next()
	if err != nil {
		return FetchData{}, err
	}
	if open.Kind != lexer.LParen {
		return FetchData{}, &ParseError{Line: string(rest), Msg: "expected ( to open FETCH data"}
	}

	items := map[string]any{}
	for {
		if lx.Done() {
			return FetchData{}, &ParseError{Line: string(rest), Msg: "unterminated FETCH data"}
		}
		if peekCloses(lx) {
			if _, err := lx.Next(); err != nil {
				return FetchData{}, err
			}
			return FetchData{Seq: seq, Items: items}, nil
		}

		key, err := scanFetchKey(lx)
		if err != nil {
			return FetchData{}, err
		}

		_, val, err := parseFetchValue(key, lx)
		if err != nil {
			return FetchData{}, err
		}
		items[strings.ToUpper(key)] = val
	}
}

func peekCloses(lx *lexer.Lexer) bool {
	rem := lx.Remaining()
	return len(rem) > 0 && rem[0] == ')'
}

// scanFetchKey hand-scans a FETCH data-item name, which may carry a
// bracketed section specifier whose contents can themselves include
// balanced parens and spaces ("BODY[HEADER.FIELDS (To From)]<0.512>") —
// a shape the atom tokeniser alone can't express. It balances brackets
// and parens rather than stopping at the first space or ']'.
func scanFetchKey(lx *lexer.Lexer) (string, error) {
	buf := lx.Remaining()
	i := 0
	for i < len(buf) && isBaseNameChar(buf[i]) {
		i++
	}
	if i == 0 {
		return "", &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected FETCH data item name"}
	}
	if i < len(buf) && buf[i] == '[' {
		depth := 0
		for ; i < len(buf); i++ {
			switch buf[i] {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					i++
					goto section_done
				}
			}
		}
		return "", &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "unbalanced [ in FETCH data item"}
	}
section_done:
	// optional partial-fetch range "<n.m>"
	if i < len(buf) && buf[i] == '<' {
		for j := i; j < len(buf); j++ {
			if buf[j] == '>' {
				i = j + 1
				break
			}
		}
	}
	key := string(buf[:i])
	lx.Advance(i)
	return key, nil
}

// isBaseNameChar matches characters of the un-bracketed item name (e.g.
// "BODY", "RFC822.SIZE"); '[', ')' and space end it.
func isBaseNameChar(c byte) bool {
	switch c {
	case '(', ')', ' ', '{', '"', '\\', '[', ']', '<':
		return false
	}
	return c > 0x1f && c != 0x7f
}

// parseFetchValue reads the value for a FETCH data-item key and returns
// the upper-cased base name ("BODY", "RFC822.SIZE", ...) it chose the
// value's decoding by.
func parseFetchValue(key string, lx *lexer.Lexer) (string, any, error) {
	base := key
	if i := strings.IndexByte(key, '['); i >= 0 {
		base = key[:i]
	} else if i := strings.IndexByte(key, '<'); i >= 0 {
		base = key[:i]
	}
	base = strings.ToUpper(base)

	sel := base
	if sel == "BODY" && len(key) > len(base) {
		// BODY[section]<partial> carries section content, not a structure.
		sel = ""
	}
	switch sel {
	case "ENVELOPE":
		env, err := parseEnvelopeValue(lx)
		return base, env, err
	case "FLAGS":
		flags, err := parseParenTokenList(lx)
		return base, flags, err
	case "BODY", "BODYSTRUCTURE":
		bs, err := parseBodyStructure(lx)
		return base, bs, err
	case "INTERNALDATE":
		tok, err := lx.Next()
		if err != nil {
			return base, nil, err
		}
		ts, dateErr := parseInternalDate(string(tok.Text))
		if dateErr != nil {
			return base, nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: dateErr.Error()}
		}
		return base, ts, nil
	case "UID", "RFC822.SIZE":
		tok, err := lx.Next()
		if err != nil {
			return base, nil, err
		}
		n, convErr := strconv.ParseInt(string(tok.Text), 10, 64)
		if convErr != nil {
			return base, nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "non-numeric " + base}
		}
		return base, n, nil
	default:
		tok, err := lx.Next()
		if err != nil {
			return base, nil, err
		}
		if tok.IsNIL() {
			return base, NILAString, nil
		}
		return base, string(tok.Text), nil
	}
}

// parseInternalDate parses an INTERNALDATE token into a UNIX timestamp.
// The wire format is RFC 3501's date-time ("02-Jan-2006 15:04:05 -0700"),
// but real servers are often lenient enough to emit the more common mail
// Date header layout instead, so both are tried.
func parseInternalDate(s string) (int64, error) {
	for _, layout := range []string{"02-Jan-2006 15:04:05 -0700", "2-Jan-2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("unparseable INTERNALDATE %q", s)
}

// parseParenTokenList parses a "(A B C)" tuple of atoms; used for a FETCH
// data item's FLAGS value, upper-cased on parse.
func parseParenTokenList(lx *lexer.Lexer) ([]string, error) {
	open, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if open.Kind != lexer.LParen {
		return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ("}
	}
	var out []string
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.RParen {
			return out, nil
		}
		out = append(out, strings.ToUpper(string(tok.Text)))
	}
}
