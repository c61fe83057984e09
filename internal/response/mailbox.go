package response

import (
	"strconv"
	"strings"

	"ymap/internal/lexer"
)

// MailboxListItem is one LIST/LSUB response: a set of flags, a hierarchy
// delimiter (NIL if the server has none) and the mailbox name.
type MailboxListItem struct {
	Flags     []string
	Delimiter AString
	Name      string
}

func parseMailboxList(rest []byte, src lexer.Source) (MailboxListItem, error) {
	lx := lexer.New(rest, src)

	open, err := lx.Next()
	if err != nil {
		return MailboxListItem{}, err
	}
	if open.Kind != lexer.LParen {
		return MailboxListItem{}, &ParseError{Line: string(rest), Msg: "expected ( to open mailbox flag list"}
	}
	var flags []string
	for {
		tok, err := lx.Next()
		if err != nil {
			return MailboxListItem{}, err
		}
		if tok.Kind == lexer.RParen {
			break
		}
		flags = append(flags, strings.ToUpper(string(tok.Text)))
	}

	delim, err := lx.Next()
	if err != nil {
		return MailboxListItem{}, err
	}

	name, err := lx.Next()
	if err != nil {
		return MailboxListItem{}, err
	}

	return MailboxListItem{
		Flags:     flags,
		Delimiter: delim.AString(),
		Name:      string(name.Text),
	}, nil
}

// StatusAttrs is the parsed body of a STATUS response: mailbox name plus
// its attribute name/value pairs (MESSAGES, UIDNEXT, ...) keyed by
// upper-cased name. The order the server sent them in is not kept.
type StatusAttrs struct {
	Mailbox string
	Attrs   map[string]int
}

func parseStatusAttrs(rest []byte, src lexer.Source) (StatusAttrs, error) {
	lx := lexer.New(rest, src)

	name, err := lx.Next()
	if err != nil {
		return StatusAttrs{}, err
	}

	open, err := lx.Next()
	if err != nil {
		return StatusAttrs{}, err
	}
	if open.Kind != lexer.LParen {
		return StatusAttrs{}, &ParseError{Line: string(rest), Msg: "expected ( to open STATUS attribute list"}
	}

	attrs := map[string]int{}
	for {
		key, err := lx.Next()
		if err != nil {
			return StatusAttrs{}, err
		}
		if key.Kind == lexer.RParen {
			break
		}
		val, err := lx.Next()
		if err != nil {
			return StatusAttrs{}, err
		}
		n, convErr := strconv.Atoi(string(val.Text))
		if convErr != nil {
			return StatusAttrs{}, &ParseError{Line: string(rest), Msg: "non-numeric STATUS value " + string(val.Text)}
		}
		attrs[strings.ToUpper(string(key.Text))] = n
	}

	return StatusAttrs{Mailbox: string(name.Text), Attrs: attrs}, nil
}
