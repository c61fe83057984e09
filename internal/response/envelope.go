package response

import "ymap/internal/lexer"

// parseEnvelopeValue parses an ENVELOPE structure's ten positional fields,
// in the order fixed by RFC 3501 §7.4.2 and mirrored by
// ymaplib.IMAPEnvelope on the encode side:
// date subject from sender reply-to to cc bcc in-reply-to message-id.
func parseEnvelopeValue(lx *lexer.Lexer) (Envelope, error) {
	open, err := lx.Next()
	if err != nil {
		return Envelope{}, err
	}
	if open.Kind != lexer.LParen {
		return Envelope{}, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ( to open ENVELOPE"}
	}

	date, err := nextAString(lx)
	if err != nil {
		return Envelope{}, err
	}
	subject, err := nextAString(lx)
	if err != nil {
		return Envelope{}, err
	}
	from, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	sender, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	replyTo, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	to, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	cc, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	bcc, err := parseAddressList(lx)
	if err != nil {
		return Envelope{}, err
	}
	inReplyTo, err := nextAString(lx)
	if err != nil {
		return Envelope{}, err
	}
	messageID, err := nextAString(lx)
	if err != nil {
		return Envelope{}, err
	}

	close, err := lx.Next()
	if err != nil {
		return Envelope{}, err
	}
	if close.Kind != lexer.RParen {
		return Envelope{}, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ) to close ENVELOPE"}
	}

	return Envelope{
		Date: date, Subject: subject,
		From: from, Sender: sender, ReplyTo: replyTo,
		To: to, Cc: cc, Bcc: bcc,
		InReplyTo: inReplyTo, MessageID: messageID,
	}, nil
}

func nextAString(lx *lexer.Lexer) (AString, error) {
	tok, err := lx.Next()
	if err != nil {
		return AString{}, err
	}
	return tok.AString(), nil
}

// parseAddressList parses an address-list field: NIL, or a parenthesised
// list of (name route mailbox host) 4-tuples.
func parseAddressList(lx *lexer.Lexer) ([]Address, error) {
	rem := lx.Remaining()
	if len(rem) >= 3 && (rem[0] == 'N' || rem[0] == 'n') {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.IsNIL() {
			return nil, nil
		}
		return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected NIL or address list"}
	}

	open, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if open.Kind != lexer.LParen {
		return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ( to open address list"}
	}

	var addrs []Address
	for {
		next := lx.Remaining()
		if len(next) > 0 && next[0] == ')' {
			_, _ = lx.Next()
			return addrs, nil
		}
		addr, err := parseAddress(lx)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
}

func parseAddress(lx *lexer.Lexer) (Address, error) {
	open, err := lx.Next()
	if err != nil {
		return Address{}, err
	}
	if open.Kind != lexer.LParen {
		return Address{}, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ( to open address"}
	}
	name, err := nextAString(lx)
	if err != nil {
		return Address{}, err
	}
	route, err := nextAString(lx)
	if err != nil {
		return Address{}, err
	}
	mailbox, err := nextAString(lx)
	if err != nil {
		return Address{}, err
	}
	host, err := nextAString(lx)
	if err != nil {
		return Address{}, err
	}
	close, err := lx.Next()
	if err != nil {
		return Address{}, err
	}
	if close.Kind != lexer.RParen {
		return Address{}, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ) to close address"}
	}
	return Address{Name: name, Route: route, Mailbox: mailbox, Host: host}, nil
}
