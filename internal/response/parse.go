package response

import (
	"bytes"
	"strconv"
	"strings"

	"ymap/internal/lexer"
)

// IsContinuation reports whether line is a "+ ..." continuation request.
// Continuation requests are never turned into a Record: per RFC 3501
// §7 they're a transport-level signal the command encoder/engine consumes
// directly (CommandContinuationRequest in the original source), not
// response data a caller ever sees.
func IsContinuation(line []byte) bool {
	return len(line) > 0 && line[0] == '+'
}

// Parse parses one logical response line into a Record. src supplies
// literal octets and line continuations for any literal the line contains.
func Parse(line []byte, src lexer.Source) (Record, error) {
	if len(line) == 0 {
		return Record{}, &ParseError{Line: "", Msg: "empty response line"}
	}

	if line[0] == '*' {
		rest := bytes.TrimPrefix(line[1:], []byte(" "))
		return parseUntagged(rest, src)
	}

	sp := bytes.IndexByte(line, ' ')
	if sp < 0 {
		return Record{}, &ParseError{Line: string(line), Msg: "tagged response missing status"}
	}
	tag := string(line[:sp])
	return parseTagged(tag, line[sp+1:], src)
}

func parseTagged(tag string, rest []byte, src lexer.Source) (Record, error) {
	sp := bytes.IndexByte(rest, ' ')
	var statusWord, remainder []byte
	if sp < 0 {
		statusWord, remainder = rest, nil
	} else {
		statusWord, remainder = rest[:sp], rest[sp+1:]
	}
	status, ok := upperStatus(statusWord)
	if !ok {
		return Record{}, &ParseError{Line: string(rest), Msg: "unrecognised status " + string(statusWord)}
	}
	code, text := parseCodeAndText(remainder)
	return Record{Tag: tag, Status: wireStatus(status), Kind: KindStatus, Code: code, Text: text}, nil
}

func upperStatus(word []byte) (string, bool) {
	u := strings.ToUpper(string(word))
	switch u {
	case "OK", "NO", "BAD", "PREAUTH", "BYE":
		return u, true
	}
	return "", false
}

// parseCodeAndText splits "[CODE ...] free text" into its response code and
// trailing human-readable text. A missing bracket yields an empty Code and
// the whole remainder as text.
func parseCodeAndText(rest []byte) (Code, string) {
	if len(rest) == 0 || rest[0] != '[' {
		return Code{}, string(rest)
	}
	end := bytes.IndexByte(rest, ']')
	if end < 0 {
		return Code{}, string(rest)
	}
	inner := string(rest[1:end])
	text := ""
	if end+1 < len(rest) {
		text = strings.TrimPrefix(string(rest[end+1:]), " ")
	}
	return parseResponseCode(inner), text
}

func parseResponseCode(inner string) Code {
	name := inner
	arg := ""
	if sp := strings.IndexByte(inner, ' '); sp >= 0 {
		name, arg = inner[:sp], inner[sp+1:]
	}
	name = strings.ToUpper(name)
	switch name {
	case "UIDVALIDITY", "UIDNEXT", "UNSEEN":
		if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
			return Code{Name: name, Payload: n}
		}
		return Code{Name: name, Payload: arg}
	case "PERMANENTFLAGS", "CAPABILITY":
		return Code{Name: name, Payload: upperFields(arg)}
	case "READ-ONLY", "READ-WRITE", "ALERT", "PARSE", "TRYCREATE":
		return Code{Name: name}
	default:
		if arg == "" {
			return Code{Name: name}
		}
		return Code{Name: name, Payload: arg}
	}
}

func parseUntagged(rest []byte, src lexer.Source) (Record, error) {
	sp := bytes.IndexByte(rest, ' ')
	firstWord := rest
	remainder := []byte(nil)
	if sp >= 0 {
		firstWord, remainder = rest[:sp], rest[sp+1:]
	}

	// "<num> EXISTS|RECENT|EXPUNGE|FETCH ..."
	if n, err := strconv.Atoi(string(firstWord)); err == nil {
		return parseNumbered(n, remainder, src)
	}

	word := strings.ToUpper(string(firstWord))
	switch word {
	case "OK", "NO", "BAD", "PREAUTH", "BYE":
		code, text := parseCodeAndText(remainder)
		return Record{Status: wireStatus(word), Kind: KindStatus, Code: code, Text: text}, nil
	case "CAPABILITY":
		return Record{Kind: KindCapability, Data: upperFields(string(remainder))}, nil
	case "FLAGS":
		flags, err := parseParenAtomList(remainder, src)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindFlags, Data: flags}, nil
	case "LIST", "LSUB":
		d, err := parseMailboxList(remainder, src)
		if err != nil {
			return Record{}, err
		}
		k := KindList
		if word == "LSUB" {
			k = KindLSub
		}
		return Record{Kind: k, Data: d}, nil
	case "SEARCH":
		nums, err := parseNumberList(rest, remainder)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindSearch, Data: nums}, nil
	case "ESEARCH":
		return Record{Kind: KindESearch, Text: string(remainder)}, nil
	case "SORT":
		nums, err := parseNumberList(rest, remainder)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindSort, Data: nums}, nil
	case "THREAD":
		nodes, err := parseThread(remainder, src)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindThread, Data: nodes}, nil
	case "STATUS":
		d, err := parseStatusAttrs(remainder, src)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindStatusAttrs, Data: d}, nil
	case "NAMESPACE":
		return Record{Kind: KindNamespace, Text: string(remainder)}, nil
	default:
		return Record{}, &UnknownResponseError{Line: string(rest), Kind: word}
	}
}

func parseNumbered(n int, rest []byte, src lexer.Source) (Record, error) {
	sp := bytes.IndexByte(rest, ' ')
	word := rest
	tail := []byte(nil)
	if sp >= 0 {
		word, tail = rest[:sp], rest[sp+1:]
	}
	switch strings.ToUpper(string(word)) {
	case "EXISTS":
		return Record{Kind: KindExists, Data: n}, nil
	case "RECENT":
		return Record{Kind: KindRecent, Data: n}, nil
	case "EXPUNGE":
		return Record{Kind: KindExpunge, Data: n}, nil
	case "FETCH":
		d, err := parseFetch(n, tail, src)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindFetch, Data: d}, nil
	default:
		return Record{}, &UnknownResponseError{Line: string(rest), Kind: string(word)}
	}
}

// parseNumberList parses a whitespace-separated run of integers (SEARCH,
// SORT). line is the full response line, used only for error reporting.
// Any non-integer token is a ParseError, not a silent drop.
func parseNumberList(line, rest []byte) ([]int, error) {
	fields := strings.Fields(string(rest))
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{Line: string(line), Msg: "non-integer token " + f}
		}
		out = append(out, n)
	}
	return out, nil
}

// upperFields splits s on whitespace and upper-cases each field, for
// response data whose atoms are case-folded on parse (CAPABILITY).
func upperFields(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToUpper(f)
	}
	return out
}

// parseParenAtomList parses a "(A B C)" list of bare atoms, e.g. FLAGS; the
// atoms are upper-cased on parse.
func parseParenAtomList(rest []byte, src lexer.Source) ([]string, error) {
	lx := lexer.New(rest, src)
	tok, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != lexer.LParen {
		return nil, &ParseError{Line: string(rest), Msg: "expected ( to open flag list"}
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
