package response

import "ymap/internal/lexer"

// parseBodyStructure parses a BODY/BODYSTRUCTURE value into a generic
// nested tree: each element is either a string (atom/quoted/literal text,
// with NIL represented as response.NILAString) or a further []any for a
// parenthesised sub-list. RFC 3501's BODYSTRUCTURE grammar has enough
// shape variation (multipart vs. leaf, extension data) that a fully typed
// Go struct would just be a shakier reimplementation of this tree; callers
// that need a specific field (content-type, size, parts) descend the tree
// themselves, one parenthesised piece at a time, rather than through a
// single struct.
func parseBodyStructure(lx *lexer.Lexer) ([]any, error) {
	open, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if open.Kind != lexer.LParen {
		return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "expected ( to open BODY/BODYSTRUCTURE"}
	}
	return parseBodyStructureList(lx)
}

func parseBodyStructureList(lx *lexer.Lexer) ([]any, error) {
	var out []any
	for {
		rem := lx.Remaining()
		if len(rem) > 0 && rem[0] == ')' {
			_, _ = lx.Next()
			return out, nil
		}
		if len(rem) > 0 && rem[0] == '(' {
			_, _ = lx.Next()
			nested, err := parseBodyStructureList(lx)
			if err != nil {
				return nil, err
			}
			out = append(out, nested)
			continue
		}
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.IsNIL() {
			out = append(out, NILAString)
			continue
		}
		out = append(out, string(tok.Text))
	}
}
