package response

import "ymap/internal/lexer"

// parseThread parses a THREAD response body: a sequence of parenthesised
// thread groups, e.g. "(2)(3 6 (4 23)(44 7 96))". Each group becomes one
// root ThreadNode. Parsed iteratively with an explicit stack of frames
// rather than recursing on nesting depth, so a hostile server can't blow
// the goroutine stack with deeply nested branches.
func parseThread(rest []byte, src lexer.Source) ([]*ThreadNode, error) {
	lx := lexer.New(rest, src)

	var roots []*ThreadNode
	for !lx.Done() {
		open, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if open.Kind != lexer.LParen {
			return nil, &ParseError{Line: string(rest), Msg: "expected ( to open thread group"}
		}
		nodes, err := parseThreadGroup(lx)
		if err != nil {
			return nil, err
		}
		switch len(nodes) {
		case 0:
			// empty group, nothing to attach.
		case 1:
			roots = append(roots, nodes[0])
		default:
			roots = append(roots, &ThreadNode{IsRoot: true, Children: nodes})
		}
	}
	return roots, nil
}

type threadFrame struct {
	nodes  []*ThreadNode
	parent *ThreadNode
}

// parseThreadGroup parses the contents of one thread group up to (and
// consuming) its closing ')', which the caller has already opened.
func parseThreadGroup(lx *lexer.Lexer) ([]*ThreadNode, error) {
	stack := []threadFrame{{}}

	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case lexer.LParen:
			stack = append(stack, threadFrame{})
		case lexer.RParen:
			if len(stack) == 1 {
				return stack[0].nodes, nil
			}
			popped := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top := &stack[len(stack)-1]
			if top.parent != nil {
				top.parent.Children = append(top.parent.Children, popped.nodes...)
			} else {
				top.nodes = append(top.nodes, popped.nodes...)
			}
		case lexer.Atom:
			n, convErr := atoiStrict(tok.Text)
			if convErr != nil {
				return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "non-numeric thread member"}
			}
			node := &ThreadNode{ID: n}
			top := &stack[len(stack)-1]
			if top.parent != nil {
				top.parent.Children = append(top.parent.Children, node)
			} else {
				top.nodes = append(top.nodes, node)
			}
			top.parent = node
		default:
			return nil, &ParseError{Line: string(lx.Line()), Pos: lx.Pos(), Msg: "unexpected token in thread group"}
		}
	}
}

func atoiStrict(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, &ParseError{Msg: "empty number"}
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, &ParseError{Msg: "non-digit in number"}
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
