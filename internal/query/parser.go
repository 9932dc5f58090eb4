package query

// Parse parses a query string into a syntax tree. Parsing is strict:
// unrecognized syntax returns a *SyntaxError rather than a partial tree.
// An empty (or all-whitespace) query yields a Program node with no child.
func Parse(input string) (*Tree, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	root := &Node{Kind: KindProgram, From: 0, To: len(input)}
	if p.peek().kind != tokEOF {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		root.Children = []*Node{expr}
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Message: "unexpected ')'", Offset: tok.from}
	}

	return &Tree{Root: root, Input: input}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// parseOr parses a disjunction: andExpr ("or" andExpr)*. Chained
// disjunctions flatten into a single OrExpr node.
func (p *parser) parseOr() (*Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []*Node{first}
	for p.peek().kind == tokOr {
		p.next()
		operand, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, operand)
	}

	if len(children) == 1 {
		return first, nil
	}
	return &Node{
		Kind:     KindOrExpr,
		From:     children[0].From,
		To:       children[len(children)-1].To,
		Children: children,
	}, nil
}

// parseAnd parses a conjunction. Juxtaposed operands conjoin implicitly;
// an explicit "and" keyword between operands is also accepted.
func (p *parser) parseAnd() (*Node, error) {
	var children []*Node

	for {
		tok := p.peek()
		switch tok.kind {
		case tokAnd:
			if len(children) == 0 {
				return nil, &SyntaxError{Message: "expected expression before 'and'", Offset: tok.from}
			}
			p.next()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			children = append(children, operand)

		case tokTerm, tokPrefix, tokLParen, tokMinus:
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			children = append(children, operand)

		default:
			if len(children) == 0 {
				return nil, &SyntaxError{Message: "expected expression", Offset: tok.from}
			}
			if len(children) == 1 {
				return children[0], nil
			}
			return &Node{
				Kind:     KindAndExpr,
				From:     children[0].From,
				To:       children[len(children)-1].To,
				Children: children,
			}, nil
		}
	}
}

// parseUnary parses a single operand: a negation, a group, a prefix
// filter, or a bare term.
func (p *parser) parseUnary() (*Node, error) {
	tok := p.peek()

	switch tok.kind {
	case tokMinus:
		minus := p.next()
		operand := p.peek()
		if operand.kind != tokPrefix && operand.kind != tokLParen {
			return nil, &SyntaxError{Message: "expected filter or group after '-'", Offset: operand.from}
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{
			Kind:     KindNegateExpr,
			From:     minus.from,
			To:       child.To,
			Children: []*Node{child},
		}, nil

	case tokLParen:
		lparen := p.next()
		if p.peek().kind == tokRParen {
			return nil, &SyntaxError{Message: "empty group", Offset: p.peek().from}
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		rparen := p.peek()
		if rparen.kind != tokRParen {
			return nil, &SyntaxError{Message: "expected ')'", Offset: rparen.from}
		}
		p.next()
		return &Node{
			Kind:     KindParenExpr,
			From:     lparen.from,
			To:       rparen.to,
			Children: []*Node{inner},
		}, nil

	case tokTerm:
		p.next()
		return &Node{Kind: KindTerm, From: tok.from, To: tok.to}, nil

	case tokPrefix:
		p.next()
		return &Node{Kind: KindPrefixExpr, Prefix: tok.prefix, From: tok.from, To: tok.to}, nil

	default:
		return nil, &SyntaxError{Message: "expected expression", Offset: tok.from}
	}
}
