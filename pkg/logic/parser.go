package logic

type node interface {
	eval(s *state) (any, error)
}

type parser struct {
	tokens   []token
	pos      int
	depth    int
	maxDepth int
}

func parse(input string, maxDepth int) (node, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, maxDepth: maxDepth}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, parseErr(tok.pos, "unexpected %s", tok.describe())
	}
	return root, nil
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

func (p *parser) match(kind tokenKind) bool {
	if p.peek().kind != kind {
		return false
	}
	p.next()
	return true
}

func (p *parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return exhaustedErr(p.peek().pos, "expression nested deeper than %d levels", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseOr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if !p.match(tokOr) {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right, pos: op.pos}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if !p.match(tokAnd) {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right, pos: op.pos}
	}
}

func (p *parser) parseNot() (node, error) {
	op := p.peek()
	if !p.match(tokNot) {
		return p.parseCompare()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	inner, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &notNode{inner: inner, pos: op.pos}, nil
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	op := p.peek()
	switch op.kind {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		p.next()
	default:
		return left, nil
	}
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &compareNode{op: op.kind, opText: op.text, left: left, right: right, pos: op.pos}, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokTrue:
		return &literalNode{value: true}, nil
	case tokFalse:
		return &literalNode{value: false}, nil
	case tokNull:
		return &literalNode{value: nil}, nil
	case tokNumber:
		return &literalNode{value: tok.num}, nil
	case tokString:
		return &literalNode{value: tok.text}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); !p.match(tokRParen) {
			return nil, parseErr(closing.pos, "expected ')', got %s", closing.describe())
		}
		return inner, nil
	case tokIdent:
		if !p.match(tokLParen) {
			return &identNode{name: tok.text, pos: tok.pos}, nil
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &callNode{name: tok.text, args: args, pos: tok.pos}, nil
	default:
		return nil, parseErr(tok.pos, "unexpected %s", tok.describe())
	}
}

// parseArgs parses a call argument list; the opening '(' is already consumed.
func (p *parser) parseArgs() ([]node, error) {
	if p.match(tokRParen) {
		return nil, nil
	}
	var args []node
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.match(tokComma) {
			continue
		}
		if closing := p.peek(); !p.match(tokRParen) {
			return nil, parseErr(closing.pos, "expected ',' or ')', got %s", closing.describe())
		}
		return args, nil
	}
}
