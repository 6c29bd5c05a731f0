package compiler

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for MiniObli
// ---------------------------------------------------------------------------
//
// Grammar:
//
//	expr     → let_expr | if_expr | or_expr
//	let_expr → "let" IDENT "=" expr expr
//	if_expr  → "if" expr "then" expr "else" expr
//	or_expr  → and_expr ("or" and_expr)*
//	and_expr → cmp_expr ("and" cmp_expr)*
//	cmp_expr → add_expr (("==" | "!=" | "<" | "<=" | ">" | ">=") add_expr)?
//	add_expr → mul_expr (("+" | "-") mul_expr)*
//	mul_expr → unary (("*" | "/" | "%") unary)*
//	unary    → ("not" | "-") unary | primary
//	primary  → INT | BOOL | IDENT | "secret" "(" expr ")" | "(" expr ")"
//
// Comparison does not chain: a < b < c is a parse error.

// ParseError is a syntactic failure. The parser aborts at the first error;
// it never produces a partial tree.
type ParseError struct {
	Tok      Token  // the offending token; EOF for unexpected end of input
	Expected string // description of what was expected
}

func (e *ParseError) Error() string {
	if e.Tok.Type == TokenEOF {
		return fmt.Sprintf("unexpected end of input, expected %s", e.Expected)
	}
	return fmt.Sprintf("line %d:%d: unexpected token %s, expected %s",
		e.Tok.Pos.Line, e.Tok.Pos.Column, e.Tok, e.Expected)
}

// Parser parses a token stream into a MiniObli AST.
type Parser struct {
	tokens    []Token
	pos       int
	curToken  Token
	peekToken Token
	prevToken Token // last consumed token, for span ends
}

// NewParser creates a parser over a token stream produced by Tokenize.
// The stream must end with an EOF token.
func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = Token{Type: TokenEOF, Pos: p.peekToken.Pos}
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect consumes the current token if it matches, otherwise fails.
func (p *Parser) expect(t TokenType) error {
	if p.curTokenIs(t) {
		p.nextToken()
		return nil
	}
	return &ParseError{Tok: p.curToken, Expected: fmt.Sprintf("%q", t.String())}
}

// endPos returns the position just past the most recently consumed token.
func (p *Parser) endPos() Position {
	t := p.prevToken
	return Position{
		Offset: t.Pos.Offset + len(t.Literal),
		Line:   t.Pos.Line,
		Column: t.Pos.Column + utf8.RuneCountInString(t.Literal),
	}
}

// Parse parses a complete expression and requires the input to be fully
// consumed.
func (p *Parser) Parse() (Expr, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(TokenEOF) {
		return nil, &ParseError{Tok: p.curToken, Expected: "end of input"}
	}
	return expr, nil
}

func (p *Parser) parseExpr() (Expr, error) {
	switch p.curToken.Type {
	case TokenLet:
		return p.parseLet()
	case TokenIf:
		return p.parseIf()
	default:
		return p.parseOr()
	}
}

func (p *Parser) parseLet() (Expr, error) {
	start := p.curToken.Pos
	if err := p.expect(TokenLet); err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenIdentifier) {
		return nil, &ParseError{Tok: p.curToken, Expected: "identifier"}
	}
	name := p.curToken.Literal
	p.nextToken()

	if err := p.expect(TokenAssign); err != nil {
		return nil, err
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &LetExpr{
		SpanVal: MakeSpan(start, p.endPos()),
		Name:    name,
		Value:   value,
		Body:    body,
	}, nil
}

func (p *Parser) parseIf() (Expr, error) {
	start := p.curToken.Pos
	if err := p.expect(TokenIf); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenThen); err != nil {
		return nil, err
	}
	thenBranch, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenElse); err != nil {
		return nil, err
	}
	elseBranch, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &IfExpr{
		SpanVal: MakeSpan(start, p.endPos()),
		Cond:    cond,
		Then:    thenBranch,
		Else:    elseBranch,
	}, nil
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.curTokenIs(TokenOr) {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{
			SpanVal: MakeSpan(left.Span().Start, p.endPos()),
			Op:      OpOr,
			Left:    left,
			Right:   right,
		}
	}

	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}

	for p.curTokenIs(TokenAnd) {
		p.nextToken()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{
			SpanVal: MakeSpan(left.Span().Start, p.endPos()),
			Op:      OpAnd,
			Left:    left,
			Right:   right,
		}
	}

	return left, nil
}

func (p *Parser) parseCmp() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	var op BinOp
	switch p.curToken.Type {
	case TokenEq:
		op = OpEq
	case TokenNe:
		op = OpNe
	case TokenLt:
		op = OpLt
	case TokenLe:
		op = OpLe
	case TokenGt:
		op = OpGt
	case TokenGe:
		op = OpGe
	default:
		return left, nil
	}

	p.nextToken()
	right, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	return &BinExpr{
		SpanVal: MakeSpan(left.Span().Start, p.endPos()),
		Op:      op,
		Left:    left,
		Right:   right,
	}, nil
}

func (p *Parser) parseAdd() (Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}

	for {
		var op BinOp
		switch p.curToken.Type {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.nextToken()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{
			SpanVal: MakeSpan(left.Span().Start, p.endPos()),
			Op:      op,
			Left:    left,
			Right:   right,
		}
	}
}

func (p *Parser) parseMul() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op BinOp
		switch p.curToken.Type {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		case TokenPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinExpr{
			SpanVal: MakeSpan(left.Span().Start, p.endPos()),
			Op:      op,
			Left:    left,
			Right:   right,
		}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.curToken.Type {
	case TokenMinus:
		start := p.curToken.Pos
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{
			SpanVal: MakeSpan(start, p.endPos()),
			Op:      OpNeg,
			Operand: operand,
		}, nil
	case TokenNot:
		start := p.curToken.Pos
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{
			SpanVal: MakeSpan(start, p.endPos()),
			Op:      OpNot,
			Operand: operand,
		}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.curToken.Pos

	switch p.curToken.Type {
	case TokenInt:
		literal := p.curToken.Literal
		p.nextToken()
		value, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			// The lexer validated the literal already.
			return nil, &ParseError{Tok: p.prevToken, Expected: "integer literal"}
		}
		return &IntLit{SpanVal: MakeSpan(start, p.endPos()), Value: value}, nil

	case TokenTrue:
		p.nextToken()
		return &BoolLit{SpanVal: MakeSpan(start, p.endPos()), Value: true}, nil

	case TokenFalse:
		p.nextToken()
		return &BoolLit{SpanVal: MakeSpan(start, p.endPos()), Value: false}, nil

	case TokenIdentifier:
		name := p.curToken.Literal
		p.nextToken()
		return &VarRef{SpanVal: MakeSpan(start, p.endPos()), Name: name}, nil

	case TokenSecret:
		p.nextToken()
		if err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &SecretExpr{SpanVal: MakeSpan(start, p.endPos()), Inner: inner}, nil

	case TokenLParen:
		p.nextToken()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	default:
		return nil, &ParseError{Tok: p.curToken, Expected: "expression"}
	}
}

// ParseSource tokenizes and parses a source string in one step.
func ParseSource(source string) (Expr, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}
