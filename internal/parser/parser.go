// Package parser builds a Wot++ AST from a token stream by single-token
// lookahead recursive descent, appending nodes into an index-addressed
// ast.Store.
package parser

import (
	"strconv"

	"github.com/wotpp/wotpp/internal/ast"
	"github.com/wotpp/wotpp/internal/diag"
	"github.com/wotpp/wotpp/internal/lexer"
	"github.com/wotpp/wotpp/internal/token"
)

// Parser turns one source file into AST nodes in a shared Store, so that
// multiple files (or the source()/eval() intrinsics' nested parses) can
// append into the same arena.
type Parser struct {
	lex   *lexer.Lexer
	store *ast.Store
	file  string
}

// New creates a Parser over src, appending nodes into store.
func New(src []byte, file string, store *ast.Store) *Parser {
	return &Parser{lex: lexer.New(src, file), store: store, file: file}
}

// Store returns the arena this parser appends into.
func (p *Parser) Store() *ast.Store { return p.store }

func (p *Parser) peek() (token.Token, error)    { return p.lex.Peek(token.ModeNormal) }
func (p *Parser) advance() (token.Token, error) { return p.lex.Advance(token.ModeNormal) }

func parseErr(pos token.Position, format string, args ...interface{}) error {
	return diag.New(diag.Parse, pos, format, args...)
}

func (p *Parser) expect(kind token.Kind, what string) (token.Token, error) {
	tok, err := p.advance()
	if err != nil {
		return tok, err
	}
	if tok.Kind != kind {
		return tok, parseErr(tok.Pos, "expected %s, found %s", what, tok.Kind)
	}
	return tok, nil
}

func isKeyword(tok token.Token, text string) bool {
	return tok.Kind == token.Keyword && tok.Text == text
}

// ParseDocument parses a complete file: statement* EOF.
func (p *Parser) ParseDocument() (ast.NodeIndex, error) {
	start, err := p.peek()
	if err != nil {
		return ast.Empty, err
	}
	var stmts []ast.NodeIndex
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Empty, err
		}
		if tok.Kind == token.EOF {
			break
		}
		idx, _, err := p.parseStatement()
		if err != nil {
			return ast.Empty, err
		}
		stmts = append(stmts, idx)
	}
	return p.store.AddDocument(start.Pos, stmts), nil
}

// parseStatement parses one statement and reports whether it was the bare
// "expression" alternative (as opposed to let/var/drop/prefix), which
// matters to parseBlock when deciding the trailing value.
func (p *Parser) parseStatement() (ast.NodeIndex, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Empty, false, err
	}
	switch {
	case isKeyword(tok, "let"):
		idx, err := p.parseLet()
		return idx, false, err
	case isKeyword(tok, "var"):
		idx, err := p.parseVar()
		return idx, false, err
	case isKeyword(tok, "drop"):
		idx, err := p.parseDrop()
		return idx, false, err
	case isKeyword(tok, "prefix"):
		idx, err := p.parsePrefix()
		return idx, false, err
	default:
		idx, err := p.parseExpression()
		return idx, true, err
	}
}

// parseParamList parses an optional "(" ident ("," ident)* ")" list,
// rejecting reserved keywords (naturally, since keywords lex to a
// different Kind than Ident) and duplicate names.
func (p *Parser) parseParamList() ([]string, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.LParen {
		return nil, nil
	}
	p.advance()

	var params []string
	seen := map[string]bool{}
	for {
		nt, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nt.Kind == token.RParen {
			break
		}
		nameTok, err := p.expect(token.Ident, "parameter name")
		if err != nil {
			return nil, err
		}
		if seen[nameTok.Text] {
			return nil, parseErr(nameTok.Pos, "duplicate parameter name %q", nameTok.Text)
		}
		seen[nameTok.Text] = true
		params = append(params, nameTok.Text)

		nt2, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nt2.Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen, ")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseLet() (ast.NodeIndex, error) {
	kw, _ := p.advance() // 'let'
	nameTok, err := p.expect(token.Ident, "function name")
	if err != nil {
		return ast.Empty, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return ast.Empty, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return ast.Empty, err
	}
	return p.store.AddFn(kw.Pos, nameTok.Text, params, body), nil
}

func (p *Parser) parseVar() (ast.NodeIndex, error) {
	kw, _ := p.advance() // 'var'
	nameTok, err := p.expect(token.Ident, "variable name")
	if err != nil {
		return ast.Empty, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return ast.Empty, err
	}
	return p.store.AddVar(kw.Pos, nameTok.Text, body), nil
}

// parseDrop parses "drop" followed by a FnInvoke-shaped target. The target
// is never evaluated (see eval's Drop rule); only the name and arity
// matter, so the parenthesized list accepts parameter names to count, or a
// single decimal literal naming the arity directly, as in "drop x(0)".
func (p *Parser) parseDrop() (ast.NodeIndex, error) {
	kw, _ := p.advance() // 'drop'
	target, err := p.parseDropTarget()
	if err != nil {
		return ast.Empty, err
	}
	return p.store.AddDrop(kw.Pos, target), nil
}

// parseDropTarget builds a FnInvoke whose argument count encodes the arity
// being dropped; each argument slot is a placeholder String node.
func (p *Parser) parseDropTarget() (ast.NodeIndex, error) {
	nameTok, err := p.expect(token.Ident, "identifier")
	if err != nil {
		return ast.Empty, err
	}
	var args []ast.NodeIndex
	nt, err := p.peek()
	if err != nil {
		return ast.Empty, err
	}
	if nt.Kind == token.LParen {
		p.advance()
		var items []token.Token
		for {
			it, err := p.peek()
			if err != nil {
				return ast.Empty, err
			}
			if it.Kind == token.RParen {
				break
			}
			if it.Kind != token.Ident && it.Kind != token.Number {
				return ast.Empty, parseErr(it.Pos, "expected parameter name or arity, found %s", it.Kind)
			}
			p.advance()
			items = append(items, it)

			sep, err := p.peek()
			if err != nil {
				return ast.Empty, err
			}
			if sep.Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RParen, ")"); err != nil {
			return ast.Empty, err
		}
		if len(items) == 1 && items[0].Kind == token.Number {
			arity, err := strconv.Atoi(items[0].Text)
			if err != nil {
				return ast.Empty, parseErr(items[0].Pos, "bad arity %q", items[0].Text)
			}
			for i := 0; i < arity; i++ {
				args = append(args, p.store.AddString(items[0].Pos, nil))
			}
		} else {
			for _, it := range items {
				args = append(args, p.store.AddString(it.Pos, []byte(it.Text)))
			}
		}
	}
	return p.store.AddFnInvoke(nameTok.Pos, nameTok.Text, args), nil
}

// parsePrefix parses "prefix" expression "{" statement* "}". The AST's
// Pre.PrefixExprs is a list so that a future grammar extension (a
// comma-separated prefix header) can populate more than one entry; this
// grammar always produces exactly one.
func (p *Parser) parsePrefix() (ast.NodeIndex, error) {
	kw, _ := p.advance() // 'prefix'
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Empty, err
	}
	if _, err := p.expect(token.LBrace, "{"); err != nil {
		return ast.Empty, err
	}
	var stmts []ast.NodeIndex
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Empty, err
		}
		if tok.Kind == token.RBrace {
			break
		}
		idx, _, err := p.parseStatement()
		if err != nil {
			return ast.Empty, err
		}
		stmts = append(stmts, idx)
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return ast.Empty, err
	}
	return p.store.AddPre(kw.Pos, []ast.NodeIndex{expr}, stmts), nil
}

// parseExpression parses "primary ('..' expression)?", concatenation being
// right-associative.
func (p *Parser) parseExpression() (ast.NodeIndex, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return ast.Empty, err
	}
	tok, err := p.peek()
	if err != nil {
		return ast.Empty, err
	}
	if tok.Kind == token.DotDot {
		p.advance()
		right, err := p.parseExpression()
		if err != nil {
			return ast.Empty, err
		}
		return p.store.AddConcat(tok.Pos, left, right), nil
	}
	return left, nil
}

func (p *Parser) parsePrimary() (ast.NodeIndex, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Empty, err
	}
	switch {
	case tok.Kind == token.Ident:
		return p.parseFnInvoke()
	case tok.Kind == token.SQuote || tok.Kind == token.DQuote ||
		tok.Kind == token.Smart || tok.Kind == token.Hex || tok.Kind == token.Bin:
		return p.parseString()
	case tok.Kind == token.Bang:
		return p.parseStringify()
	case tok.Kind == token.LBrace:
		return p.parseBlock()
	case isKeyword(tok, "map"):
		return p.parseMap()
	case tok.Kind == token.Equals:
		return p.parseCodeify()
	default:
		return ast.Empty, parseErr(tok.Pos, "expression expected, found %s", tok.Kind)
	}
}

// parseFnInvokeRaw parses "ident ('(' (expression (',' expression)*)? ')')?"
// and appends a plain FnInvoke node, without checking whether the name
// names an intrinsic.
func (p *Parser) parseFnInvokeRaw() (ast.NodeIndex, error) {
	nameTok, err := p.expect(token.Ident, "identifier")
	if err != nil {
		return ast.Empty, err
	}
	var args []ast.NodeIndex
	nt, err := p.peek()
	if err != nil {
		return ast.Empty, err
	}
	if nt.Kind == token.LParen {
		p.advance()
		nt2, err := p.peek()
		if err != nil {
			return ast.Empty, err
		}
		if nt2.Kind != token.RParen {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return ast.Empty, err
				}
				args = append(args, arg)
				nt3, err := p.peek()
				if err != nil {
					return ast.Empty, err
				}
				if nt3.Kind == token.Comma {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(token.RParen, ")"); err != nil {
			return ast.Empty, err
		}
	}
	return p.store.AddFnInvoke(nameTok.Pos, nameTok.Text, args), nil
}

// parseFnInvoke is parseFnInvokeRaw plus the FnInvoke -> Intrinsic rewrite
// for recognised intrinsic names, applied in place via Store.Replace.
func (p *Parser) parseFnInvoke() (ast.NodeIndex, error) {
	idx, err := p.parseFnInvokeRaw()
	if err != nil {
		return ast.Empty, err
	}
	n := p.store.Get(idx)
	if token.Intrinsics[n.Name] {
		p.store.Replace(idx, ast.Node{
			Kind:         ast.KIntrinsic,
			Pos:          n.Pos,
			Name:         n.Name,
			IntrinsicRaw: n.Name,
			Args:         n.Args,
		})
	}
	return idx, nil
}

func (p *Parser) parseStringify() (ast.NodeIndex, error) {
	bang, _ := p.advance() // '!'
	identTok, err := p.expect(token.Ident, "identifier")
	if err != nil {
		return ast.Empty, err
	}
	return p.store.AddString(bang.Pos, []byte(identTok.Text)), nil
}

// readStringBody drives the lexer's ModeString loop until the terminating
// quote, concatenating chunk and escape content.
func (p *Parser) readStringBody() ([]byte, error) {
	var buf []byte
	for {
		tok, err := p.lex.Advance(token.ModeString)
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case token.StrEnd:
			return buf, nil
		case token.StrChunk, token.StrEscape, token.StrHexEsc, token.StrBinEsc:
			buf = append(buf, tok.Text...)
		default:
			return nil, parseErr(tok.Pos, "unexpected token in string literal")
		}
	}
}

// parseString parses any of the string-literal forms: plain quoted
// (escape interpretation), smart r/p/c (raw capture, then post-processed),
// and hex/bin digit runs (raw capture, then digit-grouped).
func (p *Parser) parseString() (ast.NodeIndex, error) {
	opener, _ := p.advance()
	quote := opener.Text[0]

	switch opener.Kind {
	case token.SQuote, token.DQuote:
		p.lex.SetStringMode(quote, "", false)
		raw, err := p.readStringBody()
		if err != nil {
			return ast.Empty, err
		}
		return p.store.AddString(opener.Pos, raw), nil

	case token.Smart:
		p.lex.SetStringMode(quote, opener.SmartDelim, true)
		raw, err := p.readStringBody()
		if err != nil {
			return ast.Empty, err
		}
		var decoded []byte
		switch opener.SmartLetter {
		case 'r':
			decoded = raw
		case 'p':
			decoded = decodeParagraph(raw)
		case 'c':
			decoded = decodeCode(raw)
		default:
			return ast.Empty, parseErr(opener.Pos, "unknown smart-string kind %q", opener.SmartLetter)
		}
		return p.store.AddString(opener.Pos, decoded), nil

	case token.Hex, token.Bin:
		p.lex.SetStringMode(quote, "", true)
		raw, err := p.readStringBody()
		if err != nil {
			return ast.Empty, err
		}
		decoded, err := decodeDigits(raw, opener.Pos, opener.Kind == token.Hex)
		if err != nil {
			return ast.Empty, err
		}
		return p.store.AddString(opener.Pos, decoded), nil
	}
	return ast.Empty, parseErr(opener.Pos, "unreachable string opener %s", opener.Kind)
}

// parseBlock parses "{" statement* "}", where the last statement must be
// the bare-expression alternative; that expression becomes the block's
// trailing value and is removed from Stmts.
func (p *Parser) parseBlock() (ast.NodeIndex, error) {
	brace, _ := p.advance() // '{'
	var stmts []ast.NodeIndex
	lastWasExpr := false
	var lastIdx ast.NodeIndex
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Empty, err
		}
		if tok.Kind == token.RBrace {
			break
		}
		idx, isExpr, err := p.parseStatement()
		if err != nil {
			return ast.Empty, err
		}
		stmts = append(stmts, idx)
		lastWasExpr = isExpr
		lastIdx = idx
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return ast.Empty, err
	}
	if len(stmts) == 0 || !lastWasExpr {
		return ast.Empty, parseErr(brace.Pos, "block requires a trailing expression")
	}
	trailing := lastIdx
	stmts = stmts[:len(stmts)-1]
	return p.store.AddBlock(brace.Pos, stmts, trailing), nil
}

// parseMap parses "map" expression "{" (expression "->" expression | "*" "->" expression)* "}".
func (p *Parser) parseMap() (ast.NodeIndex, error) {
	kw, _ := p.advance() // 'map'
	scrutinee, err := p.parseExpression()
	if err != nil {
		return ast.Empty, err
	}
	if _, err := p.expect(token.LBrace, "{"); err != nil {
		return ast.Empty, err
	}
	var arms []ast.Arm
	def := ast.Empty
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Empty, err
		}
		if tok.Kind == token.RBrace {
			break
		}
		if tok.Kind == token.Star {
			p.advance()
			if _, err := p.expect(token.Arrow, "->"); err != nil {
				return ast.Empty, err
			}
			body, err := p.parseExpression()
			if err != nil {
				return ast.Empty, err
			}
			def = body
			continue
		}
		pattern, err := p.parseExpression()
		if err != nil {
			return ast.Empty, err
		}
		if _, err := p.expect(token.Arrow, "->"); err != nil {
			return ast.Empty, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return ast.Empty, err
		}
		arms = append(arms, ast.Arm{Pattern: pattern, Body: body})
	}
	if _, err := p.expect(token.RBrace, "}"); err != nil {
		return ast.Empty, err
	}
	if len(arms) == 0 && def == ast.Empty {
		return ast.Empty, parseErr(kw.Pos, "map requires at least one arm")
	}
	return p.store.AddMap(kw.Pos, scrutinee, arms, def), nil
}

func (p *Parser) parseCodeify() (ast.NodeIndex, error) {
	eq, _ := p.advance() // '='
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Empty, err
	}
	return p.store.AddCodeify(eq.Pos, expr), nil
}
