// Package parser implements a recursive-descent parser for SysY,
// producing the AST defined in pkg/ast. Per spec.md §1 the real
// compiler treats "the lexer/parser that produces the AST" as an
// external collaborator contracted only to deliver a well-formed tree;
// this package plays that role for sysyc so the driver has a complete,
// runnable pipeline instead of requiring a hand-authored AST file.
package parser

import (
	"sysyc/pkg/ast"
	"sysyc/pkg/token"
	"sysyc/pkg/util"
)

type Parser struct {
	tokens  []token.Token
	pos     int
	current token.Token
}

func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t token.Type) token.Token {
	tok := p.current
	if !p.check(t) {
		util.Error(p.current, "expected %s, got %s", t, p.current.Type)
	}
	p.advance()
	return tok
}

// Parse parses a complete translation unit.
func (p *Parser) Parse() *ast.Node {
	var decls []*ast.Node
	for !p.check(token.EOF) {
		decls = append(decls, p.parseTopLevel())
	}
	return ast.NewCompUnit(decls)
}

func (p *Parser) parseTopLevel() *ast.Node {
	if p.check(token.KwConst) {
		return p.parseConstDecl()
	}

	// "int"|"void" Ident -- lookahead on the token after the identifier
	// distinguishes a FuncDef ('(') from a VarDecl (anything else).
	isVoid := p.check(token.KwVoid)
	tok := p.current
	if isVoid {
		p.advance()
	} else {
		p.expect(token.KwInt)
	}
	nameTok := p.expect(token.Ident)
	if p.check(token.LParen) {
		return p.parseFuncDef(tok, nameTok.Value, isVoid)
	}
	if isVoid {
		util.Error(nameTok, "'void' is only valid as a function return type")
	}
	return p.parseVarDeclRest(tok, nameTok)
}

func (p *Parser) parseConstDecl() *ast.Node {
	tok := p.expect(token.KwConst)
	p.expect(token.KwInt)
	var defs []*ast.Node
	defs = append(defs, p.parseConstDef())
	for p.match(token.Comma) {
		defs = append(defs, p.parseConstDef())
	}
	p.expect(token.Semi)
	return ast.NewDeclGroup(tok, defs)
}

func (p *Parser) parseConstDef() *ast.Node {
	nameTok := p.expect(token.Ident)
	dims := p.parseDims()
	p.expect(token.Assign)
	init := p.parseInitVal()
	return ast.NewConstDecl(nameTok, nameTok.Value, dims, init)
}

// parseVarDeclRest continues parsing a VarDecl whose first identifier
// has already been consumed by parseTopLevel's lookahead.
func (p *Parser) parseVarDeclRest(tok token.Token, firstName token.Token) *ast.Node {
	var defs []*ast.Node
	defs = append(defs, p.parseVarDefFrom(firstName))
	for p.match(token.Comma) {
		nameTok := p.expect(token.Ident)
		defs = append(defs, p.parseVarDefFrom(nameTok))
	}
	p.expect(token.Semi)
	return ast.NewDeclGroup(tok, defs)
}

func (p *Parser) parseVarDefFrom(nameTok token.Token) *ast.Node {
	dims := p.parseDims()
	var init *ast.Node
	if p.match(token.Assign) {
		init = p.parseInitVal()
	}
	return ast.NewVarDecl(nameTok, nameTok.Value, dims, init)
}

func (p *Parser) parseDims() []*ast.Node {
	var dims []*ast.Node
	for p.match(token.LBracket) {
		dims = append(dims, p.parseExp())
		p.expect(token.RBracket)
	}
	return dims
}

// parseInitVal parses both ConstInitVal and InitVal -- they share a
// grammar; constant-ness is enforced later by the declaration lowerer.
func (p *Parser) parseInitVal() *ast.Node {
	if p.check(token.LBrace) {
		tok := p.current
		p.advance()
		var items []*ast.Node
		if !p.check(token.RBrace) {
			items = append(items, p.parseInitVal())
			for p.match(token.Comma) {
				items = append(items, p.parseInitVal())
			}
		}
		p.expect(token.RBrace)
		return ast.NewInitList(tok, items)
	}
	return p.parseExp()
}

func (p *Parser) parseFuncDef(tok token.Token, name string, isVoid bool) *ast.Node {
	p.expect(token.LParen)
	var params []*ast.Node
	if !p.check(token.RParen) {
		params = append(params, p.parseFuncFParam())
		for p.match(token.Comma) {
			params = append(params, p.parseFuncFParam())
		}
	}
	p.expect(token.RParen)
	body := p.parseBlock()
	return ast.NewFuncDef(tok, name, isVoid, params, body)
}

func (p *Parser) parseFuncFParam() *ast.Node {
	p.expect(token.KwInt)
	nameTok := p.expect(token.Ident)
	if !p.check(token.LBracket) {
		return ast.NewFuncParam(nameTok, nameTok.Value, nil, false)
	}
	p.expect(token.LBracket)
	p.expect(token.RBracket) // decayed outermost dimension
	var dims []*ast.Node
	for p.match(token.LBracket) {
		dims = append(dims, p.parseExp())
		p.expect(token.RBracket)
	}
	return ast.NewFuncParam(nameTok, nameTok.Value, dims, true)
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.expect(token.LBrace)
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseBlockItem())
	}
	p.expect(token.RBrace)
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseBlockItem() *ast.Node {
	if p.check(token.KwConst) {
		return p.parseConstDecl()
	}
	if p.check(token.KwInt) {
		tok := p.current
		p.advance()
		nameTok := p.expect(token.Ident)
		return p.parseVarDeclRest(tok, nameTok)
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() *ast.Node {
	switch p.current.Type {
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwBreak:
		tok := p.current
		p.advance()
		p.expect(token.Semi)
		return ast.NewBreak(tok)
	case token.KwContinue:
		tok := p.current
		p.advance()
		p.expect(token.Semi)
		return ast.NewContinue(tok)
	case token.KwReturn:
		tok := p.current
		p.advance()
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExp()
		}
		p.expect(token.Semi)
		return ast.NewReturn(tok, expr)
	case token.Semi:
		tok := p.current
		p.advance()
		return ast.NewExprStmt(tok, nil)
	default:
		return p.parseExprOrAssignStmt()
	}
}

// parseExprOrAssignStmt disambiguates "LVal = Exp ;" from "[Exp] ;" by
// parsing a full expression first and checking whether it is a bare
// LVal followed by '='.
func (p *Parser) parseExprOrAssignStmt() *ast.Node {
	tok := p.current
	expr := p.parseExp()
	if p.check(token.Assign) && isLValue(expr) {
		p.advance()
		rhs := p.parseExp()
		p.expect(token.Semi)
		return ast.NewAssignStmt(tok, expr, rhs)
	}
	p.expect(token.Semi)
	return ast.NewExprStmt(tok, expr)
}

func isLValue(n *ast.Node) bool { return n.Kind == ast.Ident }

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.KwIf)
	p.expect(token.LParen)
	cond := p.parseExp()
	p.expect(token.RParen)
	then := p.parseStmt()
	var els *ast.Node
	if p.match(token.KwElse) {
		els = p.parseStmt()
	}
	return ast.NewIf(tok, cond, then, els)
}

func (p *Parser) parseWhile() *ast.Node {
	tok := p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExp()
	p.expect(token.RParen)
	body := p.parseStmt()
	return ast.NewWhile(tok, cond, body)
}

// --- Expressions, precedence-climbing over the grammar's fixed levels ---

func (p *Parser) parseExp() *ast.Node { return p.parseLOr() }

func (p *Parser) parseLOr() *ast.Node {
	left := p.parseLAnd()
	for p.check(token.OrOr) {
		tok := p.current
		p.advance()
		left = ast.NewLOr(tok, left, p.parseLAnd())
	}
	return left
}

func (p *Parser) parseLAnd() *ast.Node {
	left := p.parseEq()
	for p.check(token.AndAnd) {
		tok := p.current
		p.advance()
		left = ast.NewLAnd(tok, left, p.parseEq())
	}
	return left
}

func (p *Parser) parseEq() *ast.Node {
	left := p.parseRel()
	for p.check(token.Eq) || p.check(token.Ne) {
		tok := p.current
		p.advance()
		left = ast.NewBinary(tok, tok.Type, left, p.parseRel())
	}
	return left
}

func (p *Parser) parseRel() *ast.Node {
	left := p.parseAdd()
	for p.check(token.Lt) || p.check(token.Gt) || p.check(token.Le) || p.check(token.Ge) {
		tok := p.current
		p.advance()
		left = ast.NewBinary(tok, tok.Type, left, p.parseAdd())
	}
	return left
}

func (p *Parser) parseAdd() *ast.Node {
	left := p.parseMul()
	for p.check(token.Plus) || p.check(token.Minus) {
		tok := p.current
		p.advance()
		left = ast.NewBinary(tok, tok.Type, left, p.parseMul())
	}
	return left
}

func (p *Parser) parseMul() *ast.Node {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		tok := p.current
		p.advance()
		left = ast.NewBinary(tok, tok.Type, left, p.parseUnary())
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.current.Type {
	case token.Plus, token.Minus, token.Not:
		tok := p.current
		p.advance()
		return ast.NewUnary(tok, tok.Type, p.parseUnary())
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() *ast.Node {
	switch p.current.Type {
	case token.LParen:
		p.advance()
		e := p.parseExp()
		p.expect(token.RParen)
		return e
	case token.Number:
		tok := p.current
		p.advance()
		return ast.NewNumber(tok, tok.IntValue)
	case token.Ident:
		tok := p.current
		p.advance()
		if p.check(token.LParen) {
			p.advance()
			var args []*ast.Node
			if !p.check(token.RParen) {
				args = append(args, p.parseExp())
				for p.match(token.Comma) {
					args = append(args, p.parseExp())
				}
			}
			p.expect(token.RParen)
			return ast.NewCall(tok, tok.Value, args)
		}
		var indices []*ast.Node
		for p.match(token.LBracket) {
			indices = append(indices, p.parseExp())
			p.expect(token.RBracket)
		}
		return ast.NewIdent(tok, tok.Value, indices)
	default:
		util.Error(p.current, "unexpected token %s in expression", p.current.Type)
		return nil
	}
}
