// Package parser implements a recursive-descent parser for zen source
// files.
//
// Like the lexer, the parser is an external collaborator of the core
// pipeline (spec.md §1): it turns a token sequence plus a file path into
// a *ast.Module with full location information and an initial diagnostic
// bag, satisfying the front-end contract of spec.md §4.2 — if/for bodies
// are always *ast.Block, function definitions carry an explicit argument
// list, class definitions carry an ordered member list, and a function
// body with no terminal return gets one synthesized.
//
// The parser keeps a two-token lookahead window (curTok/peekTok), the
// same shape the teacher's Smalltalk parser used, adapted here to a
// C-like statement/expression grammar with precedence climbing instead
// of Smalltalk unary/binary/keyword message chaining.
//
// Operator precedence (spec.md §6, levels 2 through 14, low to high):
//
//	2  assignment family (= += -= *= /= %=), right-associative
//	3  logical or           ||
//	4  logical and          &&
//	5  bitwise or           |
//	6  bitwise xor          ^
//	7  bitwise and          &
//	8  equality             == !=
//	9  relational           < > <= >=
//	10 additive             + -
//	11 multiplicative       * / %
//	12 power                **, right-associative
//	13 unary (prefix)       ! - ++ --
//	14 postfix/call/member  f(...) a.b ++ --
package parser

import (
	"strconv"

	"github.com/kristofer/zen/pkg/ast"
	"github.com/kristofer/zen/pkg/diag"
	"github.com/kristofer/zen/pkg/lexer"
)

const (
	precLowest = iota
	precAssign
	precLogOr
	precLogAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precPower
)

var binaryPrec = map[lexer.TokenType]int{
	lexer.TokenAssign:    precAssign,
	lexer.TokenAddAssign: precAssign,
	lexer.TokenSubAssign: precAssign,
	lexer.TokenMulAssign: precAssign,
	lexer.TokenDivAssign: precAssign,
	lexer.TokenModAssign: precAssign,
	lexer.TokenLogOr:     precLogOr,
	lexer.TokenLogAnd:    precLogAnd,
	lexer.TokenBitOr:     precBitOr,
	lexer.TokenBitXor:    precBitXor,
	lexer.TokenBitAnd:    precBitAnd,
	lexer.TokenEqual:     precEquality,
	lexer.TokenNotEqual:  precEquality,
	lexer.TokenLess:      precRelational,
	lexer.TokenGreater:   precRelational,
	lexer.TokenLessEq:    precRelational,
	lexer.TokenGreaterEq: precRelational,
	lexer.TokenPlus:      precAdditive,
	lexer.TokenMinus:     precAdditive,
	lexer.TokenStar:      precMultiplicative,
	lexer.TokenSlash:     precMultiplicative,
	lexer.TokenPercent:   precMultiplicative,
	lexer.TokenCaret:     precPower,
}

// rightAssoc holds the operator tokens that recurse at their own
// precedence rather than one level higher: the assignment family and
// the power operator.
var rightAssoc = map[lexer.TokenType]bool{
	lexer.TokenAssign:    true,
	lexer.TokenAddAssign: true,
	lexer.TokenSubAssign: true,
	lexer.TokenMulAssign: true,
	lexer.TokenDivAssign: true,
	lexer.TokenModAssign: true,
	lexer.TokenCaret:     true,
}

var assignOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenAssign:    ast.BOpAssign,
	lexer.TokenAddAssign: ast.BOpAddAssign,
	lexer.TokenSubAssign: ast.BOpSubAssign,
	lexer.TokenMulAssign: ast.BOpMulAssign,
	lexer.TokenDivAssign: ast.BOpDivAssign,
	lexer.TokenModAssign: ast.BOpModAssign,
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenLogOr:     ast.BOpLogOr,
	lexer.TokenLogAnd:    ast.BOpLogAnd,
	lexer.TokenBitOr:     ast.BOpBitOr,
	lexer.TokenBitXor:    ast.BOpBitXor,
	lexer.TokenBitAnd:    ast.BOpBitAnd,
	lexer.TokenEqual:     ast.BOpEql,
	lexer.TokenNotEqual:  ast.BOpNotEql,
	lexer.TokenLess:      ast.BOpLess,
	lexer.TokenGreater:   ast.BOpGreater,
	lexer.TokenLessEq:    ast.BOpLessEql,
	lexer.TokenGreaterEq: ast.BOpGreaterEql,
	lexer.TokenPlus:      ast.BOpAdd,
	lexer.TokenMinus:     ast.BOpSub,
	lexer.TokenStar:      ast.BOpMul,
	lexer.TokenSlash:     ast.BOpDiv,
	lexer.TokenPercent:   ast.BOpMod,
	lexer.TokenCaret:     ast.BOpPow,
}

// Parser holds the state of one parse of one source file.
type Parser struct {
	file    string
	l       *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token
	bag     *diag.Bag
}

// New creates a Parser over src, attributing diagnostics to file.
func New(file, src string) *Parser {
	p := &Parser{file: file, l: lexer.New(file, src), bag: &diag.Bag{}}
	p.nextToken()
	p.nextToken()
	return p
}

// Diagnostics returns the diagnostic bag accumulated during Parse. A
// non-empty bag means the returned *ast.Module must not be lowered.
func (p *Parser) Diagnostics() *diag.Bag { return p.bag }

func (p *Parser) loc() diag.Location {
	return diag.Location{File: p.file, Line: p.curTok.Line, Column: p.curTok.Column}
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.curTok.Type == tt {
		p.nextToken()
		return true
	}
	p.bag.Add(diag.ExpectedToken, p.loc(), tt.String(), p.curTok.Literal)
	return false
}

// Parse parses a whole source file into a *ast.Module. The first
// statement must be `module <ident>` per spec.md §6.
func (p *Parser) Parse() *ast.Module {
	loc := p.loc()
	if p.curTok.Type != lexer.TokenModule {
		p.bag.Add(diag.ExpectedModuleDeclaration, loc)
		return &ast.Module{}
	}
	p.nextToken()
	name := p.curTok.Literal
	if p.curTok.Type != lexer.TokenIdentifier {
		p.bag.Add(diag.ExpectedIdentifier, p.loc())
	} else {
		p.nextToken()
	}
	p.expect(lexer.TokenSemicolon)

	mod := &ast.Module{Name: name}
	mod.Loc = loc

	var imports []*ast.Import
	for p.curTok.Type == lexer.TokenImport {
		imports = append(imports, p.parseImport())
	}
	if len(imports) > 0 {
		imps := &ast.Imports{List: imports}
		imps.Loc = imports[0].Loc
		mod.Children = append(mod.Children, imps)
	}

	for p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			mod.Children = append(mod.Children, stmt)
		}
	}
	return mod
}

func (p *Parser) parseImport() *ast.Import {
	loc := p.loc()
	p.nextToken() // consume 'import'
	imp := &ast.Import{}
	imp.Loc = loc
	if p.curTok.Type == lexer.TokenString {
		imp.Kind = ast.ImportFile
		imp.Value = p.curTok.Literal
		p.nextToken()
	} else {
		imp.Kind = ast.ImportModule
		imp.Value = p.curTok.Literal
		p.expect(lexer.TokenIdentifier)
	}
	p.expect(lexer.TokenSemicolon)
	return imp
}

// parseStatement dispatches on the current token to the right statement
// parser. Returns nil only if called with an empty token stream; every
// other path returns a node, possibly after recording a diagnostic.
func (p *Parser) parseStatement() ast.Stmt {
	switch p.curTok.Type {
	case lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenFn:
		return p.parseFunctionDef()
	case lexer.TokenClass:
		return p.parseClassDef()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenBreak:
		loc := p.loc()
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		n := &ast.LoopControl{Levels: 1}
		n.Loc = loc
		return n
	case lexer.TokenContinue:
		loc := p.loc()
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		n := &ast.LoopControl{Continue: true, Levels: 1}
		n.Loc = loc
		return n
	case lexer.TokenLBrace:
		return p.parseBlock()
	default:
		loc := p.loc()
		expr := p.parseExpression(precLowest)
		p.expect(lexer.TokenSemicolon)
		n := &ast.ExprStmt{Value: expr, Clear: true}
		n.Loc = loc
		return n
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'var'
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	var assign ast.Expr
	if p.curTok.Type == lexer.TokenAssign {
		p.nextToken()
		assign = p.parseExpression(precAssign)
	}
	p.expect(lexer.TokenSemicolon)
	n := &ast.VarDecl{Name: name, Assign: assign}
	n.Loc = loc
	return n
}

func (p *Parser) parseParamList() []string {
	p.expect(lexer.TokenLParen)
	var args []string
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		args = append(args, p.curTok.Literal)
		p.expect(lexer.TokenIdentifier)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)
	return args
}

func (p *Parser) parseArgList() []ast.Expr {
	p.expect(lexer.TokenLParen)
	var args []ast.Expr
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		args = append(args, p.parseExpression(precAssign))
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)
	return args
}

// ensureReturn appends a synthesized `return null;` to body when its
// last statement is not already a Return, so every function body has a
// single, predictable tail the lowering pass can rely on.
func ensureReturn(body *ast.Block) {
	if len(body.Children) > 0 {
		if _, ok := body.Children[len(body.Children)-1].(*ast.Return); ok {
			return
		}
	}
	ret := &ast.Return{}
	ret.Loc = body.Loc
	body.Children = append(body.Children, ret)
}

func (p *Parser) parseFunctionDef() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'fn'
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	args := p.parseParamList()
	body := p.parseBlock().(*ast.Block)
	ensureReturn(body)
	n := &ast.FunctionDef{Name: name, Args: args, Body: body}
	n.Loc = loc
	return n
}

func (p *Parser) parseClassDef() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'class'
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLBrace)

	cd := &ast.ClassDef{Name: name}
	cd.Loc = loc

	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		switch p.curTok.Type {
		case lexer.TokenVar:
			vloc := p.loc()
			p.nextToken()
			vname := p.curTok.Literal
			p.expect(lexer.TokenIdentifier)
			var assign ast.Expr
			if p.curTok.Type == lexer.TokenAssign {
				p.nextToken()
				assign = p.parseExpression(precAssign)
			}
			p.expect(lexer.TokenSemicolon)
			vm := &ast.VarMember{Name: vname, Assign: assign}
			vm.Loc = vloc
			cd.Vars = append(cd.Vars, vm)
		case lexer.TokenFn:
			fd := p.parseFunctionDef().(*ast.FunctionDef)
			cd.Methods = append(cd.Methods, fd)
		default:
			p.bag.Add(diag.IllegalSyntax, p.loc(), p.curTok.Literal)
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRBrace)
	return cd
}

func (p *Parser) parseIf() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'if'
	p.expect(lexer.TokenLParen)
	cond := p.parseExpression(precLowest)
	p.expect(lexer.TokenRParen)
	then := p.parseBlock().(*ast.Block)

	n := &ast.If{Cond: cond, Then: then}
	n.Loc = loc

	if p.curTok.Type == lexer.TokenElse {
		p.nextToken()
		if p.curTok.Type == lexer.TokenIf {
			nested := p.parseIf()
			blk := &ast.Block{Children: []ast.Stmt{nested}}
			blk.Loc = nested.Pos()
			n.Else = blk
		} else {
			n.Else = p.parseBlock().(*ast.Block)
		}
	}
	return n
}

func (p *Parser) parseFor() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'for'
	p.expect(lexer.TokenLParen)

	var init ast.Stmt
	if p.curTok.Type == lexer.TokenVar {
		init = p.parseVarDecl()
	} else if p.curTok.Type != lexer.TokenSemicolon {
		eloc := p.loc()
		e := p.parseExpression(precLowest)
		es := &ast.ExprStmt{Value: e, Clear: true}
		es.Loc = eloc
		p.expect(lexer.TokenSemicolon)
		init = es
	} else {
		p.expect(lexer.TokenSemicolon)
	}

	var cond ast.Expr
	if p.curTok.Type != lexer.TokenSemicolon {
		cond = p.parseExpression(precLowest)
	}
	p.expect(lexer.TokenSemicolon)

	var inc ast.Stmt
	if p.curTok.Type != lexer.TokenRParen {
		iloc := p.loc()
		e := p.parseExpression(precLowest)
		is := &ast.ExprStmt{Value: e, Clear: true}
		is.Loc = iloc
		inc = is
	}
	p.expect(lexer.TokenRParen)

	body := p.parseBlock().(*ast.Block)
	n := &ast.For{Init: init, Cond: cond, Inc: inc, Body: body}
	n.Loc = loc
	return n
}

func (p *Parser) parseReturn() ast.Stmt {
	loc := p.loc()
	p.nextToken() // 'return'
	var val ast.Expr
	if p.curTok.Type != lexer.TokenSemicolon {
		val = p.parseExpression(precLowest)
	}
	p.expect(lexer.TokenSemicolon)
	n := &ast.Return{Value: val}
	n.Loc = loc
	return n
}

func (p *Parser) parseBlock() ast.Stmt {
	loc := p.loc()
	p.expect(lexer.TokenLBrace)
	blk := &ast.Block{}
	blk.Loc = loc
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			blk.Children = append(blk.Children, stmt)
		}
	}
	p.expect(lexer.TokenRBrace)
	return blk
}

// parseExpression implements precedence climbing over the table in
// binaryPrec; prec is the minimum precedence an infix operator must
// have to be consumed at this level.
func (p *Parser) parseExpression(prec int) ast.Expr {
	left := p.parseUnary()

	for {
		opPrec, ok := binaryPrec[p.curTok.Type]
		if !ok || opPrec < prec {
			break
		}
		op := p.curTok.Type
		loc := p.loc()
		p.nextToken()

		nextPrec := opPrec + 1
		if rightAssoc[op] {
			nextPrec = opPrec
		}
		right := p.parseExpression(nextPrec)

		var bop ast.BinaryOp
		if a, ok := assignOps[op]; ok {
			bop = a
		} else {
			bop = binaryOps[op]
		}
		n := &ast.BinaryExpr{Op: bop, Left: left, Right: right}
		n.Loc = loc
		left = n
	}
	return left
}

// parseUnary handles the prefix operator family (level 13): ! - ++ --.
// Everything else falls through to the postfix/primary level (14).
func (p *Parser) parseUnary() ast.Expr {
	switch p.curTok.Type {
	case lexer.TokenBang:
		loc := p.loc()
		p.nextToken()
		n := &ast.UnaryExpr{Op: ast.UOpNot, Operand: p.parseUnary()}
		n.Loc = loc
		return n
	case lexer.TokenMinus:
		loc := p.loc()
		p.nextToken()
		n := &ast.UnaryExpr{Op: ast.UOpNeg, Operand: p.parseUnary()}
		n.Loc = loc
		return n
	case lexer.TokenIncr:
		loc := p.loc()
		p.nextToken()
		n := &ast.UnaryExpr{Op: ast.UOpPreInc, Operand: p.parseUnary()}
		n.Loc = loc
		return n
	case lexer.TokenDecr:
		loc := p.loc()
		p.nextToken()
		n := &ast.UnaryExpr{Op: ast.UOpPreDec, Operand: p.parseUnary()}
		n.Loc = loc
		return n
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

// parsePostfix consumes the postfix/member/call family (level 14) that
// trails a primary expression: `.` chains and postfix ++/--.
func (p *Parser) parsePostfix(left ast.Expr) ast.Expr {
	for {
		switch p.curTok.Type {
		case lexer.TokenDot:
			loc := p.loc()
			p.nextToken()
			right := p.parseMemberLink()
			n := &ast.MemberAccess{Left: left, Right: right}
			n.Loc = loc
			left = n
		case lexer.TokenIncr:
			loc := p.loc()
			p.nextToken()
			n := &ast.UnaryExpr{Op: ast.UOpPostInc, Operand: left}
			n.Loc = loc
			left = n
		case lexer.TokenDecr:
			loc := p.loc()
			p.nextToken()
			n := &ast.UnaryExpr{Op: ast.UOpPostDec, Operand: left}
			n.Loc = loc
			left = n
		default:
			return left
		}
	}
}

// parseMemberLink parses a single link in a `.`-chain: a bare member
// name, or a method call when followed by an argument list. It does not
// itself recurse into a further `.`; the caller's loop handles that.
func (p *Parser) parseMemberLink() ast.Expr {
	loc := p.loc()
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	if p.curTok.Type == lexer.TokenLParen {
		args := p.parseArgList()
		n := &ast.FunctionCall{Name: name, Args: args}
		n.Loc = loc
		return n
	}
	n := &ast.Variable{Name: name}
	n.Loc = loc
	return n
}

func (p *Parser) parseNew() ast.Expr {
	loc := p.loc()
	p.nextToken() // 'new'
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	var args []ast.Expr
	if p.curTok.Type == lexer.TokenLParen {
		args = p.parseArgList()
	}
	call := &ast.FunctionCall{Name: name, Args: args}
	call.Loc = loc
	n := &ast.New{Constructor: call}
	n.Loc = loc
	return n
}

func (p *Parser) parsePrimary() ast.Expr {
	loc := p.loc()
	switch p.curTok.Type {
	case lexer.TokenInteger:
		v, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
		if err != nil {
			p.bag.Add(diag.IllegalSyntax, loc, p.curTok.Literal)
		}
		n := &ast.IntegerLit{Value: v}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenFloat:
		v, err := strconv.ParseFloat(p.curTok.Literal, 64)
		if err != nil {
			p.bag.Add(diag.IllegalSyntax, loc, p.curTok.Literal)
		}
		n := &ast.FloatLit{Value: v}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenString:
		n := &ast.StringLit{Value: p.curTok.Literal}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenTrue:
		n := &ast.BoolLit{Value: true}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenFalse:
		n := &ast.BoolLit{Value: false}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenNull:
		n := &ast.NullLit{}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenSelf:
		n := &ast.Self{}
		n.Loc = loc
		p.nextToken()
		return n
	case lexer.TokenNew:
		return p.parseNew()
	case lexer.TokenIdentifier:
		name := p.curTok.Literal
		p.nextToken()
		if p.curTok.Type == lexer.TokenLParen {
			args := p.parseArgList()
			n := &ast.FunctionCall{Name: name, Args: args}
			n.Loc = loc
			return n
		}
		n := &ast.Variable{Name: name}
		n.Loc = loc
		return n
	case lexer.TokenLParen:
		p.nextToken()
		e := p.parseExpression(precLowest)
		p.expect(lexer.TokenRParen)
		return e
	default:
		p.bag.Add(diag.IllegalExpression, loc, p.curTok.Literal)
		p.nextToken()
		n := &ast.NullLit{}
		n.Loc = loc
		return n
	}
}
