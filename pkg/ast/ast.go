// Package ast defines the SysY abstract syntax tree.
//
// Nodes follow the teacher's tagged-variant shape (a Kind enum plus a
// Data payload) instead of a class hierarchy with virtual dispatch: each
// variant holds its own operand shape and the lowerer switches on Kind.
package ast

import "sysyc/pkg/token"

type Kind int

const (
	// Expressions
	Number Kind = iota
	Ident
	Unary
	Binary
	LAnd
	LOr
	Call
	Subscript
	InitList

	// Top level
	CompUnit
	ConstDecl
	VarDecl
	FuncDef
	FuncParam

	// Statements
	Block
	DeclGroup // one or more ConstDecl/VarDecl sharing a "const"/"int" keyword
	ExprStmt
	AssignStmt
	If
	While
	Break
	Continue
	Return
)

// Node is a single AST node. Data holds one of the *Node structs below,
// selected by Kind.
type Node struct {
	Kind Kind
	Tok  token.Token
	Data interface{}
}

// --- Expressions ---

type NumberNode struct{ Value int32 }
type IdentNode struct {
	Name     string
	Indices  []*Node // subscript indices, possibly empty
}
type UnaryNode struct {
	Op   token.Type // Plus, Minus, Not
	Expr *Node
}
type BinaryNode struct {
	Op          token.Type
	Left, Right *Node
}
type LogicNode struct { // && and ||, kept distinct from Binary for short-circuit lowering
	Left, Right *Node
}
type CallNode struct {
	Name string
	Args []*Node
}

// InitListNode is the parsed (unflattened) brace initializer
// "{ item, item, ... }". Each item is either an Exp node or a nested
// InitList node; the declaration lowerer performs brace alignment and
// flattening (spec §4.4).
type InitListNode struct{ Items []*Node }

// --- Declarations ---

// Dims holds the declared array dimensions of a Decl/FuncParam, as
// ConstExp nodes (evaluated at lowering time). An empty slice means a
// scalar. FuncParam array dims additionally may have a leading "[]"
// (decayed pointer) dimension, marked by IsPointerParam.
type DeclNode struct {
	Name           string
	Dims           []*Node // declared dimensions (ConstExp), empty = scalar
	Init           *Node   // scalar Exp, *InitList node for arrays, or nil
	IsPointerParam bool    // FuncParam only: first dim decayed to pointer
}

type FuncDefNode struct {
	Name       string
	IsVoid     bool
	Params     []*Node // FuncParam nodes
	Body       *Node   // Block
}

// --- Statements ---

type BlockNode struct{ Stmts []*Node }
type ExprStmtNode struct{ Expr *Node } // Expr may be nil for a bare ";"
type AssignStmtNode struct {
	LVal *Node // Ident node (possibly with Indices)
	Rhs  *Node
}
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ReturnNode struct{ Expr *Node } // Expr may be nil

type CompUnitNode struct{ Decls []*Node } // DeclGroup | FuncDef

// --- Constructors ---

func NewNumber(tok token.Token, v int32) *Node { return &Node{Kind: Number, Tok: tok, Data: NumberNode{Value: v}} }
func NewIdent(tok token.Token, name string, indices []*Node) *Node {
	return &Node{Kind: Ident, Tok: tok, Data: IdentNode{Name: name, Indices: indices}}
}
func NewUnary(tok token.Token, op token.Type, expr *Node) *Node {
	return &Node{Kind: Unary, Tok: tok, Data: UnaryNode{Op: op, Expr: expr}}
}
func NewBinary(tok token.Token, op token.Type, l, r *Node) *Node {
	return &Node{Kind: Binary, Tok: tok, Data: BinaryNode{Op: op, Left: l, Right: r}}
}
func NewLAnd(tok token.Token, l, r *Node) *Node {
	return &Node{Kind: LAnd, Tok: tok, Data: LogicNode{Left: l, Right: r}}
}
func NewLOr(tok token.Token, l, r *Node) *Node {
	return &Node{Kind: LOr, Tok: tok, Data: LogicNode{Left: l, Right: r}}
}
func NewCall(tok token.Token, name string, args []*Node) *Node {
	return &Node{Kind: Call, Tok: tok, Data: CallNode{Name: name, Args: args}}
}
func NewConstDecl(tok token.Token, name string, dims []*Node, init *Node) *Node {
	return &Node{Kind: ConstDecl, Tok: tok, Data: DeclNode{Name: name, Dims: dims, Init: init}}
}
func NewVarDecl(tok token.Token, name string, dims []*Node, init *Node) *Node {
	return &Node{Kind: VarDecl, Tok: tok, Data: DeclNode{Name: name, Dims: dims, Init: init}}
}
func NewInitList(tok token.Token, items []*Node) *Node {
	return &Node{Kind: InitList, Tok: tok, Data: InitListNode{Items: items}}
}
func NewFuncParam(tok token.Token, name string, dims []*Node, isPointerParam bool) *Node {
	return &Node{Kind: FuncParam, Tok: tok, Data: DeclNode{Name: name, Dims: dims, IsPointerParam: isPointerParam}}
}
func NewFuncDef(tok token.Token, name string, isVoid bool, params []*Node, body *Node) *Node {
	return &Node{Kind: FuncDef, Tok: tok, Data: FuncDefNode{Name: name, IsVoid: isVoid, Params: params, Body: body}}
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return &Node{Kind: Block, Tok: tok, Data: BlockNode{Stmts: stmts}}
}
func NewDeclGroup(tok token.Token, decls []*Node) *Node {
	return &Node{Kind: DeclGroup, Tok: tok, Data: BlockNode{Stmts: decls}}
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return &Node{Kind: ExprStmt, Tok: tok, Data: ExprStmtNode{Expr: expr}}
}
func NewAssignStmt(tok token.Token, lval, rhs *Node) *Node {
	return &Node{Kind: AssignStmt, Tok: tok, Data: AssignStmtNode{LVal: lval, Rhs: rhs}}
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return &Node{Kind: If, Tok: tok, Data: IfNode{Cond: cond, Then: then, Else: els}}
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return &Node{Kind: While, Tok: tok, Data: WhileNode{Cond: cond, Body: body}}
}
func NewBreak(tok token.Token) *Node    { return &Node{Kind: Break, Tok: tok} }
func NewContinue(tok token.Token) *Node { return &Node{Kind: Continue, Tok: tok} }
func NewReturn(tok token.Token, expr *Node) *Node {
	return &Node{Kind: Return, Tok: tok, Data: ReturnNode{Expr: expr}}
}
func NewCompUnit(decls []*Node) *Node { return &Node{Kind: CompUnit, Data: CompUnitNode{Decls: decls}} }
