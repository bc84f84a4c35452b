package lower

import (
	"sysyc/pkg/ast"
	"sysyc/pkg/koopa"
	"sysyc/pkg/symtab"
	"sysyc/pkg/token"
	"sysyc/pkg/util"
)

// lowerExpr lowers an expression node to a Value, folding when both
// operands are constant tokens and emitting one instruction otherwise,
// per spec.md §4.2.
func (c *Context) lowerExpr(n *ast.Node) Value {
	switch n.Kind {
	case ast.Number:
		return ConstVal(n.Data.(ast.NumberNode).Value)
	case ast.Ident:
		return c.lowerLValRead(n)
	case ast.Unary:
		return c.lowerUnary(n)
	case ast.Binary:
		return c.lowerBinary(n)
	case ast.LAnd:
		return c.lowerLAnd(n)
	case ast.LOr:
		return c.lowerLOr(n)
	case ast.Call:
		return c.lowerCall(n)
	}
	util.Error(n.Tok, "internal: unexpected expression kind")
	return Value{}
}

// ConstExpr lowers a constant-required expression (array dims,
// ConstInitVal scalars) and aborts via util.Error if it doesn't fold --
// the AST producer is contracted to only ever hand these a closed
// constant expression (spec §7 class 1).
func (c *Context) ConstExpr(n *ast.Node) int32 {
	v := c.lowerExpr(n)
	if !v.IsConst {
		util.Error(n.Tok, "expected a constant expression")
	}
	return v.Const
}

func (c *Context) lowerUnary(n *ast.Node) Value {
	d := n.Data.(ast.UnaryNode)
	operand := c.lowerExpr(d.Expr)
	switch d.Op {
	case token.Plus:
		return operand
	case token.Minus:
		if operand.IsConst {
			return ConstVal(int32(uint32(0) - uint32(operand.Const)))
		}
		return c.emitBinary("sub", ConstVal(0), operand)
	case token.Not:
		if operand.IsConst {
			return ConstVal(boolToI32(operand.Const == 0))
		}
		return c.emitBinary("eq", operand, ConstVal(0))
	}
	util.Error(n.Tok, "internal: unexpected unary operator")
	return Value{}
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

var binOpIR = map[token.Type]string{
	token.Plus: "add", token.Minus: "sub", token.Star: "mul",
	token.Slash: "div", token.Percent: "mod",
	token.Lt: "lt", token.Gt: "gt", token.Le: "le", token.Ge: "ge",
	token.Eq: "eq", token.Ne: "ne",
}

func (c *Context) lowerBinary(n *ast.Node) Value {
	d := n.Data.(ast.BinaryNode)
	lhs := c.lowerExpr(d.Left)
	rhs := c.lowerExpr(d.Right)
	op := binOpIR[d.Op]
	if lhs.IsConst && rhs.IsConst {
		if folded, ok := foldConst(op, lhs.Const, rhs.Const); ok {
			return ConstVal(folded)
		}
		// Divisor is zero: decline to fold (spec §4.2/§9 open question)
		// and defer to the runtime instruction instead.
	}
	return c.emitBinary(op, lhs, rhs)
}

// foldConst evaluates op on wrapping 32-bit two's-complement operands,
// per spec §9's "fold in a defined 32-bit two's-complement arithmetic"
// resolution. Division/modulo by zero decline to fold (ok=false).
func foldConst(op string, a, b int32) (int32, bool) {
	ua, ub := uint32(a), uint32(b)
	switch op {
	case "add":
		return int32(ua + ub), true
	case "sub":
		return int32(ua - ub), true
	case "mul":
		return int32(ua * ub), true
	case "div":
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case "mod":
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case "lt":
		return boolToI32(a < b), true
	case "gt":
		return boolToI32(a > b), true
	case "le":
		return boolToI32(a <= b), true
	case "ge":
		return boolToI32(a >= b), true
	case "eq":
		return boolToI32(a == b), true
	case "ne":
		return boolToI32(a != b), true
	}
	return 0, false
}

func (c *Context) emitBinary(op string, lhs, rhs Value) Value {
	dst := c.freshName()
	c.b.Binary(dst, op, lhs.Operand(), rhs.Operand())
	return NameVal(dst)
}

func (c *Context) freshName() string {
	return "%" + itoa(int32(c.fresh()))
}

func (c *Context) label(prefix string, id int) string {
	return "%" + prefix + "_" + itoa(int32(id))
}

// lowerLAnd and lowerLOr implement spec §4.2's short-circuit lowering:
// a runtime value is forced via alloc/store/branch/load unless the
// left operand folds to a constant. A deciding constant (0 for &&,
// nonzero for ||) yields the result directly; any other constant leaves
// only the right operand, normalized with "ne x, 0".
func (c *Context) lowerLAnd(n *ast.Node) Value {
	d := n.Data.(ast.LogicNode)
	left := c.lowerExpr(d.Left)
	if left.IsConst && left.Const == 0 {
		return ConstVal(0) // right never evaluated: no side effects possible
	}
	if left.IsConst {
		right := c.lowerExpr(d.Right)
		if right.IsConst {
			return ConstVal(boolToI32(right.Const != 0))
		}
		return c.emitBinary("ne", right, ConstVal(0))
	}

	k := c.fresh()
	slot := c.label("land_res", k)
	c.b.Alloc(slot, koopa.I32Type)
	c.b.Store("0", slot)
	leftNorm := c.normalizeBool(left)
	thenL, endL := c.label("land_then", k), c.label("land_end", k)
	c.b.Branch(leftNorm.Operand(), thenL, endL)
	c.enterBlock(thenL)
	right := c.lowerExpr(d.Right)
	rightNorm := c.normalizeBool(right)
	c.b.Store(rightNorm.Operand(), slot)
	if c.emitted() {
		c.b.Jump(endL)
		c.hasJp = true
	}
	c.enterBlock(endL)
	res := c.freshName()
	c.b.Load(res, slot)
	return NameVal(res)
}

func (c *Context) lowerLOr(n *ast.Node) Value {
	d := n.Data.(ast.LogicNode)
	left := c.lowerExpr(d.Left)
	if left.IsConst && left.Const != 0 {
		return ConstVal(1)
	}
	if left.IsConst {
		right := c.lowerExpr(d.Right)
		if right.IsConst {
			return ConstVal(boolToI32(right.Const != 0))
		}
		return c.emitBinary("ne", right, ConstVal(0))
	}

	k := c.fresh()
	slot := c.label("lor_res", k)
	c.b.Alloc(slot, koopa.I32Type)
	c.b.Store("1", slot)
	leftNorm := c.normalizeBool(left)
	notLeft := c.emitBinary("eq", leftNorm, ConstVal(0))
	thenL, endL := c.label("lor_then", k), c.label("lor_end", k)
	c.b.Branch(notLeft.Operand(), thenL, endL)
	c.enterBlock(thenL)
	right := c.lowerExpr(d.Right)
	rightNorm := c.normalizeBool(right)
	c.b.Store(rightNorm.Operand(), slot)
	if c.emitted() {
		c.b.Jump(endL)
		c.hasJp = true
	}
	c.enterBlock(endL)
	res := c.freshName()
	c.b.Load(res, slot)
	return NameVal(res)
}

// normalizeBool materializes a value to strict 0/1 via "ne x, 0", as
// required before storing into a short-circuit result slot.
func (c *Context) normalizeBool(v Value) Value {
	if v.IsConst {
		return ConstVal(boolToI32(v.Const != 0))
	}
	return c.emitBinary("ne", v, ConstVal(0))
}

func (c *Context) lowerCall(n *ast.Node) Value {
	d := n.Data.(ast.CallNode)
	sym, ok := c.syms.LookupGlobal(d.Name)
	if !ok {
		util.Error(n.Tok, "call to undeclared function '%s'", d.Name)
	}
	var args []string
	for _, a := range d.Args {
		args = append(args, c.lowerExpr(a).Operand())
	}
	if sym.IsVoid {
		c.b.Call("", sym.IRName, args)
		return Value{}
	}
	dst := c.freshName()
	c.b.Call(dst, sym.IRName, args)
	return NameVal(dst)
}

// --- LVal lowering (spec §4.2) ---

// lowerLValRead reads the value denoted by an Ident node (optionally
// subscripted).
func (c *Context) lowerLValRead(n *ast.Node) Value {
	ptr, scalarReady, constVal, isConst := c.resolveLVal(n, false)
	if isConst {
		return ConstVal(constVal)
	}
	if !scalarReady {
		return NameVal(ptr) // decayed-to-pointer array value
	}
	dst := c.freshName()
	c.b.Load(dst, ptr)
	return NameVal(dst)
}

// lowerLValAddr resolves the storage slot an assignment should target;
// the AST producer guarantees this is always a fully-indexed scalar.
func (c *Context) lowerLValAddr(n *ast.Node) string {
	ptr, scalarReady, _, isConst := c.resolveLVal(n, true)
	if isConst {
		util.Error(n.Tok, "cannot assign to a const")
	}
	if !scalarReady {
		util.Error(n.Tok, "assignment target is not a scalar")
	}
	return ptr
}

// resolveLVal is the shared walk behind both read and address-mode
// lowering. It returns either (constVal, isConst=true), or a pointer
// name together with scalarReady indicating whether that pointer
// denotes an addressable scalar (ready for load/store) as opposed to
// an already-decayed array pointer value.
func (c *Context) resolveLVal(n *ast.Node, addressMode bool) (ptr string, scalarReady bool, constVal int32, isConst bool) {
	d := n.Data.(ast.IdentNode)
	sym, ok := c.syms.Lookup(d.Name)
	if !ok {
		util.Error(n.Tok, "use of undeclared identifier '%s'", d.Name)
	}

	switch sym.Tag {
	case symtab.TagConst:
		// Scalar consts fold to a bare value with zero IR (spec §4.4);
		// const arrays are addressed exactly like var arrays (§4.2 draws
		// no distinction for the Array LVal case) so that subscripts
		// that aren't themselves constant still work.
		if len(sym.Dims) == 0 {
			return "", false, sym.ConstVal, true
		}
		return c.walkArray(sym, d.Indices), len(d.Indices) == len(sym.Dims), 0, false

	case symtab.TagVar:
		if len(d.Indices) != 0 {
			util.Error(n.Tok, "'%s' is not an array", d.Name)
		}
		return sym.IRName, true, 0, false

	case symtab.TagArray:
		return c.walkArray(sym, d.Indices), len(d.Indices) == len(sym.Dims), 0, false

	case symtab.TagPtr:
		return c.walkPtr(sym, d.Indices), len(d.Indices) == len(sym.Dims)+1, 0, false
	}
	util.Error(n.Tok, "internal: unexpected symbol tag")
	return "", false, 0, false
}

func (c *Context) walkArray(sym symtab.Symbol, indices []*ast.Node) string {
	cur := sym.IRName
	for _, idxNode := range indices {
		idx := c.lowerExpr(idxNode).Operand()
		dst := c.freshName()
		c.b.GetElemPtr(dst, cur, idx)
		cur = dst
	}
	if len(indices) < len(sym.Dims) {
		dst := c.freshName()
		c.b.GetElemPtr(dst, cur, "0")
		cur = dst
	}
	return cur
}

func (c *Context) walkPtr(sym symtab.Symbol, indices []*ast.Node) string {
	cur := c.freshName()
	c.b.Load(cur, sym.IRName)
	totalDims := len(sym.Dims) + 1
	for i, idxNode := range indices {
		idx := c.lowerExpr(idxNode).Operand()
		dst := c.freshName()
		if i == 0 {
			c.b.GetPtr(dst, cur, idx)
		} else {
			c.b.GetElemPtr(dst, cur, idx)
		}
		cur = dst
	}
	if len(indices) > 0 && len(indices) < totalDims {
		dst := c.freshName()
		c.b.GetElemPtr(dst, cur, "0")
		cur = dst
	}
	return cur
}
