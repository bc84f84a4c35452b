package lower

import (
	"sysyc/pkg/ast"
	"sysyc/pkg/koopa"
	"sysyc/pkg/symtab"
)

// lowerFuncDef implements spec §4.5: install the function symbol
// before pushing a body scope (so recursive calls resolve), bind each
// parameter as an outer symbol, then push an inner scope and store
// every parameter into its own local slot -- "parameters are just
// locals" uniformly simplifies assignment lowering.
func (c *Context) lowerFuncDef(n *ast.Node) {
	d := n.Data.(ast.FuncDefNode)

	irName := "@main"
	if d.Name != "main" {
		irName = "@" + d.Name + "_" + itoa(int32(c.fresh()))
	}
	retTy := koopa.I32Type
	if d.IsVoid {
		retTy = koopa.VoidType
	}
	c.syms.Insert(d.Name, symtab.Symbol{Tag: symtab.TagFunc, IRName: irName, IsVoid: d.IsVoid})

	c.syms.Push()
	type paramInfo struct {
		name string
		ty   *koopa.Type
		dims []int32
		tag  symtab.Tag
	}
	var params []paramInfo
	for _, p := range d.Params {
		pd := p.Data.(ast.DeclNode)
		if !pd.IsPointerParam {
			params = append(params, paramInfo{name: pd.Name, ty: koopa.I32Type, tag: symtab.TagVar})
			continue
		}
		dims := c.evalDims(pd.Dims)
		ty := koopa.PtrTo(arrayType(dims))
		params = append(params, paramInfo{name: pd.Name, ty: ty, dims: dims, tag: symtab.TagPtr})
	}

	var paramNames []string
	var paramTypes []*koopa.Type
	for _, p := range params {
		paramNames = append(paramNames, c.label("p_"+p.name, c.fresh()))
		paramTypes = append(paramTypes, p.ty)
	}
	c.b.FuncBegin(irName, paramNames, paramTypes, retTy)
	c.enterBlock("%entry")

	c.syms.Push()
	for i, p := range params {
		slot := c.label(p.name, c.fresh())
		c.b.Alloc(slot, paramRefType(p.ty))
		c.b.Store(paramNames[i], slot)
		c.syms.Insert(p.name, symtab.Symbol{Tag: p.tag, IRName: slot, Dims: p.dims})
	}

	wrapTiming := c.PerfMode && d.Name == "main" && !callsTiming(d.Body)
	if wrapTiming {
		c.b.Call("", "@starttime", nil)
	}

	c.curFuncRetVoid = d.IsVoid
	c.lowerStmt(d.Body)

	if wrapTiming && !c.hasJp {
		c.b.Call("", "@stoptime", nil)
	}
	if !c.hasJp {
		if d.IsVoid {
			c.b.Ret("")
		} else {
			// Open question (spec §9): the source falls through to a
			// bare `ret`, relying on whatever happens to be in a0. We
			// instead always append an explicit `ret 0`.
			c.b.Ret("0")
		}
		c.hasJp = true
	}

	c.syms.Pop()
	c.syms.Pop()
	c.b.FuncEnd()
}

// callsTiming reports whether n (recursively) contains a call to the
// runtime's starttime/stoptime symbols -- used only to decide whether
// -perf mode's auto-wrap would be redundant. It does not need to chase
// every statement kind exhaustively: only nodes that can themselves
// contain a Call (directly or through a nested expression) matter, and
// a false negative here just means both starttime and stoptime get
// called twice, which the runtime tolerates.
func callsTiming(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.Call:
		name := n.Data.(ast.CallNode).Name
		return name == "starttime" || name == "stoptime"
	case ast.Block:
		for _, s := range n.Data.(ast.BlockNode).Stmts {
			if callsTiming(s) {
				return true
			}
		}
	case ast.ExprStmt:
		return callsTiming(n.Data.(ast.ExprStmtNode).Expr)
	case ast.AssignStmt:
		return callsTiming(n.Data.(ast.AssignStmtNode).Rhs)
	case ast.If:
		d := n.Data.(ast.IfNode)
		return callsTiming(d.Cond) || callsTiming(d.Then) || callsTiming(d.Else)
	case ast.While:
		d := n.Data.(ast.WhileNode)
		return callsTiming(d.Cond) || callsTiming(d.Body)
	case ast.Return:
		return callsTiming(n.Data.(ast.ReturnNode).Expr)
	case ast.Binary:
		d := n.Data.(ast.BinaryNode)
		return callsTiming(d.Left) || callsTiming(d.Right)
	case ast.LAnd, ast.LOr:
		d := n.Data.(ast.LogicNode)
		return callsTiming(d.Left) || callsTiming(d.Right)
	case ast.Unary:
		return callsTiming(n.Data.(ast.UnaryNode).Expr)
	}
	return false
}

// paramRefType returns the type the parameter's own local slot is
// allocated with: scalar params store an i32, pointer/array params
// store the decayed pointer value itself, so the slot type equals the
// parameter's declared type either way.
func paramRefType(paramType *koopa.Type) *koopa.Type { return paramType }
