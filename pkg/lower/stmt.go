package lower

import (
	"sysyc/pkg/ast"
	"sysyc/pkg/util"
)

// lowerStmt lowers one statement or declaration, honoring spec §4.3's
// dead-code rule: if has_jp is already set, nothing is emitted.
func (c *Context) lowerStmt(n *ast.Node) {
	if !c.emitted() {
		return
	}
	switch n.Kind {
	case ast.DeclGroup:
		for _, d := range n.Data.(ast.BlockNode).Stmts {
			c.lowerLocalDecl(d)
		}
	case ast.Block:
		c.syms.Push()
		for _, s := range n.Data.(ast.BlockNode).Stmts {
			c.lowerStmt(s)
		}
		c.syms.Pop()
	case ast.ExprStmt:
		expr := n.Data.(ast.ExprStmtNode).Expr
		if expr != nil {
			c.lowerExpr(expr)
		}
	case ast.AssignStmt:
		c.lowerAssign(n)
	case ast.If:
		c.lowerIf(n)
	case ast.While:
		c.lowerWhile(n)
	case ast.Break:
		c.lowerBreak(n)
	case ast.Continue:
		c.lowerContinue(n)
	case ast.Return:
		c.lowerReturn(n)
	default:
		util.Error(n.Tok, "internal: unexpected statement kind")
	}
}

func (c *Context) lowerAssign(n *ast.Node) {
	d := n.Data.(ast.AssignStmtNode)
	slot := c.lowerLValAddr(d.LVal)
	rhs := c.lowerExpr(d.Rhs)
	c.b.Store(rhs.Operand(), slot)
}

// lowerIf implements spec §4.3's If lowering verbatim. A constant
// condition still emits a `br` on the literal, and both arms are
// lowered.
func (c *Context) lowerIf(n *ast.Node) {
	d := n.Data.(ast.IfNode)
	k := c.fresh()
	cond := c.lowerExpr(d.Cond)

	thenL := c.label("then", k)
	endL := c.label("if_end", k)
	elseL := endL
	if d.Else != nil {
		elseL = c.label("else", k)
	}
	c.b.Branch(cond.Operand(), thenL, elseL)

	c.enterBlock(thenL)
	c.lowerStmt(d.Then)
	if c.emitted() {
		c.b.Jump(endL)
		c.hasJp = true
	}

	if d.Else != nil {
		c.enterBlock(elseL)
		c.lowerStmt(d.Else)
		if c.emitted() {
			c.b.Jump(endL)
			c.hasJp = true
		}
	}

	c.enterBlock(endL)
}

// lowerWhile implements spec §4.3's While lowering, pushing/popping
// while_stack around the body for break/continue targets.
func (c *Context) lowerWhile(n *ast.Node) {
	d := n.Data.(ast.WhileNode)
	k := c.fresh()
	entryL := c.label("while_entry", k)
	bodyL := c.label("while_body", k)
	endL := c.label("while_end", k)

	c.b.Jump(entryL)
	c.hasJp = true
	c.enterBlock(entryL)
	cond := c.lowerExpr(d.Cond)
	c.b.Branch(cond.Operand(), bodyL, endL)
	c.hasJp = true

	c.whileStk = append(c.whileStk, k)
	c.enterBlock(bodyL)
	c.lowerStmt(d.Body)
	if c.emitted() {
		c.b.Jump(entryL)
		c.hasJp = true
	}
	c.whileStk = c.whileStk[:len(c.whileStk)-1]

	c.enterBlock(endL)
}

func (c *Context) lowerBreak(n *ast.Node) {
	if len(c.whileStk) == 0 {
		util.Error(n.Tok, "'break' outside of a loop")
	}
	k := c.whileStk[len(c.whileStk)-1]
	c.b.Jump(c.label("while_end", k))
	c.hasJp = true
}

func (c *Context) lowerContinue(n *ast.Node) {
	if len(c.whileStk) == 0 {
		util.Error(n.Tok, "'continue' outside of a loop")
	}
	k := c.whileStk[len(c.whileStk)-1]
	c.b.Jump(c.label("while_entry", k))
	c.hasJp = true
}

func (c *Context) lowerReturn(n *ast.Node) {
	d := n.Data.(ast.ReturnNode)
	if d.Expr == nil {
		c.b.Ret("")
	} else {
		v := c.lowerExpr(d.Expr)
		c.b.Ret(v.Operand())
	}
	c.hasJp = true
}
