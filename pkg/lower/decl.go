package lower

import (
	"sysyc/pkg/ast"
	"sysyc/pkg/koopa"
	"sysyc/pkg/symtab"
)

// lowerGlobalDecl lowers one ConstDecl/VarDecl at file scope.
func (c *Context) lowerGlobalDecl(n *ast.Node) {
	d := n.Data.(ast.DeclNode)
	dims := c.evalDims(d.Dims)
	irName := "@" + d.Name

	if len(dims) == 0 {
		if n.Kind == ast.ConstDecl {
			c.syms.Insert(d.Name, symtab.Symbol{Tag: symtab.TagConst, ConstVal: c.ConstExpr(d.Init)})
			return
		}
		init := "zeroinit"
		if d.Init != nil {
			init = itoa(c.ConstExpr(d.Init))
		}
		c.b.GlobalScalar(irName, init)
		c.syms.Insert(d.Name, symtab.Symbol{Tag: symtab.TagVar, IRName: irName})
		return
	}

	flat := flattenInit(dims, d.Init)
	elems := make([]int32, len(flat))
	allZero := true
	for i, e := range flat {
		if e != nil {
			elems[i] = c.ConstExpr(e)
			if elems[i] != 0 {
				allZero = false
			}
		}
	}
	ty := arrayType(dims)
	init := "zeroinit"
	if !allZero {
		init = buildAggregateText(dims, elems)
	}
	c.b.GlobalArray(irName, ty, init)

	sym := symtab.Symbol{Tag: symtab.TagArray, IRName: irName, Dims: dims}
	if n.Kind == ast.ConstDecl {
		sym.ConstElems = elems
	}
	c.syms.Insert(d.Name, sym)
}

// lowerLocalDecl lowers one ConstDecl/VarDecl inside a function body.
func (c *Context) lowerLocalDecl(n *ast.Node) {
	d := n.Data.(ast.DeclNode)
	dims := c.evalDims(d.Dims)

	if len(dims) == 0 {
		if n.Kind == ast.ConstDecl {
			c.syms.Insert(d.Name, symtab.Symbol{Tag: symtab.TagConst, ConstVal: c.ConstExpr(d.Init)})
			return
		}
		slot := c.label(d.Name, c.fresh())
		c.b.Alloc(slot, koopa.I32Type)
		c.syms.Insert(d.Name, symtab.Symbol{Tag: symtab.TagVar, IRName: slot})
		if d.Init != nil {
			val := c.lowerExpr(d.Init)
			c.b.Store(val.Operand(), slot)
		}
		return
	}

	slot := c.label(d.Name, c.fresh())
	ty := arrayType(dims)
	c.b.Alloc(slot, ty)
	sym := symtab.Symbol{Tag: symtab.TagArray, IRName: slot, Dims: dims}
	c.syms.Insert(d.Name, sym)

	flat := flattenInit(dims, d.Init)
	for i, e := range flat {
		var val Value
		if e != nil {
			val = c.lowerExpr(e)
		} else {
			val = ConstVal(0)
		}
		addr := c.emitElementAddr(slot, dims, unflattenIndex(dims, i))
		c.b.Store(val.Operand(), addr)
	}

	if n.Kind == ast.ConstDecl {
		elems := make([]int32, len(flat))
		for i, e := range flat {
			if e != nil {
				elems[i] = c.ConstExpr(e)
			}
		}
		sym.ConstElems = elems
		c.syms.Insert(d.Name, sym)
	}
}

// emitElementAddr emits a chain of getelemptr instructions addressing
// the scalar at the given multi-dimensional index within a local
// array slot, used while materializing initializer stores.
func (c *Context) emitElementAddr(base string, dims []int32, idx []int32) string {
	cur := base
	for _, i := range idx {
		dst := c.freshName()
		c.b.GetElemPtr(dst, cur, itoa(i))
		cur = dst
	}
	return cur
}

func (c *Context) evalDims(dimNodes []*ast.Node) []int32 {
	dims := make([]int32, len(dimNodes))
	for i, n := range dimNodes {
		dims[i] = c.ConstExpr(n)
	}
	return dims
}

func arrayType(dims []int32) *koopa.Type {
	ty := koopa.I32Type
	for i := len(dims) - 1; i >= 0; i-- {
		ty = koopa.ArrayOf(ty, int(dims[i]))
	}
	return ty
}

// buildAggregateText renders a flattened element vector as a nested
// Koopa aggregate literal matching dims' shape, per spec §4.4/§4.6.
func buildAggregateText(dims []int32, elems []int32) string {
	if len(dims) == 0 {
		return itoa(elems[0])
	}
	n := int(dims[0])
	stride := len(elems) / n
	s := "{"
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ", "
		}
		s += buildAggregateText(dims[1:], elems[i*stride:(i+1)*stride])
	}
	return s + "}"
}
