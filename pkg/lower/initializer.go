package lower

import "sysyc/pkg/ast"

// suffixProducts returns suffix[i] = product(dims[i:]) for i in
// [0, len(dims)], with suffix[len(dims)] = 1 (the empty product).
func suffixProducts(dims []int32) []int32 {
	k := len(dims)
	suffix := make([]int32, k+1)
	suffix[k] = 1
	for i := k - 1; i >= 0; i-- {
		suffix[i] = dims[i] * suffix[i+1]
	}
	return suffix
}

func product(dims []int32) int32 {
	p := int32(1)
	for _, d := range dims {
		p *= d
	}
	return p
}

// flattenInit implements spec §4.4's brace-alignment rule: it flattens
// a (possibly nil) nested InitList into a length-Πdims slice of
// expression nodes, nil entries meaning "zero-fill".
func flattenInit(dims []int32, node *ast.Node) []*ast.Node {
	total := product(dims)
	out := make([]*ast.Node, total)
	if node == nil {
		return out
	}
	suffix := suffixProducts(dims)
	items := node.Data.(ast.InitListNode).Items
	fillItems(suffix, items, out, 0)
	return out
}

// fillItems places items starting at pos in out and returns the
// position just past the last slot it touched. A nested InitList
// aligns to the longest suffix-product that divides the current
// position and fits in the remaining space (spec §4.4); its own
// trailing slots within that span are left zero-filled.
func fillItems(suffix []int32, items []*ast.Node, out []*ast.Node, pos int) int {
	for _, item := range items {
		if item.Kind == ast.InitList {
			align := int(chooseAlignment(suffix, pos, len(out)))
			sub := item.Data.(ast.InitListNode).Items
			fillItems(suffix, sub, out, pos)
			pos += align
		} else {
			out[pos] = item
			pos++
		}
	}
	return pos
}

// chooseAlignment picks the longest trailing-product-of-inner-dims
// (excluding the full-array product itself) that divides pos evenly
// and does not overrun the remaining slots.
func chooseAlignment(suffix []int32, pos, total int) int32 {
	best := int32(1)
	for i := 1; i < len(suffix); i++ {
		c := int(suffix[i])
		if c <= total-pos && pos%c == 0 && suffix[i] > best {
			best = suffix[i]
		}
	}
	return best
}

// unflattenIndex converts a flat row-major offset back into per-
// dimension indices, for emitting the address of one scalar slot of a
// local array initializer.
func unflattenIndex(dims []int32, flat int) []int32 {
	suffix := suffixProducts(dims)
	idx := make([]int32, len(dims))
	for i := range dims {
		idx[i] = int32(flat) / suffix[i+1]
		flat = flat % int(suffix[i+1])
	}
	return idx
}
