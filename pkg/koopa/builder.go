package koopa

import (
	"fmt"
	"strings"
)

// Builder accumulates Koopa IR text. It knows how to format each
// instruction form from spec.md §6's intermediate contract but holds
// no naming or control-flow state of its own -- pkg/lower's Context
// owns nextID/hasJp/whileStk and decides WHAT to emit; Builder
// only knows HOW to print it.
type Builder struct {
	sb strings.Builder
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) String() string { return b.sb.String() }

func (b *Builder) raw(format string, args ...interface{}) {
	fmt.Fprintf(&b.sb, format, args...)
}

// --- Globals ---

func (b *Builder) GlobalScalar(name string, init string) {
	b.raw("global %s = alloc i32, %s\n", name, init)
}

func (b *Builder) GlobalArray(name string, ty *Type, init string) {
	b.raw("global %s = alloc %s, %s\n", name, ty.String(), init)
}

// --- Function framing ---

func (b *Builder) FuncBegin(name string, params []string, paramTypes []*Type, ret *Type) {
	var ps []string
	for i, p := range params {
		ps = append(ps, fmt.Sprintf("%s: %s", p, paramTypes[i].String()))
	}
	retStr := ""
	if ret.Kind != Void {
		retStr = ": " + ret.String()
	}
	b.raw("fun %s(%s)%s {\n", name, strings.Join(ps, ", "), retStr)
}

func (b *Builder) FuncEnd() { b.raw("}\n") }

func (b *Builder) Label(name string) { b.raw("%s:\n", name) }

// --- Instructions ---

func (b *Builder) Alloc(dst string, ty *Type) { b.raw("  %s = alloc %s\n", dst, ty.String()) }

func (b *Builder) Load(dst, src string) { b.raw("  %s = load %s\n", dst, src) }

func (b *Builder) Store(val, dst string) { b.raw("  store %s, %s\n", val, dst) }

func (b *Builder) GetElemPtr(dst, base, idx string) {
	b.raw("  %s = getelemptr %s, %s\n", dst, base, idx)
}

func (b *Builder) GetPtr(dst, base, idx string) {
	b.raw("  %s = getptr %s, %s\n", dst, base, idx)
}

func (b *Builder) Binary(dst, op, lhs, rhs string) {
	b.raw("  %s = %s %s, %s\n", dst, op, lhs, rhs)
}

func (b *Builder) Branch(cond, tLabel, fLabel string) {
	b.raw("  br %s, %s, %s\n", cond, tLabel, fLabel)
}

func (b *Builder) Jump(label string) { b.raw("  jump %s\n", label) }

func (b *Builder) Call(dst, fn string, args []string) {
	argStr := strings.Join(args, ", ")
	if dst == "" {
		b.raw("  call %s(%s)\n", fn, argStr)
	} else {
		b.raw("  %s = call %s(%s)\n", dst, fn, argStr)
	}
}

func (b *Builder) Ret(val string) {
	if val == "" {
		b.raw("  ret\n")
	} else {
		b.raw("  ret %s\n", val)
	}
}
