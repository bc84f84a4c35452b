package koopa

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenize splits Koopa IR text into atomic tokens: sigiled names
// (@global, %local), keywords/identifiers, integer literals, and
// single-character punctuation. Whitespace-tolerant per spec.md §6.
func tokenize(src string) []string {
	var toks []string
	r := []rune(src)
	n := len(r)
	for i := 0; i < n; {
		c := r[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '@' || c == '%':
			j := i + 1
			for j < n && (isIdentRune(r[j])) {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		case c == '-' && i+1 < n && isDigit(r[i+1]):
			j := i + 1
			for j < n && isDigit(r[j]) {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		case isDigit(c):
			j := i
			for j < n && isDigit(r[j]) {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		case isLetter(c):
			j := i
			for j < n && isIdentRune(r[j]) {
				j++
			}
			toks = append(toks, string(r[i:j]))
			i = j
		case c == '(' || c == ')' || c == '{' || c == '}' || c == '[' || c == ']' ||
			c == ':' || c == ',' || c == '=' || c == '*':
			toks = append(toks, string(c))
			i++
		default:
			i++ // ignore stray characters
		}
	}
	return toks
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' }
func isIdentRune(r rune) bool {
	return isLetter(r) || isDigit(r)
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(t string) error {
	got := p.next()
	if got != t {
		return fmt.Errorf("koopa: expected %q, got %q at token %d", t, got, p.pos-1)
	}
	return nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

// Parse turns Koopa IR text into a typed RawProgram, standing in for
// the external raw-IR builder's text-to-DAG step (spec.md §1).
func Parse(text string) (*RawProgram, error) {
	p := &parser{toks: tokenize(text)}
	prog := &RawProgram{globalTypes: map[string]*Type{}}

	for !p.atEnd() {
		switch p.peek() {
		case "global":
			g, err := p.parseGlobal()
			if err != nil {
				return nil, err
			}
			prog.Globals = append(prog.Globals, g)
			prog.globalTypes[g.Name] = g.Ty
		case "fun":
			f, err := p.parseFunc(prog)
			if err != nil {
				return nil, err
			}
			prog.Funcs = append(prog.Funcs, f)
		default:
			return nil, fmt.Errorf("koopa: unexpected top-level token %q", p.peek())
		}
	}
	return prog, nil
}

func (p *parser) parseType() (*Type, error) {
	switch p.peek() {
	case "i32":
		p.next()
		return I32Type, nil
	case "*":
		p.next()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return PtrTo(elem), nil
	case "[":
		p.next()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(p.next())
		if err != nil {
			return nil, fmt.Errorf("koopa: bad array length: %w", err)
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return ArrayOf(elem, n), nil
	}
	return nil, fmt.Errorf("koopa: expected type, got %q", p.peek())
}

func (p *parser) parseInit() (Init, error) {
	if p.peek() == "zeroinit" {
		p.next()
		return "zeroinit", nil
	}
	if p.peek() == "{" {
		p.next()
		var items []Init
		for p.peek() != "}" {
			it, err := p.parseInit()
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			if p.peek() == "," {
				p.next()
			}
		}
		p.next() // "}"
		return items, nil
	}
	v, err := strconv.Atoi(p.next())
	if err != nil {
		return nil, fmt.Errorf("koopa: bad init literal: %w", err)
	}
	return int32(v), nil
}

func (p *parser) parseGlobal() (*RawGlobal, error) {
	p.next() // "global"
	name := p.next()
	if err := p.expect("="); err != nil {
		return nil, err
	}
	if err := p.expect("alloc"); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	init, err := p.parseInit()
	if err != nil {
		return nil, err
	}
	return &RawGlobal{Name: name, Ty: ty, Init: init}, nil
}

func (p *parser) parseFunc(prog *RawProgram) (*RawFunc, error) {
	p.next() // "fun"
	name := p.next()
	f := &RawFunc{Name: name, ValueTypes: map[string]*Type{}}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	for p.peek() != ")" {
		pname := p.next()
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f.ParamNames = append(f.ParamNames, pname)
		f.ParamTypes = append(f.ParamTypes, ty)
		f.ValueTypes[pname] = ty
		if p.peek() == "," {
			p.next()
		}
	}
	p.next() // ")"

	f.RetType = VoidType
	if p.peek() == ":" {
		p.next()
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f.RetType = ty
	}

	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for p.peek() != "}" {
		blk, err := p.parseBlock(prog, f)
		if err != nil {
			return nil, err
		}
		f.Blocks = append(f.Blocks, blk)
	}
	p.next() // "}"
	return f, nil
}

// isLabelAhead reports whether tokens at pos form "name :" (a block
// label), distinguishing it from an instruction starting with "name =".
func (p *parser) isLabelAhead() bool {
	return p.pos+1 < len(p.toks) && p.toks[p.pos+1] == ":"
}

func (p *parser) parseBlock(prog *RawProgram, f *RawFunc) (*RawBlock, error) {
	label := p.next()
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	blk := &RawBlock{Label: label}
	for !p.atEnd() && !p.isLabelAhead() && p.peek() != "}" {
		inst, err := p.parseInst(prog, f)
		if err != nil {
			return nil, err
		}
		blk.Insts = append(blk.Insts, inst)
	}
	return blk, nil
}

func (p *parser) typeOf(prog *RawProgram, f *RawFunc, operand string) *Type {
	if strings.HasPrefix(operand, "@") {
		return PtrTo(prog.TypeOfGlobal(operand))
	}
	if strings.HasPrefix(operand, "%") {
		return f.ValueTypes[operand]
	}
	return I32Type // literal
}

func (p *parser) parseInst(prog *RawProgram, f *RawFunc) (*Inst, error) {
	dst := ""
	if strings.HasPrefix(p.peek(), "%") && p.pos+1 < len(p.toks) && p.toks[p.pos+1] == "=" {
		dst = p.next()
		p.next() // "="
	}

	op := p.next()
	inst := &Inst{Dst: dst}

	if isBinOp(op) {
		lhs := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		rhs := p.next()
		inst.Op, inst.BinOp, inst.Args = OpBinary, op, []string{lhs, rhs}
		inst.Ty = I32Type
		f.ValueTypes[dst] = I32Type
		return inst, nil
	}

	switch op {
	case "alloc":
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		inst.Op, inst.Ty = OpAlloc, ty
		f.ValueTypes[dst] = PtrTo(ty)

	case "load":
		src := p.next()
		inst.Op, inst.Args = OpLoad, []string{src}
		srcTy := p.typeOf(prog, f, src)
		if srcTy != nil && srcTy.Kind == Ptr {
			inst.Ty = srcTy.Elem
		} else {
			inst.Ty = I32Type
		}
		f.ValueTypes[dst] = inst.Ty

	case "store":
		val := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		dstPtr := p.next()
		inst.Op, inst.Args = OpStore, []string{val, dstPtr}

	case "getelemptr":
		base := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		idx := p.next()
		inst.Op, inst.Args = OpGetElemPtr, []string{base, idx}
		baseTy := p.typeOf(prog, f, base)
		elemTy := I32Type
		if baseTy != nil && baseTy.Kind == Ptr && baseTy.Elem != nil && baseTy.Elem.Kind == Array {
			elemTy = baseTy.Elem.Elem
		}
		inst.Ty = PtrTo(elemTy)
		f.ValueTypes[dst] = inst.Ty

	case "getptr":
		base := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		idx := p.next()
		inst.Op, inst.Args = OpGetPtr, []string{base, idx}
		baseTy := p.typeOf(prog, f, base)
		if baseTy == nil {
			baseTy = PtrTo(I32Type)
		}
		inst.Ty = baseTy
		f.ValueTypes[dst] = inst.Ty

	case "br":
		cond := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		tLabel := p.next()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		fLabel := p.next()
		inst.Op, inst.Args, inst.Labels = OpBranch, []string{cond}, []string{tLabel, fLabel}

	case "jump":
		target := p.next()
		inst.Op, inst.Labels = OpJump, []string{target}

	case "call":
		callee := p.next()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var args []string
		for p.peek() != ")" {
			args = append(args, p.next())
			if p.peek() == "," {
				p.next()
			}
		}
		p.next() // ")"
		inst.Op, inst.Callee, inst.Args = OpCall, callee, args
		if dst != "" {
			inst.Ty = I32Type
			f.ValueTypes[dst] = I32Type
		}

	case "ret":
		inst.Op = OpRet
		// A value is present unless what follows is the start of the
		// next instruction (a "%name =" assignment or a dst-less
		// opcode keyword) or the block/function has ended.
		nextIsDst := strings.HasPrefix(p.peek(), "%") && p.pos+1 < len(p.toks) && p.toks[p.pos+1] == "="
		if !p.atEnd() && !p.isLabelAhead() && p.peek() != "}" && !nextIsDst && !isOpKeyword(p.peek()) {
			inst.Args = []string{p.next()}
		}

	default:
		return nil, fmt.Errorf("koopa: unknown instruction opcode %q", op)
	}

	return inst, nil
}

var binOps = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true, "mod": true,
	"lt": true, "gt": true, "le": true, "ge": true, "eq": true, "ne": true,
}

func isBinOp(op string) bool { return binOps[op] }

var opKeywords = map[string]bool{
	"alloc": true, "load": true, "store": true,
	"getelemptr": true, "getptr": true,
	"br": true, "jump": true, "call": true, "ret": true,
}

func isOpKeyword(s string) bool { return binOps[s] || opKeywords[s] }
