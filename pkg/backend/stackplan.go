// Package backend lowers a parsed koopa.RawProgram (pkg/koopa's typed
// DAG) to RISC-V 32-bit assembly text, per spec.md §4.6/§4.7. It keeps
// the teacher's StackManager two-pass allocation strategy
// (original_source/src/include/riscv.hpp) but replaces its package-level
// singleton with a Plan value threaded explicitly per function.
package backend

import "sysyc/pkg/koopa"

// Plan is one function's stack frame layout: every instruction that
// produces a spillable value gets a fixed offset from sp, computed
// once before any instruction is emitted (spec §4.6's "spill
// everywhere" discipline -- no register allocation).
type Plan struct {
	offsets map[*koopa.Inst]int
	size    int
	rSize   int // 4 if this function contains any call, else 0
	aSize   int // bytes reserved for outgoing arguments beyond the first 8
}

func (p *Plan) Offset(inst *koopa.Inst) (int, bool) {
	off, ok := p.offsets[inst]
	return off, ok
}

func (p *Plan) Size() int  { return p.size }
func (p *Plan) RSize() int { return p.rSize }
func (p *Plan) ASize() int { return p.aSize }

// RAOffset returns the slot the return address is saved to, valid only
// when RSize() > 0: the last word of the frame.
func (p *Plan) RAOffset() int { return p.size - 4 }

// plan computes a function's frame layout in the two passes spec §4.6
// and the teacher's StackManager.alloc both use: first find R (any
// call present) and A (the widest outgoing-argument overflow), then
// walk every instruction in order assigning spill slots in the area
// above A.
func plan(f *koopa.RawFunc) *Plan {
	p := &Plan{offsets: make(map[*koopa.Inst]int)}

	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == koopa.OpCall {
				p.rSize = 4
				if n := len(inst.Args) - 8; n > 0 {
					if bytes := n * 4; bytes > p.aSize {
						p.aSize = bytes
					}
				}
			}
		}
	}

	s := 0
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			switch inst.Op {
			case koopa.OpAlloc:
				p.offsets[inst] = s + p.aSize
				s += koopa.SizeOf(inst.Ty)
			case koopa.OpLoad, koopa.OpBinary, koopa.OpGetPtr, koopa.OpGetElemPtr:
				p.offsets[inst] = s + p.aSize
				s += 4
			case koopa.OpCall:
				if inst.Dst != "" {
					p.offsets[inst] = s + p.aSize
					s += 4
				}
			}
		}
	}

	p.size = (s + p.rSize + p.aSize + 15) &^ 15
	return p
}
