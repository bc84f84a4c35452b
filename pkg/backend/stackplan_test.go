package backend

import (
	"strings"
	"testing"

	"sysyc/pkg/koopa"
)

func mustParse(t *testing.T, src string) *koopa.RawProgram {
	t.Helper()
	prog, err := koopa.Parse(src)
	if err != nil {
		t.Fatalf("koopa.Parse: %v\nsource:\n%s", err, src)
	}
	return prog
}

func TestPlanFrameAlignment(t *testing.T) {
	srcs := []string{
		`fun @a(): i32 {
%entry:
  ret 0
}`,
		`fun @b(): i32 {
%entry:
  %0 = alloc i32
  store 1, %0
  %1 = load %0
  ret %1
}`,
		`fun @c(x: i32, y: i32, z: i32, w: i32, v: i32, u: i32, q: i32, r: i32, s: i32): i32 {
%entry:
  %0 = call @a()
  ret %0
}`,
	}
	for _, src := range srcs {
		prog := mustParse(t, src)
		p := plan(prog.Funcs[0])
		if p.Size()%16 != 0 {
			t.Errorf("frame size %d not 16-byte aligned for:\n%s", p.Size(), src)
		}
	}
}

func TestPlanCallSetsRSizeAndASize(t *testing.T) {
	src := `fun @f(a: i32, b: i32, c: i32, d: i32, e: i32, f: i32, g: i32, h: i32, i: i32, j: i32): i32 {
%entry:
  %0 = call @g(a, b, c, d, e, f, g, h, i, j)
  ret %0
}`
	prog := mustParse(t, src)
	p := plan(prog.Funcs[0])
	if p.RSize() != 4 {
		t.Errorf("got RSize %d, want 4 (function contains a call)", p.RSize())
	}
	// 10 args: 8 in registers, 2 overflow -> 8 bytes of outgoing-arg area.
	if p.ASize() != 8 {
		t.Errorf("got ASize %d, want 8", p.ASize())
	}
}

func TestPlanNoCallLeavesRSizeZero(t *testing.T) {
	src := `fun @f(): i32 {
%entry:
  %0 = add 1, 2
  ret %0
}`
	prog := mustParse(t, src)
	p := plan(prog.Funcs[0])
	if p.RSize() != 0 {
		t.Errorf("got RSize %d, want 0 (no call in function)", p.RSize())
	}
}

func TestPlanAllocSizedByPointeeNotFlatFour(t *testing.T) {
	// Spec-mandated divergence from the teacher's C++ planner, which
	// flatly assigns 4 bytes to every Alloc: here an array Alloc reserves
	// SizeOf(pointee), so a later Alloc's offset reflects the array's
	// true size rather than a constant 4.
	src := `fun @f(): i32 {
%entry:
  %0 = alloc [i32, 4]
  %1 = alloc i32
  ret %1
}`
	prog := mustParse(t, src)
	f := prog.Funcs[0]
	p := plan(f)
	arrInst, scalarInst := f.Blocks[0].Insts[0], f.Blocks[0].Insts[1]
	arrOff, _ := p.Offset(arrInst)
	scalarOff, _ := p.Offset(scalarInst)
	if scalarOff-arrOff != 16 {
		t.Errorf("got scalar offset %d - array offset %d = %d, want 16 (4 i32 elements)", scalarOff, arrOff, scalarOff-arrOff)
	}
}

func TestEmitLargeOffsetUsesScratchRegister(t *testing.T) {
	// Force a frame large enough that some slot's sp-relative offset
	// exceeds 2047, and confirm no direct "lw/sw r, NNNN(sp)" is ever
	// emitted for it -- spec §8's "large-offset discipline" property.
	var sb strings.Builder
	sb.WriteString("fun @f(): i32 {\n%entry:\n")
	for i := 0; i < 600; i++ {
		sb.WriteString("  %x" + itoaTest(i) + " = alloc [i32, 1]\n")
	}
	sb.WriteString("  %last = alloc i32\n")
	sb.WriteString("  store 1, %last\n")
	sb.WriteString("  %v = load %last\n")
	sb.WriteString("  ret %v\n}\n")

	prog := mustParse(t, sb.String())
	asm := Emit(prog)

	for _, line := range strings.Split(asm, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "lw") && !strings.HasPrefix(trimmed, "sw") {
			continue
		}
		if strings.Contains(trimmed, "(sp)") {
			// Extract the offset token before "(sp)" and ensure it's small.
			parenIdx := strings.Index(trimmed, "(sp)")
			fields := strings.Fields(trimmed[:parenIdx])
			offTok := fields[len(fields)-1]
			if n, ok := asInt(offTok); ok && (n > 2047 || n < -2048) {
				t.Errorf("direct out-of-range sp-relative access emitted: %q", trimmed)
			}
		}
	}
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
