package koopa

import "testing"

func TestParseSimpleFunction(t *testing.T) {
	src := `
fun @main(): i32 {
%entry:
  %0 = add 1, 2
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Funcs) != 1 {
		t.Fatalf("got %d funcs, want 1", len(prog.Funcs))
	}
	f := prog.Funcs[0]
	if f.Name != "@main" {
		t.Errorf("got name %q, want @main", f.Name)
	}
	if f.RetType != I32Type {
		t.Errorf("got ret type %v, want i32", f.RetType)
	}
	if len(f.Blocks) != 1 || len(f.Blocks[0].Insts) != 2 {
		t.Fatalf("got %d blocks, want 1 with 2 insts", len(f.Blocks))
	}
	add := f.Blocks[0].Insts[0]
	if add.Op != OpBinary || add.BinOp != "add" || add.Dst != "%0" {
		t.Errorf("unexpected first inst: %+v", add)
	}
	ret := f.Blocks[0].Insts[1]
	if ret.Op != OpRet || len(ret.Args) != 1 || ret.Args[0] != "%0" {
		t.Errorf("unexpected ret inst: %+v", ret)
	}
}

func TestParseBareRetNotConfusedWithNextDst(t *testing.T) {
	src := `
fun @f(): i32 {
%entry:
  ret
%unreached:
  %0 = add 1, 2
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := prog.Funcs[0]
	firstRet := f.Blocks[0].Insts[0]
	if firstRet.Op != OpRet || len(firstRet.Args) != 0 {
		t.Fatalf("bare ret should take no value, got %+v", firstRet)
	}
}

func TestParseGlobalArrayWithZeroinit(t *testing.T) {
	src := `global @a = alloc [i32, 3], zeroinit`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(prog.Globals))
	}
	g := prog.Globals[0]
	if g.Ty.Kind != Array || g.Ty.Len != 3 {
		t.Errorf("got type %v, want [i32, 3]", g.Ty)
	}
	if g.Init != "zeroinit" {
		t.Errorf("got init %v, want zeroinit", g.Init)
	}
}

func TestParseGlobalAggregateInit(t *testing.T) {
	src := `global @a = alloc [i32, 3], {1, 2, 3}`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	items, ok := prog.Globals[0].Init.([]Init)
	if !ok || len(items) != 3 {
		t.Fatalf("got init %#v, want 3-element aggregate", prog.Globals[0].Init)
	}
	for i, want := range []int32{1, 2, 3} {
		if items[i].(int32) != want {
			t.Errorf("item %d: got %v, want %d", i, items[i], want)
		}
	}
}

func TestParseLoadStoreGetElemPtr(t *testing.T) {
	src := `
fun @f(): i32 {
%entry:
  %0 = alloc [i32, 4]
  %1 = getelemptr %0, 2
  store 7, %1
  %2 = load %1
  ret %2
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	insts := prog.Funcs[0].Blocks[0].Insts
	if insts[0].Op != OpAlloc || insts[0].Ty.Kind != Array {
		t.Errorf("unexpected alloc: %+v", insts[0])
	}
	if insts[1].Op != OpGetElemPtr || insts[1].Args[0] != "%0" || insts[1].Args[1] != "2" {
		t.Errorf("unexpected getelemptr: %+v", insts[1])
	}
	if insts[2].Op != OpStore || insts[2].Args[0] != "7" || insts[2].Args[1] != "%1" {
		t.Errorf("unexpected store: %+v", insts[2])
	}
	if insts[3].Op != OpLoad || insts[3].Args[0] != "%1" {
		t.Errorf("unexpected load: %+v", insts[3])
	}
}

func TestParseCallWithArgs(t *testing.T) {
	src := `
fun @main(): i32 {
%entry:
  %0 = call @f(1, 2, 3)
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	call := prog.Funcs[0].Blocks[0].Insts[0]
	if call.Op != OpCall || call.Callee != "@f" || len(call.Args) != 3 {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestParseBranchAndJump(t *testing.T) {
	src := `
fun @main(): i32 {
%entry:
  br 1, %then, %else
%then:
  jump %end
%else:
  jump %end
%end:
  ret 0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := prog.Funcs[0]
	if len(f.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(f.Blocks))
	}
	br := f.Blocks[0].Insts[0]
	if br.Op != OpBranch || br.Labels[0] != "%then" || br.Labels[1] != "%else" {
		t.Errorf("unexpected branch: %+v", br)
	}
	jump := f.Blocks[1].Insts[0]
	if jump.Op != OpJump || jump.Labels[0] != "%end" {
		t.Errorf("unexpected jump: %+v", jump)
	}
}

func TestSizeOf(t *testing.T) {
	cases := []struct {
		ty   *Type
		want int
	}{
		{I32Type, 4},
		{PtrTo(I32Type), 4},
		{ArrayOf(I32Type, 3), 12},
		{ArrayOf(ArrayOf(I32Type, 3), 2), 24},
	}
	for _, c := range cases {
		if got := SizeOf(c.ty); got != c.want {
			t.Errorf("SizeOf(%v) = %d, want %d", c.ty, got, c.want)
		}
	}
}
