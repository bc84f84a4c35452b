package symtab

import "testing"

func TestNewTablePreloadsRuntimeLibrary(t *testing.T) {
	tbl := NewTable()
	for name, wantVoid := range map[string]bool{
		"getint": false, "getch": false, "getarray": false,
		"putint": true, "putch": true, "putarray": true,
		"starttime": true, "stoptime": true,
	} {
		sym, ok := tbl.Lookup(name)
		if !ok {
			t.Fatalf("runtime symbol %q not preloaded", name)
		}
		if sym.Tag != TagFunc {
			t.Errorf("%q: got tag %v, want TagFunc", name, sym.Tag)
		}
		if sym.IsVoid != wantVoid {
			t.Errorf("%q: got IsVoid=%v, want %v", name, sym.IsVoid, wantVoid)
		}
		if sym.IRName != "@"+name {
			t.Errorf("%q: got IRName %q, want %q", name, sym.IRName, "@"+name)
		}
	}
}

func TestScopeShadowing(t *testing.T) {
	tbl := NewTable()
	tbl.Insert("x", Symbol{Tag: TagVar, IRName: "@x_outer"})

	tbl.Push()
	tbl.Insert("x", Symbol{Tag: TagVar, IRName: "@x_inner"})
	sym, ok := tbl.Lookup("x")
	if !ok || sym.IRName != "@x_inner" {
		t.Fatalf("inner scope lookup: got %+v, ok=%v, want @x_inner", sym, ok)
	}
	tbl.Pop()

	sym, ok = tbl.Lookup("x")
	if !ok || sym.IRName != "@x_outer" {
		t.Fatalf("after pop: got %+v, ok=%v, want @x_outer", sym, ok)
	}
}

func TestLookupMissingName(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.Lookup("never_declared"); ok {
		t.Fatal("expected lookup miss for undeclared name")
	}
}

func TestInGlobalScopeAndDepth(t *testing.T) {
	tbl := NewTable()
	if !tbl.InGlobalScope() {
		t.Fatal("fresh table should be at global scope")
	}
	if tbl.Depth() != 1 {
		t.Fatalf("got depth %d, want 1", tbl.Depth())
	}
	tbl.Push()
	if tbl.InGlobalScope() {
		t.Fatal("after Push, should no longer be at global scope")
	}
	if tbl.Depth() != 2 {
		t.Fatalf("got depth %d, want 2", tbl.Depth())
	}
}
