package lower

import (
	"strings"
	"testing"

	"sysyc/pkg/ast"
	"sysyc/pkg/lexer"
	"sysyc/pkg/parser"
	"sysyc/pkg/token"
)

func parseSrc(t *testing.T, src string) *ast.Node {
	t.Helper()
	runes := []rune(src)
	l := lexer.NewLexer(runes, 0)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return parser.NewParser(toks).Parse()
}

func TestLowerConstantFoldsArithmetic(t *testing.T) {
	ir := Lower(parseSrc(t, "int main() { return 2 * 3 + 1; }"))
	if strings.Contains(ir, "mul") || strings.Contains(ir, "add") {
		t.Errorf("expected constant-only expression to fold entirely, got:\n%s", ir)
	}
	if !strings.Contains(ir, "ret 7") {
		t.Errorf("expected `ret 7`, got:\n%s", ir)
	}
}

func TestLowerConstantFoldsDivAndMod(t *testing.T) {
	ir := Lower(parseSrc(t, "int main() { return 17 / 5 + 17 % 5; }"))
	if !strings.Contains(ir, "ret 5") {
		t.Errorf("expected 17/5=3 and 17%%5=2 folded to `ret 5`, got:\n%s", ir)
	}
}

func TestLowerShortCircuitAndSkipsRHSOnFalseLHS(t *testing.T) {
	src := `
int f() { return 1; }
int main() {
  int x = 0;
  int y = x != 0 && f() != 0;
  return y;
}
`
	ir := Lower(parseSrc(t, src))
	lines := strings.Split(ir, "\n")
	callLine, brLine := -1, -1
	for i, l := range lines {
		if strings.Contains(l, "call @f") && callLine == -1 {
			callLine = i
		}
		if strings.Contains(l, "br ") && brLine == -1 {
			brLine = i
		}
	}
	if callLine == -1 {
		t.Fatalf("expected a call to f somewhere in IR:\n%s", ir)
	}
	if brLine == -1 || callLine < brLine {
		t.Errorf("expected f()'s call guarded behind a branch (short-circuit), got IR:\n%s", ir)
	}
}

func TestLowerShortCircuitOrSkipsRHSOnTrueLHS(t *testing.T) {
	src := `
int f() { return 1; }
int main() {
  int x = 1;
  int y = x != 0 || f() != 0;
  return y;
}
`
	ir := Lower(parseSrc(t, src))
	lines := strings.Split(ir, "\n")
	callLine, brLine := -1, -1
	for i, l := range lines {
		if strings.Contains(l, "call @f") && callLine == -1 {
			callLine = i
		}
		if strings.Contains(l, "br ") && brLine == -1 {
			brLine = i
		}
	}
	if callLine == -1 {
		t.Fatalf("expected a call to f somewhere in IR:\n%s", ir)
	}
	if brLine == -1 || callLine < brLine {
		t.Errorf("expected f()'s call guarded behind a branch (short-circuit), got IR:\n%s", ir)
	}
}

func TestLowerWhileLoopStructure(t *testing.T) {
	src := `
int main() {
  int i = 0;
  int s = 0;
  while (i < 10) {
    s = s + i;
    i = i + 1;
  }
  return s;
}
`
	ir := Lower(parseSrc(t, src))
	for _, want := range []string{"br ", "jump "} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected while-loop lowering to contain %q, got IR:\n%s", want, ir)
		}
	}
}

func TestLowerBreakAndContinueTargetEnclosingWhile(t *testing.T) {
	src := `
int main() {
  int i = 0;
  while (i < 10) {
    i = i + 1;
    if (i == 5) {
      break;
    }
    if (i == 3) {
      continue;
    }
  }
  return i;
}
`
	// Must not panic: break/continue need the threaded while-stack
	// (spec §9's Context.while_stack) to resolve their jump targets.
	ir := Lower(parseSrc(t, src))
	if !strings.Contains(ir, "jump") {
		t.Errorf("expected break/continue to lower to jumps, got IR:\n%s", ir)
	}
}

func TestLowerGlobalArrayBraceAlignment(t *testing.T) {
	// spec §4.4's brace-alignment example: {1,2,3,4,{5},{6},{7,8}} over
	// dims [2][3][4] flattens to 1,2,3,4, 5,0,0,0, 6,0,0,0, 7,8,0,0 and
	// zeros after that: each braced sub-list starts on the longest inner
	// suffix-product that divides the current position.
	src := `
int a[2][3][4] = {1, 2, 3, 4, {5}, {6}, {7, 8}};
int main() { return a[0][0][0]; }
`
	ir := Lower(parseSrc(t, src))
	for _, want := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		if !strings.Contains(ir, want) {
			t.Errorf("expected flattened initializer to contain %q, got IR:\n%s", want, ir)
		}
	}
}

func TestLowerGlobalArrayZeroTailIsZeroFilled(t *testing.T) {
	ir := Lower(parseSrc(t, "int a[4] = {1}; int main() { return a[0]; }"))
	if !strings.Contains(ir, "zeroinit") && !strings.Contains(ir, "0") {
		t.Errorf("expected the unfilled tail to be zero-initialized, got IR:\n%s", ir)
	}
}

func TestLowerEmitsWellFormedSSANames(t *testing.T) {
	src := `
int main() {
  int a = 1;
  int b = 2;
  int c = a + b;
  int d = a + b;
  return c + d;
}
`
	ir := Lower(parseSrc(t, src))
	seen := map[string]bool{}
	for _, tok := range strings.Fields(ir) {
		if strings.HasPrefix(tok, "%") && strings.HasSuffix(tok, "=") == false {
			name := strings.TrimSuffix(tok, ",")
			if strings.Contains(name, "%") && len(name) > 1 {
				if _, isNum := parseDigits(name[1:]); isNum {
					if seen[name] {
						// repetition is fine for uses; only definitions must be unique,
						// which the SSA counter already guarantees structurally. This
						// loop is a smoke check that names are well-formed, not a
						// uniqueness proof.
						continue
					}
					seen[name] = true
				}
			}
		}
	}
	if len(seen) == 0 {
		t.Fatalf("expected some %%N-named SSA values in IR:\n%s", ir)
	}
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func TestLowerPerfAutoWrapsMainBody(t *testing.T) {
	// main's body must fall through (no explicit return) for stoptime's
	// insertion point -- guarded by "!c.hasJp" after lowering the body --
	// to still be live; see the known-limitation test below for the case
	// where it isn't.
	ir := LowerPerf(parseSrc(t, "int main() { int x = 0; }"))
	if !strings.Contains(ir, "call @starttime") || !strings.Contains(ir, "call @stoptime") {
		t.Errorf("expected -perf mode to auto-wrap main in starttime/stoptime calls, got IR:\n%s", ir)
	}
}

func TestLowerPerfKnownLimitationSkipsStopTimeOnExplicitReturn(t *testing.T) {
	// An explicit `return` sets hasJp before the post-body wrap check
	// runs, so stoptime's auto-insertion is skipped on that path. This
	// documents the accepted limitation rather than asserting the
	// (more convenient but unimplemented) behavior.
	ir := LowerPerf(parseSrc(t, "int main() { return 0; }"))
	if !strings.Contains(ir, "call @starttime") {
		t.Errorf("expected starttime to still be inserted, got IR:\n%s", ir)
	}
	if strings.Contains(ir, "call @stoptime") {
		t.Errorf("expected stoptime to be skipped on this explicit-return path (known limitation), got IR:\n%s", ir)
	}
}

func TestLowerPerfDoesNotDoubleWrapExplicitCalls(t *testing.T) {
	src := `
int main() {
  starttime();
  stoptime();
  return 0;
}
`
	ir := LowerPerf(parseSrc(t, src))
	if strings.Count(ir, "call @starttime") != 1 {
		t.Errorf("expected exactly one starttime call when main already calls it, got IR:\n%s", ir)
	}
}

func TestLowerFuncCallWithArgs(t *testing.T) {
	src := `
int add(int a, int b) { return a + b; }
int main() { return add(1, 2); }
`
	// add isn't main, so it lowers to a disambiguated IR name (@add_0);
	// only the argument list is asserted on literally.
	ir := Lower(parseSrc(t, src))
	if !strings.Contains(ir, "call @add_") || !strings.Contains(ir, "(1, 2)") {
		t.Errorf("expected a call @add_N(1, 2), got IR:\n%s", ir)
	}
}
