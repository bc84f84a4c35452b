// Command sysyc compiles a SysY translation unit to Koopa IR text or
// RISC-V 32 assembly, per spec.md §6's CLI contract. It wires the
// lexer/parser/lower/koopa/backend pipeline together the way the
// teacher's cmd/gbc wires lexer/parser/codegen/backend, trimmed to a
// single fixed target instead of a pluggable one.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goforj/godump"
	"github.com/google/uuid"
	strftime "github.com/ncruces/go-strftime"

	"sysyc/pkg/backend"
	"sysyc/pkg/cli"
	"sysyc/pkg/config"
	"sysyc/pkg/koopa"
	"sysyc/pkg/lexer"
	"sysyc/pkg/lower"
	"sysyc/pkg/parser"
	"sysyc/pkg/token"
	"sysyc/pkg/util"
)

func main() {
	app := cli.NewApp("sysyc")
	app.Synopsis = "<-koopa|-riscv|-perf> <input.sy> -o <output>"
	app.Description = "A whole-program compiler for SysY, lowering to Koopa IR and RISC-V 32 assembly."
	app.Authors = []string{"sysyc contributors"}
	app.Since = 2026

	var (
		outFile   string
		koopaMode bool
		riscvMode bool
		perfMode  bool
		dumpRaw   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.Bool(&koopaMode, "koopa", "", false, "Emit Koopa IR text and stop.")
	fs.Bool(&riscvMode, "riscv", "", false, "Emit RISC-V 32 assembly.")
	fs.Bool(&perfMode, "perf", "", false, "Emit RISC-V 32 assembly with -perf timing instrumentation.")
	fs.Bool(&dumpRaw, "dump-raw", "d", false, "Dump the parsed typed IR instead of emitting asm.")

	cfg := config.NewConfig()

	app.Action = func(args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one input file, got %d", len(args))
		}
		modeCount := 0
		for _, m := range []bool{koopaMode, riscvMode, perfMode} {
			if m {
				modeCount++
			}
		}
		if modeCount != 1 {
			return fmt.Errorf("exactly one of -koopa, -riscv, -perf must be given")
		}
		if outFile == "" {
			return fmt.Errorf("-o <output> is required")
		}
		cfg.PerfMode = perfMode
		cfg.DumpRaw = dumpRaw

		runID := ""
		var t0 time.Time
		if perfMode {
			runID = uuid.New().String()
			t0 = time.Now()
			fmt.Fprintf(os.Stderr, "[perf %s] %s start\n", runID, strftime.Format("%Y-%m-%d %H:%M:%S", t0))
		}

		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not read %q: %w", args[0], err)
		}
		runes := []rune(string(src))
		util.SetSourceFiles([]util.SourceFileRecord{{Name: args[0], Content: runes}})

		l := lexer.NewLexer(runes, 0)
		var toks []token.Token
		for {
			tok := l.Next()
			toks = append(toks, tok)
			if tok.Type == token.EOF {
				break
			}
		}
		logPhase(perfMode, runID, &t0, "lex")

		p := parser.NewParser(toks)
		root := p.Parse()
		logPhase(perfMode, runID, &t0, "parse")

		var koopaText string
		if perfMode {
			koopaText = lower.LowerPerf(root)
		} else {
			koopaText = lower.Lower(root)
		}
		logPhase(perfMode, runID, &t0, "lower")

		if koopaMode {
			return os.WriteFile(outFile, []byte(koopaText), 0644)
		}

		prog, err := koopa.Parse(koopaText)
		if err != nil {
			return fmt.Errorf("raw-IR builder rejected generated Koopa text: %w", err)
		}
		logPhase(perfMode, runID, &t0, "parse-raw-ir")

		if dumpRaw {
			godump.Dump(prog)
			return nil
		}

		asm := backend.Emit(prog)
		if perfMode {
			asm = fmt.Sprintf("# sysyc -perf run %s\n", runID) + asm
		}
		logPhase(perfMode, runID, &t0, "emit")

		return os.WriteFile(outFile, []byte(asm), 0644)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logPhase(perf bool, runID string, t0 *time.Time, phase string) {
	if !perf {
		return
	}
	now := time.Now()
	fmt.Fprintf(os.Stderr, "[perf %s] %s %s (+%s)\n", runID, strftime.Format("%Y-%m-%d %H:%M:%S", now), phase, now.Sub(*t0))
}
