// Package util holds source-position-aware diagnostics shared across
// the compiler's stages.
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"sysyc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single input file,
// kept around only so error messages can quote the offending line.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source text used by subsequent Error calls.
func SetSourceFiles(files []SourceFileRecord) { sourceFiles = files }

var colorEnabled = isatty.IsTerminal(os.Stderr.Fd())

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<unknown>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

func printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}
	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	fmt.Fprintf(os.Stderr, "  %s\n", string(content[lineStart:lineEnd]))
	caret := strings.Repeat(" ", tok.Column-1) + "^" + strings.Repeat("~", max(tok.Len-1, 0))
	if colorEnabled {
		fmt.Fprintf(os.Stderr, "  \033[32m%s\033[0m\n", caret)
	} else {
		fmt.Fprintf(os.Stderr, "  %s\n", caret)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Error reports a fatal contract violation (§7 class 1) and terminates.
// The source program is assumed semantically valid; reaching this means
// the lexer, parser or lowerer met input it cannot handle. A rejection
// of the generated IR by koopa.Parse is not reported here: the driver
// receives it as a returned error.
func Error(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	label := "error:"
	if colorEnabled {
		label = "\033[31merror:\033[0m"
	}
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %s ", filename, line, col, label)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printErrorLine(tok)
	os.Exit(1)
}

// Fatalf reports an internal error with no source position (I/O, backend
// parse failure) and terminates.
func Fatalf(format string, args ...interface{}) {
	label := "error:"
	if colorEnabled {
		label = "\033[31merror:\033[0m"
	}
	fmt.Fprintf(os.Stderr, "sysyc: %s ", label)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}
