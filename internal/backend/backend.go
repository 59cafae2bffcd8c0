// Package backend holds the code generators that turn a preprocessed
// AST into target source. The emitter may trust the preprocessor
// contract: every expression is typed, stdlib calls carry canonical
// names, field sugar is lowered, positional struct inits are named, and
// shadowed variables carry emit names.
package backend

import (
	"fmt"
	"strings"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/semantic"
	"github.com/oxhq/a7c/internal/stdlib"
	"github.com/oxhq/a7c/internal/symtab"
)

// CodeGenerator is the interface every backend implements.
type CodeGenerator interface {
	// FileExtension is the extension of generated files (".zig").
	FileExtension() string
	// LanguageName is the human-readable target name.
	LanguageName() string
	// Generate walks the preprocessed AST and returns target source.
	Generate(root *ast.Node, typeMap semantic.TypeMap, table *symtab.Table) (string, error)
}

// Get returns the backend registered under name.
func Get(name string, registry *stdlib.Registry) (CodeGenerator, error) {
	switch name {
	case "zig", "":
		return NewZigGenerator(registry), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// writer accumulates generated code with automatic indentation at the
// start of each line.
type writer struct {
	b      strings.Builder
	indent int
	atLine bool // at start of a line
}

func newWriter() *writer {
	return &writer{atLine: true}
}

func (w *writer) write(text string) {
	if text == "" {
		return
	}
	if w.atLine && text != "\n" {
		w.b.WriteString(strings.Repeat("    ", w.indent))
	}
	w.b.WriteString(text)
	w.atLine = strings.HasSuffix(text, "\n")
}

func (w *writer) writef(format string, args ...any) {
	w.write(fmt.Sprintf(format, args...))
}

func (w *writer) line(text string) {
	w.write(text)
	w.write("\n")
}

func (w *writer) push() { w.indent++ }

func (w *writer) pop() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *writer) String() string { return w.b.String() }
