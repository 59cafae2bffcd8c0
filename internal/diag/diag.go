// Package diag carries compiler diagnostics: typed errors with source
// spans, retained source lines, and the human rendering used by the CLI.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oxhq/a7c/internal/span"
)

// Category tags which stage produced a diagnostic. The values double as
// the `category` field of the JSON error object.
type Category string

const (
	CategoryLex      Category = "tokenize"
	CategoryParse    Category = "parse"
	CategorySemantic Category = "semantic"
	CategoryCodegen  Category = "codegen"
	CategoryIO       Category = "io"
	CategoryInternal Category = "internal"
)

// LexKind enumerates the tokenizer failure variants.
type LexKind string

const (
	InvalidCharacter          LexKind = "INVALID_CHARACTER"
	TabsUnsupported           LexKind = "TABS_UNSUPPORTED"
	NotClosedString           LexKind = "NOT_CLOSED_STRING"
	NotClosedChar             LexKind = "NOT_CLOSED_CHAR"
	InvalidScientificNotation LexKind = "INVALID_SCIENTIFIC_NOTATION"
	TooLongIdentifier         LexKind = "TOO_LONG_IDENTIFIER"
	TooLongNumber             LexKind = "TOO_LONG_NUMBER"
)

// defaultLexMessages carries the message text used when a lex error is
// raised without an explicit message.
var defaultLexMessages = map[LexKind]string{
	InvalidCharacter:          "Unexpected character",
	TabsUnsupported:           "Tabs '\\t' are unsupported",
	NotClosedString:           "The string is not closed",
	NotClosedChar:             "The char is not closed",
	InvalidScientificNotation: "Invalid scientific notation",
	TooLongIdentifier:         "Too long identifier",
	TooLongNumber:             "Too long number",
}

// Severity distinguishes hard errors from informational diagnostics such
// as the enum-exhaustiveness hint.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Error is a single diagnostic. It satisfies the error interface; Render
// produces the multi-line human frame with the caret indicator.
type Error struct {
	Category Category
	Lex      LexKind // set only for Category == CategoryLex
	Severity Severity
	Message  string
	Span     span.Span
	Filename string
	// Lines holds the source split into lines, retained for rendering.
	Lines []string
}

// NewLexError builds a tokenizer diagnostic. An empty message selects the
// default text for the kind.
func NewLexError(kind LexKind, sp span.Span, message, filename string, lines []string) *Error {
	if message == "" {
		message = defaultLexMessages[kind]
	}
	return &Error{
		Category: CategoryLex,
		Lex:      kind,
		Message:  message,
		Span:     sp,
		Filename: filename,
		Lines:    lines,
	}
}

// NewParseError builds a parser diagnostic.
func NewParseError(message string, sp span.Span, filename string, lines []string) *Error {
	return &Error{
		Category: CategoryParse,
		Message:  message,
		Span:     sp,
		Filename: filename,
		Lines:    lines,
	}
}

// NewSemanticError builds a diagnostic for the name-resolution, type
// checking, or validation passes.
func NewSemanticError(message string, sp span.Span, filename string, lines []string) *Error {
	return &Error{
		Category: CategorySemantic,
		Message:  message,
		Span:     sp,
		Filename: filename,
		Lines:    lines,
	}
}

// NewInternalError wraps an unexpected condition with no useful span.
func NewInternalError(message string) *Error {
	return &Error{Category: CategoryInternal, Message: message}
}

// Error renders the compact one-line form: "file:line:col: message".
func (e *Error) Error() string {
	var parts []string
	if e.Filename != "" {
		parts = append(parts, e.Filename)
	}
	if e.Span.Valid() {
		parts = append(parts, fmt.Sprintf("%d:%d", e.Span.StartLine, e.Span.StartColumn))
	}
	if len(parts) == 0 {
		return e.Message
	}
	return strings.Join(parts, ":") + ": " + e.Message
}

// Render produces the human frame:
//
//	error: Unexpected character: '§' [line 1: col 6]
//	1 ┃ x := §
//	  ┃      ▲
//
// Files of at most five lines are shown whole; larger files show two
// lines of context on each side of the offending line.
func (e *Error) Render() string {
	var b strings.Builder
	label := "error"
	if e.Severity == SeverityWarning {
		label = "warning"
	}
	if e.Span.Valid() {
		fmt.Fprintf(&b, "%s: %s [line %d: col %d]\n",
			label, e.Message, e.Span.StartLine, e.Span.StartColumn)
	} else {
		fmt.Fprintf(&b, "%s: %s\n", label, e.Message)
	}

	if len(e.Lines) == 0 || !e.Span.Valid() {
		return b.String()
	}

	first, last := 1, len(e.Lines)
	if last > 5 {
		first = e.Span.StartLine - 2
		if first < 1 {
			first = 1
		}
		last = e.Span.StartLine + 2
		if last > len(e.Lines) {
			last = len(e.Lines)
		}
	}

	gutter := len(fmt.Sprintf("%d", last))
	for n := first; n <= last; n++ {
		fmt.Fprintf(&b, "%*d ┃ %s\n", gutter, n, e.Lines[n-1])
		if n == e.Span.StartLine {
			fmt.Fprintf(&b, "%s ┃ %s▲\n",
				strings.Repeat(" ", gutter),
				strings.Repeat(" ", e.Span.StartColumn-1))
		}
	}
	return b.String()
}

// SortBySpan orders diagnostics by span start for stable multi-error
// rendering.
func SortBySpan(errs []*Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i].Span, errs[j].Span
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartColumn < b.StartColumn
	})
}

// RenderAll renders every diagnostic, one frame per error, ordered by
// span start.
func RenderAll(errs []*Error) string {
	sorted := make([]*Error, len(errs))
	copy(sorted, errs)
	SortBySpan(sorted)

	var b strings.Builder
	for i, err := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Render())
	}
	return b.String()
}

// HasErrors reports whether any diagnostic in the list has error
// severity. Warnings alone do not fail a stage.
func HasErrors(errs []*Error) bool {
	for _, err := range errs {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}
