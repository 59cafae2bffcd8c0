// Package span provides source-location tracking for tokens, AST nodes,
// and diagnostics. Lines and columns are 1-based; Length is in bytes.
package span

import "fmt"

// Span identifies a half-open region of source text. Spans are small value
// types and are copied freely; every token and AST node carries one.
type Span struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
	Length      int `json:"length"`
}

// New builds a single-line span starting at (line, col) covering length bytes.
func New(line, col, length int) Span {
	return Span{
		StartLine:   line,
		StartColumn: col,
		EndLine:     line,
		EndColumn:   col + length,
		Length:      length,
	}
}

// Between merges two spans into one covering both, keeping the start of the
// first and the end of the second.
func Between(start, end Span) Span {
	return Span{
		StartLine:   start.StartLine,
		StartColumn: start.StartColumn,
		EndLine:     end.EndLine,
		EndColumn:   end.EndColumn,
		Length:      end.Length,
	}
}

// Valid reports whether the span points at a real source location.
func (s Span) Valid() bool {
	return s.StartLine >= 1 && s.StartColumn >= 1
}

// IsZero reports whether the span is the zero value.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartColumn)
}
