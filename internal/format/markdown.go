package format

import (
	"fmt"
	"strings"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/token"
)

// markdownTokenLimit caps the token table so documentation for large
// files stays readable.
const markdownTokenLimit = 200

// MarkdownDoc renders a compilation report as Markdown: source summary,
// token table, declaration overview, semantic pass results, and the
// generated target code.
type MarkdownDoc struct {
	InputPath  string
	Source     string
	Tokens     []token.Token
	Program    *ast.Node
	Passes     []PassResult
	OutputCode string
	Backend    string
}

// PassResult summarizes one semantic pass for reports.
type PassResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Errors int    `json:"errors"`
}

// Render produces the full Markdown document.
func (d *MarkdownDoc) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compilation Report: %s\n\n", d.InputPath)
	fmt.Fprintf(&b, "- Source lines: %d\n", len(strings.Split(d.Source, "\n")))
	fmt.Fprintf(&b, "- Source bytes: %d\n", len(d.Source))
	fmt.Fprintf(&b, "- Tokens: %d\n", len(d.Tokens))
	if d.Backend != "" {
		fmt.Fprintf(&b, "- Backend: %s\n", d.Backend)
	}
	b.WriteString("\n")

	if len(d.Tokens) > 0 {
		b.WriteString("## Tokens\n\n")
		b.WriteString("| # | Kind | Lexeme | Line | Col |\n")
		b.WriteString("|---|------|--------|------|-----|\n")
		for i, t := range d.Tokens {
			if i >= markdownTokenLimit {
				fmt.Fprintf(&b, "| … | %d more tokens | | | |\n", len(d.Tokens)-markdownTokenLimit)
				break
			}
			lexeme := t.Lexeme
			if len(lexeme) > 30 {
				lexeme = lexeme[:27] + "..."
			}
			lexeme = strings.ReplaceAll(lexeme, "|", "\\|")
			lexeme = strings.ReplaceAll(lexeme, "\n", "\\n")
			fmt.Fprintf(&b, "| %d | %s | `%s` | %d | %d |\n", i+1, t.Kind, lexeme, t.Line, t.Column)
		}
		b.WriteString("\n")
	}

	if d.Program != nil {
		b.WriteString("## Declarations\n\n")
		for _, decl := range d.Program.Declarations {
			b.WriteString(describeDecl(decl))
		}
		b.WriteString("\n")
	}

	if len(d.Passes) > 0 {
		b.WriteString("## Semantic Analysis\n\n")
		for _, pass := range d.Passes {
			status := "ok"
			if !pass.OK {
				status = fmt.Sprintf("%d error(s)", pass.Errors)
			}
			fmt.Fprintf(&b, "- %s: %s\n", pass.Name, status)
		}
		b.WriteString("\n")
	}

	if d.OutputCode != "" {
		lang := strings.ToLower(d.Backend)
		if lang == "" {
			lang = "text"
		}
		fmt.Fprintf(&b, "## Generated Code\n\n```%s\n%s\n```\n", lang, strings.TrimRight(d.OutputCode, "\n"))
	}

	return b.String()
}

func describeDecl(decl *ast.Node) string {
	visibility := ""
	if decl.IsPublic {
		visibility = "pub "
	}
	switch decl.Kind {
	case ast.FUNCTION:
		return fmt.Sprintf("- %sfn `%s` (%d parameter(s))\n", visibility, decl.Name, len(decl.Parameters))
	case ast.STRUCT:
		return fmt.Sprintf("- %sstruct `%s` (%d field(s))\n", visibility, decl.Name, len(decl.Fields))
	case ast.ENUM:
		return fmt.Sprintf("- %senum `%s` (%d variant(s))\n", visibility, decl.Name, len(decl.Variants))
	case ast.UNION:
		return fmt.Sprintf("- %sunion `%s` (%d field(s))\n", visibility, decl.Name, len(decl.Fields))
	case ast.CONST:
		return fmt.Sprintf("- %sconst `%s`\n", visibility, decl.Name)
	case ast.VAR:
		return fmt.Sprintf("- %svar `%s`\n", visibility, decl.Name)
	case ast.IMPORT:
		if decl.Name != "" {
			return fmt.Sprintf("- import `%s` as `%s`\n", decl.ModulePath, decl.Name)
		}
		return fmt.Sprintf("- import `%s`\n", decl.ModulePath)
	}
	return fmt.Sprintf("- %s\n", decl.Kind)
}
