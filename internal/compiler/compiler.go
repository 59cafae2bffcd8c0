// Package compiler orchestrates the full pipeline: tokenize → parse →
// semantic analysis → preprocess → codegen, with per-stage results,
// typed failure info, exit codes, and human or JSON output.
package compiler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/oxhq/a7c/internal/ast"
	"github.com/oxhq/a7c/internal/backend"
	"github.com/oxhq/a7c/internal/buildlog"
	"github.com/oxhq/a7c/internal/diag"
	"github.com/oxhq/a7c/internal/format"
	"github.com/oxhq/a7c/internal/lexer"
	"github.com/oxhq/a7c/internal/parser"
	"github.com/oxhq/a7c/internal/preprocess"
	"github.com/oxhq/a7c/internal/semantic"
	"github.com/oxhq/a7c/internal/stdlib"
	"github.com/oxhq/a7c/internal/symtab"
	"github.com/oxhq/a7c/internal/token"
)

// Mode selects which stages run and what is reported.
type Mode string

const (
	ModeCompile  Mode = "compile"
	ModeTokens   Mode = "tokens"
	ModeAST      Mode = "ast"
	ModeSemantic Mode = "semantic"
	ModePipeline Mode = "pipeline"
	ModeDoc      Mode = "doc"
)

// ValidMode reports whether s names a mode.
func ValidMode(s string) bool {
	switch Mode(s) {
	case ModeCompile, ModeTokens, ModeAST, ModeSemantic, ModePipeline, ModeDoc:
		return true
	}
	return false
}

// OutputFormat selects human or JSON rendering.
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
)

// ExitCode is the process exit status contract of the CLI.
type ExitCode int

const (
	ExitSuccess  ExitCode = 0
	ExitUsage    ExitCode = 2
	ExitIO       ExitCode = 3
	ExitTokenize ExitCode = 4
	ExitParse    ExitCode = 5
	ExitSemantic ExitCode = 6
	ExitCodegen  ExitCode = 7
	ExitInternal ExitCode = 8
)

// Failure describes why a compilation stopped.
type Failure struct {
	Category      string           `json:"category"`
	Message       string           `json:"message"`
	Details       []map[string]any `json:"details"`
	Span          map[string]any   `json:"span,omitempty"`
	ExceptionType string           `json:"exception_type,omitempty"`
}

// Result is the detailed outcome of one compilation.
type Result struct {
	OK        bool
	ExitCode  ExitCode
	Mode      Mode
	InputPath string
	Backend   string
	TimingMS  int64

	Source  string
	Tokens  []token.Token
	Program *ast.Node

	SemanticPasses []format.PassResult
	SemanticErrors []*diag.Error
	Warnings       []*diag.Error

	Table   *symtab.Table
	TypeMap semantic.TypeMap

	OutputCode string
	Changes    int

	Stages     map[string]map[string]any
	OutputPath string
	DocPath    string
	Failure    *Failure
}

// Compiler runs the pipeline for one configuration.
type Compiler struct {
	Backend string
	Mode    Mode
	Format  OutputFormat
	Verbose bool
	// DocPath enables the Markdown report; "auto" derives the path from
	// the input stem.
	DocPath string

	// Registry supplies stdlib lookups to the resolver, preprocessor,
	// and emitter. Defaults to the built-in registry.
	Registry *stdlib.Registry

	// Log, when non-nil, records every run.
	Log *buildlog.Log

	Stdout io.Writer
	Stderr io.Writer
}

// New builds a compiler with defaults filled in.
func New(backendName string, mode Mode, outputFormat OutputFormat) *Compiler {
	if backendName == "" {
		backendName = "zig"
	}
	if mode == "" {
		mode = ModeCompile
	}
	if outputFormat == "" {
		outputFormat = FormatHuman
	}
	return &Compiler{
		Backend:  backendName,
		Mode:     mode,
		Format:   outputFormat,
		Registry: stdlib.NewRegistry(),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// CompileFile runs the configured pipeline over one source file and
// renders the outcome. outputPath overrides the derived path in compile
// mode.
func (c *Compiler) CompileFile(inputPath, outputPath string) *Result {
	start := time.Now()
	result := &Result{
		OK:        false,
		ExitCode:  ExitInternal,
		Mode:      c.Mode,
		InputPath: inputPath,
		Backend:   c.Backend,
		Stages:    make(map[string]map[string]any),
	}

	if !strings.HasSuffix(inputPath, ".a7") {
		return c.finishFailure(result, ExitIO, "io",
			fmt.Sprintf("Expected .a7 file, got: %s", inputPath), start, nil)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return c.finishFailure(result, ExitIO, "io",
			fmt.Sprintf("Input file not found: %s", inputPath), start, nil)
	}
	result.Source = string(data)
	lines := strings.Split(result.Source, "\n")

	if c.Mode == ModeCompile {
		result.OutputPath = outputPath
		if result.OutputPath == "" {
			result.OutputPath = derivedOutputPath(inputPath)
		}
	}

	// Stage 1: tokenize.
	tokens, lexErr := lexer.Tokenize(result.Source, inputPath)
	if lexErr != nil {
		result.Stages["tokenize"] = map[string]any{"ok": false}
		return c.finishFailure(result, ExitTokenize, "tokenize", lexErr.Message, start, []*diag.Error{lexErr})
	}
	result.Tokens = tokens
	result.Stages["tokenize"] = map[string]any{
		"ok":          true,
		"token_count": len(tokens) - 1, // excluding EOF
	}

	// Stage 2: parse.
	if c.Mode != ModeTokens {
		program, parseErr := parser.Parse(tokens, inputPath, lines)
		if parseErr != nil {
			result.Stages["parse"] = map[string]any{"ok": false}
			return c.finishFailure(result, ExitParse, "parse", parseErr.Message, start, []*diag.Error{parseErr})
		}
		result.Program = program
		result.Stages["parse"] = map[string]any{"ok": true}
	}

	// Stage 3: semantic analysis.
	if c.needsSemantic() && result.Program != nil {
		if failed := c.runSemantic(result, lines); failed {
			return c.finishFailure(result, ExitSemantic, "semantic",
				fmt.Sprintf("Semantic analysis failed with %d error(s)", len(result.SemanticErrors)),
				start, result.SemanticErrors)
		}
	}

	// Stage 4: preprocess and codegen.
	if c.needsCodegen() && result.Program != nil {
		pre := preprocess.New(result.Table, result.TypeMap, c.Registry, c.Backend)
		result.Program = pre.Process(result.Program)
		result.Changes = pre.ChangesMade
		result.Warnings = append(result.Warnings, pre.Warnings...)

		gen, genErr := backend.Get(c.Backend, c.Registry)
		if genErr != nil {
			return c.finishFailure(result, ExitCodegen, "codegen", genErr.Error(), start, nil)
		}
		code, emitErr := gen.Generate(result.Program, result.TypeMap, result.Table)
		if emitErr != nil {
			return c.finishFailure(result, ExitCodegen, "codegen", emitErr.Error(), start, nil)
		}
		result.OutputCode = code
		result.Stages["codegen"] = map[string]any{
			"ok":      true,
			"bytes":   len(code),
			"changes": result.Changes,
		}

		if c.Mode == ModeCompile {
			if ioErr := c.writeOutput(result); ioErr != nil {
				return c.finishFailure(result, ExitIO, "io",
					fmt.Sprintf("Failed to write output file: %v", ioErr), start, nil)
			}
		}
	}

	// Optional Markdown documentation, combinable with compile mode.
	if c.DocPath != "" && result.Program != nil {
		docPath := c.DocPath
		if docPath == "auto" {
			docPath = strings.TrimSuffix(inputPath, ".a7") + ".md"
		}
		doc := &format.MarkdownDoc{
			InputPath:  inputPath,
			Source:     result.Source,
			Tokens:     result.Tokens,
			Program:    result.Program,
			Passes:     result.SemanticPasses,
			OutputCode: result.OutputCode,
			Backend:    c.Backend,
		}
		if ioErr := writeFile(docPath, doc.Render()); ioErr != nil {
			return c.finishFailure(result, ExitIO, "io",
				fmt.Sprintf("Failed to write documentation file: %v", ioErr), start, nil)
		}
		result.DocPath = docPath
	}

	result.OK = true
	result.ExitCode = ExitSuccess
	result.TimingMS = time.Since(start).Milliseconds()
	c.record(result)
	c.emitSuccess(result)
	return result
}

func (c *Compiler) needsSemantic() bool {
	switch c.Mode {
	case ModeSemantic, ModePipeline, ModeCompile, ModeDoc:
		return true
	}
	return false
}

func (c *Compiler) needsCodegen() bool {
	switch c.Mode {
	case ModeCompile, ModePipeline, ModeDoc:
		return true
	}
	return false
}

// runSemantic executes the three passes in order, stopping after the
// first pass that reports errors. Returns true when the stage failed.
func (c *Compiler) runSemantic(result *Result, lines []string) bool {
	resolver := semantic.NewResolver(c.Registry, result.InputPath, lines)
	result.Table = resolver.Resolve(result.Program)
	nrOK := len(resolver.Errors) == 0
	result.SemanticPasses = append(result.SemanticPasses, format.PassResult{
		Name: "Name Resolution", OK: nrOK, Errors: len(resolver.Errors),
	})
	result.SemanticErrors = append(result.SemanticErrors, resolver.Errors...)

	if nrOK {
		checker := semantic.NewChecker(result.Table, result.InputPath, lines)
		result.TypeMap = checker.Check(result.Program)
		tcOK := len(checker.Errors) == 0
		result.SemanticPasses = append(result.SemanticPasses, format.PassResult{
			Name: "Type Checking", OK: tcOK, Errors: len(checker.Errors),
		})
		result.SemanticErrors = append(result.SemanticErrors, checker.Errors...)

		if tcOK {
			validator := semantic.NewValidator(result.Table, result.TypeMap, result.InputPath, lines)
			validatorErrs := validator.Validate(result.Program)

			var hard []*diag.Error
			for _, e := range validatorErrs {
				if e.Severity == diag.SeverityWarning {
					result.Warnings = append(result.Warnings, e)
				} else {
					hard = append(hard, e)
				}
			}
			result.SemanticPasses = append(result.SemanticPasses, format.PassResult{
				Name: "Semantic Validation", OK: len(hard) == 0, Errors: len(hard),
			})
			result.SemanticErrors = append(result.SemanticErrors, hard...)
		}
	}

	semanticOK := !diag.HasErrors(result.SemanticErrors)
	result.Stages["semantic"] = map[string]any{
		"ok":          semanticOK,
		"passes":      result.SemanticPasses,
		"error_count": len(result.SemanticErrors),
	}
	return !semanticOK
}

// writeOutput writes the generated code, printing a unified diff against
// the previous contents in verbose mode.
func (c *Compiler) writeOutput(result *Result) error {
	if result.OutputPath == "" {
		return fmt.Errorf("missing output path for compile mode")
	}

	if c.Verbose && c.Format == FormatHuman {
		if old, err := os.ReadFile(result.OutputPath); err == nil && string(old) != result.OutputCode {
			diffText, derr := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(old)),
				B:        difflib.SplitLines(result.OutputCode),
				FromFile: result.OutputPath + " (previous)",
				ToFile:   result.OutputPath,
				Context:  3,
			})
			if derr == nil && diffText != "" {
				fmt.Fprint(c.Stdout, diffText)
			}
		}
	}

	return writeFile(result.OutputPath, result.OutputCode)
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func derivedOutputPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, ".a7") + ".zig"
}

// CompileProject compiles every .a7 file below projectRoot into
// outputDir, preserving relative layout. Returns the per-file results
// and an error when any file failed.
func (c *Compiler) CompileProject(projectRoot, outputDir string) ([]*Result, error) {
	if outputDir == "" {
		outputDir = "build"
	}
	matches, err := doublestar.Glob(os.DirFS(projectRoot), "**/*.a7")
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", projectRoot, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .a7 files found in %s", projectRoot)
	}

	var results []*Result
	failed := 0
	for _, rel := range matches {
		inputPath := filepath.Join(projectRoot, rel)
		outputPath := filepath.Join(outputDir, strings.TrimSuffix(rel, ".a7")+".zig")
		result := c.CompileFile(inputPath, outputPath)
		results = append(results, result)
		if !result.OK {
			failed++
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("compilation failed: %d/%d files compiled",
			len(results)-failed, len(results))
	}
	return results, nil
}

func (c *Compiler) finishFailure(result *Result, code ExitCode, category, message string,
	start time.Time, errs []*diag.Error) *Result {

	var details []map[string]any
	var spanObj map[string]any
	for _, e := range errs {
		detail := format.ErrorToDetail(e, result.InputPath)
		details = append(details, detail)
	}
	if len(details) > 0 {
		if sp, ok := details[0]["span"].(map[string]any); ok {
			spanObj = sp
		}
	}

	result.OK = false
	result.ExitCode = code
	result.Failure = &Failure{
		Category: category,
		Message:  message,
		Details:  details,
		Span:     spanObj,
	}
	result.TimingMS = time.Since(start).Milliseconds()

	c.record(result)

	if c.Format == FormatJSON {
		c.printJSON(result)
		return result
	}

	if len(errs) > 0 {
		fmt.Fprint(c.Stderr, diag.RenderAll(errs))
	} else {
		fmt.Fprintf(c.Stderr, "✗ %s\n", message)
	}
	return result
}

func (c *Compiler) emitSuccess(result *Result) {
	for _, warn := range result.Warnings {
		if c.Format == FormatHuman {
			fmt.Fprint(c.Stderr, warn.Render())
		}
	}

	if c.Format == FormatJSON {
		c.printJSON(result)
		return
	}

	switch {
	case c.Mode == ModeTokens:
		for _, t := range result.Tokens {
			fmt.Fprintf(c.Stdout, "%-20s %-12q line %d col %d\n", t.Kind, t.Lexeme, t.Line, t.Column)
		}
	case c.Mode == ModeAST:
		payload, err := json.MarshalIndent(format.ASTToMap(result.Program), "", "  ")
		if err == nil {
			fmt.Fprintln(c.Stdout, string(payload))
		}
	case c.Mode == ModeCompile && result.OutputPath != "":
		fmt.Fprintf(c.Stdout, "✓ %s → %s\n", result.InputPath, result.OutputPath)
	case c.Mode == ModePipeline:
		fmt.Fprintf(c.Stdout, "✓ Pipeline complete for %s (no file written)\n", result.InputPath)
	case c.Mode == ModeSemantic:
		fmt.Fprintf(c.Stdout, "✓ Semantic analysis passed (%d pass(es))\n", len(result.SemanticPasses))
	case c.Mode == ModeDoc && result.DocPath != "":
		fmt.Fprintf(c.Stdout, "✓ Documentation generated for %s\n", result.InputPath)
	}

	if result.DocPath != "" && c.Mode != ModeDoc {
		fmt.Fprintf(c.Stdout, "📄 Documentation written to %s\n", result.DocPath)
	}
}

// printJSON renders the schema_version 2.0 payload.
func (c *Compiler) printJSON(result *Result) {
	payload := c.JSONPayload(result)
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(c.Stderr, "Error encoding JSON output: %v\n", err)
		return
	}
	fmt.Fprintln(c.Stdout, string(data))
}

// JSONPayload assembles the machine-readable result object.
func (c *Compiler) JSONPayload(result *Result) map[string]any {
	status := "ok"
	if !result.OK {
		status = "error"
	}
	payload := map[string]any{
		"schema_version": "2.0",
		"mode":           string(result.Mode),
		"status":         status,
		"input":          result.InputPath,
		"backend":        result.Backend,
		"timing_ms":      result.TimingMS,
		"stages":         map[string]any{},
		"artifacts":      map[string]any{},
	}
	stages := payload["stages"].(map[string]any)

	if st, ok := result.Stages["tokenize"]; ok {
		stage := map[string]any{}
		for k, v := range st {
			stage[k] = v
		}
		stage["tokens"] = format.TokensToJSON(result.Tokens)
		stages["tokenize"] = stage
	}

	if st, ok := result.Stages["parse"]; ok {
		stage := map[string]any{}
		for k, v := range st {
			stage[k] = v
		}
		if ok, _ := st["ok"].(bool); ok {
			stage["ast"] = format.ASTToMap(result.Program)
		} else {
			stage["ast"] = nil
		}
		stages["parse"] = stage
	}

	if st, ok := result.Stages["semantic"]; ok {
		details := make([]map[string]any, 0, len(result.SemanticErrors))
		for _, e := range result.SemanticErrors {
			details = append(details, format.ErrorToDetail(e, result.InputPath))
		}
		stages["semantic"] = map[string]any{
			"ok":     st["ok"],
			"passes": result.SemanticPasses,
			"errors": details,
		}
	}

	if st, ok := result.Stages["codegen"]; ok {
		stages["codegen"] = map[string]any{
			"ok":          st["ok"],
			"bytes":       st["bytes"],
			"output_code": result.OutputCode,
		}
	}

	artifacts := payload["artifacts"].(map[string]any)
	if result.OutputPath != "" {
		artifacts["output_path"] = result.OutputPath
	}
	if result.DocPath != "" {
		artifacts["doc_path"] = result.DocPath
	}

	if !result.OK && result.Failure != nil {
		payload["error"] = map[string]any{
			"category":       result.Failure.Category,
			"message":        result.Failure.Message,
			"details":        result.Failure.Details,
			"span":           result.Failure.Span,
			"exception_type": result.Failure.ExceptionType,
		}
	}

	return payload
}

// record appends the run to the build log when one is connected.
func (c *Compiler) record(result *Result) {
	if c.Log == nil {
		return
	}
	status := "ok"
	if !result.OK {
		status = "error"
	}
	stages := make(map[string]any, len(result.Stages))
	for name, st := range result.Stages {
		stages[name] = st
	}
	var diagnostics []map[string]any
	for _, e := range result.SemanticErrors {
		diagnostics = append(diagnostics, format.ErrorToDetail(e, result.InputPath))
	}
	if result.Failure != nil {
		diagnostics = append(diagnostics, map[string]any{
			"type":    result.Failure.Category,
			"message": result.Failure.Message,
		})
	}

	run := buildlog.NewRun(result.InputPath, string(result.Mode), result.Backend,
		status, int(result.ExitCode), result.TimingMS, stages, diagnostics)
	run.OutputPath = result.OutputPath
	run.DocPath = result.DocPath
	run.OutputBytes = len(result.OutputCode)
	if err := c.Log.Record(run); err != nil && c.Verbose {
		fmt.Fprintf(c.Stderr, "warning: build log not updated: %v\n", err)
	}
}
