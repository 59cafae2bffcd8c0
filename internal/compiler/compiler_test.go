package compiler

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCompiler(mode Mode, format OutputFormat) (*Compiler, *bytes.Buffer, *bytes.Buffer) {
	c := New("zig", mode, format)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	c.Stdout = stdout
	c.Stderr = stderr
	return c, stdout, stderr
}

func TestCompileMinimalProgram(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	c, stdout, _ := newTestCompiler(ModeCompile, FormatHuman)

	result := c.CompileFile(input, "")
	require.True(t, result.OK)
	assert.Equal(t, ExitSuccess, result.ExitCode)
	assert.Equal(t, strings.TrimSuffix(input, ".a7")+".zig", result.OutputPath)
	assert.Contains(t, stdout.String(), "✓")

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pub fn main() void {")
}

func TestWrongExtension(t *testing.T) {
	input := writeSource(t, "main.txt", "main :: fn() {}\n")
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)

	result := c.CompileFile(input, "")
	assert.False(t, result.OK)
	assert.Equal(t, ExitIO, result.ExitCode)
	assert.Equal(t, "io", result.Failure.Category)
}

func TestMissingInputFile(t *testing.T) {
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)
	result := c.CompileFile(filepath.Join(t.TempDir(), "nope.a7"), "")
	assert.Equal(t, ExitIO, result.ExitCode)
}

func TestTokenizeErrorExitCode(t *testing.T) {
	input := writeSource(t, "bad.a7", "x := §\n")
	c, _, stderr := newTestCompiler(ModeCompile, FormatHuman)

	result := c.CompileFile(input, "")
	assert.Equal(t, ExitTokenize, result.ExitCode)
	assert.Equal(t, "tokenize", result.Failure.Category)
	assert.Contains(t, stderr.String(), "Unexpected character: '§'")
	assert.Contains(t, stderr.String(), "▲")

	_, err := os.Stat(strings.TrimSuffix(input, ".a7") + ".zig")
	assert.True(t, os.IsNotExist(err), "no output file on failure")
}

func TestParseErrorExitCode(t *testing.T) {
	input := writeSource(t, "bad.a7", "fn() {}\n")
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)
	result := c.CompileFile(input, "")
	assert.Equal(t, ExitParse, result.ExitCode)
	assert.Equal(t, "parse", result.Failure.Category)
}

func TestSemanticErrorExitCode(t *testing.T) {
	input := writeSource(t, "bad.a7", "main :: fn() { undefined_var = 1 }\n")
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)
	result := c.CompileFile(input, "")
	assert.Equal(t, ExitSemantic, result.ExitCode)
	assert.Equal(t, "semantic", result.Failure.Category)
	assert.NotEmpty(t, result.Failure.Details)
}

func TestTokensModeSkipsParsing(t *testing.T) {
	// This program lexes but does not parse; tokens mode must succeed.
	input := writeSource(t, "main.a7", "fn fn fn\n")
	c, stdout, _ := newTestCompiler(ModeTokens, FormatHuman)
	result := c.CompileFile(input, "")
	require.True(t, result.OK)
	assert.Contains(t, stdout.String(), "FN")
}

func TestPipelineModeWritesNothing(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	c, stdout, _ := newTestCompiler(ModePipeline, FormatHuman)

	result := c.CompileFile(input, "")
	require.True(t, result.OK)
	assert.Contains(t, stdout.String(), "Pipeline complete")

	_, err := os.Stat(strings.TrimSuffix(input, ".a7") + ".zig")
	assert.True(t, os.IsNotExist(err))
}

func TestSemanticMode(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() { x := 1\ny := x }\n")
	c, stdout, _ := newTestCompiler(ModeSemantic, FormatHuman)
	result := c.CompileFile(input, "")
	require.True(t, result.OK)
	assert.Len(t, result.SemanticPasses, 3)
	assert.Contains(t, stdout.String(), "Semantic analysis passed (3 pass(es))")
}

func TestJSONOutputSchema(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	c, stdout, _ := newTestCompiler(ModePipeline, FormatJSON)

	result := c.CompileFile(input, "")
	require.True(t, result.OK)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &payload))

	assert.Equal(t, "2.0", payload["schema_version"])
	assert.Equal(t, "pipeline", payload["mode"])
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, input, payload["input"])
	assert.Equal(t, "zig", payload["backend"])

	stages := payload["stages"].(map[string]any)
	tokenize := stages["tokenize"].(map[string]any)
	assert.Equal(t, true, tokenize["ok"])
	assert.Equal(t, float64(8), tokenize["token_count"], "EOF is excluded from the count")

	parse := stages["parse"].(map[string]any)
	assert.Equal(t, true, parse["ok"])
	require.NotNil(t, parse["ast"])

	semantic := stages["semantic"].(map[string]any)
	assert.Equal(t, true, semantic["ok"])

	codegen := stages["codegen"].(map[string]any)
	assert.Equal(t, true, codegen["ok"])
	assert.Contains(t, codegen["output_code"], "pub fn main")
}

func TestJSONErrorPayload(t *testing.T) {
	input := writeSource(t, "bad.a7", "x := §\n")
	c, stdout, _ := newTestCompiler(ModeCompile, FormatJSON)

	result := c.CompileFile(input, "")
	require.False(t, result.OK)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &payload))
	assert.Equal(t, "error", payload["status"])

	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "tokenize", errObj["category"])
	span := errObj["span"].(map[string]any)
	assert.Equal(t, float64(1), span["start_line"])
	assert.Equal(t, float64(6), span["start_column"])
}

func TestDocMode(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	c, _, _ := newTestCompiler(ModeDoc, FormatHuman)
	c.DocPath = "auto"

	result := c.CompileFile(input, "")
	require.True(t, result.OK)
	assert.Equal(t, strings.TrimSuffix(input, ".a7")+".md", result.DocPath)

	data, err := os.ReadFile(result.DocPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Compilation Report")
	assert.Contains(t, string(data), "## Generated Code")
}

func TestCompileProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.a7"), []byte("main :: fn() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.a7"), []byte("k :: 1 + 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip me"), 0o644))

	outDir := filepath.Join(t.TempDir(), "build")
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)
	results, err := c.CompileProject(root, outDir)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	for _, rel := range []string{"a.zig", filepath.Join("sub", "b.zig")} {
		_, statErr := os.Stat(filepath.Join(outDir, rel))
		assert.NoError(t, statErr, rel)
	}
}

func TestCompileProjectEmpty(t *testing.T) {
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)
	_, err := c.CompileProject(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .a7 files")
}

func TestExplicitOutputPath(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	output := filepath.Join(t.TempDir(), "out", "program.zig")
	c, _, _ := newTestCompiler(ModeCompile, FormatHuman)

	result := c.CompileFile(input, output)
	require.True(t, result.OK)
	_, err := os.Stat(output)
	assert.NoError(t, err)
}

func TestTimingRecorded(t *testing.T) {
	input := writeSource(t, "main.a7", "main :: fn() {}\n")
	c, _, _ := newTestCompiler(ModePipeline, FormatHuman)
	result := c.CompileFile(input, "")
	assert.GreaterOrEqual(t, result.TimingMS, int64(0))
}
