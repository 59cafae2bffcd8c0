// Command a7c is the a7 compiler driver: it tokenizes, parses, analyzes,
// and compiles .a7 source files to a target backend, with diagnostic
// modes for every pipeline stage.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oxhq/a7c/internal/buildlog"
	"github.com/oxhq/a7c/internal/compiler"
)

var (
	flagMode    string
	flagOutput  string
	flagDocOut  string
	flagFormat  string
	flagBackend string
	flagVerbose bool
)

func main() {
	// Environment configuration may live in a .env file; absence is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "a7c [flags] <input.a7>",
		Short: "Compiler for the a7 programming language",
		Long: "a7c compiles .a7 source files to a target backend (Zig by default)\n" +
			"and exposes every pipeline stage: tokens, ast, semantic, pipeline,\n" +
			"compile, and doc.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}

	root.Flags().StringVar(&flagMode, "mode", "compile",
		"Stage to run: tokens, ast, semantic, pipeline, compile, doc")
	root.Flags().StringVarP(&flagOutput, "output", "o", "",
		"Output path (compile mode only)")
	root.Flags().StringVar(&flagDocOut, "doc-out", "",
		"Write a Markdown report to PATH, or 'auto' for <input stem>.md")
	root.Flags().StringVar(&flagFormat, "format", "human",
		"Output format: human or json")
	root.Flags().StringVar(&flagBackend, "backend", "zig",
		"Target backend")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Verbose output")

	root.AddCommand(projectCmd(), historyCmd())

	if err := root.Execute(); err != nil {
		if ec, ok := err.(exitError); ok {
			os.Exit(int(ec.code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(compiler.ExitUsage))
	}
}

// exitError carries a stage-specific exit code through cobra.
type exitError struct {
	code compiler.ExitCode
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func runCompile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if !compiler.ValidMode(flagMode) {
		return fmt.Errorf("invalid mode %q", flagMode)
	}
	mode := compiler.Mode(flagMode)

	if flagFormat != string(compiler.FormatHuman) && flagFormat != string(compiler.FormatJSON) {
		return fmt.Errorf("invalid format %q", flagFormat)
	}
	if flagOutput != "" && mode != compiler.ModeCompile {
		return fmt.Errorf("--output is only valid in compile mode")
	}

	docPath := flagDocOut
	if mode == compiler.ModeDoc && docPath == "" {
		docPath = "auto"
	}

	c := compiler.New(flagBackend, mode, compiler.OutputFormat(flagFormat))
	c.Verbose = flagVerbose
	c.DocPath = docPath
	c.Log = openLog()

	result := c.CompileFile(inputPath, flagOutput)
	if !result.OK {
		return exitError{code: result.ExitCode}
	}
	return nil
}

func projectCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "project <dir>",
		Short: "Compile every .a7 file below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := compiler.New(flagBackend, compiler.ModeCompile, compiler.FormatHuman)
			c.Verbose = flagVerbose
			c.Log = openLog()

			results, err := c.CompileProject(args[0], outputDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return exitError{code: worstExitCode(results)}
			}
			if flagVerbose {
				fmt.Printf("Successfully compiled %d file(s)\n", len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "build", "Output directory")
	cmd.Flags().StringVar(&flagBackend, "backend", "zig", "Target backend")
	return cmd
}

func worstExitCode(results []*compiler.Result) compiler.ExitCode {
	code := compiler.ExitIO
	for _, r := range results {
		if !r.OK {
			return r.ExitCode
		}
	}
	return code
}

func historyCmd() *cobra.Command {
	var limit int
	var forInput string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent compile runs from the build log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := openLog()
			if log == nil {
				return fmt.Errorf("build log disabled; set A7C_DB to a database path or libsql URL")
			}

			var (
				runs []buildlog.Run
				err  error
			)
			if forInput != "" {
				runs, err = log.RecentFor(forInput, limit)
			} else {
				runs, err = log.Recent(limit)
			}
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No recorded runs.")
				return nil
			}
			for _, run := range runs {
				status := "✓"
				if run.Status != "ok" {
					status = "✗"
				}
				fmt.Printf("%s %s  %-9s %-8s %5dms  %s\n",
					status,
					run.CreatedAt.Format("2006-01-02 15:04:05"),
					run.Mode,
					run.Backend,
					run.TimingMS,
					run.InputPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&forInput, "input", "", "Only runs for this input path")
	return cmd
}

// openLog connects the build log when A7C_DB is configured. Any
// connection problem disables logging rather than failing the compile.
func openLog() *buildlog.Log {
	dsn := strings.TrimSpace(os.Getenv("A7C_DB"))
	if dsn == "" {
		return nil
	}
	log, err := buildlog.Connect(dsn, flagVerbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: build log unavailable: %v\n", err)
		return nil
	}
	return log
}
