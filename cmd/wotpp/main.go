// wotpp evaluates Wot++ source files and writes the resulting document to
// standard output.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wotpp/wotpp/internal/ast"
	"github.com/wotpp/wotpp/internal/diag"
	"github.com/wotpp/wotpp/internal/eval"
	"github.com/wotpp/wotpp/internal/repl"
)

type options struct {
	repl         bool
	searchRoot   string
	noSubprocess bool
	colorMode    string
	verbose      bool
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wotpp [flags] file...",
		Short: "Evaluate Wot++ source files to a string document",
		Long: `wotpp parses and evaluates each given Wot++ source file in order,
writing the concatenation of each file's document value to standard output.
With --repl, an interactive prompt starts after any given files have been
evaluated, sharing their environment.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.BoolVar(&opts.repl, "repl", false, "start an interactive prompt")
	flags.StringVar(&opts.searchRoot, "search-root", "", "root directory for file paths and run/pipe working directory (default cwd)")
	flags.BoolVar(&opts.noSubprocess, "no-subprocess", false, "disable the run and pipe intrinsics")
	flags.StringVar(&opts.colorMode, "color", "auto", "colorize diagnostics: auto, always or never")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "emit debug trace lines")
	return cmd
}

// colorize resolves the --color mode against whether stderr is a tty.
func colorize(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	if len(args) == 0 && !opts.repl {
		return fmt.Errorf("no input files (pass --repl for an interactive prompt)")
	}

	useColor := colorize(opts.colorMode)
	color.NoColor = !useColor

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	store := ast.NewStore()
	ev := eval.New(store, eval.Config{
		SearchRoot:       opts.searchRoot,
		EnableSubprocess: !opts.noSubprocess,
		Logger:           logger,
	})

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %v", path, err)
		}
		out, err := ev.EvalSource(src, path)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), diag.Render(err, useColor))
			return errEvaluation
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	}

	if opts.repl {
		r := repl.New(ev, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
		r.Colorize = useColor
		return r.Run()
	}
	return nil
}

// errEvaluation marks an already-reported lex/parse/runtime failure, so
// main exits 1 without printing the error twice.
var errEvaluation = fmt.Errorf("evaluation failed")

func main() {
	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.Execute(); err != nil {
		if err == errEvaluation {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
