// Package repl implements the interactive Wot++ prompt. Each input line is
// lexed, parsed and evaluated against a persistent environment; when a line
// errors part-way through, the environment is restored to the snapshot
// taken before the line ran.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wotpp/wotpp/internal/diag"
	"github.com/wotpp/wotpp/internal/eval"
)

const prompt = "wpp> "

// REPL drives an interactive session over an Evaluator.
type REPL struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Colorize controls whether diagnostics are rendered with ANSI colors.
	Colorize bool

	eval *eval.Evaluator
}

// New creates a REPL over ev reading from in and writing to out/errw.
func New(ev *eval.Evaluator, in io.Reader, out, errw io.Writer) *REPL {
	return &REPL{In: in, Out: out, Err: errw, eval: ev}
}

// interactive reports whether stdin is a terminal, in which case prompts
// are printed before each read.
func (r *REPL) interactive() bool {
	f, ok := r.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run reads input lines until EOF or :quit, evaluating each against the
// shared environment. It returns nil on a clean exit; per-line errors are
// reported and recovered from, never returned.
func (r *REPL) Run() error {
	showPrompt := r.interactive()
	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if showPrompt {
			fmt.Fprint(r.Out, prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			if showPrompt {
				fmt.Fprintln(r.Out)
			}
			return nil
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":q", ":quit":
			return nil
		case ":env":
			for _, name := range r.eval.Env().Names() {
				fmt.Fprintln(r.Out, name)
			}
			continue
		}

		snap := r.eval.Env().Snapshot()
		out, err := r.eval.EvalSource([]byte(line), "<repl>")
		if err != nil {
			r.eval.Env().Restore(snap)
			fmt.Fprintln(r.Err, diag.Render(err, r.Colorize))
			continue
		}
		if len(out) > 0 {
			fmt.Fprintln(r.Out, string(out))
		}
	}
}
