// Package diag defines the three error categories Wot++ reports
// diagnostics under, and renders them consistently for the CLI and REPL.
package diag

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/wotpp/wotpp/internal/token"
)

// Category is one of the three fatal-but-recoverable-at-the-REPL error
// classes.
type Category int

const (
	Lex Category = iota
	Parse
	Eval
)

func (c Category) String() string {
	switch c {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Eval:
		return "runtime error"
	default:
		return "error"
	}
}

// Error is a positioned, categorized diagnostic.
type Error struct {
	Category Category
	Pos      token.Position
	Msg      string
}

func New(cat Category, pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Category: cat, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Category, e.Msg)
}

var categoryColor = map[Category]*color.Color{
	Lex:   color.New(color.FgRed, color.Bold),
	Parse: color.New(color.FgYellow, color.Bold),
	Eval:  color.New(color.FgMagenta, color.Bold),
}

// Render formats an error as "file:line:col: category: message", colorizing
// the category label when colorize is true.
func Render(err error, colorize bool) string {
	de, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	label := de.Category.String()
	if colorize {
		if c, ok := categoryColor[de.Category]; ok {
			label = c.Sprint(label)
		}
	}
	return fmt.Sprintf("%s: %s: %s", de.Pos, label, de.Msg)
}
