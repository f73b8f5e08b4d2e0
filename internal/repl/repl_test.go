package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wotpp/wotpp/internal/ast"
	"github.com/wotpp/wotpp/internal/eval"
)

func runSession(t *testing.T, input string) (stdout, stderr string) {
	t.Helper()
	ev := eval.New(ast.NewStore(), eval.Config{})
	var out, errw bytes.Buffer
	r := New(ev, strings.NewReader(input), &out, &errw)
	require.NoError(t, r.Run())
	return out.String(), errw.String()
}

func TestEvaluatesLines(t *testing.T) {
	out, errw := runSession(t, "\"hello\"\n")
	require.Equal(t, "hello\n", out)
	require.Empty(t, errw)
}

func TestDefinitionsPersistAcrossLines(t *testing.T) {
	out, _ := runSession(t, "let f(x) x .. x\nf(\"a\")\n")
	require.Equal(t, "aa\n", out)
}

func TestErrorRestoresEnvironment(t *testing.T) {
	// The second line defines g and then errors; g must not survive, so
	// the third line errors too while f still resolves on the fourth.
	input := strings.Join([]string{
		`let f(x) x`,
		`let g(x) x   error("boom")`,
		`g("x")`,
		`f("ok")`,
	}, "\n") + "\n"
	out, errw := runSession(t, input)
	require.Equal(t, "ok\n", out)
	require.Contains(t, errw, "boom")
	require.Contains(t, errw, "undefined function \"g\"")
}

func TestParseErrorIsRecoverable(t *testing.T) {
	out, errw := runSession(t, "let\n\"after\"\n")
	require.Equal(t, "after\n", out)
	require.Contains(t, errw, "parse error")
}

func TestQuitCommand(t *testing.T) {
	out, _ := runSession(t, ":quit\n\"never\"\n")
	require.Empty(t, out)
}

func TestEnvCommand(t *testing.T) {
	out, _ := runSession(t, "let f(x) x\nvar v \"1\"\n:env\n")
	require.Contains(t, out, "f/1")
	require.Contains(t, out, "v")
}
