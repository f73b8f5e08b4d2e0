// Package eval walks a Wot++ AST, producing the document's output bytes.
//
// Evaluation is single-threaded and synchronous. One Evaluator owns one
// environment for its whole run; nested evaluations spawned by the source,
// eval and codeify forms share that environment by reference so definitions
// made inside meta-evaluated fragments persist.
package eval

import (
	"bytes"

	"github.com/sirupsen/logrus"

	"github.com/wotpp/wotpp/internal/ast"
	"github.com/wotpp/wotpp/internal/diag"
	"github.com/wotpp/wotpp/internal/parser"
	"github.com/wotpp/wotpp/internal/token"
)

// Config carries the host bindings the intrinsics need.
type Config struct {
	// SearchRoot is the directory the file intrinsic resolves relative
	// paths against and the working directory of run and pipe
	// subprocesses. Empty means the process working directory.
	SearchRoot string

	// EnableSubprocess gates the run and pipe intrinsics. When false they
	// raise a runtime error instead of spawning anything.
	EnableSubprocess bool

	// Logger receives the log intrinsic's output and debug trace lines.
	// Nil means the logrus standard logger.
	Logger *logrus.Logger
}

// Evaluator evaluates AST nodes from a Store against a mutable environment.
type Evaluator struct {
	store *ast.Store
	env   *Env
	cfg   Config
	log   *logrus.Logger
}

// New creates an Evaluator over store with a fresh environment.
func New(store *ast.Store, cfg Config) *Evaluator {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Evaluator{store: store, env: NewEnv(), cfg: cfg, log: log}
}

// Store returns the arena this evaluator reads nodes from.
func (e *Evaluator) Store() *ast.Store { return e.store }

// Env returns the evaluator's environment, so the REPL can snapshot and
// restore it around erroring inputs.
func (e *Evaluator) Env() *Env { return e.env }

func evalErr(pos token.Position, format string, args ...interface{}) error {
	return diag.New(diag.Eval, pos, format, args...)
}

// EvalSource lexes, parses and evaluates src as a complete document in the
// current environment, returning the concatenated output. Output produced
// before an error is discarded.
func (e *Evaluator) EvalSource(src []byte, file string) ([]byte, error) {
	p := parser.New(src, file, e.store)
	doc, err := p.ParseDocument()
	if err != nil {
		return nil, err
	}
	return e.Eval(doc)
}

// Eval evaluates one node to bytes.
func (e *Evaluator) Eval(idx ast.NodeIndex) ([]byte, error) {
	n := e.store.Get(idx)
	switch n.Kind {
	case ast.KDocument:
		return e.evalDocument(n)
	case ast.KString:
		return n.Value, nil
	case ast.KConcat:
		return e.evalConcat(n)
	case ast.KBlock:
		return e.evalBlock(n)
	case ast.KFnInvoke:
		return e.evalFnInvoke(n)
	case ast.KIntrinsic:
		return e.evalIntrinsic(n)
	case ast.KFn:
		e.env.defineFn(n.Name, len(n.Params), idx)
		return nil, nil
	case ast.KVar:
		val, err := e.Eval(n.Body)
		if err != nil {
			return nil, err
		}
		e.env.defineVar(n.Name, val)
		return nil, nil
	case ast.KDrop:
		return e.evalDrop(n)
	case ast.KPre:
		return e.evalPre(n)
	case ast.KMap:
		return e.evalMap(n)
	case ast.KCodeify:
		return e.evalCodeify(n)
	default:
		return nil, evalErr(n.Pos, "cannot evaluate %s node", n.Kind)
	}
}

func (e *Evaluator) evalDocument(n ast.Node) ([]byte, error) {
	var out bytes.Buffer
	for _, stmt := range n.Stmts {
		val, err := e.Eval(stmt)
		if err != nil {
			return nil, err
		}
		out.Write(val)
	}
	return out.Bytes(), nil
}

func (e *Evaluator) evalConcat(n ast.Node) ([]byte, error) {
	left, err := e.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...), nil
}

func (e *Evaluator) evalBlock(n ast.Node) ([]byte, error) {
	e.env.pushFrame()
	defer e.env.popFrame()
	for _, stmt := range n.Stmts {
		if _, err := e.Eval(stmt); err != nil {
			return nil, err
		}
	}
	return e.Eval(n.Body)
}

func (e *Evaluator) evalFnInvoke(n ast.Node) ([]byte, error) {
	arity := len(n.Args)
	e.log.Debugf("invoke %s/%d", n.Name, arity)

	def, found := e.env.lookupFn(n.Name, arity)
	if !found {
		if arity == 0 {
			if val, ok := e.env.lookupVar(n.Name); ok {
				return val, nil
			}
		}
		return nil, evalErr(n.Pos, "undefined function %q (arity %d)", n.Name, arity)
	}

	// Arguments evaluate eagerly, left to right, in the caller's
	// environment; the body then runs under a fresh frame holding the
	// parameter bindings.
	args := make([][]byte, arity)
	for i, arg := range n.Args {
		val, err := e.Eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	fn := e.store.Get(def)
	e.env.pushFrame()
	defer e.env.popFrame()
	for i, param := range fn.Params {
		e.env.top().vars[param] = append(e.env.top().vars[param], args[i])
	}
	return e.Eval(fn.Body)
}

func (e *Evaluator) evalDrop(n ast.Node) ([]byte, error) {
	target := e.store.Get(n.Target)
	if target.Kind != ast.KFnInvoke && target.Kind != ast.KIntrinsic {
		return nil, evalErr(n.Pos, "drop target must name a function")
	}
	if !e.env.dropFn(target.Name, len(target.Args)) {
		return nil, evalErr(n.Pos, "drop of undefined %q (arity %d)", target.Name, len(target.Args))
	}
	return nil, nil
}

func (e *Evaluator) evalPre(n ast.Node) ([]byte, error) {
	var seg bytes.Buffer
	for _, expr := range n.PrefixExprs {
		val, err := e.Eval(expr)
		if err != nil {
			return nil, err
		}
		seg.Write(val)
	}
	e.env.pushPrefix(seg.String())
	defer e.env.popPrefix()

	// Definitions inside the prefix block land in the enclosing frame, so
	// no environment frame is pushed here; only the prefix stack changes.
	var out bytes.Buffer
	for _, stmt := range n.Stmts {
		val, err := e.Eval(stmt)
		if err != nil {
			return nil, err
		}
		out.Write(val)
	}
	return out.Bytes(), nil
}

func (e *Evaluator) evalMap(n ast.Node) ([]byte, error) {
	scrutinee, err := e.Eval(n.Scrutinee)
	if err != nil {
		return nil, err
	}
	for _, arm := range n.Arms {
		pattern, err := e.Eval(arm.Pattern)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(pattern, scrutinee) {
			return e.Eval(arm.Body)
		}
	}
	if n.Default != ast.Empty {
		return e.Eval(n.Default)
	}
	return nil, nil
}

func (e *Evaluator) evalCodeify(n ast.Node) ([]byte, error) {
	src, err := e.Eval(n.Body)
	if err != nil {
		return nil, err
	}
	return e.EvalSource(src, n.Pos.File)
}
