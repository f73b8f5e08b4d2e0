package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wotpp/wotpp/internal/ast"
)

// fnKey keys function definitions: the same name may be defined at several
// arities simultaneously, so arity is part of the key.
type fnKey struct {
	name  string
	arity int
}

// frame is one layer of the environment stack. Function definitions are LIFO
// lists (newest shadows older, drop removes the newest); variables are LIFO
// value stacks under the same shadowing rule.
type frame struct {
	fns  map[fnKey][]ast.NodeIndex
	vars map[string][][]byte
}

func newFrame() *frame {
	return &frame{
		fns:  make(map[fnKey][]ast.NodeIndex),
		vars: make(map[string][][]byte),
	}
}

// Env is the evaluator's mutable environment: a stack of frames plus the
// prefix-context stack. Blocks and argument binding push/pop frames; prefix
// blocks push/pop prefix segments only, so definitions made inside a prefix
// block land in the enclosing frame (defining i inside prefix p is the same
// as defining p·i outside it).
type Env struct {
	frames   []*frame
	prefixes []string
}

// NewEnv returns an environment with a single empty frame, the one used for
// a whole Document evaluation.
func NewEnv() *Env {
	return &Env{frames: []*frame{newFrame()}}
}

func (e *Env) top() *frame { return e.frames[len(e.frames)-1] }

func (e *Env) pushFrame() { e.frames = append(e.frames, newFrame()) }

func (e *Env) popFrame() { e.frames = e.frames[:len(e.frames)-1] }

func (e *Env) pushPrefix(seg string) { e.prefixes = append(e.prefixes, seg) }

func (e *Env) popPrefix() { e.prefixes = e.prefixes[:len(e.prefixes)-1] }

// qualify resolves the current prefix stack once and returns the fully
// qualified name used to store a definition.
func (e *Env) qualify(name string) string {
	if len(e.prefixes) == 0 {
		return name
	}
	return strings.Join(e.prefixes, "") + name
}

// lookupCandidates returns the qualified names to try for an unqualified
// identifier, from the deepest prefix combination down to the bare name.
// Identifiers containing '/' are treated as already qualified and get no
// automatic prefix search.
func (e *Env) lookupCandidates(name string) []string {
	if strings.ContainsRune(name, '/') {
		return []string{name}
	}
	out := make([]string, 0, len(e.prefixes)+1)
	for k := len(e.prefixes); k >= 0; k-- {
		out = append(out, strings.Join(e.prefixes[:k], "")+name)
	}
	return out
}

// defineFn pushes the Fn node index def onto the definition list for
// (qualified name, arity) in the current frame.
func (e *Env) defineFn(name string, arity int, def ast.NodeIndex) {
	key := fnKey{name: e.qualify(name), arity: arity}
	f := e.top()
	f.fns[key] = append(f.fns[key], def)
}

// defineVar stores bytes under the qualified name in the current frame.
func (e *Env) defineVar(name string, value []byte) {
	qual := e.qualify(name)
	f := e.top()
	f.vars[qual] = append(f.vars[qual], value)
}

// lookupFn finds the newest function definition matching the identifier at
// the given arity, walking prefix candidates outward and frames newest
// first.
func (e *Env) lookupFn(name string, arity int) (ast.NodeIndex, bool) {
	for _, cand := range e.lookupCandidates(name) {
		key := fnKey{name: cand, arity: arity}
		for i := len(e.frames) - 1; i >= 0; i-- {
			if defs := e.frames[i].fns[key]; len(defs) > 0 {
				return defs[len(defs)-1], true
			}
		}
	}
	return ast.Empty, false
}

// lookupVar finds the newest variable value for the identifier under the
// same candidate walk as lookupFn.
func (e *Env) lookupVar(name string) ([]byte, bool) {
	for _, cand := range e.lookupCandidates(name) {
		for i := len(e.frames) - 1; i >= 0; i-- {
			if vals := e.frames[i].vars[cand]; len(vals) > 0 {
				return vals[len(vals)-1], true
			}
		}
	}
	return nil, false
}

// dropFn pops the newest function definition matching (name, arity); when no
// function matches and arity is zero it pops the newest variable instead.
// Reports whether anything was removed.
func (e *Env) dropFn(name string, arity int) bool {
	for _, cand := range e.lookupCandidates(name) {
		key := fnKey{name: cand, arity: arity}
		for i := len(e.frames) - 1; i >= 0; i-- {
			if defs := e.frames[i].fns[key]; len(defs) > 0 {
				e.frames[i].fns[key] = defs[:len(defs)-1]
				return true
			}
		}
	}
	if arity == 0 {
		for _, cand := range e.lookupCandidates(name) {
			for i := len(e.frames) - 1; i >= 0; i-- {
				if vals := e.frames[i].vars[cand]; len(vals) > 0 {
					e.frames[i].vars[cand] = vals[:len(vals)-1]
					return true
				}
			}
		}
	}
	return false
}

// Names returns every currently visible definition name, functions annotated
// with their arity, sorted for stable display. Used by the REPL's :env
// command.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	for _, f := range e.frames {
		for key, defs := range f.fns {
			if len(defs) > 0 {
				seen[fmt.Sprintf("%s/%d", key.name, key.arity)] = true
			}
		}
		for name, vals := range f.vars {
			if len(vals) > 0 {
				seen[name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Snapshot captures the full environment state so the REPL can roll back to
// it when an input errors part-way through mutating the environment. A deep
// copy is required (rather than recording list lengths) because drop can
// shorten definition lists, which a truncating restore could not undo.
type Snapshot struct {
	frames   []*frame
	prefixes []string
}

// Snapshot deep-copies the environment.
func (e *Env) Snapshot() *Snapshot {
	frames := make([]*frame, len(e.frames))
	for i, f := range e.frames {
		nf := newFrame()
		for key, defs := range f.fns {
			nf.fns[key] = append([]ast.NodeIndex(nil), defs...)
		}
		for name, vals := range f.vars {
			nf.vars[name] = append([][]byte(nil), vals...)
		}
		frames[i] = nf
	}
	return &Snapshot{
		frames:   frames,
		prefixes: append([]string(nil), e.prefixes...),
	}
}

// Restore replaces the environment's state with the snapshot's.
func (e *Env) Restore(s *Snapshot) {
	e.frames = s.frames
	e.prefixes = s.prefixes
}
