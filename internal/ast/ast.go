// Package ast defines the Wot++ abstract syntax tree as an append-only,
// index-addressed arena. Node references are integer indices into a flat
// store, never pointers, so appending never invalidates an already-issued
// handle: callers add child nodes first, collect their indices, and only
// then add (or Replace) the parent carrying those indices. Get returns by
// value, so no reference into the backing slice is ever held across an
// append that might reallocate it.
package ast

import "github.com/wotpp/wotpp/internal/token"

// NodeIndex addresses a node in a Store. It is never a pointer.
type NodeIndex int

// Empty is the sentinel used by Map.Default when there is no default arm.
const Empty NodeIndex = -1

// Kind discriminates the AST node variants.
type Kind int

const (
	KDocument Kind = iota
	KFn
	KVar
	KDrop
	KPre
	KBlock
	KMap
	KFnInvoke
	KIntrinsic
	KCodeify
	KString
	KConcat
)

func (k Kind) String() string {
	switch k {
	case KDocument:
		return "Document"
	case KFn:
		return "Fn"
	case KVar:
		return "Var"
	case KDrop:
		return "Drop"
	case KPre:
		return "Pre"
	case KBlock:
		return "Block"
	case KMap:
		return "Map"
	case KFnInvoke:
		return "FnInvoke"
	case KIntrinsic:
		return "Intrinsic"
	case KCodeify:
		return "Codeify"
	case KString:
		return "String"
	case KConcat:
		return "Concat"
	default:
		return "Unknown"
	}
}

// Arm is one (pattern, arm) pair of a Map node.
type Arm struct {
	Pattern NodeIndex
	Body    NodeIndex
}

// Node is the sum of all AST variant payloads; only the fields relevant to
// Kind are meaningful for a given node; Pos is always set.
type Node struct {
	Kind Kind
	Pos  token.Position

	// Document, Pre (contained statements), Block (leading statements)
	Stmts []NodeIndex

	// Fn, Var, FnInvoke, Intrinsic
	Name string

	// Fn: formal parameter names. FnInvoke/Intrinsic: N/A (use Args).
	Params []string

	// Fn, Var, Block (trailing expr), Codeify: body/expression
	Body NodeIndex

	// Drop: the FnInvoke-shaped target naming the definition to remove.
	Target NodeIndex

	// Pre: evaluated prefix segments, in order.
	PrefixExprs []NodeIndex

	// Map
	Scrutinee NodeIndex
	Arms      []Arm
	Default   NodeIndex

	// FnInvoke, Intrinsic: ordered argument expressions.
	Args []NodeIndex

	// Intrinsic: the name as written at the call site (== Name).
	IntrinsicRaw string

	// String: fully-decoded literal bytes.
	Value []byte

	// Concat
	Left, Right NodeIndex
}

// Store is an append-only container of Nodes, addressed by NodeIndex.
type Store struct {
	nodes []Node
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Len reports how many nodes have been added.
func (s *Store) Len() int { return len(s.nodes) }

func (s *Store) add(n Node) NodeIndex {
	idx := NodeIndex(len(s.nodes))
	s.nodes = append(s.nodes, n)
	return idx
}

// Get returns a copy of the node at idx. Because Get returns by value,
// holding the result across a later Add* or Replace on the same Store is always
// safe — there is no reference into the backing slice to go stale.
func (s *Store) Get(idx NodeIndex) Node {
	return s.nodes[idx]
}

// Replace overwrites the node at idx in place. Used to retroactively turn a
// FnInvoke into an Intrinsic once the parser recognises the callee name.
func (s *Store) Replace(idx NodeIndex, n Node) {
	s.nodes[idx] = n
}

// AddDocument appends a Document node with the given statement list.
func (s *Store) AddDocument(pos token.Position, stmts []NodeIndex) NodeIndex {
	return s.add(Node{Kind: KDocument, Pos: pos, Stmts: stmts})
}

// AddFn appends a function definition node.
func (s *Store) AddFn(pos token.Position, name string, params []string, body NodeIndex) NodeIndex {
	return s.add(Node{Kind: KFn, Pos: pos, Name: name, Params: params, Body: body})
}

// AddVar appends a variable definition node.
func (s *Store) AddVar(pos token.Position, name string, body NodeIndex) NodeIndex {
	return s.add(Node{Kind: KVar, Pos: pos, Name: name, Body: body})
}

// AddDrop appends a drop statement node.
func (s *Store) AddDrop(pos token.Position, target NodeIndex) NodeIndex {
	return s.add(Node{Kind: KDrop, Pos: pos, Target: target})
}

// AddPre appends a prefix-block node.
func (s *Store) AddPre(pos token.Position, prefixExprs []NodeIndex, stmts []NodeIndex) NodeIndex {
	return s.add(Node{Kind: KPre, Pos: pos, PrefixExprs: prefixExprs, Stmts: stmts})
}

// AddBlock appends a block node with its leading statements and mandatory
// trailing expression.
func (s *Store) AddBlock(pos token.Position, stmts []NodeIndex, trailing NodeIndex) NodeIndex {
	return s.add(Node{Kind: KBlock, Pos: pos, Stmts: stmts, Body: trailing})
}

// AddMap appends a map (pattern-dispatch) node.
func (s *Store) AddMap(pos token.Position, scrutinee NodeIndex, arms []Arm, def NodeIndex) NodeIndex {
	return s.add(Node{Kind: KMap, Pos: pos, Scrutinee: scrutinee, Arms: arms, Default: def})
}

// AddFnInvoke appends a function-call node.
func (s *Store) AddFnInvoke(pos token.Position, name string, args []NodeIndex) NodeIndex {
	return s.add(Node{Kind: KFnInvoke, Pos: pos, Name: name, Args: args})
}

// AddIntrinsic appends an intrinsic-call node directly. The parser does not
// call it: it adds a FnInvoke and rewrites it in place with Replace once the
// callee name is known to be an intrinsic.
func (s *Store) AddIntrinsic(pos token.Position, name string, args []NodeIndex) NodeIndex {
	return s.add(Node{Kind: KIntrinsic, Pos: pos, Name: name, IntrinsicRaw: name, Args: args})
}

// AddCodeify appends a codeify (`=expr`) node.
func (s *Store) AddCodeify(pos token.Position, expr NodeIndex) NodeIndex {
	return s.add(Node{Kind: KCodeify, Pos: pos, Body: expr})
}

// AddString appends a literal-string node.
func (s *Store) AddString(pos token.Position, value []byte) NodeIndex {
	return s.add(Node{Kind: KString, Pos: pos, Value: value})
}

// AddConcat appends a concatenation node.
func (s *Store) AddConcat(pos token.Position, left, right NodeIndex) NodeIndex {
	return s.add(Node{Kind: KConcat, Pos: pos, Left: left, Right: right})
}
