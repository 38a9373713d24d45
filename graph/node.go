// Package graph implements the operation-graph arena: OperationNode,
// Argument, the CodeHandler that owns them, and the path/index-pattern
// machinery the solver and loop synthesizer build on.
package graph

import (
	"log"

	"github.com/symbolicad/cgraph/diag"
	"github.com/symbolicad/cgraph/op"
)

// Argument is either a Parameter (owns a copy of a Base value) or a
// non-owning reference to a node owned by some CodeHandler. It is never
// both and never neither.
type Argument struct {
	isParam bool
	param   float64
	node    *OperationNode
}

// Parameter builds an Argument that owns a constant Base value.
func Parameter(v float64) Argument { return Argument{isParam: true, param: v} }

// NodeArg builds a non-owning reference Argument to n.
func NodeArg(n *OperationNode) Argument { return Argument{node: n} }

func (a Argument) IsParameter() bool    { return a.isParam }
func (a Argument) ParamValue() float64  { return a.param }
func (a Argument) Node() *OperationNode { return a.node }

// OperationNode is an immutable-after-linking record: an op code, its
// ordered arguments, and op-specific integer metadata (info).
type OperationNode struct {
	id   int
	op   op.Code
	args []Argument
	info []int
}

func (n *OperationNode) ID() int          { return n.id }
func (n *OperationNode) Op() op.Code      { return n.op }
func (n *OperationNode) Args() []Argument { return n.args }
func (n *OperationNode) Info() []int      { return n.info }

// Option configures a CodeHandler at construction time.
type Option func(*CodeHandler)

// WithZeroDependent marks the handler's graph as having a dependent that
// does not use any independent; emitters consult this flag when deciding
// whether to emit a zero derivative row outright.
func WithZeroDependent(v bool) Option {
	return func(h *CodeHandler) { h.zeroDependent = v }
}

// WithVerbose turns on node-creation tracing via the standard log
// package, matching compiler.compiler's dump-on-verbose convention.
func WithVerbose(v bool) Option {
	return func(h *CodeHandler) { h.verbose = v }
}

// CodeHandler is the arena that owns every OperationNode of one graph. It
// is single-owner: nodes die when the handler dies, and Arguments never
// outlive it. Concurrent traversal of the same handler is disallowed;
// distinct handlers sharing no nodes may be used from different
// goroutines freely.
type CodeHandler struct {
	nodes         []*OperationNode
	independents  []*OperationNode
	independentOf map[*OperationNode]int
	atomicNames   map[int]string
	indexPatterns []*IndexPattern
	zeroDependent bool
	verbose       bool
	nextID        int
}

// NewCodeHandler allocates an empty handler ready to record a graph.
func NewCodeHandler(opts ...Option) *CodeHandler {
	h := &CodeHandler{
		independentOf: make(map[*OperationNode]int),
		atomicNames:   make(map[int]string),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *CodeHandler) dumpf(format string, args ...any) {
	if h.verbose {
		log.Printf(format, args...)
	}
}

// NewIndependent allocates a fresh Inv node and registers it at the next
// stable independent index.
func (h *CodeHandler) NewIndependent() *OperationNode {
	n := h.newNode(op.Inv, nil, nil)
	idx := len(h.independents)
	h.independents = append(h.independents, n)
	h.independentOf[n] = idx
	h.dumpf("handler: new independent #%d -> node #%d", idx, n.id)
	return n
}

// IndependentIndex returns n's stable position in the independent
// registry, if n is an Inv node owned by h.
func (h *CodeHandler) IndependentIndex(n *OperationNode) (int, bool) {
	idx, ok := h.independentOf[n]
	return idx, ok
}

// IndependentCount is the number of independents recorded so far.
func (h *CodeHandler) IndependentCount() int { return len(h.independents) }

// Independents returns the independent registry in stable order. The
// returned slice must not be mutated by the caller.
func (h *CodeHandler) Independents() []*OperationNode { return h.independents }

// ZeroDependent reports whether this graph's dependent never uses any
// independent (instructs emitters to emit an all-zero derivative row).
func (h *CodeHandler) ZeroDependent() bool { return h.zeroDependent }

func (h *CodeHandler) newNode(code op.Code, args []Argument, info []int) *OperationNode {
	nargs, ninfo, ok := op.Arity(code)
	if !ok {
		panic(diag.New(diag.UnsupportedOp, "unknown op code %v", code))
	}
	if nargs >= 0 && len(args) != nargs {
		panic(diag.New(diag.InvalidInput, "op %v expects %d arguments, got %d", code, nargs, len(args)))
	}
	if ninfo >= 0 && len(info) != ninfo {
		panic(diag.New(diag.InvalidInput, "op %v expects %d info slots, got %d", code, ninfo, len(info)))
	}
	if code == op.ArrayElement {
		if args[0].Node() == nil || args[0].Node().Op() != op.ArrayCreation {
			panic(diag.New(diag.InvalidInput, "ArrayElement's first argument must be an ArrayCreation node"))
		}
		if args[1].Node() == nil || args[1].Node().Op() != op.AtomicForward {
			panic(diag.New(diag.InvalidInput, "ArrayElement's second argument must be an AtomicForward node"))
		}
	}
	if code == op.ArrayCreation {
		for i, a := range args {
			if a.Node() != nil && a.Node().Op() == op.ArrayCreation {
				panic(diag.New(diag.InvalidInput, "ArrayCreation argument %d must evaluate to a scalar", i))
			}
		}
	}
	id := h.nextID
	h.nextID++
	n := &OperationNode{id: id, op: code, args: args, info: info}
	h.nodes = append(h.nodes, n)
	h.dumpf("handler: new node #%d %s (%d args)", id, code, len(args))
	return n
}

// MustNewNode allocates a node, panicking with a *diag.Error on an arity
// contract violation. Builder code (the cg package) that always presents
// fixed-arity arguments uses this; an arity mismatch there is a bug, not
// a recoverable runtime condition, matching the debug-build-assertion
// treatment of InvalidInput in the error taxonomy.
func (h *CodeHandler) MustNewNode(code op.Code, args []Argument, info ...int) *OperationNode {
	return h.newNode(code, args, info)
}

// NewNode allocates a node, reporting an arity contract violation as an
// error instead of panicking, for callers (e.g. the loop synthesizer)
// that build nodes from externally computed shapes.
func (h *CodeHandler) NewNode(code op.Code, args []Argument, info ...int) (n *OperationNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = diag.FromRecover(r, diag.InvalidInput)
		}
	}()
	n = h.newNode(code, args, info)
	return n, nil
}

// AddAtomicFunctionName registers id -> name, overwriting any previous
// binding. It reports whether an id was already bound.
func (h *CodeHandler) AddAtomicFunctionName(id int, name string) bool {
	_, existed := h.atomicNames[id]
	h.atomicNames[id] = name
	return existed
}

// AddAtomicFunctionNames installs many bindings at once, skipping blank
// names.
func (h *CodeHandler) AddAtomicFunctionNames(names map[int]string) {
	for id, name := range names {
		if name == "" {
			continue
		}
		h.atomicNames[id] = name
	}
}

// AtomicFunctionName looks up a previously registered atomic name, used
// only for diagnostic messages.
func (h *CodeHandler) AtomicFunctionName(id int) (string, bool) {
	name, ok := h.atomicNames[id]
	return name, ok
}

// AtomicFunctionNames returns a copy of every registered atomic
// id->name binding, for serialization.
func (h *CodeHandler) AtomicFunctionNames() map[int]string {
	out := make(map[int]string, len(h.atomicNames))
	for id, name := range h.atomicNames {
		out[id] = name
	}
	return out
}

// IndexPatternCount is the number of patterns registered so far via
// ManageIndexPattern.
func (h *CodeHandler) IndexPatternCount() int { return len(h.indexPatterns) }

// ManageIndexPattern transfers ownership of p to the handler for the
// remainder of its lifetime and returns its stable index, used to
// reference the pattern from a node's info slots (info holds only
// integers).
func (h *CodeHandler) ManageIndexPattern(p *IndexPattern) int {
	id := len(h.indexPatterns)
	h.indexPatterns = append(h.indexPatterns, p)
	return id
}

// IndexPatternAt looks up a pattern previously registered by
// ManageIndexPattern.
func (h *CodeHandler) IndexPatternAt(id int) *IndexPattern { return h.indexPatterns[id] }

// ResetNodes is a no-op placeholder: every traversal in this module
// keeps its own out-of-band, node-id-keyed scratch map rather than
// mutating node fields, so there is no shared scratch state to clear
// between traversals. Calling it is always safe.
func (h *CodeHandler) ResetNodes() {}

// Nodes returns every node recorded so far, in current emission order.
// The slice is owned by the handler; callers must not retain it across
// a call to HoistBefore.
func (h *CodeHandler) Nodes() []*OperationNode { return h.nodes }

// HoistBefore moves the nodes named by ids to just before the node
// named beforeID, preserving the relative order both of the hoisted
// nodes and of everything left behind. Node identity (ID()) is
// unaffected; only emission order changes. Used by the loop
// synthesizer to relocate loop-invariant expressions ahead of a
// LoopStart node.
func (h *CodeHandler) HoistBefore(beforeID int, ids []int) {
	if len(ids) == 0 {
		return
	}
	hoist := make(map[int]bool, len(ids))
	for _, id := range ids {
		hoist[id] = true
	}
	var hoisted []*OperationNode
	rest := make([]*OperationNode, 0, len(h.nodes))
	for _, n := range h.nodes {
		if hoist[n.id] {
			hoisted = append(hoisted, n)
			continue
		}
		rest = append(rest, n)
	}
	out := make([]*OperationNode, 0, len(h.nodes))
	for _, n := range rest {
		if n.id == beforeID {
			out = append(out, hoisted...)
		}
		out = append(out, n)
	}
	h.nodes = out
}
