// Package gdump serializes an operation graph to and from JSON, using
// valyala/fastjson for both directions. A dumped graph is a snapshot a
// caller can persist between process runs (a cached loop Jacobian
// fragment, say) and reload without re-recording it.
//
// Node references inside the JSON are positional: argument {"ref": k}
// means "the k-th node in the nodes array", not that node's internal
// ID(), since HoistBefore can leave ID() out of step with emission
// order. Reloading replays nodes[0], nodes[1], ... in array order and
// every node's arguments only ever point backward, so this is always a
// valid construction order.
package gdump

import (
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/symbolicad/cgraph/graph"
)

// Encode renders h as JSON.
func Encode(h *graph.CodeHandler) ([]byte, error) {
	var a fastjson.Arena

	root := a.NewObject()
	root.Set("zeroDependent", boolValue(&a, h.ZeroDependent()))
	root.Set("independentCount", a.NewNumberInt(h.IndependentCount()))
	root.Set("nodes", encodeNodes(&a, h))
	root.Set("indexPatterns", encodeIndexPatterns(&a, h))
	root.Set("atomicNames", encodeAtomicNames(&a, h.AtomicFunctionNames()))

	return root.MarshalTo(nil), nil
}

func boolValue(a *fastjson.Arena, b bool) *fastjson.Value {
	if b {
		return a.NewTrue()
	}
	return a.NewFalse()
}

func encodeNodes(a *fastjson.Arena, h *graph.CodeHandler) *fastjson.Value {
	nodes := h.Nodes()
	pos := make(map[*graph.OperationNode]int, len(nodes))
	for i, n := range nodes {
		pos[n] = i
	}

	arr := a.NewArray()
	for i, n := range nodes {
		obj := a.NewObject()
		obj.Set("op", a.NewString(n.Op().String()))
		obj.Set("args", encodeArgs(a, n.Args(), pos))
		obj.Set("info", encodeInts(a, n.Info()))
		arr.SetArrayItem(i, obj)
	}
	return arr
}

func encodeArgs(a *fastjson.Arena, args []graph.Argument, pos map[*graph.OperationNode]int) *fastjson.Value {
	arr := a.NewArray()
	for i, arg := range args {
		obj := a.NewObject()
		if arg.IsParameter() {
			obj.Set("param", a.NewNumberFloat64(arg.ParamValue()))
		} else {
			obj.Set("ref", a.NewNumberInt(pos[arg.Node()]))
		}
		arr.SetArrayItem(i, obj)
	}
	return arr
}

func encodeInts(a *fastjson.Arena, vs []int) *fastjson.Value {
	arr := a.NewArray()
	for i, v := range vs {
		arr.SetArrayItem(i, a.NewNumberInt(v))
	}
	return arr
}

func encodeAtomicNames(a *fastjson.Arena, names map[int]string) *fastjson.Value {
	obj := a.NewObject()
	for id, name := range names {
		obj.Set(itoa(id), a.NewString(name))
	}
	return obj
}

func encodeIndexPatterns(a *fastjson.Arena, h *graph.CodeHandler) *fastjson.Value {
	arr := a.NewArray()
	for i := 0; i < h.IndexPatternCount(); i++ {
		arr.SetArrayItem(i, encodeIndexPattern(a, h.IndexPatternAt(i)))
	}
	return arr
}

func encodeIndexPattern(a *fastjson.Arena, p *graph.IndexPattern) *fastjson.Value {
	obj := a.NewObject()
	switch p.Kind {
	case graph.LinearPattern:
		obj.Set("kind", a.NewString("Linear"))
		obj.Set("slope", a.NewNumberInt(p.Slope))
		obj.Set("offset", a.NewNumberInt(p.Offset))
		obj.Set("divisor", a.NewNumberInt(p.Divisor))
	case graph.SectionedPattern:
		obj.Set("kind", a.NewString("Sectioned"))
		sections := a.NewArray()
		for i, s := range p.Sections {
			sec := a.NewObject()
			sec.Set("from", a.NewNumberInt(s.FromIter))
			sec.Set("pattern", encodeIndexPattern(a, s.Pattern))
			sections.SetArrayItem(i, sec)
		}
		obj.Set("sections", sections)
	case graph.Random1DPattern:
		obj.Set("kind", a.NewString("Random1D"))
		values := a.NewObject()
		for it, v := range p.Values {
			values.Set(itoa(it), a.NewNumberInt(v))
		}
		obj.Set("values", values)
	case graph.Random2DPattern:
		obj.Set("kind", a.NewString("Random2D"))
		obj.Set("x", encodeIndexPattern(a, p.X))
		obj.Set("z", encodeIndexPattern(a, p.Z))
	case graph.Plane2DPattern:
		obj.Set("kind", a.NewString("Plane2D"))
		obj.Set("x", encodeIndexPattern(a, p.X))
		obj.Set("z", encodeIndexPattern(a, p.Z))
	}
	return obj
}

func itoa(n int) string { return strconv.Itoa(n) }
