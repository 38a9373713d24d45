package gdump

import (
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/symbolicad/cgraph/diag"
	"github.com/symbolicad/cgraph/graph"
	"github.com/symbolicad/cgraph/op"
)

// Decode parses data and rebuilds a fresh CodeHandler from it. A
// structurally malformed document (missing fields, a ref pointing
// outside the built prefix, a panic surfaced from the underlying
// parser) is reported as an error rather than propagated as a panic.
func Decode(data []byte) (h *graph.CodeHandler, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = diag.FromRecover(r, diag.InvalidInput)
		}
	}()

	var p fastjson.Parser
	root, perr := p.ParseBytes(data)
	if perr != nil {
		return nil, diag.New(diag.InvalidInput, "malformed graph JSON").Wrap(perr)
	}

	zeroDependent, berr := root.Get("zeroDependent").Bool()
	if berr != nil {
		return nil, diag.New(diag.InvalidInput, "missing or invalid zeroDependent field").Wrap(berr)
	}
	h = graph.NewCodeHandler(graph.WithZeroDependent(zeroDependent))

	patterns, err := decodeIndexPatterns(root.Get("indexPatterns"))
	if err != nil {
		return nil, err
	}
	for _, pat := range patterns {
		h.ManageIndexPattern(pat)
	}

	if err := decodeAtomicNames(h, root.Get("atomicNames")); err != nil {
		return nil, err
	}

	if err := decodeNodes(h, root.Get("nodes")); err != nil {
		return nil, err
	}

	return h, nil
}

func decodeNodes(h *graph.CodeHandler, nodesV *fastjson.Value) error {
	if nodesV == nil {
		return diag.New(diag.InvalidInput, "missing nodes field")
	}
	arr, err := nodesV.Array()
	if err != nil {
		return diag.New(diag.InvalidInput, "nodes field is not an array").Wrap(err)
	}

	built := make([]*graph.OperationNode, 0, len(arr))
	for i, nv := range arr {
		code, args, info, err := decodeNode(nv, built)
		if err != nil {
			return diag.New(diag.InvalidInput, "invalid node at position %d", i).Wrap(err)
		}
		if code == op.Inv {
			built = append(built, h.NewIndependent())
			continue
		}
		n, err := h.NewNode(code, args, info...)
		if err != nil {
			return diag.New(diag.InvalidInput, "invalid node at position %d", i).Wrap(err)
		}
		built = append(built, n)
	}
	return nil
}

func decodeNode(nv *fastjson.Value, built []*graph.OperationNode) (op.Code, []graph.Argument, []int, error) {
	opName, err := nv.Get("op").StringBytes()
	if err != nil {
		return 0, nil, nil, diag.New(diag.InvalidInput, "missing op field").Wrap(err)
	}
	code, ok := op.ParseCode(string(opName))
	if !ok {
		return 0, nil, nil, diag.New(diag.UnsupportedOp, "unknown op name %q", string(opName))
	}

	var args []graph.Argument
	if argsV := nv.Get("args"); argsV != nil {
		argArr, err := argsV.Array()
		if err != nil {
			return 0, nil, nil, diag.New(diag.InvalidInput, "args field is not an array").Wrap(err)
		}
		args = make([]graph.Argument, len(argArr))
		for i, av := range argArr {
			a, err := decodeArg(av, built)
			if err != nil {
				return 0, nil, nil, err
			}
			args[i] = a
		}
	}

	var info []int
	if infoV := nv.Get("info"); infoV != nil {
		info, err = decodeInts(infoV)
		if err != nil {
			return 0, nil, nil, diag.New(diag.InvalidInput, "invalid info field").Wrap(err)
		}
	}

	return code, args, info, nil
}

func decodeArg(av *fastjson.Value, built []*graph.OperationNode) (graph.Argument, error) {
	if paramV := av.Get("param"); paramV != nil {
		f, err := paramV.Float64()
		if err != nil {
			return graph.Argument{}, diag.New(diag.InvalidInput, "invalid param value").Wrap(err)
		}
		return graph.Parameter(f), nil
	}
	refV := av.Get("ref")
	if refV == nil {
		return graph.Argument{}, diag.New(diag.InvalidInput, "argument has neither param nor ref")
	}
	idx, err := refV.Int()
	if err != nil {
		return graph.Argument{}, diag.New(diag.InvalidInput, "invalid ref value").Wrap(err)
	}
	if idx < 0 || idx >= len(built) {
		return graph.Argument{}, diag.New(diag.InvalidInput, "ref %d refers to a node not yet built", idx)
	}
	return graph.NodeArg(built[idx]), nil
}

func decodeInts(v *fastjson.Value) ([]int, error) {
	arr, err := v.Array()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(arr))
	for i, e := range arr {
		n, err := e.Int()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodeAtomicNames(h *graph.CodeHandler, v *fastjson.Value) error {
	if v == nil {
		return nil
	}
	obj, err := v.Object()
	if err != nil {
		return diag.New(diag.InvalidInput, "atomicNames field is not an object").Wrap(err)
	}
	var visitErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if visitErr != nil {
			return
		}
		id, err := strconv.Atoi(string(key))
		if err != nil {
			visitErr = diag.New(diag.InvalidInput, "invalid atomic id %q", string(key)).Wrap(err)
			return
		}
		name, err := val.StringBytes()
		if err != nil {
			visitErr = diag.New(diag.InvalidInput, "invalid atomic name for id %d", id).Wrap(err)
			return
		}
		h.AddAtomicFunctionName(id, string(name))
	})
	return visitErr
}

func decodeIndexPatterns(v *fastjson.Value) ([]*graph.IndexPattern, error) {
	if v == nil {
		return nil, nil
	}
	arr, err := v.Array()
	if err != nil {
		return nil, diag.New(diag.InvalidInput, "indexPatterns field is not an array").Wrap(err)
	}
	out := make([]*graph.IndexPattern, len(arr))
	for i, pv := range arr {
		p, err := decodeIndexPattern(pv)
		if err != nil {
			return nil, diag.New(diag.InvalidInput, "invalid index pattern at position %d", i).Wrap(err)
		}
		out[i] = p
	}
	return out, nil
}

func decodeIndexPattern(v *fastjson.Value) (*graph.IndexPattern, error) {
	kind, err := v.Get("kind").StringBytes()
	if err != nil {
		return nil, diag.New(diag.InvalidInput, "missing kind field").Wrap(err)
	}
	switch string(kind) {
	case "Linear":
		return &graph.IndexPattern{
			Kind:    graph.LinearPattern,
			Slope:   v.GetInt("slope"),
			Offset:  v.GetInt("offset"),
			Divisor: v.GetInt("divisor"),
		}, nil

	case "Sectioned":
		secArr, err := v.Get("sections").Array()
		if err != nil {
			return nil, diag.New(diag.InvalidInput, "sectioned pattern missing sections array").Wrap(err)
		}
		sections := make([]graph.Section, len(secArr))
		for i, sv := range secArr {
			inner, err := decodeIndexPattern(sv.Get("pattern"))
			if err != nil {
				return nil, err
			}
			sections[i] = graph.Section{FromIter: sv.GetInt("from"), Pattern: inner}
		}
		return &graph.IndexPattern{Kind: graph.SectionedPattern, Sections: sections}, nil

	case "Random1D":
		obj, err := v.Get("values").Object()
		if err != nil {
			return nil, diag.New(diag.InvalidInput, "random1D pattern missing values object").Wrap(err)
		}
		values := make(map[int]int)
		var visitErr error
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if visitErr != nil {
				return
			}
			it, err := strconv.Atoi(string(key))
			if err != nil {
				visitErr = err
				return
			}
			n, err := val.Int()
			if err != nil {
				visitErr = err
				return
			}
			values[it] = n
		})
		if visitErr != nil {
			return nil, diag.New(diag.InvalidInput, "invalid random1D values").Wrap(visitErr)
		}
		return &graph.IndexPattern{Kind: graph.Random1DPattern, Values: values}, nil

	case "Random2D", "Plane2D":
		x, err := decodeIndexPattern(v.Get("x"))
		if err != nil {
			return nil, err
		}
		z, err := decodeIndexPattern(v.Get("z"))
		if err != nil {
			return nil, err
		}
		return &graph.IndexPattern{Kind: patternKindFor(string(kind)), X: x, Z: z}, nil

	default:
		return nil, diag.New(diag.InvalidInput, "unknown index pattern kind %q", string(kind))
	}
}

func patternKindFor(name string) graph.PatternKind {
	if name == "Plane2D" {
		return graph.Plane2DPattern
	}
	return graph.Random2DPattern
}
