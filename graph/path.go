package graph

// OperationPathNode records "we entered Node via its ArgIndex-th
// argument". A path is a nonempty sequence whose first element is the
// expression root and whose last element's Node is the search target;
// the ArgIndex of position k is the index, within position k-1's
// argument list, that leads to position k. Position 0's ArgIndex is
// unused (always 0).
type OperationPathNode struct {
	Node     *OperationNode
	ArgIndex int
}

// FindPaths enumerates up to maxPaths distinct argument-paths from root
// to target. It stops as soon as maxPaths paths have been found, which
// is exactly what the solver needs: it only ever asks for 2, to tell
// "exactly one path" from "ambiguous".
func (h *CodeHandler) FindPaths(root, target *OperationNode, maxPaths int) []([]OperationPathNode) {
	if maxPaths <= 0 {
		return nil
	}
	return findPathsFrom(root, target, maxPaths)
}

func findPathsFrom(node, target *OperationNode, maxPaths int) [][]OperationPathNode {
	if node == target {
		return [][]OperationPathNode{{{Node: node, ArgIndex: 0}}}
	}
	var results [][]OperationPathNode
	for i, arg := range node.args {
		child := arg.Node()
		if child == nil {
			continue // parameter argument: no subpath
		}
		remaining := maxPaths - len(results)
		if remaining <= 0 {
			break
		}
		childPaths := findPathsFrom(child, target, remaining)
		for _, cp := range childPaths {
			cp[0].ArgIndex = i
			full := make([]OperationPathNode, 0, len(cp)+1)
			full = append(full, OperationPathNode{Node: node, ArgIndex: 0})
			full = append(full, cp...)
			results = append(results, full)
			if len(results) >= maxPaths {
				return results
			}
		}
	}
	return results
}
