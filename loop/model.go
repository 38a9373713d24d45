// Package loop implements the loop model and the sparsity analyzer:
// classifying a target Jacobian's nonzero locations into loop/non-loop
// and, within a loop, indexed/non-indexed/temporary-mediated
// contributions, rendered as plain Go maps over a loop's (original,
// tape, iteration) correspondences rather than a class hierarchy of
// pattern matchers.
package loop

// Position is one (original, tape, iteration) correspondence: tape
// equation tapeEq, at iteration, corresponds to original dependent
// index original.
type Position struct {
	Original  int
	Tape      int
	Iteration int
}

// OriginalRef locates which tape equation and iteration an original
// dependent index belongs to within a loop.
type OriginalRef struct {
	TapeEq    int
	Iteration int
}

// Model is a reusable equation pattern repeated N times over an
// iteration dimension.
type Model struct {
	ID int
	N  int

	// TapeEquations maps a tape equation index to its N (original, tape,
	// iteration) correspondences, one per iteration.
	TapeEquations map[int][]Position

	// OriginalToTape maps an original dependent index to the tape
	// equation/iteration that produces it. An original index present
	// here is owned by this loop.
	OriginalToTape map[int]OriginalRef

	// Indexed[tapeJ][iteration] = originalColumn: tapeJ is an indexed
	// independent whose value, at a given iteration, is the original
	// column originalColumn.
	Indexed map[int]map[int]int

	// NonIndexed[tapeJ] = originalColumn: tapeJ is shared across every
	// iteration and always represents the same original column.
	NonIndexed map[int]int

	// Temporary[tapeJ] = tempK: tapeJ is sourced from the no-loop
	// sub-model's temporary output tempK.
	Temporary map[int]int

	// Sparsity[tapeI] = set of tapeJ columns that may be nonzero in the
	// loop's own Jacobian, keyed by a membership set for O(1) lookups.
	Sparsity map[int]map[int]bool

	// TapeIndepOrder lists every tapeJ this loop's recorded tape expects
	// as an input, in the order the tape itself was recorded with
	// (indexed, non-indexed and temporary-sourced columns interleaved
	// however the original recording interleaved them). The loop
	// Jacobian synthesizer uses this to assemble the xl vector it feeds
	// to the loop's Tape.
	TapeIndepOrder []int
}

// NewModel allocates an empty Model ready to be populated by a caller
// (typically a loop/pattern-detection pass upstream of this package).
func NewModel(id, n int) *Model {
	return &Model{
		ID:             id,
		N:              n,
		TapeEquations:  make(map[int][]Position),
		OriginalToTape: make(map[int]OriginalRef),
		Indexed:        make(map[int]map[int]int),
		NonIndexed:     make(map[int]int),
		Temporary:      make(map[int]int),
		Sparsity:       make(map[int]map[int]bool),
	}
}

// NoLoopModel is the (optional) non-repeated sub-model: every equation
// not owned by any loop, plus the subset of no-loop equations that are
// temporaries feeding loop independents.
type NoLoopModel struct {
	// TapeRowOf[originalI] = the no-loop tape's row for originalI.
	TapeRowOf map[int]int

	// TempDependsOnJ[tempK] = set of original columns the temporary's
	// own definition (its no-loop Jacobian row) depends on.
	TempDependsOnJ map[int]map[int]bool

	// TempTapeRowOf[tempK] = the no-loop tape's dependent row producing
	// temporary tempK's value, used by the synthesizer to pull tempK's
	// Forward0 value out of the no-loop tape's dependent vector.
	TempTapeRowOf map[int]int
}

// NewNoLoopModel allocates an empty NoLoopModel.
func NewNoLoopModel() *NoLoopModel {
	return &NoLoopModel{
		TapeRowOf:      make(map[int]int),
		TempDependsOnJ: make(map[int]map[int]bool),
		TempTapeRowOf:  make(map[int]int),
	}
}
