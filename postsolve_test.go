package presolve

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

// runAndBuild loads p, presolves it, and builds the resultant instance.
func runAndBuild(t *testing.T, p *Problem, kind SolutionKind) (*Workspace, *Problem) {
	t.Helper()
	ws := NewWorkspace()
	require.NoError(t, ws.Load(p, kind, true))
	require.Equal(t, RunSuccess, mustRun(t, ws, false))
	var reduced Problem
	require.NoError(t, ws.Build(&reduced))
	return ws, &reduced
}

func TestPostprocessRequiresBuild(t *testing.T) {
	p := twoByTwo()
	ws := NewWorkspace()
	require.NoError(t, ws.Load(p, SolBasic, true))
	_, err := ws.Run(false)
	require.NoError(t, err)
	assert.Equal(t, ErrNotBuilt, errors.Cause(ws.Postprocess(p)))
}

func TestPostprocessRejectsWrongShape(t *testing.T) {
	ws, _ := runAndBuild(t, twoByTwo(), SolBasic)

	bad := &Problem{}
	bad.AddCol("x", 0, 1, 0)
	bad.AddRow("r", 0, 1)
	bad.AllocSolution()
	assert.Equal(t, ErrNotOptimal, errors.Cause(ws.Postprocess(bad)))

	// Matching dimensions but no solution attached.
	_, good := runAndBuild(t, twoByTwo(), SolBasic)
	good.Solution = nil
	assert.Equal(t, ErrNotOptimal, errors.Cause(ws.Postprocess(good)))
}

// The inert problem survives presolve untouched, so recovery must hand the
// solver's solution straight back in the original numbering.
func TestRoundTripIdentity(t *testing.T) {
	orig := twoByTwo()
	ws, reduced := runAndBuild(t, twoByTwo(), SolBasic)
	require.Len(t, reduced.Rows, 2)
	require.Len(t, reduced.Cols, 2)

	// Optimum of min x+y: both rows bind at their lower bounds, x = 1, y = 0.
	sol := reduced.AllocSolution()
	sol.Objective = 1
	sol.ColValue = []float64{1, 0}
	sol.ColStatus = []SolStatus{StatusBasic, StatusLower}
	sol.RowActivity = []float64{1, 1}
	sol.RowDual = []float64{1, 0}
	sol.RowStatus = []SolStatus{StatusLower, StatusBasic}

	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	require.NotNil(t, out)
	assert.InDelta(t, 1, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{1, 0}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{1, 0}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{0, 0}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusBasic, StatusLower}, out.ColStatus)
	assert.Equal(t, []SolStatus{StatusLower, StatusBasic}, out.RowStatus)
}

// An equality singleton fixes x, the substitution leaves a second singleton,
// and the cascade empties the problem entirely. Recovery has to reconstruct
// values and duals for both rows with nothing from the solver but the empty
// solution.
//
//	min  3x + y
//	s.t. 2x = 5
//	     3 <= x + y <= 20
//	     x in [0, 4], y in [0, 10]
func TestRoundTripEqualitySingletonCascade(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 4, 3)
		y := p.AddCol("y", 0, 10, 1)
		r1 := p.AddRow("r1", 5, 5)
		r2 := p.AddRow("r2", 3, 20)
		p.AddElem(r1, x, 2)
		p.AddElem(r2, x, 1)
		p.AddElem(r2, y, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Empty(t, reduced.Rows)
	require.Empty(t, reduced.Cols)
	assert.InDelta(t, 8, reduced.ObjOffset, tol)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 8, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{2.5, 0.5}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{5, 3}, out.RowActivity, tol)
	// r2 binds y at its implied lower bound, so it carries dual 1; r1 then
	// absorbs the rest of x's objective coefficient.
	assert.InDeltaSlice(t, []float64{1, 1}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{0, 0}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusBasic, StatusBasic}, out.ColStatus)
	assert.Equal(t, []SolStatus{StatusFixed, StatusLower}, out.RowStatus)
}

// A fixed column in two rows with opposite signs shifts both row bounds; the
// rows themselves survive because singleton elimination is switched off.
//
//	min  2z + x + y
//	s.t. 4 <= z + x <= 12
//	    -1 <= -z + y <= 5
//	     z = 3, x, y in [0, 10]
func TestRoundTripFixedColumn(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		z := p.AddCol("z", 3, 3, 2)
		x := p.AddCol("x", 0, 10, 1)
		y := p.AddCol("y", 0, 10, 1)
		r1 := p.AddRow("r1", 4, 12)
		r2 := p.AddRow("r2", -1, 5)
		p.AddElem(r1, z, 1)
		p.AddElem(r1, x, 1)
		p.AddElem(r2, z, -1)
		p.AddElem(r2, y, 1)
		return p
	}

	orig := build()
	ws := NewWorkspace()
	ws.Ctrl.DelRowSingletons = false
	ws.Ctrl.DelColSingletons = false
	require.NoError(t, ws.Load(build(), SolBasic, true))
	require.Equal(t, RunSuccess, mustRun(t, ws, false))

	var reduced Problem
	require.NoError(t, ws.Build(&reduced))
	require.Len(t, reduced.Cols, 2)
	require.Len(t, reduced.Rows, 2)
	assert.InDelta(t, 1, reduced.Rows[0].Lo, tol)
	assert.InDelta(t, 9, reduced.Rows[0].Up, tol)
	assert.InDelta(t, 2, reduced.Rows[1].Lo, tol)
	assert.InDelta(t, 8, reduced.Rows[1].Up, tol)
	assert.InDelta(t, 6, reduced.ObjOffset, tol)

	// Optimum of the reduced instance: both rows bind at their lower bounds.
	sol := reduced.AllocSolution()
	sol.ColValue = []float64{1, 2}
	sol.ColStatus = []SolStatus{StatusBasic, StatusBasic}
	sol.RowActivity = []float64{1, 2}
	sol.RowDual = []float64{1, 1}
	sol.RowStatus = []SolStatus{StatusLower, StatusLower}

	require.NoError(t, ws.Postprocess(&reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 9, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{3, 1, 2}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{4, -1}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.RowDual, tol)
	// z prices out against both rows: 2 - (1*1 + (-1)*1) = 2.
	assert.InDeltaSlice(t, []float64{2, 0, 0}, out.ColDual, tol)
	assert.Equal(t, StatusFixed, out.ColStatus[0])
}

// A row only satisfiable at its maximal activity point forces every column to
// a bound. The zero dual lies inside the recovered dual range, so the row
// prices out as basic.
//
//	min  -3x - y
//	s.t. x + y >= 2
//	     x, y in [0, 1]
func TestRoundTripForcingRow(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 1, -3)
		y := p.AddCol("y", 0, 1, -1)
		r := p.AddRow("r", 2, Inf())
		p.AddElem(r, x, 1)
		p.AddElem(r, y, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Empty(t, reduced.Rows)
	require.Empty(t, reduced.Cols)
	assert.InDelta(t, -4, reduced.ObjOffset, tol)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, -4, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{2}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{0}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{-3, -1}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusUpper, StatusUpper}, out.ColStatus)
	assert.Equal(t, []SolStatus{StatusBasic}, out.RowStatus)
}

// A free column singleton in an equality row is absorbed as the row's slack,
// carrying its objective coefficient onto the row's dual; the leftover column
// then falls to the singleton and empty-column rules.
//
//	min  2x + s
//	s.t. x + s = 4
//	     x <= 3
//	     x in [0, 10], s free
func TestRoundTripImpliedSlackCascade(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 10, 2)
		s := p.AddCol("s", NegInf(), Inf(), 1)
		r1 := p.AddRow("r1", 4, 4)
		r2 := p.AddRow("r2", NegInf(), 3)
		p.AddElem(r1, x, 1)
		p.AddElem(r1, s, 1)
		p.AddElem(r2, x, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Empty(t, reduced.Rows)
	require.Empty(t, reduced.Cols)
	assert.InDelta(t, 4, reduced.ObjOffset, tol)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 4, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{0, 4}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{4, 0}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{1, 0}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{1, 0}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusLower, StatusBasic}, out.ColStatus)
	assert.Equal(t, StatusFixed, out.RowStatus[0])
}

// A bound introduced by row-bound analysis exists only in the resultant
// instance. A dual resting on it must not survive onto the original row,
// where the stated bound is slack; its share moves to the column reduced
// costs instead.
func TestRoundTripTightenedRowBound(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 1, 1)
		y := p.AddCol("y", 0, 1, 1)
		r := p.AddRow("r", -5, 1.5)
		p.AddElem(r, x, 1)
		p.AddElem(r, y, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Len(t, reduced.Rows, 1)
	assert.InDelta(t, 0, reduced.Rows[0].Lo, tol)
	assert.InDelta(t, 1.5, reduced.Rows[0].Up, tol)

	// Reduced optimum rests on the introduced lower bound with dual 1.
	sol := reduced.AllocSolution()
	sol.ColValue = []float64{0, 0}
	sol.ColStatus = []SolStatus{StatusBasic, StatusLower}
	sol.RowActivity = []float64{0}
	sol.RowDual = []float64{1}
	sol.RowStatus = []SolStatus{StatusLower}

	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 0, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{0, 0}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{0}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{0}, out.RowDual, tol)
	assert.Equal(t, []SolStatus{StatusBasic}, out.RowStatus)
	assert.InDeltaSlice(t, []float64{1, 1}, out.ColDual, tol)
}

// Forcing-row recovery with a dual range strictly above zero: the binding
// ratio sets the row dual and its column turns basic, while the dual survives
// the replay of the tightening that preceded the forcing pattern.
func TestRoundTripForcingRowNonzeroDual(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 1, 2)
		y := p.AddCol("y", 0, 1, 3)
		r := p.AddRow("r", 2, Inf())
		p.AddElem(r, x, 1)
		p.AddElem(r, y, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Empty(t, reduced.Rows)
	require.Empty(t, reduced.Cols)
	assert.InDelta(t, 5, reduced.ObjOffset, tol)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 5, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{3}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{-1, 0}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusUpper, StatusBasic}, out.ColStatus)
	assert.Equal(t, []SolStatus{StatusLower}, out.RowStatus)
}

// Interior point recovery carries values and duals but never basis statuses.
func TestPostprocessInteriorKind(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddCol("x", 0, 4, 3)
		y := p.AddCol("y", 0, 10, 1)
		r1 := p.AddRow("r1", 5, 5)
		r2 := p.AddRow("r2", 3, 20)
		p.AddElem(r1, x, 2)
		p.AddElem(r2, x, 1)
		p.AddElem(r2, y, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolInterior)
	require.Empty(t, reduced.Cols)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDeltaSlice(t, []float64{2.5, 0.5}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{0, 0}, out.ColDual, tol)
	for _, st := range out.RowStatus {
		assert.Equal(t, StatusNA, st)
	}
	for _, st := range out.ColStatus {
		assert.Equal(t, StatusNA, st)
	}
}

// Maximization is normalized away on load and restored on the way out: the
// resultant instance and the recovered solution both speak the caller's sense.
func TestRoundTripMaximize(t *testing.T) {
	build := func() *Problem {
		p := &Problem{Maximize: true}
		x := p.AddCol("x", 0, 5, 1)
		r := p.AddRow("r", NegInf(), 4)
		p.AddElem(r, x, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolBasic)
	require.Empty(t, reduced.Rows)
	require.Empty(t, reduced.Cols)
	assert.True(t, reduced.Maximize)
	assert.InDelta(t, 4, reduced.ObjOffset, tol)

	reduced.AllocSolution()
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 4, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{4}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{1}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{0}, out.ColDual, tol)
	assert.Equal(t, []SolStatus{StatusBasic}, out.ColStatus)
}

// Postprocess starts from scratch every time; feeding a different resultant
// solution must not leak anything from the previous recovery.
func TestPostprocessIsRepeatable(t *testing.T) {
	orig := twoByTwo()
	ws, reduced := runAndBuild(t, twoByTwo(), SolBasic)

	sol := reduced.AllocSolution()
	sol.ColValue = []float64{1, 0}
	sol.ColStatus = []SolStatus{StatusBasic, StatusLower}
	sol.RowDual = []float64{1, 0}
	sol.RowStatus = []SolStatus{StatusLower, StatusBasic}
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))
	assert.InDelta(t, 1, orig.Solution.Objective, tol)

	// A different (feasible, non-optimal) corner: x = 4, y = 3.
	sol = reduced.AllocSolution()
	sol.ColValue = []float64{4, 3}
	sol.ColStatus = []SolStatus{StatusUpper, StatusBasic}
	sol.RowDual = []float64{0, 0}
	sol.RowStatus = []SolStatus{StatusUpper, StatusBasic}
	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDelta(t, 7, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{4, 3}, out.ColValue, tol)
	assert.InDeltaSlice(t, []float64{7, 1}, out.RowActivity, tol)
	assert.InDeltaSlice(t, []float64{0, 0}, out.RowDual, tol)
	assert.InDeltaSlice(t, []float64{1, 1}, out.ColDual, tol)
}

// Mixed-integer recovery skips basis statuses entirely.
func TestPostprocessMixedInteger(t *testing.T) {
	build := func() *Problem {
		p := &Problem{}
		x := p.AddIntCol("x", 0, 6, 1)
		y := p.AddIntCol("y", 0, 6, 1)
		z := p.AddIntCol("z", 2, 2, 5)
		r1 := p.AddRow("r1", 3, 9)
		r2 := p.AddRow("r2", 0, 4)
		p.AddElem(r1, x, 1)
		p.AddElem(r1, y, 2)
		p.AddElem(r2, x, 1)
		p.AddElem(r2, y, -1)
		p.AddElem(r2, z, 1)
		return p
	}

	orig := build()
	ws, reduced := runAndBuild(t, build(), SolMixedInteger)
	require.Len(t, reduced.Cols, 2)

	sol := reduced.AllocSolution()
	sol.ColValue = []float64{1, 1}

	require.NoError(t, ws.Postprocess(reduced))
	require.NoError(t, ws.Extract(orig))

	out := orig.Solution
	assert.InDeltaSlice(t, []float64{1, 1, 2}, out.ColValue, tol)
	assert.InDelta(t, 12, out.Objective, tol)
	assert.InDeltaSlice(t, []float64{3, 2}, out.RowActivity, tol)
	for _, st := range out.ColStatus {
		assert.Equal(t, StatusNA, st)
	}
}
