package presolve

import (
	"math"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SolutionKind selects which presolve rules are eligible and how the recovered
// solution is classified. Basic solutions carry simplex statuses, interior
// point solutions carry values and duals only, and mixed-integer solutions
// carry primal values only.
type SolutionKind int

const (
	SolBasic SolutionKind = iota
	SolInterior
	SolMixedInteger
)

// RunStatus is the outcome of a presolve run.
type RunStatus int

const (
	RunSuccess RunStatus = iota
	RunPrimalInfeasible
	RunDualInfeasible
)

func (s RunStatus) String() string {
	switch s {
	case RunPrimalInfeasible:
		return "primal infeasible"
	case RunDualInfeasible:
		return "dual infeasible"
	default:
		return "success"
	}
}

// Control selects which reductions are performed and sets the numeric
// tolerances of the run. The zero value of MaxPasses and MaxBoundIters asks
// the workspace to derive a cap from the problem size at run time.
type Control struct {
	Eps           float64 // tolerance for near-equal bounds and feasibility slack
	MaxPasses     int     // maximum full rule passes, 0 = derived from column count
	MaxBoundIters int     // cap on thorough implied-bound refinement, 0 = derived

	DelFreeRows      bool // remove rows with no finite bound
	DelFixedCols     bool // remove columns whose bounds coincide
	DelRowSingletons bool // eliminate single-column rows
	DelColSingletons bool // implied slack and implied free column handling
	DelForcingRows   bool // detect and eliminate forcing rows
	SnapBounds       bool // snap near-equal double-sided bounds to equalities
}

// DefaultControl returns a Control with every reduction enabled and the
// default tolerance of 1e-9.
func DefaultControl() Control {
	return Control{
		Eps:              1e-9,
		DelFreeRows:      true,
		DelFixedCols:     true,
		DelRowSingletons: true,
		DelColSingletons: true,
		DelForcingRows:   true,
		SnapBounds:       true,
	}
}

// Stats reports the size of the reduction performed by Run.
type Stats struct {
	RowsDel  int
	ColsDel  int
	ElemsDel int
	Passes   int
}

// wsRow is one constraint in the snapshot arena. Rows are never deallocated:
// removal sets the removed flag so log records referencing the row stay valid
// for the workspace lifetime.
type wsRow struct {
	name    string
	lo, up  float64
	elems   []int // indices into Workspace.elems
	nLive   int   // live elements (dead ones are skipped when iterating)
	removed bool
}

// wsCol is one variable in the snapshot arena.
type wsCol struct {
	name    string
	lo, up  float64
	obj     float64 // objective coefficient, minimization form
	integer bool
	elems   []int
	nLive   int
	removed bool
}

// wsElem is one nonzero coefficient. Coefficient values are never modified by
// any rule; an element dies when its row or column is removed.
type wsElem struct {
	row, col int
	val      float64
	dead     bool
}

// Workspace owns a problem snapshot, a transformation log, the shape of the
// last built resultant instance, and a recovered-solution buffer. It is not
// safe for concurrent use; independent workspaces are fully independent.
type Workspace struct {
	Ctrl Control

	log zerolog.Logger

	loaded   bool
	released bool
	kind     SolutionKind
	hasNames bool

	name      string
	maximize  bool
	objOffset float64 // current offset, minimization form

	rows  []wsRow
	cols  []wsCol
	elems []wsElem

	origObj       []float64 // column objective coefficients at load time
	origObjOffset float64

	recs      []xfRec
	dirtyRows *bitset.BitSet

	status RunStatus
	stats  Stats

	// resultant shape descriptor, rebuilt by every Build
	built  bool
	rowRef []int // resultant row index -> snapshot row index
	colRef []int

	// recovered-solution buffer, rebuilt from scratch by every Postprocess
	recovered bool
	colVal    []float64
	colDual   []float64
	colStat   []SolStatus
	rowAct    []float64
	rowDual   []float64
	rowStat   []SolStatus
	objVal    float64
}

// NewWorkspace allocates an empty workspace with the default Control. Adjust
// ws.Ctrl before calling Run.
func NewWorkspace() *Workspace {
	return &Workspace{
		Ctrl: DefaultControl(),
		log:  Logger(),
	}
}

// Load copies the problem into the workspace snapshot. It may be called at
// most once per workspace; a second call fails with ErrAlreadyLoaded. The
// solution kind selects rule eligibility (implied column bounds are MIP only).
// When withNames is false, row and column names are not carried.
//
// Load retains no reference into prob after it returns.
func (ws *Workspace) Load(prob *Problem, kind SolutionKind, withNames bool) error {
	if ws.released {
		return ErrNotLoaded
	}
	if ws.loaded {
		return ErrAlreadyLoaded
	}
	if prob == nil {
		return errors.New("nil problem")
	}
	if err := prob.check(); err != nil {
		return errors.Wrap(err, "problem rejected")
	}

	ws.kind = kind
	ws.hasNames = withNames
	ws.name = prob.Name
	ws.maximize = prob.Maximize

	// The snapshot keeps the objective in minimization form so the dual sign
	// conventions of the rules are uniform. The sense is restored on the way
	// out by Build and Extract.
	sign := 1.0
	if ws.maximize {
		sign = -1.0
	}
	ws.objOffset = sign * prob.ObjOffset
	ws.origObjOffset = ws.objOffset

	ws.rows = make([]wsRow, len(prob.Rows))
	for i, r := range prob.Rows {
		ws.rows[i] = wsRow{lo: r.Lo, up: r.Up}
		if withNames {
			ws.rows[i].name = r.Name
		}
	}

	ws.cols = make([]wsCol, len(prob.Cols))
	ws.origObj = make([]float64, len(prob.Cols))
	for j, c := range prob.Cols {
		ws.cols[j] = wsCol{lo: c.Lo, up: c.Up, obj: sign * c.Obj, integer: c.Integer}
		if withNames {
			ws.cols[j].name = c.Name
		}
		ws.origObj[j] = sign * c.Obj
	}

	ws.elems = make([]wsElem, 0, len(prob.Elems))
	for _, e := range prob.Elems {
		if e.Val == 0 {
			continue
		}
		ei := len(ws.elems)
		ws.elems = append(ws.elems, wsElem{row: e.Row, col: e.Col, val: e.Val})
		ws.rows[e.Row].elems = append(ws.rows[e.Row].elems, ei)
		ws.rows[e.Row].nLive++
		ws.cols[e.Col].elems = append(ws.cols[e.Col].elems, ei)
		ws.cols[e.Col].nLive++
	}

	ws.dirtyRows = bitset.New(uint(len(ws.rows)))
	for i := range ws.rows {
		ws.dirtyRows.Set(uint(i))
	}

	ws.loaded = true
	ws.log.Info().
		Str("problem", ws.name).
		Int("rows", len(ws.rows)).
		Int("cols", len(ws.cols)).
		Int("elems", len(ws.elems)).
		Msg("problem loaded")
	return nil
}

// Release frees the snapshot, the transformation log, and all buffers. The
// workspace cannot be used afterwards.
func (ws *Workspace) Release() {
	ws.rows, ws.cols, ws.elems = nil, nil, nil
	ws.origObj = nil
	ws.recs = nil
	ws.dirtyRows = nil
	ws.rowRef, ws.colRef = nil, nil
	ws.colVal, ws.colDual, ws.colStat = nil, nil, nil
	ws.rowAct, ws.rowDual, ws.rowStat = nil, nil, nil
	ws.loaded, ws.built, ws.recovered = false, false, false
	ws.released = true
}

// Stats reports how much the last Run reduced the problem.
func (ws *Workspace) Stats() Stats { return ws.stats }

// Status reports the outcome of the last Run.
func (ws *Workspace) Status() RunStatus { return ws.status }

//------------------------------------------------------------------------------
// snapshot arena helpers
//------------------------------------------------------------------------------

func (ws *Workspace) rowName(ri int) string {
	if n := ws.rows[ri].name; n != "" {
		return n
	}
	return "R" + strconv.Itoa(ri)
}

func (ws *Workspace) colName(cj int) string {
	if n := ws.cols[cj].name; n != "" {
		return n
	}
	return "C" + strconv.Itoa(cj)
}

// killElem marks one element dead and updates the live counts on both sides.
func (ws *Workspace) killElem(ei int) {
	e := &ws.elems[ei]
	if e.dead {
		return
	}
	e.dead = true
	ws.rows[e.row].nLive--
	ws.cols[e.col].nLive--
	ws.stats.ElemsDel++
}

// removeRow marks a row removed and kills its live elements. The row record
// itself is retained for the life of the workspace.
func (ws *Workspace) removeRow(ri int) {
	r := &ws.rows[ri]
	if r.removed {
		return
	}
	for _, ei := range r.elems {
		ws.killElem(ei)
	}
	r.removed = true
	ws.stats.RowsDel++
	ws.dirtyRows.Clear(uint(ri))
}

// removeCol marks a column removed, kills its live elements, and flags every
// row it appeared in for bound re-analysis.
func (ws *Workspace) removeCol(cj int) {
	c := &ws.cols[cj]
	if c.removed {
		return
	}
	for _, ei := range c.elems {
		if !ws.elems[ei].dead {
			ws.dirtyRows.Set(uint(ws.elems[ei].row))
			ws.killElem(ei)
		}
	}
	c.removed = true
	ws.stats.ColsDel++
}

// setColBounds narrows a column's bounds and marks the rows containing it
// dirty. Bounds are only ever narrowed during a run.
func (ws *Workspace) setColBounds(cj int, lo, up float64) {
	c := &ws.cols[cj]
	if lo == c.lo && up == c.up {
		return
	}
	c.lo, c.up = lo, up
	for _, ei := range c.elems {
		if !ws.elems[ei].dead {
			ws.dirtyRows.Set(uint(ws.elems[ei].row))
		}
	}
}

// liveRowCoefs returns the live (column, coefficient) pairs of a row.
func (ws *Workspace) liveRowCoefs(ri int) []xfCoef {
	coefs := make([]xfCoef, 0, ws.rows[ri].nLive)
	for _, ei := range ws.rows[ri].elems {
		if e := ws.elems[ei]; !e.dead {
			coefs = append(coefs, xfCoef{index: e.col, val: e.val})
		}
	}
	return coefs
}

// liveColCoefs returns the live (row, coefficient) pairs of a column.
func (ws *Workspace) liveColCoefs(cj int) []xfCoef {
	coefs := make([]xfCoef, 0, ws.cols[cj].nLive)
	for _, ei := range ws.cols[cj].elems {
		if e := ws.elems[ei]; !e.dead {
			coefs = append(coefs, xfCoef{index: e.row, val: e.val})
		}
	}
	return coefs
}

// soleLiveElem returns the single live element of a singleton row or column.
func (ws *Workspace) soleLiveElem(elems []int) int {
	for _, ei := range elems {
		if !ws.elems[ei].dead {
			return ei
		}
	}
	return -1
}

// finite reports whether b is a real bound rather than an infinity marker.
func finite(b float64) bool { return !math.IsInf(b, 0) }
