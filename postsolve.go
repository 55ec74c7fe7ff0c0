package presolve

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

// Postprocess replays the transformation log in reverse against the supplied
// solution of the resultant instance and rebuilds a full primal/dual solution
// to the originally loaded problem inside the workspace.
//
// The caller must have verified that the solution is optimal (or, for the
// mixed-integer kind, integer feasible); only gross shape mismatches are
// detected here, reported as ErrNotOptimal. The recovered-solution buffer is
// re-derived from scratch on every call, so Postprocess may be repeated with
// different resultant solutions, for example successive MIP incumbents.
func (ws *Workspace) Postprocess(solved *Problem) error {
	if ws.released || !ws.loaded {
		return ErrNotLoaded
	}
	if ws.status != RunSuccess {
		return ErrInfeasible
	}
	if !ws.built {
		return ErrNotBuilt
	}
	if solved == nil || solved.Solution == nil {
		return errors.Wrap(ErrNotOptimal, "no solution attached")
	}
	sol := solved.Solution
	if len(solved.Rows) != len(ws.rowRef) || len(solved.Cols) != len(ws.colRef) {
		return errors.Wrapf(ErrNotOptimal, "instance is %dx%d, resultant is %dx%d",
			len(solved.Rows), len(solved.Cols), len(ws.rowRef), len(ws.colRef))
	}
	if len(sol.ColValue) != len(ws.colRef) {
		return errors.Wrap(ErrNotOptimal, "solution slices do not match the resultant shape")
	}

	sign := 1.0
	if ws.maximize {
		sign = -1.0
	}

	nr, nc := len(ws.rows), len(ws.cols)
	ws.rowAct = make([]float64, nr)
	ws.rowDual = make([]float64, nr)
	ws.rowStat = make([]SolStatus, nr)
	ws.colVal = make([]float64, nc)
	ws.colDual = make([]float64, nc)
	ws.colStat = make([]SolStatus, nc)

	// Seed the buffer with the resultant solution mapped back onto snapshot
	// indices. Duals are converted to the internal minimization sign.
	for k, ri := range ws.rowRef {
		if k < len(sol.RowDual) {
			ws.rowDual[ri] = sign * sol.RowDual[k]
		}
		if ws.kind == SolBasic && k < len(sol.RowStatus) {
			ws.rowStat[ri] = sol.RowStatus[k]
		}
	}
	for k, cj := range ws.colRef {
		ws.colVal[cj] = sol.ColValue[k]
		if ws.kind == SolBasic && k < len(sol.ColStatus) {
			ws.colStat[cj] = sol.ColStatus[k]
		}
	}

	// Replay the log newest-first. After replaying record k the buffer holds
	// a solution to the problem state that existed just before record k was
	// applied; when the loop ends it holds a solution to the loaded problem.
	for i := len(ws.recs) - 1; i >= 0; i-- {
		ws.replay(&ws.recs[i])
	}

	// Activities, reduced costs, and the objective all follow from the
	// recovered values and duals over the original adjacency; the snapshot
	// keeps every element alive for exactly this purpose.
	for _, e := range ws.elems {
		ws.rowAct[e.row] += e.val * ws.colVal[e.col]
	}
	for cj := range ws.cols {
		d := ws.origObj[cj]
		for _, ei := range ws.cols[cj].elems {
			e := ws.elems[ei]
			d -= e.val * ws.rowDual[e.row]
		}
		ws.colDual[cj] = d
	}
	ws.objVal = ws.origObjOffset
	for cj := range ws.cols {
		ws.objVal += ws.origObj[cj] * ws.colVal[cj]
	}

	ws.recovered = true
	ws.log.Info().Float64("objective", sign*ws.objVal).Msg("solution recovered")
	return nil
}

// replay applies the inverse of one record to the recovered-solution buffer.
func (ws *Workspace) replay(rec *xfRec) {
	eps := ws.Ctrl.Eps
	basic := ws.kind == SolBasic

	switch rec.kind {

	case xfFreeRow, xfRedundantRow, xfEmptyRow:
		ws.rowDual[rec.row] = 0
		if basic {
			ws.rowStat[rec.row] = StatusBasic
		}

	case xfRowSnapped, xfColSnapped, xfColTightened:
		// Transparent to value recovery; bounds were only narrowed, so the
		// recovered point satisfies the originals.

	case xfRowTightened:
		// A dual pressing on a bound this rule introduced has nothing to
		// press against once the original, wider bound is restored: it must
		// drop to zero, which shifts its share onto the reduced costs of the
		// columns (all at a bound, with the matching sign) in the final pass.
		y := ws.rowDual[rec.row]
		if y != 0 {
			act := 0.0
			for _, co := range rec.coefs {
				act += co.val * ws.colVal[co.index]
			}
			onLo := rec.loFromRow && y > 0 && scalar.EqualWithinAbs(act, rec.setLo, math.Sqrt(eps))
			onUp := rec.upFromRow && y < 0 && scalar.EqualWithinAbs(act, rec.setUp, math.Sqrt(eps))
			if onLo || onUp {
				ws.rowDual[rec.row] = 0
				if basic {
					ws.rowStat[rec.row] = StatusBasic
				}
			}
		}

	case xfFixedCol:
		ws.colVal[rec.col] = rec.val
		if basic {
			ws.colStat[rec.col] = StatusFixed
		}

	case xfEmptyCol:
		ws.colVal[rec.col] = rec.val
		if basic {
			switch {
			case rec.colLo == rec.colUp:
				ws.colStat[rec.col] = StatusFixed
			case rec.val == rec.colLo:
				ws.colStat[rec.col] = StatusLower
			case rec.val == rec.colUp:
				ws.colStat[rec.col] = StatusUpper
			default:
				ws.colStat[rec.col] = StatusFree
			}
		}

	case xfRowSingletonEq:
		// The column value was implied by the equality; the row absorbs the
		// column's reduced cost so the column prices out to zero.
		ws.colVal[rec.col] = rec.val
		d := rec.obj
		for _, co := range rec.coefs {
			if co.index != rec.row {
				d -= co.val * ws.rowDual[co.index]
			}
		}
		ws.rowDual[rec.row] = d / rec.coef
		if basic {
			ws.colStat[rec.col] = StatusBasic
			ws.rowStat[rec.row] = StatusFixed
		}

	case xfRowSingletonIneq:
		// The column survived; the row's dual is nonzero only when the
		// solution rests on the bound this row introduced.
		x := ws.colVal[rec.col]
		y := 0.0
		onLo := rec.loFromRow && scalar.EqualWithinAbs(x, rec.setLo, math.Sqrt(eps))
		onUp := rec.upFromRow && scalar.EqualWithinAbs(x, rec.setUp, math.Sqrt(eps))
		if onLo || onUp {
			d := rec.obj
			for _, co := range rec.coefs {
				if co.index != rec.row {
					d -= co.val * ws.rowDual[co.index]
				}
			}
			y = d / rec.coef
		}
		ws.rowDual[rec.row] = y
		if basic {
			if y != 0 {
				ws.colStat[rec.col] = StatusBasic
				if (onLo && rec.coef > 0) || (onUp && rec.coef < 0) {
					ws.rowStat[rec.row] = StatusLower
				} else {
					ws.rowStat[rec.row] = StatusUpper
				}
			} else {
				ws.rowStat[rec.row] = StatusBasic
			}
		}

	case xfForcingRow:
		ws.replayForcingRow(rec)

	case xfImpliedSlack:
		// x was the slack of the equality; recover it from the residual
		// activity and undo the dual shift of the objective substitution.
		rest := 0.0
		for _, co := range rec.coefs {
			rest += co.val * ws.colVal[co.index]
		}
		x := (rec.val - rest) / rec.coef
		if x < rec.colLo {
			x = rec.colLo
		}
		if x > rec.colUp {
			x = rec.colUp
		}
		ws.colVal[rec.col] = x
		ws.rowDual[rec.row] += rec.obj / rec.coef
		if basic {
			// The rule only fires on equality rows.
			ws.rowStat[rec.row] = StatusFixed
			switch {
			case scalar.EqualWithinAbs(x, rec.colLo, eps):
				ws.colStat[rec.col] = StatusLower
			case scalar.EqualWithinAbs(x, rec.colUp, eps):
				ws.colStat[rec.col] = StatusUpper
			default:
				ws.colStat[rec.col] = StatusBasic
			}
		}

	case xfImpliedFree:
		// Values are untouched: the bounds that were dropped could never
		// bind. The column prices out through its governing row.
		if basic {
			ws.colStat[rec.col] = StatusBasic
			if scalar.EqualWithinAbs(ws.rowDual[rec.row], 0, ws.Ctrl.Eps) {
				ws.rowStat[rec.row] = StatusBasic
			} else if rec.atLower {
				ws.rowStat[rec.row] = StatusLower
			} else {
				ws.rowStat[rec.row] = StatusUpper
			}
		}
	}
}

// replayForcingRow recovers every forced column's value and chooses the row
// dual so all forced columns price out with the sign their bound demands. The
// dual range is the intersection of the per-column ratio constraints; the
// column whose ratio ends up binding turns basic.
func (ws *Workspace) replayForcingRow(rec *xfRec) {
	loY, upY := NegInf(), Inf()
	loCol, upCol := -1, -1
	for fi := range rec.forced {
		f := &rec.forced[fi]
		ws.colVal[f.col] = f.val

		d := f.obj
		for _, co := range f.coefs {
			if co.index != rec.row {
				d -= co.val * ws.rowDual[co.index]
			}
		}
		ratio := d / f.coef
		// A column forced to its lower bound needs a nonnegative final
		// reduced cost, one forced to its upper bound a nonpositive one.
		wantCeiling := (f.coef > 0) == f.atLower
		if wantCeiling {
			if ratio < upY {
				upY, upCol = ratio, fi
			}
		} else {
			if ratio > loY {
				loY, loCol = ratio, fi
			}
		}
	}

	y := 0.0
	marked := -1
	switch {
	case loY > upY:
		// Degenerate dual range; land on an endpoint as a best effort.
		y, marked = loY, loCol
	case loY > 0:
		y, marked = loY, loCol
	case upY < 0:
		y, marked = upY, upCol
	}
	ws.rowDual[rec.row] = y

	if ws.kind == SolBasic {
		for fi := range rec.forced {
			f := &rec.forced[fi]
			switch {
			case fi == marked:
				ws.colStat[f.col] = StatusBasic
			case f.atLower:
				ws.colStat[f.col] = StatusLower
			default:
				ws.colStat[f.col] = StatusUpper
			}
		}
		if y == 0 {
			ws.rowStat[rec.row] = StatusBasic
		} else if rec.atLower {
			ws.rowStat[rec.row] = StatusLower
		} else {
			ws.rowStat[rec.row] = StatusUpper
		}
	}
}

// Extract copies the recovered solution into the original problem's solution
// storage, in the original row and column numbering. It fails with
// ErrNoRecoveredSolution until a Postprocess call has succeeded.
func (ws *Workspace) Extract(dst *Problem) error {
	if ws.released || !ws.loaded {
		return ErrNotLoaded
	}
	if !ws.recovered {
		return ErrNoRecoveredSolution
	}
	if len(dst.Rows) != len(ws.rows) || len(dst.Cols) != len(ws.cols) {
		return errors.Errorf("destination is %dx%d, loaded problem was %dx%d",
			len(dst.Rows), len(dst.Cols), len(ws.rows), len(ws.cols))
	}

	sign := 1.0
	if ws.maximize {
		sign = -1.0
	}

	sol := dst.AllocSolution()
	sol.Objective = sign * ws.objVal
	for ri := range ws.rows {
		sol.RowActivity[ri] = ws.rowAct[ri]
		sol.RowDual[ri] = sign * ws.rowDual[ri]
		sol.RowStatus[ri] = ws.rowStat[ri]
	}
	for cj := range ws.cols {
		sol.ColValue[cj] = ws.colVal[cj]
		sol.ColDual[cj] = sign * ws.colDual[cj]
		sol.ColStatus[cj] = ws.colStat[cj]
	}
	return nil
}
