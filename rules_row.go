package presolve

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Row-side reductions. Every rule follows the same contract: test
// applicability against the live snapshot, mutate the snapshot, push a record
// carrying the inverse data, and report how many entities it removed together
// with an infeasibility signal when one is detected.

// delFreeRows removes rows with no finite bound on either side. Such a row
// constrains nothing; its dual is zero.
func (ws *Workspace) delFreeRows() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || finite(r.lo) || finite(r.up) {
			continue
		}
		ws.pushRec(xfRec{kind: xfFreeRow, row: ri, col: -1, rowLo: r.lo, rowUp: r.up})
		ws.removeRow(ri)
		applied++
		ws.log.Debug().Str("row", ws.rowName(ri)).Msg("free row removed")
	}
	if applied > 0 {
		ws.log.Info().Int("rows", applied).Msg("free rows removed")
	}
	return applied, RunSuccess
}

// snapRowBounds converts double-sided rows whose bounds differ by less than
// the configured tolerance into true equalities.
func (ws *Workspace) snapRowBounds() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || !finite(r.lo) || !finite(r.up) || r.lo == r.up {
			continue
		}
		if !scalar.EqualWithinAbsOrRel(r.lo, r.up, ws.Ctrl.Eps, ws.Ctrl.Eps) {
			continue
		}
		ws.pushRec(xfRec{kind: xfRowSnapped, row: ri, col: -1, rowLo: r.lo, rowUp: r.up})
		mid := 0.5 * (r.lo + r.up)
		r.lo, r.up = mid, mid
		ws.dirtyRows.Set(uint(ri))
		applied++
	}
	return applied, RunSuccess
}

// delEmptyRows removes rows with no live coefficients. A zero activity must
// then satisfy the row's own bounds, otherwise the problem is infeasible.
func (ws *Workspace) delEmptyRows() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || r.nLive > 0 {
			continue
		}
		if r.lo > ws.Ctrl.Eps || r.up < -ws.Ctrl.Eps {
			ws.log.Info().Str("row", ws.rowName(ri)).
				Float64("lo", r.lo).Float64("up", r.up).
				Msg("empty row cannot hold a zero activity")
			return applied, RunPrimalInfeasible
		}
		ws.pushRec(xfRec{kind: xfEmptyRow, row: ri, col: -1, rowLo: r.lo, rowUp: r.up})
		ws.removeRow(ri)
		applied++
		ws.log.Debug().Str("row", ws.rowName(ri)).Msg("empty row removed")
	}
	return applied, RunSuccess
}

// eqRowSingletons eliminates equality rows with exactly one live column. The
// implied value fixes the column, which is then substituted out of every row
// containing it, exactly like a fixed-column removal.
func (ws *Workspace) eqRowSingletons() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || r.nLive != 1 || r.lo != r.up {
			continue
		}
		ei := ws.soleLiveElem(r.elems)
		e := ws.elems[ei]
		cj := e.col
		c := &ws.cols[cj]
		val := r.lo / e.val

		if val < c.lo-ws.Ctrl.Eps || val > c.up+ws.Ctrl.Eps {
			ws.log.Info().Str("row", ws.rowName(ri)).Str("col", ws.colName(cj)).
				Float64("value", val).
				Msg("row singleton implies a value outside the column bounds")
			return applied, RunPrimalInfeasible
		}
		if ws.kind == SolMixedInteger && c.integer &&
			!scalar.EqualWithinAbs(val, math.Round(val), ws.Ctrl.Eps) {
			ws.log.Info().Str("col", ws.colName(cj)).Float64("value", val).
				Msg("row singleton implies a fractional value for an integer column")
			return applied, RunPrimalInfeasible
		}

		ws.pushRec(xfRec{
			kind:  xfRowSingletonEq,
			row:   ri,
			col:   cj,
			rowLo: r.lo, rowUp: r.up,
			colLo: c.lo, colUp: c.up,
			val:   val,
			coef:  e.val,
			obj:   c.obj,
			coefs: ws.liveColCoefs(cj),
		})
		ws.removeRow(ri)
		ws.substituteCol(cj, val)
		applied++
		ws.log.Debug().Str("row", ws.rowName(ri)).Str("col", ws.colName(cj)).
			Float64("value", val).Msg("equality row singleton eliminated")
	}
	if applied > 0 {
		ws.log.Info().Int("count", applied).Msg("equality row singletons eliminated")
	}
	return applied, RunSuccess
}

// ineqRowSingletons eliminates inequality rows with exactly one live column by
// folding the row bound into the column bound and dropping the row.
func (ws *Workspace) ineqRowSingletons() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || r.nLive != 1 || r.lo == r.up {
			continue
		}
		ei := ws.soleLiveElem(r.elems)
		e := ws.elems[ei]
		cj := e.col
		c := &ws.cols[cj]

		// Bound on x implied by lo <= a*x <= up.
		implLo, implUp := NegInf(), Inf()
		if e.val > 0 {
			if finite(r.lo) {
				implLo = r.lo / e.val
			}
			if finite(r.up) {
				implUp = r.up / e.val
			}
		} else {
			if finite(r.up) {
				implLo = r.up / e.val
			}
			if finite(r.lo) {
				implUp = r.lo / e.val
			}
		}

		rec := xfRec{
			kind: xfRowSingletonIneq,
			row:  ri,
			col:  cj,
			rowLo: r.lo, rowUp: r.up,
			colLo: c.lo, colUp: c.up,
			coef: e.val,
			obj:  c.obj,
			coefs: ws.liveColCoefs(cj),
		}

		newLo, newUp := c.lo, c.up
		if implLo > newLo+ws.Ctrl.Eps {
			newLo = implLo
			rec.loFromRow = true
		}
		if implUp < newUp-ws.Ctrl.Eps {
			newUp = implUp
			rec.upFromRow = true
		}
		if ws.kind == SolMixedInteger && c.integer {
			newLo, newUp = roundInward(newLo, newUp, ws.Ctrl.Eps)
		}
		if newLo > newUp+ws.Ctrl.Eps {
			ws.log.Info().Str("row", ws.rowName(ri)).Str("col", ws.colName(cj)).
				Msg("row singleton empties the column bounds")
			return applied, RunPrimalInfeasible
		}

		rec.setLo, rec.setUp = newLo, newUp
		ws.pushRec(rec)
		ws.removeRow(ri)
		ws.setColBounds(cj, newLo, newUp)
		applied++
		ws.log.Debug().Str("row", ws.rowName(ri)).Str("col", ws.colName(cj)).
			Msg("inequality row singleton eliminated")
	}
	if applied > 0 {
		ws.log.Info().Int("count", applied).Msg("inequality row singletons eliminated")
	}
	return applied, RunSuccess
}

// rowActivityRange computes the interval the row activity can take given the
// current column bounds.
func (ws *Workspace) rowActivityRange(ri int) (inf, sup float64) {
	for _, ei := range ws.rows[ri].elems {
		e := ws.elems[ei]
		if e.dead {
			continue
		}
		c := ws.cols[e.col]
		if e.val > 0 {
			inf += e.val * c.lo
			sup += e.val * c.up
		} else {
			inf += e.val * c.up
			sup += e.val * c.lo
		}
	}
	return inf, sup
}

// analyzeRowBounds narrows row bounds towards the activity interval implied by
// the column bounds, removes rows whose bounds are implied entirely, and
// detects rows whose implied interval misses their stated bounds. Only rows
// flagged dirty since the previous call are revisited.
func (ws *Workspace) analyzeRowBounds() (int, RunStatus) {
	applied := 0
	for ri, ok := ws.dirtyRows.NextSet(0); ok; ri, ok = ws.dirtyRows.NextSet(ri + 1) {
		r := &ws.rows[ri]
		ws.dirtyRows.Clear(ri)
		if r.removed || r.nLive == 0 {
			continue
		}
		inf, sup := ws.rowActivityRange(int(ri))

		if inf > r.up+ws.Ctrl.Eps || sup < r.lo-ws.Ctrl.Eps {
			ws.log.Info().Str("row", ws.rowName(int(ri))).
				Float64("implLo", inf).Float64("implUp", sup).
				Msg("implied activity interval misses the row bounds")
			return applied, RunPrimalInfeasible
		}

		// Both sides implied: the row can never bind.
		if inf >= r.lo-ws.Ctrl.Eps && sup <= r.up+ws.Ctrl.Eps {
			ws.pushRec(xfRec{kind: xfRedundantRow, row: int(ri), col: -1, rowLo: r.lo, rowUp: r.up})
			ws.removeRow(int(ri))
			applied++
			ws.log.Debug().Str("row", ws.rowName(int(ri))).Msg("redundant row removed")
			continue
		}

		// Narrow a stated bound that the implied interval beats. The record
		// carries the introduced bounds and the live coefficients so replay
		// can tell a dual resting on an introduced bound from one resting on
		// an original bound.
		newLo, newUp := r.lo, r.up
		if finite(inf) && inf > newLo+ws.Ctrl.Eps {
			newLo = inf
		}
		if finite(sup) && sup < newUp-ws.Ctrl.Eps {
			newUp = sup
		}
		if newLo != r.lo || newUp != r.up {
			ws.pushRec(xfRec{
				kind: xfRowTightened,
				row:  int(ri),
				col:  -1,
				rowLo: r.lo, rowUp: r.up,
				loFromRow: newLo != r.lo,
				upFromRow: newUp != r.up,
				setLo:     newLo,
				setUp:     newUp,
				coefs:     ws.liveRowCoefs(int(ri)),
			})
			r.lo, r.up = newLo, newUp
			applied++
		}
	}
	return applied, RunSuccess
}

// delForcingRows detects rows that can only satisfy one of their bounds by
// driving every live column to a bound of its own, fixes those columns, and
// removes the row.
func (ws *Workspace) delForcingRows() (int, RunStatus) {
	applied := 0
	for ri := range ws.rows {
		r := &ws.rows[ri]
		if r.removed || r.nLive < 2 {
			continue
		}
		inf, sup := ws.rowActivityRange(ri)
		if !finite(inf) && !finite(sup) {
			continue
		}

		var atLower bool
		switch {
		case finite(inf) && finite(r.up) && scalar.EqualWithinAbs(inf, r.up, ws.Ctrl.Eps):
			// Upper bound only reachable at the minimal activity point.
			atLower = false
		case finite(sup) && finite(r.lo) && scalar.EqualWithinAbs(sup, r.lo, ws.Ctrl.Eps):
			// Lower bound only reachable at the maximal activity point.
			atLower = true
		default:
			continue
		}

		rec := xfRec{
			kind: xfForcingRow,
			row:  ri,
			col:  -1,
			rowLo: r.lo, rowUp: r.up,
			atLower: atLower,
		}
		for _, ei := range r.elems {
			e := ws.elems[ei]
			if e.dead {
				continue
			}
			c := ws.cols[e.col]
			// Minimal activity puts a>0 columns at their lower bound; maximal
			// activity mirrors that.
			toLower := (e.val > 0) != atLower
			val := c.lo
			if !toLower {
				val = c.up
			}
			if !finite(val) {
				// An infinite bound cannot participate in a forcing pattern.
				rec.forced = nil
				break
			}
			rec.forced = append(rec.forced, xfForced{
				col:     e.col,
				val:     val,
				coef:    e.val,
				lo:      c.lo,
				up:      c.up,
				obj:     c.obj,
				atLower: toLower,
				coefs:   ws.liveColCoefs(e.col),
			})
		}
		if len(rec.forced) == 0 {
			continue
		}

		ws.pushRec(rec)
		ws.removeRow(ri)
		for _, f := range rec.forced {
			ws.substituteCol(f.col, f.val)
		}
		applied++
		ws.log.Debug().Str("row", ws.rowName(ri)).
			Int("cols", len(rec.forced)).Msg("forcing row eliminated")
	}
	if applied > 0 {
		ws.log.Info().Int("rows", applied).Msg("forcing rows eliminated")
	}
	return applied, RunSuccess
}

// roundInward shrinks an integer column's bounds to the nearest integers
// inside the interval, tolerating eps of numeric noise.
func roundInward(lo, up, eps float64) (float64, float64) {
	if finite(lo) {
		lo = math.Ceil(lo - eps)
	}
	if finite(up) {
		up = math.Floor(up + eps)
	}
	return lo, up
}
