package presolve

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Column-side reductions.

// substituteCol folds a column known to take the value val into every row
// containing it, adjusts the objective offset, and removes the column.
func (ws *Workspace) substituteCol(cj int, val float64) {
	c := &ws.cols[cj]
	for _, ei := range c.elems {
		e := ws.elems[ei]
		if e.dead {
			continue
		}
		r := &ws.rows[e.row]
		if finite(r.lo) {
			r.lo -= e.val * val
		}
		if finite(r.up) {
			r.up -= e.val * val
		}
	}
	ws.objOffset += c.obj * val
	ws.removeCol(cj)
}

// snapColBounds converts columns whose bounds differ by less than the
// configured tolerance into fixed columns. Integer columns must admit an
// integer inside the snapped interval.
func (ws *Workspace) snapColBounds() (int, RunStatus) {
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || !finite(c.lo) || !finite(c.up) || c.lo == c.up {
			continue
		}
		if !scalar.EqualWithinAbsOrRel(c.lo, c.up, ws.Ctrl.Eps, ws.Ctrl.Eps) {
			continue
		}
		val := 0.5 * (c.lo + c.up)
		if ws.kind == SolMixedInteger && c.integer {
			rounded := math.Round(val)
			if rounded < c.lo-ws.Ctrl.Eps || rounded > c.up+ws.Ctrl.Eps {
				ws.log.Info().Str("col", ws.colName(cj)).
					Float64("lo", c.lo).Float64("up", c.up).
					Msg("no integer value inside the snapped column bounds")
				return applied, RunPrimalInfeasible
			}
			val = rounded
		}
		ws.pushRec(xfRec{kind: xfColSnapped, row: -1, col: cj, colLo: c.lo, colUp: c.up})
		ws.setColBounds(cj, val, val)
		applied++
	}
	return applied, RunSuccess
}

// delFixedCols removes columns whose bounds coincide, substituting the fixed
// value into every row containing them.
func (ws *Workspace) delFixedCols() (int, RunStatus) {
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || c.lo != c.up || !finite(c.lo) {
			continue
		}
		ws.pushRec(xfRec{
			kind: xfFixedCol,
			row:  -1,
			col:  cj,
			colLo: c.lo, colUp: c.up,
			val: c.lo,
			obj: c.obj,
		})
		ws.substituteCol(cj, c.lo)
		applied++
		ws.log.Debug().Str("col", ws.colName(cj)).Float64("value", c.lo).
			Msg("fixed column removed")
	}
	if applied > 0 {
		ws.log.Info().Int("cols", applied).Msg("fixed columns removed")
	}
	return applied, RunSuccess
}

// rowRangeParts accumulates the finite part of a row's activity interval
// together with the number of infinite contributions on each side, so a
// single column's contribution can be subtracted out safely.
type rowRangeParts struct {
	finLo, finUp   float64
	nInfLo, nInfUp int
}

func (ws *Workspace) rowRangeOf(ri int) rowRangeParts {
	var p rowRangeParts
	for _, ei := range ws.rows[ri].elems {
		e := ws.elems[ei]
		if e.dead {
			continue
		}
		c := ws.cols[e.col]
		loTerm, upTerm := e.val*c.lo, e.val*c.up
		if e.val < 0 {
			loTerm, upTerm = upTerm, loTerm
		}
		if finite(loTerm) {
			p.finLo += loTerm
		} else {
			p.nInfLo++
		}
		if finite(upTerm) {
			p.finUp += upTerm
		} else {
			p.nInfUp++
		}
	}
	return p
}

// minusCol returns the activity interval of the row with column cj's
// contribution removed.
func (p rowRangeParts) minusCol(a, lo, up float64) (inf, sup float64) {
	loTerm, upTerm := a*lo, a*up
	if a < 0 {
		loTerm, upTerm = upTerm, loTerm
	}
	switch {
	case finite(loTerm):
		if p.nInfLo > 0 {
			inf = NegInf()
		} else {
			inf = p.finLo - loTerm
		}
	case p.nInfLo == 1:
		inf = p.finLo
	default:
		inf = NegInf()
	}
	switch {
	case finite(upTerm):
		if p.nInfUp > 0 {
			sup = Inf()
		} else {
			sup = p.finUp - upTerm
		}
	case p.nInfUp == 1:
		sup = p.finUp
	default:
		sup = Inf()
	}
	return inf, sup
}

// impliedColRange computes the bounds on column cj implied by one row,
// given the activity range of the row's other columns.
func impliedColRange(a, rowLo, rowUp, inf, sup float64) (lo, up float64) {
	lo, up = NegInf(), Inf()
	if a > 0 {
		if finite(rowUp) && finite(inf) {
			up = (rowUp - inf) / a
		}
		if finite(rowLo) && finite(sup) {
			lo = (rowLo - sup) / a
		}
	} else {
		if finite(rowUp) && finite(inf) {
			lo = (rowUp - inf) / a
		}
		if finite(rowLo) && finite(sup) {
			up = (rowLo - sup) / a
		}
	}
	return lo, up
}

// tightenImpliedColBounds narrows each column's stated bounds to the interval
// implied by the rows containing it. MIP mode only; integer bounds are rounded
// inward. One invocation performs a single sweep over the live columns.
func (ws *Workspace) tightenImpliedColBounds() (int, RunStatus) {
	ranges := make(map[int]rowRangeParts)
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || c.nLive == 0 {
			continue
		}
		implLo, implUp := NegInf(), Inf()
		for _, ei := range c.elems {
			e := ws.elems[ei]
			if e.dead {
				continue
			}
			p, ok := ranges[e.row]
			if !ok {
				p = ws.rowRangeOf(e.row)
				ranges[e.row] = p
			}
			inf, sup := p.minusCol(e.val, c.lo, c.up)
			lo, up := impliedColRange(e.val, ws.rows[e.row].lo, ws.rows[e.row].up, inf, sup)
			implLo = math.Max(implLo, lo)
			implUp = math.Min(implUp, up)
		}

		newLo, newUp := c.lo, c.up
		if implLo > newLo+ws.Ctrl.Eps {
			newLo = implLo
		}
		if implUp < newUp-ws.Ctrl.Eps {
			newUp = implUp
		}
		if c.integer {
			newLo, newUp = roundInward(newLo, newUp, ws.Ctrl.Eps)
			if newLo < c.lo {
				newLo = c.lo
			}
			if newUp > c.up {
				newUp = c.up
			}
		}
		if newLo == c.lo && newUp == c.up {
			continue
		}
		if newLo > newUp+ws.Ctrl.Eps {
			ws.log.Info().Str("col", ws.colName(cj)).
				Float64("implLo", newLo).Float64("implUp", newUp).
				Msg("implied column bounds are empty")
			return applied, RunPrimalInfeasible
		}
		ws.pushRec(xfRec{kind: xfColTightened, row: -1, col: cj, colLo: c.lo, colUp: c.up})
		ws.setColBounds(cj, newLo, newUp)
		// Bound changes invalidate cached row ranges.
		for _, ei := range c.elems {
			if !ws.elems[ei].dead {
				delete(ranges, ws.elems[ei].row)
			}
		}
		applied++
	}
	if applied > 0 {
		ws.log.Info().Int("cols", applied).Msg("column bounds tightened by implication")
	}
	return applied, RunSuccess
}

// delEmptyCols fixes columns with no live coefficients at whichever bound the
// objective favors and removes them. A missing bound in the favored direction
// means the objective is unbounded, reported as dual infeasibility.
func (ws *Workspace) delEmptyCols() (int, RunStatus) {
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || c.nLive > 0 {
			continue
		}
		var val float64
		switch {
		case c.obj > ws.Ctrl.Eps:
			if !finite(c.lo) {
				ws.log.Info().Str("col", ws.colName(cj)).
					Msg("empty column unbounded in the improving direction")
				return applied, RunDualInfeasible
			}
			val = c.lo
		case c.obj < -ws.Ctrl.Eps:
			if !finite(c.up) {
				ws.log.Info().Str("col", ws.colName(cj)).
					Msg("empty column unbounded in the improving direction")
				return applied, RunDualInfeasible
			}
			val = c.up
		case finite(c.lo):
			val = c.lo
		case finite(c.up):
			val = c.up
		default:
			val = 0
		}
		ws.pushRec(xfRec{
			kind: xfEmptyCol,
			row:  -1,
			col:  cj,
			colLo: c.lo, colUp: c.up,
			val: val,
			obj: c.obj,
		})
		ws.objOffset += c.obj * val
		ws.removeCol(cj)
		applied++
		ws.log.Debug().Str("col", ws.colName(cj)).Float64("value", val).
			Msg("empty column removed")
	}
	return applied, RunSuccess
}

// impliedSlackCols eliminates column singletons sitting in an equality row.
// The column behaves exactly like a slack of that row: it is substituted out
// of the objective and the row is relaxed to the range its bounds allow.
func (ws *Workspace) impliedSlackCols() (int, RunStatus) {
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || c.nLive != 1 {
			continue
		}
		// The recovered slack value is a residual and need not be integral.
		if c.integer && ws.kind == SolMixedInteger {
			continue
		}
		ei := ws.soleLiveElem(c.elems)
		e := ws.elems[ei]
		ri := e.row
		r := &ws.rows[ri]
		if r.removed || r.nLive < 2 || r.lo != r.up || !finite(r.lo) {
			continue
		}
		a := e.val
		b := r.lo

		rec := xfRec{
			kind: xfImpliedSlack,
			row:  ri,
			col:  cj,
			rowLo: r.lo, rowUp: r.up,
			colLo: c.lo, colUp: c.up,
			val:  b,
			coef: a,
			obj:  c.obj,
		}
		// Live row coefficients other than the slack column, for recovering
		// the column value from the residual activity.
		for _, rei := range r.elems {
			re := ws.elems[rei]
			if re.dead || re.col == cj {
				continue
			}
			rec.coefs = append(rec.coefs, xfCoef{index: re.col, val: re.val})
		}
		ws.pushRec(rec)

		// Substitute x = (b - rest)/a into the objective.
		if c.obj != 0 {
			s := c.obj / a
			for _, co := range rec.coefs {
				ws.cols[co.index].obj -= s * co.val
			}
			ws.objOffset += s * b
		}

		// The equality relaxes to the range the column bounds allowed.
		newLo, newUp := NegInf(), Inf()
		if a > 0 {
			if finite(c.up) {
				newLo = b - a*c.up
			}
			if finite(c.lo) {
				newUp = b - a*c.lo
			}
		} else {
			if finite(c.lo) {
				newLo = b - a*c.lo
			}
			if finite(c.up) {
				newUp = b - a*c.up
			}
		}
		r.lo, r.up = newLo, newUp
		ws.removeCol(cj)
		ws.dirtyRows.Set(uint(ri))
		applied++
		ws.log.Debug().Str("col", ws.colName(cj)).Str("row", ws.rowName(ri)).
			Msg("column singleton absorbed as implied slack")
	}
	if applied > 0 {
		ws.log.Info().Int("cols", applied).Msg("implied slack columns eliminated")
	}
	return applied, RunSuccess
}

// impliedFreeCols detects column singletons whose bounds can never bind given
// their governing row, drops the bounds, and pins the row to the equality the
// objective favors. The next pass then absorbs the column as an implied slack.
func (ws *Workspace) impliedFreeCols() (int, RunStatus) {
	applied := 0
	for cj := range ws.cols {
		c := &ws.cols[cj]
		if c.removed || c.nLive != 1 {
			continue
		}
		if c.integer && ws.kind == SolMixedInteger {
			continue
		}
		ei := ws.soleLiveElem(c.elems)
		e := ws.elems[ei]
		ri := e.row
		r := &ws.rows[ri]
		if r.removed || r.nLive < 2 || r.lo == r.up {
			continue
		}
		a := e.val

		free := !finite(c.lo) && !finite(c.up)
		if !free {
			p := ws.rowRangeOf(ri)
			inf, sup := p.minusCol(a, c.lo, c.up)
			implLo, implUp := impliedColRange(a, r.lo, r.up, inf, sup)
			if implLo < c.lo-ws.Ctrl.Eps || implUp > c.up+ws.Ctrl.Eps {
				continue
			}
		}

		// The row must end up binding on the side the objective pushes the
		// column towards.
		var rhs float64
		var atLower bool
		s := c.obj / a
		switch {
		case s > ws.Ctrl.Eps:
			if !finite(r.lo) {
				ws.log.Info().Str("col", ws.colName(cj)).Str("row", ws.rowName(ri)).
					Msg("implied free column unbounded against a missing row bound")
				return applied, RunDualInfeasible
			}
			rhs, atLower = r.lo, true
		case s < -ws.Ctrl.Eps:
			if !finite(r.up) {
				ws.log.Info().Str("col", ws.colName(cj)).Str("row", ws.rowName(ri)).
					Msg("implied free column unbounded against a missing row bound")
				return applied, RunDualInfeasible
			}
			rhs, atLower = r.up, false
		case finite(r.lo):
			rhs, atLower = r.lo, true
		case finite(r.up):
			rhs, atLower = r.up, false
		default:
			// Row is free; rule 1 will dispose of it.
			continue
		}

		ws.pushRec(xfRec{
			kind: xfImpliedFree,
			row:  ri,
			col:  cj,
			rowLo: r.lo, rowUp: r.up,
			colLo: c.lo, colUp: c.up,
			coef:    a,
			obj:     c.obj,
			atLower: atLower,
		})
		c.lo, c.up = NegInf(), Inf()
		r.lo, r.up = rhs, rhs
		ws.dirtyRows.Set(uint(ri))
		applied++
		ws.log.Debug().Str("col", ws.colName(cj)).Str("row", ws.rowName(ri)).
			Msg("implied free column detected")
	}
	return applied, RunSuccess
}
