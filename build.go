package presolve

// Build emits the current snapshot as a fresh, densely renumbered problem
// instance into dst, overwriting whatever dst held. It may be called any
// number of times; it never mutates the snapshot or the log, so repeated
// calls without intervening mutation produce identical instances. The
// workspace remembers the emitted shape so a later Postprocess can map the
// solution back onto snapshot indices.
func (ws *Workspace) Build(dst *Problem) error {
	if ws.released || !ws.loaded {
		return ErrNotLoaded
	}
	if ws.status != RunSuccess {
		return ErrInfeasible
	}

	sign := 1.0
	if ws.maximize {
		sign = -1.0
	}

	*dst = Problem{
		Name:      ws.name,
		Maximize:  ws.maximize,
		ObjOffset: sign * ws.objOffset,
	}

	rowRef := make([]int, 0, len(ws.rows))
	rowOf := make([]int, len(ws.rows))
	for ri := range ws.rows {
		r := &ws.rows[ri]
		rowOf[ri] = -1
		if r.removed {
			continue
		}
		rowOf[ri] = len(rowRef)
		rowRef = append(rowRef, ri)
		pr := ProbRow{Lo: r.lo, Up: r.up}
		if ws.hasNames {
			pr.Name = r.name
		}
		dst.Rows = append(dst.Rows, pr)
	}

	colRef := make([]int, 0, len(ws.cols))
	colOf := make([]int, len(ws.cols))
	for cj := range ws.cols {
		c := &ws.cols[cj]
		colOf[cj] = -1
		if c.removed {
			continue
		}
		colOf[cj] = len(colRef)
		colRef = append(colRef, cj)
		pc := ProbCol{Lo: c.lo, Up: c.up, Obj: sign * c.obj, Integer: c.integer}
		if ws.hasNames {
			pc.Name = c.name
		}
		dst.Cols = append(dst.Cols, pc)
	}

	for _, e := range ws.elems {
		if e.dead {
			continue
		}
		dst.Elems = append(dst.Elems, ProbElem{Row: rowOf[e.row], Col: colOf[e.col], Val: e.val})
	}

	ws.rowRef = rowRef
	ws.colRef = colRef
	ws.built = true

	ws.log.Info().
		Int("rows", len(dst.Rows)).
		Int("cols", len(dst.Cols)).
		Int("elems", len(dst.Elems)).
		Msg("resultant instance built")
	return nil
}
