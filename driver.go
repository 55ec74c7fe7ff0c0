package presolve

// Run applies the ordered rule set repeatedly until a full pass changes
// nothing, the pass cap is reached, or a rule detects infeasibility. The
// thorough flag moves the MIP implied-column-bound step inside the loop,
// iterated up to Ctrl.MaxBoundIters per pass; otherwise that step runs exactly
// once after the loop. Run returns the presolve outcome; after an infeasible
// outcome the workspace must not be built or postprocessed.
func (ws *Workspace) Run(thorough bool) (RunStatus, error) {
	if ws.released || !ws.loaded {
		return RunSuccess, ErrNotLoaded
	}
	if ws.status != RunSuccess {
		return ws.status, ErrInfeasible
	}

	maxPasses := ws.Ctrl.MaxPasses
	if maxPasses <= 0 {
		// The pass cap only guards pathological inputs; each productive pass
		// removes at least one entity, so column count is a natural ceiling.
		maxPasses = len(ws.cols) + 8
	}
	maxBoundIters := ws.Ctrl.MaxBoundIters
	if maxBoundIters <= 0 {
		maxBoundIters = 16
	}

	st := RunSuccess
	for pass := 1; pass <= maxPasses; pass++ {
		ws.stats.Passes++
		inPass := 0

		type step struct {
			enabled bool
			apply   func() (int, RunStatus)
		}
		steps := []step{
			{ws.Ctrl.DelFreeRows, ws.delFreeRows},
			{ws.Ctrl.SnapBounds, ws.snapRowBounds},
			{ws.Ctrl.SnapBounds, ws.snapColBounds},
			{ws.Ctrl.DelFixedCols, ws.delFixedCols},
			{true, ws.delEmptyRows},
			{ws.Ctrl.DelRowSingletons, ws.eqRowSingletons},
			{ws.Ctrl.DelRowSingletons, ws.ineqRowSingletons},
			{true, ws.analyzeRowBounds},
			{ws.Ctrl.DelForcingRows, ws.delForcingRows},
		}
		for _, s := range steps {
			if !s.enabled {
				continue
			}
			n, rst := s.apply()
			inPass += n
			if rst != RunSuccess {
				st = rst
				break
			}
		}

		if st == RunSuccess && thorough && ws.kind == SolMixedInteger {
			for iter := 0; iter < maxBoundIters; iter++ {
				n, rst := ws.tightenImpliedColBounds()
				inPass += n
				if rst != RunSuccess {
					st = rst
					break
				}
				if n == 0 {
					break
				}
			}
		}

		if st == RunSuccess {
			n, rst := ws.delEmptyCols()
			inPass += n
			st = rst
		}
		if st == RunSuccess && ws.Ctrl.DelColSingletons {
			n, rst := ws.impliedSlackCols()
			inPass += n
			st = rst
		}
		if st == RunSuccess && ws.Ctrl.DelColSingletons {
			n, rst := ws.impliedFreeCols()
			inPass += n
			st = rst
		}

		if st != RunSuccess {
			break
		}
		if inPass == 0 {
			ws.log.Info().Int("passes", pass).
				Int("rowsDel", ws.stats.RowsDel).
				Int("colsDel", ws.stats.ColsDel).
				Int("elemsDel", ws.stats.ElemsDel).
				Msg("presolve reached a fixed point")
			break
		}
	}

	if st == RunSuccess && !thorough && ws.kind == SolMixedInteger {
		_, st = ws.tightenImpliedColBounds()
	}

	ws.status = st
	if st != RunSuccess {
		ws.log.Info().Str("status", st.String()).Msg("presolve detected infeasibility")
	}
	return st, nil
}
