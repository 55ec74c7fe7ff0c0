/*
Package presolve reduces linear and mixed-integer optimization problems before
they are handed to a solver, and reconstructs a full solution to the original
problem from a solution to the reduced one.

The reductions implemented here largely follow the techniques described by
Andersen and Andersen (1993), available at
https://www.researchgate.net/publication/220589130_Presolving_in_linear_programming.

The reductions applied in each pass, in order, are:

  - removing free rows                (no finite bound on either side)
  - snapping near-equal bounds        (row becomes equality, column becomes fixed)
  - removing fixed columns            (upper bound equals the lower bound)
  - removing empty rows               (constraint has no variables)
  - removing row singletons           (constraints that have a single variable)
  - row bound analysis                (redundant and infeasible rows, bound narrowing)
  - forcing rows                      (rows that pin every variable to a bound)
  - implied column bounds             (MIP only, optionally iterated)
  - removing empty columns
  - implied slack substitution        (column singleton in an equality row)
  - implied free column detection

Every reduction pushes a record onto a transformation log owned by the
workspace. After the reduced problem has been solved externally, Postprocess
replays the log in reverse, recomputing primal values, dual values, and basis
statuses for every eliminated row and column.

A typical session looks like:

	ws := presolve.NewWorkspace()
	if err := ws.Load(prob, presolve.SolBasic, true); err != nil {
		return err
	}
	st, err := ws.Run(true)
	if err != nil {
		return err
	}
	if st != presolve.RunSuccess {
		// infeasible; the workspace must not be built or postprocessed
		return nil
	}
	var reduced presolve.Problem
	if err := ws.Build(&reduced); err != nil {
		return err
	}
	// ... solve reduced with any external solver, fill reduced.Solution ...
	if err := ws.Postprocess(&reduced); err != nil {
		return err
	}
	if err := ws.Extract(prob); err != nil {
		return err
	}
	ws.Release()

The workspace never retains a reference to the caller's problem objects: Load
copies in, Build and Extract copy out. Independent workspaces may run in
parallel; a single workspace is not safe for concurrent use.
*/
package presolve
