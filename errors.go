package presolve

import "github.com/pkg/errors"

var (
	// ErrAlreadyLoaded is returned by Load when the workspace has already been
	// loaded. A workspace accepts exactly one problem in its lifetime.
	ErrAlreadyLoaded = errors.New("workspace already loaded")

	// ErrNotLoaded is returned by operations that require a loaded workspace.
	ErrNotLoaded = errors.New("workspace not loaded")

	// ErrInfeasible is returned by Build and Postprocess after Run has
	// signalled primal or dual infeasibility.
	ErrInfeasible = errors.New("workspace flagged infeasible by presolve")

	// ErrNotBuilt is returned by Postprocess when no resultant instance has
	// been built yet, so there is no shape to check the solution against.
	ErrNotBuilt = errors.New("no resultant instance built")

	// ErrNotOptimal is returned by Postprocess when the supplied solution does
	// not match the shape of the resultant instance. Deeper verification of
	// optimality is the caller's responsibility.
	ErrNotOptimal = errors.New("solution does not fit the resultant instance")

	// ErrNoRecoveredSolution is returned by Extract before any successful
	// Postprocess call.
	ErrNoRecoveredSolution = errors.New("no recovered solution available")
)
