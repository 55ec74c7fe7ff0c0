package presolve

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// xfKind tags a transformation record with the rule that produced it.
type xfKind int8

const (
	xfFreeRow          xfKind = iota // row with no finite bound removed
	xfRedundantRow                   // row whose bounds are implied by column bounds
	xfEmptyRow                       // row with no live coefficients removed
	xfRowSnapped                     // near-equal row bounds snapped to an equality
	xfColSnapped                     // near-equal column bounds snapped to a fixed value
	xfFixedCol                       // fixed column substituted into its rows
	xfRowSingletonEq                 // equality row singleton, column fixed and removed
	xfRowSingletonIneq               // inequality row singleton, column bound tightened
	xfRowTightened                   // row bounds narrowed by bound analysis
	xfForcingRow                     // forcing row, all participating columns fixed
	xfColTightened                   // column bounds narrowed by implied bounds (MIP)
	xfEmptyCol                       // column with no live coefficients fixed and removed
	xfImpliedSlack                   // column singleton absorbed as slack of an equality row
	xfImpliedFree                    // column proven implied free, governing row made equality
)

func (k xfKind) String() string {
	switch k {
	case xfFreeRow:
		return "free row"
	case xfRedundantRow:
		return "redundant row"
	case xfEmptyRow:
		return "empty row"
	case xfRowSnapped:
		return "row bounds snapped"
	case xfColSnapped:
		return "column bounds snapped"
	case xfFixedCol:
		return "fixed column"
	case xfRowSingletonEq:
		return "row singleton (equality)"
	case xfRowSingletonIneq:
		return "row singleton (inequality)"
	case xfRowTightened:
		return "row bounds tightened"
	case xfForcingRow:
		return "forcing row"
	case xfColTightened:
		return "column bounds tightened"
	case xfEmptyCol:
		return "empty column"
	case xfImpliedSlack:
		return "implied slack"
	case xfImpliedFree:
		return "implied free column"
	default:
		return "unknown"
	}
}

// xfCoef is one (index, value) pair of an adjacency snapshot carried by a
// record. Whether index names a row or a column depends on the record kind.
type xfCoef struct {
	index int
	val   float64
}

// xfForced carries the per-column data of a forcing-row elimination.
type xfForced struct {
	col     int
	val     float64  // value the column was forced to
	coef    float64  // coefficient of the column in the forcing row
	lo, up  float64  // column bounds before fixing
	obj     float64  // objective coefficient at record time
	atLower bool     // forced to its lower bound
	coefs   []xfCoef // live (row, coefficient) pairs of the column at record time
}

// xfRec is one entry of the transformation log. Each record owns exactly the
// data its inverse needs; records are immutable once pushed and the log is
// replayed strictly last-to-first by Postprocess.
type xfRec struct {
	kind xfKind

	row int // snapshot row index, -1 when the record has no row
	col int // snapshot column index, -1 when the record has no column

	rowLo, rowUp float64 // row bounds before the operation
	colLo, colUp float64 // column bounds before the operation

	val  float64 // fixed/implied value, or equality right-hand side
	coef float64 // pivot coefficient a[row,col] where applicable
	obj  float64 // objective coefficient of col at record time

	// loFromRow/upFromRow flag which bound the rule actually introduced: a
	// column bound for an inequality singleton, a row bound for row-bound
	// tightening. A bound the entity already had must not absorb or shed a
	// dual during replay. setLo/setUp are the bounds the rule installed.
	loFromRow bool
	upFromRow bool
	setLo     float64
	setUp     float64

	atLower bool // which row side a forcing row binds at

	coefs  []xfCoef   // adjacency snapshot (meaning depends on kind)
	forced []xfForced // forcing-row column data
}

func (ws *Workspace) pushRec(rec xfRec) {
	ws.recs = append(ws.recs, rec)
}

// DumpLog writes a human-readable listing of the transformation log. It is a
// diagnostic aid; the format is not stable.
func (ws *Workspace) DumpLog(w io.Writer) error {
	if ws.released || !ws.loaded {
		return ErrNotLoaded
	}
	if _, err := fmt.Fprintf(w, "# %s: %d presolve operations\n", ws.name, len(ws.recs)); err != nil {
		return errors.Wrap(err, "dump failed")
	}
	for i, rec := range ws.recs {
		fmt.Fprintf(w, "%4d  %-28s", i, rec.kind.String())
		if rec.row >= 0 {
			fmt.Fprintf(w, "  row %s [%g, %g]", ws.rowName(rec.row), rec.rowLo, rec.rowUp)
		}
		if rec.col >= 0 {
			fmt.Fprintf(w, "  col %s [%g, %g]", ws.colName(rec.col), rec.colLo, rec.colUp)
		}
		switch rec.kind {
		case xfFixedCol, xfRowSingletonEq, xfEmptyCol:
			fmt.Fprintf(w, "  value %g", rec.val)
		case xfImpliedSlack:
			fmt.Fprintf(w, "  rhs %g", rec.val)
		case xfForcingRow:
			fmt.Fprintf(w, "  %d columns fixed", len(rec.forced))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return errors.Wrap(err, "dump failed")
		}
	}
	return nil
}
