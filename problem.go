package presolve

import (
	"math"

	"github.com/pkg/errors"
)

// Inf returns positive infinity, the conventional "no upper bound" marker.
func Inf() float64 { return math.Inf(1) }

// NegInf returns negative infinity, the conventional "no lower bound" marker.
func NegInf() float64 { return math.Inf(-1) }

// SolStatus classifies a row or column in a basic solution.
type SolStatus int8

const (
	StatusNA    SolStatus = iota // not available (entity removed, or non-basic solution kind)
	StatusBasic                  // basic
	StatusLower                  // non-basic at lower bound
	StatusUpper                  // non-basic at upper bound
	StatusFixed                  // non-basic, lower bound equals upper bound
	StatusFree                   // non-basic free
)

func (s SolStatus) String() string {
	switch s {
	case StatusBasic:
		return "BS"
	case StatusLower:
		return "LO"
	case StatusUpper:
		return "UP"
	case StatusFixed:
		return "FX"
	case StatusFree:
		return "FR"
	default:
		return "NA"
	}
}

// ProbRow describes one constraint of a Problem: Lo <= sum(a_j * x_j) <= Up.
// Use NegInf and Inf for missing bounds; Lo == Up denotes an equality.
type ProbRow struct {
	Name string
	Lo   float64
	Up   float64
}

// ProbCol describes one variable of a Problem, with its bounds, its objective
// coefficient, and an optional integrality requirement.
type ProbCol struct {
	Name    string
	Lo      float64
	Up      float64
	Obj     float64
	Integer bool
}

// ProbElem is one nonzero coefficient of the constraint matrix.
type ProbElem struct {
	Row int
	Col int
	Val float64
}

// Solution is the solution storage of a Problem. The presolve engine only
// writes these slots; it never reads them on the original problem.
type Solution struct {
	Objective float64

	RowActivity []float64
	RowDual     []float64
	RowStatus   []SolStatus

	ColValue  []float64
	ColDual   []float64 // reduced costs
	ColStatus []SolStatus
}

// Problem is the caller-facing problem object: a sparse constraint matrix in
// triplet form together with row and column bounds and a linear objective.
// It is the shape the engine loads from, builds the reduced instance into,
// and extracts the recovered solution into.
type Problem struct {
	Name      string
	Maximize  bool
	ObjOffset float64

	Rows  []ProbRow
	Cols  []ProbCol
	Elems []ProbElem

	Solution *Solution
}

// AddRow appends a constraint with the given bounds and returns its index.
func (p *Problem) AddRow(name string, lo, up float64) int {
	p.Rows = append(p.Rows, ProbRow{Name: name, Lo: lo, Up: up})
	return len(p.Rows) - 1
}

// AddCol appends a variable and returns its index.
func (p *Problem) AddCol(name string, lo, up, obj float64) int {
	p.Cols = append(p.Cols, ProbCol{Name: name, Lo: lo, Up: up, Obj: obj})
	return len(p.Cols) - 1
}

// AddIntCol appends an integer variable and returns its index.
func (p *Problem) AddIntCol(name string, lo, up, obj float64) int {
	p.Cols = append(p.Cols, ProbCol{Name: name, Lo: lo, Up: up, Obj: obj, Integer: true})
	return len(p.Cols) - 1
}

// AddElem appends one nonzero coefficient. Zero values are dropped.
func (p *Problem) AddElem(row, col int, val float64) {
	if val == 0 {
		return
	}
	p.Elems = append(p.Elems, ProbElem{Row: row, Col: col, Val: val})
}

// AddDenseRow appends a constraint given a dense coefficient vector, dropping
// zero coefficients, and returns the row index.
func (p *Problem) AddDenseRow(name string, lo float64, coefs []float64, up float64) int {
	row := p.AddRow(name, lo, up)
	for col, val := range coefs {
		p.AddElem(row, col, val)
	}
	return row
}

// AllocSolution attaches an empty, correctly sized Solution to the problem,
// replacing any previous one, and returns it.
func (p *Problem) AllocSolution() *Solution {
	p.Solution = &Solution{
		RowActivity: make([]float64, len(p.Rows)),
		RowDual:     make([]float64, len(p.Rows)),
		RowStatus:   make([]SolStatus, len(p.Rows)),
		ColValue:    make([]float64, len(p.Cols)),
		ColDual:     make([]float64, len(p.Cols)),
		ColStatus:   make([]SolStatus, len(p.Cols)),
	}
	return p.Solution
}

// check verifies that the triplet indices are in range.
func (p *Problem) check() error {
	for i, e := range p.Elems {
		if e.Row < 0 || e.Row >= len(p.Rows) {
			return errors.Errorf("element %d references row %d of %d", i, e.Row, len(p.Rows))
		}
		if e.Col < 0 || e.Col >= len(p.Cols) {
			return errors.Errorf("element %d references column %d of %d", i, e.Col, len(p.Cols))
		}
	}
	return nil
}
