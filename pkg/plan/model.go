package plan

import "math"

// VarKind classifies a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Sense is a linear constraint relation.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// Variable is a bounded decision variable. Hi may be math.Inf(1).
type Variable struct {
	Name string
	Kind VarKind
	Lo   float64
	Hi   float64
}

// Constraint is one sparse linear row, tagged with the constraint family it
// belongs to for infeasibility diagnosis.
type Constraint struct {
	Family ConstraintFamily
	Name   string
	Coefs  map[int]float64
	Sense  Sense
	RHS    float64
}

// Model is the assembled mixed-integer program: minimize Obj subject to Cons
// over Vars.
type Model struct {
	Vars []Variable
	Cons []Constraint
	Obj  []float64
}

// AddVar appends a variable and returns its column index.
func (m *Model) AddVar(name string, kind VarKind, lo, hi float64) int {
	m.Vars = append(m.Vars, Variable{Name: name, Kind: kind, Lo: lo, Hi: hi})
	m.Obj = append(m.Obj, 0)
	return len(m.Vars) - 1
}

// AddCons appends a constraint row.
func (m *Model) AddCons(family ConstraintFamily, name string, coefs map[int]float64, sense Sense, rhs float64) {
	m.Cons = append(m.Cons, Constraint{Family: family, Name: name, Coefs: coefs, Sense: sense, RHS: rhs})
}

// IntegerColumns lists the indexes of integer and binary variables.
func (m *Model) IntegerColumns() []int {
	var cols []int
	for j, v := range m.Vars {
		if v.Kind != Continuous {
			cols = append(cols, j)
		}
	}
	return cols
}

// Bounds returns copies of the lower and upper bound vectors.
func (m *Model) Bounds() (lo, hi []float64) {
	lo = make([]float64, len(m.Vars))
	hi = make([]float64, len(m.Vars))
	for j, v := range m.Vars {
		lo[j] = v.Lo
		hi[j] = v.Hi
	}
	return lo, hi
}

// Objective evaluates the objective at x.
func (m *Model) Objective(x []float64) float64 {
	total := 0.0
	for j, c := range m.Obj {
		if c != 0 {
			total += c * x[j]
		}
	}
	return total
}

// inf is shorthand for an unbounded-above variable limit.
var inf = math.Inf(1)
