package plan

import (
	"math"
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpIterLimit
)

type lpResult struct {
	Status lpStatus
	Obj    float64
	X      []float64
	Iters  int

	// Filled on infeasibility: the family and name of a constraint row that
	// phase one could not satisfy.
	BadFamily ConstraintFamily
	BadRow    string
}

const (
	pivotTol    = 1e-9
	feasTol     = 1e-7
	blandAfter  = 5000
	maxLPPivots = 200000
)

// solveLP solves the continuous relaxation of m with the variable bounds
// replaced by lo/hi (branch-and-bound nodes tighten them). Two-phase dense
// simplex; Dantzig pricing with a Bland fallback against cycling.
func solveLP(m *Model, lo, hi []float64) lpResult {
	n := len(m.Vars)
	for j := 0; j < n; j++ {
		if lo[j] > hi[j]+pivotTol {
			return lpResult{Status: lpInfeasible}
		}
	}

	// Shift every variable to y = x - lo >= 0. Finite upper bounds become
	// explicit rows so node bound changes need no special casing.
	type row struct {
		coefs  map[int]float64
		sense  Sense
		rhs    float64
		family ConstraintFamily
		name   string
	}
	rows := make([]row, 0, len(m.Cons)+n)
	for _, c := range m.Cons {
		rhs := c.RHS
		for j, a := range c.Coefs {
			rhs -= a * lo[j]
		}
		rows = append(rows, row{coefs: c.Coefs, sense: c.Sense, rhs: rhs, family: c.Family, name: c.Name})
	}
	for j := 0; j < n; j++ {
		if !math.IsInf(hi[j], 1) {
			rows = append(rows, row{
				coefs: map[int]float64{j: 1},
				sense: LE,
				rhs:   hi[j] - lo[j],
			})
		}
	}

	nrows := len(rows)
	// Column layout: structural | slack+surplus | artificial | rhs.
	slackStart := n
	nslack := 0
	for _, r := range rows {
		if r.sense != EQ {
			nslack++
		}
	}
	artStart := slackStart + nslack
	nart := 0
	for _, r := range rows {
		if r.sense == EQ || (r.sense == GE && r.rhs >= 0) || (r.sense == LE && r.rhs < 0) {
			nart++
		}
	}
	ncols := artStart + nart
	tab := make([][]float64, nrows)
	basis := make([]int, nrows)
	isArt := make([]bool, ncols)

	slackIdx := slackStart
	artIdx := artStart
	for i, r := range rows {
		tab[i] = make([]float64, ncols+1)
		neg := r.rhs < 0
		sense := r.sense
		rhs := r.rhs
		if neg {
			rhs = -rhs
			switch sense {
			case LE:
				sense = GE
			case GE:
				sense = LE
			}
		}
		for j, a := range r.coefs {
			if neg {
				a = -a
			}
			tab[i][j] += a
		}
		tab[i][ncols] = rhs

		switch sense {
		case LE:
			tab[i][slackIdx] = 1
			basis[i] = slackIdx
			slackIdx++
		case GE:
			tab[i][slackIdx] = -1
			slackIdx++
			tab[i][artIdx] = 1
			isArt[artIdx] = true
			basis[i] = artIdx
			artIdx++
		case EQ:
			tab[i][artIdx] = 1
			isArt[artIdx] = true
			basis[i] = artIdx
			artIdx++
		}
	}

	res := lpResult{}

	// Phase one: minimize the artificial total.
	phase1 := make([]float64, ncols)
	for j := artStart; j < artIdx; j++ {
		phase1[j] = 1
	}
	status := pivotLoop(tab, basis, phase1, nil, &res.Iters)
	if status == lpIterLimit {
		return lpResult{Status: lpIterLimit, Iters: res.Iters}
	}
	infeasSum := 0.0
	for i, b := range basis {
		if b < ncols && isArt[b] {
			infeasSum += tab[i][ncols]
		}
	}
	if infeasSum > feasTol {
		res.Status = lpInfeasible
		for i, b := range basis {
			if isArt[b] && tab[i][ncols] > feasTol && i < len(m.Cons) {
				res.BadFamily = m.Cons[i].Family
				res.BadRow = m.Cons[i].Name
				break
			}
		}
		return res
	}

	// Drive basic artificials (at zero) out of the basis; inert rows keep
	// theirs and can never become positive because every structural
	// coefficient in them is zero.
	for i, b := range basis {
		if !isArt[b] {
			continue
		}
		for j := 0; j < artStart; j++ {
			if math.Abs(tab[i][j]) > pivotTol {
				pivot(tab, basis, i, j)
				break
			}
		}
	}

	// Phase two: original costs on the shifted variables.
	phase2 := make([]float64, ncols)
	for j := 0; j < n; j++ {
		phase2[j] = m.Obj[j]
	}
	blocked := isArt
	status = pivotLoop(tab, basis, phase2, blocked, &res.Iters)
	switch status {
	case lpUnbounded:
		return lpResult{Status: lpUnbounded, Iters: res.Iters}
	case lpIterLimit:
		return lpResult{Status: lpIterLimit, Iters: res.Iters}
	}

	x := make([]float64, n)
	copy(x, lo)
	for i, b := range basis {
		if b < n {
			x[b] = lo[b] + tab[i][ncols]
		}
	}
	res.Status = lpOptimal
	res.X = x
	res.Obj = m.Objective(x)
	return res
}

// pivotLoop runs primal simplex to optimality for the given cost vector.
// blocked columns never enter the basis.
func pivotLoop(tab [][]float64, basis []int, cost []float64, blocked []bool, iters *int) lpStatus {
	nrows := len(tab)
	if nrows == 0 {
		return lpOptimal
	}
	ncols := len(tab[0]) - 1

	reduced := make([]float64, ncols)
	for {
		if *iters >= maxLPPivots {
			return lpIterLimit
		}
		bland := *iters >= blandAfter

		// Reduced costs r_j = c_j - c_B . column_j.
		for j := 0; j < ncols; j++ {
			reduced[j] = cost[j]
		}
		for i, b := range basis {
			cb := cost[b]
			if cb == 0 {
				continue
			}
			for j := 0; j < ncols; j++ {
				if tab[i][j] != 0 {
					reduced[j] -= cb * tab[i][j]
				}
			}
		}

		enter := -1
		best := -pivotTol
		for j := 0; j < ncols; j++ {
			if blocked != nil && blocked[j] {
				continue
			}
			if reduced[j] < best {
				enter = j
				if bland {
					break
				}
				best = reduced[j]
			}
		}
		if enter == -1 {
			return lpOptimal
		}

		leave := -1
		bestRatio := math.Inf(1)
		for i := 0; i < nrows; i++ {
			a := tab[i][enter]
			if a > pivotTol {
				ratio := tab[i][ncols] / a
				if ratio < bestRatio-pivotTol || (ratio < bestRatio+pivotTol && (leave == -1 || basis[i] < basis[leave])) {
					bestRatio = ratio
					leave = i
				}
			}
		}
		if leave == -1 {
			return lpUnbounded
		}

		pivot(tab, basis, leave, enter)
		*iters++
	}
}

// pivot makes column enter basic in row leave.
func pivot(tab [][]float64, basis []int, leave, enter int) {
	width := len(tab[0])
	p := tab[leave][enter]
	for j := 0; j < width; j++ {
		tab[leave][j] /= p
	}
	tab[leave][enter] = 1
	for i := range tab {
		if i == leave {
			continue
		}
		f := tab[i][enter]
		if f == 0 {
			continue
		}
		for j := 0; j < width; j++ {
			tab[i][j] -= f * tab[leave][j]
		}
		tab[i][enter] = 0
	}
	basis[leave] = enter
}
