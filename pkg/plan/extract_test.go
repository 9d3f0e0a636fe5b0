package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorFor renders a greedy plan into the model's variable space, giving
// extraction tests a known-good input.
func vectorFor(t *testing.T, pm *PlanModel) []float64 {
	t.Helper()
	decisions, ok := greedyPlan(pm.Problem)
	require.True(t, ok)
	trajectory, err := Replay(pm.Problem, decisions)
	require.NoError(t, err)
	return solutionVector(pm, decisions, trajectory)
}

func TestExtractSolutionRoundTrips(t *testing.T) {
	p := newTestProblem()
	pm, err := BuildModel(p)
	require.NoError(t, err)
	x := vectorFor(t, pm)

	sol, err := extractSolution(pm, x)
	require.NoError(t, err)
	require.Len(t, sol.Decisions, p.Horizon)
	require.Len(t, sol.Records, p.Horizon)

	assert.Equal(t, 5, totalBatches(sol.Decisions))
	assert.True(t, sol.Cost.Operational.Equal(dec("250")))
	assert.True(t, sol.Cost.Purchase.IsZero())
	assert.True(t, sol.Cost.Total.Equal(dec("250")))
}

func TestExtractSolutionRejectsFractionalBatches(t *testing.T) {
	p := newTestProblem()
	pm, err := BuildModel(p)
	require.NoError(t, err)
	x := vectorFor(t, pm)

	for _, col := range pm.Batches {
		if x[col] > 0 {
			x[col] += 0.4
			break
		}
	}
	_, err = extractSolution(pm, x)
	require.Error(t, err)
	var vm *ValidationMismatchError
	require.ErrorAs(t, err, &vm)
}

func TestExtractSolutionRejectsInvalidSchedule(t *testing.T) {
	p := newTestProblem()
	pm, err := BuildModel(p)
	require.NoError(t, err)
	x := vectorFor(t, pm)

	// Zeroing the production leaves the demand at hour 32 uncovered; replay
	// must refuse the schedule.
	for _, col := range pm.Batches {
		x[col] = 0
	}
	_, err = extractSolution(pm, x)
	require.Error(t, err)
	var vm *ValidationMismatchError
	require.ErrorAs(t, err, &vm)
	var ie *InfeasibleError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, FamilyDemand, ie.Family)
}

func TestExtractSolutionRecords(t *testing.T) {
	p := newTestProblem()
	pm, err := BuildModel(p)
	require.NoError(t, err)

	sol, err := extractSolution(pm, vectorFor(t, pm))
	require.NoError(t, err)

	producingHours := 0
	for _, rec := range sol.Records {
		act := rec.Equipment["E1"]
		if act.Phase == PhaseProducing {
			producingHours++
			assert.Equal(t, FormulaID("F1"), act.Formula)
			assert.Equal(t, 50, act.Quantity)
		} else {
			assert.Zero(t, act.Quantity)
		}
	}
	assert.Equal(t, 1, producingHours, "50 units fit in a single hour at capacity 50")

	// Records carry the stock snapshot at the start of the following hour.
	assert.True(t, sol.Records[31].Stock["P1"].IsZero(), "demand consumed entering hour 32")
}

func TestSolveStatusString(t *testing.T) {
	assert.Equal(t, "OPTIMAL", StatusOptimal.String())
	assert.Equal(t, "FEASIBLE", StatusFeasible.String())
	assert.Equal(t, "INFEASIBLE", StatusInfeasible.String())
}
