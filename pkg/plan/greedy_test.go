package plan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalBatches(decisions []HourDecision) int {
	total := 0
	for _, d := range decisions {
		for _, a := range d.Assignments {
			total += a.Quantity / BatchSize
		}
	}
	return total
}

func totalPurchased(decisions []HourDecision, m MaterialID) decimal.Decimal {
	total := decimal.Zero
	for _, d := range decisions {
		for _, po := range d.Purchases {
			if po.Material == m {
				total = total.Add(po.Quantity)
			}
		}
	}
	return total
}

func TestGreedyPlanCoversDemand(t *testing.T) {
	p := newTestProblem()
	decisions, ok := greedyPlan(p)
	require.True(t, ok)
	require.Len(t, decisions, p.Horizon)

	_, err := Replay(p, decisions)
	require.NoError(t, err)

	assert.Equal(t, 5, totalBatches(decisions))
	assert.True(t, totalPurchased(decisions, "M1").IsZero(), "initial stock covers consumption")
}

func TestGreedyPlanSplitsAcrossUnits(t *testing.T) {
	p := newTwoLineProblem()
	decisions, ok := greedyPlan(p)
	require.True(t, ok)

	_, err := Replay(p, decisions)
	require.NoError(t, err)

	used := map[EquipmentID]bool{}
	for _, d := range decisions {
		for _, a := range d.Assignments {
			used[a.Equipment] = true
		}
	}
	assert.True(t, used["E1"] && used["E2"], "neither unit alone can make 80 batches before the deadline")
	assert.Equal(t, 80, totalBatches(decisions))
}

func TestGreedyPlanBuysJustInTime(t *testing.T) {
	p := newTestProblem()
	p.Materials[0].InitialStock = dec("0")

	decisions, ok := greedyPlan(p)
	require.True(t, ok)
	_, err := Replay(p, decisions)
	require.NoError(t, err)

	bought := totalPurchased(decisions, "M1")
	assert.True(t, bought.GreaterThanOrEqual(dec("150")), "five batches consume 150 units, got %s", bought)
	for _, d := range decisions {
		for _, po := range d.Purchases {
			assert.True(t, p.Window.Operable(po.Hour), "purchase at closed hour %d", po.Hour)
		}
	}
}

func TestGreedyPlanTopsUpSafetyStock(t *testing.T) {
	p := newTestProblem()
	p.Materials[0].SafetyStock = dec("400")

	decisions, ok := greedyPlan(p)
	require.True(t, ok)
	trajectory, err := Replay(p, decisions)
	require.NoError(t, err)

	end := trajectory[p.Horizon].Stock["M1"]
	assert.True(t, end.GreaterThanOrEqual(dec("400")), "ends at %s", end)
	assert.True(t, totalPurchased(decisions, "M1").GreaterThanOrEqual(dec("50")))
}

func TestGreedyPlanRespectsRunLimit(t *testing.T) {
	p := newTestProblem()
	p.Equipment[0].MaxRunHours = 2
	p.Products[0].Demand = []decimal.Decimal{dec("400")}
	p.Materials[0].InitialStock = dec("1200")

	decisions, ok := greedyPlan(p)
	require.True(t, ok, "40 batches fit: 2 of every 3 operable hours at 5 batches each")
	_, err := Replay(p, decisions)
	require.NoError(t, err)
	assert.Equal(t, 40, totalBatches(decisions))
}

func TestGreedyPlanReportsFailure(t *testing.T) {
	p := newTestProblem()
	p.Products[0].Demand = []decimal.Decimal{dec("2000")}
	p.Materials[0].InitialStock = dec("6000")

	_, ok := greedyPlan(p)
	assert.False(t, ok)
}

func TestBatchesFor(t *testing.T) {
	assert.EqualValues(t, 0, batchesFor(dec("-30")))
	assert.EqualValues(t, 0, batchesFor(decimal.Zero))
	assert.EqualValues(t, 1, batchesFor(dec("1")))
	assert.EqualValues(t, 1, batchesFor(dec("10")))
	assert.EqualValues(t, 2, batchesFor(dec("10.5")))
	assert.EqualValues(t, 5, batchesFor(dec("50")))
}
