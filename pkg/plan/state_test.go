package plan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advanceEmpty(t *testing.T, p *Problem, s *ScheduleState, hours int) {
	t.Helper()
	for i := 0; i < hours; i++ {
		require.NoError(t, s.Advance(p, HourDecision{}))
	}
}

func produce(e EquipmentID, f FormulaID, qty int) HourDecision {
	return HourDecision{Assignments: []ProductionAssignment{{Equipment: e, Formula: f, Quantity: qty}}}
}

func requireInfeasible(t *testing.T, err error, family ConstraintFamily) *InfeasibleError {
	t.Helper()
	require.Error(t, err)
	var ie *InfeasibleError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, family, ie.Family)
	return ie
}

func TestAdvanceProductionOutputLandsNextHour(t *testing.T) {
	p := newTestProblem()
	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 8)

	require.NoError(t, s.Advance(p, produce("E1", "F1", 50)))
	assert.Equal(t, 9, s.Hour)
	assert.True(t, s.Stock["P1"].Equal(dec("50")))
	assert.True(t, s.Stock["M1"].Equal(dec("350")), "3 units of M1 per unit of P1")
	assert.Equal(t, PhaseProducing, s.Equipment["E1"].Phase)
	assert.Equal(t, 1, s.Equipment["E1"].RunHours)
}

func TestAdvancePurchaseLeadTime(t *testing.T) {
	p := newTestProblem()
	p.LeadTime = 2
	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 8)

	d := HourDecision{Purchases: []PurchaseOrder{{Material: "M1", Quantity: dec("100"), Hour: 8}}}
	require.NoError(t, s.Advance(p, d))
	assert.True(t, s.Stock["M1"].Equal(dec("500")), "order placed at hour 8 has not arrived at hour 9")
	require.Len(t, s.Pending, 1)
	assert.Equal(t, 10, s.Pending[0].DeliverHour)

	require.NoError(t, s.Advance(p, HourDecision{}))
	assert.True(t, s.Stock["M1"].Equal(dec("600")))
	assert.Empty(t, s.Pending)
}

func TestAdvanceSameHourDeliveryUnusable(t *testing.T) {
	p := newTestProblem()
	p.Materials[0].InitialStock = dec("0")
	p.Products[0].Demand = nil

	// Buying and producing in the same hour fails: the delivery lands at the
	// next hour, consumption draws on start-of-hour stock.
	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 8)
	d := produce("E1", "F1", 10)
	d.Purchases = []PurchaseOrder{{Material: "M1", Quantity: dec("30"), Hour: 8}}
	requireInfeasible(t, s.Advance(p, d), FamilyFlowBalance)

	// Buying one hour ahead works.
	decisions := emptyDecisions(p)
	decisions[8].Purchases = []PurchaseOrder{{Material: "M1", Quantity: dec("30"), Hour: 8}}
	decisions[9] = produce("E1", "F1", 10)
	_, err := Replay(p, decisions)
	require.NoError(t, err)
}

func TestAdvanceRunLimitForcesCleaning(t *testing.T) {
	p := newTestProblem()
	p.Equipment[0].MaxRunHours = 2
	p.Products[0].Demand = nil

	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 8)
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
	assert.Equal(t, 2, s.Equipment["E1"].RunHours)
	assert.True(t, s.Equipment["E1"].CleanDue)

	// A third consecutive producing hour is rejected outright.
	requireInfeasible(t, s.Clone().Advance(p, produce("E1", "F1", 10)), FamilyContinuousRun)

	// Left alone, the unit spends the hour cleaning and is then free again.
	require.NoError(t, s.Advance(p, HourDecision{}))
	assert.Equal(t, PhaseCleaning, s.Equipment["E1"].Phase)
	assert.Equal(t, 0, s.Equipment["E1"].RunHours)
	assert.False(t, s.Equipment["E1"].CleanDue)
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
}

func TestAdvanceIdleResetsRunCounter(t *testing.T) {
	p := newTestProblem()
	p.Equipment[0].MaxRunHours = 2
	p.Products[0].Demand = nil

	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 8)
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
	require.NoError(t, s.Advance(p, HourDecision{}))
	assert.Equal(t, 0, s.Equipment["E1"].RunHours, "in-window idle hour resets the counter")

	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))
	assert.True(t, s.Equipment["E1"].CleanDue)
}

func TestAdvanceClosedHoursFreezeRunCounter(t *testing.T) {
	p := newTestProblem()
	p.Equipment[0].MaxRunHours = 3
	p.Products[0].Demand = nil

	s := NewScheduleState(p)
	advanceEmpty(t, p, s, 19)
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10))) // hour 19
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10))) // hour 20, window closes after
	assert.Equal(t, 2, s.Equipment["E1"].RunHours)

	advanceEmpty(t, p, s, 11) // hours 21..31, all closed
	assert.Equal(t, 2, s.Equipment["E1"].RunHours, "overnight hours freeze the counter")

	require.NoError(t, s.Advance(p, produce("E1", "F1", 10))) // hour 32
	assert.Equal(t, 3, s.Equipment["E1"].RunHours)
	assert.True(t, s.Equipment["E1"].CleanDue)
	requireInfeasible(t, s.Advance(p, produce("E1", "F1", 10)), FamilyContinuousRun)
}

func TestAdvanceRejectsBadAssignments(t *testing.T) {
	p := newTestProblem()

	t.Run("outside window", func(t *testing.T) {
		s := NewScheduleState(p)
		requireInfeasible(t, s.Advance(p, produce("E1", "F1", 10)), FamilyOperatingWindow)
	})
	t.Run("not a batch multiple", func(t *testing.T) {
		s := NewScheduleState(p)
		advanceEmpty(t, p, s, 8)
		requireInfeasible(t, s.Advance(p, produce("E1", "F1", 15)), FamilyBatchSize)
	})
	t.Run("zero quantity", func(t *testing.T) {
		s := NewScheduleState(p)
		advanceEmpty(t, p, s, 8)
		requireInfeasible(t, s.Advance(p, produce("E1", "F1", 0)), FamilyBatchSize)
	})
	t.Run("over capacity", func(t *testing.T) {
		s := NewScheduleState(p)
		advanceEmpty(t, p, s, 8)
		requireInfeasible(t, s.Advance(p, produce("E1", "F1", 60)), FamilyCapacity)
	})
	t.Run("incompatible formula", func(t *testing.T) {
		q := newTwoLineProblem()
		q.Formulas[0].Equipment = []EquipmentID{"E2"}
		s := NewScheduleState(q)
		advanceEmpty(t, q, s, 8)
		requireInfeasible(t, s.Advance(q, produce("E1", "F1", 10)), FamilyCompatibility)
	})
	t.Run("unknown equipment", func(t *testing.T) {
		s := NewScheduleState(p)
		advanceEmpty(t, p, s, 8)
		requireInfeasible(t, s.Advance(p, produce("E9", "F1", 10)), FamilyCompatibility)
	})
	t.Run("purchase outside window", func(t *testing.T) {
		s := NewScheduleState(p)
		d := HourDecision{Purchases: []PurchaseOrder{{Material: "M1", Quantity: dec("10"), Hour: 0}}}
		requireInfeasible(t, s.Advance(p, d), FamilyPurchaseWindow)
	})
	t.Run("shared capacity across formulas", func(t *testing.T) {
		q := newTestProblem()
		q.Formulas = append(q.Formulas, Formula{
			ID:              "F2",
			Product:         "P1",
			Consumption:     map[MaterialID]decimal.Decimal{"M1": dec("2")},
			Equipment:       []EquipmentID{"E1"},
			OperationalCost: dec("4"),
		})
		s := NewScheduleState(q)
		advanceEmpty(t, q, s, 8)
		d := HourDecision{Assignments: []ProductionAssignment{
			{Equipment: "E1", Formula: "F1", Quantity: 30},
			{Equipment: "E1", Formula: "F2", Quantity: 30},
		}}
		requireInfeasible(t, s.Advance(q, d), FamilyCapacity)
	})
}

func TestReplayDemandFulfilled(t *testing.T) {
	p := newTestProblem()
	decisions := emptyDecisions(p)
	decisions[8] = produce("E1", "F1", 50)

	trajectory, err := Replay(p, decisions)
	require.NoError(t, err)
	require.Len(t, trajectory, p.Horizon+1)

	assert.True(t, trajectory[9].Stock["P1"].Equal(dec("50")))
	assert.True(t, trajectory[31].Stock["P1"].Equal(dec("50")))
	assert.True(t, trajectory[32].Stock["P1"].IsZero(), "day-1 demand consumed at hour 32")
	assert.True(t, trajectory[48].Stock["M1"].Equal(dec("350")))
}

func TestReplayDemandShortfall(t *testing.T) {
	p := newTestProblem()
	_, err := Replay(p, emptyDecisions(p))
	ie := requireInfeasible(t, err, FamilyDemand)
	assert.Equal(t, 32, ie.Hour)
}

func TestReplaySafetyFloor(t *testing.T) {
	p := newTestProblem()
	p.Products[0].Demand = nil
	p.Products[0].SafetyStock = dec("20")

	_, err := Replay(p, emptyDecisions(p))
	ie := requireInfeasible(t, err, FamilySafetyStock)
	assert.Equal(t, p.Horizon, ie.Hour)

	decisions := emptyDecisions(p)
	decisions[8] = produce("E1", "F1", 20)
	_, err = Replay(p, decisions)
	require.NoError(t, err)
}

func TestReplayWrongLength(t *testing.T) {
	p := newTestProblem()
	_, err := Replay(p, make([]HourDecision, 10))
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	p := newTestProblem()
	s := NewScheduleState(p)
	c := s.Clone()

	advanceEmpty(t, p, s, 9)
	require.NoError(t, s.Advance(p, produce("E1", "F1", 10)))

	assert.Equal(t, 0, c.Hour)
	assert.True(t, c.Stock["M1"].Equal(dec("500")))
	assert.Equal(t, EquipmentState{Phase: PhaseIdle}, c.Equipment["E1"])
}
