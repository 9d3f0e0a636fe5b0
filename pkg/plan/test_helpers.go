package plan

import (
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newTestProblem builds a single production line with comfortable slack: one
// material, one product, one formula on one unit, a 48-hour horizon and one
// day of demand. Initial material stock covers the whole plan, so the
// cheapest schedule buys nothing.
func newTestProblem() *Problem {
	return &Problem{
		Horizon:  48,
		LeadTime: 1,
		Window:   DefaultWindow(),
		Materials: []Material{
			{ID: "M1", Price: dec("2"), InitialStock: dec("500")},
		},
		Products: []Product{
			{ID: "P1", Demand: []decimal.Decimal{dec("50")}},
		},
		Formulas: []Formula{
			{
				ID:              "F1",
				Product:         "P1",
				Consumption:     map[MaterialID]decimal.Decimal{"M1": dec("3")},
				Equipment:       []EquipmentID{"E1"},
				OperationalCost: dec("5"),
			},
		},
		Equipment: []Equipment{
			{ID: "E1", Capacity: 50, MaxRunHours: 8},
		},
	}
}

// newTwoLineProblem has demand too large for either unit alone before the
// deadline, so a feasible schedule must split production across both.
func newTwoLineProblem() *Problem {
	p := newTestProblem()
	p.Products[0].Demand = []decimal.Decimal{dec("800")}
	p.Materials[0].InitialStock = dec("5000")
	p.Equipment = []Equipment{
		{ID: "E1", Capacity: 30, MaxRunHours: 8},
		{ID: "E2", Capacity: 50, MaxRunHours: 8},
	}
	p.Formulas[0].Equipment = []EquipmentID{"E1", "E2"}
	p.Formulas[0].Consumption = map[MaterialID]decimal.Decimal{"M1": dec("3")}
	return p
}

// emptyDecisions is a do-nothing horizon of the problem's length.
func emptyDecisions(p *Problem) []HourDecision {
	return make([]HourDecision, p.Horizon)
}
