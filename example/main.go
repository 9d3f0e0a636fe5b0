package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"prodplan/pkg/plan"
)

func main() {
	ctx := context.Background()

	p := brewerySchedule()

	fmt.Println("🏭 Scheduling the brewery...")
	fmt.Printf("Horizon: %d hours, window %02d:00-%02d:00, lead time %d hour(s)\n",
		p.Horizon, p.Window.Start, p.Window.End, p.LeadTime)
	fmt.Println()

	sol, err := plan.Solve(ctx, p, plan.SolveOptions{})
	if err != nil {
		fmt.Printf("❌ Solve failed: %v\n", err)
		return
	}
	if sol.Status == plan.StatusInfeasible {
		fmt.Printf("❌ No feasible schedule: %v\n", sol.Infeasibility)
		return
	}

	fmt.Printf("📊 %s schedule found in %s (%d nodes)\n", sol.Status, sol.Stats.Duration, sol.Stats.Nodes)
	fmt.Printf("  Operational cost: %s\n", sol.Cost.Operational)
	fmt.Printf("  Purchase cost:    %s\n", sol.Cost.Purchase)
	fmt.Printf("  Total cost:       %s\n", sol.Cost.Total)
	fmt.Println()

	for _, rec := range sol.Records {
		for _, a := range rec.Equipment {
			if a.Quantity > 0 {
				fmt.Printf("  hour %3d: %s makes %d units\n", rec.Hour, a.Formula, a.Quantity)
			}
		}
		for _, po := range rec.Purchases {
			fmt.Printf("  hour %3d: buy %s %s\n", rec.Hour, po.Quantity, po.Material)
		}
	}
}

// brewerySchedule is a small two-product plant: two kettles, shared malt and
// hops, three days of demand.
func brewerySchedule() *plan.Problem {
	d := func(s string) decimal.Decimal {
		v, err := decimal.NewFromString(s)
		if err != nil {
			panic(err)
		}
		return v
	}

	return &plan.Problem{
		Horizon:  96,
		LeadTime: 1,
		Window:   plan.DefaultWindow(),
		Materials: []plan.Material{
			{ID: "MALT", Price: d("1.2"), InitialStock: d("400"), SafetyStock: d("100")},
			{ID: "HOPS", Price: d("6"), InitialStock: d("40")},
		},
		Products: []plan.Product{
			{ID: "LAGER", Demand: []decimal.Decimal{d("60"), d("80"), d("40")}},
			{ID: "STOUT", Demand: []decimal.Decimal{d("20"), decimal.Zero, d("30")}},
		},
		Formulas: []plan.Formula{
			{
				ID:      "BREW_LAGER",
				Product: "LAGER",
				Consumption: map[plan.MaterialID]decimal.Decimal{
					"MALT": d("2"),
					"HOPS": d("0.1"),
				},
				Equipment:       []plan.EquipmentID{"KETTLE_A", "KETTLE_B"},
				OperationalCost: d("3"),
			},
			{
				ID:      "BREW_STOUT",
				Product: "STOUT",
				Consumption: map[plan.MaterialID]decimal.Decimal{
					"MALT": d("3.5"),
					"HOPS": d("0.2"),
				},
				Equipment:       []plan.EquipmentID{"KETTLE_B"},
				OperationalCost: d("4"),
			},
		},
		Equipment: []plan.Equipment{
			{ID: "KETTLE_A", Capacity: 30, MaxRunHours: 6},
			{ID: "KETTLE_B", Capacity: 50, MaxRunHours: 8},
		},
		OperationalCosts: map[plan.EquipmentID]map[plan.FormulaID]decimal.Decimal{
			"KETTLE_B": {"BREW_LAGER": d("3.5")},
		},
	}
}
