package plan

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SolveStatus is the outcome of a solve.
type SolveStatus int

const (
	StatusOptimal SolveStatus = iota
	StatusFeasible
	StatusInfeasible
)

func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "Unknown"
	}
}

// EquipmentActivity is what one unit did during one hour.
type EquipmentActivity struct {
	Phase    EquipmentPhase
	Formula  FormulaID
	Quantity int
}

// HourRecord is one hour of the final schedule: per-unit activity, purchase
// orders placed, and the stock snapshot at the start of the next hour.
type HourRecord struct {
	Hour      int
	Equipment map[EquipmentID]EquipmentActivity
	Purchases []PurchaseOrder
	Stock     map[ItemID]decimal.Decimal
}

// CostBreakdown splits the primary objective.
type CostBreakdown struct {
	Operational decimal.Decimal
	Purchase    decimal.Decimal
	Total       decimal.Decimal
}

// SolveStats summarizes the search effort.
type SolveStats struct {
	Nodes        int64
	LPIterations int64
	Incumbents   int
	Duration     time.Duration
}

// Solution is the full solver output.
type Solution struct {
	Status        SolveStatus
	Gap           float64
	Infeasibility *InfeasibleError // set when Status is StatusInfeasible
	Decisions []HourDecision
	Records   []HourRecord
	Cost      CostBreakdown
	Stats     SolveStats
}

// roundTol is how far a solver value may sit from its normalized integer
// before extraction refuses it as a validation mismatch.
const roundTol = 1e-4

// extractSolution converts a raw solution vector back into hourly decisions,
// normalizes quantities to batch multiples, replays everything through the
// state tracker, and packages the trajectory. A replay failure is reported as
// a ValidationMismatchError: the model and the tracker disagree, which is a
// defect, not an acceptable output.
func extractSolution(pm *PlanModel, x []float64) (*Solution, error) {
	p := pm.Problem
	decisions := make([]HourDecision, p.Horizon)

	for key, col := range pm.Batches {
		batches := math.Round(x[col])
		if math.Abs(x[col]-batches) > roundTol {
			return nil, &ValidationMismatchError{
				Hour:   key.Hour,
				Detail: "batch count for " + string(key.Equipment) + "/" + string(key.Formula) + " is not integral within tolerance",
			}
		}
		if batches <= 0 {
			continue
		}
		decisions[key.Hour].Assignments = append(decisions[key.Hour].Assignments, ProductionAssignment{
			Equipment: key.Equipment,
			Formula:   key.Formula,
			Quantity:  int(batches) * BatchSize,
		})
	}
	for key, col := range pm.Buy {
		qty := decimal.NewFromFloat(x[col]).Round(6)
		if !qty.IsPositive() {
			continue
		}
		decisions[key.Hour].Purchases = append(decisions[key.Hour].Purchases, PurchaseOrder{
			Material: MaterialID(key.Item),
			Quantity: qty,
			Hour:     key.Hour,
		})
	}
	for t := range decisions {
		sort.Slice(decisions[t].Assignments, func(i, j int) bool {
			a, b := decisions[t].Assignments[i], decisions[t].Assignments[j]
			if a.Equipment != b.Equipment {
				return a.Equipment < b.Equipment
			}
			return a.Formula < b.Formula
		})
		sort.Slice(decisions[t].Purchases, func(i, j int) bool {
			return decisions[t].Purchases[i].Material < decisions[t].Purchases[j].Material
		})
	}

	trajectory, err := Replay(p, decisions)
	if err != nil {
		return nil, &ValidationMismatchError{
			Hour:   trajectoryHour(err),
			Detail: "replay rejected the solver's decisions: " + err.Error(),
			Cause:  err,
		}
	}

	sol := &Solution{
		Decisions: decisions,
		Records:   buildRecords(p, decisions, trajectory),
		Cost:      costOf(p, decisions),
	}
	return sol, nil
}

func trajectoryHour(err error) int {
	if ie, ok := err.(*InfeasibleError); ok {
		return ie.Hour
	}
	return -1
}

// buildRecords walks the trajectory and renders one record per hour.
func buildRecords(p *Problem, decisions []HourDecision, trajectory []*ScheduleState) []HourRecord {
	records := make([]HourRecord, p.Horizon)
	for t := 0; t < p.Horizon; t++ {
		next := trajectory[t+1]
		rec := HourRecord{
			Hour:      t,
			Equipment: make(map[EquipmentID]EquipmentActivity, len(p.Equipment)),
			Purchases: append([]PurchaseOrder(nil), decisions[t].Purchases...),
			Stock:     make(map[ItemID]decimal.Decimal, len(next.Stock)),
		}
		for item, qty := range next.Stock {
			rec.Stock[item] = qty
		}
		for _, e := range p.Equipment {
			rec.Equipment[e.ID] = EquipmentActivity{Phase: next.Equipment[e.ID].Phase}
		}
		for _, a := range decisions[t].Assignments {
			act := rec.Equipment[a.Equipment]
			act.Formula = a.Formula
			act.Quantity += a.Quantity
			rec.Equipment[a.Equipment] = act
		}
		records[t] = rec
	}
	return records
}

// costOf computes the primary cost of a decision set: operational plus
// purchase, without the search tie-break term.
func costOf(p *Problem, decisions []HourDecision) CostBreakdown {
	operational := decimal.Zero
	purchase := decimal.Zero
	for _, d := range decisions {
		for _, a := range d.Assignments {
			unit := p.OperationalCost(a.Equipment, a.Formula)
			operational = operational.Add(unit.Mul(decimal.NewFromInt(int64(a.Quantity))))
		}
		for _, po := range d.Purchases {
			purchase = purchase.Add(p.Material(po.Material).Price.Mul(po.Quantity))
		}
	}
	return CostBreakdown{
		Operational: operational,
		Purchase:    purchase,
		Total:       operational.Add(purchase),
	}
}
