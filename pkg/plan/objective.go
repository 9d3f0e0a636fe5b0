package plan

// cleaningTieBreakEps is the weight of the secondary objective term on the
// producing indicators. Concentrating production into fewer active hours
// yields fewer forced cleanings; the weight is small enough never to trade
// against real cost, and reported costs are recomputed without it.
const cleaningTieBreakEps = 1e-6

// BuildObjective assembles the minimized cost function: operational cost per
// unit produced by equipment/formula pair, purchase cost per unit bought, and
// the epsilon tie-break on activity.
func BuildObjective(pm *PlanModel) {
	p := pm.Problem
	obj := pm.Model.Obj

	for key, col := range pm.Batches {
		unitCost := p.OperationalCost(key.Equipment, key.Formula).InexactFloat64()
		obj[col] = unitCost * BatchSize
	}
	for key, col := range pm.Buy {
		obj[col] = p.Material(MaterialID(key.Item)).Price.InexactFloat64()
	}
	for _, col := range pm.Status {
		obj[col] = cleaningTieBreakEps
	}
}
