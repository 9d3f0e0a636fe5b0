package plan

import (
	"fmt"
)

type prodKey struct {
	Equipment EquipmentID
	Formula   FormulaID
	Hour      int
}

type equipHourKey struct {
	Equipment EquipmentID
	Hour      int
}

type itemHourKey struct {
	Item ItemID
	Hour int
}

// PlanModel pairs the assembled constraint system with the variable indexes
// needed to read a solution back out.
//
// Decision variables:
//
//	batches[e,f,t]  integer count of BatchSize-unit batches (compatible pairs,
//	                operable hours only); quantity = BatchSize * batches
//	status[e,t]     binary producing indicator
//	buy[m,t]        continuous purchase quantity (operable hours only)
//	inv[item,t]     continuous start-of-hour stock, t = 0..Horizon
type PlanModel struct {
	Model   *Model
	Problem *Problem

	Batches  map[prodKey]int
	Status   map[equipHourKey]int
	Buy      map[itemHourKey]int
	Inv      map[itemHourKey]int
	Operable []int
}

// pairs lists the compatible (equipment, formula) combinations in declaration
// order.
func (p *Problem) pairs() []prodKey {
	var out []prodKey
	for _, e := range p.Equipment {
		for i := range p.Formulas {
			f := &p.Formulas[i]
			if f.Compatible(e.ID) {
				out = append(out, prodKey{Equipment: e.ID, Formula: f.ID})
			}
		}
	}
	return out
}

// BuildModel translates the domain model and the state tracker's transition
// rules into a linear constraint system over the decision variables. The
// construction is deterministic: a pure function of the configuration and
// horizon.
func BuildModel(p *Problem) (*PlanModel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pm := &PlanModel{
		Model:    &Model{},
		Problem:  p,
		Batches:  make(map[prodKey]int),
		Status:   make(map[equipHourKey]int),
		Buy:      make(map[itemHourKey]int),
		Inv:      make(map[itemHourKey]int),
		Operable: operableHours(p.Horizon, p.Window),
	}
	m := pm.Model

	// Variables. Production and purchasing exist only inside the operating
	// window; that is the window constraint family in structural form.
	for _, item := range p.Items() {
		for t := 0; t <= p.Horizon; t++ {
			pm.Inv[itemHourKey{item, t}] = m.AddVar(fmt.Sprintf("inv[%s,%d]", item, t), Continuous, 0, inf)
		}
	}
	for _, mat := range p.Materials {
		for _, t := range pm.Operable {
			pm.Buy[itemHourKey{mat.ID.Item(), t}] = m.AddVar(fmt.Sprintf("buy[%s,%d]", mat.ID, t), Continuous, 0, inf)
		}
	}
	for _, e := range p.Equipment {
		for _, t := range pm.Operable {
			pm.Status[equipHourKey{e.ID, t}] = m.AddVar(fmt.Sprintf("status[%s,%d]", e.ID, t), Binary, 0, 1)
		}
	}
	for _, pair := range p.pairs() {
		e := p.EquipmentByID(pair.Equipment)
		for _, t := range pm.Operable {
			k := pair
			k.Hour = t
			pm.Batches[k] = m.AddVar(
				fmt.Sprintf("batches[%s,%s,%d]", pair.Equipment, pair.Formula, t),
				Integer, 0, float64(e.Capacity/BatchSize))
		}
	}

	pm.buildInventoryConstraints()
	pm.buildFlowBalanceConstraints()
	pm.buildProductionConstraints()
	pm.buildContinuousRunConstraints()

	return pm, nil
}

// buildInventoryConstraints pins hour-zero stock and applies the
// end-of-horizon safety floors.
func (pm *PlanModel) buildInventoryConstraints() {
	p := pm.Problem
	for _, item := range p.Items() {
		pm.Model.AddCons(FamilyInitialInventory, fmt.Sprintf("initial[%s]", item),
			map[int]float64{pm.Inv[itemHourKey{item, 0}]: 1},
			EQ, pm.initial(item))
		pm.Model.AddCons(FamilySafetyStock, fmt.Sprintf("safety[%s]", item),
			map[int]float64{pm.Inv[itemHourKey{item, p.Horizon}]: 1},
			GE, pm.safety(item))
	}
}

// buildFlowBalanceConstraints links stock at t+1 to stock at t, consumption,
// production, deliveries and demand, and keeps same-hour consumption within
// start-of-hour stock.
func (pm *PlanModel) buildFlowBalanceConstraints() {
	p := pm.Problem
	m := pm.Model

	for _, mat := range p.Materials {
		item := mat.ID.Item()
		for t := 0; t < p.Horizon; t++ {
			// inv[t+1] - inv[t] - arrivals + consumption = 0
			coefs := map[int]float64{
				pm.Inv[itemHourKey{item, t + 1}]: 1,
				pm.Inv[itemHourKey{item, t}]:     -1,
			}
			if buy, ok := pm.Buy[itemHourKey{item, t + 1 - p.LeadTime}]; ok {
				coefs[buy] = -1
			}
			consumption := map[int]float64{}
			for _, pair := range p.pairs() {
				f := p.Formula(pair.Formula)
				rate, ok := f.Consumption[mat.ID]
				if !ok || rate.IsZero() {
					continue
				}
				if col, exists := pm.Batches[prodKey{pair.Equipment, pair.Formula, t}]; exists {
					perBatch := rate.InexactFloat64() * BatchSize
					coefs[col] += perBatch
					consumption[col] += perBatch
				}
			}
			m.AddCons(FamilyFlowBalance, fmt.Sprintf("balance[%s,%d]", item, t), coefs, EQ, 0)

			// Same-hour stock check: consumption at t draws on inv[t];
			// deliveries landing at t+1 cannot feed it.
			if len(consumption) > 0 {
				onHand := map[int]float64{pm.Inv[itemHourKey{item, t}]: -1}
				for col, c := range consumption {
					onHand[col] = c
				}
				m.AddCons(FamilyFlowBalance, fmt.Sprintf("onhand[%s,%d]", item, t), onHand, LE, 0)
			}
		}
	}

	for _, prod := range p.Products {
		item := prod.ID.Item()
		for t := 0; t < p.Horizon; t++ {
			coefs := map[int]float64{
				pm.Inv[itemHourKey{item, t + 1}]: 1,
				pm.Inv[itemHourKey{item, t}]:     -1,
			}
			for _, pair := range p.pairs() {
				if p.Formula(pair.Formula).Product != prod.ID {
					continue
				}
				if col, exists := pm.Batches[prodKey{pair.Equipment, pair.Formula, t}]; exists {
					coefs[col] -= BatchSize
				}
			}
			family := FamilyFlowBalance
			rhs := 0.0
			if due, ok := p.DemandAt(t + 1)[prod.ID]; ok {
				family = FamilyDemand
				rhs = -due.InexactFloat64()
			}
			m.AddCons(family, fmt.Sprintf("balance[%s,%d]", item, t), coefs, EQ, rhs)
		}
	}
}

// buildProductionConstraints caps hourly quantity by capacity when the unit
// is producing and forces the status indicator on exactly when batches run.
func (pm *PlanModel) buildProductionConstraints() {
	p := pm.Problem
	m := pm.Model

	for _, e := range p.Equipment {
		for _, t := range pm.Operable {
			status := pm.Status[equipHourKey{e.ID, t}]
			capRow := map[int]float64{status: -float64(e.Capacity)}
			linkRow := map[int]float64{status: 1}
			active := false
			for i := range p.Formulas {
				f := &p.Formulas[i]
				if !f.Compatible(e.ID) {
					continue
				}
				col := pm.Batches[prodKey{e.ID, f.ID, t}]
				capRow[col] = BatchSize
				linkRow[col] = linkRow[col] - 1
				active = true
			}
			if !active {
				continue
			}
			m.AddCons(FamilyCapacity, fmt.Sprintf("capacity[%s,%d]", e.ID, t), capRow, LE, 0)
			m.AddCons(FamilyCapacity, fmt.Sprintf("active[%s,%d]", e.ID, t), linkRow, LE, 0)
		}
	}
}

// buildContinuousRunConstraints emits the moving-window run limit: across any
// MaxRunHours+1 consecutive operable hours a unit produces at most
// MaxRunHours of them. The operable-hour sequence is concatenated across
// days, matching the state tracker's frozen-overnight run counter, so the
// forced non-producing hour is exactly the mandatory cleaning hour.
func (pm *PlanModel) buildContinuousRunConstraints() {
	p := pm.Problem
	ops := pm.Operable
	for _, e := range p.Equipment {
		k := e.MaxRunHours
		for i := 0; i+k < len(ops); i++ {
			coefs := make(map[int]float64, k+1)
			for j := i; j <= i+k; j++ {
				coefs[pm.Status[equipHourKey{e.ID, ops[j]}]] = 1
			}
			pm.Model.AddCons(FamilyContinuousRun,
				fmt.Sprintf("run[%s,%d]", e.ID, ops[i]), coefs, LE, float64(k))
		}
	}
}

func (pm *PlanModel) initial(item ItemID) float64 {
	return pm.Problem.InitialStock(item).InexactFloat64()
}

func (pm *PlanModel) safety(item ItemID) float64 {
	return pm.Problem.SafetyStock(item).InexactFloat64()
}
