package plan

import (
	"sort"

	"github.com/shopspring/decimal"
)

// greedyPlan builds a feasible decision set without search: batch
// requirements are taken in deadline order and packed onto the cheapest
// compatible production slots, then purchases are placed just in time. The
// result warm-starts the branch-and-bound incumbent; ok is false when the
// heuristic cannot close the plan (which does not prove infeasibility).
func greedyPlan(p *Problem) ([]HourDecision, bool) {
	slots := newSlotTable(p)

	type event struct {
		hour    int
		product ProductID
		batches int64
	}
	var events []event
	for i := range p.Products {
		prod := &p.Products[i]
		cum := decimal.Zero
		assigned := int64(0)
		for day, qty := range prod.Demand {
			if qty.IsZero() {
				continue
			}
			cum = cum.Add(qty)
			need := batchesFor(cum.Sub(prod.InitialStock)) - assigned
			if need > 0 {
				events = append(events, event{hour: DemandHour(day + 1), product: prod.ID, batches: need})
				assigned += need
			}
		}
		// End-of-horizon safety floor.
		endNeed := batchesFor(cum.Add(prod.SafetyStock).Sub(prod.InitialStock)) - assigned
		if endNeed > 0 {
			events = append(events, event{hour: p.Horizon + 1, product: prod.ID, batches: endNeed})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].hour < events[j].hour })

	// Cheapest compatible pair first, per product. Purchase cost of the
	// consumed materials is folded in so a low-wear machine running an
	// expensive recipe does not win by accident.
	candidates := make(map[ProductID][]prodKey)
	for _, pair := range p.pairs() {
		f := p.Formula(pair.Formula)
		candidates[f.Product] = append(candidates[f.Product], pair)
	}
	batchCost := func(pair prodKey) decimal.Decimal {
		f := p.Formula(pair.Formula)
		cost := p.OperationalCost(pair.Equipment, pair.Formula)
		for m, rate := range f.Consumption {
			cost = cost.Add(rate.Mul(p.Material(m).Price))
		}
		return cost.Mul(decimal.NewFromInt(BatchSize))
	}
	for prod := range candidates {
		pairs := candidates[prod]
		sort.SliceStable(pairs, func(i, j int) bool {
			ci, cj := batchCost(pairs[i]), batchCost(pairs[j])
			if !ci.Equal(cj) {
				return ci.LessThan(cj)
			}
			if pairs[i].Equipment != pairs[j].Equipment {
				return pairs[i].Equipment < pairs[j].Equipment
			}
			return pairs[i].Formula < pairs[j].Formula
		})
	}

	assignments := make(map[prodKey]int64)
	for _, ev := range events {
		need := ev.batches
		deadline := ev.hour - 1
		if deadline > p.Horizon-1 {
			deadline = p.Horizon - 1
		}
		for _, pair := range candidates[ev.product] {
			if need == 0 {
				break
			}
			need -= slots.take(pair, deadline, need, assignments)
		}
		if need > 0 {
			return nil, false
		}
	}

	decisions := make([]HourDecision, p.Horizon)
	for key, batches := range assignments {
		if batches == 0 {
			continue
		}
		decisions[key.Hour].Assignments = append(decisions[key.Hour].Assignments, ProductionAssignment{
			Equipment: key.Equipment,
			Formula:   key.Formula,
			Quantity:  int(batches) * BatchSize,
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
	}

	if !planPurchases(p, decisions) {
		return nil, false
	}
	if _, err := Replay(p, decisions); err != nil {
		return nil, false
	}
	return decisions, true
}

// slotTable tracks remaining batch capacity per equipment hour. Every
// (MaxRunHours+1)-th operable hour of a unit is held back as the cleaning
// slot, so any packing it admits respects the continuous-run limit.
type slotTable struct {
	problem   *Problem
	hours     map[EquipmentID][]int
	remaining map[equipHourKey]int64
}

func newSlotTable(p *Problem) *slotTable {
	st := &slotTable{
		problem:   p,
		hours:     make(map[EquipmentID][]int),
		remaining: make(map[equipHourKey]int64),
	}
	ops := operableHours(p.Horizon, p.Window)
	for _, e := range p.Equipment {
		for i, t := range ops {
			if i%(e.MaxRunHours+1) == e.MaxRunHours {
				continue // reserved for cleaning
			}
			st.hours[e.ID] = append(st.hours[e.ID], t)
			st.remaining[equipHourKey{e.ID, t}] = int64(e.Capacity / BatchSize)
		}
	}
	return st
}

// take packs up to need batches of the pair into slots at or before deadline,
// latest first, and returns how many it placed. Packing late keeps the plan
// just-in-time: the opening hours stay clear, so every producing hour can be
// fed by an earlier purchase delivery.
func (st *slotTable) take(pair prodKey, deadline int, need int64, assignments map[prodKey]int64) int64 {
	hours := st.hours[pair.Equipment]
	placed := int64(0)
	for i := sort.SearchInts(hours, deadline+1) - 1; i >= 0; i-- {
		if placed == need {
			break
		}
		t := hours[i]
		key := equipHourKey{pair.Equipment, t}
		if st.remaining[key] == 0 {
			continue
		}
		n := need - placed
		if avail := st.remaining[key]; avail < n {
			n = avail
		}
		st.remaining[key] -= n
		slot := pair
		slot.Hour = t
		assignments[slot] += n
		placed += n
	}
	return placed
}

// planPurchases walks the production plan hour by hour and inserts purchase
// orders just in time: each shortfall is ordered at the latest operable hour
// whose delivery still lands before the consuming hour, and safety floors are
// topped up against the end of the horizon.
func planPurchases(p *Problem, decisions []HourDecision) bool {
	stock := make(map[MaterialID]decimal.Decimal, len(p.Materials))
	consumed := make(map[MaterialID]decimal.Decimal, len(p.Materials))
	for _, m := range p.Materials {
		stock[m.ID] = m.InitialStock
	}

	orderAt := func(latest int, m MaterialID, qty decimal.Decimal) bool {
		for o := latest; o >= 0; o-- {
			if p.Window.Operable(o) {
				decisions[o].Purchases = append(decisions[o].Purchases, PurchaseOrder{
					Material: m, Quantity: qty, Hour: o,
				})
				return true
			}
		}
		return false
	}

	for t := 0; t < p.Horizon; t++ {
		for _, a := range decisions[t].Assignments {
			f := p.Formula(a.Formula)
			qty := decimal.NewFromInt(int64(a.Quantity))
			for m, rate := range f.Consumption {
				needed := rate.Mul(qty)
				consumed[m] = consumed[m].Add(needed)
				short := needed.Sub(stock[m])
				if short.IsPositive() {
					if !orderAt(t-p.LeadTime, m, short) {
						return false
					}
					stock[m] = stock[m].Add(short)
				}
				stock[m] = stock[m].Sub(needed)
			}
		}
	}

	for _, m := range p.Materials {
		short := m.SafetyStock.Sub(stock[m.ID])
		if short.IsPositive() {
			if !orderAt(p.Horizon-p.LeadTime, m.ID, short) {
				return false
			}
		}
	}
	return true
}

// batchesFor rounds a required quantity up to whole batches, never negative.
func batchesFor(required decimal.Decimal) int64 {
	if !required.IsPositive() {
		return 0
	}
	return required.Div(decimal.NewFromInt(BatchSize)).Ceil().IntPart()
}
