package plan

import (
	"github.com/shopspring/decimal"
)

// EquipmentPhase is the per-hour operating phase of one equipment unit.
type EquipmentPhase int

const (
	PhaseIdle EquipmentPhase = iota
	PhaseProducing
	PhaseCleaning
)

func (p EquipmentPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseProducing:
		return "Producing"
	case PhaseCleaning:
		return "Cleaning"
	default:
		return "Unknown"
	}
}

// EquipmentState tracks one unit's continuous-run state machine. RunHours is
// the consecutive producing hours so far; it survives closed hours untouched
// and resets to zero on an in-window idle or cleaning hour. CleanDue marks
// that the run limit was reached and the next operable hour must be spent
// cleaning.
type EquipmentState struct {
	Phase    EquipmentPhase
	RunHours int
	CleanDue bool
}

// ProductionAssignment is one equipment/formula/quantity decision for a
// single hour. Quantity is in units and must be a positive multiple of
// BatchSize.
type ProductionAssignment struct {
	Equipment EquipmentID
	Formula   FormulaID
	Quantity  int
}

// PurchaseOrder is a material purchase placed at Hour; the quantity is
// delivered LeadTime hours later.
type PurchaseOrder struct {
	Material MaterialID
	Quantity decimal.Decimal
	Hour     int
}

// HourDecision is the full set of decisions for one hour.
type HourDecision struct {
	Assignments []ProductionAssignment
	Purchases   []PurchaseOrder
}

// Delivery is a purchased quantity in transit.
type Delivery struct {
	Material    MaterialID
	Quantity    decimal.Decimal
	DeliverHour int
}

// ScheduleState is the complete simulation state at the start of an hour:
// on-hand stock (deliveries due this hour already received, this hour's
// demand already consumed), each unit's run state, and the in-transit
// purchase pipeline.
type ScheduleState struct {
	Hour      int
	Stock     map[ItemID]decimal.Decimal
	Equipment map[EquipmentID]EquipmentState
	Pending   []Delivery
}

// NewScheduleState builds the hour-zero state: initial stocks, every unit
// clean and idle, nothing in transit.
func NewScheduleState(p *Problem) *ScheduleState {
	s := &ScheduleState{
		Stock:     make(map[ItemID]decimal.Decimal, len(p.Materials)+len(p.Products)),
		Equipment: make(map[EquipmentID]EquipmentState, len(p.Equipment)),
	}
	for _, item := range p.Items() {
		s.Stock[item] = p.InitialStock(item)
	}
	for _, e := range p.Equipment {
		s.Equipment[e.ID] = EquipmentState{Phase: PhaseIdle}
	}
	return s
}

// Clone returns a deep copy of the state.
func (s *ScheduleState) Clone() *ScheduleState {
	c := &ScheduleState{
		Hour:      s.Hour,
		Stock:     make(map[ItemID]decimal.Decimal, len(s.Stock)),
		Equipment: make(map[EquipmentID]EquipmentState, len(s.Equipment)),
		Pending:   append([]Delivery(nil), s.Pending...),
	}
	for k, v := range s.Stock {
		c.Stock[k] = v
	}
	for k, v := range s.Equipment {
		c.Equipment[k] = v
	}
	return c
}

// Advance applies one hour of decisions and moves the state from hour t to
// t+1, or returns an InfeasibleError naming the violated invariant. Demand
// falling due at t+1 is consumed as part of the transition; a shortfall is a
// hard infeasibility, never silently absorbed.
func (s *ScheduleState) Advance(p *Problem, d HourDecision) error {
	t := s.Hour

	produced, consumption, err := s.applyAssignments(p, t, d.Assignments)
	if err != nil {
		return err
	}

	// Update every unit's run state machine for hour t.
	for _, e := range p.Equipment {
		st := s.Equipment[e.ID]
		switch {
		case st.CleanDue && p.Window.Operable(t):
			// applyAssignments already rejected production on this unit.
			st.Phase = PhaseCleaning
			st.RunHours = 0
			st.CleanDue = false
		case !produced[e.ID].IsZero():
			st.Phase = PhaseProducing
			st.RunHours++
			if st.RunHours >= e.MaxRunHours {
				st.CleanDue = true
			}
		case p.Window.Operable(t):
			st.Phase = PhaseIdle
			st.RunHours = 0
		default:
			// Closed hour: idle, run counter frozen.
			st.Phase = PhaseIdle
		}
		s.Equipment[e.ID] = st
	}

	// Consume materials out of start-of-hour stock. Deliveries arriving at
	// t+1 are not available yet.
	for m, qty := range consumption {
		remaining := s.Stock[m.Item()].Sub(qty)
		if remaining.IsNegative() {
			return infeasible(FamilyFlowBalance, t,
				"material %s stock %s cannot cover consumption %s", m, s.Stock[m.Item()], qty)
		}
		s.Stock[m.Item()] = remaining
	}

	// Finished goods and purchase orders become available at t+1.
	for f, qty := range producedByProduct(p, d.Assignments) {
		s.Stock[f.Item()] = s.Stock[f.Item()].Add(qty)
	}
	for _, po := range d.Purchases {
		if !p.Window.Operable(t) {
			return infeasible(FamilyPurchaseWindow, t,
				"purchase of %s placed outside the operating window", po.Material)
		}
		if !po.Quantity.IsPositive() {
			return infeasible(FamilyPurchaseWindow, t,
				"purchase of %s has non-positive quantity %s", po.Material, po.Quantity)
		}
		if p.Material(po.Material) == nil {
			return infeasible(FamilyPurchaseWindow, t, "purchase of unknown material %s", po.Material)
		}
		s.Pending = append(s.Pending, Delivery{
			Material:    po.Material,
			Quantity:    po.Quantity,
			DeliverHour: t + p.LeadTime,
		})
	}

	s.Hour = t + 1

	// Receive deliveries maturing at the new hour.
	remaining := s.Pending[:0]
	for _, dl := range s.Pending {
		if dl.DeliverHour == s.Hour {
			s.Stock[dl.Material.Item()] = s.Stock[dl.Material.Item()].Add(dl.Quantity)
		} else {
			remaining = append(remaining, dl)
		}
	}
	s.Pending = remaining

	// Consume demand falling due at the new hour.
	for prod, qty := range p.DemandAt(s.Hour) {
		after := s.Stock[prod.Item()].Sub(qty)
		if after.IsNegative() {
			return infeasible(FamilyDemand, s.Hour,
				"product %s stock %s cannot cover demand %s", prod, s.Stock[prod.Item()], qty)
		}
		s.Stock[prod.Item()] = after
	}

	return nil
}

// applyAssignments validates hour-t production decisions and returns the
// quantity produced per unit and the material consumption they imply.
func (s *ScheduleState) applyAssignments(p *Problem, t int, assignments []ProductionAssignment) (map[EquipmentID]decimal.Decimal, map[MaterialID]decimal.Decimal, error) {
	produced := make(map[EquipmentID]decimal.Decimal, len(p.Equipment))
	consumption := make(map[MaterialID]decimal.Decimal)
	perEquipment := make(map[EquipmentID]int)

	for _, e := range p.Equipment {
		produced[e.ID] = decimal.Zero
	}

	for _, a := range assignments {
		eq := p.EquipmentByID(a.Equipment)
		if eq == nil {
			return nil, nil, infeasible(FamilyCompatibility, t, "assignment targets unknown equipment %s", a.Equipment)
		}
		f := p.Formula(a.Formula)
		if f == nil {
			return nil, nil, infeasible(FamilyCompatibility, t, "assignment uses unknown formula %s", a.Formula)
		}
		if !f.Compatible(a.Equipment) {
			return nil, nil, infeasible(FamilyCompatibility, t,
				"formula %s cannot run on equipment %s", a.Formula, a.Equipment)
		}
		if !p.Window.Operable(t) {
			return nil, nil, infeasible(FamilyOperatingWindow, t,
				"equipment %s cannot produce outside the operating window", a.Equipment)
		}
		if s.Equipment[a.Equipment].CleanDue {
			return nil, nil, infeasible(FamilyContinuousRun, t,
				"equipment %s must clean this hour after %d continuous run hours", a.Equipment, eq.MaxRunHours)
		}
		if a.Quantity <= 0 || a.Quantity%BatchSize != 0 {
			return nil, nil, infeasible(FamilyBatchSize, t,
				"equipment %s quantity %d is not a positive multiple of %d", a.Equipment, a.Quantity, BatchSize)
		}
		perEquipment[a.Equipment] += a.Quantity
		if perEquipment[a.Equipment] > eq.Capacity {
			return nil, nil, infeasible(FamilyCapacity, t,
				"equipment %s total quantity %d exceeds capacity %d", a.Equipment, perEquipment[a.Equipment], eq.Capacity)
		}

		qty := decimal.NewFromInt(int64(a.Quantity))
		produced[a.Equipment] = produced[a.Equipment].Add(qty)
		for m, rate := range f.Consumption {
			consumption[m] = consumption[m].Add(rate.Mul(qty))
		}
	}

	return produced, consumption, nil
}

// producedByProduct totals hour output per finished good.
func producedByProduct(p *Problem, assignments []ProductionAssignment) map[ProductID]decimal.Decimal {
	out := make(map[ProductID]decimal.Decimal)
	for _, a := range assignments {
		if f := p.Formula(a.Formula); f != nil {
			out[f.Product] = out[f.Product].Add(decimal.NewFromInt(int64(a.Quantity)))
		}
	}
	return out
}

// Replay runs a full horizon of decisions from the initial state and returns
// the state trajectory, one entry per hour from 0 through Horizon. It is a
// pure function of the decisions and the configured initial stocks.
func Replay(p *Problem, decisions []HourDecision) ([]*ScheduleState, error) {
	if len(decisions) != p.Horizon {
		return nil, infeasible(FamilyOperatingWindow, -1,
			"decision set covers %d hours, horizon is %d", len(decisions), p.Horizon)
	}
	state := NewScheduleState(p)
	trajectory := make([]*ScheduleState, 0, p.Horizon+1)
	trajectory = append(trajectory, state.Clone())
	for _, d := range decisions {
		if err := state.Advance(p, d); err != nil {
			return nil, err
		}
		trajectory = append(trajectory, state.Clone())
	}

	// End-of-horizon safety floors.
	for _, item := range p.Items() {
		floor := p.SafetyStock(item)
		if state.Stock[item].LessThan(floor) {
			return nil, infeasible(FamilySafetyStock, p.Horizon,
				"item %s ends the horizon at %s, below its safety stock %s", item, state.Stock[item], floor)
		}
	}
	return trajectory, nil
}
