package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BatchSize is the production quantum: every assignment quantity is a
// positive multiple of this many units.
const BatchSize = 10

// MaterialID identifies an externally procured raw material.
type MaterialID string

// ProductID identifies a manufactured finished good.
type ProductID string

// FormulaID identifies a production recipe.
type FormulaID string

// EquipmentID identifies a single equipment unit.
type EquipmentID string

// ItemID identifies anything that can sit in inventory, material or product.
type ItemID string

// Item returns the inventory key for a material.
func (m MaterialID) Item() ItemID { return ItemID(m) }

// Item returns the inventory key for a product.
func (p ProductID) Item() ItemID { return ItemID(p) }

// Material is an externally procured input with a fixed unit purchase price.
type Material struct {
	ID           MaterialID
	Price        decimal.Decimal
	InitialStock decimal.Decimal
	SafetyStock  decimal.Decimal
}

// Product is a finished good with a per-day demand calendar. Demand[i] is the
// demand recognized on day i+1, consumed at 08:00 of the following day.
type Product struct {
	ID           ProductID
	InitialStock decimal.Decimal
	SafetyStock  decimal.Decimal
	Demand       []decimal.Decimal
}

// Formula is a recipe converting materials into one unit of a product. The
// Consumption map holds material quantity per unit produced. OperationalCost
// is the default per-unit cost of running this formula on any compatible
// equipment; Problem.OperationalCosts can override it per pair.
type Formula struct {
	ID              FormulaID
	Product         ProductID
	Consumption     map[MaterialID]decimal.Decimal
	Equipment       []EquipmentID
	OperationalCost decimal.Decimal
}

// Equipment is a single machine. Capacity is units per hour, a positive
// multiple of BatchSize. MaxRunHours is the continuous-operation limit before
// a mandatory one-hour cleaning.
type Equipment struct {
	ID          EquipmentID
	Capacity    int
	MaxRunHours int
}

// Problem is the full immutable planning input.
type Problem struct {
	Horizon   int // planning horizon in hours; states exist for hours 0..Horizon
	LeadTime  int // hours between placing a purchase and its delivery
	Window    Window
	Materials []Material
	Products  []Product
	Formulas  []Formula
	Equipment []Equipment

	// OperationalCosts optionally overrides Formula.OperationalCost for a
	// specific equipment/formula pair (per unit produced).
	OperationalCosts map[EquipmentID]map[FormulaID]decimal.Decimal
}

// Material returns the material with the given ID, or nil.
func (p *Problem) Material(id MaterialID) *Material {
	for i := range p.Materials {
		if p.Materials[i].ID == id {
			return &p.Materials[i]
		}
	}
	return nil
}

// Product returns the product with the given ID, or nil.
func (p *Problem) Product(id ProductID) *Product {
	for i := range p.Products {
		if p.Products[i].ID == id {
			return &p.Products[i]
		}
	}
	return nil
}

// Formula returns the formula with the given ID, or nil.
func (p *Problem) Formula(id FormulaID) *Formula {
	for i := range p.Formulas {
		if p.Formulas[i].ID == id {
			return &p.Formulas[i]
		}
	}
	return nil
}

// EquipmentByID returns the equipment unit with the given ID, or nil.
func (p *Problem) EquipmentByID(id EquipmentID) *Equipment {
	for i := range p.Equipment {
		if p.Equipment[i].ID == id {
			return &p.Equipment[i]
		}
	}
	return nil
}

// OperationalCost resolves the per-unit cost of running formula f on
// equipment e: the pair override when present, the formula default otherwise.
func (p *Problem) OperationalCost(e EquipmentID, f FormulaID) decimal.Decimal {
	if byFormula, ok := p.OperationalCosts[e]; ok {
		if cost, ok := byFormula[f]; ok {
			return cost
		}
	}
	if formula := p.Formula(f); formula != nil {
		return formula.OperationalCost
	}
	return decimal.Zero
}

// Compatible reports whether formula f may run on equipment e.
func (f *Formula) Compatible(e EquipmentID) bool {
	for _, id := range f.Equipment {
		if id == e {
			return true
		}
	}
	return false
}

// InitialStock returns the configured starting stock for an inventory item.
func (p *Problem) InitialStock(item ItemID) decimal.Decimal {
	if m := p.Material(MaterialID(item)); m != nil {
		return m.InitialStock
	}
	if prod := p.Product(ProductID(item)); prod != nil {
		return prod.InitialStock
	}
	return decimal.Zero
}

// SafetyStock returns the end-of-horizon floor for an inventory item.
func (p *Problem) SafetyStock(item ItemID) decimal.Decimal {
	if m := p.Material(MaterialID(item)); m != nil {
		return m.SafetyStock
	}
	if prod := p.Product(ProductID(item)); prod != nil {
		return prod.SafetyStock
	}
	return decimal.Zero
}

// Items returns every inventory key, materials first, in declaration order.
func (p *Problem) Items() []ItemID {
	items := make([]ItemID, 0, len(p.Materials)+len(p.Products))
	for _, m := range p.Materials {
		items = append(items, m.ID.Item())
	}
	for _, prod := range p.Products {
		items = append(items, prod.ID.Item())
	}
	return items
}

// DemandAt returns the demand quantity of each product that falls due at the
// given hour. The map is nil when no demand applies.
func (p *Problem) DemandAt(hour int) map[ProductID]decimal.Decimal {
	day, ok := demandDay(hour)
	if !ok {
		return nil
	}
	var due map[ProductID]decimal.Decimal
	for i := range p.Products {
		prod := &p.Products[i]
		if day > len(prod.Demand) {
			continue
		}
		qty := prod.Demand[day-1]
		if qty.IsZero() {
			continue
		}
		if due == nil {
			due = make(map[ProductID]decimal.Decimal)
		}
		due[prod.ID] = qty
	}
	return due
}

// Validate checks referential integrity and basic shape of the configuration.
// It fails fast with a ConfigurationError before any solve attempt.
func (p *Problem) Validate() error {
	if p.Horizon <= 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("horizon must be positive, got %d", p.Horizon)}
	}
	if p.LeadTime < 1 {
		return &ConfigurationError{Detail: fmt.Sprintf("purchase lead time must be at least 1 hour, got %d", p.LeadTime)}
	}
	if err := p.Window.validate(); err != nil {
		return err
	}

	seen := make(map[ItemID]bool)
	for _, m := range p.Materials {
		if m.ID == "" {
			return &ConfigurationError{Detail: "material with empty id"}
		}
		if seen[m.ID.Item()] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate item id %q", m.ID)}
		}
		seen[m.ID.Item()] = true
		if m.InitialStock.IsNegative() || m.SafetyStock.IsNegative() || m.Price.IsNegative() {
			return &ConfigurationError{Detail: fmt.Sprintf("material %q has a negative price or stock level", m.ID)}
		}
	}
	for _, prod := range p.Products {
		if prod.ID == "" {
			return &ConfigurationError{Detail: "product with empty id"}
		}
		if seen[prod.ID.Item()] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate item id %q", prod.ID)}
		}
		seen[prod.ID.Item()] = true
		if prod.InitialStock.IsNegative() || prod.SafetyStock.IsNegative() {
			return &ConfigurationError{Detail: fmt.Sprintf("product %q has a negative stock level", prod.ID)}
		}
		for i, qty := range prod.Demand {
			if qty.IsNegative() {
				return &ConfigurationError{Detail: fmt.Sprintf("product %q has negative demand on day %d", prod.ID, i+1)}
			}
			if !qty.IsZero() && DemandHour(i+1) > p.Horizon {
				return &ConfigurationError{Detail: fmt.Sprintf(
					"product %q demand for day %d falls due at hour %d, beyond horizon %d",
					prod.ID, i+1, DemandHour(i+1), p.Horizon)}
			}
		}
	}

	equipSeen := make(map[EquipmentID]bool)
	for _, e := range p.Equipment {
		if e.ID == "" {
			return &ConfigurationError{Detail: "equipment with empty id"}
		}
		if equipSeen[e.ID] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate equipment id %q", e.ID)}
		}
		equipSeen[e.ID] = true
		if e.Capacity <= 0 || e.Capacity%BatchSize != 0 {
			return &ConfigurationError{Detail: fmt.Sprintf(
				"equipment %q capacity %d is not a positive multiple of %d", e.ID, e.Capacity, BatchSize)}
		}
		if e.MaxRunHours < 1 {
			return &ConfigurationError{Detail: fmt.Sprintf("equipment %q max continuous run must be at least 1 hour", e.ID)}
		}
	}

	formulaSeen := make(map[FormulaID]bool)
	for i := range p.Formulas {
		f := &p.Formulas[i]
		if f.ID == "" {
			return &ConfigurationError{Detail: "formula with empty id"}
		}
		if formulaSeen[f.ID] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate formula id %q", f.ID)}
		}
		formulaSeen[f.ID] = true
		if p.Product(f.Product) == nil {
			return &ConfigurationError{Detail: fmt.Sprintf("formula %q references unknown product %q", f.ID, f.Product)}
		}
		if len(f.Equipment) == 0 {
			return &ConfigurationError{Detail: fmt.Sprintf("formula %q has no compatible equipment", f.ID)}
		}
		for _, e := range f.Equipment {
			if !equipSeen[e] {
				return &ConfigurationError{Detail: fmt.Sprintf("formula %q references unknown equipment %q", f.ID, e)}
			}
		}
		for m, rate := range f.Consumption {
			if p.Material(m) == nil {
				return &ConfigurationError{Detail: fmt.Sprintf("formula %q references unknown material %q", f.ID, m)}
			}
			if rate.IsNegative() {
				return &ConfigurationError{Detail: fmt.Sprintf("formula %q has a negative consumption rate for %q", f.ID, m)}
			}
		}
	}

	for e, byFormula := range p.OperationalCosts {
		if !equipSeen[e] {
			return &ConfigurationError{Detail: fmt.Sprintf("operational cost references unknown equipment %q", e)}
		}
		for f, cost := range byFormula {
			if !formulaSeen[f] {
				return &ConfigurationError{Detail: fmt.Sprintf("operational cost references unknown formula %q", f)}
			}
			if cost.IsNegative() {
				return &ConfigurationError{Detail: fmt.Sprintf("operational cost for %s/%s is negative", e, f)}
			}
		}
	}

	return nil
}
