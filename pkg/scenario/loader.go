package scenario

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"prodplan/pkg/plan"
)

// Number is a decimal quantity parsed from the scalar's literal text, so
// "0.1" survives loading exactly.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number", node.Line, node.Value)
	}
	n.Decimal = d
	return nil
}

type materialSpec struct {
	ID           string `yaml:"id"`
	Price        Number `yaml:"price"`
	InitialStock Number `yaml:"initial_stock"`
	SafetyStock  Number `yaml:"safety_stock"`
}

type productSpec struct {
	ID           string   `yaml:"id"`
	InitialStock Number   `yaml:"initial_stock"`
	SafetyStock  Number   `yaml:"safety_stock"`
	Demand       []Number `yaml:"demand"`
}

type formulaSpec struct {
	ID              string            `yaml:"id"`
	Product         string            `yaml:"product"`
	Consumption     map[string]Number `yaml:"consumption"`
	Equipment       []string          `yaml:"equipment"`
	OperationalCost Number            `yaml:"operational_cost"`
}

type equipmentSpec struct {
	ID          string `yaml:"id"`
	Capacity    int    `yaml:"capacity"`
	MaxRunHours int    `yaml:"max_run_hours"`
}

type windowSpec struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type scenarioSpec struct {
	HorizonHours     int                          `yaml:"horizon_hours"`
	LeadTimeHours    int                          `yaml:"lead_time_hours"`
	Window           *windowSpec                  `yaml:"window"`
	Materials        []materialSpec               `yaml:"materials"`
	Products         []productSpec                `yaml:"products"`
	Formulas         []formulaSpec                `yaml:"formulas"`
	Equipment        []equipmentSpec              `yaml:"equipment"`
	OperationalCosts map[string]map[string]Number `yaml:"operational_costs"`
}

// Load reads a scenario file and converts it into a validated planning
// problem.
func Load(path string) (*plan.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file %s: %w", path, err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML scenario. Unknown fields are rejected; omitted
// horizon, lead time and window fall back to their defaults.
func Parse(r io.Reader) (*plan.Problem, error) {
	var spec scenarioSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to decode scenario YAML: %w", err)
	}
	return spec.problem()
}

func (s *scenarioSpec) problem() (*plan.Problem, error) {
	p := &plan.Problem{
		Horizon:  s.HorizonHours,
		LeadTime: s.LeadTimeHours,
		Window:   plan.DefaultWindow(),
	}
	if s.Window != nil {
		p.Window = plan.Window{Start: s.Window.Start, End: s.Window.End}
	}
	if p.LeadTime == 0 {
		p.LeadTime = 1
	}

	lastDemandDay := 0
	for _, m := range s.Materials {
		p.Materials = append(p.Materials, plan.Material{
			ID:           plan.MaterialID(m.ID),
			Price:        m.Price.Decimal,
			InitialStock: m.InitialStock.Decimal,
			SafetyStock:  m.SafetyStock.Decimal,
		})
	}
	for _, prod := range s.Products {
		out := plan.Product{
			ID:           plan.ProductID(prod.ID),
			InitialStock: prod.InitialStock.Decimal,
			SafetyStock:  prod.SafetyStock.Decimal,
		}
		for day, qty := range prod.Demand {
			out.Demand = append(out.Demand, qty.Decimal)
			if !qty.Decimal.IsZero() && day+1 > lastDemandDay {
				lastDemandDay = day + 1
			}
		}
		p.Products = append(p.Products, out)
	}
	for _, f := range s.Formulas {
		out := plan.Formula{
			ID:              plan.FormulaID(f.ID),
			Product:         plan.ProductID(f.Product),
			OperationalCost: f.OperationalCost.Decimal,
		}
		if len(f.Consumption) > 0 {
			out.Consumption = make(map[plan.MaterialID]decimal.Decimal, len(f.Consumption))
			for m, rate := range f.Consumption {
				out.Consumption[plan.MaterialID(m)] = rate.Decimal
			}
		}
		for _, e := range f.Equipment {
			out.Equipment = append(out.Equipment, plan.EquipmentID(e))
		}
		p.Formulas = append(p.Formulas, out)
	}
	for _, e := range s.Equipment {
		p.Equipment = append(p.Equipment, plan.Equipment{
			ID:          plan.EquipmentID(e.ID),
			Capacity:    e.Capacity,
			MaxRunHours: e.MaxRunHours,
		})
	}
	if len(s.OperationalCosts) > 0 {
		p.OperationalCosts = make(map[plan.EquipmentID]map[plan.FormulaID]decimal.Decimal, len(s.OperationalCosts))
		for e, byFormula := range s.OperationalCosts {
			inner := make(map[plan.FormulaID]decimal.Decimal, len(byFormula))
			for f, cost := range byFormula {
				inner[plan.FormulaID(f)] = cost.Decimal
			}
			p.OperationalCosts[plan.EquipmentID(e)] = inner
		}
	}

	// The horizon defaults to the end of the day on which the last demand is
	// filled, leaving that day's window open for safety-stock production.
	if p.Horizon == 0 {
		if lastDemandDay > 0 {
			p.Horizon = 24 * (lastDemandDay + 1)
		} else {
			p.Horizon = 24
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
