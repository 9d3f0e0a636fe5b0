package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodplan/pkg/plan"
)

const sampleScenario = `
horizon_hours: 48
lead_time_hours: 2
window:
  start: 8
  end: 20
materials:
  - id: M1
    price: 2.5
    initial_stock: 500
products:
  - id: P1
    safety_stock: 10
    demand: [50]
formulas:
  - id: F1
    product: P1
    consumption:
      M1: 0.1
    equipment: [E1]
    operational_cost: 5
equipment:
  - id: E1
    capacity: 50
    max_run_hours: 8
operational_costs:
  E1:
    F1: 4.5
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(sampleScenario))
	require.NoError(t, err)

	assert.Equal(t, 48, p.Horizon)
	assert.Equal(t, 2, p.LeadTime)
	assert.Equal(t, plan.Window{Start: 8, End: 20}, p.Window)

	m := p.Material("M1")
	require.NotNil(t, m)
	assert.Equal(t, "2.5", m.Price.String())
	assert.Equal(t, "500", m.InitialStock.String())

	prod := p.Product("P1")
	require.NotNil(t, prod)
	assert.Equal(t, "10", prod.SafetyStock.String())
	require.Len(t, prod.Demand, 1)
	assert.Equal(t, "50", prod.Demand[0].String())

	f := p.Formula("F1")
	require.NotNil(t, f)
	assert.Equal(t, plan.ProductID("P1"), f.Product)
	assert.Equal(t, "0.1", f.Consumption["M1"].String(), "decimal rates survive loading exactly")
	assert.Equal(t, []plan.EquipmentID{"E1"}, f.Equipment)

	assert.Equal(t, "4.5", p.OperationalCost("E1", "F1").String())
}

func TestParseDefaults(t *testing.T) {
	minimal := `
materials:
  - id: M1
    price: 1
    initial_stock: 1000
products:
  - id: P1
    demand: [0, 30]
formulas:
  - id: F1
    product: P1
    consumption:
      M1: 1
    equipment: [E1]
    operational_cost: 2
equipment:
  - id: E1
    capacity: 30
    max_run_hours: 8
`
	p, err := Parse(strings.NewReader(minimal))
	require.NoError(t, err)

	assert.Equal(t, 1, p.LeadTime)
	assert.Equal(t, plan.DefaultWindow(), p.Window)
	// Last demand is day 2, filled at hour 56; the horizon runs to the end
	// of day 3.
	assert.Equal(t, 72, p.Horizon)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("horizon_hours: 24\nfrobnicate: yes\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestParseRejectsBadNumber(t *testing.T) {
	bad := strings.Replace(sampleScenario, "price: 2.5", "price: lots", 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lots")
}

func TestParseRejectsInvalidProblem(t *testing.T) {
	bad := strings.Replace(sampleScenario, "capacity: 50", "capacity: 55", 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
	var cfg *plan.ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScenario), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48, p.Horizon)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
