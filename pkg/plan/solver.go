package plan

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SolveOptions configures the solver driver. The zero value solves to
// optimality on all CPUs without logging or metrics.
type SolveOptions struct {
	// TimeBudget bounds wall-clock search time; zero means unbounded.
	TimeBudget time.Duration
	// NodeBudget bounds the number of branch-and-bound nodes; zero means
	// unbounded.
	NodeBudget int64
	// Workers is the parallel search width; zero picks the CPU count.
	Workers int
	// Logger receives progress events; nil disables logging.
	Logger *zap.Logger
	// Metrics receives search counters; nil disables them.
	Metrics *SolverMetrics
}

func (o SolveOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o SolveOptions) workerCount() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Solve computes a minimum-cost production and purchasing schedule for the
// problem, or reports why none exists.
//
// The strategy is full-horizon branch and bound over the linear relaxation:
// the constraint builder assembles one mixed-integer model for the whole
// horizon, a greedy heuristic seeds the incumbent, and parallel workers
// explore the tree best-first. On budget expiry the best incumbent is
// returned as FEASIBLE with its optimality gap; INFEASIBLE is only reported
// when proven, together with the constraint family that cannot be satisfied.
// Every returned schedule has been replayed through the state tracker.
func Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error) {
	log := opts.logger()
	start := time.Now()

	pm, err := BuildModel(p)
	if err != nil {
		return nil, err
	}
	BuildObjective(pm)
	log.Info("model assembled",
		zap.Int("variables", len(pm.Model.Vars)),
		zap.Int("constraints", len(pm.Model.Cons)),
		zap.Int("horizon_hours", p.Horizon))

	if ie := precheck(p); ie != nil {
		log.Warn("structural infeasibility", zap.String("family", string(ie.Family)), zap.String("detail", ie.Detail))
		return &Solution{Status: StatusInfeasible, Infeasibility: ie}, nil
	}

	var warmX []float64
	warmObj := math.Inf(1)
	if decisions, ok := greedyPlan(p); ok {
		trajectory, rerr := Replay(p, decisions)
		if rerr == nil {
			warmX = solutionVector(pm, decisions, trajectory)
			warmObj = pm.Model.Objective(warmX)
			log.Info("warm start found", zap.Float64("objective", warmObj))
		}
	}

	res, err := branchAndBound(ctx, pm.Model, opts, warmX, warmObj)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	if opts.Metrics != nil {
		opts.Metrics.SolveDuration.Observe(elapsed.Seconds())
	}
	stats := SolveStats{
		Nodes:        res.Nodes,
		LPIterations: res.LPIterations,
		Incumbents:   res.Incumbents,
		Duration:     elapsed,
	}

	if res.Infeasible {
		ie := &InfeasibleError{Family: res.BadFamily, Hour: -1, Detail: "no schedule satisfies the constraint system"}
		if res.BadRow != "" {
			ie.Detail = fmt.Sprintf("constraint %s cannot be satisfied", res.BadRow)
		}
		log.Warn("problem is infeasible", zap.String("family", string(ie.Family)), zap.String("detail", ie.Detail))
		return &Solution{Status: StatusInfeasible, Infeasibility: ie, Stats: stats}, nil
	}
	if res.X == nil {
		return nil, &BudgetExhaustedError{Nodes: res.Nodes, Elapsed: elapsed}
	}

	sol, err := extractSolution(pm, res.X)
	if err != nil {
		return nil, err
	}
	sol.Stats = stats
	if res.Exhausted {
		sol.Status = StatusOptimal
		sol.Gap = 0
	} else {
		sol.Status = StatusFeasible
		sol.Gap = optimalityGap(res.Obj, res.Bound)
	}
	if opts.Metrics != nil {
		opts.Metrics.FinalGap.Set(sol.Gap)
	}
	log.Info("solve finished",
		zap.String("status", sol.Status.String()),
		zap.Float64("gap", sol.Gap),
		zap.Int64("nodes", res.Nodes),
		zap.Duration("elapsed", elapsed))
	return sol, nil
}

func optimalityGap(obj, bound float64) float64 {
	if math.IsInf(bound, -1) {
		return math.Inf(1)
	}
	gap := (obj - bound) / math.Max(math.Abs(obj), 1e-9)
	if gap < 0 {
		return 0
	}
	return gap
}

// precheck runs cheap structural feasibility tests before any search so the
// common impossibilities come back with a precise diagnosis: a demanded
// product nothing can produce, cumulative demand beyond all capacity
// reachable before its deadline, and production forced before the first
// possible material delivery.
func precheck(p *Problem) *InfeasibleError {
	firstDelivery := p.Horizon + 1
	for t := 0; t < p.Horizon; t++ {
		if p.Window.Operable(t) {
			firstDelivery = t + p.LeadTime
			break
		}
	}

	for i := range p.Products {
		prod := &p.Products[i]
		pairs := productPairs(p, prod.ID)

		cum := decimal.Zero
		lastDay := 0
		for day, qty := range prod.Demand {
			if qty.IsZero() {
				continue
			}
			cum = cum.Add(qty)
			lastDay = day + 1
			required := batchesFor(cum.Sub(prod.InitialStock))
			if required == 0 {
				continue
			}
			if len(pairs) == 0 {
				return infeasible(FamilyDemand, DemandHour(lastDay),
					"product %s has demand but no equipment/formula can produce it", prod.ID)
			}
			deadline := DemandHour(lastDay) - 1
			if avail := batchCapacityBefore(p, pairs, 0, deadline); avail < required {
				return infeasible(FamilyCapacity, DemandHour(lastDay),
					"equipment capacity insufficient to meet day-%d demand for %s: %d batches required, %d reachable before hour %d",
					lastDay, prod.ID, required, avail, deadline+1)
			}
			if ie := materialPrecheck(p, prod, pairs, required, deadline, firstDelivery); ie != nil {
				return ie
			}
		}
	}
	return nil
}

// materialPrecheck lower-bounds the consumption that must happen before the
// first possible purchase delivery and compares it with initial stock.
func materialPrecheck(p *Problem, prod *Product, pairs []prodKey, required int64, deadline, firstDelivery int) *InfeasibleError {
	lateCap := batchCapacityBefore(p, pairs, firstDelivery, deadline)
	early := required - lateCap
	if early <= 0 {
		return nil
	}
	for _, m := range p.Materials {
		minRate := decimal.Decimal{}
		first := true
		for _, pair := range pairs {
			rate := p.Formula(pair.Formula).Consumption[m.ID]
			if first || rate.LessThan(minRate) {
				minRate = rate
				first = false
			}
		}
		if first || !minRate.IsPositive() {
			continue
		}
		needed := minRate.Mul(decimal.NewFromInt(early * BatchSize))
		if needed.GreaterThan(m.InitialStock) {
			return infeasible(FamilyFlowBalance, firstDelivery,
				"material %s shortage: at least %s needed for %s before the first possible delivery at hour %d, initial stock is %s",
				m.ID, needed, prod.ID, firstDelivery, m.InitialStock)
		}
	}
	return nil
}

// productPairs lists the compatible (equipment, formula) pairs producing the
// given product.
func productPairs(p *Problem, id ProductID) []prodKey {
	var out []prodKey
	for _, pair := range p.pairs() {
		if p.Formula(pair.Formula).Product == id {
			out = append(out, pair)
		}
	}
	return out
}

// batchCapacityBefore counts the batches the product's equipment could turn
// out in hours [from, deadline], using each unit's cleaning-reserved slot
// pattern and counting every unit once.
func batchCapacityBefore(p *Problem, pairs []prodKey, from, deadline int) int64 {
	seen := make(map[EquipmentID]bool)
	total := int64(0)
	ops := operableHours(p.Horizon, p.Window)
	for _, pair := range pairs {
		if seen[pair.Equipment] {
			continue
		}
		seen[pair.Equipment] = true
		e := p.EquipmentByID(pair.Equipment)
		for i, t := range ops {
			if t < from || t > deadline {
				continue
			}
			if i%(e.MaxRunHours+1) == e.MaxRunHours {
				continue
			}
			total += int64(e.Capacity / BatchSize)
		}
	}
	return total
}

// solutionVector renders a replayed decision set into the model's variable
// space, for warm-starting the search.
func solutionVector(pm *PlanModel, decisions []HourDecision, trajectory []*ScheduleState) []float64 {
	x := make([]float64, len(pm.Model.Vars))
	for key, col := range pm.Inv {
		x[col] = trajectory[key.Hour].Stock[key.Item].InexactFloat64()
	}
	for t, d := range decisions {
		for _, a := range d.Assignments {
			x[pm.Batches[prodKey{a.Equipment, a.Formula, t}]] = float64(a.Quantity / BatchSize)
			x[pm.Status[equipHourKey{a.Equipment, t}]] = 1
		}
		for _, po := range d.Purchases {
			x[pm.Buy[itemHourKey{po.Material.Item(), t}]] += po.Quantity.InexactFloat64()
		}
	}
	return x
}
