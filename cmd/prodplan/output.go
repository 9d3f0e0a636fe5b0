package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"prodplan/pkg/plan"
)

func renderSolution(w io.Writer, format string, p *plan.Problem, sol *plan.Solution) error {
	switch format {
	case "text":
		renderText(w, p, sol)
		return nil
	case "json":
		return renderJSON(w, p, sol)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func clock(t int) string {
	return fmt.Sprintf("day %d %02d:00", t/24+1, t%24)
}

func renderText(w io.Writer, p *plan.Problem, sol *plan.Solution) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                     PRODUCTION SCHEDULE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Status: %s\n", sol.Status)
	if sol.Status == plan.StatusInfeasible {
		fmt.Fprintf(w, "Reason: %v\n", sol.Infeasibility)
		return
	}
	if sol.Status == plan.StatusFeasible {
		fmt.Fprintf(w, "Gap:    %.4f%% (best bound not yet proven tight)\n", sol.Gap*100)
	}
	fmt.Fprintf(w, "Search: %d nodes, %d LP iterations, %d incumbents in %s\n",
		sol.Stats.Nodes, sol.Stats.LPIterations, sol.Stats.Incumbents, sol.Stats.Duration.Round(time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💰 COST")
	fmt.Fprintf(w, "  Operational: %12s\n", sol.Cost.Operational)
	fmt.Fprintf(w, "  Purchase:    %12s\n", sol.Cost.Purchase)
	fmt.Fprintf(w, "  Total:       %12s\n", sol.Cost.Total)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🏭 SCHEDULE")
	fmt.Fprintln(w, "────────────────────────────────────────────────────────────────")
	for _, rec := range sol.Records {
		if !hourActive(rec) {
			continue
		}
		fmt.Fprintf(w, "Hour %3d (%s)\n", rec.Hour, clock(rec.Hour))
		for _, id := range equipmentOrder(p) {
			act := rec.Equipment[id]
			switch {
			case act.Quantity > 0:
				fmt.Fprintf(w, "  %-10s producing  %-10s %5d units\n", id, act.Formula, act.Quantity)
			case act.Phase == plan.PhaseCleaning:
				fmt.Fprintf(w, "  %-10s cleaning\n", id)
			}
		}
		for _, po := range rec.Purchases {
			fmt.Fprintf(w, "  buy %-8s %12s (arrives %s)\n", po.Material, po.Quantity, clock(po.Hour+p.LeadTime))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📦 END-OF-HORIZON STOCK")
	last := sol.Records[len(sol.Records)-1]
	for _, item := range p.Items() {
		fmt.Fprintf(w, "  %-10s %12s\n", item, last.Stock[item])
	}
}

func hourActive(rec plan.HourRecord) bool {
	if len(rec.Purchases) > 0 {
		return true
	}
	for _, act := range rec.Equipment {
		if act.Quantity > 0 || act.Phase == plan.PhaseCleaning {
			return true
		}
	}
	return false
}

func equipmentOrder(p *plan.Problem) []plan.EquipmentID {
	ids := make([]plan.EquipmentID, 0, len(p.Equipment))
	for _, e := range p.Equipment {
		ids = append(ids, e.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type jsonAssignment struct {
	Equipment string `json:"equipment"`
	Formula   string `json:"formula"`
	Quantity  int    `json:"quantity"`
}

type jsonPurchase struct {
	Material    string `json:"material"`
	Quantity    string `json:"quantity"`
	ArrivalHour int    `json:"arrival_hour"`
}

type jsonHour struct {
	Hour        int               `json:"hour"`
	Assignments []jsonAssignment  `json:"assignments,omitempty"`
	Purchases   []jsonPurchase    `json:"purchases,omitempty"`
	Cleaning    []string          `json:"cleaning,omitempty"`
	Stock       map[string]string `json:"stock,omitempty"`
}

type jsonReport struct {
	Status        string            `json:"status"`
	Gap           float64           `json:"gap"`
	Infeasibility string            `json:"infeasibility,omitempty"`
	Cost          map[string]string `json:"cost,omitempty"`
	Hours         []jsonHour        `json:"hours,omitempty"`
	EndStock      map[string]string `json:"end_stock,omitempty"`
	Nodes         int64             `json:"nodes"`
	LPIterations  int64             `json:"lp_iterations"`
	DurationMS    int64             `json:"duration_ms"`
}

func renderJSON(w io.Writer, p *plan.Problem, sol *plan.Solution) error {
	report := jsonReport{
		Status:       sol.Status.String(),
		Gap:          sol.Gap,
		Nodes:        sol.Stats.Nodes,
		LPIterations: sol.Stats.LPIterations,
		DurationMS:   sol.Stats.Duration.Milliseconds(),
	}
	if sol.Status == plan.StatusInfeasible {
		report.Infeasibility = sol.Infeasibility.Error()
	} else {
		report.Cost = map[string]string{
			"operational": sol.Cost.Operational.String(),
			"purchase":    sol.Cost.Purchase.String(),
			"total":       sol.Cost.Total.String(),
		}
		for _, rec := range sol.Records {
			if !hourActive(rec) {
				continue
			}
			h := jsonHour{Hour: rec.Hour}
			for _, id := range equipmentOrder(p) {
				act := rec.Equipment[id]
				if act.Quantity > 0 {
					h.Assignments = append(h.Assignments, jsonAssignment{
						Equipment: string(id),
						Formula:   string(act.Formula),
						Quantity:  act.Quantity,
					})
				}
				if act.Phase == plan.PhaseCleaning {
					h.Cleaning = append(h.Cleaning, string(id))
				}
			}
			for _, po := range rec.Purchases {
				h.Purchases = append(h.Purchases, jsonPurchase{
					Material:    string(po.Material),
					Quantity:    po.Quantity.String(),
					ArrivalHour: po.Hour + p.LeadTime,
				})
			}
			report.Hours = append(report.Hours, h)
		}
		report.EndStock = make(map[string]string, len(p.Items()))
		last := sol.Records[len(sol.Records)-1]
		for _, item := range p.Items() {
			report.EndStock[string(item)] = last.Stock[item].String()
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderCheck(w io.Writer, path string, p *plan.Problem) {
	fmt.Fprintf(w, "Scenario %s is valid.\n", path)
	fmt.Fprintf(w, "  Horizon:   %d hours (%d days)\n", p.Horizon, (p.Horizon+23)/24)
	fmt.Fprintf(w, "  Window:    %02d:00-%02d:00, purchase lead time %d hour(s)\n", p.Window.Start, p.Window.End, p.LeadTime)
	fmt.Fprintf(w, "  Materials: %d   Products: %d   Formulas: %d   Equipment: %d\n",
		len(p.Materials), len(p.Products), len(p.Formulas), len(p.Equipment))

	pairs := 0
	for i := range p.Formulas {
		pairs += len(p.Formulas[i].Equipment)
	}
	fmt.Fprintf(w, "  Compatible equipment/formula pairs: %d\n", pairs)
}
