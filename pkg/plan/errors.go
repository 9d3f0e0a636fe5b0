package plan

import (
	"fmt"
	"time"
)

// ConstraintFamily names a class of model constraints. Infeasibility reports
// carry the family that could not be satisfied so callers can tell a capacity
// problem from a material shortage.
type ConstraintFamily string

const (
	FamilyInitialInventory ConstraintFamily = "initial-inventory"
	FamilyFlowBalance      ConstraintFamily = "flow-balance"
	FamilyCapacity         ConstraintFamily = "capacity"
	FamilyBatchSize        ConstraintFamily = "batch-size"
	FamilyContinuousRun    ConstraintFamily = "continuous-run"
	FamilyOperatingWindow  ConstraintFamily = "operating-window"
	FamilyPurchaseWindow   ConstraintFamily = "purchase-window"
	FamilyCompatibility    ConstraintFamily = "equipment-compatibility"
	FamilyDemand           ConstraintFamily = "demand"
	FamilySafetyStock      ConstraintFamily = "safety-stock"
)

// ConfigurationError reports a malformed or inconsistent Problem. It is
// raised before any solve attempt.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Detail
}

// InfeasibleError reports that no schedule can satisfy every constraint, or
// that a concrete set of decisions violated one during replay. Hour is -1
// when the violation is not tied to a specific hour.
type InfeasibleError struct {
	Family ConstraintFamily
	Hour   int
	Detail string
}

func (e *InfeasibleError) Error() string {
	if e.Hour >= 0 {
		return fmt.Sprintf("infeasible (%s) at hour %d: %s", e.Family, e.Hour, e.Detail)
	}
	return fmt.Sprintf("infeasible (%s): %s", e.Family, e.Detail)
}

func infeasible(family ConstraintFamily, hour int, format string, args ...interface{}) *InfeasibleError {
	return &InfeasibleError{Family: family, Hour: hour, Detail: fmt.Sprintf(format, args...)}
}

// BudgetExhaustedError reports that the search budget expired before any
// feasible schedule was found. Budget expiry with an incumbent in hand is not
// an error; the incumbent is returned with its optimality gap instead.
type BudgetExhaustedError struct {
	Nodes   int64
	Elapsed time.Duration
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("search budget exhausted after %d nodes in %s without a feasible schedule", e.Nodes, e.Elapsed)
}

// ValidationMismatchError reports that replaying the solver's decisions
// through the state tracker disagreed with the claimed solution. This is
// always a defect in model construction or solver integration.
type ValidationMismatchError struct {
	Hour   int
	Detail string
	Cause  error
}

func (e *ValidationMismatchError) Error() string {
	return fmt.Sprintf("solution failed replay validation at hour %d: %s", e.Hour, e.Detail)
}

func (e *ValidationMismatchError) Unwrap() error { return e.Cause }
