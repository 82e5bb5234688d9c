package analyzer

import (
	"fmt"

	"github.com/wundergraph/qp-analyzer/pkg/overrides"
	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

type QueryPlanResult struct {
	// QueryPlanConfig is the configuration affecting the generation of this query plan
	QueryPlanConfig QueryPlanConfig `json:"query_plan_config"`
	// QueryPlanDisplay is the human-readable rendering of the plan
	QueryPlanDisplay string `json:"query_plan_display"`
	// ExperimentalQueryPlanSerialized is the structured plan, its shape may change between releases
	ExperimentalQueryPlanSerialized *queryplan.QueryPlan `json:"experimental_query_plan_serialized"`
}

type QueryPlanConfig struct {
	OverrideConditions []string `json:"override_conditions"`
}

func NewQueryPlanResult(combination overrides.Combination, plan *queryplan.QueryPlan) QueryPlanResult {
	conditions := make([]string, len(combination))
	copy(conditions, combination)
	return QueryPlanResult{
		QueryPlanConfig: QueryPlanConfig{
			OverrideConditions: conditions,
		},
		QueryPlanDisplay:                plan.String(),
		ExperimentalQueryPlanSerialized: plan,
	}
}

// PlanBuildError reports the combination the planner failed on.
type PlanBuildError struct {
	Index       int
	Combination overrides.Combination
	Err         error
}

func (e *PlanBuildError) Error() string {
	return fmt.Sprintf("override combination #%d %s: %s", e.Index, e.Combination, e.Err)
}

func (e *PlanBuildError) Unwrap() error {
	return e.Err
}
