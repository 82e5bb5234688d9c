package planner

import (
	"github.com/jensneuse/abstractlogger"
)

// DefaultMaxEvaluatedPlans bounds the number of candidate plans costed per operation
// when the caller does not set a limit.
const DefaultMaxEvaluatedPlans uint32 = 10_000

type Configuration struct {
	Logger abstractlogger.Logger

	// GenerateQueryFragments extracts repeated selection sets of a subgraph fetch into named fragments
	GenerateQueryFragments bool
	IncrementalDelivery    IncrementalDeliveryConfiguration
	// TypeConditionedFetching adds the type conditions of abstract selections to flatten paths
	TypeConditionedFetching bool

	Debug DebugConfiguration
}

type IncrementalDeliveryConfiguration struct {
	EnableDefer bool
}

type DebugConfiguration struct {
	// MaxEvaluatedPlans is the maximum number of root field assignments costed, must be positive
	MaxEvaluatedPlans uint32
	// PathsLimit caps the candidate subgraphs considered per field, 0 means no limit
	PathsLimit uint32
}

func DefaultConfiguration() Configuration {
	return Configuration{
		GenerateQueryFragments: true,
		IncrementalDelivery: IncrementalDeliveryConfiguration{
			EnableDefer: true,
		},
		Debug: DebugConfiguration{
			MaxEvaluatedPlans: DefaultMaxEvaluatedPlans,
		},
	}
}

func (c Configuration) logger() abstractlogger.Logger {
	if c.Logger == nil {
		return abstractlogger.Noop{}
	}
	return c.Logger
}

// Args are the planner knobs as supplied by users, mirroring the router configuration.
// The zero value of a limit selects its default.
type Args struct {
	// DisableGenerateQueryFragments disables optimization of subgraph fetch queries using fragments
	DisableGenerateQueryFragments bool `json:"disable_generate_query_fragments" mapstructure:"disable-generate-query-fragments"`
	DisableDeferSupport           bool `json:"disable_defer_support" mapstructure:"disable-defer-support"`

	ExperimentalTypeConditionedFetching bool `json:"experimental_type_conditioned_fetching" mapstructure:"experimental-type-conditioned-fetching"`
	// ExperimentalPlansLimit sets a limit to the number of generated query plans, 0 selects DefaultMaxEvaluatedPlans
	ExperimentalPlansLimit uint32 `json:"experimental_plans_limit" mapstructure:"experimental-plans-limit"`
	// ExperimentalPathsLimit is a per-path limit to the number of options considered, 0 means no limit
	ExperimentalPathsLimit uint32 `json:"experimental_paths_limit" mapstructure:"experimental-paths-limit"`
}

func DefaultArgs() Args {
	return Args{
		ExperimentalPlansLimit: DefaultMaxEvaluatedPlans,
	}
}

func (a Args) Configuration() Configuration {
	maxEvaluatedPlans := a.ExperimentalPlansLimit
	if maxEvaluatedPlans == 0 {
		maxEvaluatedPlans = DefaultMaxEvaluatedPlans
	}
	return Configuration{
		GenerateQueryFragments: !a.DisableGenerateQueryFragments,
		IncrementalDelivery: IncrementalDeliveryConfiguration{
			EnableDefer: !a.DisableDeferSupport,
		},
		TypeConditionedFetching: a.ExperimentalTypeConditionedFetching,
		Debug: DebugConfiguration{
			MaxEvaluatedPlans: maxEvaluatedPlans,
			PathsLimit:        a.ExperimentalPathsLimit,
		},
	}
}
