// Package analyzer plans one operation under every combination of progressive
// override labels of a supergraph, or under a single user supplied combination.
package analyzer

import (
	"io"
	"os"

	"github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"

	"github.com/wundergraph/qp-analyzer/pkg/overrides"
	"github.com/wundergraph/qp-analyzer/pkg/planner"
	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

// QueryPlanner is the planning engine the analyzer drives.
type QueryPlanner interface {
	OverrideConditionLabels() []string
	ParseOperation(query, source string) (*planner.Operation, error)
	BuildQueryPlan(operation *planner.Operation, options planner.QueryPlanOptions) (*queryplan.QueryPlan, error)
}

// PlannerFactory compiles schema and instantiates a QueryPlanner for it.
type PlannerFactory func(schema string, config planner.Configuration) (QueryPlanner, error)

func DefaultPlannerFactory(schema string, config planner.Configuration) (QueryPlanner, error) {
	p, err := planner.NewFromSDL(schema, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type Analyzer struct {
	factory  PlannerFactory
	logger   abstractlogger.Logger
	observer Observer
	output   io.Writer
}

type Option func(a *Analyzer)

func WithPlannerFactory(factory PlannerFactory) Option {
	return func(a *Analyzer) {
		a.factory = factory
	}
}

func WithLogger(logger abstractlogger.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithObserver registers an observer notified for every planned combination.
func WithObserver(observer Observer) Option {
	return func(a *Analyzer) {
		a.observer = observer
	}
}

// WithOutput sets where verbose runs print the combination banners and plans, defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Analyzer) {
		a.output = w
	}
}

func New(options ...Option) *Analyzer {
	a := &Analyzer{
		factory: DefaultPlannerFactory,
		logger:  abstractlogger.Noop{},
		output:  os.Stdout,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// OverrideLabels returns the override labels of schema in discovery order.
func (a *Analyzer) OverrideLabels(schema string) ([]string, error) {
	config := planner.DefaultConfiguration()
	config.Logger = a.logger
	qp, err := a.factory(schema, config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	labels, err := overrides.NewLabelSet(qp.OverrideConditionLabels()...)
	if err != nil {
		return nil, err
	}
	return labels.Labels(), nil
}

// run is the state shared by the planning calls of one invocation.
// The label set is read from the planner once and reused for every combination.
type run struct {
	planner   QueryPlanner
	operation *planner.Operation
	labels    *overrides.LabelSet
}

func (a *Analyzer) prepare(schema, query, queryPath string, config planner.Configuration) (*run, error) {
	if config.Logger == nil {
		config.Logger = a.logger
	}
	qp, err := a.factory(schema, config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	operation, err := qp.ParseOperation(query, queryPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	labels, err := overrides.NewLabelSet(qp.OverrideConditionLabels()...)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Override condition labels: " + labels.String())
	return &run{
		planner:   qp,
		operation: operation,
		labels:    labels,
	}, nil
}

// BuildAllPlans plans query once per combination of the override labels of schema,
// in enumeration order. The first failing combination aborts the run with a *PlanBuildError.
func (a *Analyzer) BuildAllPlans(schema, query, queryPath string, config planner.Configuration, verbose bool) ([]QueryPlanResult, error) {
	r, err := a.prepare(schema, query, queryPath, config)
	if err != nil {
		return nil, err
	}

	observer := a.observer
	if verbose {
		observer = multiObserver{observer, NewConsoleObserver(a.output)}
	}
	if observer == nil {
		observer = noopObserver{}
	}

	results := make([]QueryPlanResult, 0, min(overrides.Count(r.labels), 1<<10))
	err = overrides.Each(r.labels, func(index int, combination overrides.Combination) error {
		a.logger.Debug("planning override combination",
			abstractlogger.Int("index", index),
			abstractlogger.String("combination", combination.String()),
		)
		observer.CombinationStarted(index, combination)

		plan, err := r.planner.BuildQueryPlan(r.operation, planner.QueryPlanOptions{OverrideConditions: combination})
		if err != nil {
			return &PlanBuildError{Index: index, Combination: combination, Err: err}
		}

		observer.CombinationPlanned(index, combination, plan)
		results = append(results, NewQueryPlanResult(combination, plan))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// BuildOnePlan plans query with exactly the given override conditions enabled,
// or every label when overrideAll is set. Conditions are validated before planning.
func (a *Analyzer) BuildOnePlan(schema, query, queryPath string, config planner.Configuration, conditions []string, overrideAll bool) (*QueryPlanResult, error) {
	r, err := a.prepare(schema, query, queryPath, config)
	if err != nil {
		return nil, err
	}

	combination, err := overrides.Resolve(r.labels, conditions, overrideAll)
	if err != nil {
		return nil, err
	}

	plan, err := r.planner.BuildQueryPlan(r.operation, planner.QueryPlanOptions{OverrideConditions: combination})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result := NewQueryPlanResult(combination, plan)
	return &result, nil
}
