// Package planner builds federated query plans from a supergraph schema.
//
// A Planner is configured once per supergraph and plans any number of operations.
// Override conditions are passed per call, so one planner serves every combination
// of progressive override labels.
package planner

import (
	"slices"
	"strings"

	"github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

type QueryPlanOptions struct {
	// OverrideConditions are the progressive override labels enabled for this plan
	OverrideConditions []string
}

type Planner struct {
	supergraph *Supergraph
	config     Configuration
	logger     abstractlogger.Logger
}

func New(supergraph *Supergraph, config Configuration) (*Planner, error) {
	if supergraph == nil {
		return nil, &ConfigurationError{Message: "supergraph is required"}
	}
	if config.Debug.MaxEvaluatedPlans == 0 {
		return nil, &ConfigurationError{Message: "max evaluated plans must be positive"}
	}
	return &Planner{
		supergraph: supergraph,
		config:     config,
		logger:     config.logger(),
	}, nil
}

// NewFromSDL parses the supergraph SDL and returns a planner for it.
func NewFromSDL(sdl string, config Configuration) (*Planner, error) {
	supergraph, err := ParseSupergraph(sdl)
	if err != nil {
		return nil, err
	}
	return New(supergraph, config)
}

func (p *Planner) Supergraph() *Supergraph {
	return p.supergraph
}

// OverrideConditionLabels returns the override labels declared by the supergraph.
func (p *Planner) OverrideConditionLabels() []string {
	return p.supergraph.OverrideLabels()
}

func (p *Planner) ParseOperation(query, source string) (*Operation, error) {
	return ParseOperation(p.supergraph, query, source)
}

// BuildQueryPlan plans operation with the labels of options enabled.
// Labels unknown to the supergraph have no effect.
func (p *Planner) BuildQueryPlan(operation *Operation, options QueryPlanOptions) (*queryplan.QueryPlan, error) {
	if operation == nil {
		return nil, &PlanError{Message: "operation is required"}
	}
	if operation.Kind == OperationKindSubscription {
		return nil, &PlanError{Message: "subscriptions are not supported"}
	}

	b := &builder{
		supergraph: p.supergraph,
		config:     p.config,
		logger:     p.logger,
		operation:  operation,
		active:     make(map[string]struct{}, len(options.OverrideConditions)),
	}
	for _, label := range options.OverrideConditions {
		b.active[label] = struct{}{}
	}

	primary, deferred := b.partition(operation.selections)

	plan := &queryplan.QueryPlan{}
	node, evaluated, err := b.plan(primary)
	if err != nil {
		return nil, err
	}
	plan.Statistics.EvaluatedPlanCount += evaluated

	if len(deferred) == 0 {
		plan.Node = node
	} else {
		blocks := make([]*queryplan.Deferred, 0, len(deferred))
		for _, fragment := range deferred {
			deferredNode, evaluated, err := b.plan(fragment.children)
			if err != nil {
				return nil, err
			}
			plan.Statistics.EvaluatedPlanCount += evaluated
			blocks = append(blocks, &queryplan.Deferred{
				Label: fragment.deferLabel,
				Path:  []string{},
				Node:  deferredNode,
			})
		}
		plan.Node = queryplan.DeferNode(node, blocks...)
	}

	p.logger.Debug("built query plan",
		abstractlogger.String("operation", operation.Name),
		abstractlogger.Any("overrideConditions", options.OverrideConditions),
		abstractlogger.Int("evaluatedPlans", plan.Statistics.EvaluatedPlanCount),
		abstractlogger.Int("fetches", plan.Node.FetchCount()),
	)
	return plan, nil
}

type builder struct {
	supergraph *Supergraph
	config     Configuration
	logger     abstractlogger.Logger
	operation  *Operation
	active     map[string]struct{}
}

// partition separates deferred root fragments from the primary selections.
// Root fragments that do not narrow the type are spliced into the root selection set.
func (b *builder) partition(selections []*operationSelection) (primary, deferred []*operationSelection) {
	for _, sel := range selections {
		if sel.kind != inlineFragmentSelection {
			primary = append(primary, sel)
			continue
		}
		if sel.deferred && b.config.IncrementalDelivery.EnableDefer {
			deferred = append(deferred, sel)
			continue
		}
		nestedPrimary, nestedDeferred := b.partition(sel.children)
		primary = append(primary, nestedPrimary...)
		deferred = append(deferred, nestedDeferred...)
	}
	return primary, deferred
}

// plan costs assignments of root fields to subgraphs and returns the cheapest plan.
// At most MaxEvaluatedPlans assignments are evaluated.
func (b *builder) plan(selections []*operationSelection) (*queryplan.Node, int, error) {
	rootType := b.operation.rootType
	sequential := b.operation.Kind == OperationKindMutation

	var (
		fields  []*operationSelection
		choices [][]string
	)
	for _, sel := range selections {
		if sel.name == typeNameField {
			fields = append(fields, sel)
			choices = append(choices, nil)
			continue
		}
		if sel.name == schemaField || sel.name == typeField {
			return nil, 0, planErrorf(nil, "introspection field %s is not supported", sel.name)
		}
		candidates := b.candidates(rootType, sel.name)
		if len(candidates) == 0 {
			return nil, 0, planErrorf([]string{sel.responseName()}, "cannot resolve field %s.%s: no subgraph resolves it with the enabled override conditions", rootType, sel.name)
		}
		fields = append(fields, sel)
		choices = append(choices, candidates)
	}

	var (
		best      *assembly
		bestCost  cost
		firstErr  error
		evaluated int
	)
	indices := make([]int, len(fields))
	for {
		evaluated++
		candidate, err := b.assemble(rootType, fields, choices, indices, sequential)
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		case best == nil || candidate.cost().less(bestCost):
			best, bestCost = candidate, candidate.cost()
		}
		if evaluated >= int(b.config.Debug.MaxEvaluatedPlans) || !advance(indices, choices) {
			break
		}
	}
	if best == nil {
		return nil, evaluated, firstErr
	}

	nodes := make([]*queryplan.Node, 0, len(best.roots))
	for _, root := range best.roots {
		nodes = append(nodes, best.node(root))
	}
	if sequential {
		return queryplan.Sequence(nodes...), evaluated, nil
	}
	return queryplan.Parallel(nodes...), evaluated, nil
}

// advance moves indices to the next assignment, it returns false after the last one.
func advance(indices []int, choices [][]string) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		if len(choices[i]) < 2 {
			continue
		}
		indices[i]++
		if indices[i] < len(choices[i]) {
			return true
		}
		indices[i] = 0
	}
	return false
}

func (b *builder) assemble(rootType string, fields []*operationSelection, choices [][]string, indices []int, sequential bool) (*assembly, error) {
	a := &assembly{builder: b}
	var typenames []*operationSelection
	for i, field := range fields {
		if choices[i] == nil {
			typenames = append(typenames, field)
			continue
		}
		root := a.rootGroup(choices[i][indices[i]], rootType, sequential)
		if err := a.walkField(root, root.selection, field, nil, nil); err != nil {
			return nil, err
		}
	}
	if len(a.roots) > 0 {
		for _, typename := range typenames {
			a.roots[0].selection.addField(typeNameField, typename.alias, "", "")
		}
	}
	return a, nil
}

// candidates returns the subgraphs considered for typeName.fieldName, capped by PathsLimit.
func (b *builder) candidates(typeName, fieldName string) []string {
	candidates := b.supergraph.fieldGraphs(typeName, fieldName, b.active)
	if limit := int(b.config.Debug.PathsLimit); limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// withField appends the response name of sel to path, followed by one "@" per list level.
func (b *builder) withField(path []string, sel *operationSelection) []string {
	out := make([]string, 0, len(path)+1+sel.listDepth)
	out = append(out, path...)
	out = append(out, sel.responseName())
	for range sel.listDepth {
		out = append(out, "@")
	}
	return out
}

// withTypeCondition marks the last path element with the type condition of an
// abstract selection, e.g. products.@|[Book].
func (b *builder) withTypeCondition(path []string, typeCondition string) []string {
	if !b.config.TypeConditionedFetching || len(path) == 0 {
		return path
	}
	out := slices.Clone(path)
	last := out[len(out)-1]
	if i := strings.Index(last, "|["); i >= 0 {
		last = last[:i]
	}
	out[len(out)-1] = last + "|[" + typeCondition + "]"
	return out
}
