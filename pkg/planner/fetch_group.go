package planner

import (
	"slices"
	"strings"

	"github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

const entitiesTypeName = "_Entity"

// fetchGroup collects the selections sent to one subgraph in one fetch.
// Entity groups are resolved through _entities with representations selected by requires,
// one inline fragment per entity type found at path.
type fetchGroup struct {
	graph  string
	entity bool
	path   []string

	requires  *selectionSet
	selection *selectionSet
	variables []string

	children []*fetchGroup
}

func (g *fetchGroup) entityRoot(typeName string) *selectionSet {
	return g.selection.addInlineFragment(typeName).children
}

func (g *fetchGroup) representation(typeName string) *selectionSet {
	return g.requires.addInlineFragment(typeName).children
}

// child returns the entity fetch of graph at path. Entities of different types at the
// same path share it, type conditioned paths keep them apart.
func (g *fetchGroup) child(graph string, path []string) *fetchGroup {
	for _, child := range g.children {
		if child.graph == graph && slices.Equal(child.path, path) {
			return child
		}
	}
	return nil
}

func (g *fetchGroup) addVariables(names []string) {
	for _, name := range names {
		if !slices.Contains(g.variables, name) {
			g.variables = append(g.variables, name)
		}
	}
}

func (g *fetchGroup) depth() int {
	depth := 0
	for _, child := range g.children {
		depth = max(depth, child.depth())
	}
	return depth + 1
}

// assembly is one candidate plan: the fetch groups built for one assignment
// of root fields to subgraphs.
type assembly struct {
	builder *builder
	groups  []*fetchGroup
	roots   []*fetchGroup
}

type cost struct {
	fetches int
	depth   int
}

func (c cost) less(other cost) bool {
	if c.fetches != other.fetches {
		return c.fetches < other.fetches
	}
	return c.depth < other.depth
}

func (a *assembly) cost() cost {
	c := cost{fetches: len(a.groups)}
	for _, root := range a.roots {
		c.depth = max(c.depth, root.depth())
	}
	return c
}

func (a *assembly) newGroup(graph, typeName string) *fetchGroup {
	g := &fetchGroup{
		graph:     graph,
		selection: newSelectionSet(typeName),
	}
	a.groups = append(a.groups, g)
	return g
}

// rootGroup returns the root fetch of graph. Query roots share one fetch per subgraph,
// mutation roots only merge into the directly preceding fetch to keep their order.
func (a *assembly) rootGroup(graph, rootType string, sequential bool) *fetchGroup {
	if sequential {
		if n := len(a.roots); n > 0 && a.roots[n-1].graph == graph {
			return a.roots[n-1]
		}
	} else {
		for _, root := range a.roots {
			if root.graph == graph {
				return root
			}
		}
	}
	g := a.newGroup(graph, rootType)
	a.roots = append(a.roots, g)
	return g
}

func (a *assembly) entityGroup(parent *fetchGroup, graph string, path []string) *fetchGroup {
	if existing := parent.child(graph, path); existing != nil {
		return existing
	}
	g := a.newGroup(graph, entitiesTypeName)
	g.entity = true
	g.path = slices.Clone(path)
	g.requires = newSelectionSet(entitiesTypeName)
	parent.children = append(parent.children, g)
	return g
}

func (a *assembly) walk(g *fetchGroup, out *selectionSet, selections []*operationSelection, path []string, provided *selectionSet) error {
	for _, sel := range selections {
		if sel.kind == fieldSelection {
			if err := a.walkField(g, out, sel, path, provided); err != nil {
				return err
			}
			continue
		}

		if sel.deferred && a.builder.config.IncrementalDelivery.EnableDefer {
			return planErrorf(path, "@defer is only supported on inline fragments of the root selection set")
		}
		if sel.typeName == out.typeName {
			if err := a.walk(g, out, sel.children, path, provided); err != nil {
				return err
			}
			continue
		}

		fragment := out.addInlineFragment(sel.typeName)
		var fragmentProvided *selectionSet
		if providedFragment := provided.fragment(sel.typeName); providedFragment != nil {
			fragmentProvided = providedFragment.children
		}
		if err := a.walk(g, fragment.children, sel.children, a.builder.withTypeCondition(path, sel.typeName), fragmentProvided); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembly) walkField(g *fetchGroup, out *selectionSet, sel *operationSelection, path []string, provided *selectionSet) error {
	s := a.builder.supergraph
	parentType := out.typeName

	switch sel.name {
	case typeNameField:
		out.addField(sel.name, sel.alias, "", "")
		return nil
	case schemaField, typeField:
		return planErrorf(path, "introspection field %s is not supported", sel.name)
	}

	info := s.field(parentType, sel.name)
	if info == nil {
		return planErrorf(path, "unknown field %s.%s", parentType, sel.name)
	}

	providedField := provided.field(sel.name)
	if providedField == nil && !a.resolvesInline(g, out, sel.name) {
		child, err := a.entityJump(g, out, sel, path)
		if err != nil {
			return err
		}
		return a.walkField(child, child.entityRoot(parentType), sel, path, nil)
	}

	g.addVariables(sel.variables)
	if len(sel.children) == 0 {
		out.addField(sel.name, sel.alias, sel.arguments, "")
		return nil
	}

	field := out.addField(sel.name, sel.alias, sel.arguments, sel.typeName)
	var childProvided *selectionSet
	if providedField != nil {
		childProvided = providedField.children
	} else if source := s.fieldSource(parentType, sel.name, g.graph); source != nil {
		childProvided = source.providesSet
	}
	return a.walk(g, field.children, sel.children, a.builder.withField(path, sel), childProvided)
}

// resolvesInline reports whether the fetch of g can select fieldName on out.
// A field with @requires resolves only at the root of an entity fetch whose
// representations already carry the required fields.
func (a *assembly) resolvesInline(g *fetchGroup, out *selectionSet, fieldName string) bool {
	s := a.builder.supergraph
	if !s.resolvableIn(out.typeName, fieldName, g.graph, a.builder.active) {
		return false
	}
	source := s.fieldSource(out.typeName, fieldName, g.graph)
	if source == nil || source.requiresSet == nil {
		return true
	}
	if !g.entity {
		return false
	}
	root, representation := g.selection.fragment(out.typeName), g.requires.fragment(out.typeName)
	if root == nil || representation == nil || out != root.children {
		return false
	}
	return covers(representation.children, source.requiresSet)
}

type jumpOption struct {
	graph    string
	key      *selectionSet
	requires *selectionSet
}

// entityJump moves the resolution of sel to another subgraph through an entity key
// and makes the current fetch select the representation.
func (a *assembly) entityJump(g *fetchGroup, out *selectionSet, sel *operationSelection, path []string) (*fetchGroup, error) {
	b := a.builder
	s := b.supergraph
	parentType := out.typeName

	candidates := b.candidates(parentType, sel.name)
	if len(candidates) == 0 {
		return nil, planErrorf(path, "cannot resolve field %s.%s: no subgraph resolves it with the enabled override conditions", parentType, sel.name)
	}

	var options []jumpOption
	for _, graph := range candidates {
		key := a.reachableKey(parentType, graph, g.graph)
		if key == nil {
			continue
		}
		option := jumpOption{graph: graph, key: key}
		if source := s.fieldSource(parentType, sel.name, graph); source != nil {
			option.requires = source.requiresSet
		}
		if !s.fieldSetResolvable(option.requires, g.graph, b.active) {
			continue
		}
		options = append(options, option)
	}
	if len(options) == 0 {
		return nil, planErrorf(path, "cannot resolve field %s.%s from subgraph %q: no entity key of %s is reachable", parentType, sel.name, s.graphName(g.graph), parentType)
	}

	choice := options[0]
	for _, option := range options {
		if g.child(option.graph, path) != nil {
			choice = option
			break
		}
	}

	child := a.entityGroup(g, choice.graph, path)
	representation := child.representation(parentType)
	for _, target := range []*selectionSet{out, representation} {
		target.addField(typeNameField, "", "", "")
		target.merge(choice.key)
		target.merge(choice.requires)
	}

	b.logger.Debug("entity jump",
		abstractlogger.String("type", parentType),
		abstractlogger.String("field", sel.name),
		abstractlogger.String("from", s.graphName(g.graph)),
		abstractlogger.String("to", s.graphName(choice.graph)),
		abstractlogger.String("path", queryplan.PathString(path)),
	)
	return child, nil
}

func (a *assembly) reachableKey(typeName, target, from string) *selectionSet {
	s := a.builder.supergraph
	for _, key := range s.entityKeys(typeName, target) {
		if s.fieldSetResolvable(key, from, a.builder.active) {
			return key
		}
	}
	return nil
}

// covers reports whether every selection of other is selected by set.
func covers(set, other *selectionSet) bool {
	if other == nil {
		return true
	}
	if set == nil {
		return other.isEmpty()
	}
	for _, item := range other.items {
		existing := set.lookup(item.key())
		if existing == nil {
			return false
		}
		if item.children != nil && !covers(existing.children, item.children) {
			return false
		}
	}
	return true
}

func (a *assembly) node(g *fetchGroup) *queryplan.Node {
	b := a.builder
	fetch := &queryplan.Fetch{
		ServiceName:    b.supergraph.graphName(g.graph),
		OperationKind:  string(b.operation.Kind),
		VariableUsages: slices.Clone(g.variables),
	}
	if g.entity {
		fetch.Requires = g.requires.String()
		fetch.OperationKind = string(OperationKindQuery)
	}
	fetch.Operation = a.printOperation(g, fetch.OperationKind)

	var node *queryplan.Node = queryplan.FetchNode(fetch)
	if g.entity {
		node = queryplan.Flatten(slices.Clone(g.path), node)
	}

	children := make([]*queryplan.Node, 0, len(g.children))
	for _, child := range g.children {
		children = append(children, a.node(child))
	}
	return queryplan.Sequence(node, queryplan.Parallel(children...))
}

func (a *assembly) printOperation(g *fetchGroup, kind string) string {
	var (
		replacements map[*selectionSet]string
		fragments    []generatedFragment
	)
	if a.builder.config.GenerateQueryFragments {
		replacements, fragments = generateFragments(g.selection)
	}

	lines := g.selection.lines(replacements)
	lines[0] = a.operationHeader(g, kind)
	for _, fragment := range fragments {
		lines = append(lines, "")
		lines = append(lines, fragment.lines(replacements)...)
	}
	return strings.Join(lines, "\n")
}

func (a *assembly) operationHeader(g *fetchGroup, kind string) string {
	if len(g.variables) == 0 {
		if kind == string(OperationKindQuery) {
			return "{"
		}
		return kind + " {"
	}
	definitions := make([]string, 0, len(g.variables))
	for _, name := range g.variables {
		typeName, ok := a.builder.operation.variableTypes[name]
		if !ok {
			continue
		}
		definitions = append(definitions, "$"+name+": "+typeName)
	}
	return kind + "(" + strings.Join(definitions, ", ") + ") {"
}
