package planner

import (
	"slices"
	"strings"

	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/asttransform"
)

const (
	joinGraphEnumName          = "join__Graph"
	joinGraphDirectiveName     = "join__graph"
	joinTypeDirectiveName      = "join__type"
	joinFieldDirectiveName     = "join__field"
	inaccessibleDirectiveName  = "inaccessible"
	federationInaccessibleName = "federation__inaccessible"
)

var (
	graphArgumentName          = []byte("graph")
	nameArgumentName           = []byte("name")
	urlArgumentName            = []byte("url")
	keyArgumentName            = []byte("key")
	resolvableArgumentName     = []byte("resolvable")
	requiresArgumentName       = []byte("requires")
	providesArgumentName       = []byte("provides")
	externalArgumentName       = []byte("external")
	overrideArgumentName       = []byte("override")
	overrideLabelArgumentName  = []byte("overrideLabel")
	usedOverriddenArgumentName = []byte("usedOverridden")
)

// Graph is a subgraph of the supergraph as declared on the join__Graph enum.
type Graph struct {
	// EnumValue is the join__Graph value used by the join directives, e.g. ACCOUNTS
	EnumValue string
	// Name is the subgraph name shown in query plans, e.g. accounts
	Name string
	URL  string
}

type typeSource struct {
	graph      string
	key        string
	keySet     *selectionSet
	resolvable bool
}

type fieldSource struct {
	graph          string
	requires       string
	requiresSet    *selectionSet
	provides       string
	providesSet    *selectionSet
	external       bool
	override       string
	overrideLabel  string
	usedOverridden bool
}

// activeFor reports whether the subgraph of this source resolves the field
// when the labels in active are enabled.
func (f *fieldSource) activeFor(active map[string]struct{}) bool {
	if f.external {
		return false
	}
	if f.overrideLabel != "" {
		_, enabled := active[f.overrideLabel]
		if f.override != "" {
			// the field moves to this subgraph while the label is enabled
			return enabled
		}
		// this subgraph keeps the field until the label is enabled
		return !enabled
	}
	return !f.usedOverridden
}

type fieldInfo struct {
	name         string
	typeName     string
	listDepth    int
	sources      []fieldSource
	inaccessible bool
}

type typeInfo struct {
	name    string
	sources []typeSource
	fields  map[string]*fieldInfo
}

// Supergraph is a parsed supergraph SDL together with the join metadata the planner needs.
// It is immutable after ParseSupergraph returns and safe to share between planners.
type Supergraph struct {
	definition ast.Document

	graphs         []Graph
	graphIndex     map[string]int
	types          map[string]*typeInfo
	overrideLabels []string

	queryTypeName        string
	mutationTypeName     string
	subscriptionTypeName string
}

// ParseSupergraph parses and indexes a supergraph SDL as produced by composition.
func ParseSupergraph(sdl string) (*Supergraph, error) {
	definition, err := parseDefinition(sdl)
	if err != nil {
		return nil, err
	}
	if !hasDirectiveDefinition(&definition, deferDirectiveName) {
		// operations are validated against this definition, @defer must be declared
		if definition, err = parseDefinition(sdl + "\n" + deferDirectiveDefinition); err != nil {
			return nil, err
		}
	}

	s := &Supergraph{
		definition: definition,
		graphIndex: map[string]int{},
		types:      map[string]*typeInfo{},
	}
	s.rootTypeNames()

	if err := s.extractGraphs(); err != nil {
		return nil, err
	}
	s.extractTypes()
	if err := s.parseFieldSets(); err != nil {
		return nil, err
	}
	return s, nil
}

const deferDirectiveDefinition = `directive @defer(label: String, if: Boolean! = true) on FRAGMENT_SPREAD | INLINE_FRAGMENT`

func parseDefinition(sdl string) (ast.Document, error) {
	definition, report := astparser.ParseGraphqlDocumentString(sdl)
	if report.HasErrors() {
		return ast.Document{}, &SchemaError{Message: report.Error()}
	}
	if err := asttransform.MergeDefinitionWithBaseSchema(&definition); err != nil {
		return ast.Document{}, &SchemaError{Message: err.Error()}
	}
	return definition, nil
}

func hasDirectiveDefinition(d *ast.Document, name string) bool {
	for i := range d.DirectiveDefinitions {
		if d.Input.ByteSliceString(d.DirectiveDefinitions[i].Name) == name {
			return true
		}
	}
	return false
}

func (s *Supergraph) rootTypeNames() {
	index := &s.definition.Index
	s.queryTypeName = nameOrDefault(index.QueryTypeName, "Query")
	s.mutationTypeName = nameOrDefault(index.MutationTypeName, "Mutation")
	s.subscriptionTypeName = nameOrDefault(index.SubscriptionTypeName, "Subscription")
}

func nameOrDefault(name ast.ByteSlice, fallback string) string {
	if len(name) == 0 {
		return fallback
	}
	return string(name)
}

func (s *Supergraph) extractGraphs() error {
	d := &s.definition
	for ref := range d.EnumTypeDefinitions {
		if d.EnumTypeDefinitionNameString(ref) != joinGraphEnumName {
			continue
		}
		for _, valueRef := range d.EnumTypeDefinitions[ref].EnumValuesDefinition.Refs {
			graph := Graph{
				EnumValue: strings.Clone(d.EnumValueDefinitionNameString(valueRef)),
			}
			graph.Name = strings.ToLower(graph.EnumValue)
			for _, directiveRef := range d.EnumValueDefinitions[valueRef].Directives.Refs {
				if d.DirectiveNameString(directiveRef) != joinGraphDirectiveName {
					continue
				}
				if name := stringArgument(d, directiveRef, nameArgumentName); name != "" {
					graph.Name = name
				}
				graph.URL = stringArgument(d, directiveRef, urlArgumentName)
			}
			s.graphIndex[graph.EnumValue] = len(s.graphs)
			s.graphs = append(s.graphs, graph)
		}
		return nil
	}
	return &SchemaError{Message: "schema is not a supergraph: missing enum " + joinGraphEnumName}
}

// extractTypes walks the root nodes in document order so that override labels
// are discovered in the order they are declared.
func (s *Supergraph) extractTypes() {
	d := &s.definition
	seenLabels := map[string]struct{}{}

	for _, node := range d.RootNodes {
		var (
			info       *typeInfo
			directives []int
			fieldRefs  []int
		)
		switch node.Kind {
		case ast.NodeKindObjectTypeDefinition:
			def := d.ObjectTypeDefinitions[node.Ref]
			info = s.typeInfo(d.ObjectTypeDefinitionNameString(node.Ref))
			directives, fieldRefs = def.Directives.Refs, def.FieldsDefinition.Refs
		case ast.NodeKindInterfaceTypeDefinition:
			def := d.InterfaceTypeDefinitions[node.Ref]
			info = s.typeInfo(d.InterfaceTypeDefinitionNameString(node.Ref))
			directives, fieldRefs = def.Directives.Refs, def.FieldsDefinition.Refs
		default:
			continue
		}

		for _, directiveRef := range directives {
			if d.DirectiveNameString(directiveRef) != joinTypeDirectiveName {
				continue
			}
			info.sources = append(info.sources, typeSource{
				graph:      enumArgument(d, directiveRef, graphArgumentName),
				key:        stringArgument(d, directiveRef, keyArgumentName),
				resolvable: boolArgument(d, directiveRef, resolvableArgumentName, true),
			})
		}

		for _, fieldRef := range fieldRefs {
			field := s.fieldInfo(fieldRef)
			info.fields[field.name] = field
			for i := range field.sources {
				label := field.sources[i].overrideLabel
				if label == "" {
					continue
				}
				if _, seen := seenLabels[label]; seen {
					continue
				}
				seenLabels[label] = struct{}{}
				s.overrideLabels = append(s.overrideLabels, label)
			}
		}
	}
}

func (s *Supergraph) typeInfo(name string) *typeInfo {
	name = strings.Clone(name)
	info, ok := s.types[name]
	if !ok {
		info = &typeInfo{
			name:   name,
			fields: map[string]*fieldInfo{},
		}
		s.types[name] = info
	}
	return info
}

func (s *Supergraph) fieldInfo(fieldRef int) *fieldInfo {
	d := &s.definition
	typeRef := d.FieldDefinitions[fieldRef].Type
	field := &fieldInfo{
		name:      strings.Clone(d.FieldDefinitionNameString(fieldRef)),
		typeName:  strings.Clone(d.ResolveTypeNameString(typeRef)),
		listDepth: listDepth(d, typeRef),
	}

	for _, directiveRef := range d.FieldDefinitions[fieldRef].Directives.Refs {
		switch d.DirectiveNameString(directiveRef) {
		case joinFieldDirectiveName:
			field.sources = append(field.sources, fieldSource{
				graph:          enumArgument(d, directiveRef, graphArgumentName),
				requires:       stringArgument(d, directiveRef, requiresArgumentName),
				provides:       stringArgument(d, directiveRef, providesArgumentName),
				external:       boolArgument(d, directiveRef, externalArgumentName, false),
				override:       stringArgument(d, directiveRef, overrideArgumentName),
				overrideLabel:  stringArgument(d, directiveRef, overrideLabelArgumentName),
				usedOverridden: boolArgument(d, directiveRef, usedOverriddenArgumentName, false),
			})
		case inaccessibleDirectiveName, federationInaccessibleName:
			field.inaccessible = true
		}
	}
	return field
}

func listDepth(d *ast.Document, typeRef int) int {
	depth := 0
	for typeRef != ast.InvalidRef {
		switch d.Types[typeRef].TypeKind {
		case ast.TypeKindList:
			depth++
		case ast.TypeKindNamed:
			return depth
		}
		typeRef = d.Types[typeRef].OfType
	}
	return depth
}

func (s *Supergraph) parseFieldSets() error {
	for _, info := range s.types {
		for i := range info.sources {
			source := &info.sources[i]
			if source.key == "" {
				continue
			}
			set, err := s.parseFieldSet(info.name, source.key)
			if err != nil {
				return err
			}
			source.keySet = set
		}
		for _, field := range info.fields {
			for i := range field.sources {
				source := &field.sources[i]
				if source.requires != "" {
					set, err := s.parseFieldSet(info.name, source.requires)
					if err != nil {
						return err
					}
					source.requiresSet = set
				}
				if source.provides != "" {
					set, err := s.parseFieldSet(field.typeName, source.provides)
					if err != nil {
						return err
					}
					source.providesSet = set
				}
			}
		}
	}
	return nil
}

// Graphs returns the subgraphs in declaration order.
func (s *Supergraph) Graphs() []Graph {
	out := make([]Graph, len(s.graphs))
	copy(out, s.graphs)
	return out
}

// OverrideLabels returns the distinct override labels in declaration order.
func (s *Supergraph) OverrideLabels() []string {
	out := make([]string, len(s.overrideLabels))
	copy(out, s.overrideLabels)
	return out
}

func (s *Supergraph) graphName(enumValue string) string {
	if i, ok := s.graphIndex[enumValue]; ok {
		return s.graphs[i].Name
	}
	return enumValue
}

func (s *Supergraph) field(typeName, fieldName string) *fieldInfo {
	info, ok := s.types[typeName]
	if !ok {
		return nil
	}
	return info.fields[fieldName]
}

// fieldGraphs returns the subgraphs that resolve typeName.fieldName under the active
// override labels, in join__Graph declaration order.
func (s *Supergraph) fieldGraphs(typeName, fieldName string, active map[string]struct{}) []string {
	info, ok := s.types[typeName]
	if !ok {
		return nil
	}
	field := info.fields[fieldName]
	if field == nil {
		return nil
	}

	var out []string
	add := func(graph string) {
		if graph != "" && !slices.Contains(out, graph) {
			out = append(out, graph)
		}
	}

	hasGraphSources := false
	for i := range field.sources {
		if field.sources[i].graph == "" {
			continue
		}
		hasGraphSources = true
		if field.sources[i].activeFor(active) {
			add(field.sources[i].graph)
		}
	}

	if !hasGraphSources {
		if len(info.sources) == 0 {
			for i := range s.graphs {
				add(s.graphs[i].EnumValue)
			}
		}
		for i := range info.sources {
			add(info.sources[i].graph)
		}
	}

	slices.SortStableFunc(out, func(a, b string) int {
		return s.graphIndex[a] - s.graphIndex[b]
	})
	return out
}

func (s *Supergraph) resolvableIn(typeName, fieldName, graph string, active map[string]struct{}) bool {
	return slices.Contains(s.fieldGraphs(typeName, fieldName, active), graph)
}

// fieldSource returns the join__field of typeName.fieldName for graph, if declared.
func (s *Supergraph) fieldSource(typeName, fieldName, graph string) *fieldSource {
	field := s.field(typeName, fieldName)
	if field == nil {
		return nil
	}
	for i := range field.sources {
		if field.sources[i].graph == graph {
			return &field.sources[i]
		}
	}
	return nil
}

// entityKeys returns the resolvable keys of typeName in graph in declaration order.
func (s *Supergraph) entityKeys(typeName, graph string) []*selectionSet {
	info, ok := s.types[typeName]
	if !ok {
		return nil
	}
	var out []*selectionSet
	for i := range info.sources {
		source := &info.sources[i]
		if source.graph != graph || source.keySet == nil || !source.resolvable {
			continue
		}
		out = append(out, source.keySet)
	}
	return out
}

func stringArgument(d *ast.Document, directiveRef int, name []byte) string {
	value, ok := d.DirectiveArgumentValueByName(directiveRef, name)
	if !ok || value.Kind != ast.ValueKindString {
		return ""
	}
	return strings.Clone(d.StringValueContentString(value.Ref))
}

func enumArgument(d *ast.Document, directiveRef int, name []byte) string {
	value, ok := d.DirectiveArgumentValueByName(directiveRef, name)
	if !ok || value.Kind != ast.ValueKindEnum {
		return ""
	}
	return strings.Clone(d.EnumValueNameString(value.Ref))
}

func boolArgument(d *ast.Document, directiveRef int, name []byte, fallback bool) bool {
	value, ok := d.DirectiveArgumentValueByName(directiveRef, name)
	if !ok || value.Kind != ast.ValueKindBoolean {
		return fallback
	}
	return bool(d.BooleanValue(value.Ref))
}
