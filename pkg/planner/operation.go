package planner

import (
	"fmt"
	"strings"

	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astnormalization"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astvalidation"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/operationreport"
)

const (
	typeNameField      = "__typename"
	schemaField        = "__schema"
	typeField          = "__type"
	deferDirectiveName = "defer"
)

var (
	labelArgumentName = []byte("label")
	ifArgumentName    = []byte("if")
)

type OperationKind string

const (
	OperationKindQuery        OperationKind = "query"
	OperationKindMutation     OperationKind = "mutation"
	OperationKindSubscription OperationKind = "subscription"
)

// Operation is an operation document parsed, normalized and validated against a supergraph.
type Operation struct {
	Kind OperationKind
	Name string
	// Source names where the document came from, used in error messages
	Source string

	rootType      string
	selections    []*operationSelection
	variableTypes map[string]string
}

// operationSelection is a normalized operation selection with its schema information resolved.
type operationSelection struct {
	kind selectionKind

	name      string
	alias     string
	arguments string
	variables []string

	// typeName is the named type of a field or the type condition of an inline fragment
	typeName  string
	listDepth int

	deferred   bool
	deferLabel string

	children []*operationSelection
}

func (s *operationSelection) responseName() string {
	if s.alias != "" {
		return s.alias
	}
	return s.name
}

// ParseOperation parses query and validates it against the supergraph.
// The document must contain exactly one operation; fragments are inlined.
func ParseOperation(supergraph *Supergraph, query, source string) (*Operation, error) {
	document, report := astparser.ParseGraphqlDocumentString(query)
	if report.HasErrors() {
		return nil, &DocumentError{Source: source, Message: report.Error()}
	}
	switch len(document.OperationDefinitions) {
	case 0:
		return nil, &DocumentError{Source: source, Message: "document does not contain an operation"}
	case 1:
	default:
		return nil, &DocumentError{Source: source, Message: "document must contain exactly one operation"}
	}

	report = operationreport.Report{}
	normalizer := astnormalization.NewWithOpts(
		astnormalization.WithInlineFragmentSpreads(),
		astnormalization.WithRemoveFragmentDefinitions(),
	)
	normalizer.NormalizeOperation(&document, &supergraph.definition, &report)
	if report.HasErrors() {
		return nil, &DocumentError{Source: source, Message: report.Error()}
	}

	validator := astvalidation.DefaultOperationValidator()
	validator.Validate(&document, &supergraph.definition, &report)
	if report.HasErrors() {
		return nil, &DocumentError{Source: source, Message: report.Error()}
	}

	c := &operationConverter{
		supergraph: supergraph,
		document:   &document,
	}
	return c.convert(source)
}

type operationConverter struct {
	supergraph *Supergraph
	document   *ast.Document
}

func (c *operationConverter) convert(source string) (*Operation, error) {
	d := c.document
	definition := d.OperationDefinitions[0]

	operation := &Operation{
		Source:        source,
		variableTypes: map[string]string{},
	}
	if definition.Name.Length() > 0 {
		operation.Name = strings.Clone(d.Input.ByteSliceString(definition.Name))
	}

	switch definition.OperationType {
	case ast.OperationTypeMutation:
		operation.Kind, operation.rootType = OperationKindMutation, c.supergraph.mutationTypeName
	case ast.OperationTypeSubscription:
		operation.Kind, operation.rootType = OperationKindSubscription, c.supergraph.subscriptionTypeName
	default:
		operation.Kind, operation.rootType = OperationKindQuery, c.supergraph.queryTypeName
	}

	for _, ref := range definition.VariableDefinitions.Refs {
		variable := d.VariableDefinitions[ref]
		name := strings.Clone(d.VariableValueNameString(variable.VariableValue.Ref))
		operation.variableTypes[name] = printType(d, variable.Type)
	}

	selections, err := c.selections(definition.SelectionSet, operation.rootType)
	if err != nil {
		return nil, &DocumentError{Source: source, Message: err.Error()}
	}
	operation.selections = selections
	return operation, nil
}

func (c *operationConverter) selections(selectionSetRef int, parentType string) ([]*operationSelection, error) {
	d := c.document
	var out []*operationSelection
	for _, selectionRef := range d.SelectionSets[selectionSetRef].SelectionRefs {
		sel := d.Selections[selectionRef]
		switch sel.Kind {
		case ast.SelectionKindField:
			field, err := c.field(sel.Ref, parentType)
			if err != nil {
				return nil, err
			}
			out = append(out, field)
		case ast.SelectionKindInlineFragment:
			fragment, err := c.inlineFragment(sel.Ref, parentType)
			if err != nil {
				return nil, err
			}
			out = append(out, fragment)
		default:
			return nil, fmt.Errorf("unexpected fragment spread on type %s", parentType)
		}
	}
	return out, nil
}

func (c *operationConverter) field(fieldRef int, parentType string) (*operationSelection, error) {
	d := c.document
	sel := &operationSelection{
		kind: fieldSelection,
		name: strings.Clone(d.FieldNameString(fieldRef)),
	}
	if d.FieldAliasIsDefined(fieldRef) {
		sel.alias = strings.Clone(d.FieldAliasString(fieldRef))
	}

	arguments, variables, err := c.arguments(fieldRef)
	if err != nil {
		return nil, err
	}
	sel.arguments, sel.variables = arguments, variables

	if sel.name == typeNameField {
		return sel, nil
	}
	info := c.supergraph.field(parentType, sel.name)
	if info == nil {
		return nil, fmt.Errorf("unknown field %s.%s", parentType, sel.name)
	}
	if info.inaccessible {
		return nil, fmt.Errorf("field %s.%s is inaccessible", parentType, sel.name)
	}
	sel.typeName, sel.listDepth = info.typeName, info.listDepth

	if d.FieldHasSelections(fieldRef) {
		sel.children, err = c.selections(d.Fields[fieldRef].SelectionSet, info.typeName)
		if err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func (c *operationConverter) inlineFragment(fragmentRef int, parentType string) (*operationSelection, error) {
	d := c.document
	sel := &operationSelection{
		kind:     inlineFragmentSelection,
		typeName: parentType,
	}
	if d.InlineFragmentHasTypeCondition(fragmentRef) {
		sel.typeName = strings.Clone(d.InlineFragmentTypeConditionNameString(fragmentRef))
	}

	for _, directiveRef := range d.InlineFragments[fragmentRef].Directives.Refs {
		if d.DirectiveNameString(directiveRef) != deferDirectiveName {
			continue
		}
		sel.deferred = true
		if value, ok := d.DirectiveArgumentValueByName(directiveRef, ifArgumentName); ok && value.Kind == ast.ValueKindBoolean {
			sel.deferred = bool(d.BooleanValue(value.Ref))
		}
		sel.deferLabel = stringArgument(d, directiveRef, labelArgumentName)
	}

	children, err := c.selections(d.InlineFragments[fragmentRef].SelectionSet, sel.typeName)
	if err != nil {
		return nil, err
	}
	sel.children = children
	return sel, nil
}

func (c *operationConverter) arguments(fieldRef int) (string, []string, error) {
	d := c.document
	refs := d.Fields[fieldRef].Arguments.Refs
	if len(refs) == 0 {
		return "", nil, nil
	}

	var variables []string
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		value := d.Arguments[ref].Value
		printed, err := d.PrintValueBytes(value, nil)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, d.ArgumentNameString(ref)+": "+string(printed))
		variables = collectVariables(d, value, variables)
	}
	return "(" + strings.Join(parts, ", ") + ")", variables, nil
}

func collectVariables(d *ast.Document, value ast.Value, out []string) []string {
	switch value.Kind {
	case ast.ValueKindVariable:
		out = append(out, strings.Clone(d.VariableValueNameString(value.Ref)))
	case ast.ValueKindList:
		for _, ref := range d.ListValues[value.Ref].Refs {
			out = collectVariables(d, d.Value(ref), out)
		}
	case ast.ValueKindObject:
		for _, ref := range d.ObjectValues[value.Ref].Refs {
			out = collectVariables(d, d.ObjectFields[ref].Value, out)
		}
	}
	return out
}

func printType(d *ast.Document, typeRef int) string {
	t := d.Types[typeRef]
	switch t.TypeKind {
	case ast.TypeKindNonNull:
		return printType(d, t.OfType) + "!"
	case ast.TypeKindList:
		return "[" + printType(d, t.OfType) + "]"
	default:
		return strings.Clone(d.Input.ByteSliceString(t.Name))
	}
}
