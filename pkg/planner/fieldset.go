package planner

import (
	"fmt"
	"strings"

	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"
)

// parseFieldSet parses a @key, @requires or @provides field set declared on typeName.
func (s *Supergraph) parseFieldSet(typeName, fieldSet string) (*selectionSet, error) {
	doc, report := astparser.ParseGraphqlDocumentString("{" + fieldSet + "}")
	if report.HasErrors() {
		return nil, &SchemaError{Message: fmt.Sprintf("invalid field set %q on type %s: %s", fieldSet, typeName, report.Error())}
	}
	if len(doc.OperationDefinitions) != 1 {
		return nil, &SchemaError{Message: fmt.Sprintf("invalid field set %q on type %s", fieldSet, typeName)}
	}

	set := newSelectionSet(typeName)
	if err := s.convertFieldSet(&doc, doc.OperationDefinitions[0].SelectionSet, set); err != nil {
		return nil, &SchemaError{Message: fmt.Sprintf("invalid field set %q on type %s: %s", fieldSet, typeName, err)}
	}
	return set, nil
}

func (s *Supergraph) convertFieldSet(doc *ast.Document, selectionSetRef int, out *selectionSet) error {
	for _, selectionRef := range doc.SelectionSets[selectionSetRef].SelectionRefs {
		sel := doc.Selections[selectionRef]
		switch sel.Kind {
		case ast.SelectionKindField:
			name := strings.Clone(doc.FieldNameString(sel.Ref))
			if name == typeNameField {
				out.addField(name, "", "", "")
				continue
			}
			field := s.field(out.typeName, name)
			if field == nil {
				return fmt.Errorf("unknown field %s.%s", out.typeName, name)
			}
			if !doc.FieldHasSelections(sel.Ref) {
				out.addField(name, "", "", "")
				continue
			}
			child := out.addField(name, "", "", field.typeName)
			if err := s.convertFieldSet(doc, doc.Fields[sel.Ref].SelectionSet, child.children); err != nil {
				return err
			}
		case ast.SelectionKindInlineFragment:
			typeCondition := out.typeName
			if doc.InlineFragmentHasTypeCondition(sel.Ref) {
				typeCondition = strings.Clone(doc.InlineFragmentTypeConditionNameString(sel.Ref))
			}
			target := out
			if typeCondition != out.typeName {
				target = out.addInlineFragment(typeCondition).children
			}
			if err := s.convertFieldSet(doc, doc.InlineFragments[sel.Ref].SelectionSet, target); err != nil {
				return err
			}
		default:
			return fmt.Errorf("fragment spreads are not allowed in field sets")
		}
	}
	return nil
}

// fieldSetResolvable reports whether every field of set resolves in graph.
func (s *Supergraph) fieldSetResolvable(set *selectionSet, graph string, active map[string]struct{}) bool {
	if set == nil {
		return true
	}
	for _, item := range set.items {
		if item.kind == fieldSelection {
			if item.name != typeNameField && !s.resolvableIn(set.typeName, item.name, graph, active) {
				return false
			}
		}
		if !s.fieldSetResolvable(item.children, graph, active) {
			return false
		}
	}
	return true
}
