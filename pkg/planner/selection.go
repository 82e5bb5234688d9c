package planner

import (
	"fmt"
	"strings"
)

type selectionKind int

const (
	fieldSelection selectionKind = iota
	inlineFragmentSelection
)

// selectionSet is a subgraph selection set under construction.
// Selections keep insertion order and are merged by response key.
type selectionSet struct {
	typeName string
	items    []*selection
}

type selection struct {
	kind selectionKind

	name      string
	alias     string
	arguments string

	typeCondition string

	// children is nil for leaf fields
	children *selectionSet
}

func newSelectionSet(typeName string) *selectionSet {
	return &selectionSet{typeName: typeName}
}

func (s *selection) responseName() string {
	if s.alias != "" {
		return s.alias
	}
	return s.name
}

func (s *selection) key() string {
	if s.kind == inlineFragmentSelection {
		return "... on " + s.typeCondition
	}
	return s.responseName() + ":" + s.name + s.arguments
}

func (set *selectionSet) isEmpty() bool {
	return set == nil || len(set.items) == 0
}

func (set *selectionSet) lookup(key string) *selection {
	for _, item := range set.items {
		if item.key() == key {
			return item
		}
	}
	return nil
}

// addField adds a field or returns the existing one with the same response key.
// childType is empty for leaf fields.
func (set *selectionSet) addField(name, alias, arguments, childType string) *selection {
	candidate := &selection{
		kind:      fieldSelection,
		name:      name,
		alias:     alias,
		arguments: arguments,
	}
	if existing := set.lookup(candidate.key()); existing != nil {
		if existing.children == nil && childType != "" {
			existing.children = newSelectionSet(childType)
		}
		return existing
	}
	if childType != "" {
		candidate.children = newSelectionSet(childType)
	}
	set.items = append(set.items, candidate)
	return candidate
}

func (set *selectionSet) addInlineFragment(typeCondition string) *selection {
	candidate := &selection{
		kind:          inlineFragmentSelection,
		typeCondition: typeCondition,
	}
	if existing := set.lookup(candidate.key()); existing != nil {
		return existing
	}
	candidate.children = newSelectionSet(typeCondition)
	set.items = append(set.items, candidate)
	return candidate
}

// merge adds every selection of other into set.
func (set *selectionSet) merge(other *selectionSet) {
	if other == nil {
		return
	}
	for _, item := range other.items {
		var target *selection
		switch item.kind {
		case inlineFragmentSelection:
			target = set.addInlineFragment(item.typeCondition)
		default:
			childType := ""
			if item.children != nil {
				childType = item.children.typeName
			}
			target = set.addField(item.name, item.alias, item.arguments, childType)
		}
		if item.children != nil {
			target.children.merge(item.children)
		}
	}
}

// field returns the field selection with the given name, ignoring aliases and arguments.
func (set *selectionSet) field(name string) *selection {
	if set == nil {
		return nil
	}
	for _, item := range set.items {
		if item.kind == fieldSelection && item.name == name {
			return item
		}
	}
	return nil
}

func (set *selectionSet) fragment(typeCondition string) *selection {
	if set == nil {
		return nil
	}
	for _, item := range set.items {
		if item.kind == inlineFragmentSelection && item.typeCondition == typeCondition {
			return item
		}
	}
	return nil
}

func (s *selection) head() string {
	if s.kind == inlineFragmentSelection {
		return "... on " + s.typeCondition
	}
	if s.alias != "" {
		return s.alias + ": " + s.name + s.arguments
	}
	return s.name + s.arguments
}

func (set *selectionSet) String() string {
	return strings.Join(set.lines(nil), "\n")
}

// lines renders the selection set as an indented block. Sets listed in fragments
// are replaced by a spread of the named fragment.
func (set *selectionSet) lines(fragments map[*selectionSet]string) []string {
	out := []string{"{"}
	for _, item := range set.items {
		if item.children == nil {
			out = append(out, indentation+item.head())
			continue
		}
		child := item.children.body(fragments)
		out = append(out, indentation+item.head()+" "+child[0])
		for _, line := range child[1:] {
			out = append(out, indentation+line)
		}
	}
	return append(out, "}")
}

func (set *selectionSet) body(fragments map[*selectionSet]string) []string {
	if name, ok := fragments[set]; ok {
		return []string{"{", indentation + "..." + name, "}"}
	}
	return set.lines(fragments)
}

const indentation = "  "

// fragmentGenerator extracts selection sets that occur more than once in a fetch
// into named fragments.
type fragmentGenerator struct {
	counts      map[string]int
	firstByBody map[string]*selectionSet
	order       []string
}

type generatedFragment struct {
	name string
	set  *selectionSet
}

// generateFragments returns the fragment spread replacements and the fragment definitions
// in the order they were first encountered.
func generateFragments(root *selectionSet) (map[*selectionSet]string, []generatedFragment) {
	g := &fragmentGenerator{
		counts:      map[string]int{},
		firstByBody: map[string]*selectionSet{},
	}
	g.count(root)

	names := map[string]string{}
	var definitions []generatedFragment
	for _, signature := range g.order {
		if g.counts[signature] < 2 {
			continue
		}
		set := g.firstByBody[signature]
		name := fmt.Sprintf("_generated_on%s%d_%d", set.typeName, len(set.items), len(definitions))
		names[signature] = name
		definitions = append(definitions, generatedFragment{name: name, set: set})
	}
	if len(definitions) == 0 {
		return nil, nil
	}

	replacements := map[*selectionSet]string{}
	var assign func(set *selectionSet)
	assign = func(set *selectionSet) {
		for _, item := range set.items {
			if item.children == nil {
				continue
			}
			if name, ok := names[item.children.signature()]; ok {
				replacements[item.children] = name
			}
			assign(item.children)
		}
	}
	// definitions are first occurrences inside root, lines only replaces child sets
	assign(root)
	return replacements, definitions
}

func (g *fragmentGenerator) count(set *selectionSet) {
	for _, item := range set.items {
		if item.children == nil || len(item.children.items) < 2 {
			if item.children != nil {
				g.count(item.children)
			}
			continue
		}
		signature := item.children.signature()
		g.counts[signature]++
		if g.counts[signature] > 1 {
			continue
		}
		g.firstByBody[signature] = item.children
		g.order = append(g.order, signature)
		g.count(item.children)
	}
}

func (set *selectionSet) signature() string {
	return set.typeName + " " + set.String()
}

func (f generatedFragment) lines(replacements map[*selectionSet]string) []string {
	body := f.set.lines(replacements)
	body[0] = fmt.Sprintf("fragment %s on %s {", f.name, f.set.typeName)
	return body
}
