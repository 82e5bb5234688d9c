// Package overrides holds the progressive override labels of a supergraph
// and the combinatorics over them: enumerating every subset of a label set
// and validating user supplied subsets against it.
package overrides

import (
	"fmt"
	"strings"
)

// LabelSet is an ordered set of unique override labels.
// The order is the discovery order reported by the planner and determines the
// order of enumerated combinations. A LabelSet is read-only after construction.
type LabelSet struct {
	labels []string
	index  map[string]int
}

// NewLabelSet builds a LabelSet from labels in the given order.
func NewLabelSet(labels ...string) (*LabelSet, error) {
	set := &LabelSet{
		labels: make([]string, 0, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for _, label := range labels {
		if _, exists := set.index[label]; exists {
			return nil, &DuplicateLabelError{Label: label}
		}
		set.index[label] = len(set.labels)
		set.labels = append(set.labels, label)
	}
	return set, nil
}

func (s *LabelSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

func (s *LabelSet) Contains(label string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[label]
	return ok
}

// At returns the label at position i in discovery order.
func (s *LabelSet) At(i int) string {
	return s.labels[i]
}

// Labels returns a copy of the labels in discovery order.
func (s *LabelSet) Labels() []string {
	out := make([]string, s.Len())
	if s != nil {
		copy(out, s.labels)
	}
	return out
}

// String renders the set as a quoted list: ["a", "b"].
func (s *LabelSet) String() string {
	return quoteList(s.Labels())
}

func quoteList(labels []string) string {
	quoted := make([]string, len(labels))
	for i := range labels {
		quoted[i] = fmt.Sprintf("%q", labels[i])
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
