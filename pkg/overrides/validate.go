package overrides

import (
	"errors"
	"fmt"
)

var ErrOverrideAllConflict = errors.New("override all cannot be used with specific override conditions")

type UnknownLabelError struct {
	Label string
	Known []string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("Unknown override condition label: %s. Available labels: %s", e.Label, quoteList(e.Known))
}

type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("Duplicate override condition label: %s", e.Label)
}

// Validate checks that every candidate label is part of set and that no label is repeated.
// Unknown labels are reported before duplicates.
func Validate(set *LabelSet, candidate []string) error {
	for _, label := range candidate {
		if !set.Contains(label) {
			return &UnknownLabelError{Label: label, Known: set.Labels()}
		}
	}

	seen := make(map[string]struct{}, len(candidate))
	for _, label := range candidate {
		if _, ok := seen[label]; ok {
			return &DuplicateLabelError{Label: label}
		}
		seen[label] = struct{}{}
	}

	return nil
}

// Resolve turns user input into the combination to plan with.
// candidate is validated first. With overrideAll every label of set is active
// and candidate must be empty.
func Resolve(set *LabelSet, candidate []string, overrideAll bool) (Combination, error) {
	if err := Validate(set, candidate); err != nil {
		return nil, err
	}

	if overrideAll {
		if len(candidate) != 0 {
			return nil, ErrOverrideAllConflict
		}
		return Combination(set.Labels()), nil
	}

	out := make(Combination, len(candidate))
	copy(out, candidate)
	return out, nil
}
