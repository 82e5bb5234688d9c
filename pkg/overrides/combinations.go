package overrides

import (
	"errors"
)

// MaxLabels is the largest label set that can be enumerated.
// Combinations are addressed by a uint64 mask, larger sets are rejected
// rather than truncated.
const MaxLabels = 62

var ErrTooManyLabels = errors.New("too many override condition labels to enumerate")

// Combination is the ordered list of labels that are active for one planning attempt.
// All other labels of the LabelSet it was derived from are inactive.
type Combination []string

func (c Combination) String() string {
	return quoteList(c)
}

// Count returns the number of combinations of set, 2^N.
func Count(set *LabelSet) uint64 {
	return uint64(1) << uint(set.Len())
}

// Each calls fn for every combination of set in enumeration order.
// The first error returned by fn stops the walk and is returned.
//
// Combination i contains label j exactly when bit j of i is set, labels are kept
// in discovery order. This walks the subset lattice in the same order as the
// recursive exclude-first, include-second descent over the labels in reverse:
// the empty combination comes first and the full combination last.
func Each(set *LabelSet, fn func(index int, combination Combination) error) error {
	n := set.Len()
	if n > MaxLabels {
		return ErrTooManyLabels
	}
	total := Count(set)
	for mask := uint64(0); mask < total; mask++ {
		combination := make(Combination, 0, n)
		for bit := 0; bit < n; bit++ {
			if mask&(uint64(1)<<uint(bit)) != 0 {
				combination = append(combination, set.At(bit))
			}
		}
		if err := fn(int(mask), combination); err != nil {
			return err
		}
	}
	return nil
}

// Enumerate returns all combinations of set in enumeration order.
func Enumerate(set *LabelSet) ([]Combination, error) {
	if set.Len() > MaxLabels {
		return nil, ErrTooManyLabels
	}
	out := make([]Combination, 0, min(Count(set), 1<<16))
	err := Each(set, func(_ int, combination Combination) error {
		out = append(out, combination)
		return nil
	})
	return out, err
}
