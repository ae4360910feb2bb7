package sales

import "fmt"

// NamePolicy selects one product name from the descriptions seen for a product.
type NamePolicy string

const (
	// NamePolicyMostFrequent picks the most frequent valid description,
	// breaking ties with the lexicographically greatest value.
	NamePolicyMostFrequent NamePolicy = "most_frequent"
	// NamePolicyMaxString picks the lexicographically greatest valid description.
	NamePolicyMaxString NamePolicy = "max_string"
)

// ParseNamePolicy converts a config string into a NamePolicy.
// An empty string selects the default policy.
func ParseNamePolicy(s string) (NamePolicy, error) {
	switch NamePolicy(s) {
	case "":
		return NamePolicyMostFrequent, nil
	case NamePolicyMostFrequent, NamePolicyMaxString:
		return NamePolicy(s), nil
	}
	return "", fmt.Errorf("unknown product name policy %q", s)
}

// nameTally accumulates description candidates for one product.
type nameTally struct {
	counts map[string]int
}

func newNameTally() *nameTally {
	return &nameTally{counts: make(map[string]int)}
}

func (t *nameTally) add(description string) {
	if v, ok := ValidDescription(description); ok {
		t.counts[v]++
	}
}

// pick returns the chosen name under policy, or nil when no valid candidate exists.
func (t *nameTally) pick(policy NamePolicy) *string {
	var (
		best      string
		bestCount int
		found     bool
	)
	for name, count := range t.counts {
		switch {
		case !found:
		case policy == NamePolicyMaxString:
			if name <= best {
				continue
			}
		default:
			if count < bestCount || (count == bestCount && name <= best) {
				continue
			}
		}
		best, bestCount, found = name, count, true
	}
	if !found {
		return nil
	}
	return &best
}

// PickName applies policy to a list of raw descriptions.
func PickName(policy NamePolicy, descriptions ...string) *string {
	t := newNameTally()
	for _, d := range descriptions {
		t.add(d)
	}
	return t.pick(policy)
}
