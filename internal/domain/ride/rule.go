package ride

import (
	"fmt"
	"sort"
)

// Rule is a condition the driver or owner sets for passengers
type Rule string

const (
	RuleNoSmoking  Rule = "NO_SMOKING"
	RuleNoPets     Rule = "NO_PETS"
	RuleNoFood     Rule = "NO_FOOD"
	RuleNoMusic    Rule = "NO_MUSIC"
	RuleNoLuggage  Rule = "NO_LUGGAGE"
	RuleFemaleOnly Rule = "FEMALE_ONLY"
)

// IsValid validates the rule
func (r Rule) IsValid() bool {
	switch r {
	case RuleNoSmoking, RuleNoPets, RuleNoFood, RuleNoMusic, RuleNoLuggage, RuleFemaleOnly:
		return true
	}
	return false
}

// RuleSet is a sorted, duplicate free collection of rules
type RuleSet []Rule

// NewRuleSet validates and deduplicates rules
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	seen := make(map[Rule]struct{}, len(rules))
	set := make(RuleSet, 0, len(rules))
	for _, r := range rules {
		if !r.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, r)
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		set = append(set, r)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set, nil
}

// Has reports whether the rule is in the set
func (s RuleSet) Has(r Rule) bool {
	for _, existing := range s {
		if existing == r {
			return true
		}
	}
	return false
}

// With returns a new set that includes r
func (s RuleSet) With(r Rule) (RuleSet, error) {
	return NewRuleSet(append(s.clone(), r)...)
}

// Without returns a new set that excludes r
func (s RuleSet) Without(r Rule) RuleSet {
	out := make(RuleSet, 0, len(s))
	for _, existing := range s {
		if existing != r {
			out = append(out, existing)
		}
	}
	return out
}

// Strings converts the set for storage
func (s RuleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

func (s RuleSet) clone() RuleSet {
	out := make(RuleSet, len(s))
	copy(out, s)
	return out
}
