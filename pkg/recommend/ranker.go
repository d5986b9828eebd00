package recommend

import "sort"

// Rank orders candidates by profit, highest first. Equal profits keep
// their incoming order. The input slice is not modified.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EstimatedProfit > ranked[j].EstimatedProfit
	})
	return ranked
}
