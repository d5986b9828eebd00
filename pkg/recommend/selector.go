package recommend

import "sort"

// DefaultTopN is used when the caller asks for zero or fewer candidates.
const DefaultTopN = 5

// Selection is one label chosen from a distribution.
type Selection struct {
	Label       string
	Probability float64
}

// SelectTop returns the n most probable labels, highest first. Equal
// probabilities are ordered by label.
func SelectTop(d Distribution, n int) []Selection {
	if n <= 0 {
		n = DefaultTopN
	}
	all := make([]Selection, len(d.Labels))
	for i, label := range d.Labels {
		all[i] = Selection{Label: label, Probability: d.Probabilities[i]}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Probability != all[j].Probability {
			return all[i].Probability > all[j].Probability
		}
		return all[i].Label < all[j].Label
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
