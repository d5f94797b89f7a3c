package transform

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestions = 3

// suggest lists the dataset names closest to name, for error messages only.
// Datasets are never matched fuzzily.
func (t *Transformer) suggest(name string) string {
	names := make(map[string]struct{})
	for _, a := range t.db.Activities() {
		names[a.Name] = struct{}{}
	}
	targets := slices.Sorted(maps.Keys(names))

	best := make(map[string]int)
	for _, word := range strings.Fields(name) {
		if len(word) < 3 {
			continue
		}
		for _, rank := range fuzzy.RankFindNormalizedFold(word, targets) {
			if d, found := best[rank.Target]; !found || rank.Distance < d {
				best[rank.Target] = rank.Distance
			}
		}
	}
	if len(best) == 0 {
		return ""
	}

	suggestions := slices.SortedFunc(maps.Keys(best), func(a, b string) int {
		if c := cmp.Compare(best[a], best[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return ", did you mean " + strings.Join(suggestions, " or ") + "?"
}
