// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"sort"
	"strings"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

// NormalizeKeywords trims each keyword, drops blanks, and collapses
// case-insensitive duplicates to their first occurrence. Input order and
// the first occurrence's casing are preserved for display.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		fold := strings.ToLower(kw)
		if _, dup := seen[fold]; dup {
			continue
		}
		seen[fold] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Rank returns a new slice sorted by descending score with ties broken by
// ascending keyword, so equal-scoring batches always iterate in the same
// order. The input slice is left untouched.
func Rank(results []types.OpportunityResult) []types.OpportunityResult {
	ranked := make([]types.OpportunityResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})
	return ranked
}
