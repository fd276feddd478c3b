package intent

import (
	"sort"
	"strings"

	"github.com/minwoo/labpilot/internal/registry"
)

// Candidate is a transient match between a query and one service.
type Candidate struct {
	Service *registry.Service
	Score   int
	Matched []string
}

// Matcher scores a free-text query against each enabled service's trigger
// phrases. Scoring is deterministic: identical input always yields the
// same ranking.
type Matcher struct {
	// MaxCandidates bounds how many candidates are returned, which in turn
	// bounds downstream plan size.
	MaxCandidates int
}

func NewMatcher(maxCandidates int) *Matcher {
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &Matcher{MaxCandidates: maxCandidates}
}

// Match returns candidates ordered by descending score. Ties keep the
// registry iteration order of services, so the first-registered service
// wins. A query overlapping no trigger phrase yields an empty slice.
func (m *Matcher) Match(services []*registry.Service, query string) []Candidate {
	normalized := Normalize(query)

	var candidates []Candidate
	for _, svc := range services {
		score := 0
		var matched []string
		for _, phrase := range svc.UseWhen {
			p := Normalize(phrase)
			if p == "" {
				continue
			}
			if strings.Contains(normalized, p) {
				// Longer phrases are more specific, so they outweigh
				// generic single-word triggers.
				score += len(strings.Fields(p))
				matched = append(matched, phrase)
			}
		}
		if score > 0 {
			candidates = append(candidates, Candidate{Service: svc, Score: score, Matched: matched})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > m.MaxCandidates {
		candidates = candidates[:m.MaxCandidates]
	}
	return candidates
}

// Normalize lowercases and collapses all whitespace runs to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
