package plan

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/minwoo/labpilot/internal/intent"
	"github.com/minwoo/labpilot/internal/registry"
)

var quotedLiteral = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// Builder turns ranked candidates into a frozen execution plan. Services
// tagged as prerequisites (data lookups) are scheduled before consumers,
// and a consumer following a prerequisite gets a back-reference onto the
// prerequisite's first provided output field.
type Builder struct {
	Budget      time.Duration
	MaxAttempts int
}

func NewBuilder(budget time.Duration, maxAttempts int) *Builder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Builder{Budget: budget, MaxAttempts: maxAttempts}
}

// Build returns nil when candidates is empty. That is not an error: it
// tells the caller to skip execution and fall back to a default response.
func (b *Builder) Build(query string, candidates []intent.Candidate) *Plan {
	if len(candidates) == 0 {
		return nil
	}

	ordered := orderCandidates(query, candidates)

	steps := make([]Step, 0, len(ordered))
	lastPrereq := -1
	for i, cand := range ordered {
		svc := cand.Service
		path, _ := svc.Operation(svc.DefaultOperation)
		step := Step{
			Index:       i,
			ServiceKey:  svc.Key,
			ServiceName: svc.Name,
			Operation:   svc.DefaultOperation,
			BaseURL:     svc.BaseURL,
			Path:        path,
			Params:      map[string]ParamValue{},
			DependsOn:   -1,
			Timeout:     svc.Timeout,
			MaxAttempts: b.MaxAttempts,
		}

		if svc.Role == registry.RoleConsumer && lastPrereq >= 0 {
			prereq := ordered[lastPrereq].Service
			step.DependsOn = lastPrereq
			step.Params[svc.QueryParam] = FromStep(lastPrereq, prereq.Provides[0])
		} else {
			step.Params[svc.QueryParam] = Literal(literalFor(query, svc))
		}

		if svc.Role == registry.RolePrerequisite {
			lastPrereq = i
		}
		steps = append(steps, step)
	}

	return &Plan{Query: query, Budget: b.Budget, Steps: steps}
}

// orderCandidates schedules prerequisites first. Among same-role
// candidates the match-score order is preserved; equal scores fall back
// to the textual position of the earliest matched phrase in the query, a
// fixed tie-break that can never produce a cycle.
func orderCandidates(query string, candidates []intent.Candidate) []intent.Candidate {
	normalized := intent.Normalize(query)

	type ranked struct {
		cand intent.Candidate
		pos  int
	}
	rankedList := make([]ranked, len(candidates))
	for i, c := range candidates {
		rankedList[i] = ranked{cand: c, pos: earliestMatch(normalized, c.Matched)}
	}

	sort.SliceStable(rankedList, func(i, j int) bool {
		ri, rj := roleRank(rankedList[i].cand.Service.Role), roleRank(rankedList[j].cand.Service.Role)
		if ri != rj {
			return ri < rj
		}
		if rankedList[i].cand.Score != rankedList[j].cand.Score {
			return rankedList[i].cand.Score > rankedList[j].cand.Score
		}
		return rankedList[i].pos < rankedList[j].pos
	})

	ordered := make([]intent.Candidate, len(rankedList))
	for i, r := range rankedList {
		ordered[i] = r.cand
	}
	return ordered
}

func roleRank(r registry.Role) int {
	switch r {
	case registry.RolePrerequisite:
		return 0
	case registry.RoleConsumer:
		return 1
	default:
		return 2
	}
}

func earliestMatch(normalizedQuery string, matched []string) int {
	best := len(normalizedQuery)
	for _, phrase := range matched {
		if idx := strings.Index(normalizedQuery, intent.Normalize(phrase)); idx >= 0 && idx < best {
			best = idx
		}
	}
	return best
}

// literalFor picks the literal parameter value for a service that takes
// its input from the query itself: either a quoted identifier or the full
// query text.
func literalFor(query string, svc *registry.Service) string {
	if svc.QueryParam == "user_id" || svc.QueryParam == "name" {
		if lit := ExtractQuotedLiteral(query); lit != "" {
			return lit
		}
	}
	return query
}

// ExtractQuotedLiteral returns the first single- or double-quoted string
// in the query, or "" when none is present.
func ExtractQuotedLiteral(query string) string {
	m := quotedLiteral.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
