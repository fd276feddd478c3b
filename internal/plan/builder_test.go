package plan

import (
	"testing"
	"time"

	"github.com/minwoo/labpilot/internal/intent"
	"github.com/minwoo/labpilot/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupService() *registry.Service {
	return &registry.Service{
		Key:              "labs-nl-query",
		Name:             "Natural Language User Lookup",
		BaseURL:          "http://localhost:8002",
		Role:             registry.RolePrerequisite,
		Provides:         []string{"skills"},
		Operations:       map[string]string{"query": "/users/search/nl"},
		DefaultOperation: "query",
		QueryParam:       "natural_language_query",
		Timeout:          10 * time.Second,
		Enabled:          true,
	}
}

func searchService() *registry.Service {
	return &registry.Service{
		Key:              "labs-semantic-search",
		Name:             "Workshop Semantic Search",
		BaseURL:          "http://localhost:8001",
		Role:             registry.RoleConsumer,
		Operations:       map[string]string{"search": "/search"},
		DefaultOperation: "search",
		QueryParam:       "query",
		Timeout:          10 * time.Second,
		Enabled:          true,
	}
}

func TestBuilder_EmptyCandidatesMeansNoPlan(t *testing.T) {
	b := NewBuilder(time.Minute, 1)
	assert.Nil(t, b.Build("anything", nil))
}

func TestBuilder_PrerequisiteScheduledBeforeConsumer(t *testing.T) {
	b := NewBuilder(time.Minute, 1)
	query := "find workshops for my skills"

	// Candidates arrive consumer-first from match scoring; the builder
	// must still schedule the data lookup ahead of the search.
	candidates := []intent.Candidate{
		{Service: searchService(), Score: 3, Matched: []string{"workshop search"}},
		{Service: lookupService(), Score: 2, Matched: []string{"my skills"}},
	}

	p := b.Build(query, candidates)
	require.NotNil(t, p)
	require.Len(t, p.Steps, 2)
	require.NoError(t, p.Validate())

	assert.Equal(t, "labs-nl-query", p.Steps[0].ServiceKey)
	assert.Equal(t, "labs-semantic-search", p.Steps[1].ServiceKey)

	// The consumer step depends on the lookup and back-references its
	// "skills" output field.
	assert.Equal(t, -1, p.Steps[0].DependsOn)
	assert.Equal(t, 0, p.Steps[1].DependsOn)

	ref := p.Steps[1].Params["query"]
	require.True(t, ref.IsRef())
	assert.Equal(t, 0, ref.FromStep)
	assert.Equal(t, "skills", ref.Field)
}

func TestBuilder_SingleConsumerGetsLiteralQuery(t *testing.T) {
	b := NewBuilder(time.Minute, 1)
	p := b.Build("search for content about caching", []intent.Candidate{
		{Service: searchService(), Score: 1, Matched: []string{"search"}},
	})
	require.NotNil(t, p)
	require.Len(t, p.Steps, 1)

	step := p.Steps[0]
	assert.Equal(t, -1, step.DependsOn)
	lit := step.Params["query"]
	require.False(t, lit.IsRef())
	assert.Equal(t, "search for content about caching", lit.Literal)
}

func TestBuilder_EndpointsCapturedAtBuildTime(t *testing.T) {
	b := NewBuilder(time.Minute, 1)
	svc := searchService()
	p := b.Build("search workshops", []intent.Candidate{{Service: svc, Score: 1}})
	require.NotNil(t, p)

	// Mutating the descriptor afterwards must not affect the frozen plan.
	svc.BaseURL = "http://changed:9999"
	assert.Equal(t, "http://localhost:8001", p.Steps[0].BaseURL)
	assert.Equal(t, "/search", p.Steps[0].Path)
}

func TestBuilder_PlansAreAlwaysAcyclic(t *testing.T) {
	b := NewBuilder(time.Minute, 1)

	// Several shuffled role mixes; every produced plan must satisfy the
	// dependency-points-backwards property.
	mixes := [][]intent.Candidate{
		{
			{Service: searchService(), Score: 5},
			{Service: lookupService(), Score: 4},
			{Service: searchService(), Score: 3},
		},
		{
			{Service: lookupService(), Score: 1},
			{Service: lookupService(), Score: 1},
			{Service: searchService(), Score: 1},
		},
		{
			{Service: searchService(), Score: 2},
			{Service: searchService(), Score: 2},
		},
	}

	for _, candidates := range mixes {
		p := b.Build("find workshops for my skills", candidates)
		require.NotNil(t, p)
		assert.NoError(t, p.Validate())
		for _, s := range p.Steps {
			assert.Less(t, s.DependsOn, s.Index)
		}
	}
}

func TestBuilder_EqualScoreTieBreaksOnPhrasePosition(t *testing.T) {
	b := NewBuilder(time.Minute, 1)

	first := searchService()
	second := &registry.Service{
		Key:              "labs-user-progression",
		Name:             "Skills and Progression Tracking",
		BaseURL:          "http://localhost:8003",
		Role:             registry.RoleConsumer,
		Operations:       map[string]string{"get_progress": "/progression/get"},
		DefaultOperation: "get_progress",
		QueryParam:       "user_id",
		Timeout:          10 * time.Second,
	}

	// Same role, same score: the phrase appearing earlier in the query
	// wins, regardless of candidate order.
	query := "track progress then workshop search"
	candidates := []intent.Candidate{
		{Service: first, Score: 2, Matched: []string{"workshop search"}},
		{Service: second, Score: 2, Matched: []string{"track progress"}},
	}

	p := b.Build(query, candidates)
	require.NotNil(t, p)
	assert.Equal(t, "labs-user-progression", p.Steps[0].ServiceKey)
	assert.Equal(t, "labs-semantic-search", p.Steps[1].ServiceKey)
}

func TestBuilder_QuotedLiteralForIdentifierParams(t *testing.T) {
	b := NewBuilder(time.Minute, 1)
	progression := &registry.Service{
		Key:              "labs-user-progression",
		Name:             "Skills and Progression Tracking",
		BaseURL:          "http://localhost:8003",
		Role:             registry.RoleConsumer,
		Operations:       map[string]string{"get_progress": "/progression/get"},
		DefaultOperation: "get_progress",
		QueryParam:       "user_id",
		Timeout:          10 * time.Second,
	}

	p := b.Build(`show progress for "john.doe"`, []intent.Candidate{
		{Service: progression, Score: 1, Matched: []string{"progress"}},
	})
	require.NotNil(t, p)

	lit := p.Steps[0].Params["user_id"]
	require.False(t, lit.IsRef())
	assert.Equal(t, "john.doe", lit.Literal)
}

func TestExtractQuotedLiteral(t *testing.T) {
	assert.Equal(t, "alice", ExtractQuotedLiteral(`who is "alice"`))
	assert.Equal(t, "bob", ExtractQuotedLiteral(`who is 'bob'`))
	assert.Equal(t, "", ExtractQuotedLiteral("no quotes here"))
}
