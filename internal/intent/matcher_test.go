package intent

import (
	"fmt"
	"testing"

	"github.com/minwoo/labpilot/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func svc(key string, phrases ...string) *registry.Service {
	return &registry.Service{Key: key, Name: key, UseWhen: phrases, Enabled: true}
}

func TestMatcher_ZeroMatchesYieldsEmpty(t *testing.T) {
	m := NewMatcher(5)
	services := []*registry.Service{
		svc("search", "workshop search", "find courses"),
	}
	got := m.Match(services, "what's the weather like today")
	assert.Empty(t, got)
}

func TestMatcher_LongerPhrasesScoreHigher(t *testing.T) {
	m := NewMatcher(5)
	services := []*registry.Service{
		svc("generic", "search"),
		svc("specific", "workshop search"),
	}

	got := m.Match(services, "workshop search for databases")
	require.Len(t, got, 2)

	// "workshop search" (2 words) outweighs "search" (1 word).
	assert.Equal(t, "specific", got[0].Service.Key)
	assert.Equal(t, 2, got[0].Score)
	assert.Equal(t, "generic", got[1].Service.Key)
	assert.Equal(t, 1, got[1].Score)
}

func TestMatcher_TiesKeepRegistryOrder(t *testing.T) {
	m := NewMatcher(5)
	services := []*registry.Service{
		svc("first", "workshops"),
		svc("second", "workshops"),
	}

	got := m.Match(services, "show me workshops")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Service.Key)
	assert.Equal(t, "second", got[1].Service.Key)
}

func TestMatcher_NormalizesCaseAndWhitespace(t *testing.T) {
	m := NewMatcher(5)
	services := []*registry.Service{
		svc("search", "workshop search"),
	}

	got := m.Match(services, "  WORKSHOP   Search\tplease ")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"workshop search"}, got[0].Matched)
}

func TestMatcher_CapBoundsCandidates(t *testing.T) {
	m := NewMatcher(2)
	var services []*registry.Service
	for i := 0; i < 6; i++ {
		services = append(services, svc(fmt.Sprintf("svc%d", i), "workshops"))
	}

	got := m.Match(services, "workshops")
	assert.Len(t, got, 2)
}

func TestMatcher_Deterministic(t *testing.T) {
	m := NewMatcher(5)
	services := []*registry.Service{
		svc("a", "my skills", "skills inquiry"),
		svc("b", "workshop search", "skills"),
	}

	first := m.Match(services, "find workshops for my skills")
	for i := 0; i < 10; i++ {
		again := m.Match(services, "find workshops for my skills")
		require.Equal(t, first, again)
	}
}
