package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyEngine_AllowsByDefault(t *testing.T) {
	e := NewDefaultPolicyEngine()

	res, err := e.Evaluate(context.Background(), Request{
		Service:   "labs-semantic-search",
		Operation: "search",
		Arguments: `{"query":"caching workshops"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, res.Effect)
}

func TestDefaultPolicyEngine_DeniesRestrictedService(t *testing.T) {
	e := NewDefaultPolicyEngine()
	e.DenyService("labs-user-progression")

	res, err := e.Evaluate(context.Background(), Request{Service: "labs-user-progression"})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, res.Effect)
	assert.Contains(t, res.Reason, "labs-user-progression")
}

func TestDefaultPolicyEngine_DeniesMatchingArguments(t *testing.T) {
	e := NewDefaultPolicyEngine()
	require.NoError(t, e.DenyArguments(`(?i)drop\s+table`))

	res, err := e.Evaluate(context.Background(), Request{
		Service:   "labs-nl-query",
		Arguments: `{"natural_language_query":"DROP TABLE users"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, res.Effect)

	res, err = e.Evaluate(context.Background(), Request{
		Service:   "labs-nl-query",
		Arguments: `{"natural_language_query":"who knows sql"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, res.Effect)
}

func TestDefaultPolicyEngine_RejectsBadPattern(t *testing.T) {
	e := NewDefaultPolicyEngine()
	assert.Error(t, e.DenyArguments(`([`))
}
