package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/minwoo/labpilot/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryStore_RecordAndReadBack(t *testing.T) {
	h := newTestStore(t)

	outcomes := []plan.StepOutcome{
		{
			Step: plan.Step{Index: 0, ServiceKey: "labs-nl-query", Operation: "query"},
			Result: plan.Succeeded(map[string]any{
				"skills": "go, sql",
			}, 42*time.Millisecond),
		},
		{
			Step:   plan.Step{Index: 1, ServiceKey: "labs-semantic-search", Operation: "search"},
			Result: plan.Failed(plan.KindTimeout, "request timed out"),
		},
		{
			Step:   plan.Step{Index: 2, ServiceKey: "labs-user-progression", Operation: "get_progress"},
			Result: plan.Skipped("dependency not satisfied"),
		},
	}

	require.NoError(t, h.RecordRequest("run1", "find workshops for my skills", "partially_completed", "partial answer", outcomes))

	records, err := h.RecentRequests(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run1", records[0].ID)
	assert.Equal(t, "find workshops for my skills", records[0].Query)
	assert.Equal(t, "partially_completed", records[0].Status)
	assert.Equal(t, "partial answer", records[0].Answer)

	steps, err := h.RequestSteps("run1")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "success", steps[0].Outcome)
	assert.Equal(t, int64(42), steps[0].ElapsedMS)

	assert.Equal(t, "failed", steps[1].Outcome)
	assert.Equal(t, "timeout", steps[1].ErrorKind)
	assert.Equal(t, "request timed out", steps[1].Detail)

	assert.Equal(t, "skipped", steps[2].Outcome)
	assert.Equal(t, "dependency not satisfied", steps[2].Detail)
}

func TestHistoryStore_RecentRequestsHonorsLimit(t *testing.T) {
	h := newTestStore(t)

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, h.RecordRequest(id, "q"+id, "completed", "ok", nil))
	}

	records, err := h.RecentRequests(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestHistoryStore_UnknownRequestHasNoSteps(t *testing.T) {
	h := newTestStore(t)
	steps, err := h.RequestSteps("nope")
	require.NoError(t, err)
	assert.Empty(t, steps)
}
