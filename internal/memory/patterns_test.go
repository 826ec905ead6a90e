package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumflow/agentflow/internal/models"
)

func newTestPatternStore(t *testing.T) *BadgerPatternStore {
	t.Helper()
	store, err := NewBadgerPatternStore(&Config{BadgerInMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPatternStoreRecordAndGet(t *testing.T) {
	store := newTestPatternStore(t)
	ctx := context.Background()
	seq := []models.FlowAction{models.ActionGreet, models.ActionAskQuestion, models.ActionClose}

	require.NoError(t, store.RecordSequence(ctx, "sales", seq, true))
	require.NoError(t, store.RecordSequence(ctx, "sales", seq, false))
	require.NoError(t, store.RecordSequence(ctx, "sales", nil, true))

	p, err := store.GetPattern(ctx, "sales", seq)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Frequency)
	assert.Equal(t, 1, p.Successes)
	assert.InDelta(t, 0.5, p.SuccessRate, 1e-9)
	assert.Equal(t, seq, p.Actions)

	_, err = store.GetPattern(ctx, "support", seq)
	assert.True(t, errors.Is(err, ErrPatternNotFound))
}

func TestPatternStoreTopPatterns(t *testing.T) {
	store := newTestPatternStore(t)
	ctx := context.Background()

	short := []models.FlowAction{models.ActionGreet, models.ActionEscalate}
	long := []models.FlowAction{models.ActionGreet, models.ActionRecommend, models.ActionClose}

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordSequence(ctx, "sales", long, true))
	}
	require.NoError(t, store.RecordSequence(ctx, "sales", short, false))
	require.NoError(t, store.RecordSequence(ctx, "support", short, true))

	top, err := store.TopPatterns(ctx, "sales", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, long, top[0].Actions)
	assert.Equal(t, 3, top[0].Frequency)

	top, err = store.TopPatterns(ctx, "sales", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	top, err = store.TopPatterns(ctx, "support", 0)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestMemoryServiceOutcomeAndTurn(t *testing.T) {
	patterns := newTestPatternStore(t)
	svc := NewMemoryServiceWithStores(nil, patterns, nil, nil)
	ctx := context.Background()

	assert.Equal(t, map[string]bool{"transcripts": false, "patterns": true, "profiles": false}, svc.Enabled())

	outcome := &models.SessionOutcome{
		SessionID:    "s1",
		StrategyName: "sales",
		Status:       models.StatusCompleted,
		Actions:      []models.FlowAction{models.ActionGreet, models.ActionClose},
	}
	require.NoError(t, svc.RecordOutcome(ctx, outcome))

	top, err := svc.TopPatterns(ctx, "sales", 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Successes)

	// sinks that are not configured are skipped
	require.NoError(t, svc.RecordTurn(ctx, &models.TurnRecord{SessionID: "s1", Response: &models.AgentResponse{Message: "hi"}}))
	_, err = svc.Transcript(ctx, "s1")
	assert.Error(t, err)
}

func TestMemoryServiceWithNothingConfigured(t *testing.T) {
	svc := NewMemoryService(nil, nil)
	ctx := context.Background()

	assert.NoError(t, svc.RecordOutcome(ctx, &models.SessionOutcome{StrategyName: "sales"}))
	top, err := svc.TopPatterns(ctx, "sales", 3)
	assert.NoError(t, err)
	assert.Empty(t, top)
	assert.NoError(t, svc.Close())
}
