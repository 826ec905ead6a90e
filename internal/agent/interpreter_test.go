package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumflow/agentflow/internal/models"
)

func fixedInterpreter() *Interpreter {
	return &Interpreter{now: func() time.Time {
		return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	}}
}

func TestScoreQualityTiers(t *testing.T) {
	high := &models.Decision{
		SituationAnalysis: models.SituationAnalysis{
			RelevantRules: []string{"be polite"},
			Opportunities: []string{"upsell"},
		},
		FlowDecision: models.FlowDecision{
			Reasoning:  strings.Repeat("r", 25),
			Confidence: 0.9,
		},
	}
	assert.Equal(t, 1.0, ScoreQuality(high))
	assert.Equal(t, models.QualityHigh, QualityTier(ScoreQuality(high)))

	low := &models.Decision{
		FlowDecision: models.FlowDecision{
			Reasoning:  "short",
			Confidence: 0.5,
		},
	}
	assert.Equal(t, 0.0, ScoreQuality(low))
	assert.Equal(t, models.QualityLow, QualityTier(ScoreQuality(low)))

	medium := &models.Decision{
		SituationAnalysis: models.SituationAnalysis{Risks: []string{"churn"}},
		FlowDecision:      models.FlowDecision{Confidence: 0.71},
	}
	assert.Equal(t, 0.5, ScoreQuality(medium))
	assert.Equal(t, models.QualityMedium, QualityTier(ScoreQuality(medium)))

	// confidence exactly 0.7 does not count and 20 characters is not "longer than 20"
	edge := &models.Decision{
		SituationAnalysis: models.SituationAnalysis{RelevantRules: []string{"x"}, Opportunities: []string{"y"}},
		FlowDecision:      models.FlowDecision{Confidence: 0.7, Reasoning: strings.Repeat("a", 20)},
	}
	assert.Equal(t, 0.5, ScoreQuality(edge))
}

func TestBuildReasoningFormat(t *testing.T) {
	d := sampleDecision()
	d.FlowDecision.Confidence = 0.876

	got := BuildReasoning(d)
	assert.Equal(t,
		"Situation: User is curious about pricing | Decision: Opening the conversation warmly | Intent: build_rapport | Confidence: 88% | Stage: opening",
		got)
	assert.Len(t, strings.Split(got, reasoningSeparator), 5)
}

func TestInterpretFixedKeysWin(t *testing.T) {
	d := sampleDecision()
	d.ActionExecution.ContextUpdates = map[string]interface{}{
		models.KeyCurrentGoal:  "hijacked",
		models.KeySessionStage: "nonsense",
		"budget":               500,
	}

	resp := fixedInterpreter().Interpret(d, "hello", models.InitialGoal)

	assert.Equal(t, "discover_needs", resp.ContextUpdates[models.KeyCurrentGoal])
	assert.Equal(t, models.StageOpening, resp.ContextUpdates[models.KeySessionStage])
	assert.Equal(t, 500, resp.ContextUpdates["budget"])
	assert.Equal(t, models.InitialGoal, resp.ContextUpdates[models.KeyPreviousGoal])
	assert.Equal(t, "hello", resp.ContextUpdates[models.KeyOriginalPrompt])
	assert.Equal(t, "2026-05-04T10:30:00Z", resp.ContextUpdates[models.KeyLastDecisionTime])
	assert.Equal(t, "2026-05-04T10:30:00Z", resp.ContextUpdates[models.KeyUpdatedAt])
	assert.Equal(t, string(models.QualityHigh), resp.ContextUpdates[models.KeyDecisionQuality])

	for _, key := range models.AuditKeys() {
		assert.Contains(t, resp.ContextUpdates, key)
	}

	stored, ok := resp.ContextUpdates[models.KeyDecision].(models.Decision)
	require.True(t, ok)
	assert.Equal(t, d.FlowDecision.Action, stored.FlowDecision.Action)
}

func TestInterpretResponseFields(t *testing.T) {
	d := sampleDecision()
	d.Meta.EscalationNeeded = true
	d.Meta.EscalationReason = "asked for a human"

	resp := fixedInterpreter().Interpret(d, "hi", "qualify")

	assert.Equal(t, d.ActionExecution.Message, resp.Message)
	assert.Equal(t, models.ActionGreet, resp.ActionTaken)
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Equal(t, "states need", resp.SuggestedNextAction)
	assert.True(t, resp.Meta.EscalationNeeded)
	assert.Equal(t, models.SentimentPositive, resp.Meta.Sentiment)
	assert.Equal(t, "asked for a human", resp.ContextUpdates[models.KeyEscalationReason])
	assert.Equal(t, "qualify", resp.ContextUpdates[models.KeyPreviousGoal])
}

func TestNextGoalFallbacks(t *testing.T) {
	d := sampleDecision()
	assert.Equal(t, "discover_needs", NextGoal(d, "prior"))

	d.ActionExecution.NextGoal = " "
	assert.Equal(t, "qualify", NextGoal(d, "prior"))

	d.SituationAnalysis.CurrentGoal = ""
	assert.Equal(t, "prior", NextGoal(d, "prior"))
}

func TestInterpretMergeIsShallow(t *testing.T) {
	board := models.NewBlackboard(map[string]interface{}{
		"cart": []string{"a", "b"},
	})

	d := sampleDecision()
	d.ActionExecution.ContextUpdates = map[string]interface{}{"cart": []string{"c"}}
	board.Merge(fixedInterpreter().Interpret(d, "x", "g").ContextUpdates)

	v, _ := board.Get("cart")
	assert.Equal(t, []string{"c"}, v)
}
