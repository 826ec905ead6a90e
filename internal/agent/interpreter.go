package agent

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quantumflow/agentflow/internal/models"
)

// reasoningSeparator joins the labeled fragments of a reasoning trace.
// Analytics split traces on it, so the format is fixed.
const reasoningSeparator = " | "

// Interpreter maps an oracle Decision into an AgentResponse and context delta
type Interpreter struct {
	now func() time.Time
}

// NewInterpreter creates an interpreter that stamps deltas with UTC wall time
func NewInterpreter() *Interpreter {
	return &Interpreter{now: func() time.Time { return time.Now().UTC() }}
}

// Interpret builds the response for one decision. priorGoal is the session's
// goal before this turn.
func (i *Interpreter) Interpret(d *models.Decision, originalPrompt, priorGoal string) *models.AgentResponse {
	score := ScoreQuality(d)
	quality := QualityTier(score)

	return &models.AgentResponse{
		Message:             d.ActionExecution.Message,
		ActionTaken:         d.FlowDecision.Action,
		Reasoning:           BuildReasoning(d),
		Confidence:          d.FlowDecision.Confidence,
		ContextUpdates:      i.contextUpdates(d, originalPrompt, priorGoal, quality),
		SuggestedNextAction: d.ActionExecution.ExpectedUserResponse,
		Meta: models.ResponseMeta{
			Stage:            d.Meta.SessionStage,
			Sentiment:        d.Meta.UserSentiment,
			EscalationNeeded: d.Meta.EscalationNeeded,
			Quality:          quality,
		},
	}
}

// BuildReasoning renders the five-part reasoning trace
func BuildReasoning(d *models.Decision) string {
	parts := []string{
		"Situation: " + d.SituationAnalysis.Assessment,
		"Decision: " + d.FlowDecision.Reasoning,
		"Intent: " + d.ActionExecution.Intent,
		fmt.Sprintf("Confidence: %d%%", int(math.Round(d.FlowDecision.Confidence*100))),
		"Stage: " + d.Meta.SessionStage,
	}
	return strings.Join(parts, reasoningSeparator)
}

// ScoreQuality returns the decision quality score in [0,1].
// Weights are summed in tenths so the result is exact.
func ScoreQuality(d *models.Decision) float64 {
	tenths := 0
	if len(d.SituationAnalysis.RelevantRules) > 0 {
		tenths += 3
	}
	if d.FlowDecision.Confidence > 0.7 {
		tenths += 3
	}
	if len(d.SituationAnalysis.Opportunities) > 0 || len(d.SituationAnalysis.Risks) > 0 {
		tenths += 2
	}
	if utf8.RuneCountInString(d.FlowDecision.Reasoning) > 20 {
		tenths += 2
	}
	if tenths > 10 {
		tenths = 10
	}
	return float64(tenths) / 10
}

// QualityTier maps a quality score to its label
func QualityTier(score float64) models.Quality {
	switch {
	case score >= 0.8:
		return models.QualityHigh
	case score >= 0.5:
		return models.QualityMedium
	default:
		return models.QualityLow
	}
}

// NextGoal picks the goal the session moves to after a decision
func NextGoal(d *models.Decision, priorGoal string) string {
	if g := strings.TrimSpace(d.ActionExecution.NextGoal); g != "" {
		return g
	}
	if g := strings.TrimSpace(d.SituationAnalysis.CurrentGoal); g != "" {
		return g
	}
	return priorGoal
}

// contextUpdates applies the decision's own updates, then the audit keys on top
func (i *Interpreter) contextUpdates(d *models.Decision, originalPrompt, priorGoal string, quality models.Quality) map[string]interface{} {
	updates := make(map[string]interface{}, len(d.ActionExecution.ContextUpdates)+len(models.AuditKeys()))
	for k, v := range d.ActionExecution.ContextUpdates {
		updates[k] = v
	}

	stamp := i.now().Format(time.RFC3339)

	updates[models.KeyDecision] = *d
	updates[models.KeyOriginalPrompt] = originalPrompt
	updates[models.KeySessionStage] = d.Meta.SessionStage
	updates[models.KeyUserSentiment] = d.Meta.UserSentiment
	updates[models.KeyConsideredRules] = append([]string{}, d.SituationAnalysis.RelevantRules...)
	updates[models.KeyIdentifiedOpportunities] = append([]string{}, d.SituationAnalysis.Opportunities...)
	updates[models.KeyIdentifiedRisks] = append([]string{}, d.SituationAnalysis.Risks...)
	updates[models.KeyPreviousGoal] = priorGoal
	updates[models.KeyCurrentGoal] = NextGoal(d, priorGoal)
	updates[models.KeyGoalProgress] = d.SituationAnalysis.GoalProgress
	updates[models.KeyDecisionConfidence] = d.FlowDecision.Confidence
	updates[models.KeyDecisionQuality] = string(quality)
	updates[models.KeyBackupPlan] = d.FlowDecision.BackupPlan
	updates[models.KeyEscalationNeeded] = d.Meta.EscalationNeeded
	updates[models.KeyEscalationReason] = d.Meta.EscalationReason
	updates[models.KeyLastDecisionTime] = stamp
	updates[models.KeyUpdatedAt] = stamp

	return updates
}
