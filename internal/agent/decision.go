package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/models"
)

// DecisionToolName is the mandatory tool the oracle calls to end a turn
const DecisionToolName = "submit_decision"

// decisionToolSpec describes the Decision shape to the oracle
func decisionToolSpec() inference.ToolSpec {
	actions := make([]string, 0, len(models.FlowActions()))
	for _, a := range models.FlowActions() {
		actions = append(actions, string(a))
	}

	stringList := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
	enum := func(values ...string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "enum": values}
	}
	text := map[string]interface{}{"type": "string"}

	return inference.ToolSpec{
		Name:        DecisionToolName,
		Description: "Submit the final decision for this turn. Call exactly once, after any other tools.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"situation_analysis": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"current_goal":   text,
						"goal_progress":  enum(models.ProgressNotStarted, models.ProgressInProgress, models.ProgressAchieved, models.ProgressBlocked),
						"assessment":     text,
						"relevant_rules": stringList,
						"opportunities":  stringList,
						"risks":          stringList,
					},
					"required": []string{"current_goal", "goal_progress", "assessment"},
				},
				"flow_decision": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"action":      enum(actions...),
						"reasoning":   text,
						"confidence":  map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
						"urgency":     enum(models.UrgencyLow, models.UrgencyMedium, models.UrgencyHigh),
						"backup_plan": text,
					},
					"required": []string{"action", "reasoning", "confidence"},
				},
				"action_execution": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message":                text,
						"intent":                 text,
						"expected_user_response": text,
						"context_updates":        map[string]interface{}{"type": "object"},
						"next_goal":              text,
					},
					"required": []string{"message"},
				},
				"meta": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"session_stage":     enum(models.StageOpening, models.StageDiscovery, models.StagePresentation, models.StageNegotiation, models.StageClosing, models.StageFollowUp),
						"user_sentiment":    enum(models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative),
						"escalation_needed": map[string]interface{}{"type": "boolean"},
						"escalation_reason": text,
					},
					"required": []string{"session_stage", "user_sentiment", "escalation_needed"},
				},
			},
			"required": []string{"situation_analysis", "flow_decision", "action_execution", "meta"},
		},
	}
}

var decisionValidator = validator.New()

// parseDecision extracts and validates a Decision from tool arguments or free text
func parseDecision(raw string) (*models.Decision, error) {
	raw = strings.TrimSpace(raw)

	// Remove markdown code blocks
	if strings.HasPrefix(raw, "```json") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimSuffix(raw, "```")
		raw = strings.TrimSpace(raw)
	} else if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
		raw = strings.TrimSpace(raw)
	}

	// Find JSON object
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedDecision)
	}

	var d models.Decision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	normalizeDecision(&d)

	if err := decisionValidator.Struct(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	return &d, nil
}

// normalizeDecision lowercases enums, fills missing ones with neutral
// defaults and clamps confidence into [0,1]
func normalizeDecision(d *models.Decision) {
	d.SituationAnalysis.GoalProgress = enumOr(d.SituationAnalysis.GoalProgress, models.ProgressInProgress)
	d.FlowDecision.Action = models.FlowAction(strings.ToLower(strings.TrimSpace(string(d.FlowDecision.Action))))
	d.FlowDecision.Urgency = enumOr(d.FlowDecision.Urgency, models.UrgencyMedium)
	d.Meta.SessionStage = enumOr(d.Meta.SessionStage, models.StageDiscovery)
	d.Meta.UserSentiment = enumOr(d.Meta.UserSentiment, models.SentimentNeutral)

	if d.FlowDecision.Confidence < 0 {
		d.FlowDecision.Confidence = 0
	}
	if d.FlowDecision.Confidence > 1 {
		d.FlowDecision.Confidence = 1
	}
}

func enumOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
