package models

// FlowAction is the closed set of actions the oracle may choose for a turn
type FlowAction string

const (
	ActionGreet              FlowAction = "greet"
	ActionAskQuestion        FlowAction = "ask_question"
	ActionProvideInformation FlowAction = "provide_information"
	ActionRecommend          FlowAction = "recommend"
	ActionHandleObjection    FlowAction = "handle_objection"
	ActionConfirm            FlowAction = "confirm"
	ActionClose              FlowAction = "close"
	ActionEscalate           FlowAction = "escalate"
	ActionEndConversation    FlowAction = "end_conversation"
)

// FlowActions lists every valid FlowAction in schema order
func FlowActions() []FlowAction {
	return []FlowAction{
		ActionGreet,
		ActionAskQuestion,
		ActionProvideInformation,
		ActionRecommend,
		ActionHandleObjection,
		ActionConfirm,
		ActionClose,
		ActionEscalate,
		ActionEndConversation,
	}
}

// GoalProgress, Urgency, SessionStage and Sentiment values
const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressAchieved   = "achieved"
	ProgressBlocked    = "blocked"

	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"

	StageOpening      = "opening"
	StageDiscovery    = "discovery"
	StagePresentation = "presentation"
	StageNegotiation  = "negotiation"
	StageClosing      = "closing"
	StageFollowUp     = "follow_up"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Decision is the oracle's structured output for one turn
type Decision struct {
	SituationAnalysis SituationAnalysis `json:"situation_analysis"`
	FlowDecision      FlowDecision      `json:"flow_decision"`
	ActionExecution   ActionExecution   `json:"action_execution"`
	Meta              DecisionMeta      `json:"meta"`
}

// SituationAnalysis is the oracle's read of the conversation so far
type SituationAnalysis struct {
	CurrentGoal   string   `json:"current_goal"`
	GoalProgress  string   `json:"goal_progress" validate:"oneof=not_started in_progress achieved blocked"`
	Assessment    string   `json:"assessment"`
	RelevantRules []string `json:"relevant_rules"`
	Opportunities []string `json:"opportunities"`
	Risks         []string `json:"risks"`
}

// FlowDecision is the action chosen for this turn
type FlowDecision struct {
	Action     FlowAction `json:"action" validate:"oneof=greet ask_question provide_information recommend handle_objection confirm close escalate end_conversation"`
	Reasoning  string     `json:"reasoning"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
	Urgency    string     `json:"urgency" validate:"oneof=low medium high"`
	BackupPlan string     `json:"backup_plan"`
}

// ActionExecution carries the message to send and the state to record
type ActionExecution struct {
	Message              string                 `json:"message" validate:"required"`
	Intent               string                 `json:"intent"`
	ExpectedUserResponse string                 `json:"expected_user_response"`
	ContextUpdates       map[string]interface{} `json:"context_updates"`
	NextGoal             string                 `json:"next_goal"`
}

// DecisionMeta describes the stage and mood of the conversation
type DecisionMeta struct {
	SessionStage     string `json:"session_stage" validate:"oneof=opening discovery presentation negotiation closing follow_up"`
	UserSentiment    string `json:"user_sentiment" validate:"oneof=positive neutral negative"`
	EscalationNeeded bool   `json:"escalation_needed"`
	EscalationReason string `json:"escalation_reason,omitempty"`
}

// Quality is the derived tier of a decision
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// AgentResponse is the interpreted, actionable form of a Decision
type AgentResponse struct {
	Message             string                 `json:"message"`
	ActionTaken         FlowAction             `json:"action_taken"`
	Reasoning           string                 `json:"reasoning"`
	Confidence          float64                `json:"confidence"`
	ContextUpdates      map[string]interface{} `json:"context_updates"`
	SuggestedNextAction string                 `json:"suggested_next_action,omitempty"`
	Meta                ResponseMeta           `json:"meta"`
}

// ResponseMeta summarizes the decision for callers and analytics
type ResponseMeta struct {
	Stage            string  `json:"stage"`
	Sentiment        string  `json:"sentiment"`
	EscalationNeeded bool    `json:"escalation_needed"`
	Quality          Quality `json:"quality"`
}
