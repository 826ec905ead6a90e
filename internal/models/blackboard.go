package models

import (
	"encoding/json"
	"sort"
)

// Namespace partitions blackboard keys by who owns them
type Namespace string

const (
	// NamespaceBusiness holds facts supplied by callers and the oracle
	NamespaceBusiness Namespace = "business"
	// NamespaceAudit holds keys derived by the interpreter on every decision
	NamespaceAudit Namespace = "audit"
)

// Audit keys written by the interpreter after every decision
const (
	KeyDecision                = "decision"
	KeyOriginalPrompt          = "original_prompt"
	KeySessionStage            = "session_stage"
	KeyUserSentiment           = "user_sentiment"
	KeyConsideredRules         = "considered_rules"
	KeyIdentifiedOpportunities = "identified_opportunities"
	KeyIdentifiedRisks         = "identified_risks"
	KeyPreviousGoal            = "previous_goal"
	KeyCurrentGoal             = "current_goal"
	KeyGoalProgress            = "goal_progress"
	KeyDecisionConfidence      = "decision_confidence"
	KeyDecisionQuality         = "decision_quality"
	KeyBackupPlan              = "backup_plan"
	KeyEscalationNeeded        = "escalation_needed"
	KeyEscalationReason        = "escalation_reason"
	KeyLastDecisionTime        = "last_decision_time"
	KeyUpdatedAt               = "updated_at"
)

// KeyUserExpertise is the business key the oracle uses to report user expertise
const KeyUserExpertise = "user_expertise"

var auditKeys = map[string]struct{}{
	KeyDecision:                {},
	KeyOriginalPrompt:          {},
	KeySessionStage:            {},
	KeyUserSentiment:           {},
	KeyConsideredRules:         {},
	KeyIdentifiedOpportunities: {},
	KeyIdentifiedRisks:         {},
	KeyPreviousGoal:            {},
	KeyCurrentGoal:             {},
	KeyGoalProgress:            {},
	KeyDecisionConfidence:      {},
	KeyDecisionQuality:         {},
	KeyBackupPlan:              {},
	KeyEscalationNeeded:        {},
	KeyEscalationReason:        {},
	KeyLastDecisionTime:        {},
	KeyUpdatedAt:               {},
}

// KeyNamespace reports which namespace a key belongs to
func KeyNamespace(key string) Namespace {
	if _, ok := auditKeys[key]; ok {
		return NamespaceAudit
	}
	return NamespaceBusiness
}

// AuditKeys returns the registered audit keys in sorted order
func AuditKeys() []string {
	keys := make([]string, 0, len(auditKeys))
	for k := range auditKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Blackboard is the accumulated key/value state of a session.
// Writes are shallow: a later write for a key replaces the earlier value.
type Blackboard struct {
	values map[string]interface{}
}

// NewBlackboard creates a blackboard seeded with initial values
func NewBlackboard(initial map[string]interface{}) Blackboard {
	b := Blackboard{values: make(map[string]interface{}, len(initial))}
	for k, v := range initial {
		b.values[k] = v
	}
	return b
}

// Get returns the value stored under key
func (b *Blackboard) Get(key string) (interface{}, bool) {
	v, ok := b.values[key]
	return v, ok
}

// String returns the value under key if it is a string
func (b *Blackboard) String(key string) string {
	s, _ := b.values[key].(string)
	return s
}

// Set stores a single value
func (b *Blackboard) Set(key string, value interface{}) {
	if b.values == nil {
		b.values = make(map[string]interface{})
	}
	b.values[key] = value
}

// Merge applies a delta with last-writer-wins semantics
func (b *Blackboard) Merge(delta map[string]interface{}) {
	for k, v := range delta {
		b.Set(k, v)
	}
}

// Keys returns the sorted keys present in the given namespace
func (b *Blackboard) Keys(ns Namespace) []string {
	var keys []string
	for k := range b.values {
		if KeyNamespace(k) == ns {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys
func (b *Blackboard) Len() int {
	return len(b.values)
}

// Snapshot returns a shallow copy of the stored values
func (b *Blackboard) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the blackboard as a flat object
func (b Blackboard) MarshalJSON() ([]byte, error) {
	if b.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.values)
}

// UnmarshalJSON decodes a flat object
func (b *Blackboard) UnmarshalJSON(data []byte) error {
	values := make(map[string]interface{})
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	b.values = values
	return nil
}
