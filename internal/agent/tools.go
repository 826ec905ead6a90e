package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quantumflow/agentflow/internal/memory"
	"github.com/quantumflow/agentflow/internal/models"
)

// KnowledgeLookupTool searches a strategy's key facts and FAQ
type KnowledgeLookupTool struct {
	strategy *models.Strategy
}

// NewKnowledgeLookupTool creates a lookup over the strategy's knowledge
func NewKnowledgeLookupTool(strategy *models.Strategy) *KnowledgeLookupTool {
	return &KnowledgeLookupTool{strategy: strategy}
}

func (t *KnowledgeLookupTool) Name() string { return "knowledge_lookup" }
func (t *KnowledgeLookupTool) Description() string {
	return "Search the key facts and FAQ of the current domain"
}

func (t *KnowledgeLookupTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "What to look up"},
		},
		"required": []string{"query"},
	}
}

func (t *KnowledgeLookupTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	query, _ := params["query"].(string)
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return "", fmt.Errorf("query parameter required")
	}

	type hit struct {
		text  string
		score int
	}
	var hits []hit

	score := func(text string) int {
		lower := strings.ToLower(text)
		n := 0
		for _, w := range words {
			if len(w) > 2 && strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	for _, fact := range t.strategy.Knowledge.KeyFacts {
		if s := score(fact); s > 0 {
			hits = append(hits, hit{text: fact, score: s})
		}
	}
	for _, faq := range t.strategy.Knowledge.FAQ {
		if s := score(faq.Question + " " + faq.Answer); s > 0 {
			hits = append(hits, hit{text: fmt.Sprintf("Q: %s A: %s", faq.Question, faq.Answer), score: s})
		}
	}

	if len(hits) == 0 {
		return "No matching knowledge found", nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > 3 {
		hits = hits[:3]
	}

	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = "- " + h.text
	}
	return strings.Join(lines, "\n"), nil
}

// PatternHintTool reports which action sequences worked best for a strategy
type PatternHintTool struct {
	memory   memory.Service
	strategy string
}

// NewPatternHintTool creates a hint tool backed by the memory service
func NewPatternHintTool(m memory.Service, strategy string) *PatternHintTool {
	return &PatternHintTool{memory: m, strategy: strategy}
}

func (t *PatternHintTool) Name() string { return "successful_patterns" }
func (t *PatternHintTool) Description() string {
	return "List the action sequences that most often led to completed sessions"
}

func (t *PatternHintTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 10},
		},
	}
}

func (t *PatternHintTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	limit := 3
	if v, ok := params["limit"].(float64); ok && v >= 1 {
		limit = int(v)
	}

	patterns, err := t.memory.TopPatterns(ctx, t.strategy, limit)
	if err != nil {
		return "", fmt.Errorf("pattern lookup failed: %w", err)
	}
	if len(patterns) == 0 {
		return "No patterns recorded yet", nil
	}

	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		steps := make([]string, len(p.Actions))
		for i, a := range p.Actions {
			steps[i] = string(a)
		}
		lines = append(lines, fmt.Sprintf("- %s (seen %d times, %.0f%% completed)",
			strings.Join(steps, " > "), p.Frequency, p.SuccessRate*100))
	}
	return strings.Join(lines, "\n"), nil
}

// BuiltinTools returns the tools every session of a strategy can use
func (o *Orchestrator) BuiltinTools(strategyName string) []Tool {
	strategy, ok := o.registry.Get(strategyName)
	if !ok {
		return nil
	}

	tools := []Tool{NewKnowledgeLookupTool(strategy)}
	if o.memory != nil {
		tools = append(tools, NewPatternHintTool(o.memory, strategyName))
	}
	return tools
}
