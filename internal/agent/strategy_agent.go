package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/models"
)

// decisionNudge is sent when the oracle answers without calling any tool
const decisionNudge = "You must respond by calling the submit_decision tool with your full decision."

// StrategyAgent decides turns for sessions bound to one strategy
type StrategyAgent struct {
	strategy    *models.Strategy
	oracle      Oracle
	config      *OrchestratorConfig
	interpreter *Interpreter
	logger      *slog.Logger
}

// NewStrategyAgent binds an oracle and a fresh interpreter to a strategy
func NewStrategyAgent(strategy *models.Strategy, oracle Oracle, config *OrchestratorConfig, logger *slog.Logger) *StrategyAgent {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StrategyAgent{
		strategy:    strategy,
		oracle:      oracle,
		config:      config,
		interpreter: NewInterpreter(),
		logger:      logger.With("strategy", strategy.Name),
	}
}

// Strategy returns the strategy the agent is bound to
func (a *StrategyAgent) Strategy() *models.Strategy { return a.strategy }

// Interpreter returns the interpreter bound to this agent
func (a *StrategyAgent) Interpreter() *Interpreter { return a.interpreter }

// Decide runs the bounded oracle loop for one turn and returns the decision
func (a *StrategyAgent) Decide(ctx context.Context, in *TurnInput) (*TurnResult, error) {
	start := time.Now()

	maxRounds := a.config.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}

	byName := make(map[string]Tool, len(in.Tools))
	specs := make([]inference.ToolSpec, 0, len(in.Tools)+1)
	for _, t := range in.Tools {
		if t.Name() == DecisionToolName {
			continue
		}
		byName[t.Name()] = t
		specs = append(specs, inference.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	specs = append(specs, decisionToolSpec())

	messages := a.buildMessages(in)
	result := &TurnResult{}

	for round := 1; round <= maxRounds; round++ {
		result.Rounds = round

		resp, err := a.oracle.Complete(ctx, &inference.ChatRequest{
			Provider:    a.strategy.LLM.Provider,
			Model:       a.strategy.LLM.Model,
			Messages:    messages,
			Tools:       specs,
			Temperature: a.config.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: round %d: %w", ErrOracleUnavailable, round, err)
		}

		reply := resp.Message
		if reply.Role == "" {
			reply.Role = inference.RoleAssistant
		}

		if len(reply.ToolCalls) == 0 {
			// Some models answer with the decision as plain JSON
			if d, err := parseDecision(reply.Content); err == nil {
				result.Decision = d
				result.Latency = time.Since(start)
				return result, nil
			}
			a.logger.Debug("oracle replied without a tool call", "round", round)
			messages = append(messages, reply, inference.ChatMessage{
				Role:    inference.RoleUser,
				Content: decisionNudge,
			})
			continue
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			if call.Name == DecisionToolName {
				d, err := parseDecision(string(call.Arguments))
				if err != nil {
					return nil, err
				}
				result.Decision = d
				result.Latency = time.Since(start)
				return result, nil
			}

			record := a.runTool(ctx, byName, call)
			result.ToolCalls = append(result.ToolCalls, record)

			content := record.Result
			if record.Error != "" {
				content = "error: " + record.Error
			}
			messages = append(messages, inference.ChatMessage{
				Role:       inference.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrDecisionMissing, maxRounds)
}

// runTool executes one domain tool call. Failures are reported back to the oracle.
func (a *StrategyAgent) runTool(ctx context.Context, tools map[string]Tool, call inference.ToolCallData) models.ToolCall {
	start := time.Now()
	record := models.ToolCall{Name: call.Name}

	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &record.Parameters); err != nil {
			record.Error = fmt.Sprintf("invalid arguments: %v", err)
			record.Duration = time.Since(start).Seconds()
			return record
		}
	}
	if record.Parameters == nil {
		record.Parameters = map[string]interface{}{}
	}

	tool, ok := tools[call.Name]
	if !ok {
		record.Error = fmt.Sprintf("unknown tool %s", call.Name)
		record.Duration = time.Since(start).Seconds()
		return record
	}

	out, err := tool.Execute(ctx, record.Parameters)
	if err != nil {
		a.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		record.Error = err.Error()
	}
	record.Result = out
	record.Duration = time.Since(start).Seconds()
	return record
}

// buildMessages composes the system prompt, history and the turn prompt
func (a *StrategyAgent) buildMessages(in *TurnInput) []inference.ChatMessage {
	messages := []inference.ChatMessage{{
		Role:    inference.RoleSystem,
		Content: a.buildSystemPrompt(in.Session),
	}}

	if in.Session != nil {
		for _, m := range in.Session.Messages {
			messages = append(messages, inference.ChatMessage{
				Role:    string(m.Role),
				Content: m.Content,
			})
		}
	}

	messages = append(messages, inference.ChatMessage{
		Role:    inference.RoleUser,
		Content: in.Prompt,
	})
	return messages
}

// buildSystemPrompt renders the strategy and session state for the oracle
func (a *StrategyAgent) buildSystemPrompt(c *models.SessionContext) string {
	s := a.strategy
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("You are a conversational agent working in the %s domain.\n", s.Domain))
	prompt.WriteString(fmt.Sprintf("\nPrimary goal: %s\n", s.Goals.Primary))
	writeList(&prompt, "Secondary goals", s.Goals.Secondary)

	if p := s.Personality; p != nil {
		prompt.WriteString(fmt.Sprintf("\nPersonality: tone=%s, style=%s, pace=%s\n", p.Tone, p.Style, p.Pace))
	}

	if g := s.Guidelines; g != nil {
		writeList(&prompt, "You MUST", g.MustDo)
		writeList(&prompt, "You MUST NOT", g.MustNotDo)
		writeList(&prompt, "Prefer to", g.PreferToDo)
		writeList(&prompt, "Avoid", g.AvoidDoing)
	}

	writeList(&prompt, "Key facts", s.Knowledge.KeyFacts)
	if len(s.Knowledge.FAQ) > 0 {
		prompt.WriteString("\nFAQ:\n")
		for _, f := range s.Knowledge.FAQ {
			prompt.WriteString(fmt.Sprintf("- Q: %s\n  A: %s\n", f.Question, f.Answer))
		}
	}
	writeList(&prompt, "Escalate when", s.Knowledge.EscalationTriggers)

	if c != nil {
		prompt.WriteString("\nSession state:\n")
		prompt.WriteString(fmt.Sprintf("- current goal: %s\n", c.CurrentGoal))
		prompt.WriteString(fmt.Sprintf("- messages so far: %d\n", c.MessageCount))
		if c.Profile.Intent != "" {
			prompt.WriteString(fmt.Sprintf("- user intent: %s\n", c.Profile.Intent))
		}
		if c.Profile.Sentiment != "" {
			prompt.WriteString(fmt.Sprintf("- user sentiment: %s\n", c.Profile.Sentiment))
		}
		if c.Profile.Expertise != "" {
			prompt.WriteString(fmt.Sprintf("- user expertise: %s\n", c.Profile.Expertise))
		}

		keys := c.UserInputs.Keys(models.NamespaceBusiness)
		if len(keys) > 0 {
			sort.Strings(keys)
			prompt.WriteString("\nKnown facts about the user:\n")
			for _, k := range keys {
				v, _ := c.UserInputs.Get(k)
				prompt.WriteString(fmt.Sprintf("- %s: %v\n", k, v))
			}
		}
	}

	prompt.WriteString("\nUse the available tools when you need data. ")
	prompt.WriteString("Finish every turn by calling submit_decision exactly once.\n")
	return prompt.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- %s\n", item))
	}
}
