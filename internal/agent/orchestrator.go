package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantumflow/agentflow/internal/integration"
	"github.com/quantumflow/agentflow/internal/memory"
	"github.com/quantumflow/agentflow/internal/models"
	"github.com/quantumflow/agentflow/internal/observability"
	"github.com/quantumflow/agentflow/internal/session"
)

// SessionStartedPrompt is the synthetic prompt of the first turn of every session
const SessionStartedPrompt = "[SESSION_STARTED]"

// DegradedMessage is returned to the user when a turn cannot be decided
const DegradedMessage = "I'm sorry, I'm having trouble processing that right now. Could you please try again?"

var errAlreadyEnded = errors.New("session already ended")

// Orchestrator starts, advances and ends sessions
type Orchestrator struct {
	registry *Registry
	store    *session.Store
	oracle   Oracle
	config   *OrchestratorConfig
	logger   *slog.Logger
	metrics  *observability.Metrics
	memory   memory.Service
	audit    integration.AuditLogger
	newID    func() string
	stats    statsCounters
	started  time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMemory mirrors turns and outcomes into the memory service
func WithMemory(m memory.Service) Option {
	return func(o *Orchestrator) { o.memory = m }
}

// WithAudit writes every turn to the decision audit log
func WithAudit(a integration.AuditLogger) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// WithIDGenerator overrides session id generation
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// NewOrchestrator creates an orchestrator over the given oracle and store
func NewOrchestrator(oracle Oracle, store *session.Store, config *OrchestratorConfig, opts ...Option) *Orchestrator {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	if store == nil {
		store = session.NewStore()
	}

	o := &Orchestrator{
		store:   store,
		oracle:  oracle,
		config:  config,
		logger:  slog.Default(),
		newID:   uuid.NewString,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.registry = NewRegistry(func(s *models.Strategy) *StrategyAgent {
		return NewStrategyAgent(s, o.oracle, o.config, o.logger)
	})
	return o
}

// RegisterStrategy validates and registers a strategy
func (o *Orchestrator) RegisterStrategy(strategy *models.Strategy) error {
	if err := o.registry.Register(strategy); err != nil {
		return err
	}
	o.logger.Info("strategy registered", "strategy", strategy.Name, "domain", strategy.Domain)
	return nil
}

// UnregisterStrategy removes a strategy; sessions bound to it fail on their next turn
func (o *Orchestrator) UnregisterStrategy(name string) bool {
	return o.registry.Unregister(name)
}

// Strategies returns the registered strategy names
func (o *Orchestrator) Strategies() []string {
	return o.registry.List()
}

// Strategy returns a copy of a registered strategy
func (o *Orchestrator) Strategy(name string) (*models.Strategy, bool) {
	return o.registry.Get(name)
}

// GetSession returns a snapshot of a session
func (o *Orchestrator) GetSession(sessionID string) (*models.SessionContext, error) {
	return o.store.Get(sessionID)
}

// StartSession ends any active session of the user, creates a new one and
// runs its synthetic first turn
func (o *Orchestrator) StartSession(ctx context.Context, userID, strategyName string, inputs map[string]interface{}, tools []Tool) (*models.Session, error) {
	agent, err := o.registry.Agent(strategyName)
	if err != nil {
		return nil, err
	}

	unlock := o.store.LockUser(userID)
	defer unlock()

	for _, id := range o.store.ActiveForUser(userID) {
		if o.EndSession(ctx, id) {
			o.logger.Info("replaced active session", "session_id", id, "user_id", userID)
		}
	}

	c := models.NewSessionContext(o.newID(), userID, strategyName, inputs)
	if err := o.store.Create(c); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	o.stats.sessionStarted()
	o.metrics.SessionStarted(strategyName)

	release, err := o.store.BeginTurn(c.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	prior, err := o.store.Get(c.SessionID)
	if err != nil {
		return nil, err
	}

	out := o.turn(ctx, agent, prior, SessionStartedPrompt, true, tools)

	o.logger.Info("session started", "session_id", c.SessionID, "user_id", userID, "strategy", strategyName)

	return &models.Session{
		SessionID:      c.SessionID,
		UserID:         userID,
		StrategyName:   strategyName,
		Status:         out.SessionStatus,
		InitialMessage: out.Message,
		CreatedAt:      c.CreatedAt,
	}, nil
}

// SendMessage runs one turn for a user message
func (o *Orchestrator) SendMessage(ctx context.Context, sessionID, text string, tools []Tool) (*models.Output, error) {
	release, err := o.store.BeginTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotActive, sessionID, current.Status)
	}

	agent, err := o.registry.Agent(current.StrategyName)
	if err != nil {
		return nil, err
	}

	var prior *models.SessionContext
	err = o.store.Update(sessionID, func(c *models.SessionContext) error {
		prior = c.Clone()
		c.AppendMessage(models.NewMessage(models.RoleUser, text))
		c.MessageCount++
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.stats.messageReceived()

	return o.turn(ctx, agent, prior, text, false, tools), nil
}

// EndSession completes a session. It returns false if the session is
// unknown or already ended.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) bool {
	release, err := o.store.BeginTurn(sessionID)
	if err != nil {
		return false
	}
	defer release()

	var final *models.SessionContext
	err = o.store.Update(sessionID, func(c *models.SessionContext) error {
		if c.Status.IsTerminal() {
			return errAlreadyEnded
		}
		if err := session.Transition(c, models.StatusCompleted); err != nil {
			return err
		}
		final = c.Clone()
		return nil
	})
	if err != nil {
		return false
	}

	o.stats.sessionCompleted(final.Duration())
	o.metrics.SessionEnded(final.StrategyName, string(models.StatusCompleted))
	o.recordOutcome(ctx, final)

	o.logger.Info("session ended", "session_id", sessionID, "messages", final.MessageCount, "duration", final.Duration())
	return true
}

// turn decides, interprets and applies one turn. The caller holds the turn lock.
func (o *Orchestrator) turn(ctx context.Context, agent *StrategyAgent, prior *models.SessionContext, prompt string, synthetic bool, tools []Tool) *models.Output {
	start := time.Now()

	turnCtx, cancel := context.WithTimeout(ctx, o.config.TurnTimeout)
	defer cancel()

	record := &models.TurnRecord{
		SessionID:    prior.SessionID,
		UserID:       prior.UserID,
		StrategyName: prior.StrategyName,
		Prompt:       prompt,
		Synthetic:    synthetic,
		Timestamp:    start.UTC(),
	}

	result, err := agent.Decide(turnCtx, &TurnInput{Session: prior, Prompt: prompt, Tools: tools})
	if result != nil {
		record.Rounds = result.Rounds
		record.ToolCalls = result.ToolCalls
	}
	if err != nil {
		return o.failTurn(ctx, record, start, err)
	}

	resp := agent.Interpreter().Interpret(result.Decision, prompt, prior.CurrentGoal)

	var final *models.SessionContext
	escalated := false
	err = o.store.Update(prior.SessionID, func(c *models.SessionContext) error {
		c.UserInputs.Merge(resp.ContextUpdates)
		c.CurrentGoal = NextGoal(result.Decision, c.CurrentGoal)
		applyProfile(c, result.Decision)

		c.Memory.LastAction = resp.ActionTaken
		c.Memory.Actions = append(c.Memory.Actions, resp.ActionTaken)
		c.Memory.ReasoningHistory = append(c.Memory.ReasoningHistory, resp.Reasoning)
		if resp.Meta.Quality == models.QualityHigh {
			c.Memory.SuccessfulPatterns = append(c.Memory.SuccessfulPatterns, string(resp.ActionTaken))
		}

		c.AppendMessage(models.NewMessage(models.RoleAssistant, resp.Message))

		if resp.Meta.EscalationNeeded && c.Status == models.StatusActive {
			if err := session.Transition(c, models.StatusEscalated); err != nil {
				return err
			}
			escalated = true
		}

		final = c.Clone()
		return nil
	})
	if err != nil {
		return o.failTurn(ctx, record, start, err)
	}

	record.Response = resp
	record.Profile = final.Profile
	record.Latency = time.Since(start)

	o.metrics.TurnSucceeded(final.StrategyName, string(resp.ActionTaken), string(resp.Meta.Quality), record.Rounds, record.Latency)
	o.writeAudit(ctx, record)
	if o.memory != nil {
		_ = o.memory.RecordTurn(ctx, record)
	}

	if escalated {
		o.stats.sessionEscalated()
		o.metrics.SessionEnded(final.StrategyName, string(models.StatusEscalated))
		o.recordOutcome(ctx, final)
		o.logger.Warn("session escalated",
			"session_id", final.SessionID,
			"reason", result.Decision.Meta.EscalationReason,
		)
	}

	o.logger.Debug("turn completed",
		"session_id", final.SessionID,
		"action", resp.ActionTaken,
		"quality", resp.Meta.Quality,
		"rounds", record.Rounds,
		"duration", record.Latency,
	)

	out := &models.Output{
		Message:       resp.Message,
		SessionID:     final.SessionID,
		SessionStatus: final.Status,
		Reasoning:     resp.Reasoning,
	}
	if resp.SuggestedNextAction != "" {
		out.SuggestedNextActions = []string{resp.SuggestedNextAction}
	}
	return out
}

// failTurn records a recoverable turn failure and builds the degraded output.
// No context delta is applied.
func (o *Orchestrator) failTurn(ctx context.Context, record *models.TurnRecord, start time.Time, err error) *models.Output {
	o.stats.turnFailed()

	record.Error = err.Error()
	record.FailureReason = failureReason(err)
	record.Latency = time.Since(start)

	status := models.StatusActive
	updateErr := o.store.Update(record.SessionID, func(c *models.SessionContext) error {
		c.Memory.FailedAttempts = append(c.Memory.FailedAttempts, record.Error)
		status = c.Status
		return nil
	})
	if updateErr != nil {
		o.logger.Error("failed to record turn failure", "session_id", record.SessionID, "error", updateErr)
	}

	o.metrics.TurnFailed(record.StrategyName, record.FailureReason, record.Latency)
	o.writeAudit(ctx, record)

	o.logger.Warn("turn failed",
		"session_id", record.SessionID,
		"reason", record.FailureReason,
		"error", err,
	)

	return &models.Output{
		Message:       DegradedMessage,
		SessionID:     record.SessionID,
		SessionStatus: status,
		Reasoning:     "Error: " + err.Error(),
	}
}

// applyProfile folds the decision's read of the user into the profile
func applyProfile(c *models.SessionContext, d *models.Decision) {
	if d.Meta.UserSentiment != "" {
		c.Profile.Sentiment = d.Meta.UserSentiment
	}
	if d.ActionExecution.Intent != "" {
		c.Profile.Intent = d.ActionExecution.Intent
	}
	if e := c.UserInputs.String(models.KeyUserExpertise); e != "" {
		c.Profile.Expertise = e
	}
}

func (o *Orchestrator) writeAudit(ctx context.Context, record *models.TurnRecord) {
	if o.audit == nil {
		return
	}
	if err := o.audit.LogTurn(ctx, record); err != nil {
		o.logger.Warn("audit write failed", "session_id", record.SessionID, "error", err)
	}
}

func (o *Orchestrator) recordOutcome(ctx context.Context, final *models.SessionContext) {
	if o.memory == nil {
		return
	}
	_ = o.memory.RecordOutcome(ctx, models.OutcomeFor(final))
}

// TopPatterns returns the most frequent action sequences of a strategy
func (o *Orchestrator) TopPatterns(ctx context.Context, strategy string, limit int) ([]*memory.ActionPattern, error) {
	if o.memory == nil {
		return nil, nil
	}
	return o.memory.TopPatterns(ctx, strategy, limit)
}

// DecisionSummary aggregates the audited decisions of a strategy
func (o *Orchestrator) DecisionSummary(ctx context.Context, strategy string, since time.Time) (*integration.AuditSummary, error) {
	if o.audit == nil {
		return nil, ErrAuditDisabled
	}
	return o.audit.Summary(ctx, strategy, since)
}

// DecisionLog returns audited turns of a session, newest first
func (o *Orchestrator) DecisionLog(ctx context.Context, sessionID string, limit int) ([]*integration.AuditEntry, error) {
	if o.audit == nil {
		return nil, ErrAuditDisabled
	}
	return o.audit.Query(ctx, &integration.AuditFilter{SessionID: &sessionID, Limit: limit})
}
